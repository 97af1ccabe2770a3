package testutil

import (
	"sync"
	"time"

	"tipfeed/internal/feed"
)

var _ feed.Metrics = (*RecordingMetrics)(nil)

// RecordingMetrics counts the measurements it receives.
type RecordingMetrics struct {
	mu           sync.Mutex
	assemblies   int
	assemblyErrs int
	fetchFails   map[string]int
	flows        map[string][]feed.State
}

// NewRecordingMetrics creates an empty RecordingMetrics.
func NewRecordingMetrics() *RecordingMetrics {
	return &RecordingMetrics{
		fetchFails: make(map[string]int),
		flows:      make(map[string][]feed.State),
	}
}

func (m *RecordingMetrics) AssemblyFinished(elapsed time.Duration, items int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assemblies++
	if err != nil {
		m.assemblyErrs++
	}
}

func (m *RecordingMetrics) FetchFailed(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetchFails[kind]++
}

func (m *RecordingMetrics) FlowFinished(flow string, final feed.State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flows[flow] = append(m.flows[flow], final)
}

// Assemblies returns the number of finished assemblies and how many failed.
func (m *RecordingMetrics) Assemblies() (total, failed int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.assemblies, m.assemblyErrs
}

// FetchFailures returns the number of failed fetches of the given kind.
func (m *RecordingMetrics) FetchFailures(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetchFails[kind]
}

// FlowOutcomes returns the final states reported for flow, in order.
func (m *RecordingMetrics) FlowOutcomes(flow string) []feed.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]feed.State(nil), m.flows[flow]...)
}
