// Package metrics records feed and flow measurements with Prometheus
// collectors.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"tipfeed/internal/feed"
)

const namespace = "tipfeed"

// Recorder implements feed.Metrics on a private registry.
type Recorder struct {
	registry *prometheus.Registry

	assemblyDuration *prometheus.HistogramVec
	feedItems        prometheus.Gauge
	fetchFailures    *prometheus.CounterVec
	flowOutcomes     *prometheus.CounterVec
}

var _ feed.Metrics = (*Recorder)(nil)

// NewRecorder creates a Recorder with its collectors registered.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		assemblyDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "feed",
				Name:      "assembly_duration_seconds",
				Help:      "Duration of feed assemblies.",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
			},
			[]string{"status"},
		),
		feedItems: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "feed",
				Name:      "items",
				Help:      "Number of items in the last assembled feed.",
			},
		),
		fetchFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "feed",
				Name:      "fetch_failures_total",
				Help:      "Documents that could not be fetched during assembly.",
			},
			[]string{"kind"},
		),
		flowOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "flow",
				Name:      "outcomes_total",
				Help:      "Write flows that reached a terminal state.",
			},
			[]string{"flow", "state"},
		),
	}
	r.registry.MustRegister(r.assemblyDuration, r.feedItems, r.fetchFailures, r.flowOutcomes)
	return r
}

// Registry returns the registry holding the recorder's collectors.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) AssemblyFinished(elapsed time.Duration, items int, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	} else {
		r.feedItems.Set(float64(items))
	}
	r.assemblyDuration.WithLabelValues(status).Observe(elapsed.Seconds())
}

func (r *Recorder) FetchFailed(kind string) {
	r.fetchFailures.WithLabelValues(kind).Inc()
}

func (r *Recorder) FlowFinished(flow string, final feed.State) {
	r.flowOutcomes.WithLabelValues(flow, final.String()).Inc()
}

// WriteToTextfile writes the current values in the node_exporter textfile
// format, creating the parent directory if needed.
func (r *Recorder) WriteToTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
