package feed

import (
	"context"
	"fmt"
	"sync"
)

// State is the position of a write flow in its state machine.
type State int

const (
	StateIdle State = iota
	StateValidating
	StateStoring
	StateAwaitingConfirmation
	StateDone
	StateFailed
)

var stateNames = [...]string{
	StateIdle:                 "idle",
	StateValidating:           "validating",
	StateStoring:              "storing",
	StateAwaitingConfirmation: "awaiting_confirmation",
	StateDone:                 "done",
	StateFailed:               "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// Terminal reports whether s is Done or Failed.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// ParseState is the inverse of State.String.
func ParseState(name string) (State, error) {
	for i, n := range stateNames {
		if n == name {
			return State(i), nil
		}
	}
	return StateIdle, fmt.Errorf("unknown flow state: %q", name)
}

// Transition is reported to a flow's listener on every state change.
// Subject is the input of the invocation (post text or post id). ContentRef
// and TxHash are filled in once known.
type Transition struct {
	Flow       string
	Subject    string
	From       State
	To         State
	ContentRef string
	TxHash     string
	Err        error
}

// Started reports whether t opens a new invocation of its flow.
func (t Transition) Started() bool {
	return t.From == StateIdle || t.From.Terminal()
}

// machine holds the state of one flow. A flow may start from Idle or from a
// terminal state; starting it anywhere else fails with ErrFlowBusy.
type machine struct {
	name     string
	metrics  Metrics
	listener func(context.Context, Transition)

	mu      sync.Mutex
	state   State
	subject string
}

func (m *machine) current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *machine) begin(ctx context.Context, first State, subject string) error {
	m.mu.Lock()
	if m.state != StateIdle && !m.state.Terminal() {
		m.mu.Unlock()
		return ErrFlowBusy
	}
	t := Transition{Flow: m.name, Subject: subject, From: m.state, To: first}
	m.state = first
	m.subject = subject
	m.mu.Unlock()

	m.notify(ctx, t)
	return nil
}

func (m *machine) move(ctx context.Context, to State, t Transition) {
	m.mu.Lock()
	t.Flow = m.name
	t.Subject = m.subject
	t.From = m.state
	t.To = to
	m.state = to
	m.mu.Unlock()

	m.notify(ctx, t)
}

func (m *machine) notify(ctx context.Context, t Transition) {
	if t.To.Terminal() && m.metrics != nil {
		m.metrics.FlowFinished(m.name, t.To)
	}
	if m.listener != nil {
		m.listener(ctx, t)
	}
}
