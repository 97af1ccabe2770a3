package app

import "time"

// Invocation tracks one CLI command for logging. Its ID tags every log line
// the command writes, so all lines of one run can be grepped together.
type Invocation struct {
	ID        string
	Command   string
	StartedAt time.Time
	Status    string // "success" or "error"
}

// NewInvocation creates an invocation of command starting at now.
func NewInvocation(command string, now time.Time) *Invocation {
	return &Invocation{
		ID:        now.UTC().Format("20060102T150405Z"),
		Command:   command,
		StartedAt: now,
		Status:    "success",
	}
}

// Fail marks the invocation as failed.
func (inv *Invocation) Fail() {
	inv.Status = "error"
}

// Elapsed returns the time since the invocation started.
func (inv *Invocation) Elapsed(now time.Time) time.Duration {
	return now.Sub(inv.StartedAt)
}
