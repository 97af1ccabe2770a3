package testutil

import (
	"context"
	"sync"

	"tipfeed/internal/feed"
)

var _ feed.Notifier = (*RecordingNotifier)(nil)

// RecordingNotifier keeps every announced event.
type RecordingNotifier struct {
	mu     sync.Mutex
	events []feed.Event

	Err error
}

func (n *RecordingNotifier) Announce(ctx context.Context, ev feed.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return n.Err
}

// Events returns the announced events in order.
func (n *RecordingNotifier) Events() []feed.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]feed.Event(nil), n.events...)
}
