// Package notify announces confirmed feed writes to other services.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"tipfeed/internal/config"
	"tipfeed/internal/feed"
)

// DefaultSubject is the subject prefix used when none is configured.
const DefaultSubject = "tipfeed"

// publisher is the subset of *nats.Conn the notifier uses.
type publisher interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Close()
}

// NATSNotifier publishes each event as JSON on "<prefix>.<kind>", e.g.
// "tipfeed.published" and "tipfeed.tipped".
type NATSNotifier struct {
	conn   publisher
	prefix string
}

var _ feed.Notifier = (*NATSNotifier)(nil)

// NewNATSNotifier connects to the NATS server at url.
func NewNATSNotifier(url, prefix string) (*NATSNotifier, error) {
	conn, err := nats.Connect(url,
		nats.Name("tipfeed"),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats at %s: %w", url, err)
	}
	return newNATSNotifier(conn, prefix), nil
}

func newNATSNotifier(conn publisher, prefix string) *NATSNotifier {
	if prefix == "" {
		prefix = DefaultSubject
	}
	return &NATSNotifier{conn: conn, prefix: prefix}
}

// Subject returns the subject events of kind are published on.
func (n *NATSNotifier) Subject(kind feed.EventKind) string {
	return n.prefix + "." + string(kind)
}

// Announce publishes ev and waits for the server to acknowledge the flush,
// so a short-lived CLI process does not exit with the event still buffered.
func (n *NATSNotifier) Announce(ctx context.Context, ev feed.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	subject := n.Subject(ev.Kind)
	if err := n.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish %s: %w", subject, err)
	}
	if err := n.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("failed to flush %s: %w", subject, err)
	}
	return nil
}

// Close closes the connection.
func (n *NATSNotifier) Close() error {
	n.conn.Close()
	return nil
}

// Nop discards every event.
type Nop struct{}

var _ feed.Notifier = Nop{}

func (Nop) Announce(context.Context, feed.Event) error { return nil }
func (Nop) Close() error                               { return nil }

// Notifier is a feed.Notifier holding a connection.
type Notifier interface {
	feed.Notifier
	Close() error
}

// NewFromConfig creates the notifier selected by cfg.Type.
func NewFromConfig(cfg config.NotifyConfig) (Notifier, error) {
	switch cfg.Type {
	case "none", "":
		return Nop{}, nil
	case "nats":
		url := cfg.NATSURL
		if url == "" {
			url = nats.DefaultURL
		}
		return NewNATSNotifier(url, cfg.Subject)
	default:
		return nil, fmt.Errorf("unknown notify type: %q", cfg.Type)
	}
}
