package feed

import "time"

// OperationKind names a user-initiated write flow.
type OperationKind string

const (
	OperationPublish OperationKind = "publish"
	OperationTip     OperationKind = "tip"
)

// Operation is the journal record of one write flow invocation.
type Operation struct {
	ID         string
	Kind       OperationKind
	Subject    string // post text preview for publish, post id for tip
	State      State
	ContentRef string
	TxHash     string
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time // zero until the flow reaches Done or Failed
}

// Finished reports whether the flow has reached a terminal state.
func (op *Operation) Finished() bool {
	return !op.FinishedAt.IsZero()
}

// EventKind names a confirmed write announced through a Notifier.
type EventKind string

const (
	EventPublished EventKind = "published"
	EventTipped    EventKind = "tipped"
)

// Event describes a confirmed write.
type Event struct {
	Kind        EventKind `json:"kind"`
	OperationID string    `json:"operation_id"`
	Actor       string    `json:"actor"`
	PostID      string    `json:"post_id,omitempty"`
	ContentRef  string    `json:"content_ref,omitempty"`
	TxHash      string    `json:"tx_hash"`
	At          time.Time `json:"at"`
}
