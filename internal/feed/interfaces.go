package feed

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// ContractClient is the read/write surface of the feed contract.
// Write methods return once the transaction has been accepted for inclusion;
// callers block on PendingTx.Wait for confirmation.
type ContractClient interface {
	// CallerAddress returns the address transactions are sent from.
	CallerAddress(ctx context.Context) (common.Address, error)

	// BalanceOf returns the number of profile NFTs held by owner.
	BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error)

	// AllPosts returns every post recorded by the contract.
	AllPosts(ctx context.Context) ([]Post, error)

	// ProfileTokenID returns the profile NFT selected by owner.
	ProfileTokenID(ctx context.Context, owner common.Address) (*big.Int, error)

	// TokenURI returns the metadata URI of an NFT.
	TokenURI(ctx context.Context, tokenID *big.Int) (string, error)

	// SubmitPost records a new post pointing at contentRef.
	SubmitPost(ctx context.Context, contentRef string) (PendingTx, error)

	// SubmitTip pays amount wei to the author of postID.
	SubmitTip(ctx context.Context, postID *big.Int, amount *big.Int) (PendingTx, error)
}

// PendingTx is a submitted transaction that is not final until Wait returns nil.
type PendingTx interface {
	Hash() string
	Wait(ctx context.Context) error
}

// ContentStore stores and fetches immutable documents by content identifier.
type ContentStore interface {
	// Put stores data and returns its content identifier.
	Put(ctx context.Context, data []byte) (string, error)

	// Get fetches a document by content identifier or by URI.
	Get(ctx context.Context, refOrURI string) ([]byte, error)
}

// Logger provides structured logging for the feed core.
// The args follow slog conventions: alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debug(string, ...any) {}
func (NopLogger) Info(string, ...any)  {}
func (NopLogger) Warn(string, ...any)  {}
func (NopLogger) Error(string, ...any) {}

// Journal persists the history of write operations.
type Journal interface {
	// Record inserts or updates op, keyed by op.ID.
	Record(ctx context.Context, op *Operation) error

	// Recent returns up to limit operations, newest first.
	Recent(ctx context.Context, limit int) ([]*Operation, error)
}

// Notifier announces confirmed writes to other services.
type Notifier interface {
	Announce(ctx context.Context, ev Event) error
}

// Metrics receives feed and flow measurements.
type Metrics interface {
	AssemblyFinished(elapsed time.Duration, items int, err error)
	FetchFailed(kind string)
	FlowFinished(flow string, final State)
}

// NopMetrics discards every measurement.
type NopMetrics struct{}

func (NopMetrics) AssemblyFinished(time.Duration, int, error) {}
func (NopMetrics) FetchFailed(string)                         {}
func (NopMetrics) FlowFinished(string, State)                 {}

// Clock abstracts time so tests are deterministic.
type Clock interface {
	Now() time.Time
}

// RealClock reads the system clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// IDGenerator produces operation ids.
type IDGenerator interface {
	New() string
}

// UUIDGenerator produces random UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) New() string { return uuid.NewString() }
