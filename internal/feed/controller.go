package feed

import (
	"context"
	"math/big"
	"slices"
	"sync"
)

// subjectPreviewRunes caps how much of a post body is kept in the journal.
const subjectPreviewRunes = 80

// FeedState is a snapshot of the controller for presentation.
type FeedState struct {
	Items    []FeedItem
	Identity SessionIdentity
	Loading  bool  // true until the first successful assembly
	Err      error // error of the most recent assembly, if it failed
}

// Controller owns the published feed and session identity. It assembles the
// feed on load and again after every confirmed write.
type Controller struct {
	assembler *Assembler
	publish   *PublishFlow
	tip       *TipFlow

	logger   Logger
	journal  Journal
	notifier Notifier
	clock    Clock
	ids      IDGenerator

	mu       sync.RWMutex
	issued   uint64 // last generation handed to an assembly
	applied  uint64 // generation of the feed currently published
	loaded   bool
	items    []FeedItem
	identity SessionIdentity
	lastErr  error

	opsMu  sync.Mutex
	active map[string]*Operation // by flow name
}

// NewController wires an Assembler and both write flows over the given
// collaborators.
func NewController(contract ContractClient, store ContentStore, opts Options) *Controller {
	opts = opts.withDefaults()
	c := &Controller{
		assembler: NewAssembler(contract, store, opts),
		publish:   NewPublishFlow(store, contract, opts),
		tip:       NewTipFlow(contract, opts),
		logger:    opts.Logger,
		journal:   opts.Journal,
		notifier:  opts.Notifier,
		clock:     opts.Clock,
		ids:       opts.IDs,
		active:    make(map[string]*Operation),
	}
	c.publish.m.listener = c.observe
	c.tip.m.listener = c.observe
	return c
}

// Load performs the first assembly. It does nothing once a feed is loaded.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.RLock()
	loaded := c.loaded
	c.mu.RUnlock()
	if loaded {
		return nil
	}
	return c.Reload(ctx)
}

// Reload assembles the feed and publishes it unless a newer assembly has
// already been applied. A failed assembly keeps the previous feed.
func (c *Controller) Reload(ctx context.Context) error {
	c.mu.Lock()
	c.issued++
	gen := c.issued
	c.mu.Unlock()

	items, identity, err := c.assembler.Assemble(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen < c.applied {
		c.logger.Debug("discarding stale feed", "generation", gen, "applied", c.applied)
		return nil
	}
	if err != nil {
		c.lastErr = err
		return err
	}

	c.applied = gen
	c.items = items
	c.identity = identity
	c.loaded = true
	c.lastErr = nil
	return nil
}

// State returns a copy of the current feed state.
func (c *Controller) State() FeedState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return FeedState{
		Items:    slices.Clone(c.items),
		Identity: c.identity,
		Loading:  !c.loaded,
		Err:      c.lastErr,
	}
}

// Publish runs the publish flow and reloads the feed once it is confirmed.
func (c *Controller) Publish(ctx context.Context, text string) (string, error) {
	if !c.isLoaded() {
		return "", ErrNotLoaded
	}

	ref, err := c.publish.Publish(ctx, text)
	if err != nil {
		return "", err
	}
	c.reloadAfterWrite(ctx)
	return ref, nil
}

// Tip runs the tip flow for item and reloads the feed once it is confirmed.
// Eligibility is not checked here; see CanTip.
func (c *Controller) Tip(ctx context.Context, item FeedItem) error {
	if !c.isLoaded() {
		return ErrNotLoaded
	}

	if err := c.tip.Tip(ctx, item.ID); err != nil {
		return err
	}
	c.reloadAfterWrite(ctx)
	return nil
}

// PublishState returns the state of the publish flow.
func (c *Controller) PublishState() State { return c.publish.State() }

// TipState returns the state of the tip flow.
func (c *Controller) TipState() State { return c.tip.State() }

func (c *Controller) isLoaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// reloadAfterWrite refreshes the feed after a confirmed write. The write has
// already succeeded, so a failed reload is only logged.
func (c *Controller) reloadAfterWrite(ctx context.Context) {
	if err := c.Reload(ctx); err != nil {
		c.logger.Warn("reloading feed after write", "error", err)
	}
}

// observe journals every flow transition and announces confirmed writes.
func (c *Controller) observe(ctx context.Context, t Transition) {
	c.opsMu.Lock()
	op := c.active[t.Flow]
	if t.Started() || op == nil {
		op = &Operation{
			ID:        c.ids.New(),
			Kind:      OperationKind(t.Flow),
			Subject:   preview(t.Subject),
			StartedAt: c.clock.Now(),
		}
		c.active[t.Flow] = op
	}
	op.State = t.To
	if t.ContentRef != "" {
		op.ContentRef = t.ContentRef
	}
	if t.TxHash != "" {
		op.TxHash = t.TxHash
	}
	if t.Err != nil {
		op.Error = t.Err.Error()
	}
	if t.To.Terminal() {
		op.FinishedAt = c.clock.Now()
		delete(c.active, t.Flow)
	}
	snapshot := *op
	c.opsMu.Unlock()

	if c.journal != nil {
		if err := c.journal.Record(ctx, &snapshot); err != nil {
			c.logger.Warn("journaling operation", "operation", snapshot.ID, "error", err)
		}
	}

	if t.To == StateDone {
		c.announce(ctx, &snapshot)
	}
}

func (c *Controller) announce(ctx context.Context, op *Operation) {
	if c.notifier == nil {
		return
	}

	c.mu.RLock()
	actor := c.identity.Address.Hex()
	c.mu.RUnlock()

	ev := Event{
		OperationID: op.ID,
		Actor:       actor,
		ContentRef:  op.ContentRef,
		TxHash:      op.TxHash,
		At:          op.FinishedAt,
	}
	switch op.Kind {
	case OperationPublish:
		ev.Kind = EventPublished
	case OperationTip:
		ev.Kind = EventTipped
		ev.PostID = op.Subject
	}

	if err := c.notifier.Announce(ctx, ev); err != nil {
		c.logger.Warn("announcing operation", "operation", op.ID, "error", err)
	}
}

func preview(s string) string {
	r := []rune(s)
	if len(r) <= subjectPreviewRunes {
		return s
	}
	return string(r[:subjectPreviewRunes]) + "…"
}

// Find returns the loaded item with the given post id.
func (s FeedState) Find(id *big.Int) (FeedItem, bool) {
	for _, item := range s.Items {
		if item.ID != nil && item.ID.Cmp(id) == 0 {
			return item, true
		}
	}
	return FeedItem{}, false
}
