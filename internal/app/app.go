package app

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"slices"
	"time"

	"tipfeed/internal/cache"
	"tipfeed/internal/chain"
	"tipfeed/internal/config"
	"tipfeed/internal/contentstore"
	"tipfeed/internal/feed"
	"tipfeed/internal/journal"
	"tipfeed/internal/keys"
	"tipfeed/internal/metrics"
	"tipfeed/internal/notify"
)

var (
	// ErrNotEligible is returned when the viewer may not perform a write.
	ErrNotEligible = errors.New("not eligible")

	// ErrNoSigningKey is returned by write commands when no key is stored.
	ErrNoSigningKey = errors.New("no signing key configured: run `tipfeed key init`")

	// ErrPostNotFound is returned when a tip names a post that is not in the feed.
	ErrPostNotFound = errors.New("post not found")
)

// Options selects what a command needs from the App.
type Options struct {
	// Command names the CLI command being run (e.g. "feed", "post").
	Command string

	// Sign unlocks the signing key. Read commands leave it locked and use the
	// key's plaintext address as the viewer identity.
	Sign bool

	// Offline skips the chain and content store. Only the journal is usable.
	Offline bool

	// Passphrase unlocks an encrypted key. Defaults to PromptPassphrase.
	Passphrase PassphraseFunc
}

// walletReader is implemented by contract clients that can report the
// viewer's ether balance.
type walletReader interface {
	WalletBalance(ctx context.Context) (*big.Int, error)
}

// App is the application layer between the CLI and the feed controller.
// It constructs all dependencies from config, exposes the feed operations,
// and releases every resource on Close.
type App struct {
	cfg     *config.Config
	inv     *Invocation
	clock   feed.Clock
	logger  *slog.Logger
	logFile io.Closer

	journal  *journal.SQLiteJournal
	metrics  *metrics.Recorder
	notifier notify.Notifier

	contract   feed.ContractClient
	controller *feed.Controller
	closers    []func() error // released in reverse order
}

// New creates a fully wired App from the given config.
// The caller must call Close when done.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	a, err := newBase(cfg, opts)
	if err != nil {
		return nil, err
	}
	if opts.Offline {
		return a, nil
	}

	contract, err := a.dialChain(ctx, opts)
	if err != nil {
		a.Close()
		return nil, err
	}
	store, err := a.openStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	if err := a.wire(contract, store); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// NewWithCollaborators creates an App over the given contract client and
// content store instead of the configured ones.
func NewWithCollaborators(cfg *config.Config, opts Options, contract feed.ContractClient, store feed.ContentStore) (*App, error) {
	a, err := newBase(cfg, opts)
	if err != nil {
		return nil, err
	}
	if err := a.wire(contract, store); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// newBase sets up logging, the journal, metrics and the notifier.
func newBase(cfg *config.Config, opts Options) (*App, error) {
	clock := feed.RealClock{}
	inv := NewInvocation(opts.Command, clock.Now())

	logger, logFile, err := newLogger(cfg.LogDir, inv.ID)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	a := &App{
		cfg:     cfg,
		inv:     inv,
		clock:   clock,
		logger:  logger,
		logFile: logFile,
		metrics: metrics.NewRecorder(),
	}

	j, err := journal.NewJournalFromConfig(cfg.Journal)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	a.journal = j

	n, err := notify.NewFromConfig(cfg.Notify)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("creating notifier: %w", err)
	}
	a.notifier = n

	logger.Debug("command started", "command", inv.Command)
	return a, nil
}

func (a *App) log() feed.Logger {
	return &slogAdapter{l: a.logger}
}

// dialChain loads the signing key if asked to and connects to the node.
func (a *App) dialChain(ctx context.Context, opts Options) (*chain.Client, error) {
	ks, err := keys.NewStoreFromConfig(a.cfg.Chain.Key)
	if err != nil {
		return nil, fmt.Errorf("creating key store: %w", err)
	}

	chainCfg := a.cfg.Chain
	var key *ecdsa.PrivateKey
	switch {
	case opts.Sign:
		if !ks.IsConfigured() {
			return nil, ErrNoSigningKey
		}
		passphrase := ""
		if ks.NeedsPassphrase() {
			ask := opts.Passphrase
			if ask == nil {
				ask = PromptPassphrase
			}
			if passphrase, err = ask("Passphrase: "); err != nil {
				return nil, err
			}
		}
		if key, err = ks.Load(passphrase); err != nil {
			return nil, fmt.Errorf("unlocking signing key: %w", err)
		}
	case chainCfg.Address == "" && ks.IsConfigured():
		addr, err := ks.Address()
		if err != nil {
			a.logger.Warn("reading key address", "error", err)
			break
		}
		chainCfg.Address = addr.Hex()
	}

	client, closeFn, err := chain.Dial(ctx, chainCfg, key, a.log())
	if err != nil {
		return nil, fmt.Errorf("connecting to chain: %w", err)
	}
	a.closers = append(a.closers, func() error {
		closeFn()
		return nil
	})
	return client, nil
}

// openStore creates the configured content store behind the configured cache.
func (a *App) openStore(ctx context.Context) (feed.ContentStore, error) {
	router, err := contentstore.NewStoreFromConfig(ctx, a.cfg.ContentStore)
	if err != nil {
		return nil, fmt.Errorf("creating content store: %w", err)
	}
	store, closeCache, err := cache.NewFromConfig(ctx, a.cfg.Cache, router, a.log())
	if err != nil {
		return nil, fmt.Errorf("creating cache: %w", err)
	}
	a.closers = append(a.closers, closeCache)
	return store, nil
}

func (a *App) wire(contract feed.ContractClient, store feed.ContentStore) error {
	fetchTimeout, err := a.cfg.Feed.FetchTimeoutDuration()
	if err != nil {
		return err
	}
	a.contract = contract
	a.controller = feed.NewController(contract, store, feed.Options{
		Concurrency:  a.cfg.Feed.Concurrency,
		FetchTimeout: fetchTimeout,
		Logger:       a.log(),
		Metrics:      a.metrics,
		Journal:      a.journal,
		Notifier:     a.notifier,
		Clock:        a.clock,
	})
	return nil
}

func (a *App) requireOnline() error {
	if a.controller == nil {
		return errors.New("app was opened offline")
	}
	return nil
}

// track marks the invocation failed when err is not nil and returns err.
func (a *App) track(err error) error {
	if err != nil {
		a.inv.Fail()
	}
	return err
}

// Feed loads the feed once and returns it.
func (a *App) Feed(ctx context.Context) (feed.FeedState, error) {
	if err := a.requireOnline(); err != nil {
		return feed.FeedState{}, err
	}
	err := a.controller.Load(ctx)
	return a.controller.State(), a.track(err)
}

// Publish stores text and records it on chain. The viewer must hold a
// profile NFT.
func (a *App) Publish(ctx context.Context, text string) (string, error) {
	state, err := a.Feed(ctx)
	if err != nil {
		return "", err
	}
	if !feed.CanPublish(state.Identity) {
		return "", a.track(fmt.Errorf("%w: must own an NFT to post", ErrNotEligible))
	}

	ref, err := a.controller.Publish(ctx, text)
	if err != nil {
		return "", a.track(err)
	}
	a.logger.Info("post published", "ref", ref)
	return ref, nil
}

// Tip sends the fixed tip to the author of postID.
func (a *App) Tip(ctx context.Context, postID *big.Int) error {
	state, err := a.Feed(ctx)
	if err != nil {
		return err
	}

	item, ok := state.Find(postID)
	if !ok {
		return a.track(fmt.Errorf("%w: %s", ErrPostNotFound, postID))
	}
	if !feed.CanTip(state.Identity, item) {
		return a.track(fmt.Errorf("%w: cannot tip post %s", ErrNotEligible, postID))
	}

	if err := a.controller.Tip(ctx, item); err != nil {
		return a.track(err)
	}
	a.logger.Info("post tipped", "post", postID.String(), "amount", FormatEther(feed.TipAmount()))
	return nil
}

// History returns up to limit journaled operations, newest first. An empty
// kind returns every kind.
func (a *App) History(ctx context.Context, limit int, kind feed.OperationKind) ([]*feed.Operation, error) {
	var (
		ops []*feed.Operation
		err error
	)
	if kind == "" {
		ops, err = a.journal.Recent(ctx, limit)
	} else {
		ops, err = a.journal.RecentByKind(ctx, kind, limit)
	}
	if err != nil {
		return nil, a.track(fmt.Errorf("reading history: %w", err))
	}
	return ops, nil
}

// WalletBalance returns the viewer's ether balance in wei.
func (a *App) WalletBalance(ctx context.Context) (*big.Int, error) {
	w, ok := a.contract.(walletReader)
	if !ok {
		return nil, errors.New("contract client cannot report balances")
	}
	return w.WalletBalance(ctx)
}

// Close writes metrics and releases every resource. It returns the first
// error encountered.
func (a *App) Close() error {
	var errs []error

	if a.cfg.Metrics.Textfile != "" && a.metrics != nil {
		if err := a.metrics.WriteToTextfile(a.cfg.Metrics.Textfile); err != nil {
			errs = append(errs, err)
		}
	}

	for _, closeFn := range slices.Backward(a.closers) {
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil

	if a.notifier != nil {
		if err := a.notifier.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing notifier: %w", err))
		}
	}
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing journal: %w", err))
		}
	}

	a.logger.Debug("command finished",
		"command", a.inv.Command,
		"status", a.inv.Status,
		"elapsed", a.inv.Elapsed(a.clock.Now()).Truncate(time.Millisecond),
	)
	if a.logFile != nil {
		a.logFile.Close()
	}

	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}
