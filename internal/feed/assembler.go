package feed

import (
	"context"
	"math/big"
	"slices"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Assembler builds the ranked feed from the contract and the content store.
// It never writes to either.
type Assembler struct {
	contract     ContractClient
	store        ContentStore
	logger       Logger
	metrics      Metrics
	clock        Clock
	concurrency  int
	fetchTimeout time.Duration
}

// NewAssembler creates an Assembler over the given collaborators.
func NewAssembler(contract ContractClient, store ContentStore, opts Options) *Assembler {
	opts = opts.withDefaults()
	return &Assembler{
		contract:     contract,
		store:        store,
		logger:       opts.Logger,
		metrics:      opts.Metrics,
		clock:        opts.Clock,
		concurrency:  opts.Concurrency,
		fetchTimeout: opts.FetchTimeout,
	}
}

// Assemble resolves the viewer's identity and returns every post joined with
// its content and author profile, most tipped first.
//
// Only identity resolution and the post listing are fatal. A post whose
// content or profile cannot be fetched is still returned, with the
// corresponding field absent.
func (a *Assembler) Assemble(ctx context.Context) ([]FeedItem, SessionIdentity, error) {
	start := a.clock.Now()
	items, identity, err := a.assemble(ctx)
	a.metrics.AssemblyFinished(a.clock.Now().Sub(start), len(items), err)
	return items, identity, err
}

func (a *Assembler) assemble(ctx context.Context) ([]FeedItem, SessionIdentity, error) {
	identity, err := a.resolveIdentity(ctx)
	if err != nil {
		return nil, SessionIdentity{}, err
	}

	posts, err := a.contract.AllPosts(ctx)
	if err != nil {
		return nil, SessionIdentity{}, &ChainError{Op: "getAllPosts", Err: err}
	}

	items := make([]FeedItem, len(posts))
	profiles := newProfileResolver(a)

	var g errgroup.Group
	g.SetLimit(a.concurrency)
	for i, post := range posts {
		g.Go(func() error {
			items[i] = a.assembleItem(ctx, post, profiles)
			return nil
		})
	}
	_ = g.Wait() // item goroutines never fail

	rank(items)
	a.logger.Debug("feed assembled", "posts", len(items), "viewer", identity.Address.Hex())
	return items, identity, nil
}

func (a *Assembler) resolveIdentity(ctx context.Context) (SessionIdentity, error) {
	address, err := a.contract.CallerAddress(ctx)
	if err != nil {
		return SessionIdentity{}, &AssemblyError{Step: "reading caller address", Err: err}
	}

	balance, err := a.contract.BalanceOf(ctx, address)
	if err != nil {
		return SessionIdentity{}, &AssemblyError{Step: "reading profile NFT balance", Err: err}
	}

	return SessionIdentity{
		Address:        address,
		OwnsProfileNFT: balance != nil && balance.Sign() > 0,
	}, nil
}

// assembleItem fetches a post's content and its author's profile concurrently.
func (a *Assembler) assembleItem(ctx context.Context, post Post, profiles *profileResolver) FeedItem {
	if a.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.fetchTimeout)
		defer cancel()
	}

	item := FeedItem{
		ID:       post.ID,
		TipTotal: post.TipTotal,
		Author:   Author{Address: post.Author},
	}
	if item.TipTotal == nil {
		item.TipTotal = new(big.Int)
	}

	var g errgroup.Group
	g.Go(func() error {
		item.Content = a.fetchContent(ctx, post)
		return nil
	})
	g.Go(func() error {
		item.Author.Profile = profiles.resolve(ctx, post.Author)
		return nil
	})
	_ = g.Wait()

	return item
}

func (a *Assembler) fetchContent(ctx context.Context, post Post) Optional[string] {
	if post.ContentRef == "" {
		a.logger.Warn("post has no content reference", "post", post.ID.String())
		a.metrics.FetchFailed("content")
		return None[string]()
	}

	data, err := a.store.Get(ctx, post.ContentRef)
	if err != nil {
		a.logger.Warn("post content unavailable", "post", post.ID.String(), "ref", post.ContentRef, "error", err)
		a.metrics.FetchFailed("content")
		return None[string]()
	}

	body, err := decodePostDocument(data)
	if err != nil {
		a.logger.Warn("post content unreadable", "post", post.ID.String(), "ref", post.ContentRef, "error", err)
		a.metrics.FetchFailed("content")
		return None[string]()
	}
	return Some(body)
}

func (a *Assembler) fetchProfile(ctx context.Context, author common.Address) Optional[Profile] {
	fail := func(step string, err error) Optional[Profile] {
		a.logger.Warn("author profile unavailable", "author", author.Hex(), "step", step, "error", err)
		a.metrics.FetchFailed("profile")
		return None[Profile]()
	}

	tokenID, err := a.contract.ProfileTokenID(ctx, author)
	if err != nil {
		return fail("profiles", err)
	}
	uri, err := a.contract.TokenURI(ctx, tokenID)
	if err != nil {
		return fail("tokenURI", err)
	}
	data, err := a.store.Get(ctx, uri)
	if err != nil {
		return fail("metadata", err)
	}
	profile, err := decodeProfileDocument(data)
	if err != nil {
		return fail("metadata", err)
	}
	return Some(profile)
}

// profileResolver resolves each author at most once per assembly, however
// many of their posts are being assembled concurrently.
type profileResolver struct {
	assembler *Assembler
	group     singleflight.Group

	mu       sync.Mutex
	resolved map[common.Address]Optional[Profile]
}

func newProfileResolver(a *Assembler) *profileResolver {
	return &profileResolver{
		assembler: a,
		resolved:  make(map[common.Address]Optional[Profile]),
	}
}

func (r *profileResolver) resolve(ctx context.Context, author common.Address) Optional[Profile] {
	v, _, _ := r.group.Do(author.Hex(), func() (any, error) {
		r.mu.Lock()
		profile, ok := r.resolved[author]
		r.mu.Unlock()
		if ok {
			return profile, nil
		}

		profile = r.assembler.fetchProfile(ctx, author)

		r.mu.Lock()
		r.resolved[author] = profile
		r.mu.Unlock()
		return profile, nil
	})
	return v.(Optional[Profile])
}

// rank orders items by tip total, highest first. Ties keep source order.
func rank(items []FeedItem) {
	slices.SortStableFunc(items, func(x, y FeedItem) int {
		return y.TipTotal.Cmp(x.TipTotal)
	})
}
