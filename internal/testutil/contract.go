package testutil

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"tipfeed/internal/feed"
)

var _ feed.ContractClient = (*StubContract)(nil)

// TipCall records one SubmitTip invocation.
type TipCall struct {
	PostID *big.Int
	Amount *big.Int
}

// StubContract is an in-memory feed.ContractClient. Reads are served from its
// maps, writes are recorded and confirm immediately unless an error is set.
// Safe for concurrent use.
type StubContract struct {
	mu sync.Mutex

	caller        common.Address
	balances      map[common.Address]*big.Int
	posts         []feed.Post
	profileTokens map[common.Address]*big.Int
	tokenURIs     map[string]string

	// Errors returned by the corresponding methods when set.
	CallerErr     error
	BalanceErr    error
	PostsErr      error
	ProfileErr    error
	TokenURIErr   error
	SubmitPostErr error
	SubmitTipErr  error
	WaitErr       error

	// BeforeAllPosts, when set, runs at the start of every AllPosts call
	// before the posts are read.
	BeforeAllPosts func(call int)

	allPostsCalls  int
	profileCalls   map[common.Address]int
	submittedPosts []string
	submittedTips  []TipCall
	txCounter      int
}

// NewStubContract creates a StubContract whose caller is the given address.
func NewStubContract(caller common.Address) *StubContract {
	return &StubContract{
		caller:        caller,
		balances:      make(map[common.Address]*big.Int),
		profileTokens: make(map[common.Address]*big.Int),
		tokenURIs:     make(map[string]string),
		profileCalls:  make(map[common.Address]int),
	}
}

// SetBalance sets the profile NFT balance of owner.
func (c *StubContract) SetBalance(owner common.Address, n int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.balances[owner] = big.NewInt(n)
}

// SetPosts replaces the posts returned by AllPosts.
func (c *StubContract) SetPosts(posts ...feed.Post) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.posts = posts
}

// SetProfile gives owner a profile NFT whose metadata lives at uri.
func (c *StubContract) SetProfile(owner common.Address, tokenID int64, uri string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.profileTokens[owner] = big.NewInt(tokenID)
	c.tokenURIs[big.NewInt(tokenID).String()] = uri
}

func (c *StubContract) CallerAddress(ctx context.Context) (common.Address, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.CallerErr != nil {
		return common.Address{}, c.CallerErr
	}
	return c.caller, nil
}

func (c *StubContract) BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.BalanceErr != nil {
		return nil, c.BalanceErr
	}
	if b, ok := c.balances[owner]; ok {
		return new(big.Int).Set(b), nil
	}
	return new(big.Int), nil
}

func (c *StubContract) AllPosts(ctx context.Context) ([]feed.Post, error) {
	c.mu.Lock()
	c.allPostsCalls++
	call := c.allPostsCalls
	hook := c.BeforeAllPosts
	c.mu.Unlock()

	if hook != nil {
		hook(call)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.PostsErr != nil {
		return nil, c.PostsErr
	}
	posts := make([]feed.Post, len(c.posts))
	copy(posts, c.posts)
	return posts, nil
}

func (c *StubContract) ProfileTokenID(ctx context.Context, owner common.Address) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.profileCalls[owner]++
	if c.ProfileErr != nil {
		return nil, c.ProfileErr
	}
	id, ok := c.profileTokens[owner]
	if !ok {
		return nil, fmt.Errorf("no profile for %s", owner.Hex())
	}
	return new(big.Int).Set(id), nil
}

func (c *StubContract) TokenURI(ctx context.Context, tokenID *big.Int) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.TokenURIErr != nil {
		return "", c.TokenURIErr
	}
	uri, ok := c.tokenURIs[tokenID.String()]
	if !ok {
		return "", fmt.Errorf("nonexistent token %s", tokenID)
	}
	return uri, nil
}

func (c *StubContract) SubmitPost(ctx context.Context, contentRef string) (feed.PendingTx, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.submittedPosts = append(c.submittedPosts, contentRef)
	if c.SubmitPostErr != nil {
		return nil, c.SubmitPostErr
	}
	return c.newTx(), nil
}

func (c *StubContract) SubmitTip(ctx context.Context, postID *big.Int, amount *big.Int) (feed.PendingTx, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.submittedTips = append(c.submittedTips, TipCall{
		PostID: new(big.Int).Set(postID),
		Amount: new(big.Int).Set(amount),
	})
	if c.SubmitTipErr != nil {
		return nil, c.SubmitTipErr
	}
	return c.newTx(), nil
}

// newTx must be called with mu held.
func (c *StubContract) newTx() *StubPendingTx {
	c.txCounter++
	return &StubPendingTx{TxHash: fmt.Sprintf("0xtx%d", c.txCounter), Err: c.WaitErr}
}

// AllPostsCalls returns how many times AllPosts was called.
func (c *StubContract) AllPostsCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.allPostsCalls
}

// ProfileCalls returns how many times the profile of owner was looked up.
func (c *StubContract) ProfileCalls(owner common.Address) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.profileCalls[owner]
}

// SubmittedPosts returns the content references passed to SubmitPost.
func (c *StubContract) SubmittedPosts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.submittedPosts...)
}

// SubmittedTips returns the SubmitTip invocations.
func (c *StubContract) SubmittedTips() []TipCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]TipCall(nil), c.submittedTips...)
}

// StubPendingTx is a transaction that confirms with Err.
type StubPendingTx struct {
	TxHash string
	Err    error
}

func (tx *StubPendingTx) Hash() string { return tx.TxHash }

func (tx *StubPendingTx) Wait(ctx context.Context) error { return tx.Err }
