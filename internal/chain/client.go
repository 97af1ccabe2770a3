// Package chain implements feed.ContractClient over an EVM JSON-RPC node.
package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"tipfeed/internal/feed"
)

var _ feed.ContractClient = (*Client)(nil)

// ErrReadOnly is returned by write methods when no signing key is configured.
var ErrReadOnly = errors.New("no signing key configured (read-only mode)")

// Backend is the node surface the client needs. *ethclient.Client satisfies it.
type Backend interface {
	bind.ContractBackend
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

// Options configures a Client.
type Options struct {
	// Key signs transactions. Without it the client is read-only and
	// Address is used as the viewer identity.
	Key      *ecdsa.PrivateKey
	Address  common.Address
	ChainID  *big.Int
	GasLimit uint64 // zero lets the node estimate
	Logger   feed.Logger
}

// Client is a typed wrapper over the feed contract.
type Client struct {
	backend  Backend
	contract *bind.BoundContract
	abi      abi.ABI
	caller   common.Address
	signer   *bind.TransactOpts // nil in read-only mode
	gasLimit uint64
	logger   feed.Logger
}

// NewClient binds the feed contract at address on backend.
func NewClient(backend Backend, address common.Address, opts Options) (*Client, error) {
	parsed, err := ParsedABI()
	if err != nil {
		return nil, err
	}

	c := &Client{
		backend:  backend,
		contract: bind.NewBoundContract(address, parsed, backend, backend, backend),
		abi:      parsed,
		caller:   opts.Address,
		gasLimit: opts.GasLimit,
		logger:   opts.Logger,
	}
	if c.logger == nil {
		c.logger = feed.NopLogger{}
	}

	if opts.Key != nil {
		if opts.ChainID == nil {
			return nil, fmt.Errorf("chain id required to sign transactions")
		}
		signer, err := bind.NewKeyedTransactorWithChainID(opts.Key, opts.ChainID)
		if err != nil {
			return nil, fmt.Errorf("creating transactor: %w", err)
		}
		c.signer = signer
		c.caller = crypto.PubkeyToAddress(opts.Key.PublicKey)
	}
	return c, nil
}

// ReadOnly reports whether the client has no signing key.
func (c *Client) ReadOnly() bool {
	return c.signer == nil
}

func (c *Client) CallerAddress(ctx context.Context) (common.Address, error) {
	if c.caller == (common.Address{}) {
		return common.Address{}, errors.New("no caller address: configure a signing key or chain.address")
	}
	return c.caller, nil
}

func (c *Client) BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error) {
	return c.callUint(ctx, "balanceOf", owner)
}

func (c *Client) AllPosts(ctx context.Context) ([]feed.Post, error) {
	var out []any
	if err := c.contract.Call(c.callOpts(ctx), &out, "getAllPosts"); err != nil {
		return nil, fmt.Errorf("calling getAllPosts: %w", err)
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("getAllPosts returned %d values, want 1", len(out))
	}

	raw := *abi.ConvertType(out[0], new([]rawPost)).(*[]rawPost)
	posts := make([]feed.Post, len(raw))
	for i, p := range raw {
		posts[i] = feed.Post{
			ID:         p.Id,
			Author:     p.Author,
			ContentRef: p.Hash,
			TipTotal:   p.TipAmount,
		}
	}
	return posts, nil
}

func (c *Client) ProfileTokenID(ctx context.Context, owner common.Address) (*big.Int, error) {
	return c.callUint(ctx, "profiles", owner)
}

func (c *Client) TokenURI(ctx context.Context, tokenID *big.Int) (string, error) {
	var out []any
	if err := c.contract.Call(c.callOpts(ctx), &out, "tokenURI", tokenID); err != nil {
		return "", fmt.Errorf("calling tokenURI: %w", err)
	}
	return *abi.ConvertType(out[0], new(string)).(*string), nil
}

func (c *Client) SubmitPost(ctx context.Context, contentRef string) (feed.PendingTx, error) {
	return c.transact(ctx, nil, "uploadPost", contentRef)
}

func (c *Client) SubmitTip(ctx context.Context, postID *big.Int, amount *big.Int) (feed.PendingTx, error) {
	return c.transact(ctx, amount, "tipPostOwner", postID)
}

// WalletBalance returns the native balance of the caller in wei.
func (c *Client) WalletBalance(ctx context.Context) (*big.Int, error) {
	caller, err := c.CallerAddress(ctx)
	if err != nil {
		return nil, err
	}
	balance, err := c.backend.BalanceAt(ctx, caller, nil)
	if err != nil {
		return nil, fmt.Errorf("reading wallet balance: %w", err)
	}
	return balance, nil
}

func (c *Client) callOpts(ctx context.Context) *bind.CallOpts {
	return &bind.CallOpts{Context: ctx, From: c.caller}
}

func (c *Client) callUint(ctx context.Context, method string, args ...any) (*big.Int, error) {
	var out []any
	if err := c.contract.Call(c.callOpts(ctx), &out, method, args...); err != nil {
		return nil, fmt.Errorf("calling %s: %w", method, err)
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

func (c *Client) transact(ctx context.Context, value *big.Int, method string, args ...any) (*pendingTx, error) {
	if c.signer == nil {
		return nil, ErrReadOnly
	}

	opts := *c.signer
	opts.Context = ctx
	opts.Value = value
	opts.GasLimit = c.gasLimit

	tx, err := c.contract.Transact(&opts, method, args...)
	if err != nil {
		return nil, fmt.Errorf("sending %s: %w", method, err)
	}
	c.logger.Debug("transaction sent", "method", method, "tx", tx.Hash().Hex(), "nonce", tx.Nonce())
	return &pendingTx{backend: c.backend, tx: tx}, nil
}

// pendingTx waits for a submitted transaction to be mined.
type pendingTx struct {
	backend bind.DeployBackend
	tx      *types.Transaction
}

func (p *pendingTx) Hash() string {
	return p.tx.Hash().Hex()
}

// Wait blocks until the transaction is mined and fails unless it succeeded.
func (p *pendingTx) Wait(ctx context.Context) error {
	receipt, err := bind.WaitMined(ctx, p.backend, p.tx)
	if err != nil {
		return fmt.Errorf("waiting for %s: %w", p.Hash(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("transaction %s reverted in block %s", p.Hash(), receipt.BlockNumber)
	}
	return nil
}
