package feed

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// memStore and confirmingContract are minimal collaborators for tests that
// need unexported access and therefore cannot use the testutil stubs.

type memStore struct{}

func (memStore) Put(context.Context, []byte) (string, error) { return "QmStub", nil }

func (memStore) Get(context.Context, string) ([]byte, error) { return []byte(`{"post":""}`), nil }

type confirmingContract struct{}

func (confirmingContract) CallerAddress(context.Context) (common.Address, error) {
	return common.Address{}, nil
}

func (confirmingContract) BalanceOf(context.Context, common.Address) (*big.Int, error) {
	return new(big.Int), nil
}

func (confirmingContract) AllPosts(context.Context) ([]Post, error) { return nil, nil }

func (confirmingContract) ProfileTokenID(context.Context, common.Address) (*big.Int, error) {
	return new(big.Int), nil
}

func (confirmingContract) TokenURI(context.Context, *big.Int) (string, error) { return "", nil }

func (confirmingContract) SubmitPost(context.Context, string) (PendingTx, error) {
	return confirmedTx{}, nil
}

func (confirmingContract) SubmitTip(context.Context, *big.Int, *big.Int) (PendingTx, error) {
	return confirmedTx{}, nil
}

type confirmedTx struct{}

func (confirmedTx) Hash() string { return "0xconfirmed" }

func (confirmedTx) Wait(context.Context) error { return nil }
