package feed

import (
	"context"
	"math/big"
)

// TipFlow pays the fixed tip amount to the author of a post.
//
//	Idle -> AwaitingConfirmation -> Done
//
// Failed is reachable from AwaitingConfirmation. The payment either lands or
// it does not; there is no partial state to clean up.
type TipFlow struct {
	contract ContractClient
	logger   Logger
	m        machine
}

// NewTipFlow creates an idle TipFlow.
func NewTipFlow(contract ContractClient, opts Options) *TipFlow {
	opts = opts.withDefaults()
	return &TipFlow{
		contract: contract,
		logger:   opts.Logger,
		m:        machine{name: string(OperationTip), metrics: opts.Metrics},
	}
}

// State returns the current state of the flow.
func (f *TipFlow) State() State {
	return f.m.current()
}

// Tip submits one payment of TipAmount referencing postID and blocks until it
// is confirmed.
func (f *TipFlow) Tip(ctx context.Context, postID *big.Int) error {
	if postID == nil || postID.Sign() < 0 {
		return &ValidationError{Field: "post id", Reason: "must be a non-negative integer"}
	}

	if err := f.m.begin(ctx, StateAwaitingConfirmation, postID.String()); err != nil {
		return err
	}

	tx, err := f.contract.SubmitTip(ctx, postID, TipAmount())
	if err != nil {
		return f.fail(ctx, &ChainError{Op: "tipPostOwner", Err: err}, "")
	}
	f.logger.Info("tip submitted", "post", postID.String(), "tx", tx.Hash())

	if err := tx.Wait(ctx); err != nil {
		return f.fail(ctx, &ChainError{Op: "tipPostOwner", Err: err}, tx.Hash())
	}

	f.m.move(ctx, StateDone, Transition{TxHash: tx.Hash()})
	f.logger.Info("tip confirmed", "post", postID.String(), "tx", tx.Hash())
	return nil
}

func (f *TipFlow) fail(ctx context.Context, err error, txHash string) error {
	f.logger.Warn("tip failed", "error", err)
	f.m.move(ctx, StateFailed, Transition{TxHash: txHash, Err: err})
	return err
}
