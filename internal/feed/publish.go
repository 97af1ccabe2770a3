package feed

import "context"

// PublishFlow stores a post body on the content store and records its
// reference on chain.
//
//	Idle -> Validating -> Storing -> AwaitingConfirmation -> Done
//
// Failed is reachable from every state after Idle. A stored object is not
// removed when the chain step fails.
type PublishFlow struct {
	store    ContentStore
	contract ContractClient
	logger   Logger
	m        machine
}

// NewPublishFlow creates an idle PublishFlow.
func NewPublishFlow(store ContentStore, contract ContractClient, opts Options) *PublishFlow {
	opts = opts.withDefaults()
	return &PublishFlow{
		store:    store,
		contract: contract,
		logger:   opts.Logger,
		m:        machine{name: string(OperationPublish), metrics: opts.Metrics},
	}
}

// State returns the current state of the flow.
func (f *PublishFlow) State() State {
	return f.m.current()
}

// Publish runs the flow to completion and returns the content reference of
// the stored post. It blocks until the post transaction is confirmed.
func (f *PublishFlow) Publish(ctx context.Context, text string) (string, error) {
	if err := f.m.begin(ctx, StateValidating, text); err != nil {
		return "", err
	}

	if text == "" {
		return "", f.fail(ctx, &ValidationError{Field: "post", Reason: "text is empty"}, "", "")
	}

	doc, err := encodePostDocument(text)
	if err != nil {
		return "", f.fail(ctx, &ValidationError{Field: "post", Reason: err.Error()}, "", "")
	}

	f.m.move(ctx, StateStoring, Transition{})
	ref, err := f.store.Put(ctx, doc)
	if err == nil && ref == "" {
		err = errEmptyRef
	}
	if err != nil {
		return "", f.fail(ctx, &StorageError{Op: "put", Err: err}, "", "")
	}
	f.logger.Debug("post stored", "ref", ref)

	f.m.move(ctx, StateAwaitingConfirmation, Transition{ContentRef: ref})
	tx, err := f.contract.SubmitPost(ctx, ref)
	if err != nil {
		return "", f.fail(ctx, &ChainError{Op: "uploadPost", Err: err}, ref, "")
	}
	f.logger.Info("post submitted", "ref", ref, "tx", tx.Hash())

	if err := tx.Wait(ctx); err != nil {
		return "", f.fail(ctx, &ChainError{Op: "uploadPost", Err: err}, ref, tx.Hash())
	}

	f.m.move(ctx, StateDone, Transition{ContentRef: ref, TxHash: tx.Hash()})
	f.logger.Info("post confirmed", "ref", ref, "tx", tx.Hash())
	return ref, nil
}

func (f *PublishFlow) fail(ctx context.Context, err error, ref, txHash string) error {
	f.logger.Warn("publish failed", "error", err)
	f.m.move(ctx, StateFailed, Transition{ContentRef: ref, TxHash: txHash, Err: err})
	return err
}
