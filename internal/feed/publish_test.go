package feed_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tipfeed/internal/feed"
)

func TestPublishFlow_EmptyTextIsRejected(t *testing.T) {
	f := newFixture()
	flow := feed.NewPublishFlow(f.store, f.contract, f.options())

	_, err := flow.Publish(context.Background(), "")

	var validation *feed.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Empty(t, f.store.Puts(), "nothing stored")
	assert.Empty(t, f.contract.SubmittedPosts(), "nothing submitted")
	assert.Equal(t, feed.StateFailed, flow.State())
}

func TestPublishFlow_WhitespaceIsPublished(t *testing.T) {
	f := newFixture()
	flow := feed.NewPublishFlow(f.store, f.contract, f.options())

	_, err := flow.Publish(context.Background(), "   ")
	require.NoError(t, err)
	assert.Len(t, f.contract.SubmittedPosts(), 1)
}

func TestPublishFlow_Success(t *testing.T) {
	f := newFixture()
	f.store.PutRef = "Qm123"
	flow := feed.NewPublishFlow(f.store, f.contract, f.options())
	assert.Equal(t, feed.StateIdle, flow.State())

	ref, err := flow.Publish(context.Background(), "hello")
	require.NoError(t, err)

	assert.Equal(t, "Qm123", ref)
	assert.Equal(t, feed.StateDone, flow.State())
	assert.Equal(t, []string{"Qm123"}, f.contract.SubmittedPosts())

	puts := f.store.Puts()
	require.Len(t, puts, 1)
	assert.JSONEq(t, `{"post":"hello"}`, string(puts[0]))
	assert.Equal(t, []feed.State{feed.StateDone}, f.metrics.FlowOutcomes("publish"))
}

func TestPublishFlow_StorageFailure(t *testing.T) {
	f := newFixture()
	f.store.PutErr = errors.New("pinning service unavailable")
	flow := feed.NewPublishFlow(f.store, f.contract, f.options())

	_, err := flow.Publish(context.Background(), "hello")

	var storageErr *feed.StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Empty(t, f.contract.SubmittedPosts(), "no chain effect")
	assert.Equal(t, feed.StateFailed, flow.State())

	t.Run("retry is allowed", func(t *testing.T) {
		f.store.PutErr = nil
		_, err := flow.Publish(context.Background(), "hello")
		require.NoError(t, err)
		assert.Equal(t, feed.StateDone, flow.State())
		assert.Len(t, f.contract.SubmittedPosts(), 1)
	})
}

func TestPublishFlow_EmptyReferenceIsStorageFailure(t *testing.T) {
	f := newFixture()
	flow := feed.NewPublishFlow(emptyRefStore{f.store}, f.contract, f.options())

	_, err := flow.Publish(context.Background(), "hello")

	var storageErr *feed.StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Empty(t, f.contract.SubmittedPosts())
}

type emptyRefStore struct{ feed.ContentStore }

func (emptyRefStore) Put(context.Context, []byte) (string, error) { return "", nil }

func TestPublishFlow_ChainFailure(t *testing.T) {
	tests := []struct {
		name   string
		submit error
		wait   error
	}{
		{name: "submission rejected", submit: errors.New("insufficient funds")},
		{name: "transaction reverted", wait: errors.New("transaction reverted")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.store.PutRef = "Qm123"
			f.contract.SubmitPostErr = tt.submit
			f.contract.WaitErr = tt.wait
			flow := feed.NewPublishFlow(f.store, f.contract, f.options())

			_, err := flow.Publish(context.Background(), "hello")

			var chainErr *feed.ChainError
			require.ErrorAs(t, err, &chainErr)
			assert.Equal(t, "uploadPost", chainErr.Op)
			assert.Equal(t, feed.StateFailed, flow.State())
			assert.Len(t, f.store.Puts(), 1, "stored object is kept")
			assert.Equal(t, []feed.State{feed.StateFailed}, f.metrics.FlowOutcomes("publish"))
		})
	}
}

// gatedStore blocks Put until released.
type gatedStore struct {
	feed.ContentStore
	entered chan struct{}
	release chan struct{}
}

func (s gatedStore) Put(ctx context.Context, data []byte) (string, error) {
	close(s.entered)
	<-s.release
	return s.ContentStore.Put(ctx, data)
}

func TestPublishFlow_BusyWhileInFlight(t *testing.T) {
	f := newFixture()
	store := gatedStore{ContentStore: f.store, entered: make(chan struct{}), release: make(chan struct{})}
	flow := feed.NewPublishFlow(store, f.contract, f.options())

	done := make(chan error, 1)
	go func() {
		_, err := flow.Publish(context.Background(), "first")
		done <- err
	}()
	<-store.entered
	assert.Equal(t, feed.StateStoring, flow.State())

	_, err := flow.Publish(context.Background(), "second")
	assert.ErrorIs(t, err, feed.ErrFlowBusy)

	close(store.release)
	require.NoError(t, <-done)
	assert.Len(t, f.contract.SubmittedPosts(), 1)
}
