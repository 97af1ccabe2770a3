package feed_test

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tipfeed/internal/feed"
	"tipfeed/internal/journal"
	"tipfeed/internal/testutil"
)

type controllerFixture struct {
	*fixture
	journal  *journal.SQLiteJournal
	notifier *testutil.RecordingNotifier
	ctrl     *feed.Controller
}

func newControllerFixture(t *testing.T) *controllerFixture {
	t.Helper()

	f := newFixture()
	f.posts(post(1, 5, alice, "QmA"), post(2, 10, bob, "QmB"))

	cf := &controllerFixture{
		fixture:  f,
		journal:  testutil.NewTestJournal(t),
		notifier: &testutil.RecordingNotifier{},
	}
	opts := f.options()
	opts.Journal = cf.journal
	opts.Notifier = cf.notifier
	opts.Clock = testutil.NewSteppingClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), time.Second)
	cf.ctrl = feed.NewController(f.contract, f.store, opts)
	return cf
}

func TestController_Load(t *testing.T) {
	cf := newControllerFixture(t)
	ctx := context.Background()

	before := cf.ctrl.State()
	assert.True(t, before.Loading)
	assert.Empty(t, before.Items)

	require.NoError(t, cf.ctrl.Load(ctx))

	state := cf.ctrl.State()
	assert.False(t, state.Loading)
	assert.NoError(t, state.Err)
	assert.Equal(t, []string{"2", "1"}, ids(state.Items))
	assert.Equal(t, viewer, state.Identity.Address)
	assert.True(t, state.Identity.OwnsProfileNFT)

	t.Run("second load is a no-op", func(t *testing.T) {
		require.NoError(t, cf.ctrl.Load(ctx))
		assert.Equal(t, 1, cf.contract.AllPostsCalls())
	})

	t.Run("snapshots are copies", func(t *testing.T) {
		snap := cf.ctrl.State()
		snap.Items[0] = feed.FeedItem{}
		assert.Equal(t, []string{"2", "1"}, ids(cf.ctrl.State().Items))
	})
}

func TestController_FailedLoadStaysLoading(t *testing.T) {
	cf := newControllerFixture(t)
	cf.contract.BalanceErr = errors.New("rpc down")

	err := cf.ctrl.Load(context.Background())

	var assemblyErr *feed.AssemblyError
	require.ErrorAs(t, err, &assemblyErr)
	state := cf.ctrl.State()
	assert.True(t, state.Loading)
	assert.ErrorAs(t, state.Err, &assemblyErr)
}

func TestController_FailedReloadKeepsFeed(t *testing.T) {
	cf := newControllerFixture(t)
	ctx := context.Background()
	require.NoError(t, cf.ctrl.Load(ctx))

	cf.contract.PostsErr = errors.New("execution reverted")
	err := cf.ctrl.Reload(ctx)
	require.Error(t, err)

	state := cf.ctrl.State()
	assert.Equal(t, []string{"2", "1"}, ids(state.Items))
	assert.False(t, state.Loading)
	assert.Error(t, state.Err)

	cf.contract.PostsErr = nil
	require.NoError(t, cf.ctrl.Reload(ctx))
	assert.NoError(t, cf.ctrl.State().Err)
}

func TestController_DiscardsStaleAssembly(t *testing.T) {
	cf := newControllerFixture(t)
	ctx := context.Background()

	entered := make(chan struct{})
	release := make(chan struct{})
	cf.contract.BeforeAllPosts = func(call int) {
		if call == 1 {
			close(entered)
			<-release
		}
	}

	slow := make(chan error, 1)
	go func() { slow <- cf.ctrl.Reload(ctx) }()
	<-entered

	cf.posts(post(3, 1, alice, "QmC"))
	require.NoError(t, cf.ctrl.Reload(ctx))
	assert.Equal(t, []string{"3"}, ids(cf.ctrl.State().Items))

	// The first assembly now reads an older view of the contract.
	cf.posts(post(1, 5, alice, "QmA"))
	close(release)
	require.NoError(t, <-slow)

	assert.Equal(t, []string{"3"}, ids(cf.ctrl.State().Items), "older result is discarded")
}

func TestController_WritesBeforeLoad(t *testing.T) {
	cf := newControllerFixture(t)
	ctx := context.Background()

	_, err := cf.ctrl.Publish(ctx, "hello")
	assert.ErrorIs(t, err, feed.ErrNotLoaded)

	err = cf.ctrl.Tip(ctx, feed.FeedItem{ID: big.NewInt(1)})
	assert.ErrorIs(t, err, feed.ErrNotLoaded)

	assert.Empty(t, cf.store.Puts())
	assert.Empty(t, cf.contract.SubmittedTips())
}

func TestController_Publish(t *testing.T) {
	cf := newControllerFixture(t)
	ctx := context.Background()
	require.NoError(t, cf.ctrl.Load(ctx))
	cf.store.PutRef = "Qm123"

	ref, err := cf.ctrl.Publish(ctx, "hello")
	require.NoError(t, err)

	assert.Equal(t, "Qm123", ref)
	assert.Equal(t, []string{"Qm123"}, cf.contract.SubmittedPosts())
	assert.Equal(t, 2, cf.contract.AllPostsCalls(), "reloaded exactly once")
	assert.Equal(t, feed.StateDone, cf.ctrl.PublishState())

	ops, err := cf.journal.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	op := ops[0]
	assert.Equal(t, "op-1", op.ID)
	assert.Equal(t, feed.OperationPublish, op.Kind)
	assert.Equal(t, "hello", op.Subject)
	assert.Equal(t, feed.StateDone, op.State)
	assert.Equal(t, "Qm123", op.ContentRef)
	assert.Equal(t, "0xtx1", op.TxHash)
	assert.True(t, op.Finished())
	assert.True(t, op.FinishedAt.After(op.StartedAt))

	events := cf.notifier.Events()
	require.Len(t, events, 1)
	assert.Equal(t, feed.EventPublished, events[0].Kind)
	assert.Equal(t, "op-1", events[0].OperationID)
	assert.Equal(t, viewer.Hex(), events[0].Actor)
	assert.Equal(t, "Qm123", events[0].ContentRef)
	assert.Equal(t, "0xtx1", events[0].TxHash)
}

func TestController_FailedPublishDoesNotReload(t *testing.T) {
	cf := newControllerFixture(t)
	ctx := context.Background()
	require.NoError(t, cf.ctrl.Load(ctx))
	cf.contract.WaitErr = errors.New("transaction reverted")

	_, err := cf.ctrl.Publish(ctx, "hello")

	var chainErr *feed.ChainError
	require.ErrorAs(t, err, &chainErr)
	assert.Equal(t, 1, cf.contract.AllPostsCalls(), "no reload after failure")
	assert.Empty(t, cf.notifier.Events())

	ops, err := cf.journal.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, feed.StateFailed, ops[0].State)
	assert.Equal(t, "0xtx1", ops[0].TxHash)
	assert.Contains(t, ops[0].Error, "transaction reverted")
}

func TestController_Tip(t *testing.T) {
	cf := newControllerFixture(t)
	ctx := context.Background()
	require.NoError(t, cf.ctrl.Load(ctx))

	item, ok := cf.ctrl.State().Find(big.NewInt(1))
	require.True(t, ok)

	require.NoError(t, cf.ctrl.Tip(ctx, item))

	tips := cf.contract.SubmittedTips()
	require.Len(t, tips, 1)
	assert.Equal(t, int64(1), tips[0].PostID.Int64())
	assert.Equal(t, 2, cf.contract.AllPostsCalls(), "reloaded exactly once")

	events := cf.notifier.Events()
	require.Len(t, events, 1)
	assert.Equal(t, feed.EventTipped, events[0].Kind)
	assert.Equal(t, "1", events[0].PostID)

	ops, err := cf.journal.RecentByKind(ctx, feed.OperationTip, 10)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, feed.StateDone, ops[0].State)
}

func TestController_FailedTipDoesNotReload(t *testing.T) {
	cf := newControllerFixture(t)
	ctx := context.Background()
	require.NoError(t, cf.ctrl.Load(ctx))
	cf.contract.SubmitTipErr = errors.New("insufficient funds")

	err := cf.ctrl.Tip(ctx, feed.FeedItem{ID: big.NewInt(2)})

	var chainErr *feed.ChainError
	require.ErrorAs(t, err, &chainErr)
	assert.Equal(t, feed.StateFailed, cf.ctrl.TipState())
	assert.Equal(t, 1, cf.contract.AllPostsCalls())
	assert.Empty(t, cf.notifier.Events())
}

type failingJournal struct{}

func (failingJournal) Record(context.Context, *feed.Operation) error {
	return errors.New("disk full")
}

func (failingJournal) Recent(context.Context, int) ([]*feed.Operation, error) {
	return nil, errors.New("disk full")
}

func TestController_SideChannelFailuresAreIgnored(t *testing.T) {
	f := newFixture()
	f.posts(post(1, 5, alice, "QmA"))
	opts := f.options()
	opts.Journal = failingJournal{}
	opts.Notifier = &testutil.RecordingNotifier{Err: errors.New("no servers available")}
	ctrl := feed.NewController(f.contract, f.store, opts)
	ctx := context.Background()
	require.NoError(t, ctrl.Load(ctx))

	_, err := ctrl.Publish(ctx, "hello")
	require.NoError(t, err)
	require.NoError(t, ctrl.Tip(ctx, feed.FeedItem{ID: big.NewInt(1)}))
	assert.Equal(t, 3, f.contract.AllPostsCalls())
}

func TestController_OperationsGetFreshIDs(t *testing.T) {
	cf := newControllerFixture(t)
	ctx := context.Background()
	require.NoError(t, cf.ctrl.Load(ctx))

	_, err := cf.ctrl.Publish(ctx, "one")
	require.NoError(t, err)
	_, err = cf.ctrl.Publish(ctx, "two")
	require.NoError(t, err)

	ops, err := cf.journal.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, ops, 2)
	assert.ElementsMatch(t, []string{"op-1", "op-2"}, []string{ops[0].ID, ops[1].ID})
}
