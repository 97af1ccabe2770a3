package feed_test

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"tipfeed/internal/feed"
	"tipfeed/internal/testutil"
)

var (
	viewer = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	alice  = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	bob    = common.HexToAddress("0x00000000000000000000000000000000000000c3")
)

func post(id, tips int64, author common.Address, ref string) feed.Post {
	return feed.Post{
		ID:         big.NewInt(id),
		Author:     author,
		ContentRef: ref,
		TipTotal:   big.NewInt(tips),
	}
}

func postDoc(text string) []byte {
	return []byte(fmt.Sprintf(`{"post":%q}`, text))
}

// fixture is a viewer holding one profile NFT and two authors with profiles.
type fixture struct {
	contract *testutil.StubContract
	store    *testutil.StubStore
	metrics  *testutil.RecordingMetrics
}

func newFixture() *fixture {
	contract := testutil.NewStubContract(viewer)
	contract.SetBalance(viewer, 1)
	contract.SetProfile(alice, 1, "ipfs://meta-alice")
	contract.SetProfile(bob, 2, "ipfs://meta-bob")

	store := testutil.NewStubStore()
	store.Add("ipfs://meta-alice", []byte(`{"username":"alice","avatar":"ipfs://avatar-alice"}`))
	store.Add("ipfs://meta-bob", []byte(`{"name":"Bob #2","username":"bob","image":"ipfs://avatar-bob"}`))

	return &fixture{
		contract: contract,
		store:    store,
		metrics:  testutil.NewRecordingMetrics(),
	}
}

// posts registers posts on the contract and its document on the store.
func (f *fixture) posts(posts ...feed.Post) {
	f.contract.SetPosts(posts...)
	for _, p := range posts {
		if p.ContentRef != "" {
			f.store.Add(p.ContentRef, postDoc("post "+p.ID.String()))
		}
	}
}

func (f *fixture) options() feed.Options {
	return feed.Options{
		Metrics: f.metrics,
		Clock:   testutil.FixedClock(),
		IDs:     testutil.NewStubIDGenerator(),
	}
}

func ids(items []feed.FeedItem) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.ID.String()
	}
	return out
}
