package feed

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// tipAmountWei is 0.1 ether, the fixed amount every tip transfers.
const tipAmountWei = 100_000_000_000_000_000

// TipAmount returns the fixed tip amount in wei. A fresh value is returned on
// every call so callers may mutate it freely.
func TipAmount() *big.Int {
	return big.NewInt(tipAmountWei)
}

// Post is a post record as stored by the contract.
type Post struct {
	ID         *big.Int
	Author     common.Address
	ContentRef string   // content identifier of the post document
	TipTotal   *big.Int // accumulated tips in wei
}

// Profile is the display metadata attached to an author's profile NFT.
type Profile struct {
	Username  string
	AvatarURI string
}

// Author identifies the writer of a feed item. Profile is absent when the
// profile NFT or its metadata could not be resolved.
type Author struct {
	Address common.Address
	Profile Optional[Profile]
}

// Username returns the profile username, or "" when the profile is absent.
func (a Author) Username() string {
	return a.Profile.OrElse(Profile{}).Username
}

// AvatarURI returns the profile avatar, or "" when the profile is absent.
func (a Author) AvatarURI() string {
	return a.Profile.OrElse(Profile{}).AvatarURI
}

// FeedItem is a display-ready post: the on-chain record joined with its
// off-chain content and the author's profile.
type FeedItem struct {
	ID       *big.Int
	Content  Optional[string]
	TipTotal *big.Int
	Author   Author
}

// SessionIdentity describes the viewer for the current load.
type SessionIdentity struct {
	Address        common.Address
	OwnsProfileNFT bool
}
