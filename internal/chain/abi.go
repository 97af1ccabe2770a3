package chain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// FeedABI is the subset of the feed contract's interface the client uses.
// The contract is an ERC-721 whose tokens are author profiles.
const FeedABI = `[
	{"type":"function","name":"getAllPosts","stateMutability":"view","inputs":[],
	 "outputs":[{"name":"","type":"tuple[]","internalType":"struct Feed.Post[]","components":[
		{"name":"id","type":"uint256","internalType":"uint256"},
		{"name":"hash","type":"string","internalType":"string"},
		{"name":"tipAmount","type":"uint256","internalType":"uint256"},
		{"name":"author","type":"address","internalType":"address payable"}]}]},
	{"type":"function","name":"balanceOf","stateMutability":"view",
	 "inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"profiles","stateMutability":"view",
	 "inputs":[{"name":"","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"tokenURI","stateMutability":"view",
	 "inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"uploadPost","stateMutability":"nonpayable",
	 "inputs":[{"name":"_postHash","type":"string"}],"outputs":[]},
	{"type":"function","name":"tipPostOwner","stateMutability":"payable",
	 "inputs":[{"name":"_id","type":"uint256"}],"outputs":[]}
]`

// rawPost mirrors the contract's Post struct. Field names follow the ABI
// component names so abi.ConvertType can map them.
type rawPost struct {
	Id        *big.Int
	Hash      string
	TipAmount *big.Int
	Author    common.Address
}

// ParsedABI parses FeedABI.
func ParsedABI() (abi.ABI, error) {
	parsed, err := abi.JSON(strings.NewReader(FeedABI))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("parsing feed ABI: %w", err)
	}
	return parsed, nil
}
