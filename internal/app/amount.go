package app

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// etherDecimals is the number of wei digits in one ether.
const etherDecimals = 18

// FormatEther renders a wei amount in ether, e.g. 1e17 -> "0.1".
// A nil amount renders as "0".
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	return decimal.NewFromBigInt(wei, -etherDecimals).String()
}
