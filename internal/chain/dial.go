package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"tipfeed/internal/config"
	"tipfeed/internal/feed"
)

// Dial connects to the node in cfg and binds the feed contract. key may be
// nil for a read-only client. The returned close function releases the
// connection.
func Dial(ctx context.Context, cfg config.ChainConfig, key *ecdsa.PrivateKey, logger feed.Logger) (*Client, func(), error) {
	if cfg.RPCURL == "" {
		return nil, nil, fmt.Errorf("chain.rpc_url is required")
	}
	if !common.IsHexAddress(cfg.ContractAddress) {
		return nil, nil, fmt.Errorf("chain.contract_address is not a valid address: %q", cfg.ContractAddress)
	}
	if cfg.Address != "" && !common.IsHexAddress(cfg.Address) {
		return nil, nil, fmt.Errorf("chain.address is not a valid address: %q", cfg.Address)
	}

	rpc, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to %s: %w", cfg.RPCURL, err)
	}

	chainID, err := rpc.ChainID(ctx)
	if err != nil {
		rpc.Close()
		return nil, nil, fmt.Errorf("reading chain id: %w", err)
	}
	if cfg.ChainID != 0 && chainID.Cmp(big.NewInt(cfg.ChainID)) != 0 {
		rpc.Close()
		return nil, nil, fmt.Errorf("node is on chain %s, config expects %d", chainID, cfg.ChainID)
	}

	client, err := NewClient(rpc, common.HexToAddress(cfg.ContractAddress), Options{
		Key:      key,
		Address:  common.HexToAddress(cfg.Address),
		ChainID:  chainID,
		GasLimit: cfg.GasLimit,
		Logger:   logger,
	})
	if err != nil {
		rpc.Close()
		return nil, nil, err
	}
	return client, rpc.Close, nil
}
