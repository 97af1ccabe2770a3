package app

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"tipfeed/internal/config"
	"tipfeed/internal/keys"
)

// GenerateKey creates the signing key described by cfg. Encrypted keys ask
// for a new passphrase twice.
func GenerateKey(cfg config.KeyConfig, ask PassphraseFunc) (common.Address, error) {
	ks, err := keys.NewStoreFromConfig(cfg)
	if err != nil {
		return common.Address{}, fmt.Errorf("creating key store: %w", err)
	}

	passphrase := ""
	if ks.NeedsPassphrase() {
		if ask == nil {
			ask = PromptPassphrase
		}
		if passphrase, err = NewPassphrase(ask); err != nil {
			return common.Address{}, err
		}
	}

	addr, err := ks.Generate(passphrase)
	if err != nil {
		return common.Address{}, fmt.Errorf("generating key: %w", err)
	}
	return addr, nil
}
