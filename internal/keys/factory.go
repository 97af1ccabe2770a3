package keys

import (
	"fmt"

	"tipfeed/internal/config"
)

// NewStoreFromConfig creates a key Store based on the configuration type.
func NewStoreFromConfig(cfg config.KeyConfig) (Store, error) {
	switch cfg.Type {
	case "age", "":
		if cfg.Path == "" {
			return nil, fmt.Errorf("path required for age key")
		}
		return NewAgeKeyStore(cfg.Path), nil
	case "plain":
		if cfg.Path == "" {
			return nil, fmt.Errorf("path required for plain key")
		}
		return NewPlainKeyStore(cfg.Path), nil
	case "none":
		return NoKeyStore{}, nil
	default:
		return nil, fmt.Errorf("unknown key type: %q", cfg.Type)
	}
}
