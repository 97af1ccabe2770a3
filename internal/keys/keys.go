// Package keys stores the secp256k1 key that signs feed transactions.
package keys

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrKeyExists is returned by Generate when a key is already stored.
var ErrKeyExists = errors.New("signing key already exists")

// Store manages a signing key on disk.
type Store interface {
	// Generate creates and stores a new key, returning its address.
	Generate(passphrase string) (common.Address, error)

	// Load reads the stored key. A Store without a key returns nil, nil.
	Load(passphrase string) (*ecdsa.PrivateKey, error)

	// Address returns the address of the stored key without unlocking it.
	Address() (common.Address, error)

	// IsConfigured reports whether a key is stored.
	IsConfigured() bool

	// NeedsPassphrase reports whether Load and Generate use the passphrase.
	NeedsPassphrase() bool
}

// addressPath is where the plaintext address of the key at keyPath is kept.
func addressPath(keyPath string) string {
	return keyPath + ".address"
}

func writeAddress(keyPath string, addr common.Address) error {
	if err := os.WriteFile(addressPath(keyPath), []byte(addr.Hex()+"\n"), 0644); err != nil {
		return fmt.Errorf("writing address: %w", err)
	}
	return nil
}

func readAddress(keyPath string) (common.Address, error) {
	data, err := os.ReadFile(addressPath(keyPath))
	if err != nil {
		return common.Address{}, fmt.Errorf("reading address: %w", err)
	}
	s := strings.TrimSpace(string(data))
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address in %s", addressPath(keyPath))
	}
	return common.HexToAddress(s), nil
}

func ensureKeyDir(keyPath string) error {
	if err := os.MkdirAll(filepath.Dir(keyPath), 0700); err != nil {
		return fmt.Errorf("creating key directory: %w", err)
	}
	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// encodeKey returns the hex form of key, without 0x prefix.
func encodeKey(key *ecdsa.PrivateKey) string {
	return common.Bytes2Hex(crypto.FromECDSA(key))
}

func decodeKey(data []byte) (*ecdsa.PrivateKey, error) {
	s := strings.TrimPrefix(strings.TrimSpace(string(data)), "0x")
	key, err := crypto.HexToECDSA(s)
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}
	return key, nil
}
