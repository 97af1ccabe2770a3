package keys

import (
	"crypto/ecdsa"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// PlainKeyStore keeps the key hex-encoded in a 0600 file. Meant for local
// development chains.
type PlainKeyStore struct {
	path string
}

var _ Store = (*PlainKeyStore)(nil)

// NewPlainKeyStore creates a PlainKeyStore for the key file at path.
func NewPlainKeyStore(path string) *PlainKeyStore {
	return &PlainKeyStore{path: path}
}

func (s *PlainKeyStore) Generate(string) (common.Address, error) {
	if s.IsConfigured() {
		return common.Address{}, fmt.Errorf("%w at %s", ErrKeyExists, s.path)
	}

	key, err := crypto.GenerateKey()
	if err != nil {
		return common.Address{}, fmt.Errorf("generating key: %w", err)
	}
	if err := ensureKeyDir(s.path); err != nil {
		return common.Address{}, err
	}
	if err := os.WriteFile(s.path, []byte(encodeKey(key)+"\n"), 0600); err != nil {
		return common.Address{}, fmt.Errorf("writing key file: %w", err)
	}

	addr := crypto.PubkeyToAddress(key.PublicKey)
	if err := writeAddress(s.path, addr); err != nil {
		return common.Address{}, err
	}
	return addr, nil
}

func (s *PlainKeyStore) Load(string) (*ecdsa.PrivateKey, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("reading key file: %w", err)
	}
	return decodeKey(data)
}

// Address derives the address from the key file, so hand-written key files
// work without an address file.
func (s *PlainKeyStore) Address() (common.Address, error) {
	key, err := s.Load("")
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(key.PublicKey), nil
}

func (s *PlainKeyStore) IsConfigured() bool {
	return exists(s.path)
}

func (s *PlainKeyStore) NeedsPassphrase() bool { return false }

// NoKeyStore is used in read-only mode.
type NoKeyStore struct{}

var _ Store = NoKeyStore{}

func (NoKeyStore) Generate(string) (common.Address, error) {
	return common.Address{}, fmt.Errorf("key type none cannot hold a key")
}

func (NoKeyStore) Load(string) (*ecdsa.PrivateKey, error) { return nil, nil }

func (NoKeyStore) Address() (common.Address, error) {
	return common.Address{}, fmt.Errorf("no signing key configured")
}

func (NoKeyStore) IsConfigured() bool    { return false }
func (NoKeyStore) NeedsPassphrase() bool { return false }
