package keys

import (
	"bytes"
	"crypto/ecdsa"
	"fmt"
	"io"
	"os"

	"filippo.io/age"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// AgeKeyStore keeps the key hex-encoded and encrypted with the user's
// passphrase using age's scrypt-based passphrase encryption. The address is
// stored next to it in plaintext.
type AgeKeyStore struct {
	path string
}

var _ Store = (*AgeKeyStore)(nil)

// NewAgeKeyStore creates an AgeKeyStore for the key file at path.
func NewAgeKeyStore(path string) *AgeKeyStore {
	return &AgeKeyStore{path: path}
}

// Generate creates a new key, encrypts it with passphrase and writes it.
func (s *AgeKeyStore) Generate(passphrase string) (common.Address, error) {
	if passphrase == "" {
		return common.Address{}, fmt.Errorf("passphrase must not be empty")
	}
	if s.IsConfigured() {
		return common.Address{}, fmt.Errorf("%w at %s", ErrKeyExists, s.path)
	}

	key, err := crypto.GenerateKey()
	if err != nil {
		return common.Address{}, fmt.Errorf("generating key: %w", err)
	}

	if err := s.write(key, passphrase); err != nil {
		return common.Address{}, err
	}

	addr := crypto.PubkeyToAddress(key.PublicKey)
	if err := writeAddress(s.path, addr); err != nil {
		return common.Address{}, err
	}
	return addr, nil
}

func (s *AgeKeyStore) write(key *ecdsa.PrivateKey, passphrase string) error {
	if err := ensureKeyDir(s.path); err != nil {
		return err
	}

	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return fmt.Errorf("creating key file: %w", err)
	}
	defer f.Close()

	recipient, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return fmt.Errorf("creating scrypt recipient: %w", err)
	}

	w, err := age.Encrypt(f, recipient)
	if err != nil {
		return fmt.Errorf("creating encrypted writer: %w", err)
	}
	if _, err := io.WriteString(w, encodeKey(key)+"\n"); err != nil {
		return fmt.Errorf("writing encrypted key: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalizing encrypted key: %w", err)
	}
	return nil
}

// Load decrypts the key with passphrase.
func (s *AgeKeyStore) Load(passphrase string) (*ecdsa.PrivateKey, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("reading key file: %w", err)
	}

	identity, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return nil, fmt.Errorf("creating scrypt identity: %w", err)
	}

	r, err := age.Decrypt(bytes.NewReader(data), identity)
	if err != nil {
		return nil, fmt.Errorf("decrypting key: %w", err)
	}

	plain, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading decrypted key: %w", err)
	}
	return decodeKey(plain)
}

func (s *AgeKeyStore) Address() (common.Address, error) {
	return readAddress(s.path)
}

// IsConfigured returns true if the key file exists.
func (s *AgeKeyStore) IsConfigured() bool {
	return exists(s.path)
}

func (s *AgeKeyStore) NeedsPassphrase() bool { return true }
