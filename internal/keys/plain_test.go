package keys

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
)

func TestPlainKeyStore(t *testing.T) {
	t.Parallel()
	s := NewPlainKeyStore(filepath.Join(t.TempDir(), "dev.key"))

	if s.NeedsPassphrase() {
		t.Error("NeedsPassphrase() = true, want false")
	}

	addr, err := s.Generate("")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	key, err := s.Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := crypto.PubkeyToAddress(key.PublicKey); got != addr {
		t.Errorf("loaded key address = %s, want %s", got.Hex(), addr.Hex())
	}

	if _, err := s.Generate(""); !errors.Is(err, ErrKeyExists) {
		t.Errorf("second Generate() error = %v, want ErrKeyExists", err)
	}
}

func TestPlainKeyStore_HandWrittenKey(t *testing.T) {
	t.Parallel()

	// First account of the default Hardhat/Anvil mnemonic.
	const hex = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	const want = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"

	path := filepath.Join(t.TempDir(), "anvil.key")
	if err := os.WriteFile(path, []byte(hex+"\n"), 0600); err != nil {
		t.Fatalf("writing key: %v", err)
	}

	addr, err := NewPlainKeyStore(path).Address()
	if err != nil {
		t.Fatalf("Address() error = %v", err)
	}
	if addr.Hex() != want {
		t.Errorf("Address() = %s, want %s", addr.Hex(), want)
	}
}

func TestPlainKeyStore_InvalidKey(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.key")
	if err := os.WriteFile(path, []byte("not-hex\n"), 0600); err != nil {
		t.Fatalf("writing key: %v", err)
	}

	if _, err := NewPlainKeyStore(path).Load(""); err == nil {
		t.Error("Load() of invalid key succeeded, want error")
	}
}

func TestNoKeyStore(t *testing.T) {
	var s NoKeyStore

	key, err := s.Load("")
	if err != nil || key != nil {
		t.Errorf("Load() = %v, %v, want nil, nil", key, err)
	}
	if s.IsConfigured() {
		t.Error("IsConfigured() = true, want false")
	}
	if _, err := s.Generate(""); err == nil {
		t.Error("Generate() succeeded, want error")
	}
}
