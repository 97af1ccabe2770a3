package app

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/term"
)

// PassphraseEnv names the variable that supplies the key passphrase
// non-interactively.
const PassphraseEnv = "TIPFEED_PASSPHRASE"

// PassphraseFunc returns the passphrase for the signing key.
type PassphraseFunc func(prompt string) (string, error)

// ErrNoPassphrase is returned when no passphrase is set and none can be
// prompted for.
var ErrNoPassphrase = errors.New(PassphraseEnv + " is not set and stdin is not a terminal")

// PromptPassphrase reads the passphrase from TIPFEED_PASSPHRASE, or prompts on
// stderr and reads it from the terminal without echo.
func PromptPassphrase(prompt string) (string, error) {
	if p := os.Getenv(PassphraseEnv); p != "" {
		return p, nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", ErrNoPassphrase
	}

	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(b), nil
}

// NewPassphrase asks for a passphrase twice and fails unless both entries
// match. An environment-supplied passphrase is used as is.
func NewPassphrase(ask PassphraseFunc) (string, error) {
	if p := os.Getenv(PassphraseEnv); p != "" {
		return p, nil
	}

	first, err := ask("New passphrase: ")
	if err != nil {
		return "", err
	}
	second, err := ask("Repeat passphrase: ")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", errors.New("passphrases do not match")
	}
	return first, nil
}
