// Package contentstore stores and fetches immutable documents by content
// identifier.
package contentstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"regexp"
)

// ErrNotFound is returned when no object exists for a reference.
var ErrNotFound = errors.New("object not found")

// maxDocumentSize bounds every document read from a backend or URL.
const maxDocumentSize = 4 << 20

// Backend is a content-addressed object store. Get takes a bare reference,
// never a URI.
type Backend interface {
	Put(ctx context.Context, data []byte) (string, error)
	Get(ctx context.Context, ref string) ([]byte, error)
}

// sha256Ref returns the reference the local backends assign to data.
func sha256Ref(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

var sha256RefPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// validSHA256Ref reports whether ref can name an object of a local backend.
// Anything else, including path separators, is rejected before touching disk.
func validSHA256Ref(ref string) bool {
	return sha256RefPattern.MatchString(ref)
}
