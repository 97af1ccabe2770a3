package contentstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// FileSystemStore is a Backend that keeps each document in its own file:
//
//	<root>/
//	  objects/
//	    <sha256>     (document, named by its SHA-256)
type FileSystemStore struct {
	root       string
	objectsDir string
}

var _ Backend = (*FileSystemStore)(nil)

// NewFileSystemStore creates a store rooted at the given path, creating the
// directory structure if needed.
func NewFileSystemStore(root string) (*FileSystemStore, error) {
	objectsDir := filepath.Join(root, "objects")
	if err := os.MkdirAll(objectsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create objects directory: %w", err)
	}
	return &FileSystemStore{root: root, objectsDir: objectsDir}, nil
}

// Put stores data under its SHA-256.
// The operation is idempotent: storing the same document twice is safe.
func (s *FileSystemStore) Put(ctx context.Context, data []byte) (string, error) {
	ref := sha256Ref(data)
	dest := filepath.Join(s.objectsDir, ref)

	if _, err := os.Stat(dest); err == nil {
		return ref, nil
	}
	if err := writeFileAtomic(dest, data); err != nil {
		return "", err
	}
	return ref, nil
}

// Get reads the document stored under ref.
func (s *FileSystemStore) Get(ctx context.Context, ref string) ([]byte, error) {
	if !validSHA256Ref(ref) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}

	f, err := os.Open(filepath.Join(s.objectsDir, ref))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
		}
		return nil, fmt.Errorf("failed to open object: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxDocumentSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read object: %w", err)
	}
	return data, nil
}

// ValidateSetup verifies that the store directories are accessible.
func (s *FileSystemStore) ValidateSetup() error {
	for _, dir := range []string{s.root, s.objectsDir} {
		info, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("store directory not accessible: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("store path is not a directory: %s", dir)
		}
	}
	return nil
}

// writeFileAtomic writes data to destPath via a temp file in the same
// directory and a rename, so readers never see a partial document.
func writeFileAtomic(destPath string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(destPath), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := io.Copy(tmp, bytes.NewReader(data)); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}
