package contentstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestNewFileSystemStore(t *testing.T) {
	t.Run("creates directory structure", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "content")

		s, err := NewFileSystemStore(root)
		if err != nil {
			t.Fatalf("NewFileSystemStore() error = %v", err)
		}

		if _, err := os.Stat(filepath.Join(root, "objects")); err != nil {
			t.Errorf("objects directory not created: %v", err)
		}
		if err := s.ValidateSetup(); err != nil {
			t.Errorf("ValidateSetup() error = %v", err)
		}
	})

	t.Run("works with existing directory", func(t *testing.T) {
		if _, err := NewFileSystemStore(t.TempDir()); err != nil {
			t.Fatalf("NewFileSystemStore() error = %v", err)
		}
	})
}

func TestFileSystemStore_PutGet(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "post document", data: `{"text":"hello"}`},
		{name: "unicode", data: `{"text":"grüße 🌍"}`},
		{name: "empty document", data: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			s, err := NewFileSystemStore(t.TempDir())
			if err != nil {
				t.Fatalf("NewFileSystemStore() error = %v", err)
			}

			ref, err := s.Put(ctx, []byte(tt.data))
			if err != nil {
				t.Fatalf("Put() error = %v", err)
			}
			if ref != sha256Ref([]byte(tt.data)) {
				t.Errorf("Put() ref = %q, want sha256 of data", ref)
			}

			got, err := s.Get(ctx, ref)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if string(got) != tt.data {
				t.Errorf("Get() = %q, want %q", got, tt.data)
			}
		})
	}
}

func TestFileSystemStore_PutIdempotent(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s, err := NewFileSystemStore(root)
	if err != nil {
		t.Fatalf("NewFileSystemStore() error = %v", err)
	}

	first, err := s.Put(ctx, []byte("same"))
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	second, err := s.Put(ctx, []byte("same"))
	if err != nil {
		t.Fatalf("second Put() error = %v", err)
	}
	if first != second {
		t.Errorf("refs differ: %q vs %q", first, second)
	}

	entries, err := os.ReadDir(filepath.Join(root, "objects"))
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("objects dir has %d entries, want 1 (no temp files left behind)", len(entries))
	}
}

func TestFileSystemStore_GetErrors(t *testing.T) {
	s, err := NewFileSystemStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileSystemStore() error = %v", err)
	}

	tests := []struct {
		name string
		ref  string
	}{
		{name: "missing object", ref: sha256Ref([]byte("never stored"))},
		{name: "path traversal", ref: "../../etc/passwd"},
		{name: "uppercase hex", ref: "ABCDEF0000000000000000000000000000000000000000000000000000000000"},
		{name: "empty ref", ref: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Get(context.Background(), tt.ref)
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("Get(%q) error = %v, want ErrNotFound", tt.ref, err)
			}
		})
	}
}
