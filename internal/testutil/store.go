package testutil

import (
	"context"
	"fmt"
	"sync"

	"tipfeed/internal/feed"
)

var _ feed.ContentStore = (*StubStore)(nil)

// StubStore is an in-memory feed.ContentStore that records calls.
// Put returns the SHA-256 of the data unless PutRef is set.
type StubStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	getErrs map[string]error
	puts    [][]byte
	gets    map[string]int

	PutRef string
	PutErr error
}

// NewStubStore creates an empty StubStore.
func NewStubStore() *StubStore {
	return &StubStore{
		objects: make(map[string][]byte),
		getErrs: make(map[string]error),
		gets:    make(map[string]int),
	}
}

// Add stores data under ref.
func (s *StubStore) Add(ref string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[ref] = data
}

// FailGet makes Get of ref fail with err.
func (s *StubStore) FailGet(ref string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getErrs[ref] = err
}

func (s *StubStore) Put(ctx context.Context, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts = append(s.puts, append([]byte(nil), data...))
	if s.PutErr != nil {
		return "", s.PutErr
	}
	ref := s.PutRef
	if ref == "" {
		ref = SHA256Hex(data)
	}
	s.objects[ref] = data
	return ref, nil
}

func (s *StubStore) Get(ctx context.Context, refOrURI string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets[refOrURI]++
	if err := s.getErrs[refOrURI]; err != nil {
		return nil, err
	}
	data, ok := s.objects[refOrURI]
	if !ok {
		return nil, fmt.Errorf("object not found: %s", refOrURI)
	}
	return data, nil
}

// Puts returns the documents passed to Put.
func (s *StubStore) Puts() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.puts...)
}

// Gets returns how many times refOrURI was fetched.
func (s *StubStore) Gets(refOrURI string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gets[refOrURI]
}
