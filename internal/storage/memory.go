package storage

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is an in-memory Store for tests and ephemeral runs.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
	types map[string]string
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		blobs: make(map[string][]byte),
		types: make(map[string]string),
	}
}

// Read returns the blob stored at uri.
func (s *MemoryStore) Read(ctx context.Context, uri string) ([]byte, error) {
	if _, _, err := SplitURI(uri); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[uri]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, uri)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Write stores data at uri.
func (s *MemoryStore) Write(ctx context.Context, uri string, data []byte, contentType string) (string, error) {
	if _, _, err := SplitURI(uri); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	s.blobs[uri] = buf
	s.types[uri] = contentType
	return uri, nil
}

// Len returns the number of stored objects.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
