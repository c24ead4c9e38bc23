package store

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrNotFound is returned when a key or entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrClosed is returned by operations on a closed store or subscription.
	ErrClosed = errors.New("store closed")
)

// KV is the key-value engine under the local backend. Values are opaque
// blobs that are overwritten whole on every Put.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Close() error
}

// MemoryKV is a concurrency-safe in-memory KV. Nothing survives a restart.
type MemoryKV struct {
	mu sync.RWMutex

	data   map[string][]byte
	closed bool
}

// NewMemoryKV creates an empty MemoryKV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{
		data: make(map[string][]byte),
	}
}

// Get returns a copy of the value stored under key.
func (s *MemoryKV) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}
	v, ok := s.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// Put replaces the value stored under key.
func (s *MemoryKV) Put(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	v := make([]byte, len(value))
	copy(v, value)
	s.data[key] = v
	return nil
}

// Close marks the store closed; later calls fail with ErrClosed.
func (s *MemoryKV) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
