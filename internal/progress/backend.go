package progress

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned by a [Backend] when no document exists for a key.
var ErrNotFound = errors.New("progress: document not found")

// Backend persists raw progress documents by key. Implementations must be
// safe for concurrent use.
type Backend interface {
	// Load returns the stored document or [ErrNotFound].
	Load(ctx context.Context, key string) ([]byte, error)

	// Save replaces the document stored under key.
	Save(ctx context.Context, key string, data []byte) error

	// Delete removes the document. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the backend.
	Close() error
}

// MemoryBackend keeps documents in process memory.
type MemoryBackend struct {
	mu   sync.Mutex
	docs map[string][]byte
}

var _ Backend = (*MemoryBackend)(nil)

// NewMemoryBackend returns an empty [MemoryBackend].
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{docs: make(map[string][]byte)}
}

func (m *MemoryBackend) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), d...), nil
}

func (m *MemoryBackend) Save(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[key] = append([]byte(nil), data...)
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, key)
	return nil
}

func (m *MemoryBackend) Close() error { return nil }
