package adapter

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/m-mizutani/goerr/v2"
)

// MemoryStorage keeps objects in process memory
type MemoryStorage struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

var _ Storage = &MemoryStorage{}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		objects: make(map[string][]byte),
	}
}

func (m *MemoryStorage) Put(ctx context.Context, key string) (io.WriteCloser, error) {
	return &memoryWriter{storage: m, key: key}, nil
}

func (m *MemoryStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.objects[key]
	if !ok {
		return nil, goerr.Wrap(ErrNotFound, "object does not exist", goerr.V("key", key))
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *MemoryStorage) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

// Raw returns a copy of the stored bytes, for tests that tamper with records
func (m *MemoryStorage) Raw(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[key]
	return bytes.Clone(data), ok
}

// SetRaw stores data directly under key
func (m *MemoryStorage) SetRaw(key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = bytes.Clone(data)
}

type memoryWriter struct {
	bytes.Buffer
	storage *MemoryStorage
	key     string
}

func (w *memoryWriter) Close() error {
	w.storage.mu.Lock()
	defer w.storage.mu.Unlock()
	w.storage.objects[w.key] = bytes.Clone(w.Bytes())
	return nil
}
