package session

import (
	"context"
	"sync"
)

// MemoryStorage is an in-memory Storage.
type MemoryStorage struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStorage creates an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string]string)}
}

// Get implements Storage.
func (m *MemoryStorage) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

// Set implements Storage.
func (m *MemoryStorage) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

// Remove implements Storage.
func (m *MemoryStorage) Remove(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// Len returns the number of stored keys.
func (m *MemoryStorage) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.values)
}

// MemoryProvider is a Provider keeping every namespace in memory.
type MemoryProvider struct {
	mu         sync.Mutex
	namespaces map[string]*MemoryStorage
}

// NewMemoryProvider creates an empty MemoryProvider.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{namespaces: make(map[string]*MemoryStorage)}
}

// Namespace implements Provider.
func (p *MemoryProvider) Namespace(id string) Storage {
	p.mu.Lock()
	defer p.mu.Unlock()
	ns, ok := p.namespaces[id]
	if !ok {
		ns = NewMemoryStorage()
		p.namespaces[id] = ns
	}
	return ns
}

// Drop implements Provider.
func (p *MemoryProvider) Drop(ctx context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.namespaces, id)
	return nil
}
