package mock

import (
	"context"
	"sync"

	"github.com/adityawarman/citralab/internal/storage"
)

// Provider implements an in-memory storage for tests
type Provider struct {
	mu    sync.Mutex
	files map[string][]byte

	// FailPut, when set, makes every Put return this error
	FailPut error
}

// New returns a new Provider instance
func New() *Provider {
	return &Provider{
		files: make(map[string][]byte),
	}
}

// Get returns the file data for a key
func (p *Provider) Get(ctx context.Context, key string) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	data, ok := p.files[key]
	if !ok {
		return nil, storage.ErrNotFound
	}

	return data, nil
}

// Put stores the file data for a key
func (p *Provider) Put(ctx context.Context, key string, data []byte) error {
	if p.FailPut != nil {
		return p.FailPut
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.files[key] = data
	return nil
}

// Delete removes the file for a key
func (p *Provider) Delete(ctx context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.files[key]; !ok {
		return storage.ErrNotFound
	}

	delete(p.files, key)
	return nil
}

// Shutdown shuts down the storage
func (p *Provider) Shutdown() {}

// Len returns the number of stored files
func (p *Provider) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.files)
}

// Keys returns the stored keys
func (p *Provider) Keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	keys := make([]string, 0, len(p.files))
	for key := range p.files {
		keys = append(keys, key)
	}

	return keys
}
