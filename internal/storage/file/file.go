package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adityawarman/citralab/internal/storage"
)

// Provider implements a local directory based artifact storage
type Provider struct {
	root string
}

// New returns a new Provider instance rooted at the given directory,
// creating it if needed
func New(root string) (*Provider, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}

	return &Provider{
		root,
	}, nil
}

// Get returns the file data for a key
func (p *Provider) Get(ctx context.Context, key string) ([]byte, error) {
	path, err := p.resolve(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, storage.ErrNotFound
		}

		return nil, err
	}

	return data, nil
}

// Put writes the file data for a key, creating parent directories as needed
func (p *Provider) Put(ctx context.Context, key string, data []byte) error {
	path, err := p.resolve(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}

// Delete removes the file for a key
func (p *Provider) Delete(ctx context.Context, key string) error {
	path, err := p.resolve(key)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return storage.ErrNotFound
		}

		return err
	}

	return nil
}

// Shutdown shuts down the storage
func (p *Provider) Shutdown() {}

// resolve maps a key to a path under the root, rejecting keys that escape it
func (p *Provider) resolve(key string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(key))
	if cleaned == "." || strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("invalid storage key %q", key)
	}

	return filepath.Join(p.root, cleaned), nil
}
