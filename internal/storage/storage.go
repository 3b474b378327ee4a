// Package storage abstracts the areas that hold uploaded and processed
// image files.
package storage

import (
	"context"
	"errors"
)

// Provider is an interface for reading and writing stored artifacts by key.
// Keys are relative paths such as "uploads/cat_0a1b2c3d.jpg".
type Provider interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
	Shutdown()
}

// Errors
var (
	ErrNotFound = errors.New("file does not exist")
)
