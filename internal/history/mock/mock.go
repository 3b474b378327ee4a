package mock

import (
	"context"
	"fmt"

	"github.com/adityawarman/citralab/internal/history"
)

// Provider implements a history store where every operation fails
type Provider struct {
}

// Insert persists a new record
func (p *Provider) Insert(ctx context.Context, record *history.Record) (int64, error) {
	return 0, fmt.Errorf("insert error")
}

// ListByName returns all records owned by name
func (p *Provider) ListByName(ctx context.Context, name string) ([]history.Record, error) {
	return nil, fmt.Errorf("list error")
}

// List returns records owned by name with an offset/limit
func (p *Provider) List(ctx context.Context, name string, offset, limit int) ([]history.Record, error) {
	return nil, fmt.Errorf("list error")
}

// DeleteByName removes all records owned by name
func (p *Provider) DeleteByName(ctx context.Context, name string) (int64, error) {
	return 0, fmt.Errorf("delete error")
}

// DeleteByID removes the record if owned by expectedName
func (p *Provider) DeleteByID(ctx context.Context, id int64, expectedName string) (bool, error) {
	return false, fmt.Errorf("delete error")
}

// Get returns the record with the given id
func (p *Provider) Get(ctx context.Context, id int64) (*history.Record, error) {
	return nil, fmt.Errorf("get error")
}

// Ping verifies that the store is reachable
func (p *Provider) Ping(ctx context.Context) error {
	return fmt.Errorf("ping error")
}

// Wait blocks until the store is ready
func (p *Provider) Wait(ctx context.Context) error {
	return nil
}

// Migrate attempts to migrate the store to the latest migration
func (p *Provider) Migrate(migrationsURL string) error {
	return nil
}

// Shutdown shuts down the store
func (p *Provider) Shutdown() {}
