package file

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/adityawarman/citralab/internal/history"
)

// Provider implements a json-file based history store. Intended for
// development and tests; every mutation rewrites the backing file.
type Provider struct {
	path  string
	mu    sync.Mutex
	state state
}

// state is the persisted shape of the store. NextID is kept alongside the
// records so that ids are never reused after deletes.
type state struct {
	NextID  int64            `json:"next_id"`
	Records []history.Record `json:"records"`
}

// New returns a new Provider instance backed by the given file,
// creating it if it does not exist
func New(path string) (*Provider, error) {
	p := &Provider{
		path: path,
		state: state{
			NextID: 1,
		},
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return p, nil
		}

		return nil, err
	}

	if err := json.Unmarshal(data, &p.state); err != nil {
		return nil, err
	}

	if p.state.NextID < 1 {
		p.state.NextID = 1
	}

	return p, nil
}

// Insert persists a new record, assigning its ID and CreatedAt
func (p *Provider) Insert(ctx context.Context, record *history.Record) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	inserted := *record
	inserted.ID = p.state.NextID
	inserted.CreatedAt = time.Now().UTC()

	next := state{
		NextID:  p.state.NextID + 1,
		Records: append(append([]history.Record(nil), p.state.Records...), inserted),
	}

	// Only commit the new state once it has hit the disk, so a failed
	// write never leaves memory and file out of sync
	if err := p.persist(next); err != nil {
		return 0, err
	}

	p.state = next
	record.ID = inserted.ID
	record.CreatedAt = inserted.CreatedAt

	return inserted.ID, nil
}

// ListByName returns all records owned by name, newest first
func (p *Provider) ListByName(ctx context.Context, name string) ([]history.Record, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.listByName(name), nil
}

// List returns records owned by name, newest first, with an offset/limit
func (p *Provider) List(ctx context.Context, name string, offset, limit int) ([]history.Record, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	records := p.listByName(name)

	if offset > len(records) {
		offset = len(records)
	}

	limit = offset + limit
	if limit > len(records) {
		limit = len(records)
	}

	return records[offset:limit], nil
}

// DeleteByName removes all records owned by name and returns how many were removed
func (p *Provider) DeleteByName(ctx context.Context, name string) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	kept := make([]history.Record, 0, len(p.state.Records))
	var removed int64
	for _, record := range p.state.Records {
		if record.Name == name {
			removed++
			continue
		}

		kept = append(kept, record)
	}

	if removed == 0 {
		return 0, nil
	}

	next := state{
		NextID:  p.state.NextID,
		Records: kept,
	}

	if err := p.persist(next); err != nil {
		return 0, err
	}

	p.state = next
	return removed, nil
}

// DeleteByID removes the record only if it exists and is owned by expectedName
func (p *Provider) DeleteByID(ctx context.Context, id int64, expectedName string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, record := range p.state.Records {
		if record.ID != id {
			continue
		}

		if record.Name != expectedName {
			return false, nil
		}

		next := state{
			NextID:  p.state.NextID,
			Records: append(append([]history.Record(nil), p.state.Records[:i]...), p.state.Records[i+1:]...),
		}

		if err := p.persist(next); err != nil {
			return false, err
		}

		p.state = next
		return true, nil
	}

	return false, nil
}

// Get returns the record with the given id
func (p *Provider) Get(ctx context.Context, id int64) (*history.Record, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, record := range p.state.Records {
		if record.ID == id {
			record := record
			return &record, nil
		}
	}

	return nil, history.ErrNotFound
}

// Ping verifies that the store is reachable
func (p *Provider) Ping(ctx context.Context) error {
	return nil
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

func (p *Provider) listByName(name string) []history.Record {
	records := []history.Record{}
	for _, record := range p.state.Records {
		if record.Name == name {
			records = append(records, record)
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		if records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].ID > records[j].ID
		}

		return records[i].CreatedAt.After(records[j].CreatedAt)
	})

	return records
}

// persist writes the state to a temporary file and renames it into place
func (p *Provider) persist(next state) error {
	data, err := json.Marshal(next)
	if err != nil {
		return err
	}

	tmp := p.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return err
	}

	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}

	return os.Rename(tmp, p.path)
}
