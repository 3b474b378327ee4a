package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/adityawarman/citralab/internal/history"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	// Import the postgresql driver
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

// Provider implements a postgresql based history store
type Provider struct {
	address string
	db      *sqlx.DB
}

// New returns a new Provider instance
func New(address string, maxConns int) (*Provider, error) {
	db, err := sqlx.Open("pgx", address)
	if err != nil {
		return nil, err
	}

	if maxConns != 0 {
		db.SetMaxOpenConns(maxConns)
	}

	// Use Unsafe so that the app doesn't fail if we add new columns to the database
	return &Provider{
		address: address,
		db:      db.Unsafe(),
	}, nil
}

// Insert persists a new record, assigning its ID and CreatedAt
func (p *Provider) Insert(ctx context.Context, record *history.Record) (int64, error) {
	record.CreatedAt = time.Now().UTC()

	var id int64
	err := p.db.GetContext(ctx, &id,
		"insert into history (name, original_path, result_path, method, created_at) values ($1, $2, $3, $4, $5) returning id",
		record.Name, record.OriginalPath, record.ResultPath, record.Method, record.CreatedAt)
	if err != nil {
		return 0, err
	}

	record.ID = id
	return id, nil
}

// ListByName returns all records owned by name, newest first
func (p *Provider) ListByName(ctx context.Context, name string) ([]history.Record, error) {
	records := []history.Record{}
	err := p.db.SelectContext(ctx, &records,
		"select * from history where name = $1 order by created_at desc, id desc", name)
	if err != nil {
		return nil, err
	}

	return records, nil
}

// List returns records owned by name, newest first, with an offset/limit
func (p *Provider) List(ctx context.Context, name string, offset, limit int) ([]history.Record, error) {
	records := []history.Record{}
	err := p.db.SelectContext(ctx, &records,
		"select * from history where name = $1 order by created_at desc, id desc offset $2 limit $3", name, offset, limit)
	if err != nil {
		return nil, err
	}

	return records, nil
}

// DeleteByName removes all records owned by name and returns how many were removed
func (p *Provider) DeleteByName(ctx context.Context, name string) (int64, error) {
	result, err := p.db.ExecContext(ctx, "delete from history where name = $1", name)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

// DeleteByID removes the record only if it exists and is owned by expectedName
func (p *Provider) DeleteByID(ctx context.Context, id int64, expectedName string) (bool, error) {
	result, err := p.db.ExecContext(ctx, "delete from history where id = $1 and name = $2", id, expectedName)
	if err != nil {
		return false, err
	}

	count, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// Get returns the record with the given id
func (p *Provider) Get(ctx context.Context, id int64) (*history.Record, error) {
	record := &history.Record{}
	err := p.db.GetContext(ctx, record, "select * from history where id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, history.ErrNotFound
		}

		return nil, err
	}

	return record, nil
}

// Ping verifies that the store is reachable
func (p *Provider) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Wait blocks until a database connection is ready
// You can use the given context to specify a timeout
func (p *Provider) Wait(ctx context.Context) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		if err := p.db.PingContext(ctx); err == nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Migrate attempts to migrate the database to the latest migration
func (p *Provider) Migrate(migrationsURL string) error {
	m, err := migrate.New(migrationsURL, p.address)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	return nil
}

// Shutdown shuts down the database client
func (p *Provider) Shutdown() {
	p.db.Close()
}
