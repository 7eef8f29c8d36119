// Package sqlite implements the SQLite storage backend for powdertrack.
//
// The Backend stores every entity type of the catalog in its own table,
// created on Attach from DDL generated out of the catalog schemas. Records
// move in and out as generic field maps; the per-type table accessors
// translate field values to and from column affinities.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/powdertrack/internal/catalog"
	"github.com/mesh-intelligence/powdertrack/pkg/types"
)

// DBFile is the database file name inside the data directory.
const DBFile = "powdertrack.db"

var _ types.EntityStore = (*Backend)(nil)

// Backend implements types.EntityStore on a SQLite database file.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	cat      *catalog.Catalog
	db       *sql.DB
	tables   map[types.EntityType]*table
}

// NewBackend creates a backend for the catalog's entity types.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend(cat *catalog.Catalog) *Backend {
	return &Backend{
		cat:    cat,
		tables: make(map[types.EntityType]*table),
	}
}

// Attach opens (or creates) the database in config.DataDir and creates any
// missing tables. Existing data is kept.
// Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	fk := 0
	if config.EnforceForeignKeys {
		fk = 1
	}
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(%d)&_pragma=busy_timeout(5000)",
		filepath.Join(dataDir, DBFile), fk)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	// One connection keeps the pragmas and serializes writers.
	db.SetMaxOpenConns(1)

	if err := createSchema(db, b.cat); err != nil {
		db.Close()
		return err
	}

	b.db = db
	b.config = config
	b.attached = true
	for _, t := range b.cat.Types() {
		s, _ := b.cat.Schema(t)
		b.tables[t] = newTable(b, s)
	}
	return nil
}

// Detach closes the database. After Detach every operation returns
// ErrDetached. Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	if err := b.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	b.db = nil
	b.attached = false
	b.tables = make(map[types.EntityType]*table)
	return nil
}

// Path returns the database file path of the attached backend.
func (b *Backend) Path() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	dataDir := b.config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	return filepath.Join(dataDir, DBFile)
}

// accessor returns the table accessor for t. The caller must hold b.mu.
func (b *Backend) accessor(t types.EntityType) (*table, error) {
	if !b.attached {
		return nil, types.ErrDetached
	}
	tbl, ok := b.tables[t]
	if !ok {
		return nil, fmt.Errorf("%q: %w", t, types.ErrUnknownType)
	}
	return tbl, nil
}

// Get implements types.EntityStore.
func (b *Backend) Get(ctx context.Context, t types.EntityType, id types.ID) (*types.Record, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	tbl, err := b.accessor(t)
	if err != nil {
		return nil, err
	}
	return tbl.get(ctx, id)
}

// Query implements types.EntityStore.
func (b *Backend) Query(ctx context.Context, t types.EntityType, field string, value any) ([]*types.Record, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	tbl, err := b.accessor(t)
	if err != nil {
		return nil, err
	}
	return tbl.query(ctx, field, value)
}

// List returns every record of type t ordered by ID.
func (b *Backend) List(ctx context.Context, t types.EntityType) ([]*types.Record, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	tbl, err := b.accessor(t)
	if err != nil {
		return nil, err
	}
	return tbl.list(ctx)
}

// Save implements types.EntityStore.
func (b *Backend) Save(ctx context.Context, rec *types.Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	tbl, err := b.accessor(rec.Type)
	if err != nil {
		return err
	}
	return tbl.save(ctx, rec)
}

// Delete implements types.EntityStore.
func (b *Backend) Delete(ctx context.Context, t types.EntityType, id types.ID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	tbl, err := b.accessor(t)
	if err != nil {
		return err
	}
	return tbl.delete(ctx, id)
}
