// Package storetest provides an in-memory EntityStore for unit tests of the
// packages that consume one.
package storetest

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"sync"

	"github.com/mesh-intelligence/powdertrack/internal/catalog"
	"github.com/mesh-intelligence/powdertrack/pkg/types"
)

var _ types.EntityStore = (*MemStore)(nil)

// MemStore keeps records per entity type in maps. Field names are checked
// against the catalog schemas so tests fail the same way the SQLite store
// would.
type MemStore struct {
	mu      sync.Mutex
	cat     *catalog.Catalog
	records map[types.EntityType]map[types.ID]map[string]any
	nextID  map[types.EntityType]int64

	// SaveErr, when set, is returned by Save without writing anything.
	SaveErr error
	// Saves counts calls to Save that reached the store.
	Saves int
	// Queries counts calls to Query.
	Queries int
}

// New creates an empty store over the given catalog.
func New(cat *catalog.Catalog) *MemStore {
	return &MemStore{
		cat:     cat,
		records: make(map[types.EntityType]map[types.ID]map[string]any),
		nextID:  make(map[types.EntityType]int64),
	}
}

// Put inserts or replaces a record without any checks and returns its ref.
// It is the fixture path for tests.
func (m *MemStore) Put(t types.EntityType, id types.ID, fields map[string]any) types.Ref {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := make(map[string]any, len(fields))
	maps.Copy(rec, fields)
	m.table(t)[id] = rec
	if n, err := strconv.ParseInt(id, 10, 64); err == nil && n > m.nextID[t] {
		m.nextID[t] = n
	}
	return types.Ref{Type: t, ID: id}
}

// Remove deletes a record without any checks.
func (m *MemStore) Remove(t types.EntityType, id types.ID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.table(t), id)
}

func (m *MemStore) table(t types.EntityType) map[types.ID]map[string]any {
	tbl, ok := m.records[t]
	if !ok {
		tbl = make(map[types.ID]map[string]any)
		m.records[t] = tbl
	}
	return tbl
}

func (m *MemStore) schema(t types.EntityType) (types.TableSchema, error) {
	return m.cat.Schema(t)
}

// Get implements types.EntityStore.
func (m *MemStore) Get(ctx context.Context, t types.EntityType, id types.ID) (*types.Record, error) {
	if _, err := m.schema(t); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	fields, ok := m.table(t)[id]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", types.Ref{Type: t, ID: id}, types.ErrNotFound)
	}
	return &types.Record{Type: t, ID: id, Fields: maps.Clone(fields)}, nil
}

// Query implements types.EntityStore.
func (m *MemStore) Query(ctx context.Context, t types.EntityType, field string, value any) ([]*types.Record, error) {
	s, err := m.schema(t)
	if err != nil {
		return nil, err
	}
	isKey := field == s.Key
	if _, ok := s.Column(field); !ok && !isKey {
		return nil, fmt.Errorf("query %s.%s: %w", t, field, types.ErrUnknownField)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.Queries++
	var out []*types.Record
	for id, fields := range m.table(t) {
		var v any = id
		if !isKey {
			v = fields[field]
		}
		if equal(v, value) {
			out = append(out, &types.Record{Type: t, ID: id, Fields: maps.Clone(fields)})
		}
	}
	slices.SortFunc(out, func(a, b *types.Record) int {
		return types.CompareIDs(a.ID, b.ID)
	})
	return out, nil
}

// Save implements types.EntityStore.
func (m *MemStore) Save(ctx context.Context, rec *types.Record) error {
	s, err := m.schema(rec.Type)
	if err != nil {
		return err
	}
	for name := range rec.Fields {
		if _, ok := s.Column(name); !ok {
			return fmt.Errorf("save %s.%s: %w", rec.Type, name, types.ErrUnknownField)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.Saves++
	tbl := m.table(rec.Type)
	if rec.ID == "" {
		if s.KeyKind != types.KeyInteger {
			return fmt.Errorf("save %s: text key required: %w", rec.Type, types.ErrInvalidID)
		}
		m.nextID[rec.Type]++
		rec.ID = strconv.FormatInt(m.nextID[rec.Type], 10)
	}
	fields, ok := tbl[rec.ID]
	if !ok {
		fields = make(map[string]any)
		tbl[rec.ID] = fields
	}
	maps.Copy(fields, rec.Fields)
	return nil
}

// Delete implements types.EntityStore.
func (m *MemStore) Delete(ctx context.Context, t types.EntityType, id types.ID) error {
	if _, err := m.schema(t); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	tbl := m.table(t)
	if _, ok := tbl[id]; !ok {
		return fmt.Errorf("delete %s: %w", types.Ref{Type: t, ID: id}, types.ErrNotFound)
	}
	delete(tbl, id)
	return nil
}

// Count returns the number of records of type t.
func (m *MemStore) Count(t types.EntityType) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records[t])
}

func equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}
