// Package slots treats the fixed run of numbered reference columns on an
// owner record (coupon_1..coupon_256, part_1..part_128) as one ordered
// collection of optional element IDs.
//
// Slot indices are 0-based; the store adapter maps index i to column
// <prefix>_<i+1>. Every mutation is persisted with a single Save, so a
// compaction never leaves a partially shifted array behind.
package slots

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mesh-intelligence/powdertrack/internal/catalog"
	"github.com/mesh-intelligence/powdertrack/pkg/types"
)

// Summary is one row of the slot-array view.
type Summary struct {
	Position  int // 1-based
	ElementID types.ID
	Label     string
}

// Empty reports whether the slot holds no element.
func (s Summary) Empty() bool {
	return s.ElementID == ""
}

// Manager reads and mutates slot arrays through an EntityStore.
type Manager struct {
	cat    *catalog.Catalog
	store  types.EntityStore
	logger *slog.Logger
}

// NewManager creates a Manager. A nil logger uses slog.Default().
func NewManager(cat *catalog.Catalog, store types.EntityStore, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{cat: cat, store: store, logger: logger}
}

// Spec returns the slot-array spec owned by t.
func (m *Manager) Spec(t types.EntityType) (types.SlotArraySpec, error) {
	return m.cat.SlotArray(t)
}

func (m *Manager) load(ctx context.Context, owner types.Ref) (types.SlotArraySpec, []types.ID, error) {
	spec, err := m.cat.SlotArray(owner.Type)
	if err != nil {
		return spec, nil, err
	}
	rec, err := m.store.Get(ctx, owner.Type, owner.ID)
	if err != nil {
		return spec, nil, fmt.Errorf("load slots of %s: %w", owner, err)
	}
	slots := make([]types.ID, spec.Capacity)
	for i := range slots {
		slots[i] = rec.RefField(spec.Column(i))
	}
	return spec, slots, nil
}

// save writes slots[from:to] of owner in one Save.
func (m *Manager) save(ctx context.Context, owner types.Ref, spec types.SlotArraySpec, slots []types.ID, from, to int) error {
	fields := make(map[string]any, to-from)
	for i := from; i < to; i++ {
		if slots[i] == "" {
			fields[spec.Column(i)] = nil
		} else {
			fields[spec.Column(i)] = slots[i]
		}
	}
	rec := &types.Record{Type: owner.Type, ID: owner.ID, Fields: fields}
	if err := m.store.Save(ctx, rec); err != nil {
		return fmt.Errorf("save slots of %s: %w", owner, err)
	}
	return nil
}

func indexError(spec types.SlotArraySpec, index int) error {
	return fmt.Errorf("%s.%s index %d (capacity %d): %w",
		spec.Owner, spec.Prefix, index, spec.Capacity, types.ErrIndexOutOfRange)
}

// Get returns the owner's slots, Capacity entries long, "" for empty slots.
func (m *Manager) Get(ctx context.Context, owner types.Ref) ([]types.ID, error) {
	_, slots, err := m.load(ctx, owner)
	return slots, err
}

// Count returns the number of occupied slots.
func (m *Manager) Count(ctx context.Context, owner types.Ref) (int, error) {
	_, slots, err := m.load(ctx, owner)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, id := range slots {
		if id != "" {
			n++
		}
	}
	return n, nil
}

// SetSlot writes one slot. An empty elem clears it. A non-empty elem must
// name an existing element record. Clearing an occupied mandatory slot is
// rejected with ErrValidation; use RemoveWithCompaction instead. Writes
// that would leave an occupied slot behind an empty mandatory slot are
// rejected too.
func (m *Manager) SetSlot(ctx context.Context, owner types.Ref, index int, elem types.ID) error {
	spec, err := m.cat.SlotArray(owner.Type)
	if err != nil {
		return err
	}
	if !spec.InRange(index) {
		return indexError(spec, index)
	}
	spec, slots, err := m.load(ctx, owner)
	if err != nil {
		return err
	}
	if elem == "" && slots[index] != "" && spec.Mandatory(index) {
		return fmt.Errorf("clear mandatory slot %d of %s: %w", index+1, owner, types.ErrValidation)
	}
	if elem != "" {
		if _, err := m.store.Get(ctx, spec.Element, elem); err != nil {
			return fmt.Errorf("set slot %d of %s: %w", index+1, owner, err)
		}
	}
	slots[index] = elem
	if err := spec.Check(slots); err != nil {
		return err
	}
	return m.save(ctx, owner, spec, slots, index, index+1)
}

// RemoveWithCompaction empties one slot. When the index lies in the
// compaction scope every following slot moves one position left and the
// last slot is cleared, all in one write. Outside the scope the slot is
// cleared in place. Under ScopeFirstSlot, removing a mandatory slot other
// than the first is rejected with ErrValidation.
func (m *Manager) RemoveWithCompaction(ctx context.Context, owner types.Ref, index int) error {
	spec, err := m.cat.SlotArray(owner.Type)
	if err != nil {
		return err
	}
	if !spec.InRange(index) {
		return indexError(spec, index)
	}
	spec, slots, err := m.load(ctx, owner)
	if err != nil {
		return err
	}

	if !spec.Compacts(index) {
		if spec.Mandatory(index) && slots[index] != "" {
			return fmt.Errorf("remove mandatory slot %d of %s with scope %s: %w",
				index+1, owner, spec.Scope, types.ErrValidation)
		}
		slots[index] = ""
		return m.save(ctx, owner, spec, slots, index, index+1)
	}

	copy(slots[index:], slots[index+1:])
	slots[len(slots)-1] = ""
	if err := spec.Check(slots); err != nil {
		return err
	}
	if err := m.save(ctx, owner, spec, slots, index, len(slots)); err != nil {
		return err
	}
	m.logger.Debug("slots compacted",
		"owner", owner.String(),
		"prefix", spec.Prefix,
		"index", index,
	)
	return nil
}

// ClearAll empties every slot of the owner in one write. Neither the owner
// nor the referenced elements are deleted.
func (m *Manager) ClearAll(ctx context.Context, owner types.Ref) error {
	spec, slots, err := m.load(ctx, owner)
	if err != nil {
		return err
	}
	for i := range slots {
		slots[i] = ""
	}
	return m.save(ctx, owner, spec, slots, 0, len(slots))
}

// Summaries returns the slot-array view: one entry per slot, labelled with
// the element's name when it has one. A slot whose element no longer
// exists keeps its ID and gets an empty label.
func (m *Manager) Summaries(ctx context.Context, owner types.Ref) ([]Summary, error) {
	spec, slots, err := m.load(ctx, owner)
	if err != nil {
		return nil, err
	}
	out := make([]Summary, len(slots))
	for i, id := range slots {
		out[i] = Summary{Position: i + 1, ElementID: id}
		if id == "" {
			continue
		}
		rec, err := m.store.Get(ctx, spec.Element, id)
		switch {
		case errors.Is(err, types.ErrNotFound):
			continue
		case err != nil:
			return nil, fmt.Errorf("label slot %d of %s: %w", i+1, owner, err)
		}
		if name, ok := rec.Fields["name"].(string); ok {
			out[i].Label = name
		}
	}
	return out, nil
}
