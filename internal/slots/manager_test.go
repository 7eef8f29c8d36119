package slots

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/powdertrack/internal/catalog"
	"github.com/mesh-intelligence/powdertrack/internal/storetest"
	"github.com/mesh-intelligence/powdertrack/pkg/types"
)

func setupManager(t *testing.T, cfg types.Config) (*Manager, *storetest.MemStore) {
	t.Helper()
	cat, err := catalog.ForConfig(cfg)
	require.NoError(t, err)
	store := storetest.New(cat)
	return NewManager(cat, store, nil), store
}

// partArray creates a part array whose first len(names) slots hold parts
// with the given names, and returns it with the part IDs.
func partArray(store *storetest.MemStore, names ...string) (types.Ref, []types.ID) {
	fields := map[string]any{"name": "plate-A"}
	ids := make([]types.ID, len(names))
	for i, name := range names {
		ids[i] = fmt.Sprint(100 + i)
		store.Put(types.TypePart, ids[i], map[string]any{"name": name})
		fields[fmt.Sprintf("part_%d", i+1)] = ids[i]
	}
	return store.Put(types.TypePartArray, "1", fields), ids
}

func TestGetIdempotent(t *testing.T) {
	m, store := setupManager(t, types.Config{})
	owner, ids := partArray(store, "A", "B")
	ctx := context.Background()

	first, err := m.Get(ctx, owner)
	require.NoError(t, err)
	second, err := m.Get(ctx, owner)
	require.NoError(t, err)

	assert.Len(t, first, catalog.PartSlots)
	assert.Equal(t, first, second)
	assert.Equal(t, ids[0], first[0])
	assert.Equal(t, ids[1], first[1])
	assert.Equal(t, "", first[2])
}

func TestRemoveWithCompaction(t *testing.T) {
	m, store := setupManager(t, types.Config{})
	owner, ids := partArray(store, "A", "B", "C", "D", "E")
	ctx := context.Background()

	require.NoError(t, m.RemoveWithCompaction(ctx, owner, 0))

	got, err := m.Get(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, []types.ID{ids[1], ids[2], ids[3], ids[4], ""}, got[:5])
	for i := 5; i < catalog.PartSlots; i++ {
		assert.Equal(t, "", got[i], "slot %d", i)
	}
	assert.Equal(t, 1, store.Saves, "compaction must be one write")

	n, err := m.Count(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestRemoveWithCompactionLastElement(t *testing.T) {
	m, store := setupManager(t, types.Config{})
	owner, _ := partArray(store, "A")
	ctx := context.Background()

	require.NoError(t, m.RemoveWithCompaction(ctx, owner, 0))

	n, err := m.Count(ctx, owner)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRemoveOutsideScopeDoesNotShift(t *testing.T) {
	m, store := setupManager(t, types.Config{})
	owner, ids := partArray(store, "A", "B", "C")
	ctx := context.Background()

	require.NoError(t, m.RemoveWithCompaction(ctx, owner, 1))

	got, err := m.Get(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, []types.ID{ids[0], "", ids[2]}, got[:3])
}

func TestRemoveWithCompactionAtomic(t *testing.T) {
	m, store := setupManager(t, types.Config{})
	owner, _ := partArray(store, "A", "B", "C")
	ctx := context.Background()
	before, err := m.Get(ctx, owner)
	require.NoError(t, err)

	boom := errors.New("disk full")
	store.SaveErr = boom
	err = m.RemoveWithCompaction(ctx, owner, 0)
	require.ErrorIs(t, err, boom)

	store.SaveErr = nil
	after, err := m.Get(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestFirstSlotScope(t *testing.T) {
	m, store := setupManager(t, types.Config{CompactionScope: types.ScopeFirstSlot})
	owner, ids := partArray(store, "A", "B", "C")
	ctx := context.Background()

	require.NoError(t, m.RemoveWithCompaction(ctx, owner, 0))
	got, err := m.Get(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, []types.ID{ids[1], ids[2], ""}, got[:3])

	spec, err := m.Spec(types.TypePartArray)
	require.NoError(t, err)
	assert.Equal(t, types.ScopeFirstSlot, spec.Scope)
}

func TestSetSlotSparse(t *testing.T) {
	m, store := setupManager(t, types.Config{})
	ctx := context.Background()
	owner := store.Put(types.TypeCouponArray, "1", map[string]any{"name": "grid"})
	store.Put(types.TypeCoupon, "X", map[string]any{"name": "tensile"})

	require.NoError(t, m.SetSlot(ctx, owner, 10, "X"))

	got, err := m.Get(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, got, catalog.CouponSlots)
	assert.Equal(t, "X", got[10])
	assert.Equal(t, "", got[9])
	assert.Equal(t, "", got[11])

	require.NoError(t, m.SetSlot(ctx, owner, 10, ""))
	n, err := m.Count(ctx, owner)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSetSlotErrors(t *testing.T) {
	m, store := setupManager(t, types.Config{})
	ctx := context.Background()
	parts, _ := partArray(store, "A", "B")
	coupons := store.Put(types.TypeCouponArray, "1", nil)
	store.Put(types.TypeCoupon, "X", nil)
	store.Put(types.TypePartArray, "2", nil)
	store.Put(types.TypePart, "P", nil)

	tests := []struct {
		name    string
		owner   types.Ref
		index   int
		elem    types.ID
		wantErr error
	}{
		{"index at capacity", coupons, catalog.CouponSlots, "X", types.ErrIndexOutOfRange},
		{"negative index", coupons, -1, "X", types.ErrIndexOutOfRange},
		{"missing element", coupons, 0, "nope", types.ErrNotFound},
		{"missing owner", types.Ref{Type: types.TypeCouponArray, ID: "9"}, 0, "X", types.ErrNotFound},
		{"owner without slots", types.Ref{Type: types.TypeBuild, ID: "1"}, 0, "X", types.ErrUnknownType},
		{"clear mandatory slot", parts, 0, "", types.ErrValidation},
		{"occupy past empty prefix", types.Ref{Type: types.TypePartArray, ID: "2"}, 3, "P", types.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := m.SetSlot(ctx, tt.owner, tt.index, tt.elem)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	assert.Zero(t, store.Saves)
}

func TestRemoveErrors(t *testing.T) {
	m, store := setupManager(t, types.Config{})
	ctx := context.Background()
	owner, _ := partArray(store, "A")

	err := m.RemoveWithCompaction(ctx, owner, catalog.PartSlots)
	assert.ErrorIs(t, err, types.ErrIndexOutOfRange)

	err = m.RemoveWithCompaction(ctx, types.Ref{Type: types.TypePartArray, ID: "404"}, 0)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestRemoveCompactionRejectsGap(t *testing.T) {
	m, store := setupManager(t, types.Config{})
	ctx := context.Background()
	store.Put(types.TypePart, "A", nil)
	store.Put(types.TypePart, "C", nil)
	owner := store.Put(types.TypePartArray, "1", map[string]any{"part_1": "A", "part_3": "C"})

	err := m.RemoveWithCompaction(ctx, owner, 0)
	assert.ErrorIs(t, err, types.ErrValidation)
	assert.Zero(t, store.Saves)
}

func TestClearAll(t *testing.T) {
	m, store := setupManager(t, types.Config{})
	ctx := context.Background()

	tests := []struct {
		name  string
		owner types.Ref
	}{
		{"dense part array", func() types.Ref { r, _ := partArray(store, "A", "B", "C"); return r }()},
		{"sparse coupon array", store.Put(types.TypeCouponArray, "7", map[string]any{"coupon_4": "1", "coupon_256": "2"})},
		{"empty coupon array", store.Put(types.TypeCouponArray, "8", nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, m.ClearAll(ctx, tt.owner))
			n, err := m.Count(ctx, tt.owner)
			require.NoError(t, err)
			assert.Zero(t, n)
		})
	}
	assert.Equal(t, 3, store.Count(types.TypePart), "elements are kept")
}

func TestSummaries(t *testing.T) {
	m, store := setupManager(t, types.Config{})
	ctx := context.Background()
	owner, ids := partArray(store, "bracket", "hinge")
	store.Remove(types.TypePart, ids[1])

	view, err := m.Summaries(ctx, owner)
	require.NoError(t, err)
	require.Len(t, view, catalog.PartSlots)
	assert.Equal(t, Summary{Position: 1, ElementID: ids[0], Label: "bracket"}, view[0])
	assert.Equal(t, Summary{Position: 2, ElementID: ids[1]}, view[1])
	assert.True(t, view[2].Empty())
	assert.Equal(t, catalog.PartSlots, view[catalog.PartSlots-1].Position)
}
