package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/powdertrack/pkg/types"
)

func save(t *testing.T, b *Backend, typ types.EntityType, id types.ID, fields map[string]any) types.ID {
	t.Helper()
	rec := &types.Record{Type: typ, ID: id, Fields: fields}
	require.NoError(t, b.Save(context.Background(), rec))
	return rec.ID
}

func TestTable_InsertAndGet(t *testing.T) {
	b := setupBackend(t, false)
	ctx := context.Background()

	id := save(t, b, types.TypeCoupon, "", map[string]any{
		"name":        "tensile-x",
		"description": "tensile bar",
		"is_preset":   true,
		"x_position":  12.5,
		"direction":   "X",
	})
	assert.Equal(t, "1", id)

	got, err := b.Get(ctx, types.TypeCoupon, id)
	require.NoError(t, err)
	assert.Equal(t, "tensile-x", got.Fields["name"])
	assert.Equal(t, true, got.Fields["is_preset"])
	assert.Equal(t, 12.5, got.Fields["x_position"])
	assert.Nil(t, got.Fields["y_position"])
}

func TestTable_TextKeyAndTimestamps(t *testing.T) {
	b := setupBackend(t, false)
	ctx := context.Background()
	when := time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC)

	save(t, b, types.TypePowder, "AL-7-1-0", map[string]any{
		"init_date_time": when,
		"mat_id":         "AL",
		"subgroup":       1,
		"quantity":       20,
	})
	got, err := b.Get(ctx, types.TypePowder, "AL-7-1-0")
	require.NoError(t, err)
	assert.Equal(t, "AL-7-1-0", got.ID)
	assert.True(t, when.Equal(got.Fields["init_date_time"].(time.Time)))
	assert.Equal(t, int64(1), got.Fields["subgroup"])
	assert.Equal(t, 20.0, got.Fields["quantity"])

	err = b.Save(ctx, &types.Record{Type: types.TypePowder, Fields: map[string]any{"mat_id": "AL"}})
	assert.ErrorIs(t, err, types.ErrInvalidID)
}

func TestTable_JSONColumns(t *testing.T) {
	b := setupBackend(t, false)
	id := save(t, b, types.TypePlate, "", map[string]any{
		"material":        "316L",
		"stamped_heights": []any{25.4, 24.9},
	})
	got, err := b.Get(context.Background(), types.TypePlate, id)
	require.NoError(t, err)
	assert.Equal(t, []any{25.4, 24.9}, got.Fields["stamped_heights"])
	assert.Nil(t, got.Fields["foreign_keys_list"])
}

func TestTable_PartialUpdate(t *testing.T) {
	b := setupBackend(t, false)
	ctx := context.Background()
	id := save(t, b, types.TypePart, "", map[string]any{"name": "bracket", "file_path": "/parts/b.stl"})

	save(t, b, types.TypePart, id, map[string]any{"is_complete": true})

	got, err := b.Get(ctx, types.TypePart, id)
	require.NoError(t, err)
	assert.Equal(t, "bracket", got.Fields["name"])
	assert.Equal(t, "/parts/b.stl", got.Fields["file_path"])
	assert.Equal(t, true, got.Fields["is_complete"])
}

func TestTable_SaveErrors(t *testing.T) {
	b := setupBackend(t, false)
	ctx := context.Background()

	tests := []struct {
		name    string
		rec     *types.Record
		wantErr error
	}{
		{
			name:    "unknown field",
			rec:     &types.Record{Type: types.TypePart, Fields: map[string]any{"colour": "red"}},
			wantErr: types.ErrUnknownField,
		},
		{
			name:    "wrong value type",
			rec:     &types.Record{Type: types.TypePart, Fields: map[string]any{"is_complete": "yes"}},
			wantErr: types.ErrInvalidData,
		},
		{
			name:    "missing not null column",
			rec:     &types.Record{Type: types.TypePlate, Fields: map[string]any{"description": "no material"}},
			wantErr: types.ErrConflict,
		},
		{
			name:    "non numeric integer key",
			rec:     &types.Record{Type: types.TypePart, ID: "abc", Fields: map[string]any{"name": "x"}},
			wantErr: types.ErrInvalidID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := b.Save(ctx, tt.rec)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestTable_Query(t *testing.T) {
	b := setupBackend(t, false)
	ctx := context.Background()

	for i := 0; i < 11; i++ {
		save(t, b, types.TypeWorkOrder, "", map[string]any{
			"name": "wo", "description": "", "pvid": i,
		})
	}
	save(t, b, types.TypeWorkOrder, "2", map[string]any{"parent": "1"})
	save(t, b, types.TypeWorkOrder, "10", map[string]any{"parent": "1"})
	save(t, b, types.TypeWorkOrder, "9", map[string]any{"parent": 1})

	recs, err := b.Query(ctx, types.TypeWorkOrder, "parent", "1")
	require.NoError(t, err)
	var ids []string
	for _, r := range recs {
		ids = append(ids, r.ID)
		assert.Equal(t, "1", r.Fields["parent"])
	}
	assert.Equal(t, []string{"2", "9", "10"}, ids)

	roots, err := b.Query(ctx, types.TypeWorkOrder, "parent", nil)
	require.NoError(t, err)
	assert.Len(t, roots, 8)

	none, err := b.Query(ctx, types.TypeWorkOrder, "parent", "not-a-number")
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = b.Query(ctx, types.TypeWorkOrder, "colour", "red")
	assert.ErrorIs(t, err, types.ErrUnknownField)

	all, err := b.List(ctx, types.TypeWorkOrder)
	require.NoError(t, err)
	assert.Len(t, all, 11)
}

func TestTable_Delete(t *testing.T) {
	b := setupBackend(t, false)
	ctx := context.Background()
	id := save(t, b, types.TypePlate, "", map[string]any{"material": "Ti64"})

	require.NoError(t, b.Delete(ctx, types.TypePlate, id))
	_, err := b.Get(ctx, types.TypePlate, id)
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.ErrorIs(t, b.Delete(ctx, types.TypePlate, id), types.ErrNotFound)
	assert.ErrorIs(t, b.Delete(ctx, types.TypePlate, "xyz"), types.ErrNotFound)
}

func TestTable_ForeignKeyEnforcement(t *testing.T) {
	ctx := context.Background()

	t.Run("enforced", func(t *testing.T) {
		b := setupBackend(t, true)
		parent := save(t, b, types.TypeWorkOrder, "", map[string]any{"name": "root", "description": "", "pvid": 1})
		save(t, b, types.TypeWorkOrder, "", map[string]any{"name": "child", "description": "", "pvid": 2, "parent": parent})

		err := b.Delete(ctx, types.TypeWorkOrder, parent)
		assert.ErrorIs(t, err, types.ErrConflict)

		err = b.Save(ctx, &types.Record{Type: types.TypeWorkOrder, Fields: map[string]any{
			"name": "orphan", "description": "", "pvid": 3, "parent": "404",
		}})
		assert.ErrorIs(t, err, types.ErrConflict)
	})

	t.Run("advisory", func(t *testing.T) {
		b := setupBackend(t, false)
		parent := save(t, b, types.TypeWorkOrder, "", map[string]any{"name": "root", "description": "", "pvid": 1})
		save(t, b, types.TypeWorkOrder, "", map[string]any{"name": "child", "description": "", "pvid": 2, "parent": parent})

		assert.NoError(t, b.Delete(ctx, types.TypeWorkOrder, parent))
	})
}

func TestTable_SlotColumns(t *testing.T) {
	b := setupBackend(t, false)
	ctx := context.Background()
	coupon := save(t, b, types.TypeCoupon, "", map[string]any{
		"name": "c", "description": "", "is_preset": false, "direction": "Z",
	})
	arr := save(t, b, types.TypeCouponArray, "", map[string]any{"coupon_1": coupon, "coupon_256": coupon})

	got, err := b.Get(ctx, types.TypeCouponArray, arr)
	require.NoError(t, err)
	assert.Equal(t, coupon, got.RefField("coupon_1"))
	assert.Equal(t, coupon, got.RefField("coupon_256"))
	assert.Equal(t, "", got.RefField("coupon_2"))

	recs, err := b.Query(ctx, types.TypeCouponArray, "coupon_256", coupon)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, arr, recs[0].ID)
}
