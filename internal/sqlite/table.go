package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/mesh-intelligence/powdertrack/pkg/types"
)

// table reads and writes one entity type. Every column of the schema is
// selected and hydrated into a field map; saves write only the fields the
// record carries.
type table struct {
	backend *Backend
	schema  types.TableSchema
	refKind map[string]types.KeyKind // key kind of the referenced table per reference column
	selectC string                   // quoted select list, key first
}

func newTable(b *Backend, s types.TableSchema) *table {
	t := &table{backend: b, schema: s, refKind: make(map[string]types.KeyKind)}
	cols := []string{quote(s.Key)}
	for _, c := range s.Columns {
		cols = append(cols, quote(c.Name))
		if c.Kind == types.ColumnRef {
			if target, err := b.cat.Schema(c.Ref); err == nil {
				t.refKind[c.Name] = target.KeyKind
			}
		}
	}
	t.selectC = strings.Join(cols, ", ")
	return t
}

func (t *table) ref(id types.ID) types.Ref {
	return types.Ref{Type: t.schema.Type, ID: id}
}

// scan hydrates the current row.
func (t *table) scan(rows interface{ Scan(...any) error }) (*types.Record, error) {
	vals := make([]any, len(t.schema.Columns)+1)
	ptrs := make([]any, len(vals))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}
	rec := &types.Record{
		Type:   t.schema.Type,
		ID:     decodeKey(vals[0]),
		Fields: make(map[string]any, len(t.schema.Columns)),
	}
	for i, c := range t.schema.Columns {
		v, err := decodeValue(c, vals[i+1])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", rec.Ref(), err)
		}
		rec.Fields[c.Name] = v
	}
	return rec, nil
}

func (t *table) get(ctx context.Context, id types.ID) (*types.Record, error) {
	key, err := encodeKey(t.schema.KeyKind, id)
	if err != nil {
		if errors.Is(err, types.ErrInvalidID) && id != "" {
			// A non-numeric ID can never name an integer-keyed row.
			return nil, fmt.Errorf("get %s: %w", t.ref(id), types.ErrNotFound)
		}
		return nil, err
	}
	row := t.backend.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?", t.selectC, quote(t.schema.Table), quote(t.schema.Key)),
		key,
	)
	rec, err := t.scan(row)
	if err != nil {
		return nil, mapError("get "+t.ref(id).String(), err)
	}
	return rec, nil
}

func (t *table) query(ctx context.Context, field string, value any) ([]*types.Record, error) {
	var (
		cond string
		args []any
	)
	switch {
	case field == t.schema.Key:
		id, ok := value.(string)
		if !ok {
			id = fmt.Sprint(value)
		}
		key, err := encodeKey(t.schema.KeyKind, id)
		if err != nil {
			return nil, nil
		}
		cond, args = quote(field)+" = ?", []any{key}
	default:
		c, ok := t.schema.Column(field)
		if !ok {
			return nil, fmt.Errorf("query %s.%s: %w", t.schema.Type, field, types.ErrUnknownField)
		}
		if value == nil {
			cond = quote(field) + " IS NULL"
			break
		}
		v, err := encodeValue(c, t.refKind[field], value)
		if err != nil {
			if c.Kind == types.ColumnRef && errors.Is(err, types.ErrInvalidID) {
				// No row can hold an ID of the wrong key kind.
				return nil, nil
			}
			return nil, err
		}
		cond, args = quote(field)+" = ?", []any{v}
	}
	return t.selectWhere(ctx, cond, args...)
}

func (t *table) list(ctx context.Context) ([]*types.Record, error) {
	return t.selectWhere(ctx, "1 = 1")
}

func (t *table) selectWhere(ctx context.Context, cond string, args ...any) ([]*types.Record, error) {
	rows, err := t.backend.db.QueryContext(ctx,
		fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY %s", t.selectC, quote(t.schema.Table), cond, quote(t.schema.Key)),
		args...,
	)
	if err != nil {
		return nil, mapError("query "+string(t.schema.Type), err)
	}
	defer rows.Close()

	var out []*types.Record
	for rows.Next() {
		rec, err := t.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", t.schema.Type, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("query "+string(t.schema.Type), err)
	}
	slices.SortStableFunc(out, func(a, b *types.Record) int {
		return types.CompareIDs(a.ID, b.ID)
	})
	return out, nil
}

// save writes rec in one transaction. An empty ID inserts and assigns the
// generated key; otherwise the row is updated, or inserted when absent.
func (t *table) save(ctx context.Context, rec *types.Record) error {
	names := make([]string, 0, len(rec.Fields))
	for name := range rec.Fields {
		if _, ok := t.schema.Column(name); !ok {
			return fmt.Errorf("save %s.%s: %w", rec.Type, name, types.ErrUnknownField)
		}
		names = append(names, name)
	}
	slices.Sort(names)

	cols := make([]string, len(names))
	args := make([]any, len(names))
	for i, name := range names {
		c, _ := t.schema.Column(name)
		v, err := encodeValue(c, t.refKind[name], rec.Fields[name])
		if err != nil {
			return fmt.Errorf("save %s: %w", t.ref(rec.ID), err)
		}
		cols[i], args[i] = quote(name), v
	}

	tx, err := t.backend.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if rec.ID == "" {
		if t.schema.KeyKind != types.KeyInteger {
			return fmt.Errorf("save %s: key %q is required: %w", rec.Type, t.schema.Key, types.ErrInvalidID)
		}
		id, err := t.insert(ctx, tx, cols, args)
		if err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return mapError("committing "+string(rec.Type), err)
		}
		rec.ID = strconv.FormatInt(id, 10)
		return nil
	}

	key, err := encodeKey(t.schema.KeyKind, rec.ID)
	if err != nil {
		return fmt.Errorf("save %s: %w", t.ref(rec.ID), err)
	}
	var exists int
	err = tx.QueryRowContext(ctx,
		fmt.Sprintf("SELECT 1 FROM %s WHERE %s = ?", quote(t.schema.Table), quote(t.schema.Key)), key,
	).Scan(&exists)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := t.insert(ctx, tx, append([]string{quote(t.schema.Key)}, cols...), append([]any{key}, args...)); err != nil {
			return err
		}
	case err != nil:
		return mapError("checking "+t.ref(rec.ID).String(), err)
	case len(cols) > 0:
		sets := make([]string, len(cols))
		for i, c := range cols {
			sets[i] = c + " = ?"
		}
		_, err = tx.ExecContext(ctx,
			fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?", quote(t.schema.Table), strings.Join(sets, ", "), quote(t.schema.Key)),
			append(args, key)...,
		)
		if err != nil {
			return mapError("update "+t.ref(rec.ID).String(), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return mapError("committing "+t.ref(rec.ID).String(), err)
	}
	return nil
}

func (t *table) insert(ctx context.Context, tx *sql.Tx, cols []string, args []any) (int64, error) {
	var stmt string
	if len(cols) == 0 {
		stmt = fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", quote(t.schema.Table))
	} else {
		marks := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
		stmt = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", quote(t.schema.Table), strings.Join(cols, ", "), marks)
	}
	res, err := tx.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, mapError("insert "+string(t.schema.Type), err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading new %s id: %w", t.schema.Type, err)
	}
	return id, nil
}

func (t *table) delete(ctx context.Context, id types.ID) error {
	key, err := encodeKey(t.schema.KeyKind, id)
	if err != nil {
		if id != "" {
			return fmt.Errorf("delete %s: %w", t.ref(id), types.ErrNotFound)
		}
		return err
	}
	res, err := t.backend.db.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE %s = ?", quote(t.schema.Table), quote(t.schema.Key)), key,
	)
	if err != nil {
		return mapError("delete "+t.ref(id).String(), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s: %w", t.ref(id), err)
	}
	if n == 0 {
		return fmt.Errorf("delete %s: %w", t.ref(id), types.ErrNotFound)
	}
	return nil
}
