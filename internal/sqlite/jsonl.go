package sqlite

import (
	"bufio"
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mesh-intelligence/powdertrack/pkg/types"
)

// SnapshotFile returns the JSONL file name holding the records of a table.
func SnapshotFile(table string) string {
	return table + ".jsonl"
}

// readJSONL reads a JSONL file and returns its non-empty lines. A line that
// is not valid JSON fails the read with its line number.
func readJSONL(path string) ([][]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines [][]byte
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	n := 0
	for scanner.Scan() {
		n++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if !json.Valid(line) {
			return nil, fmt.Errorf("%s:%d: malformed line: %w", filepath.Base(path), n, types.ErrInvalidData)
		}
		lines = append(lines, bytes.Clone(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}
	return lines, nil
}

// writeJSONL atomically writes lines to path using the temp-file, fsync,
// rename pattern.
func writeJSONL(path string, lines [][]byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".jsonl-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	w := bufio.NewWriter(tmp)
	for _, line := range lines {
		if _, err := w.Write(line); err != nil {
			return fmt.Errorf("writing record: %w", err)
		}
		if err := w.WriteByte('\n'); err != nil {
			return fmt.Errorf("writing newline: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing buffer: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// Export writes one JSONL file per entity type into dir. Each line is a
// JSON object holding the key column and every other column of one record,
// in ID order. It returns the number of records written.
func (b *Backend) Export(ctx context.Context, dir string) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return 0, types.ErrDetached
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create export dir: %w", err)
	}

	total := 0
	for _, t := range b.cat.Types() {
		tbl := b.tables[t]
		recs, err := tbl.list(ctx)
		if err != nil {
			return total, err
		}
		lines := make([][]byte, 0, len(recs))
		for _, rec := range recs {
			line, err := tbl.marshalLine(rec)
			if err != nil {
				return total, err
			}
			lines = append(lines, line)
		}
		if err := writeJSONL(filepath.Join(dir, SnapshotFile(tbl.schema.Table)), lines); err != nil {
			return total, fmt.Errorf("export %s: %w", t, err)
		}
		total += len(recs)
	}
	return total, nil
}

// Import loads the JSONL files written by Export from dir in one
// transaction. A missing file is treated as an empty table. Existing
// records with the same key are replaced; unknown fields are ignored.
// Foreign keys, when enforced, are checked once every file is loaded so
// files may load in any order. It returns the number of records loaded.
func (b *Backend) Import(ctx context.Context, dir string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return 0, types.ErrDetached
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning import transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "PRAGMA defer_foreign_keys = ON"); err != nil {
		return 0, fmt.Errorf("deferring foreign keys: %w", err)
	}

	total := 0
	for _, t := range b.cat.Types() {
		tbl := b.tables[t]
		path := filepath.Join(dir, SnapshotFile(tbl.schema.Table))
		lines, err := readJSONL(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("import %s: %w", t, err)
		}
		for i, line := range lines {
			cols, args, err := tbl.unmarshalLine(line)
			if err != nil {
				return 0, fmt.Errorf("%s:%d: %w", filepath.Base(path), i+1, err)
			}
			marks := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
			stmt := fmt.Sprintf("INSERT OR REPLACE INTO %s (%s) VALUES (%s)",
				quote(tbl.schema.Table), strings.Join(cols, ", "), marks)
			if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
				return 0, mapError(fmt.Sprintf("import %s:%d", filepath.Base(path), i+1), err)
			}
		}
		total += len(lines)
	}

	if b.config.EnforceForeignKeys {
		if err := foreignKeyCheck(ctx, tx); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, mapError("committing import", err)
	}
	return total, nil
}

// foreignKeyCheck reports the first dangling reference inside tx. It must
// run before Commit: a deferred check failing at commit leaves the
// transaction open on the connection.
func foreignKeyCheck(ctx context.Context, tx *sql.Tx) error {
	rows, err := tx.QueryContext(ctx, "PRAGMA foreign_key_check")
	if err != nil {
		return fmt.Errorf("checking foreign keys: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		var (
			table, parent string
			rowid, fkid   any
		)
		if err := rows.Scan(&table, &rowid, &parent, &fkid); err != nil {
			return fmt.Errorf("checking foreign keys: %w", err)
		}
		return fmt.Errorf("import: %s row %v references a missing %s row: %w", table, rowid, parent, types.ErrConflict)
	}
	return rows.Err()
}

// marshalLine renders rec as one JSONL object keyed by column name.
func (t *table) marshalLine(rec *types.Record) ([]byte, error) {
	obj := make(map[string]any, len(rec.Fields)+1)
	for k, v := range rec.Fields {
		obj[k] = v
	}
	if t.schema.KeyKind == types.KeyInteger {
		key, err := encodeKey(types.KeyInteger, rec.ID)
		if err != nil {
			return nil, fmt.Errorf("export %s: %w", rec.Ref(), err)
		}
		obj[t.schema.Key] = key
	} else {
		obj[t.schema.Key] = rec.ID
	}
	line, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("export %s: %w", rec.Ref(), err)
	}
	return line, nil
}

// unmarshalLine decodes one JSONL object into quoted column names and SQL
// values, key first.
func (t *table) unmarshalLine(line []byte) ([]string, []any, error) {
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", types.ErrInvalidData, err)
	}

	raw, ok := obj[t.schema.Key]
	if !ok || raw == nil {
		return nil, nil, fmt.Errorf("missing key %q: %w", t.schema.Key, types.ErrInvalidID)
	}
	id, ok := raw.(string)
	if !ok {
		id = fmt.Sprint(raw)
	}
	key, err := encodeKey(t.schema.KeyKind, id)
	if err != nil {
		return nil, nil, err
	}

	cols := []string{quote(t.schema.Key)}
	args := []any{key}
	for _, c := range t.schema.Columns {
		v, present := obj[c.Name]
		if !present {
			continue
		}
		enc, err := encodeValue(c, t.refKind[c.Name], v)
		if err != nil {
			return nil, nil, err
		}
		cols = append(cols, quote(c.Name))
		args = append(args, enc)
	}
	return cols, args, nil
}
