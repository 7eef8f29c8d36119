package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/powdertrack/internal/catalog"
	"github.com/mesh-intelligence/powdertrack/pkg/types"
)

// quote renders a SQL identifier.
func quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func keyAffinity(k types.KeyKind) string {
	if k == types.KeyText {
		return "TEXT"
	}
	return "INTEGER"
}

func columnAffinity(cat *catalog.Catalog, c types.Column) string {
	switch c.Kind {
	case types.ColumnInteger, types.ColumnBool:
		return "INTEGER"
	case types.ColumnReal:
		return "REAL"
	case types.ColumnRef:
		target, err := cat.Schema(c.Ref)
		if err != nil {
			return "INTEGER"
		}
		return keyAffinity(target.KeyKind)
	default:
		return "TEXT"
	}
}

// references renders the REFERENCES clause for a column pointing at t.
func references(cat *catalog.Catalog, t types.EntityType) string {
	target, err := cat.Schema(t)
	if err != nil {
		return ""
	}
	return fmt.Sprintf(" REFERENCES %s(%s)", quote(target.Table), quote(target.Key))
}

// createTableSQL generates the CREATE TABLE statement for one schema.
func createTableSQL(cat *catalog.Catalog, s types.TableSchema) string {
	var defs []string
	switch {
	case s.KeyKind == types.KeyInteger:
		defs = append(defs, quote(s.Key)+" INTEGER PRIMARY KEY AUTOINCREMENT")
	case s.KeyRef != "":
		defs = append(defs, quote(s.Key)+" TEXT PRIMARY KEY NOT NULL"+references(cat, s.KeyRef))
	default:
		defs = append(defs, quote(s.Key)+" TEXT PRIMARY KEY NOT NULL")
	}
	for _, c := range s.Columns {
		def := quote(c.Name) + " " + columnAffinity(cat, c)
		if !c.Nullable {
			def += " NOT NULL"
		}
		if c.Kind == types.ColumnRef {
			def += references(cat, c.Ref)
		}
		defs = append(defs, def)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n    %s\n);",
		quote(s.Table), strings.Join(defs, ",\n    "))
}

// createIndexSQL generates one index per non-slot reference column so that
// dependency scans do not walk whole tables.
func createIndexSQL(cat *catalog.Catalog, s types.TableSchema) []string {
	var stmts []string
	for _, rule := range cat.Rules() {
		if rule.Source != s.Type || rule.Slots != nil || rule.Field == s.Key {
			continue
		}
		stmts = append(stmts, fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s(%s);",
			quote("idx_"+s.Table+"_"+rule.Field), quote(s.Table), quote(rule.Field)))
	}
	return stmts
}

// SchemaSQL returns the full DDL for the catalog, tables in registration
// order followed by their indexes.
func SchemaSQL(cat *catalog.Catalog) []string {
	var stmts []string
	for _, t := range cat.Types() {
		s, _ := cat.Schema(t)
		stmts = append(stmts, createTableSQL(cat, s))
		stmts = append(stmts, createIndexSQL(cat, s)...)
	}
	return stmts
}

// createSchema executes the catalog DDL in one transaction.
func createSchema(db *sql.DB, cat *catalog.Catalog) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning schema transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range SchemaSQL(cat) {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing schema: %w", err)
	}
	return nil
}
