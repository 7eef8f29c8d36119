package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	sqlitedrv "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/mesh-intelligence/powdertrack/pkg/types"
)

// isConstraint reports whether err is a SQLite constraint violation
// (foreign key, not null, unique, primary key or check).
func isConstraint(err error) bool {
	var se *sqlitedrv.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
}

// mapError translates driver errors into store sentinels. op names the
// failed operation for the error message.
func mapError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("%s: %w", op, types.ErrNotFound)
	case isConstraint(err):
		return fmt.Errorf("%s: %w: %v", op, types.ErrConflict, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
