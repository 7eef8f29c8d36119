package types

import "context"

// EntityStore provides uniform record access over every entity type.
// Implementations report ErrNotFound, ErrUnknownType and ErrUnknownField
// wrapped with context; callers match with errors.Is.
type EntityStore interface {
	// Get returns the record with the given ID.
	// Returns ErrNotFound if no such record exists.
	Get(ctx context.Context, t EntityType, id ID) (*Record, error)

	// Query returns every record of type t whose field equals value,
	// ordered by ID ascending. A nil value matches NULL.
	Query(ctx context.Context, t EntityType, field string, value any) ([]*Record, error)

	// Save persists every field present in rec.Fields in one atomic write.
	// An empty rec.ID inserts a new record and sets rec.ID to the generated
	// key. A non-empty ID updates the record, inserting it if absent.
	Save(ctx context.Context, rec *Record) error

	// Delete removes one record. Returns ErrNotFound if it does not exist
	// and ErrConflict if the store's own constraints forbid the delete.
	Delete(ctx context.Context, t EntityType, id ID) error
}
