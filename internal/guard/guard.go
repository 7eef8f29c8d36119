// Package guard gates record deletion behind a dependency scan.
//
// Deletion is two-phase. CheckDeletable scans for referencing records and
// returns a Report without touching the store. ConfirmAndDelete scans
// again and deletes only when the caller has confirmed. References are
// advisory unless their rule carries PolicyRestrict, in which case the
// deletion is refused with ErrRestricted.
package guard

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/powdertrack/internal/catalog"
	"github.com/mesh-intelligence/powdertrack/internal/deps"
	"github.com/mesh-intelligence/powdertrack/pkg/types"
)

// Guard is the single path through which records are deleted.
type Guard struct {
	scanner *deps.Scanner
	store   types.EntityStore
	logger  *slog.Logger
}

// New creates a Guard. A nil logger uses slog.Default().
func New(cat *catalog.Catalog, store types.EntityStore, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{
		scanner: deps.NewScanner(cat, store),
		store:   store,
		logger:  logger,
	}
}

// CheckDeletable reports every record referencing (t, id). It never
// mutates the store.
func (g *Guard) CheckDeletable(ctx context.Context, t types.EntityType, id types.ID) (*Report, error) {
	scanID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate scan id: %w", err)
	}
	target := types.Ref{Type: t, ID: id}
	found, err := g.scanner.Find(ctx, t, id)
	if err != nil {
		return nil, err
	}
	report := &Report{ScanID: scanID, Target: target, Dependents: found}
	g.logger.Info("deletion check",
		"type", string(t),
		"id", id,
		"scan_id", scanID.String(),
		"dependents", len(found),
	)
	return report, nil
}

// ConfirmAndDelete rescans (t, id) and deletes it when confirmed is true.
// The returned report reflects the rescan and has Deleted set on success.
// A record that disappeared since the caller's check yields ErrNotFound.
// Restricting references yield ErrRestricted, confirmed or not, and the
// record is kept.
func (g *Guard) ConfirmAndDelete(ctx context.Context, t types.EntityType, id types.ID, confirmed bool) (*Report, error) {
	report, err := g.CheckDeletable(ctx, t, id)
	if err != nil {
		return nil, err
	}
	if blocking := report.Restricting(); len(blocking) > 0 {
		g.logger.Warn("deletion restricted",
			"type", string(t),
			"id", id,
			"scan_id", report.ScanID.String(),
			"restricting", len(blocking),
		)
		return report, fmt.Errorf("delete %s: %d restricting reference(s): %w",
			report.Target, len(blocking), types.ErrRestricted)
	}
	if !confirmed {
		g.logger.Info("deletion not confirmed",
			"type", string(t),
			"id", id,
			"scan_id", report.ScanID.String(),
		)
		return report, nil
	}
	if err := g.store.Delete(ctx, t, id); err != nil {
		return report, fmt.Errorf("delete %s: %w", report.Target, err)
	}
	report.Deleted = true
	g.logger.Info("record deleted",
		"type", string(t),
		"id", id,
		"scan_id", report.ScanID.String(),
		"dependents", len(report.Dependents),
	)
	return report, nil
}
