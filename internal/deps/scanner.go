// Package deps finds the records that reference a given record.
//
// A Scanner walks the catalog's reference rules whose target is the queried
// type and issues one filtered, read-only query per reference column. Slot
// arrays expand to one query per slot column. Results are grouped by
// dependent type in rule-registration order, then by dependent ID, then by
// slot index.
package deps

import (
	"context"
	"fmt"
	"slices"

	"github.com/mesh-intelligence/powdertrack/internal/catalog"
	"github.com/mesh-intelligence/powdertrack/pkg/types"
)

// Dependency is one reference from a dependent record to the scanned one.
type Dependency struct {
	Ref   types.Ref
	Field string // column holding the reference; the slot column for slot rules
	Rule  types.ReferenceRule
	Slot  int // 0-based slot index, -1 for non-slot rules
}

// String renders the dependency as "<Type> (ID <id>) - <field>".
func (d Dependency) String() string {
	return fmt.Sprintf("%s (ID %s) - %s", d.Ref.Type, d.Ref.ID, d.Field)
}

// Scanner looks up dependents through an EntityStore.
type Scanner struct {
	cat   *catalog.Catalog
	store types.EntityStore
}

// NewScanner creates a Scanner over the catalog's rules.
func NewScanner(cat *catalog.Catalog, store types.EntityStore) *Scanner {
	return &Scanner{cat: cat, store: store}
}

// Find returns every record referencing (t, id). A type with no incoming
// rules yields an empty result without touching the store. Otherwise the
// target must exist; ErrNotFound is returned when it does not.
func (s *Scanner) Find(ctx context.Context, t types.EntityType, id types.ID) ([]Dependency, error) {
	rules := s.cat.RulesTo(t)
	if len(rules) == 0 {
		return nil, nil
	}
	if _, err := s.store.Get(ctx, t, id); err != nil {
		return nil, fmt.Errorf("scan dependents of %s: %w", types.Ref{Type: t, ID: id}, err)
	}

	var out []Dependency
	for _, group := range groupBySource(rules) {
		found, err := s.scanSource(ctx, group, id)
		if err != nil {
			return nil, err
		}
		out = append(out, found...)
	}
	return out, nil
}

// Has reports whether anything references (t, id).
func (s *Scanner) Has(ctx context.Context, t types.EntityType, id types.ID) (bool, error) {
	found, err := s.Find(ctx, t, id)
	if err != nil {
		return false, err
	}
	return len(found) > 0, nil
}

// groupBySource reorders rules so that rules sharing a source type are
// adjacent, keeping the position of each source's first rule.
func groupBySource(rules []types.ReferenceRule) [][]types.ReferenceRule {
	var groups [][]types.ReferenceRule
	index := make(map[types.EntityType]int)
	for _, r := range rules {
		i, ok := index[r.Source]
		if !ok {
			i = len(groups)
			index[r.Source] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], r)
	}
	return groups
}

// scanSource collects the dependents of one source type across all of its
// rules to the target, ordered by ID, then rule order, then slot.
func (s *Scanner) scanSource(ctx context.Context, rules []types.ReferenceRule, id types.ID) ([]Dependency, error) {
	type hit struct {
		dep  Dependency
		rule int
	}
	var hits []hit
	for ri, rule := range rules {
		for slot, col := range rule.Columns() {
			recs, err := s.store.Query(ctx, rule.Source, col, id)
			if err != nil {
				return nil, fmt.Errorf("scan %s: %w", rule, err)
			}
			if rule.Slots == nil {
				slot = -1
			}
			for _, rec := range recs {
				hits = append(hits, hit{
					dep:  Dependency{Ref: rec.Ref(), Field: col, Rule: rule, Slot: slot},
					rule: ri,
				})
			}
		}
	}
	slices.SortStableFunc(hits, func(a, b hit) int {
		if c := types.CompareIDs(a.dep.Ref.ID, b.dep.Ref.ID); c != 0 {
			return c
		}
		if a.rule != b.rule {
			return a.rule - b.rule
		}
		return a.dep.Slot - b.dep.Slot
	})
	out := make([]Dependency, len(hits))
	for i, h := range hits {
		out[i] = h.dep
	}
	return out, nil
}
