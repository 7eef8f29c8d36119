package catalog

import (
	"errors"
	"fmt"

	"github.com/mesh-intelligence/powdertrack/pkg/types"
)

// ErrInvalidCatalog is returned by Validate.
var ErrInvalidCatalog = errors.New("invalid catalog")

// Validate checks that the rule set is closed over the schemas: every rule
// names registered types and an existing reference column, no column is
// claimed by two rules, and every reference column is claimed by exactly
// one rule. Slot-array specs must be well-formed.
func (c *Catalog) Validate() error {
	for _, spec := range c.SlotArrays() {
		if err := validateSlotArray(spec); err != nil {
			return err
		}
	}

	claimed := make(map[string]types.ReferenceRule)
	for _, rule := range c.rules {
		if _, ok := c.schemas[rule.Target]; !ok {
			return fmt.Errorf("rule %s: target %q not registered: %w", rule, rule.Target, ErrInvalidCatalog)
		}
		src, ok := c.schemas[rule.Source]
		if !ok {
			return fmt.Errorf("rule %s: source %q not registered: %w", rule, rule.Source, ErrInvalidCatalog)
		}
		if !rule.OnDelete.Valid() {
			return fmt.Errorf("rule %s: delete policy %q: %w", rule, rule.OnDelete, ErrInvalidCatalog)
		}
		if rule.Slots != nil {
			spec, ok := c.slots[rule.Source]
			if !ok || spec.Prefix != rule.Field || spec.Element != rule.Target {
				return fmt.Errorf("rule %s: no matching slot array: %w", rule, ErrInvalidCatalog)
			}
		} else if err := c.checkRuleColumn(src, rule); err != nil {
			return err
		}
		for _, col := range rule.Columns() {
			key := string(rule.Source) + "." + col
			if prev, dup := claimed[key]; dup {
				return fmt.Errorf("column %s claimed by %s and %s: %w", key, prev, rule, ErrInvalidCatalog)
			}
			claimed[key] = rule
		}
	}

	for _, t := range c.order {
		s := c.schemas[t]
		if s.KeyRef != "" {
			if _, ok := claimed[string(t)+"."+s.Key]; !ok {
				return fmt.Errorf("key %s.%s references %s without a rule: %w", t, s.Key, s.KeyRef, ErrInvalidCatalog)
			}
		}
		for _, col := range s.Columns {
			if col.Kind != types.ColumnRef {
				continue
			}
			if _, ok := claimed[string(t)+"."+col.Name]; !ok {
				return fmt.Errorf("column %s.%s references %s without a rule: %w", t, col.Name, col.Ref, ErrInvalidCatalog)
			}
		}
	}
	return nil
}

func (c *Catalog) checkRuleColumn(src types.TableSchema, rule types.ReferenceRule) error {
	if rule.Field == src.Key {
		if src.KeyRef != rule.Target {
			return fmt.Errorf("rule %s: key does not reference %s: %w", rule, rule.Target, ErrInvalidCatalog)
		}
		if rule.Nullable {
			return fmt.Errorf("rule %s: a key reference cannot be nullable: %w", rule, ErrInvalidCatalog)
		}
		return nil
	}
	col, ok := src.Column(rule.Field)
	if !ok {
		return fmt.Errorf("rule %s: no column %q: %w", rule, rule.Field, ErrInvalidCatalog)
	}
	if col.Kind != types.ColumnRef || col.Ref != rule.Target {
		return fmt.Errorf("rule %s: column is not a reference to %s: %w", rule, rule.Target, ErrInvalidCatalog)
	}
	if col.Nullable != rule.Nullable {
		return fmt.Errorf("rule %s: nullable=%t but column nullable=%t: %w", rule, rule.Nullable, col.Nullable, ErrInvalidCatalog)
	}
	return nil
}

func validateSlotArray(spec types.SlotArraySpec) error {
	if spec.Capacity <= 0 {
		return fmt.Errorf("slot array %s.%s: capacity %d: %w", spec.Owner, spec.Prefix, spec.Capacity, ErrInvalidCatalog)
	}
	if spec.MinMandatorySlots < 0 || spec.MinMandatorySlots > spec.Capacity {
		return fmt.Errorf("slot array %s.%s: %d mandatory slots: %w", spec.Owner, spec.Prefix, spec.MinMandatorySlots, ErrInvalidCatalog)
	}
	if !spec.Scope.Valid() {
		return fmt.Errorf("slot array %s.%s: scope %q: %w", spec.Owner, spec.Prefix, spec.Scope, ErrInvalidCatalog)
	}
	return nil
}
