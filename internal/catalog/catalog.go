// Package catalog holds the static, process-wide description of the record
// store: table schemas, the closed set of reference rules in registration
// order, and the slot-array specs. A Catalog is built once at startup and
// is read-only afterwards.
package catalog

import (
	"fmt"

	"github.com/mesh-intelligence/powdertrack/pkg/types"
)

// Catalog indexes schemas, reference rules and slot arrays.
type Catalog struct {
	order    []types.EntityType
	schemas  map[types.EntityType]types.TableSchema
	rules    []types.ReferenceRule
	byTarget map[types.EntityType][]types.ReferenceRule
	slots    map[types.EntityType]types.SlotArraySpec
}

// New creates an empty Catalog.
func New() *Catalog {
	return &Catalog{
		schemas:  make(map[types.EntityType]types.TableSchema),
		byTarget: make(map[types.EntityType][]types.ReferenceRule),
		slots:    make(map[types.EntityType]types.SlotArraySpec),
	}
}

// AddTable registers the schema of one entity type.
func (c *Catalog) AddTable(s types.TableSchema) {
	if _, ok := c.schemas[s.Type]; !ok {
		c.order = append(c.order, s.Type)
	}
	c.schemas[s.Type] = s
}

// AddSlotArray registers a slot array and appends its slot columns to the
// owner's schema. The owner table must already be registered.
func (c *Catalog) AddSlotArray(spec types.SlotArraySpec) {
	if spec.Scope == "" {
		spec.Scope = types.ScopeMandatoryPrefix
	}
	c.slots[spec.Owner] = spec
	s := c.schemas[spec.Owner]
	for _, col := range spec.Columns() {
		s.Columns = append(s.Columns, types.Column{
			Name:     col,
			Kind:     types.ColumnRef,
			Nullable: true,
			Ref:      spec.Element,
		})
	}
	c.schemas[spec.Owner] = s
}

// Register appends a reference rule. Rules keep registration order, which
// is the order dependents are grouped in reports. A rule with Slots set
// must name a registered slot array; Register links it to the catalog's
// copy of that spec.
func (c *Catalog) Register(rule types.ReferenceRule) {
	if rule.OnDelete == "" {
		rule.OnDelete = types.PolicyWarn
	}
	if rule.Slots != nil {
		if spec, ok := c.slots[rule.Source]; ok {
			rule.Slots = &spec
		}
	}
	c.rules = append(c.rules, rule)
	c.byTarget[rule.Target] = append(c.byTarget[rule.Target], rule)
}

// Types returns every registered entity type in registration order.
func (c *Catalog) Types() []types.EntityType {
	return c.order
}

// Schema returns the schema for t.
func (c *Catalog) Schema(t types.EntityType) (types.TableSchema, error) {
	s, ok := c.schemas[t]
	if !ok {
		return types.TableSchema{}, fmt.Errorf("%q: %w", t, types.ErrUnknownType)
	}
	return s, nil
}

// Rules returns every reference rule in registration order.
func (c *Catalog) Rules() []types.ReferenceRule {
	return c.rules
}

// RulesTo returns the rules whose target is t, in registration order.
func (c *Catalog) RulesTo(t types.EntityType) []types.ReferenceRule {
	return c.byTarget[t]
}

// HasDependents reports whether any rule targets t.
func (c *Catalog) HasDependents(t types.EntityType) bool {
	return len(c.byTarget[t]) > 0
}

// SlotArray returns the slot-array spec owned by t.
func (c *Catalog) SlotArray(owner types.EntityType) (types.SlotArraySpec, error) {
	spec, ok := c.slots[owner]
	if !ok {
		return types.SlotArraySpec{}, fmt.Errorf("%q has no slot array: %w", owner, types.ErrUnknownType)
	}
	return spec, nil
}

// SlotArrays returns every slot-array spec in owner registration order.
func (c *Catalog) SlotArrays() []types.SlotArraySpec {
	var specs []types.SlotArraySpec
	for _, t := range c.order {
		if spec, ok := c.slots[t]; ok {
			specs = append(specs, spec)
		}
	}
	return specs
}

// Apply returns a copy of the catalog with the config's delete policy set
// on every non-nullable rule and its compaction scope set on every slot
// array with a mandatory prefix.
func (c *Catalog) Apply(cfg types.Config) *Catalog {
	out := New()
	for _, t := range c.order {
		out.AddTable(c.schemas[t])
	}
	for t, spec := range c.slots {
		if spec.MinMandatorySlots > 0 {
			spec.Scope = cfg.GetCompactionScope()
		}
		out.slots[t] = spec
	}
	for _, rule := range c.rules {
		if !rule.Nullable {
			rule.OnDelete = cfg.GetDeletePolicy()
		}
		out.Register(rule)
	}
	return out
}
