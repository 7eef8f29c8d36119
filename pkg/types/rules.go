package types

import "fmt"

// DeletePolicy decides what a reference does to a deletion of its target.
type DeletePolicy string

const (
	// PolicyWarn reports the reference and lets the deletion proceed.
	PolicyWarn DeletePolicy = "warn"
	// PolicyRestrict refuses the deletion while the reference exists.
	PolicyRestrict DeletePolicy = "restrict"
)

// Valid reports whether p is a known policy.
func (p DeletePolicy) Valid() bool {
	return p == PolicyWarn || p == PolicyRestrict
}

// ReferenceRule declares that Source.Field holds the key of a Target
// record. For slot-array rules Slots is set and Field is the slot prefix;
// every slot column of the array carries the reference.
type ReferenceRule struct {
	Source   EntityType
	Field    string
	Target   EntityType
	Nullable bool
	OnDelete DeletePolicy
	Slots    *SlotArraySpec
}

// Columns returns the store columns that carry this reference.
func (r ReferenceRule) Columns() []string {
	if r.Slots != nil {
		return r.Slots.Columns()
	}
	return []string{r.Field}
}

// String renders the rule as "Source.Field -> Target".
func (r ReferenceRule) String() string {
	return fmt.Sprintf("%s.%s -> %s", r.Source, r.Field, r.Target)
}

// CompactionScope selects which slot removals shift the array left.
type CompactionScope string

const (
	// ScopeMandatoryPrefix compacts on removal of any slot below
	// MinMandatorySlots.
	ScopeMandatoryPrefix CompactionScope = "mandatory_prefix"
	// ScopeFirstSlot compacts only on removal of slot 0. Removing any other
	// mandatory slot is rejected.
	ScopeFirstSlot CompactionScope = "first_slot"
)

// Valid reports whether s is a known scope.
func (s CompactionScope) Valid() bool {
	return s == ScopeMandatoryPrefix || s == ScopeFirstSlot
}

// SlotArraySpec describes Capacity ordered optional references from an
// owner to ElementType records, stored as columns Prefix_1..Prefix_N.
type SlotArraySpec struct {
	Owner             EntityType
	Prefix            string
	Capacity          int
	Element           EntityType
	MinMandatorySlots int
	Scope             CompactionScope
}

// Column returns the store column for the 0-based slot index.
func (s SlotArraySpec) Column(index int) string {
	return fmt.Sprintf("%s_%d", s.Prefix, index+1)
}

// Columns lists every slot column in slot order.
func (s SlotArraySpec) Columns() []string {
	cols := make([]string, s.Capacity)
	for i := range cols {
		cols[i] = s.Column(i)
	}
	return cols
}

// InRange reports whether index addresses a slot.
func (s SlotArraySpec) InRange(index int) bool {
	return index >= 0 && index < s.Capacity
}

// Mandatory reports whether index lies in the mandatory prefix.
func (s SlotArraySpec) Mandatory(index int) bool {
	return index >= 0 && index < s.MinMandatorySlots
}

// Compacts reports whether removing index shifts the following slots left.
func (s SlotArraySpec) Compacts(index int) bool {
	if !s.Mandatory(index) {
		return false
	}
	if s.Scope == ScopeFirstSlot {
		return index == 0
	}
	return true
}

// Check validates a full slot vector: it must have Capacity entries and,
// when anything is occupied, the mandatory prefix must be fully occupied.
func (s SlotArraySpec) Check(slots []ID) error {
	if len(slots) != s.Capacity {
		return fmt.Errorf("%s.%s: %d slots, want %d: %w",
			s.Owner, s.Prefix, len(slots), s.Capacity, ErrInvalidData)
	}
	if s.MinMandatorySlots == 0 {
		return nil
	}
	gap := -1
	for i := 0; i < s.MinMandatorySlots; i++ {
		if slots[i] == "" {
			gap = i
			break
		}
	}
	if gap < 0 {
		return nil
	}
	for i := s.MinMandatorySlots; i < s.Capacity; i++ {
		if slots[i] != "" {
			return fmt.Errorf("%s.%s: slot %d occupied while mandatory slot %d is empty: %w",
				s.Owner, s.Prefix, i+1, gap+1, ErrValidation)
		}
	}
	for i := gap; i < s.MinMandatorySlots; i++ {
		if slots[i] != "" {
			return fmt.Errorf("%s.%s: mandatory slot %d occupied after empty slot %d: %w",
				s.Owner, s.Prefix, i+1, gap+1, ErrValidation)
		}
	}
	return nil
}
