package guard

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/powdertrack/internal/deps"
	"github.com/mesh-intelligence/powdertrack/pkg/types"
)

// Report lists the records that reference a deletion target.
type Report struct {
	ScanID     uuid.UUID
	Target     types.Ref
	Dependents []deps.Dependency
	Deleted    bool
}

// Empty reports whether nothing references the target.
func (r *Report) Empty() bool {
	return len(r.Dependents) == 0
}

// Lines renders one "<Type> (ID <id>) - <field>" line per dependent.
func (r *Report) Lines() []string {
	out := make([]string, len(r.Dependents))
	for i, d := range r.Dependents {
		out[i] = d.String()
	}
	return out
}

// Restricting returns the dependents whose rule forbids the deletion.
func (r *Report) Restricting() []deps.Dependency {
	var out []deps.Dependency
	for _, d := range r.Dependents {
		if d.Rule.OnDelete == types.PolicyRestrict {
			out = append(out, d)
		}
	}
	return out
}

// String renders the report as a confirmation prompt body.
func (r *Report) String() string {
	var b strings.Builder
	if r.Empty() {
		fmt.Fprintf(&b, "%s is not referenced by any record.\n", r.Target)
		return b.String()
	}
	fmt.Fprintf(&b, "%s is referenced by %d record(s):\n", r.Target, len(r.Dependents))
	for _, d := range r.Dependents {
		b.WriteString("  ")
		b.WriteString(d.String())
		if d.Rule.OnDelete == types.PolicyRestrict {
			b.WriteString(" (restricts deletion)")
		}
		b.WriteByte('\n')
	}
	return b.String()
}
