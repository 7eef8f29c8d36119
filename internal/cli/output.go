package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/mesh-intelligence/powdertrack/pkg/types"
)

// recordView is the JSON shape of a record.
type recordView struct {
	Type   types.EntityType `json:"type"`
	ID     types.ID         `json:"id"`
	Fields map[string]any   `json:"fields"`
}

func viewOf(rec *types.Record) recordView {
	return recordView{Type: rec.Type, ID: rec.ID, Fields: rec.Fields}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printRecord writes "Type#id" followed by one "  field: value" line per
// non-null field in name order.
func printRecord(w io.Writer, rec *types.Record) {
	fmt.Fprintln(w, rec.Ref())
	names := make([]string, 0, len(rec.Fields))
	for name, v := range rec.Fields {
		if v != nil {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %s: %s\n", name, formatValue(rec.Fields[name]))
	}
}

func formatValue(v any) string {
	switch x := v.(type) {
	case time.Time:
		return x.Format(time.RFC3339)
	case []any, map[string]any:
		data, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(data)
	default:
		return fmt.Sprint(x)
	}
}
