package cli

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/powdertrack/pkg/types"
)

func newGetCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "get <type> <id>",
		Short: "Show one record",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, f)
			if err != nil {
				return err
			}
			defer a.close()

			ref, err := a.parseRef(args[0], args[1])
			if err != nil {
				return err
			}
			rec, err := a.backend.Get(cmd.Context(), ref.Type, ref.ID)
			if err != nil {
				return err
			}
			if a.json {
				return printJSON(cmd.OutOrStdout(), viewOf(rec))
			}
			printRecord(cmd.OutOrStdout(), rec)
			return nil
		},
	}
}

func newListCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list <type>",
		Short: "List every record of a type",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, f)
			if err != nil {
				return err
			}
			defer a.close()

			t, err := a.parseType(args[0])
			if err != nil {
				return err
			}
			recs, err := a.backend.List(cmd.Context(), t)
			if err != nil {
				return err
			}
			if a.json {
				views := make([]recordView, len(recs))
				for i, rec := range recs {
					views[i] = viewOf(rec)
				}
				return printJSON(cmd.OutOrStdout(), views)
			}
			for _, rec := range recs {
				printRecord(cmd.OutOrStdout(), rec)
			}
			return nil
		},
	}
}

func newSetCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "set <type> <id|-> <json-fields>",
		Short: "Create or update a record",
		Long: "Write the fields of the JSON object to the record. An id of \"-\" creates\n" +
			"a record with a generated id. Only the given fields are written.\n\n" +
			"  powdertrack set Plate - '{\"material\": \"Ti64\"}'",
		Args: exactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, f)
			if err != nil {
				return err
			}
			defer a.close()

			t, err := a.parseType(args[0])
			if err != nil {
				return err
			}
			fields, err := decodeFields(args[2])
			if err != nil {
				return err
			}
			id := args[1]
			if id == "-" {
				id = ""
			}
			rec := &types.Record{Type: t, ID: id, Fields: fields}
			if err := a.backend.Save(cmd.Context(), rec); err != nil {
				return err
			}
			if a.json {
				return printJSON(cmd.OutOrStdout(), map[string]string{"id": rec.ID})
			}
			fmt.Fprintln(cmd.OutOrStdout(), rec.Ref())
			return nil
		},
	}
}

// decodeFields parses a JSON object, keeping numbers as json.Number so
// integer columns survive without float rounding.
func decodeFields(s string) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewBufferString(s))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("fields must be a JSON object: %v: %w", err, types.ErrInvalidData)
	}
	if fields == nil {
		return nil, fmt.Errorf("fields must be a JSON object: %w", types.ErrInvalidData)
	}
	return fields, nil
}
