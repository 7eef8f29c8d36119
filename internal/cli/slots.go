package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/powdertrack/internal/slots"
	"github.com/mesh-intelligence/powdertrack/pkg/types"
)

// slotView is the JSON shape of one occupied slot.
type slotView struct {
	Position  int      `json:"position"`
	ElementID types.ID `json:"element_id"`
	Label     string   `json:"label,omitempty"`
}

func newSlotsCmd(f *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slots",
		Short: "Inspect and edit coupon and part slot arrays",
		Long: "Slot positions are 1-based, matching the coupon_N and part_N columns.\n" +
			"Owners are CouponArray and PartArray records.",
	}
	cmd.AddCommand(
		newSlotsShowCmd(f),
		newSlotsCountCmd(f),
		newSlotsSetCmd(f),
		newSlotsRemoveCmd(f),
		newSlotsClearCmd(f),
	)
	return cmd
}

// slotRun opens the app, resolves the owner from args[0:2] and calls fn.
func slotRun(f *rootFlags, fn func(cmd *cobra.Command, a *app, owner types.Ref, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd, f)
		if err != nil {
			return err
		}
		defer a.close()

		owner, err := a.parseRef(args[0], args[1])
		if err != nil {
			return err
		}
		return fn(cmd, a, owner, args[2:])
	}
}

// parsePosition converts a 1-based position argument to a 0-based index.
func parsePosition(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, usageErrorf("position %q is not a number", s)
	}
	return n - 1, nil
}

func newSlotsShowCmd(f *rootFlags) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "show <owner-type> <owner-id>",
		Short: "Show the occupied slots of an array",
		Args:  exactArgs(2),
		RunE: slotRun(f, func(cmd *cobra.Command, a *app, owner types.Ref, _ []string) error {
			view, err := a.slots.Summaries(cmd.Context(), owner)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if a.json {
				rows := []slotView{}
				for _, s := range view {
					if all || !s.Empty() {
						rows = append(rows, slotView{Position: s.Position, ElementID: s.ElementID, Label: s.Label})
					}
				}
				return printJSON(out, rows)
			}
			for _, s := range view {
				if !all && s.Empty() {
					continue
				}
				fmt.Fprintln(out, formatSlot(s))
			}
			return nil
		}),
	}
	cmd.Flags().BoolVar(&all, "all", false, "include empty slots")
	return cmd
}

func formatSlot(s slots.Summary) string {
	switch {
	case s.Empty():
		return fmt.Sprintf("%3d  -", s.Position)
	case s.Label == "":
		return fmt.Sprintf("%3d  %s", s.Position, s.ElementID)
	default:
		return fmt.Sprintf("%3d  %s  %s", s.Position, s.ElementID, s.Label)
	}
}

func newSlotsCountCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "count <owner-type> <owner-id>",
		Short: "Count the occupied slots of an array",
		Args:  exactArgs(2),
		RunE: slotRun(f, func(cmd *cobra.Command, a *app, owner types.Ref, _ []string) error {
			n, err := a.slots.Count(cmd.Context(), owner)
			if err != nil {
				return err
			}
			if a.json {
				return printJSON(cmd.OutOrStdout(), map[string]int{"count": n})
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		}),
	}
}

func newSlotsSetCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "set <owner-type> <owner-id> <position> <element-id|->",
		Short: "Put an element into one slot, or clear it with \"-\"",
		Args:  exactArgs(4),
		RunE: slotRun(f, func(cmd *cobra.Command, a *app, owner types.Ref, args []string) error {
			index, err := parsePosition(args[0])
			if err != nil {
				return err
			}
			elem := args[1]
			if elem == "-" {
				elem = ""
			}
			if err := a.slots.SetSlot(cmd.Context(), owner, index, elem); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s slot %d\n", owner, index+1)
			return nil
		}),
	}
}

func newSlotsRemoveCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <owner-type> <owner-id> <position>",
		Short: "Remove a slot, shifting later slots left when it is mandatory",
		Args:  exactArgs(3),
		RunE: slotRun(f, func(cmd *cobra.Command, a *app, owner types.Ref, args []string) error {
			index, err := parsePosition(args[0])
			if err != nil {
				return err
			}
			if err := a.slots.RemoveWithCompaction(cmd.Context(), owner, index); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s slot %d\n", owner, index+1)
			return nil
		}),
	}
}

func newSlotsClearCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "clear <owner-type> <owner-id>",
		Short: "Empty every slot of an array",
		Args:  exactArgs(2),
		RunE: slotRun(f, func(cmd *cobra.Command, a *app, owner types.Ref, _ []string) error {
			if err := a.slots.ClearAll(cmd.Context(), owner); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s\n", owner)
			return nil
		}),
	}
}
