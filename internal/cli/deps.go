package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/powdertrack/internal/guard"
)

// reportView is the JSON shape of a dependency report.
type reportView struct {
	ScanID      string   `json:"scan_id"`
	Target      string   `json:"target"`
	Dependents  []string `json:"dependents"`
	Restricting []string `json:"restricting,omitempty"`
	Deleted     bool     `json:"deleted"`
}

func viewOfReport(r *guard.Report) reportView {
	v := reportView{
		ScanID:     r.ScanID.String(),
		Target:     r.Target.String(),
		Dependents: r.Lines(),
		Deleted:    r.Deleted,
	}
	for _, d := range r.Restricting() {
		v.Restricting = append(v.Restricting, d.String())
	}
	return v
}

func newDepsCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "deps <type> <id>",
		Short: "List the records that reference a record",
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
			r, err := a.guard.CheckDeletable(cmd.Context(), ref.Type, ref.ID)
			if err != nil {
				return err
			}
			if a.json {
				return printJSON(cmd.OutOrStdout(), viewOfReport(r))
			}
			fmt.Fprint(cmd.OutOrStdout(), r.String())
			return nil
		},
	}
}

func newDeleteCmd(f *rootFlags) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <type> <id>",
		Short: "Delete a record after reviewing its dependents",
		Long: "Show the records that reference the target, ask for confirmation and\n" +
			"delete it. References are warnings unless the delete policy restricts them.",
		Args: exactArgs(2),
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
			out := cmd.OutOrStdout()

			confirmed := yes
			if !confirmed {
				r, err := a.guard.CheckDeletable(cmd.Context(), ref.Type, ref.ID)
				if err != nil {
					return err
				}
				fmt.Fprint(out, r.String())
				confirmed = confirm(cmd.InOrStdin(), out, fmt.Sprintf("Delete %s?", ref))
			}

			r, err := a.guard.ConfirmAndDelete(cmd.Context(), ref.Type, ref.ID, confirmed)
			if a.json && r != nil {
				if perr := printJSON(out, viewOfReport(r)); perr != nil {
					return perr
				}
			}
			if err != nil {
				return err
			}
			if a.json {
				return nil
			}
			if r.Deleted {
				fmt.Fprintf(out, "Deleted %s\n", ref)
			} else {
				fmt.Fprintf(out, "Kept %s\n", ref)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "delete without asking")
	return cmd
}

// confirm prints a y/N prompt and reads one line from in.
func confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprintf(out, "%s [y/N] ", prompt)
	line, _ := bufio.NewReader(in).ReadString('\n')
	fmt.Fprintln(out)
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
