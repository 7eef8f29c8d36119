package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newExportCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "export <dir>",
		Short: "Write every table to JSONL files",
		Long:  "Write one <table>.jsonl file per entity type into dir. Existing files are replaced atomically.",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, f)
			if err != nil {
				return err
			}
			defer a.close()

			n, err := a.backend.Export(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			a.logger.Info("exported", "dir", args[0], "records", n)
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d record(s) to %s\n", n, args[0])
			return nil
		},
	}
}

func newImportCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "import <dir>",
		Short: "Load JSONL files written by export",
		Long: "Load the <table>.jsonl files in dir in one transaction. Records with an\n" +
			"existing id are replaced. Nothing is loaded if any line is rejected.",
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, f)
			if err != nil {
				return err
			}
			defer a.close()

			n, err := a.backend.Import(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			a.logger.Info("imported", "dir", args[0], "records", n)
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d record(s) from %s\n", n, args[0])
			return nil
		},
	}
}
