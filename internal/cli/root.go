// Package cli implements the powdertrack command-line interface.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/powdertrack/internal/catalog"
	"github.com/mesh-intelligence/powdertrack/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values shared by all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
	verbose   bool
}

// NewRootCmd creates the top-level "powdertrack" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	f := &rootFlags{}
	root := &cobra.Command{
		Use:   "powdertrack",
		Short: "Manage DMLS process records with dependency-checked deletes",
		Long: "powdertrack stores powders, settings, plates, coupons, builds, work orders\n" +
			"and jobs, warns about dependent records before a delete, and edits the\n" +
			"coupon and part slot arrays.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&f.configDir, "config-dir", "", "configuration directory (env POWDERTRACK_CONFIG_DIR)")
	root.PersistentFlags().StringVar(&f.dataDir, "data-dir", "", "data directory (default: ./.powdertrack)")
	root.PersistentFlags().BoolVar(&f.jsonMode, "json", false, "output in JSON format")
	root.PersistentFlags().BoolVarP(&f.verbose, "verbose", "v", false, "debug logging on stderr")

	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageErrorf("%v", err)
	})

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd(f))
	root.AddCommand(newGetCmd(f))
	root.AddCommand(newListCmd(f))
	root.AddCommand(newSetCmd(f))
	root.AddCommand(newDepsCmd(f))
	root.AddCommand(newDeleteCmd(f))
	root.AddCommand(newSlotsCmd(f))
	root.AddCommand(newExportCmd(f))
	root.AddCommand(newImportCmd(f))

	return root
}

// Execute runs the root command with the process arguments and returns the
// exit code.
func Execute() int {
	return run(NewRootCmd(), os.Args[1:], os.Stderr)
}

func run(root *cobra.Command, args []string, stderr io.Writer) int {
	root.SetArgs(args)
	err := root.Execute()
	if err == nil {
		return exitSuccess
	}
	fmt.Fprintln(stderr, "powdertrack:", err)
	return exitCode(err)
}

// userErrors are failures caused by the input rather than the system.
var userErrors = []error{
	types.ErrNotFound,
	types.ErrConflict,
	types.ErrInvalidID,
	types.ErrInvalidData,
	types.ErrUnknownType,
	types.ErrUnknownField,
	types.ErrIndexOutOfRange,
	types.ErrValidation,
	types.ErrRestricted,
	types.ErrBackendEmpty,
	types.ErrBackendUnknown,
	types.ErrDeletePolicyUnknown,
	types.ErrCompactionScopeUnknown,
	catalog.ErrInvalidCatalog,
	errUsage,
}

// errUsage marks argument and flag mistakes.
var errUsage = errors.New("usage")

// exitCode maps an error to exitUserError or exitSysError.
func exitCode(err error) int {
	for _, target := range userErrors {
		if errors.Is(err, target) {
			return exitUserError
		}
	}
	return exitSysError
}

func usageErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errUsage, fmt.Sprintf(format, args...))
}

// exactArgs is cobra.ExactArgs reporting a usage error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return usageErrorf("%v", err)
		}
		return nil
	}
}
