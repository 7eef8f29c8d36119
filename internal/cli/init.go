package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/powdertrack/internal/catalog"
	"github.com/mesh-intelligence/powdertrack/internal/paths"
	"github.com/mesh-intelligence/powdertrack/internal/sqlite"
)

func newInitCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize powdertrack storage",
		Long:  "Create the configuration directory and config.yaml, then create the database and its tables.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, f)
		},
	}
}

func runInit(cmd *cobra.Command, f *rootFlags) error {
	configDir, err := paths.ResolveConfigDir(f.configDir)
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	// Only an explicit --data-dir is recorded in a new config.yaml.
	var dataDir string
	if f.dataDir != "" {
		if dataDir, err = filepath.Abs(f.dataDir); err != nil {
			return fmt.Errorf("resolve data dir: %w", err)
		}
	}
	configPath := filepath.Join(configDir, paths.ConfigFile)
	written, err := writeConfigIfMissing(configPath, dataDir)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(f)
	if err != nil {
		return err
	}
	cat, err := catalog.ForConfig(cfg)
	if err != nil {
		return err
	}
	backend := sqlite.NewBackend(cat)
	if err := backend.Attach(cfg); err != nil {
		return fmt.Errorf("initialize storage: %w", err)
	}
	dbPath := backend.Path()
	if err := backend.Detach(); err != nil {
		return fmt.Errorf("finalize storage: %w", err)
	}

	out := cmd.OutOrStdout()
	if written {
		fmt.Fprintf(out, "Wrote %s\n", configPath)
	}
	fmt.Fprintf(out, "powdertrack initialized at %s\n", dbPath)
	return nil
}
