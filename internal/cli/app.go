package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/powdertrack/internal/catalog"
	"github.com/mesh-intelligence/powdertrack/internal/guard"
	"github.com/mesh-intelligence/powdertrack/internal/slots"
	"github.com/mesh-intelligence/powdertrack/internal/sqlite"
	"github.com/mesh-intelligence/powdertrack/pkg/types"
)

// app is the wiring behind one command invocation: config, catalog,
// attached backend and the core services over it.
type app struct {
	cfg     types.Config
	cat     *catalog.Catalog
	backend *sqlite.Backend
	guard   *guard.Guard
	slots   *slots.Manager
	logger  *slog.Logger
	json    bool
}

// newLogger returns a text logger on w at warn level, or debug when
// verbose.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// openApp loads the config and attaches the backend. The caller must
// defer app.close().
func openApp(cmd *cobra.Command, f *rootFlags) (*app, error) {
	cfg, err := loadConfig(f)
	if err != nil {
		return nil, err
	}
	cat, err := catalog.ForConfig(cfg)
	if err != nil {
		return nil, err
	}
	logger := newLogger(cmd.ErrOrStderr(), f.verbose)

	backend := sqlite.NewBackend(cat)
	if err := backend.Attach(cfg); err != nil {
		return nil, fmt.Errorf("attach backend: %w", err)
	}
	logger.Debug("backend attached", "path", backend.Path(), "delete_policy", string(cfg.GetDeletePolicy()))

	return &app{
		cfg:     cfg,
		cat:     cat,
		backend: backend,
		guard:   guard.New(cat, backend, logger),
		slots:   slots.NewManager(cat, backend, logger),
		logger:  logger,
		json:    f.jsonMode,
	}, nil
}

func (a *app) close() {
	if err := a.backend.Detach(); err != nil {
		a.logger.Error("detach backend", "error", err)
	}
}

// parseType resolves a type name given on the command line. Entity type
// names and table names are accepted, case-insensitively.
func (a *app) parseType(name string) (types.EntityType, error) {
	for _, t := range a.cat.Types() {
		s, _ := a.cat.Schema(t)
		if strings.EqualFold(name, string(t)) || strings.EqualFold(name, s.Table) {
			return t, nil
		}
	}
	names := make([]string, 0, len(a.cat.Types()))
	for _, t := range a.cat.Types() {
		names = append(names, string(t))
	}
	return "", fmt.Errorf("%q (valid: %s): %w", name, strings.Join(names, ", "), types.ErrUnknownType)
}

// parseRef resolves a "<type> <id>" argument pair.
func (a *app) parseRef(typeName, id string) (types.Ref, error) {
	t, err := a.parseType(typeName)
	if err != nil {
		return types.Ref{}, err
	}
	if id == "" {
		return types.Ref{}, fmt.Errorf("empty id: %w", types.ErrInvalidID)
	}
	return types.Ref{Type: t, ID: id}, nil
}
