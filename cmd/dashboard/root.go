package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/nerrad567/gohome/internal/infrastructure/config"
	"github.com/nerrad567/gohome/internal/infrastructure/database"
	"github.com/nerrad567/gohome/internal/layout"
	"github.com/nerrad567/gohome/migrations"
)

// options are the flags shared by every command.
type options struct {
	configPath string
}

// newRootCmd creates the `dashboard` command tree.
func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Terminal dashboard for GoHome",
		Long: `Shows the devices, Bluetooth peers and plugins of a GoHome core on a
four-column widget grid. Running without a subcommand starts the dashboard.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDashboard(cmd.Context(), opts)
		},
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", defaultConfig(), "path to config.yaml")

	cmd.AddCommand(newRunCmd(opts))
	cmd.AddCommand(newLayoutCmd(opts))
	return cmd
}

func newRunCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDashboard(cmd.Context(), opts)
		},
	}
}

// loadConfig reads the configuration named by the --config flag. A missing
// file at the default path falls back to the built-in defaults.
func loadConfig(opts *options) (*config.Config, error) {
	if opts.configPath == defaultConfigPath {
		if _, err := os.Stat(opts.configPath); errors.Is(err, fs.ErrNotExist) {
			return config.Default()
		}
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// openBackend opens the layout backend selected by dashboard.layout.
// The returned close function releases it.
func openBackend(ctx context.Context, cfg config.LayoutConfig) (layout.Backend, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case config.LayoutBackendFile:
		return layout.NewFileBackend(cfg.Path), noop, nil

	case config.LayoutBackendMemory:
		return layout.NewMemoryBackend(), noop, nil

	case config.LayoutBackendSQLite:
		db, err := database.Open(ctx, config.DatabaseConfig{
			Path:        cfg.Path,
			WALMode:     true,
			BusyTimeout: 5,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("opening layout database: %w", err)
		}
		if err := db.Migrate(ctx, migrations.Source()); err != nil {
			db.Close() //nolint:errcheck // already failing
			return nil, nil, fmt.Errorf("migrating layout database: %w", err)
		}
		return layout.NewSQLiteBackend(db.DB), db.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown layout backend %q", cfg.Backend)
	}
}
