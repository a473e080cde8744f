package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/nerrad567/gohome/internal/apiclient"
	"github.com/nerrad567/gohome/internal/infrastructure/logging"
	"github.com/nerrad567/gohome/internal/layout"
	"github.com/nerrad567/gohome/internal/widget"
)

// newLayoutCmd creates the `layout` command, which edits the persisted
// widget layout without starting the UI.
func newLayoutCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Inspect or edit the active widget layout",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List active widgets in display order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withLayout(cmd, opts, func(_ context.Context, s *layout.Store, names map[string]string) error {
				printLayout(cmd.OutOrStdout(), s.List(), names)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add ID...",
		Short: "Activate widgets",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLayout(cmd, opts, func(ctx context.Context, s *layout.Store, _ map[string]string) error {
				for _, id := range args {
					if err := s.Add(ctx, id); err != nil {
						return fmt.Errorf("adding %s: %w", id, err)
					}
				}
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "remove ID...",
		Aliases: []string{"rm"},
		Short:   "Deactivate widgets",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLayout(cmd, opts, func(ctx context.Context, s *layout.Store, _ map[string]string) error {
				for _, id := range args {
					if err := s.Remove(ctx, id); err != nil {
						return fmt.Errorf("removing %s: %w", id, err)
					}
				}
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Restore the default layout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withLayout(cmd, opts, func(ctx context.Context, s *layout.Store, _ map[string]string) error {
				return s.Reset(ctx)
			})
		},
	})

	return cmd
}

// withLayout opens the configured layout store and calls fn with it and
// the display name of every known widget.
func withLayout(cmd *cobra.Command, opts *options, fn func(context.Context, *layout.Store, map[string]string) error) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	log := logging.NewWithWriter(cfg.Logging, logging.ServiceDashboard, version, cmd.ErrOrStderr())

	client := apiclient.New(cfg.Dashboard.APIURL, cfg.RequestTimeout())
	descriptors := catalogue(ctx, client, log)

	var defaults []string
	names := make(map[string]string, len(descriptors))
	for _, d := range descriptors {
		names[d.ID] = d.Name
		if d.MountPoint == widget.MountRoot {
			defaults = append(defaults, d.ID)
		}
	}

	backend, closeBackend, err := openBackend(ctx, cfg.Dashboard.Layout)
	if err != nil {
		return err
	}
	defer closeBackend() //nolint:errcheck // read-mostly, writes are already flushed

	store, err := layout.Open(ctx, backend, defaults, log)
	if err != nil {
		return fmt.Errorf("opening layout: %w", err)
	}
	return fn(ctx, store, names)
}

// printLayout writes one "id<TAB>name" line per active widget. Ids no
// widget is registered under are marked unknown.
func printLayout(w io.Writer, ids []string, names map[string]string) {
	for _, id := range ids {
		name, ok := names[id]
		if !ok {
			name = "(unknown)"
		}
		fmt.Fprintf(w, "%s\t%s\n", id, name)
	}
}
