package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nerrad567/gohome/internal/apiclient"
	"github.com/nerrad567/gohome/internal/dashboard"
	"github.com/nerrad567/gohome/internal/infrastructure/config"
	"github.com/nerrad567/gohome/internal/infrastructure/logging"
	"github.com/nerrad567/gohome/internal/layout"
	"github.com/nerrad567/gohome/internal/resource"
	"github.com/nerrad567/gohome/internal/topic"
	"github.com/nerrad567/gohome/internal/widget"
)

// defaultLogFile receives dashboard logs while the terminal is owned by
// the UI.
const defaultLogFile = "gohome-dashboard.log"

var _ resource.Client = (*apiclient.Client)(nil)

// runDashboard wires the dashboard to the core and runs it until the user
// quits or ctx is cancelled.
func runDashboard(ctx context.Context, opts *options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	logFile, err := tea.LogToFile(logPath(cfg.Logging), "")
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer logFile.Close()

	log := logging.NewWithWriter(cfg.Logging, logging.ServiceDashboard, version, logFile)
	log.Info("starting dashboard",
		"version", version,
		"api_url", cfg.Dashboard.APIURL,
		"layout_backend", cfg.Dashboard.Layout.Backend,
	)

	client := apiclient.New(cfg.Dashboard.APIURL, cfg.RequestTimeout())
	notifier := dashboard.NewNotifier()
	resOpts := []resource.Option{
		resource.WithNotify(notifier.Notify),
		resource.WithLogger(log),
	}
	resources := resource.NewSet(client, resOpts...)

	peers := dashboard.NewPeerTable(notifier.Notify)
	sub := topic.SubscribeJSON(ctx, cfg.PushURL(), topic.BluetoothDevice, peers.Add,
		topic.WithStateHandler(peers.SetConnected),
		topic.WithLogger(log),
	)
	defer func() {
		if err := sub.Close(); err != nil {
			log.Warn("closing push subscription", "error", err)
		}
	}()

	registry, err := dashboard.NewRegistry(cfg.APIOrigin(), dashboard.Sources{
		Resources: resources,
		Peers:     peers,
		Fetcher:   client,
		Options:   resOpts,
	}, catalogue(ctx, client, log))
	if err != nil {
		return fmt.Errorf("building widget registry: %w", err)
	}

	backend, closeBackend, err := openBackend(ctx, cfg.Dashboard.Layout)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeBackend(); err != nil {
			log.Warn("closing layout backend", "error", err)
		}
	}()

	store, err := layout.Open(ctx, backend, registry.IDs(widget.MountRoot), log)
	if err != nil {
		return fmt.Errorf("opening layout: %w", err)
	}

	model, err := dashboard.New(ctx, dashboard.Deps{
		Registry:  registry,
		Store:     store,
		Resources: resources,
		Notifier:  notifier,
		Peers:     peers,
		RowHeight: cfg.Dashboard.RowHeight,
		Logger:    log,
	})
	if err != nil {
		return err
	}

	p := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			log.Info("dashboard stopped", "reason", ctx.Err())
			return nil
		}
		return fmt.Errorf("running dashboard: %w", err)
	}

	log.Info("dashboard stopped")
	return nil
}

// catalogue returns the built-in widgets plus those the core's plugins
// declare. When the core cannot be reached only the built-ins are used.
func catalogue(ctx context.Context, client *apiclient.Client, log *logging.Logger) []widget.Descriptor {
	widgets, err := client.ListWidgets(ctx)
	if err != nil {
		log.Warn("plugin widgets unavailable, using built-ins", "error", err)
	}
	return dashboard.Catalogue(widgets, log)
}

// logPath picks the log file. The standard streams belong to the UI, so
// they are replaced by the default file.
func logPath(cfg config.LoggingConfig) string {
	switch strings.ToLower(cfg.Output) {
	case "", "stdout", "stderr":
		return defaultLogFile
	default:
		return cfg.Output
	}
}
