// GoHome Dashboard - terminal dashboard for the GoHome core
//
// The dashboard shows registered devices, nearby Bluetooth peers, plugin
// states and plugin-declared widgets on a four-column grid, and persists
// which widgets are active.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// Version information - set at build time via ldflags
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// defaultConfig returns the config path from GOHOME_CONFIG, or the default.
func defaultConfig() string {
	if path := os.Getenv("GOHOME_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
