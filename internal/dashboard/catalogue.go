package dashboard

import (
	"encoding/json"
	"fmt"

	"github.com/nerrad567/gohome/internal/plugin"
	"github.com/nerrad567/gohome/internal/widget"
)

// Built-in root widget ids.
const (
	WidgetDeviceList    = "device-list"
	WidgetBluetoothScan = "bluetooth-scan"
	WidgetScannerList   = "scanner-list"
	WidgetAdapterList   = "adapter-list"
)

// Builtins returns the built-in root widgets in registry order.
func Builtins() []widget.Descriptor {
	return []widget.Descriptor{
		{
			ID:         WidgetDeviceList,
			Type:       widget.TypeDeviceList,
			Name:       "Device List",
			MountPoint: widget.MountRoot,
		},
		{
			ID:         WidgetBluetoothScan,
			Type:       widget.TypeBluetoothScan,
			Name:       "Bluetooth Devices Around",
			MountPoint: widget.MountRoot,
		},
		{
			ID:         WidgetScannerList,
			Type:       widget.TypeStateList,
			Name:       "Scanners States",
			Config:     json.RawMessage(`{"source":"scanners"}`),
			MountPoint: widget.MountRoot,
		},
		{
			ID:         WidgetAdapterList,
			Type:       widget.TypeStateList,
			Name:       "Adapters States",
			Config:     json.RawMessage(`{"source":"adapters"}`),
			MountPoint: widget.MountRoot,
		},
	}
}

// Catalogue returns the built-in widgets followed by the plugin widgets
// that can be shown. Plugin widgets whose id collides with one already in
// the catalogue, whose type is unknown, or whose config does not decode
// are skipped and reported through logger.
func Catalogue(pluginWidgets []plugin.Widget, logger Logger) []widget.Descriptor {
	if logger == nil {
		logger = noopLogger{}
	}

	catalogue := Builtins()
	seen := make(map[string]bool, len(catalogue)+len(pluginWidgets))
	for _, d := range catalogue {
		seen[d.ID] = true
	}

	for _, pw := range pluginWidgets {
		d := widget.Descriptor{
			ID:         pw.ID,
			Type:       widget.Type(pw.Type),
			Name:       pw.Name,
			Config:     pw.Config,
			MountPoint: widget.MountPoint(pw.MountPoint),
		}
		if err := checkDescriptor(d, seen); err != nil {
			logger.Warn("skipping plugin widget", "widget_id", pw.ID, "error", err)
			continue
		}
		seen[d.ID] = true
		catalogue = append(catalogue, d)
	}
	return catalogue
}

func checkDescriptor(d widget.Descriptor, seen map[string]bool) error {
	switch {
	case d.ID == "":
		return widget.ErrInvalidDescriptor
	case seen[d.ID]:
		return fmt.Errorf("%w: %s", widget.ErrDuplicateID, d.ID)
	case !d.MountPoint.Valid():
		return fmt.Errorf("%w: mount point %q", widget.ErrInvalidDescriptor, d.MountPoint)
	}
	_, err := widget.DecodeConfig(d.Type, d.Config)
	return err
}
