package widget

import (
	"encoding/json"
	"fmt"
)

// Type selects a widget's renderer and config schema.
type Type string

// Widget types. The set is closed; descriptors naming anything else are
// rejected when the registry is built.
const (
	TypeDeviceList    Type = "device-list"
	TypeBluetoothScan Type = "bluetooth-scan"
	TypeStateList     Type = "state-list"
	TypeLineChart     Type = "line-chart"
	TypeKeyValueList  Type = "key-value-list"
)

// MountPoint is the place in the dashboard a widget is shown.
type MountPoint string

// Mount points.
const (
	MountRoot       MountPoint = "root_widget"
	MountDevice     MountPoint = "device_widget"
	MountCapability MountPoint = "capability_widget"
)

// Valid reports whether m is a known mount point.
func (m MountPoint) Valid() bool {
	switch m {
	case MountRoot, MountDevice, MountCapability:
		return true
	}
	return false
}

// Icon names the glyph drawn in a widget's title.
type Icon string

// Icons.
const (
	IconNetwork   Icon = "network"
	IconBluetooth Icon = "bluetooth"
	IconActivity  Icon = "activity"
	IconLineChart Icon = "line-chart"
	IconList      Icon = "list"
)

var glyphs = map[Icon]string{
	IconNetwork:   "⊞",
	IconBluetooth: "ᛒ",
	IconActivity:  "∿",
	IconLineChart: "╱",
	IconList:      "☰",
}

// Glyph returns the single-cell glyph for the icon, or "•" for an unknown one.
func (i Icon) Glyph() string {
	if g, ok := glyphs[i]; ok {
		return g
	}
	return "•"
}

// Descriptor describes one widget instance. Plugins declare descriptors
// over the API; built-in root widgets are declared in code.
type Descriptor struct {
	ID         string          `json:"id"`
	Type       Type            `json:"type"`
	Name       string          `json:"name"`
	Config     json.RawMessage `json:"config,omitempty"`
	MountPoint MountPoint      `json:"mount_point"`
}

func (d Descriptor) validate() error {
	if d.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidDescriptor)
	}
	if !d.MountPoint.Valid() {
		return fmt.Errorf("%w: %s: mount point %q", ErrInvalidDescriptor, d.ID, d.MountPoint)
	}
	return nil
}

// Context is the runtime target a widget is resolved for. Root widgets use
// the zero Context.
type Context struct {
	DeviceID       string
	CapabilityType string
}
