package plugin

import (
	"encoding/json"
)

// Type distinguishes adapters (which consume device data) from scanners
// (which produce it).
type Type string

// Plugin types.
const (
	TypeAdapter Type = "plugin_adapter"
	TypeScanner Type = "plugin_scanner"
)

// State is the lifecycle state a plugin reports for itself.
type State string

// Plugin states.
const (
	StateStopped    State = "stopped"
	StateRunning    State = "running"
	StateRestarting State = "restarting"
)

// Plugin is the descriptor a plugin announces on connect and on every
// state change.
type Plugin struct {
	ID      string             `json:"id"`
	Name    string             `json:"name"`
	Type    Type               `json:"type"`
	State   State              `json:"state"`
	Widgets map[string]*Widget `json:"widgets,omitempty"`
}

// Widget is a dashboard widget declared by a plugin. The config object is
// opaque to the core; the dashboard decodes it according to Type.
type Widget struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Name       string          `json:"name"`
	Config     json.RawMessage `json:"config,omitempty"`
	MountPoint string          `json:"mount_point"`
}

// Valid reports whether the descriptor carries enough to be tracked.
func (p Plugin) Valid() bool {
	return p.ID != "" && (p.Type == TypeAdapter || p.Type == TypeScanner)
}

// clone copies p including its widget map.
func (p Plugin) clone() Plugin {
	if p.Widgets != nil {
		widgets := make(map[string]*Widget, len(p.Widgets))
		for k, w := range p.Widgets {
			if w == nil {
				continue
			}
			cpy := *w
			cpy.Config = append(json.RawMessage(nil), w.Config...)
			widgets[k] = &cpy
		}
		p.Widgets = widgets
	}
	return p
}
