package widget

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/yosida95/uritemplate/v3"
)

// Placeholders understood by data-source templates.
const (
	VarDeviceID       = "deviceId"
	VarCapabilityType = "capabilityType"
)

// Config is the typed configuration of one widget type.
type Config interface {
	// Type returns the widget type the config belongs to.
	Type() Type

	bind(ctx Context, origin string) Config
}

// Template is a data-source path template such as
// "/api/history/device/{deviceId}/capabilities/{capabilityType}".
type Template struct {
	raw  string
	vars []string
}

// ParseTemplate validates s as an RFC 6570 URI template.
func ParseTemplate(s string) (Template, error) {
	if strings.TrimSpace(s) == "" {
		return Template{}, fmt.Errorf("%w: empty data source", ErrInvalidConfig)
	}
	t, err := uritemplate.New(s)
	if err != nil {
		return Template{}, fmt.Errorf("%w: data source %q: %v", ErrInvalidConfig, s, err)
	}
	return Template{raw: s, vars: t.Varnames()}, nil
}

// String returns the template text.
func (t Template) String() string {
	return t.raw
}

// Vars returns the variable names used by the template.
func (t Template) Vars() []string {
	return append([]string(nil), t.vars...)
}

// Bind substitutes the context values present in ctx and prefixes origin.
// Placeholders whose value is empty are left as written.
func (t Template) Bind(ctx Context, origin string) string {
	s := t.raw
	if ctx.DeviceID != "" {
		s = strings.ReplaceAll(s, "{"+VarDeviceID+"}", ctx.DeviceID)
	}
	if ctx.CapabilityType != "" {
		s = strings.ReplaceAll(s, "{"+VarCapabilityType+"}", ctx.CapabilityType)
	}
	return strings.TrimRight(origin, "/") + s
}

// UnmarshalJSON decodes and validates a template string.
func (t *Template) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: data source must be a string", ErrInvalidConfig)
	}
	parsed, err := ParseTemplate(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MarshalJSON encodes the template text.
func (t Template) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.raw)
}

// NoConfig is the config of widgets that take no settings.
type NoConfig struct {
	kind Type
}

// Type returns the widget type.
func (c NoConfig) Type() Type { return c.kind }

func (c NoConfig) bind(Context, string) Config { return c }

// StateSource selects which plugins a state list shows.
type StateSource string

// State list sources.
const (
	SourceAdapters StateSource = "adapters"
	SourceScanners StateSource = "scanners"
)

// StateListConfig configures a state-list widget.
type StateListConfig struct {
	Source StateSource `json:"source"`
}

// Type returns TypeStateList.
func (StateListConfig) Type() Type { return TypeStateList }

func (c StateListConfig) bind(Context, string) Config { return c }

// LineChartConfig configures a line-chart widget. URL is set by Resolve.
type LineChartConfig struct {
	DataSource Template `json:"dataUrl"`
	URL        string   `json:"-"`
}

// Type returns TypeLineChart.
func (LineChartConfig) Type() Type { return TypeLineChart }

func (c LineChartConfig) bind(ctx Context, origin string) Config {
	c.URL = c.DataSource.Bind(ctx, origin)
	return c
}

// KeyValueListConfig configures a key-value-list widget. The data source
// returns a JSON object; Keys, when set, selects and orders the rows.
type KeyValueListConfig struct {
	DataSource Template `json:"dataUrl"`
	Keys       []string `json:"keys,omitempty"`
	URL        string   `json:"-"`
}

// Type returns TypeKeyValueList.
func (KeyValueListConfig) Type() Type { return TypeKeyValueList }

func (c KeyValueListConfig) bind(ctx Context, origin string) Config {
	c.URL = c.DataSource.Bind(ctx, origin)
	return c
}

// DecodeConfig decodes raw into the Config variant for t. Unknown fields
// are rejected, as is a data-source widget without a data source.
func DecodeConfig(t Type, raw json.RawMessage) (Config, error) {
	switch t {
	case TypeDeviceList, TypeBluetoothScan:
		return NoConfig{kind: t}, nil
	case TypeStateList:
		var c StateListConfig
		if err := decodeStrict(raw, &c); err != nil {
			return nil, err
		}
		if c.Source != SourceAdapters && c.Source != SourceScanners {
			return nil, fmt.Errorf("%w: state list source %q", ErrInvalidConfig, c.Source)
		}
		return c, nil
	case TypeLineChart:
		var c LineChartConfig
		if err := decodeStrict(raw, &c); err != nil {
			return nil, err
		}
		if c.DataSource.raw == "" {
			return nil, fmt.Errorf("%w: line chart requires dataUrl", ErrInvalidConfig)
		}
		return c, nil
	case TypeKeyValueList:
		var c KeyValueListConfig
		if err := decodeStrict(raw, &c); err != nil {
			return nil, err
		}
		if c.DataSource.raw == "" {
			return nil, fmt.Errorf("%w: key-value list requires dataUrl", ErrInvalidConfig)
		}
		return c, nil
	default:
		return nil, &LookupError{Type: t}
	}
}

func decodeStrict(raw json.RawMessage, v any) error {
	if len(bytes.TrimSpace(raw)) == 0 || string(bytes.TrimSpace(raw)) == "null" {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, ErrInvalidConfig) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}
