package device

import (
	"slices"
	"time"
)

// Device is a physical sensor known to GoHome, identified on the air by
// its address and address type. Scanners report readings by address; the
// registry maps them onto the device's capabilities.
type Device struct {
	ID          string      `json:"id"`
	Address     string      `json:"address"`
	AddressType AddressType `json:"address_type"`
	Name        string      `json:"name"`
	Protocol    string      `json:"protocol"`

	// AdapterIDs lists the adapter plugins this device is linked to.
	// Readings are forwarded to every linked adapter.
	AdapterIDs []string `json:"adapter_ids"`

	// Capabilities holds the latest value of every measurement reported
	// by the device, keyed by capability type.
	Capabilities map[CapabilityType]Capability `json:"capabilities"`

	CreatedAt   time.Time `json:"created_at"`
	LastUpdated time.Time `json:"last_updated"`
}

// AddressType distinguishes how a device address is interpreted.
type AddressType string

// Address types.
const (
	AddressBLE   AddressType = "ble"
	AddressBasic AddressType = "basic"
)

// AllAddressTypes returns every known address type.
func AllAddressTypes() []AddressType {
	return []AddressType{AddressBLE, AddressBasic}
}

// CapabilityType names a measurement a device can report.
type CapabilityType string

// Capability types.
const (
	CapTemperature CapabilityType = "temperature"
	CapHumidity    CapabilityType = "humidity"
	CapBattery     CapabilityType = "battery_level"
	CapButtonEvent CapabilityType = "button_event"
)

// ValueType describes the JSON type of a capability value.
type ValueType string

// Value types.
const (
	ValueFloat  ValueType = "float"
	ValueInt    ValueType = "int"
	ValueBool   ValueType = "bool"
	ValueString ValueType = "string"
	ValueBytes  ValueType = "bytes"
)

// Unit is the measurement unit of a capability value.
type Unit string

// Units.
const (
	UnitCelsius Unit = "celsius"
	UnitPercent Unit = "percent"
	UnitVolt    Unit = "volt"
	UnitNone    Unit = ""
)

// Capability is one measurement with its latest value.
type Capability struct {
	Name  CapabilityType `json:"name"`
	Value any            `json:"value"`
	Type  ValueType      `json:"type"`
	Unit  Unit           `json:"unit,omitempty"`
}

// CreateRequest carries the fields a client supplies to register a device.
type CreateRequest struct {
	Address     string      `json:"address"`
	Name        string      `json:"name"`
	AdapterIDs  []string    `json:"adapter_ids"`
	AddressType AddressType `json:"address_type"`
	Protocol    string      `json:"protocol"`
}

// Reading is a batch of parsed capability values a scanner observed for
// one address.
type Reading struct {
	Address     string       `json:"address"`
	AddressType AddressType  `json:"address_type"`
	Data        []Capability `json:"data"`
	Timestamp   time.Time    `json:"timestamp"`
}

// StateUpdate is the per-capability notification sent to linked adapters
// and dashboard subscribers after a reading changes a value.
type StateUpdate struct {
	DeviceID       string         `json:"device_id"`
	DeviceName     string         `json:"name"`
	CapabilityType CapabilityType `json:"capability_type"`
	Timestamp      time.Time      `json:"timestamp"`
	Value          any            `json:"value"`
	Unit           Unit           `json:"unit,omitempty"`
}

// HasAdapter reports whether the device is linked to adapterID.
func (d *Device) HasAdapter(adapterID string) bool {
	return slices.Contains(d.AdapterIDs, adapterID)
}

// DeepCopy creates a complete independent copy of the Device.
// The registry hands out copies so callers never alias the cache.
func (d *Device) DeepCopy() *Device {
	if d == nil {
		return nil
	}

	cpy := *d
	if d.AdapterIDs != nil {
		cpy.AdapterIDs = slices.Clone(d.AdapterIDs)
	}
	if d.Capabilities != nil {
		cpy.Capabilities = make(map[CapabilityType]Capability, len(d.Capabilities))
		for k, c := range d.Capabilities {
			c.Value = deepCopyValue(c.Value)
			cpy.Capabilities[k] = c
		}
	}
	return &cpy
}

// deepCopyValue recursively copies a decoded JSON value.
func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		cpy := make(map[string]any, len(val))
		for k, elem := range val {
			cpy[k] = deepCopyValue(elem)
		}
		return cpy
	case []any:
		cpy := make([]any, len(val))
		for i, elem := range val {
			cpy[i] = deepCopyValue(elem)
		}
		return cpy
	case []byte:
		return slices.Clone(val)
	default:
		return v
	}
}
