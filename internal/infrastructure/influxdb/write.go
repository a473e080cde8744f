package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement and tag names for capability history.
const (
	measurementCapability = "capability_history"
	tagDeviceID           = "device_id"
	tagCapability         = "capability"
	tagUnit               = "unit"
	fieldValue            = "value"
)

// WriteCapability records one capability value for a device.
//
// Only numeric and boolean values are charted; anything else (button
// events, raw bytes) is skipped and WriteCapability returns false. The
// write is batched and non-blocking.
//
// Parameters:
//   - deviceID: Device the value belongs to
//   - capability: Capability type (e.g., "temperature")
//   - unit: Measurement unit, stored as a tag when non-empty
//   - value: The decoded capability value
//   - ts: Observation time (zero means now)
func (c *Client) WriteCapability(deviceID, capability, unit string, value any, ts time.Time) bool {
	if !c.IsConnected() {
		return false
	}

	v, ok := numericValue(value)
	if !ok {
		return false
	}
	if ts.IsZero() {
		ts = time.Now()
	}

	tags := map[string]string{
		tagDeviceID:   deviceID,
		tagCapability: capability,
	}
	if unit != "" {
		tags[tagUnit] = unit
	}

	c.writeAPI.WritePoint(write.NewPoint(measurementCapability, tags, map[string]any{fieldValue: v}, ts))
	metricPointsWritten.WithLabelValues(capability).Inc()
	return true
}

// numericValue converts a decoded JSON value to a chartable float.
func numericValue(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case uint8:
		return float64(v), true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}
