package influxdb

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// History is a chartable series for one device capability.
type History struct {
	XLabel string  `json:"x_label"`
	YLabel string  `json:"y_label"`
	Points []Point `json:"points"`
}

// Point is one sample of a History series.
type Point struct {
	X time.Time `json:"x"`
	Y float64   `json:"y"`
}

// Axis labels for capability history.
const (
	historyXLabel = "timestamp"
	historyYLabel = "values"
)

// QueryCapabilityHistory returns the samples of one capability for one
// device within the configured history window, oldest first.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - deviceID: Device identifier
//   - capability: Capability type (e.g., "humidity")
//
// Returns:
//   - *History: Series with an empty (non-nil) Points slice when nothing matched
//   - error: ErrNotConnected or a wrapped ErrQueryFailed
func (c *Client) QueryCapabilityHistory(ctx context.Context, deviceID, capability string) (*History, error) {
	if !c.IsConnected() {
		return nil, ErrNotConnected
	}
	if strings.TrimSpace(deviceID) == "" || strings.TrimSpace(capability) == "" {
		return nil, fmt.Errorf("%w: device and capability are required", ErrQueryFailed)
	}

	flux := buildHistoryQuery(c.cfg.Bucket, time.Duration(c.cfg.HistoryWindow)*time.Hour, deviceID, capability)

	result, err := c.queryAPI.Query(ctx, flux)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}
	defer result.Close()

	history := &History{XLabel: historyXLabel, YLabel: historyYLabel, Points: []Point{}}
	for result.Next() {
		record := result.Record()
		y, ok := numericValue(record.Value())
		if !ok {
			continue
		}
		history.Points = append(history.Points, Point{X: record.Time().UTC(), Y: y})
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}

	return history, nil
}

// buildHistoryQuery renders the Flux query for one capability series.
// Identifiers are quoted so user-supplied ids cannot break out of the
// string literals.
func buildHistoryQuery(bucket string, window time.Duration, deviceID, capability string) string {
	return fmt.Sprintf(`from(bucket: %s)
  |> range(start: -%s)
  |> filter(fn: (r) => r._measurement == %s)
  |> filter(fn: (r) => r.%s == %s and r.%s == %s)
  |> filter(fn: (r) => r._field == %s)
  |> keep(columns: ["_time", "_value"])
  |> sort(columns: ["_time"])`,
		strconv.Quote(bucket),
		fluxDuration(window),
		strconv.Quote(measurementCapability),
		tagDeviceID, strconv.Quote(deviceID),
		tagCapability, strconv.Quote(capability),
		strconv.Quote(fieldValue),
	)
}

// fluxDuration formats d as a Flux duration literal in whole minutes.
func fluxDuration(d time.Duration) string {
	minutes := int64(d / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	return strconv.FormatInt(minutes, 10) + "m"
}
