// Package influxdb stores and queries device capability history.
//
// Every time a reading changes a numeric capability, the core writes a
// point to the capability_history measurement, tagged by device_id and
// capability. The dashboard line-chart widget reads the series back
// through the REST history endpoint, which calls QueryCapabilityHistory.
//
// History is optional: with influxdb.enabled=false, Connect returns
// ErrDisabled and the core runs without it.
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil && !errors.Is(err, influxdb.ErrDisabled) {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteCapability(deviceID, "temperature", "celsius", 21.5, ts)
//	history, err := client.QueryCapabilityHistory(ctx, deviceID, "temperature")
package influxdb
