// Package config handles loading and validating GoHome configuration.
//
// One file configures both binaries: the server reads the site, database,
// mqtt, api, websocket, influxdb and plugins sections; the dashboard reads
// the dashboard section and derives its push endpoint from api/websocket.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with GOHOME_* environment variables
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - Broker passwords and InfluxDB tokens should be set via environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Site.Name)
package config
