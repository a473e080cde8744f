package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure shared by the GoHome server and dashboard.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site      SiteConfig      `yaml:"site"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
	Plugins   PluginsConfig   `yaml:"plugins"`
	Dashboard DashboardConfig `yaml:"dashboard"`
}

// SiteConfig contains installation-specific information.
type SiteConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains push channel settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings for capability history.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
	// HistoryWindow is how far back history queries reach, in hours.
	HistoryWindow int `yaml:"history_window"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// PluginsConfig contains settings for plugin lifecycle handling.
type PluginsConfig struct {
	// CommandTimeout bounds how long a start/stop command waits for the
	// plugin to acknowledge it, in seconds.
	CommandTimeout int `yaml:"command_timeout"`
}

// DashboardConfig contains settings for the terminal dashboard client.
type DashboardConfig struct {
	// APIURL is the base URL of the REST API, without the /api prefix.
	APIURL string `yaml:"api_url"`

	// PushURL is the websocket endpoint for topic subscriptions.
	// Derived from APIURL and websocket.path when empty.
	PushURL string `yaml:"push_url"`

	// APIOrigin is prefixed to widget data-source templates.
	// Defaults to APIURL.
	APIOrigin string `yaml:"api_origin"`

	// RequestTimeout bounds each REST call, in seconds.
	RequestTimeout int `yaml:"request_timeout"`

	// RowHeight is the height of one grid row in terminal lines.
	RowHeight int `yaml:"row_height"`

	Layout LayoutConfig `yaml:"layout"`
}

// LayoutConfig selects the persistence backend for the widget layout.
type LayoutConfig struct {
	// Backend is one of "file", "sqlite" or "memory".
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

// Layout backends.
const (
	LayoutBackendFile   = "file"
	LayoutBackendSQLite = "sqlite"
	LayoutBackendMemory = "memory"
)

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: GOHOME_SECTION_KEY
// For example: GOHOME_DATABASE_PATH, GOHOME_API_PORT
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the default configuration with environment overrides applied.
// Used when no config file exists, which is the normal case for the dashboard.
func Default() (*Config, error) {
	cfg := defaultConfig()
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:   "home",
			Name: "GoHome",
		},
		Database: DatabaseConfig{
			Path:        "./data/gohome.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "gohome-core",
			},
			QoS: 0,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
			HistoryWindow: 24,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Plugins: PluginsConfig{
			CommandTimeout: 5,
		},
		Dashboard: DashboardConfig{
			APIURL:         "http://localhost:8080",
			RequestTimeout: 10,
			RowHeight:      9,
			Layout: LayoutConfig{
				Backend: LayoutBackendFile,
				Path:    "./data/dashboard-layout.json",
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: GOHOME_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("GOHOME_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("GOHOME_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("GOHOME_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("GOHOME_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("GOHOME_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("GOHOME_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	// InfluxDB
	if v := os.Getenv("GOHOME_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Logging
	if v := os.Getenv("GOHOME_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Dashboard
	if v := os.Getenv("GOHOME_DASHBOARD_API_URL"); v != "" {
		cfg.Dashboard.APIURL = v
	}
	if v := os.Getenv("GOHOME_DASHBOARD_LAYOUT_BACKEND"); v != "" {
		cfg.Dashboard.Layout.Backend = v
	}
	if v := os.Getenv("GOHOME_DASHBOARD_LAYOUT_PATH"); v != "" {
		cfg.Dashboard.Layout.Path = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of every validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if !strings.HasPrefix(c.WebSocket.Path, "/") {
		errs = append(errs, "websocket.path must start with /")
	}

	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.bucket is required when influxdb is enabled")
		}
	}

	if c.Dashboard.APIURL == "" {
		errs = append(errs, "dashboard.api_url is required")
	}
	if c.Dashboard.RowHeight < 3 {
		errs = append(errs, "dashboard.row_height must be at least 3")
	}
	switch c.Dashboard.Layout.Backend {
	case LayoutBackendMemory:
	case LayoutBackendFile, LayoutBackendSQLite:
		if c.Dashboard.Layout.Path == "" {
			errs = append(errs, "dashboard.layout.path is required for the "+c.Dashboard.Layout.Backend+" backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("dashboard.layout.backend %q is not one of file, sqlite, memory", c.Dashboard.Layout.Backend))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// PushURL returns the websocket endpoint the dashboard subscribes to.
// An explicit dashboard.push_url wins; otherwise the API URL's scheme is
// switched to ws/wss and the websocket path appended.
func (c *Config) PushURL() string {
	if c.Dashboard.PushURL != "" {
		return c.Dashboard.PushURL
	}
	base := strings.TrimRight(c.Dashboard.APIURL, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + c.WebSocket.Path
}

// APIOrigin returns the origin prefixed to widget data-source templates.
func (c *Config) APIOrigin() string {
	if c.Dashboard.APIOrigin != "" {
		return strings.TrimRight(c.Dashboard.APIOrigin, "/")
	}
	return strings.TrimRight(c.Dashboard.APIURL, "/")
}

// RequestTimeout returns the dashboard REST timeout as a Duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Dashboard.RequestTimeout) * time.Second
}
