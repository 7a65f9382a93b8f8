package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/bonsai/internal/bonsai"
)

// Config is the root configuration structure for a Bonsai host process.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Filter    FilterConfig    `yaml:"filter"`
	Console   ConsoleConfig   `yaml:"console"`
	Syslog    SyslogConfig    `yaml:"syslog"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Database  DatabaseConfig  `yaml:"database"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
}

// LoggingConfig contains settings for the process's own diagnostic log.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`

	// Driver forwards façade events into the diagnostic log as well.
	Driver bool `yaml:"driver"`
}

// FilterConfig is the initial filter state of the façade.
type FilterConfig struct {
	MinimumLevel string `yaml:"minimum_level"`
	DebugFocus   bool   `yaml:"debug_focus"`
}

// Level parses MinimumLevel. Validate has already rejected unknown names.
func (f FilterConfig) Level() bonsai.Level {
	level, err := bonsai.ParseLevel(f.MinimumLevel)
	if err != nil {
		return bonsai.Verbose
	}
	return level
}

// Filter is the façade filter described by this section.
func (f FilterConfig) Filter() bonsai.Filter {
	return bonsai.Filter{MinimumLevel: f.Level(), DebugFocus: f.DebugFocus}
}

// ConsoleConfig contains console driver settings.
type ConsoleConfig struct {
	Enabled bool   `yaml:"enabled"`
	Output  string `yaml:"output"`

	// Color is "auto", "always" or "never".
	Color string `yaml:"color"`
}

// SyslogConfig contains OS-native log driver settings.
type SyslogConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Subsystem string `yaml:"subsystem"`
	Category  string `yaml:"category"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled     bool                `yaml:"enabled"`
	Broker      MQTTBrokerConfig    `yaml:"broker"`
	Auth        MQTTAuthConfig      `yaml:"auth"`
	QoS         int                 `yaml:"qos"`
	TopicPrefix string              `yaml:"topic_prefix"`
	BufferSize  int                 `yaml:"buffer_size"`
	Reconnect   MQTTReconnectConfig `yaml:"reconnect"`
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
	MaxAttempts  int `yaml:"max_attempts"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// DatabaseConfig contains SQLite journal settings.
type DatabaseConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
	BufferSize  int    `yaml:"buffer_size"`
}

// APIConfig contains admin HTTP API settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// WebSocketConfig contains live-tail WebSocket settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
	SendBuffer     int `yaml:"send_buffer"`
}

// ErrInvalid wraps every Validate failure.
var ErrInvalid = errors.New("invalid configuration")

// Load builds the configuration from Default, the YAML file at path and
// the BONSAI_* environment, then validates it.
//
// Parameters:
//   - path: YAML configuration file
//
// Returns:
//   - *Config: Validated configuration
//   - error: Read, parse, environment or validation failure (the latter
//     wraps ErrInvalid)
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default is the configuration used for anything the file leaves out:
// console on, drivers that need an external service off, admin API on
// loopback.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info", Format: "text", Output: "stderr"},
		Filter:  FilterConfig{MinimumLevel: "verbose"},
		Console: ConsoleConfig{Enabled: true, Output: "stdout", Color: "auto"},
		Syslog:  SyslogConfig{Subsystem: "bonsai", Category: "default"},
		MQTT: MQTTConfig{
			Broker:      MQTTBrokerConfig{Host: "localhost", Port: 1883, ClientID: "bonsai"},
			QoS:         1,
			TopicPrefix: "bonsai",
			BufferSize:  1024,
			Reconnect:   MQTTReconnectConfig{InitialDelay: 1, MaxDelay: 60},
		},
		InfluxDB: InfluxDBConfig{
			URL:           "http://localhost:8086",
			Org:           "bonsai",
			Bucket:        "logs",
			BatchSize:     100,
			FlushInterval: 10,
		},
		Database: DatabaseConfig{
			Path:        "./data/bonsai.db",
			WALMode:     true,
			BusyTimeout: 5,
			BufferSize:  1024,
		},
		API: APIConfig{
			Enabled:  true,
			Host:     "127.0.0.1",
			Port:     8090,
			Timeouts: APITimeoutConfig{Read: 30, Write: 30, Idle: 60},
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
			SendBuffer:     64,
		},
	}
}

// envOverride maps one environment variable onto a field.
type envOverride struct {
	name  string
	apply func(cfg *Config, value string) error
}

func setString(field func(*Config) *string) func(*Config, string) error {
	return func(cfg *Config, v string) error {
		*field(cfg) = v
		return nil
	}
}

// envOverrides lists every variable honoured by Load. Empty values are
// ignored.
var envOverrides = []envOverride{
	{"BONSAI_LOG_LEVEL", setString(func(c *Config) *string { return &c.Logging.Level })},
	{"BONSAI_MIN_LEVEL", setString(func(c *Config) *string { return &c.Filter.MinimumLevel })},
	{"BONSAI_DEBUG_FOCUS", func(c *Config, v string) error {
		focus, err := strconv.ParseBool(v)
		c.Filter.DebugFocus = focus
		return err
	}},
	{"BONSAI_DATABASE_PATH", setString(func(c *Config) *string { return &c.Database.Path })},
	{"BONSAI_MQTT_HOST", setString(func(c *Config) *string { return &c.MQTT.Broker.Host })},
	{"BONSAI_MQTT_USERNAME", setString(func(c *Config) *string { return &c.MQTT.Auth.Username })},
	{"BONSAI_MQTT_PASSWORD", setString(func(c *Config) *string { return &c.MQTT.Auth.Password })},
	{"BONSAI_API_HOST", setString(func(c *Config) *string { return &c.API.Host })},
	{"BONSAI_API_PORT", func(c *Config, v string) error {
		port, err := strconv.Atoi(v)
		c.API.Port = port
		return err
	}},
	{"BONSAI_INFLUXDB_URL", setString(func(c *Config) *string { return &c.InfluxDB.URL })},
	{"BONSAI_INFLUXDB_TOKEN", setString(func(c *Config) *string { return &c.InfluxDB.Token })},
}

func applyEnvOverrides(cfg *Config) error {
	for _, o := range envOverrides {
		v := os.Getenv(o.name)
		if v == "" {
			continue
		}
		if err := o.apply(cfg, v); err != nil {
			return fmt.Errorf("%s: %w", o.name, err)
		}
	}
	return nil
}

// oneOf reports whether v is one of the allowed values.
func oneOf(v string, allowed ...string) bool {
	return slices.Contains(allowed, v)
}

// Validate checks every section and reports all problems in one error
// wrapping ErrInvalid. Sections of disabled drivers are only checked where
// a bad value would still be used.
func (c *Config) Validate() error {
	var problems []string
	check := func(ok bool, msg string) {
		if !ok {
			problems = append(problems, msg)
		}
	}

	check(oneOf(strings.ToLower(c.Logging.Format), "json", "text"), "logging.format must be json or text")
	check(oneOf(strings.ToLower(c.Logging.Output), "stdout", "stderr"), "logging.output must be stdout or stderr")

	if _, err := bonsai.ParseLevel(c.Filter.MinimumLevel); err != nil {
		problems = append(problems, "filter.minimum_level: "+err.Error())
	}

	if c.Console.Enabled {
		check(oneOf(c.Console.Output, "stdout", "stderr"), "console.output must be stdout or stderr")
		check(oneOf(c.Console.Color, "", "auto", "always", "never"), "console.color must be auto, always or never")
	}

	if c.Syslog.Enabled {
		check(c.Syslog.Subsystem != "", "syslog.subsystem is required when syslog is enabled")
	}

	check(c.MQTT.QoS >= 0 && c.MQTT.QoS <= 2, "mqtt.qos must be 0, 1 or 2")
	if c.MQTT.Enabled {
		check(c.MQTT.Broker.Host != "", "mqtt.broker.host is required when mqtt is enabled")
		check(c.MQTT.TopicPrefix != "" && !strings.ContainsAny(c.MQTT.TopicPrefix, "+#"),
			"mqtt.topic_prefix must be non-empty and free of wildcards")
		check(c.MQTT.BufferSize > 0, "mqtt.buffer_size must be positive")
	}

	if c.InfluxDB.Enabled {
		check(c.InfluxDB.URL != "", "influxdb.url is required when influxdb is enabled")
		check(c.InfluxDB.Bucket != "", "influxdb.bucket is required when influxdb is enabled")
	}

	if c.Database.Enabled {
		check(c.Database.Path != "", "database.path is required when database is enabled")
		check(c.Database.BufferSize > 0, "database.buffer_size must be positive")
	}

	if c.API.Enabled {
		check(c.API.Port > 0 && c.API.Port <= 65535, "api.port must be between 1 and 65535")
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

// GetReadTimeout returns api.timeouts.read.
func (c *Config) GetReadTimeout() time.Duration { return seconds(c.API.Timeouts.Read) }

// GetWriteTimeout returns api.timeouts.write.
func (c *Config) GetWriteTimeout() time.Duration { return seconds(c.API.Timeouts.Write) }

// GetIdleTimeout returns api.timeouts.idle.
func (c *Config) GetIdleTimeout() time.Duration { return seconds(c.API.Timeouts.Idle) }
