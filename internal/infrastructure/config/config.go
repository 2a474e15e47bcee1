package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every validation failure so callers can
// tell a configuration problem apart from an I/O or parse error.
var ErrInvalidConfig = errors.New("invalid configuration")

// Transport names accepted for a Kodi instance.
const (
	TransportHTTP      = "http"
	TransportWebSocket = "websocket"
)

// DefaultInstanceID is assigned to the first Kodi instance when it has no id.
const DefaultInstanceID = "default"

// Config is the root configuration structure for kodibridge.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Listener ListenerConfig `yaml:"listener"`
	Auth     AuthConfig     `yaml:"auth"`
	Kodi     KodiConfig     `yaml:"kodi"`
	YouTube  YouTubeConfig  `yaml:"youtube"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Logging  LoggingConfig  `yaml:"logging"`
	Security SecurityConfig `yaml:"security"`
	Landing  LandingConfig  `yaml:"landing"`
}

// ListenerConfig contains HTTP listener settings.
type ListenerConfig struct {
	Host     string                `yaml:"host"`
	Port     int                   `yaml:"port"`
	TLS      TLSConfig             `yaml:"tls"`
	Timeouts ListenerTimeoutConfig `yaml:"timeouts"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// ListenerTimeoutConfig contains HTTP timeout settings in seconds.
type ListenerTimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// AuthConfig holds the shared secret every inbound request must present.
type AuthConfig struct {
	Token string `yaml:"token"`
}

// KodiConfig lists the media centers the gateway can control.
type KodiConfig struct {
	// CallTimeout bounds each JSON-RPC round-trip, in seconds.
	CallTimeout int            `yaml:"call_timeout"`
	Instances   []KodiInstance `yaml:"instances"`
}

// KodiInstance describes one reachable Kodi installation.
type KodiInstance struct {
	ID        string `yaml:"id"`
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	Transport string `yaml:"transport"`
}

// Address returns host:port for the instance.
func (k KodiInstance) Address() string {
	return fmt.Sprintf("%s:%d", k.Host, k.Port)
}

// YouTubeConfig contains YouTube Data API settings.
type YouTubeConfig struct {
	APIKey string `yaml:"api_key"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
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

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// SecurityConfig contains security settings.
type SecurityConfig struct {
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig contains rate limiting settings.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
}

// LandingConfig controls where the landing page is served from.
// An empty Dir serves the page embedded in the binary.
type LandingConfig struct {
	Dir string `yaml:"dir"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: KODIBRIDGE_SECTION_KEY
// For example: KODIBRIDGE_AUTH_TOKEN, KODIBRIDGE_LISTENER_PORT
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

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}

	cfg.assignInstanceDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Listener: ListenerConfig{
			Host: "0.0.0.0",
			Port: 8099,
			Timeouts: ListenerTimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		Kodi: KodiConfig{
			CallTimeout: 10,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "kodibridge",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Security: SecurityConfig{
			RateLimit: RateLimitConfig{
				Enabled:           false,
				RequestsPerMinute: 120,
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// The KODIBRIDGE_KODI_* variables target the default (first) instance and
// create it when the file configured none.
func applyEnvOverrides(cfg *Config) error {
	// Auth
	if v := os.Getenv("KODIBRIDGE_AUTH_TOKEN"); v != "" {
		cfg.Auth.Token = v
	}

	// Listener
	if v := os.Getenv("KODIBRIDGE_LISTENER_HOST"); v != "" {
		cfg.Listener.Host = v
	}
	if v := os.Getenv("KODIBRIDGE_LISTENER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("KODIBRIDGE_LISTENER_PORT: %w", err)
		}
		cfg.Listener.Port = port
	}

	// Default Kodi instance
	host := os.Getenv("KODIBRIDGE_KODI_HOST")
	port := os.Getenv("KODIBRIDGE_KODI_PORT")
	user := os.Getenv("KODIBRIDGE_KODI_USER")
	pass := os.Getenv("KODIBRIDGE_KODI_PASSWORD")
	if host != "" || port != "" || user != "" || pass != "" {
		if len(cfg.Kodi.Instances) == 0 {
			cfg.Kodi.Instances = append(cfg.Kodi.Instances, KodiInstance{})
		}
		inst := &cfg.Kodi.Instances[0]
		if host != "" {
			inst.Host = host
		}
		if port != "" {
			p, err := strconv.Atoi(port)
			if err != nil {
				return fmt.Errorf("KODIBRIDGE_KODI_PORT: %w", err)
			}
			inst.Port = p
		}
		if user != "" {
			inst.Username = user
		}
		if pass != "" {
			inst.Password = pass
		}
	}

	// YouTube
	if v := os.Getenv("KODIBRIDGE_YOUTUBE_API_KEY"); v != "" {
		cfg.YouTube.APIKey = v
	}

	// MQTT
	if v := os.Getenv("KODIBRIDGE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("KODIBRIDGE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("KODIBRIDGE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("KODIBRIDGE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	return nil
}

// assignInstanceDefaults fills in ids, ports and transports left blank.
func (c *Config) assignInstanceDefaults() {
	for i := range c.Kodi.Instances {
		inst := &c.Kodi.Instances[i]
		if inst.ID == "" {
			if i == 0 {
				inst.ID = DefaultInstanceID
			} else {
				inst.ID = fmt.Sprintf("kodi-%d", i+1)
			}
		}
		if inst.Transport == "" {
			inst.Transport = TransportHTTP
		}
		if inst.Port == 0 {
			if inst.Transport == TransportWebSocket {
				inst.Port = 9090
			} else {
				inst.Port = 8080
			}
		}
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of every validation failure wrapping ErrInvalidConfig, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// The credential is the only thing standing between the network and the
	// media center; an empty one would leave every route unusable.
	if c.Auth.Token == "" {
		errs = append(errs, "auth.token is required (set KODIBRIDGE_AUTH_TOKEN environment variable)")
	}

	if c.Listener.Port < 1 || c.Listener.Port > 65535 {
		errs = append(errs, "listener.port must be between 1 and 65535")
	}
	if c.Listener.TLS.Enabled && (c.Listener.TLS.CertFile == "" || c.Listener.TLS.KeyFile == "") {
		errs = append(errs, "listener.tls requires cert_file and key_file when enabled")
	}

	if c.Kodi.CallTimeout <= 0 {
		errs = append(errs, "kodi.call_timeout must be positive")
	}
	if len(c.Kodi.Instances) == 0 {
		errs = append(errs, "kodi.instances must contain at least one instance")
	}
	seen := make(map[string]bool, len(c.Kodi.Instances))
	for i, inst := range c.Kodi.Instances {
		if inst.Host == "" {
			errs = append(errs, fmt.Sprintf("kodi.instances[%d].host is required", i))
		}
		if inst.Port < 1 || inst.Port > 65535 {
			errs = append(errs, fmt.Sprintf("kodi.instances[%d].port must be between 1 and 65535", i))
		}
		switch inst.Transport {
		case TransportHTTP, TransportWebSocket:
		default:
			errs = append(errs, fmt.Sprintf("kodi.instances[%d].transport must be %q or %q", i, TransportHTTP, TransportWebSocket))
		}
		if inst.ID != "" && seen[inst.ID] {
			errs = append(errs, fmt.Sprintf("kodi.instances[%d].id %q is duplicated", i, inst.ID))
		}
		seen[inst.ID] = true
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Enabled && c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required when mqtt is enabled")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if c.Security.RateLimit.Enabled && c.Security.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, "security.rate_limit.requests_per_minute must be positive when enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the listener read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.Listener.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the listener write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.Listener.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the listener idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.Listener.Timeouts.Idle) * time.Second
}

// GetCallTimeout returns the per-call Kodi timeout as a Duration.
func (c *Config) GetCallTimeout() time.Duration {
	return time.Duration(c.Kodi.CallTimeout) * time.Second
}
