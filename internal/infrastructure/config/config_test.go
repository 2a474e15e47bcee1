package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, `
listener:
  host: "127.0.0.1"
  port: 8099
auth:
  token: "s3cret"
kodi:
  call_timeout: 5
  instances:
    - id: "living-room"
      host: "192.168.1.20"
      port: 8080
      username: "kodi"
      password: "kodi"
    - host: "192.168.1.21"
      transport: "websocket"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Auth.Token != "s3cret" {
		t.Errorf("Auth.Token = %q, want %q", cfg.Auth.Token, "s3cret")
	}
	if cfg.Listener.Host != "127.0.0.1" {
		t.Errorf("Listener.Host = %q, want %q", cfg.Listener.Host, "127.0.0.1")
	}
	if len(cfg.Kodi.Instances) != 2 {
		t.Fatalf("len(Kodi.Instances) = %d, want 2", len(cfg.Kodi.Instances))
	}

	first := cfg.Kodi.Instances[0]
	if first.ID != "living-room" || first.Transport != TransportHTTP {
		t.Errorf("Instances[0] = %+v, want id living-room with http transport", first)
	}

	second := cfg.Kodi.Instances[1]
	if second.ID != "kodi-2" {
		t.Errorf("Instances[1].ID = %q, want %q", second.ID, "kodi-2")
	}
	if second.Port != 9090 {
		t.Errorf("Instances[1].Port = %d, want 9090 for websocket default", second.Port)
	}
	if got := cfg.GetCallTimeout().Seconds(); got != 5 {
		t.Errorf("GetCallTimeout() = %v, want 5", got)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "invalid: [yaml: content")

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_MissingTokenIsConfigurationError(t *testing.T) {
	configPath := writeConfig(t, `
kodi:
  instances:
    - host: "192.168.1.20"
`)

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Load() expected validation error for missing auth.token, got nil")
	}
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Load() error = %v, want wrapping ErrInvalidConfig", err)
	}
	if !strings.Contains(err.Error(), "auth.token") {
		t.Errorf("Load() error = %v, want mention of auth.token", err)
	}
}

func TestLoad_EnvCreatesDefaultInstance(t *testing.T) {
	configPath := writeConfig(t, `
listener:
  port: 8099
`)
	t.Setenv("KODIBRIDGE_AUTH_TOKEN", "from-env")
	t.Setenv("KODIBRIDGE_KODI_HOST", "10.0.0.5")
	t.Setenv("KODIBRIDGE_KODI_PORT", "8081")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(cfg.Kodi.Instances) != 1 {
		t.Fatalf("len(Kodi.Instances) = %d, want 1", len(cfg.Kodi.Instances))
	}
	inst := cfg.Kodi.Instances[0]
	if inst.ID != DefaultInstanceID || inst.Host != "10.0.0.5" || inst.Port != 8081 {
		t.Errorf("default instance = %+v, want id=%q host=10.0.0.5 port=8081", inst, DefaultInstanceID)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg := defaultConfig()
		cfg.Auth.Token = "token"
		cfg.Kodi.Instances = []KodiInstance{{ID: "default", Host: "kodi.local", Port: 8080, Transport: TransportHTTP}}
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "missing token",
			mutate:  func(c *Config) { c.Auth.Token = "" },
			wantErr: true,
		},
		{
			name:    "invalid port low",
			mutate:  func(c *Config) { c.Listener.Port = 0 },
			wantErr: true,
		},
		{
			name:    "invalid port high",
			mutate:  func(c *Config) { c.Listener.Port = 70000 },
			wantErr: true,
		},
		{
			name:    "no instances",
			mutate:  func(c *Config) { c.Kodi.Instances = nil },
			wantErr: true,
		},
		{
			name:    "instance without host",
			mutate:  func(c *Config) { c.Kodi.Instances[0].Host = "" },
			wantErr: true,
		},
		{
			name:    "unknown transport",
			mutate:  func(c *Config) { c.Kodi.Instances[0].Transport = "tcp" },
			wantErr: true,
		},
		{
			name: "duplicate ids",
			mutate: func(c *Config) {
				c.Kodi.Instances = append(c.Kodi.Instances, c.Kodi.Instances[0])
			},
			wantErr: true,
		},
		{
			name:    "zero call timeout",
			mutate:  func(c *Config) { c.Kodi.CallTimeout = 0 },
			wantErr: true,
		},
		{
			name:    "invalid QoS",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: true,
		},
		{
			name: "influxdb enabled without url",
			mutate: func(c *Config) {
				c.InfluxDB.Enabled = true
				c.InfluxDB.URL = ""
			},
			wantErr: true,
		},
		{
			name: "rate limit enabled with zero rate",
			mutate: func(c *Config) {
				c.Security.RateLimit.Enabled = true
				c.Security.RateLimit.RequestsPerMinute = 0
			},
			wantErr: true,
		},
		{
			name: "tls without key",
			mutate: func(c *Config) {
				c.Listener.TLS = TLSConfig{Enabled: true, CertFile: "cert.pem"}
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_GetTimeouts(t *testing.T) {
	cfg := &Config{
		Listener: ListenerConfig{
			Timeouts: ListenerTimeoutConfig{
				Read:  30,
				Write: 45,
				Idle:  60,
			},
		},
	}

	if got := cfg.GetReadTimeout().Seconds(); got != 30 {
		t.Errorf("GetReadTimeout() = %v, want 30", got)
	}

	if got := cfg.GetWriteTimeout().Seconds(); got != 45 {
		t.Errorf("GetWriteTimeout() = %v, want 45", got)
	}

	if got := cfg.GetIdleTimeout().Seconds(); got != 60 {
		t.Errorf("GetIdleTimeout() = %v, want 60", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()
	cfg.Kodi.Instances = []KodiInstance{{ID: "living-room", Host: "old", Port: 8080}}

	t.Setenv("KODIBRIDGE_AUTH_TOKEN", "env-token")
	t.Setenv("KODIBRIDGE_LISTENER_HOST", "192.168.1.1")
	t.Setenv("KODIBRIDGE_LISTENER_PORT", "9000")
	t.Setenv("KODIBRIDGE_KODI_HOST", "new")
	t.Setenv("KODIBRIDGE_KODI_USER", "kodi")
	t.Setenv("KODIBRIDGE_KODI_PASSWORD", "pass")
	t.Setenv("KODIBRIDGE_YOUTUBE_API_KEY", "yt-key")
	t.Setenv("KODIBRIDGE_MQTT_HOST", "mqtt.example.com")
	t.Setenv("KODIBRIDGE_MQTT_USERNAME", "testuser")
	t.Setenv("KODIBRIDGE_MQTT_PASSWORD", "testpass")
	t.Setenv("KODIBRIDGE_INFLUXDB_TOKEN", "secret-token")

	if err := applyEnvOverrides(cfg); err != nil {
		t.Fatalf("applyEnvOverrides() error = %v", err)
	}

	if cfg.Auth.Token != "env-token" {
		t.Errorf("Auth.Token = %q, want %q", cfg.Auth.Token, "env-token")
	}
	if cfg.Listener.Host != "192.168.1.1" {
		t.Errorf("Listener.Host = %q, want %q", cfg.Listener.Host, "192.168.1.1")
	}
	if cfg.Listener.Port != 9000 {
		t.Errorf("Listener.Port = %d, want 9000", cfg.Listener.Port)
	}

	inst := cfg.Kodi.Instances[0]
	if inst.ID != "living-room" {
		t.Errorf("Instances[0].ID = %q, want env overrides to keep the id", inst.ID)
	}
	if inst.Host != "new" || inst.Username != "kodi" || inst.Password != "pass" {
		t.Errorf("Instances[0] = %+v, want host/user/password from env", inst)
	}
	if inst.Port != 8080 {
		t.Errorf("Instances[0].Port = %d, want unchanged 8080", inst.Port)
	}

	if cfg.YouTube.APIKey != "yt-key" {
		t.Errorf("YouTube.APIKey = %q, want %q", cfg.YouTube.APIKey, "yt-key")
	}
	if cfg.MQTT.Broker.Host != "mqtt.example.com" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "mqtt.example.com")
	}
	if cfg.MQTT.Auth.Username != "testuser" {
		t.Errorf("MQTT.Auth.Username = %q, want %q", cfg.MQTT.Auth.Username, "testuser")
	}
	if cfg.MQTT.Auth.Password != "testpass" {
		t.Errorf("MQTT.Auth.Password = %q, want %q", cfg.MQTT.Auth.Password, "testpass")
	}
	if cfg.InfluxDB.Token != "secret-token" {
		t.Errorf("InfluxDB.Token = %q, want %q", cfg.InfluxDB.Token, "secret-token")
	}
}

func TestApplyEnvOverrides_BadPort(t *testing.T) {
	cfg := defaultConfig()
	t.Setenv("KODIBRIDGE_LISTENER_PORT", "eighty")

	if err := applyEnvOverrides(cfg); err == nil {
		t.Error("applyEnvOverrides() expected error for non-numeric port, got nil")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Listener.Port != 8099 {
		t.Errorf("defaultConfig Listener.Port = %d, want 8099", cfg.Listener.Port)
	}
	if cfg.Kodi.CallTimeout <= 0 {
		t.Error("defaultConfig should have a positive Kodi.CallTimeout")
	}
	if cfg.MQTT.Enabled {
		t.Error("defaultConfig should leave MQTT disabled")
	}
	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("defaultConfig MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}
	if cfg.Auth.Token != "" {
		t.Error("defaultConfig must not ship a credential")
	}
}
