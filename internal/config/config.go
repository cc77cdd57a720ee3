// Package config loads the player configuration from a TOML file with
// environment overrides.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// SampleConfig returns a commented configuration with every default spelled out.
func SampleConfig() string {
	return sampleConfig
}

type Server struct {
	URL            string `toml:"url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type Device struct {
	Name   string `toml:"name"`
	IDFile string `toml:"id_file"`
}

// Playback intervals are in seconds.
type Playback struct {
	SyncInterval      int  `toml:"sync_interval"`
	IdleSyncInterval  int  `toml:"idle_sync_interval"`
	FastCheckInterval int  `toml:"fast_check_interval"`
	HealthInterval    int  `toml:"health_interval"`
	WatchdogInterval  int  `toml:"watchdog_interval"`
	MaxRetries        int  `toml:"max_retries"`
	AllowAudio        bool `toml:"allow_audio"`
	Preview           bool `toml:"preview"`
}

type Telemetry struct {
	Enabled bool `toml:"enabled"`
}

type MQTT struct {
	Enabled  bool   `toml:"enabled"`
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Username string `toml:"username"`
	Password string `toml:"password"`
}

type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Config is everything a player needs to run.
type Config struct {
	Server    Server    `toml:"server"`
	Device    Device    `toml:"device"`
	Playback  Playback  `toml:"playback"`
	Telemetry Telemetry `toml:"telemetry"`
	MQTT      MQTT      `toml:"mqtt"`
	Logging   Logging   `toml:"logging"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Server: Server{URL: "http://localhost:8080", TimeoutSeconds: 8},
		Device: Device{IDFile: "~/.local/state/prontotv/device_id"},
		Playback: Playback{
			SyncInterval:      10,
			IdleSyncInterval:  120,
			FastCheckInterval: 10,
			HealthInterval:    5,
			WatchdogInterval:  2,
			MaxRetries:        3,
		},
		Telemetry: Telemetry{Enabled: true},
		MQTT:      MQTT{Host: "localhost", Port: 1883},
		Logging:   Logging{Level: "info", Format: "console"},
	}
}

// DefaultConfigPath is where the player looks when no path is given.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/prontotv/player.toml")
}

// Load reads path (or the default location), applies environment overrides
// and validates the result. A missing file is not an error; the second return
// is the resolved path and the third whether it existed.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolved, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolved)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		if err := toml.NewDecoder(file).Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, "", false, err
	}
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolved, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path == "" {
		def, err := DefaultConfigPath()
		if err != nil {
			return "", false, err
		}
		path = def
	}
	expanded, err := expandPath(path)
	if err != nil {
		return "", false, err
	}
	info, err := os.Stat(expanded)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return expanded, false, nil
		}
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	if info.IsDir() {
		return "", false, fmt.Errorf("config path %q is a directory", expanded)
	}
	return expanded, true, nil
}

// applyEnv lets the environment override the file. lookup is os.LookupEnv
// outside tests.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	boolean := func(key string, dst *bool) error {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = b
		return nil
	}

	str("PRONTOTV_SERVER_URL", &c.Server.URL)
	str("PRONTOTV_DEVICE_NAME", &c.Device.Name)
	str("PRONTOTV_DEVICE_ID_FILE", &c.Device.IDFile)
	str("PRONTOTV_MQTT_HOST", &c.MQTT.Host)
	str("PRONTOTV_MQTT_USERNAME", &c.MQTT.Username)
	str("PRONTOTV_MQTT_PASSWORD", &c.MQTT.Password)
	str("LOG_LEVEL", &c.Logging.Level)

	for key, dst := range map[string]*bool{
		"PRONTOTV_ALLOW_AUDIO":  &c.Playback.AllowAudio,
		"PRONTOTV_PREVIEW":      &c.Playback.Preview,
		"PRONTOTV_MQTT_ENABLED": &c.MQTT.Enabled,
	} {
		if err := boolean(key, dst); err != nil {
			return err
		}
	}
	if v, ok := lookup("PRONTOTV_MQTT_PORT"); ok && strings.TrimSpace(v) != "" {
		port, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("PRONTOTV_MQTT_PORT: %w", err)
		}
		c.MQTT.Port = port
	}
	return nil
}

func (c *Config) normalize() error {
	c.Server.URL = strings.TrimSuffix(strings.TrimSpace(c.Server.URL), "/")
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))

	idFile, err := expandPath(c.Device.IDFile)
	if err != nil {
		return err
	}
	c.Device.IDFile = idFile
	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Server.URL == "" {
		return errors.New("server.url is required")
	}
	if !strings.HasPrefix(c.Server.URL, "http://") && !strings.HasPrefix(c.Server.URL, "https://") {
		return fmt.Errorf("server.url must be http or https, got %q", c.Server.URL)
	}
	if c.Device.IDFile == "" {
		return errors.New("device.id_file is required")
	}
	for name, v := range map[string]int{
		"playback.sync_interval":       c.Playback.SyncInterval,
		"playback.idle_sync_interval":  c.Playback.IdleSyncInterval,
		"playback.fast_check_interval": c.Playback.FastCheckInterval,
		"playback.health_interval":     c.Playback.HealthInterval,
		"playback.watchdog_interval":   c.Playback.WatchdogInterval,
		"playback.max_retries":         c.Playback.MaxRetries,
		"server.timeout_seconds":       c.Server.TimeoutSeconds,
	} {
		if v <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	if c.MQTT.Enabled && (c.MQTT.Host == "" || c.MQTT.Port <= 0) {
		return errors.New("mqtt.host and mqtt.port are required when mqtt is enabled")
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}

// SocketURL is the websocket endpoint derived from the server URL.
func (c *Config) SocketURL() string {
	u := c.Server.URL
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/ws"
}

func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Server.TimeoutSeconds) * time.Second
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

func (p Playback) Sync() time.Duration      { return seconds(p.SyncInterval) }
func (p Playback) IdleSync() time.Duration  { return seconds(p.IdleSyncInterval) }
func (p Playback) FastCheck() time.Duration { return seconds(p.FastCheckInterval) }
func (p Playback) Health() time.Duration    { return seconds(p.HealthInterval) }
func (p Playback) Watchdog() time.Duration  { return seconds(p.WatchdogInterval) }

func expandPath(p string) (string, error) {
	if p == "" {
		return p, nil
	}
	if strings.HasPrefix(p, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if p == "~" {
			p = home
		} else if p[1] == '/' {
			p = filepath.Join(home, p[2:])
		}
	}
	abs, err := filepath.Abs(filepath.Clean(p))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", p, err)
	}
	return abs, nil
}

// ExpandPath applies the "~" and absolute path rules used for config paths.
func ExpandPath(p string) (string, error) {
	return expandPath(p)
}

// CreateSample writes the sample configuration to path.
func CreateSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(path, []byte(sampleConfig), 0o644)
}
