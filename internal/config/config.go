package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrNoSessionKey is returned by LoadSessionKey before `dobble auth` has run.
var ErrNoSessionKey = errors.New("no Last.fm session key stored")

// Config holds application configuration
type Config struct {
	// Output format template for the now command
	// Default: "{{.Artist}} - {{.Title}}"
	OutputFormat string

	// Fixed display width for the now command (0 disables padding)
	OutputWidth int

	// Marquee scrolling for the now command when text exceeds OutputWidth
	MarqueeEnabled   bool
	MarqueeSpeed     int // characters per second
	MarqueeSeparator string

	// Where the session key and spool live. Empty means the XDG default.
	DataDir string

	// Daemon timing
	PollInterval      time.Duration
	FlushInterval     time.Duration
	PlayerWait        time.Duration
	ScrobbleThreshold time.Duration
	HTTPTimeout       time.Duration

	// Mirror the retry queue to SQLite
	SpoolEnabled bool

	// Last.fm API credentials
	LastFM LastFMConfig
}

// LastFMConfig holds Last.fm specific configuration
type LastFMConfig struct {
	APIKey    string
	APISecret string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("output_format", "{{.Artist}} - {{.Title}}")
	v.SetDefault("output_width", 0)
	v.SetDefault("marquee_enabled", false)
	v.SetDefault("marquee_speed", 2)
	v.SetDefault("marquee_separator", " • ")
	v.SetDefault("data_dir", "")
	v.SetDefault("poll_interval", "1s")
	v.SetDefault("flush_interval", "60s")
	v.SetDefault("player_wait", "5s")
	v.SetDefault("scrobble_threshold", "10s")
	v.SetDefault("http_timeout", "30s")
	v.SetDefault("queue.spool", false)
	v.SetDefault("lastfm.api_key", "")
	v.SetDefault("lastfm.api_secret", "")
}

// Load reads configuration from file and environment
func Load() (*Config, error) {
	return load(getConfigDir())
}

func load(configDir string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)

	setDefaults(v)

	// The file is optional, but a broken one is not.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// DOBBLE_LASTFM_API_KEY, DOBBLE_POLL_INTERVAL, ...
	v.SetEnvPrefix("DOBBLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		OutputFormat:      v.GetString("output_format"),
		OutputWidth:       v.GetInt("output_width"),
		MarqueeEnabled:    v.GetBool("marquee_enabled"),
		MarqueeSpeed:      v.GetInt("marquee_speed"),
		MarqueeSeparator:  v.GetString("marquee_separator"),
		DataDir:           v.GetString("data_dir"),
		PollInterval:      v.GetDuration("poll_interval"),
		FlushInterval:     v.GetDuration("flush_interval"),
		PlayerWait:        v.GetDuration("player_wait"),
		ScrobbleThreshold: v.GetDuration("scrobble_threshold"),
		HTTPTimeout:       v.GetDuration("http_timeout"),
		SpoolEnabled:      v.GetBool("queue.spool"),
		LastFM: LastFMConfig{
			APIKey:    v.GetString("lastfm.api_key"),
			APISecret: v.GetString("lastfm.api_secret"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	durations := map[string]time.Duration{
		"poll_interval":      c.PollInterval,
		"flush_interval":     c.FlushInterval,
		"player_wait":        c.PlayerWait,
		"scrobble_threshold": c.ScrobbleThreshold,
	}
	for key, d := range durations {
		if d <= 0 {
			return fmt.Errorf("invalid config: %s must be positive, got %v", key, d)
		}
	}
	if c.HTTPTimeout < 0 {
		return fmt.Errorf("invalid config: http_timeout must not be negative, got %v", c.HTTPTimeout)
	}
	return nil
}

// getConfigDir returns the configuration directory path
func getConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "dobble")
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(homeDir, ".config", "dobble")
}

// GetConfigDir returns the configuration directory path (public helper)
func GetConfigDir() string {
	return getConfigDir()
}

// DataPath returns the data directory: DataDir when set, otherwise
// $XDG_DATA_HOME/dobble or ~/.local/share/dobble.
func (c *Config) DataPath() (string, error) {
	if c.DataDir != "" {
		return c.DataDir, nil
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "dobble"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "dobble"), nil
}

// SessionKeyPath is the file the Last.fm session key is stored in.
func (c *Config) SessionKeyPath() (string, error) {
	dir, err := c.DataPath()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "session-key"), nil
}

// SpoolPath is the SQLite database used when the spool is enabled.
func (c *Config) SpoolPath() (string, error) {
	dir, err := c.DataPath()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "queue.db"), nil
}

// LoadSessionKey reads the stored session key.
func (c *Config) LoadSessionKey() (string, error) {
	path, err := c.SessionKeyPath()
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNoSessionKey
	}
	if err != nil {
		return "", fmt.Errorf("failed to read session key: %w", err)
	}

	key := strings.TrimSpace(string(data))
	if key == "" {
		return "", ErrNoSessionKey
	}
	return key, nil
}

// SaveSessionKey stores key, readable by the current user only.
func (c *Config) SaveSessionKey(key string) error {
	path, err := c.SessionKeyPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(key+"\n"), 0600); err != nil {
		return fmt.Errorf("failed to write session key: %w", err)
	}
	return nil
}

// Save writes configuration to file
func (c *Config) Save() error {
	return c.saveTo(getConfigDir())
}

func (c *Config) saveTo(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.Set("output_format", c.OutputFormat)
	v.Set("output_width", c.OutputWidth)
	v.Set("marquee_enabled", c.MarqueeEnabled)
	v.Set("marquee_speed", c.MarqueeSpeed)
	v.Set("marquee_separator", c.MarqueeSeparator)
	v.Set("data_dir", c.DataDir)
	v.Set("poll_interval", c.PollInterval.String())
	v.Set("flush_interval", c.FlushInterval.String())
	v.Set("player_wait", c.PlayerWait.String())
	v.Set("scrobble_threshold", c.ScrobbleThreshold.String())
	v.Set("http_timeout", c.HTTPTimeout.String())
	v.Set("queue.spool", c.SpoolEnabled)
	v.Set("lastfm.api_key", c.LastFM.APIKey)
	v.Set("lastfm.api_secret", c.LastFM.APISecret)

	return v.WriteConfigAs(filepath.Join(configDir, "config.yaml"))
}
