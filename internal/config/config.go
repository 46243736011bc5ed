package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jfmyers9/replay/pkg/lastfm"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	// Output format template for the now, history and watch commands
	// Default: "{{.Artist}} - {{.Name}}"
	OutputFormat string

	// Fixed output width in display columns (0 = disabled)
	OutputWidth int

	// Marquee scrolling for the now command when output exceeds OutputWidth
	MarqueeEnabled   bool
	MarqueeSpeed     int // characters per second
	MarqueeSeparator string

	// Poll interval for the watch command (in seconds)
	PollInterval int

	// Attempts per request before giving up
	MaxRetries int

	// HTTP request timeout (in seconds)
	HTTPTimeout int

	// Last.fm API settings
	LastFM LastFMConfig
}

// LastFMConfig holds Last.fm specific configuration
type LastFMConfig struct {
	APIKey   string
	Username string
	BaseURL  string
}

// ErrMissingUsername is returned by Validate when no Last.fm user is set.
var ErrMissingUsername = errors.New("Last.fm username not configured. Run 'replay auth --username <user>' or set REPLAY_LASTFM_USERNAME")

// Load reads configuration from file and environment
func Load() (*Config, error) {
	return load(getConfigDir(), ".")
}

// load reads config.yaml from the first of paths that has one, then
// applies environment overrides.
func load(paths ...string) (*Config, error) {
	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	// Set defaults
	v.SetDefault("output_format", "{{.Artist}} - {{.Name}}")
	v.SetDefault("output_width", 0)
	v.SetDefault("marquee_enabled", false)
	v.SetDefault("marquee_speed", 2)
	v.SetDefault("marquee_separator", " • ")
	v.SetDefault("poll_interval", 10)
	v.SetDefault("max_retries", lastfm.DefaultMaxRetries)
	v.SetDefault("http_timeout", 10)
	v.SetDefault("lastfm.base_url", lastfm.DefaultBaseURL)

	// Read config file (optional - don't fail if missing)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Read from environment variables, e.g. REPLAY_LASTFM_USERNAME
	v.SetEnvPrefix("REPLAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The library's own variable works too
	if err := v.BindEnv("lastfm.api_key", "REPLAY_LASTFM_API_KEY", lastfm.APIKeyEnv); err != nil {
		return nil, fmt.Errorf("failed to bind environment: %w", err)
	}

	// Map config to struct
	cfg := &Config{
		OutputFormat:     v.GetString("output_format"),
		OutputWidth:      v.GetInt("output_width"),
		MarqueeEnabled:   v.GetBool("marquee_enabled"),
		MarqueeSpeed:     v.GetInt("marquee_speed"),
		MarqueeSeparator: v.GetString("marquee_separator"),
		PollInterval:     v.GetInt("poll_interval"),
		MaxRetries:       v.GetInt("max_retries"),
		HTTPTimeout:      v.GetInt("http_timeout"),
		LastFM: LastFMConfig{
			APIKey:   strings.TrimSpace(v.GetString("lastfm.api_key")),
			Username: strings.TrimSpace(v.GetString("lastfm.username")),
			BaseURL:  v.GetString("lastfm.base_url"),
		},
	}

	return cfg, nil
}

// Validate checks that the Last.fm credentials needed to make requests
// are present.
func (c *Config) Validate() error {
	if c.LastFM.APIKey == "" {
		return lastfm.ErrMissingCredential
	}
	if c.LastFM.Username == "" {
		return ErrMissingUsername
	}
	return nil
}

// PollDuration returns the watch poll interval. Non-positive values fall back
// to 10 seconds.
func (c *Config) PollDuration() time.Duration {
	if c.PollInterval <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.PollInterval) * time.Second
}

// Timeout returns the HTTP request timeout. Non-positive values fall back to
// 10 seconds.
func (c *Config) Timeout() time.Duration {
	if c.HTTPTimeout <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.HTTPTimeout) * time.Second
}

// getConfigDir returns the configuration directory path
// Creates the directory if it doesn't exist
func getConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	configDir := filepath.Join(homeDir, ".config", "replay")

	// Create config directory if it doesn't exist
	_ = os.MkdirAll(configDir, 0755)

	return configDir
}

// GetConfigDir returns the configuration directory path (public helper)
func GetConfigDir() string {
	return getConfigDir()
}

// GetDataDir returns the directory for local data such as export databases
func GetDataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(homeDir, ".local", "share", "replay")
}

// Save writes configuration to file
func (c *Config) Save() error {
	return c.saveTo(getConfigDir())
}

func (c *Config) saveTo(dir string) error {
	v := viper.New()

	// Set config file path
	configFile := filepath.Join(dir, "config.yaml")

	// Set values in viper
	v.Set("output_format", c.OutputFormat)
	v.Set("output_width", c.OutputWidth)
	v.Set("marquee_enabled", c.MarqueeEnabled)
	v.Set("marquee_speed", c.MarqueeSpeed)
	v.Set("marquee_separator", c.MarqueeSeparator)
	v.Set("poll_interval", c.PollInterval)
	v.Set("max_retries", c.MaxRetries)
	v.Set("http_timeout", c.HTTPTimeout)
	v.Set("lastfm.api_key", c.LastFM.APIKey)
	v.Set("lastfm.username", c.LastFM.Username)
	v.Set("lastfm.base_url", c.LastFM.BaseURL)

	// Write to file
	return v.WriteConfigAs(configFile)
}
