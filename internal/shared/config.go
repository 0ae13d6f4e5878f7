package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Spotify  SpotifyConfig  `toml:"spotify"`
	Server   ServerConfig   `toml:"server"`
	Jukebox  JukeboxConfig  `toml:"jukebox"`
	Database DatabaseConfig `toml:"database"`
	Log      LogConfig      `toml:"log"`
}

// SpotifyConfig contains Spotify API credentials and endpoints.
type SpotifyConfig struct {
	ClientID          string  `toml:"client_id"`
	ClientSecret      string  `toml:"client_secret"`
	RedirectURI       string  `toml:"redirect_uri"`
	RequestTimeout    int     `toml:"request_timeout_seconds"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	APIBaseURL        string  `toml:"api_base_url"`
	TokenURL          string  `toml:"token_url"`
	AuthURL           string  `toml:"auth_url"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	AdminPassword string `toml:"admin_password"`
}

// JukeboxConfig tunes the queue behaviour.
type JukeboxConfig struct {
	PlaylistName        string `toml:"playlist_name"`
	PlaylistDescription string `toml:"playlist_description"`
	RemoveScanLimit     int    `toml:"remove_scan_limit"`
	ViewLimit           int    `toml:"view_limit"`
	ConsistencyDelayMS  int    `toml:"consistency_delay_ms"`
	SearchLimitMax      int    `toml:"search_limit_max"`
	EnqueuePerMinute    int    `toml:"enqueue_per_minute"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
	HistoryKeep  int    `toml:"history_keep"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// Addr returns the host:port pair the HTTP server listens on.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Timeout returns the outbound request timeout as a [time.Duration].
func (s SpotifyConfig) Timeout() time.Duration {
	return time.Duration(s.RequestTimeout) * time.Second
}

// ConsistencyDelay is the pause between a playlist mutation and its verification read.
func (j JukeboxConfig) ConsistencyDelay() time.Duration {
	return time.Duration(j.ConsistencyDelayMS) * time.Millisecond
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values absent from the file keep the defaults from the embedded example config.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv overrides config values from the process environment.
func (c *Config) ApplyEnv() error {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}

	str("SPOTIFY_CLIENT_ID", &c.Spotify.ClientID)
	str("SPOTIFY_CLIENT_SECRET", &c.Spotify.ClientSecret)
	str("SPOTIFY_REDIRECT_URI", &c.Spotify.RedirectURI)
	str("JUKEBOX_ADMIN_PASSWORD", &c.Server.AdminPassword)
	str("JUKEBOX_HOST", &c.Server.Host)
	str("JUKEBOX_DATABASE_PATH", &c.Database.Path)
	str("JUKEBOX_LOG_LEVEL", &c.Log.Level)

	if v, ok := os.LookupEnv("JUKEBOX_PORT"); ok {
		port, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: JUKEBOX_PORT=%q", ErrInvalidConfig, v)
		}
		c.Server.Port = port
	}
	return nil
}

// Validate checks structural settings. Missing Spotify credentials and admin password are
// reported by the operations that need them, so they are not validated here.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Spotify.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("spotify.request_timeout_seconds must be positive"))
	}
	if c.Spotify.RequestsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("spotify.requests_per_second must not be negative"))
	}
	for name, raw := range map[string]string{
		"spotify.api_base_url": c.Spotify.APIBaseURL,
		"spotify.token_url":    c.Spotify.TokenURL,
		"spotify.auth_url":     c.Spotify.AuthURL,
	} {
		if u, err := url.Parse(raw); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("%s %q is not an absolute URL", name, raw))
		}
	}
	if strings.TrimSpace(c.Jukebox.PlaylistName) == "" {
		errs = append(errs, fmt.Errorf("jukebox.playlist_name is required"))
	}
	if c.Jukebox.RemoveScanLimit <= 0 {
		errs = append(errs, fmt.Errorf("jukebox.remove_scan_limit must be positive"))
	}
	if c.Jukebox.ViewLimit <= 0 {
		errs = append(errs, fmt.Errorf("jukebox.view_limit must be positive"))
	}
	if c.Jukebox.SearchLimitMax <= 0 || c.Jukebox.SearchLimitMax > 50 {
		errs = append(errs, fmt.Errorf("jukebox.search_limit_max must be within 1..50"))
	}
	if c.Jukebox.ConsistencyDelayMS < 0 || c.Jukebox.EnqueuePerMinute < 0 {
		errs = append(errs, fmt.Errorf("jukebox delays and rates must not be negative"))
	}
	if c.Database.Path == "" {
		errs = append(errs, fmt.Errorf("database.path is required"))
	}
	if c.Database.HistoryKeep < 0 {
		errs = append(errs, fmt.Errorf("database.history_keep must not be negative"))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
