// Package config handles layered YAML configuration with environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config holds all postdesk configuration.
type Config struct {
	API API `yaml:"api"`
	UI  UI  `yaml:"ui"`
	Log Log `yaml:"log"`
}

// API holds the remote resource API settings.
type API struct {
	BaseURL string        `yaml:"base_url" env:"API_BASE_URL"`
	AppID   string        `yaml:"app_id"   env:"API_APP_ID"`
	Timeout time.Duration `yaml:"timeout"  env:"POSTDESK_API_TIMEOUT"` // 0 disables
}

// UI holds page sizes and timings of the interactive dashboard.
type UI struct {
	HomePageSize  int           `yaml:"home_page_size"`
	UsersPageSize int           `yaml:"users_page_size"`
	PostsPageSize int           `yaml:"posts_page_size"`
	OwnerPageSize int           `yaml:"owner_page_size"`
	Debounce      time.Duration `yaml:"debounce"`
	ToastDuration time.Duration `yaml:"toast_duration"`
	CacheEvents   int           `yaml:"cache_events"` // query cache subscription buffer
}

// Log holds logger settings. An empty File discards logs.
type Log struct {
	File  string `yaml:"file"  env:"POSTDESK_LOG_FILE"`
	Level string `yaml:"level" env:"POSTDESK_LOG_LEVEL"`
}

// DefaultConfig returns a Config with sensible defaults. BaseURL and AppID
// have no default and must be configured.
func DefaultConfig() Config {
	return Config{
		API: API{
			Timeout: 30 * time.Second,
		},
		UI: UI{
			HomePageSize:  8,
			UsersPageSize: 10,
			PostsPageSize: 10,
			OwnerPageSize: 10,
			Debounce:      time.Second,
			ToastDuration: 4 * time.Second,
			CacheEvents:   16,
		},
		Log: Log{
			Level: "info",
		},
	}
}

// Load reads a single YAML config file at path and returns a Config.
// For merging multiple config sources, use LoadLayered instead.
// If the file does not exist, defaults are returned without error.
// If the file contains invalid YAML or unknown fields, an error is returned.
func Load(path string) (*Config, error) {
	return LoadLayered(path)
}

// LoadLayered loads config from multiple paths with increasing priority.
// Later paths override earlier ones. Missing files are skipped.
func LoadLayered(paths ...string) (*Config, error) {
	cfg := DefaultConfig()

	for _, path := range paths {
		layer, err := loadLayer(path)
		if err != nil {
			return nil, err
		}
		if layer == nil {
			continue
		}
		cfg.merge(layer)
	}

	return &cfg, nil
}

// Paths returns the default layer locations: the user config followed by
// the project config in the working directory.
func Paths() []string {
	var paths []string
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "postdesk", "config.yaml"))
	}
	return append(paths, filepath.Join(".postdesk", "config.yaml"))
}

// ApplyEnv applies environment variable overrides to the config.
// Supported variables: API_BASE_URL, API_APP_ID, POSTDESK_API_TIMEOUT,
// POSTDESK_LOG_FILE, POSTDESK_LOG_LEVEL. Unset variables leave values alone.
func (c *Config) ApplyEnv() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("config: applying environment: %w", err)
	}
	return nil
}

// Validate checks that config values are usable.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return errors.New("config: api.base_url cannot be empty (set API_BASE_URL)")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("config: api.base_url must be an http(s) URL, got %q", c.API.BaseURL)
	}
	if c.API.AppID == "" {
		return errors.New("config: api.app_id cannot be empty (set API_APP_ID)")
	}
	if c.API.Timeout < 0 {
		return fmt.Errorf("config: api.timeout must be non-negative, got %v", c.API.Timeout)
	}
	sizes := []struct {
		name string
		v    int
	}{
		{"ui.home_page_size", c.UI.HomePageSize},
		{"ui.users_page_size", c.UI.UsersPageSize},
		{"ui.posts_page_size", c.UI.PostsPageSize},
		{"ui.owner_page_size", c.UI.OwnerPageSize},
	}
	for _, s := range sizes {
		// The API accepts limits in [5, 50].
		if s.v < 5 || s.v > 50 {
			return fmt.Errorf("config: %s must be between 5 and 50, got %d", s.name, s.v)
		}
	}
	if c.UI.Debounce < 0 {
		return fmt.Errorf("config: ui.debounce must be non-negative, got %v", c.UI.Debounce)
	}
	if c.UI.ToastDuration <= 0 {
		return fmt.Errorf("config: ui.toast_duration must be positive, got %v", c.UI.ToastDuration)
	}
	if c.UI.CacheEvents < 1 {
		return fmt.Errorf("config: ui.cache_events must be at least 1, got %d", c.UI.CacheEvents)
	}
	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
		// valid
	default:
		return fmt.Errorf("config: log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	return nil
}

// rawConfig mirrors Config but uses pointers to distinguish set vs unset fields.
type rawConfig struct {
	API *rawAPI `yaml:"api"`
	UI  *rawUI  `yaml:"ui"`
	Log *rawLog `yaml:"log"`
}

type rawAPI struct {
	BaseURL *string        `yaml:"base_url"`
	AppID   *string        `yaml:"app_id"`
	Timeout *time.Duration `yaml:"timeout"`
}

type rawUI struct {
	HomePageSize  *int           `yaml:"home_page_size"`
	UsersPageSize *int           `yaml:"users_page_size"`
	PostsPageSize *int           `yaml:"posts_page_size"`
	OwnerPageSize *int           `yaml:"owner_page_size"`
	Debounce      *time.Duration `yaml:"debounce"`
	ToastDuration *time.Duration `yaml:"toast_duration"`
	CacheEvents   *int           `yaml:"cache_events"`
}

type rawLog struct {
	File  *string `yaml:"file"`
	Level *string `yaml:"level"`
}

// loadLayer reads a single config file into a rawConfig for selective merging.
// Returns nil if the file does not exist. Rejects unknown fields.
func loadLayer(path string) (*rawConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if len(data) == 0 {
		return nil, nil
	}

	var raw rawConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		// Comment-only YAML files produce EOF with no decoded content.
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	return &raw, nil
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// merge applies non-nil fields from a rawConfig layer onto this Config.
func (c *Config) merge(layer *rawConfig) {
	if a := layer.API; a != nil {
		set(&c.API.BaseURL, a.BaseURL)
		set(&c.API.AppID, a.AppID)
		set(&c.API.Timeout, a.Timeout)
	}
	if u := layer.UI; u != nil {
		set(&c.UI.HomePageSize, u.HomePageSize)
		set(&c.UI.UsersPageSize, u.UsersPageSize)
		set(&c.UI.PostsPageSize, u.PostsPageSize)
		set(&c.UI.OwnerPageSize, u.OwnerPageSize)
		set(&c.UI.Debounce, u.Debounce)
		set(&c.UI.ToastDuration, u.ToastDuration)
		set(&c.UI.CacheEvents, u.CacheEvents)
	}
	if l := layer.Log; l != nil {
		set(&c.Log.File, l.File)
		set(&c.Log.Level, l.Level)
	}
}
