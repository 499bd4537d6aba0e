// Package config loads the Eventa TOML configuration, an optional .env file
// and EVENTA_* environment overrides.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed config.toml.sample
var configTemplate string

const placeholderDBPath = "/home/user/.local/share/eventa/eventa.db"

// Defaults.
const (
	DefaultListen     = "localhost:8080"
	DefaultMinResults = 5
	DefaultLogLevel   = "info"
)

// Environment overrides.
const (
	EnvDBPath       = "EVENTA_DB_PATH"
	EnvListen       = "EVENTA_LISTEN"
	EnvGoogleAPIKey = "EVENTA_GOOGLE_API_KEY"
	EnvGoogleCX     = "EVENTA_GOOGLE_CX"
	EnvAdminToken   = "EVENTA_ADMIN_TOKEN"
	EnvMinResults   = "EVENTA_WEB_MIN_RESULTS"
)

type Config struct {
	DatabasePath   string                  `toml:"database_path"`
	Listen         string                  `toml:"listen"`
	Timezone       string                  `toml:"timezone"`
	OptimizeEvery  Duration                `toml:"optimize_interval,omitempty"`
	DictionaryPath string                  `toml:"dictionary_path,omitempty"`
	BlocklistPath  string                  `toml:"blocklist_path,omitempty"`
	Log            LogConfig               `toml:"log"`
	Admin          AdminConfig             `toml:"admin"`
	Web            WebConfig               `toml:"web"`
	Providers      map[string]ProviderInfo `toml:"providers"`
}

type LogConfig struct {
	Level         string   `toml:"level"`
	DebugServices []string `toml:"debug_services"`
}

type AdminConfig struct {
	Token string `toml:"token"`
}

type WebConfig struct {
	APIKey     string   `toml:"api_key"`
	EngineID   string   `toml:"engine_id"`
	Endpoint   string   `toml:"endpoint,omitempty"`
	Timeout    Duration `toml:"timeout"`
	MinResults int      `toml:"min_results"`
}

// Duration is a time.Duration written as a Go duration string.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	if d.Duration == 0 {
		return []byte(""), nil
	}
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		d.Duration = 0
		return nil
	}
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// ProviderInfo is one [providers.<name>] table. A zero Interval means the
// provider is only imported on demand.
type ProviderInfo struct {
	Type     string         `toml:"type"`
	Interval Duration       `toml:"interval,omitempty"`
	Config   map[string]any `toml:"config"`
}

// GetDefaultConfig returns the configuration used when no file exists.
func GetDefaultConfig() (*Config, error) {
	dbPath, err := GetDefaultDBPath()
	if err != nil {
		return nil, err
	}
	c := &Config{DatabasePath: dbPath}
	c.applyDefaults()
	return c, nil
}

// LoadConfig reads configPath, falling back to defaults when it does not
// exist, then applies environment overrides. A .env file next to the config
// file or in the working directory is loaded first; it never replaces
// variables already set.
func LoadConfig(configPath string) (*Config, error) {
	LoadDotEnv(filepath.Join(filepath.Dir(configPath), ".env"), ".env")

	var cfg *Config
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg, err = GetDefaultConfig()
		if err != nil {
			return nil, err
		}
	} else {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		cfg, err = Parse(data)
		if err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	if cfg.DatabasePath == "" {
		dbPath, err := GetDefaultDBPath()
		if err != nil {
			return nil, err
		}
		cfg.DatabasePath = dbPath
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes TOML config data and fills defaults. It does not look at the
// environment.
func Parse(data []byte) (*Config, error) {
	var c Config
	if err := toml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	c.applyDefaults()
	return &c, nil
}

// LoadDotEnv loads the first existing file among paths into the process
// environment.
func LoadDotEnv(paths ...string) {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err == nil {
			return
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Web.MinResults == 0 {
		c.Web.MinResults = DefaultMinResults
	}
	if c.Providers == nil {
		c.Providers = make(map[string]ProviderInfo)
	}
}

func (c *Config) applyEnv() {
	c.DatabasePath = getEnv(EnvDBPath, c.DatabasePath)
	c.Listen = getEnv(EnvListen, c.Listen)
	c.Web.APIKey = getEnv(EnvGoogleAPIKey, c.Web.APIKey)
	c.Web.EngineID = getEnv(EnvGoogleCX, c.Web.EngineID)
	c.Web.MinResults = getEnvInt(EnvMinResults, c.Web.MinResults)
	c.Admin.Token = getEnv(EnvAdminToken, c.Admin.Token)
}

// Validate checks values that would otherwise fail later at startup.
func (c *Config) Validate() error {
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	if c.Web.MinResults < 0 {
		return fmt.Errorf("web.min_results must not be negative")
	}
	if c.Web.Timeout.Duration < 0 {
		return fmt.Errorf("web.timeout must not be negative")
	}
	if c.OptimizeEvery.Duration < 0 {
		return fmt.Errorf("optimize_interval must not be negative")
	}
	for name, p := range c.Providers {
		if p.Type == "" {
			return fmt.Errorf("provider %s has no type", name)
		}
		if p.Interval.Duration < 0 {
			return fmt.Errorf("provider %s: interval must not be negative", name)
		}
	}
	return nil
}

// Location returns the configured time zone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ProviderNames lists configured providers, sorted.
func (c *Config) ProviderNames() []string {
	names := make([]string, 0, len(c.Providers))
	for name := range c.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SaveTemplateConfig writes the commented sample config with the database
// path filled in.
func (c *Config) SaveTemplateConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	dbPath := c.DatabasePath
	if dbPath == "" {
		var err error
		if dbPath, err = GetDefaultDBPath(); err != nil {
			return err
		}
	}
	template := strings.Replace(configTemplate, placeholderDBPath, dbPath, 1)
	return os.WriteFile(configPath, []byte(template), 0644)
}

// SaveConfig writes c as TOML.
func (c *Config) SaveConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(configPath, data, 0644)
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

// GetDefaultStorageDir returns $XDG_DATA_HOME/eventa, creating it.
func GetDefaultStorageDir() (string, error) {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting user home directory: %w", err)
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	dir := filepath.Join(dataDir, "eventa")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating storage directory %s: %w", dir, err)
	}
	return dir, nil
}

// GetDefaultDBPath returns the default database file.
func GetDefaultDBPath() (string, error) {
	dir, err := GetDefaultStorageDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "eventa.db"), nil
}

// GetConfigDir returns $XDG_CONFIG_HOME/eventa, creating it.
func GetConfigDir() (string, error) {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting user home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	dir := filepath.Join(configDir, "eventa")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating config directory %s: %w", dir, err)
	}
	return dir, nil
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}
