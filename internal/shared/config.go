package shared

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Sync        SyncConfig        `toml:"sync"`
	Log         LogConfig         `toml:"log"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	YouTube YouTubeConfig `toml:"youtube"`
}

// YouTubeConfig contains YouTube Data API credentials.
//
// Either APIKey or the OAuth trio (ClientID, ClientSecret, RefreshToken) must be set.
type YouTubeConfig struct {
	APIKey       string `toml:"api_key"`
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RefreshToken string `toml:"refresh_token"`
	RedirectURI  string `toml:"redirect_uri"`
	BaseURL      string `toml:"base_url"`
}

// HasOAuth reports whether enough OAuth settings are present to build a refreshing token source.
func (c YouTubeConfig) HasOAuth() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.RefreshToken != ""
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// SyncConfig controls reconciliation behaviour.
type SyncConfig struct {
	Workers            int     `toml:"workers"`
	RateLimit          float64 `toml:"rate_limit"`
	MaxPages           int     `toml:"max_pages"`
	KeepUnmatchedLocal bool    `toml:"keep_unmatched_local"`
	DefaultSyncEnabled bool    `toml:"default_sync_enabled"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
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

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig encodes config as TOML and writes it to path, replacing any existing file.
func SaveConfig(path string, config *Config) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// envOverrides maps environment variables onto the config fields they replace.
var envOverrides = map[string]func(c *Config) *string{
	"YTSYNC_YOUTUBE_API_KEY":       func(c *Config) *string { return &c.Credentials.YouTube.APIKey },
	"YTSYNC_YOUTUBE_CLIENT_ID":     func(c *Config) *string { return &c.Credentials.YouTube.ClientID },
	"YTSYNC_YOUTUBE_CLIENT_SECRET": func(c *Config) *string { return &c.Credentials.YouTube.ClientSecret },
	"YTSYNC_YOUTUBE_REFRESH_TOKEN": func(c *Config) *string { return &c.Credentials.YouTube.RefreshToken },
	"YTSYNC_DATABASE_PATH":         func(c *Config) *string { return &c.Database.Path },
	"YTSYNC_LOG_LEVEL":             func(c *Config) *string { return &c.Log.Level },
}

// ApplyEnv overrides config values from YTSYNC_* variables.
//
// Variables are read from envFile (dotenv format, skipped when it does not exist) and then from the
// process environment, which wins. Empty values are ignored. Returns the names that were applied.
func ApplyEnv(config *Config, envFile string) ([]string, error) {
	values := map[string]string{}
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			fileValues, err := godotenv.Read(envFile)
			if err != nil {
				return nil, fmt.Errorf("%w: failed to parse %s: %v", ErrInvalidConfig, envFile, err)
			}
			values = fileValues
		}
	}

	var applied []string
	for name, field := range envOverrides {
		v, ok := os.LookupEnv(name)
		if !ok || v == "" {
			v = values[name]
		}
		if v == "" {
			continue
		}
		*field(config) = v
		applied = append(applied, name)
	}
	sort.Strings(applied)
	return applied, nil
}
