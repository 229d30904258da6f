package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// ClientIDEnv overrides [SpotifyConfig.ClientID] when set.
const ClientIDEnv = "PLCOVER_CLIENT_ID"

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Spotify SpotifyConfig `toml:"spotify"`
	Store   StoreConfig   `toml:"store"`
	Server  ServerConfig  `toml:"server"`
	Cover   CoverConfig   `toml:"cover"`
}

// SpotifyConfig contains the public client settings for the PKCE flow. No client secret is needed.
type SpotifyConfig struct {
	ClientID    string `toml:"client_id"`
	RedirectURI string `toml:"redirect_uri"`
	AuthURL     string `toml:"auth_url"`
	TokenURL    string `toml:"token_url"`
	APIURL      string `toml:"api_url"`
}

// StoreConfig selects the key-value backend for session data.
type StoreConfig struct {
	Backend   string `toml:"backend"`
	Path      string `toml:"path"`
	RedisAddr string `toml:"redis_addr"`
	RedisKey  string `toml:"redis_key"`
}

// ServerConfig contains the loopback callback server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// CoverConfig contains compositor and upload defaults.
type CoverConfig struct {
	Size           int     `toml:"size"`
	UploadSize     int     `toml:"upload_size"`
	Quality        float64 `toml:"quality"`
	MaxUploadBytes int     `toml:"max_upload_bytes"`
	FetchRate      float64 `toml:"fetch_rate"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
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

// Validate checks the values that would otherwise fail deep inside a command.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "sqlite", "redis":
	default:
		return fmt.Errorf("%w: unknown store backend %q", ErrInvalidConfig, c.Store.Backend)
	}
	if c.Cover.Size < 2 || c.Cover.Size%2 != 0 {
		return fmt.Errorf("%w: cover.size must be an even number >= 2", ErrInvalidConfig)
	}
	if c.Cover.Quality <= 0 || c.Cover.Quality > 1 {
		return fmt.Errorf("%w: cover.quality %v", ErrInvalidConfig, ErrInvalidQuality)
	}
	if !strings.HasSuffix(c.Spotify.APIURL, "/") {
		c.Spotify.APIURL += "/"
	}
	return nil
}

// ApplyEnv loads an optional .env file and applies environment overrides to the config.
func (c *Config) ApplyEnv(envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	if id := strings.TrimSpace(os.Getenv(ClientIDEnv)); id != "" {
		c.Spotify.ClientID = id
	}
	return nil
}
