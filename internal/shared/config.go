package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// MaxYouTubeKeySlots is the number of numbered YOUTUBE_API_KEY environment slots read by [Config.ApplyEnv].
const MaxYouTubeKeySlots = 10

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Resolver    ResolverConfig    `toml:"resolver"`
	Analytics   AnalyticsConfig   `toml:"analytics"`
	Log         LogConfig         `toml:"log"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
	YouTube YouTubeConfig `toml:"youtube"`
}

// SpotifyConfig contains Spotify client credentials and endpoints.
type SpotifyConfig struct {
	ClientID           string `toml:"client_id"`
	ClientSecret       string `toml:"client_secret"`
	TokenURL           string `toml:"token_url"`
	APIURL             string `toml:"api_url"`
	TokenBufferSeconds int    `toml:"token_buffer_seconds"`
}

// YouTubeConfig contains the YouTube Data API key pool.
type YouTubeConfig struct {
	APIKeys    []string `toml:"api_keys"`
	APIURL     string   `toml:"api_url"`
	MaxResults int64    `toml:"max_results"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host                  string  `toml:"host"`
	Port                  int     `toml:"port"`
	RateLimit             float64 `toml:"rate_limit"`
	Burst                 int     `toml:"burst"`
	RequestTimeoutSeconds int     `toml:"request_timeout_seconds"`
}

// ResolverConfig tunes the matching pipeline.
type ResolverConfig struct {
	PlaylistConcurrency int `toml:"playlist_concurrency"`
	HTTPTimeoutSeconds  int `toml:"http_timeout_seconds"`
}

// AnalyticsConfig selects the counter sink. Driver is one of sqlite, mongo, redis or none.
type AnalyticsConfig struct {
	Driver string      `toml:"driver"`
	Mongo  MongoConfig `toml:"mongo"`
	Redis  RedisConfig `toml:"redis"`
}

type MongoConfig struct {
	URI        string `toml:"uri"`
	Database   string `toml:"database"`
	Collection string `toml:"collection"`
}

type RedisConfig struct {
	Addr     string `toml:"addr"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	Key      string `toml:"key"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values absent from the file keep the embedded defaults.
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

// ApplyEnv overlays environment variables onto the config.
//
// lookup has the signature of [os.LookupEnv]. Numbered YouTube keys are read from
// YOUTUBE_API_KEY, YOUTUBE_API_KEY2 ... YOUTUBE_API_KEY10 and replace the configured
// pool when any is set.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	set := func(name string, dst *string) {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}

	set("SPOTIPY_CLIENT_ID", &c.Credentials.Spotify.ClientID)
	set("SPOTIPY_CLIENT_SECRET", &c.Credentials.Spotify.ClientSecret)
	set("MONGO_URI", &c.Analytics.Mongo.URI)
	set("MONGO_DB", &c.Analytics.Mongo.Database)
	set("MONGO_COLLECTION", &c.Analytics.Mongo.Collection)
	set("REDIS_ADDR", &c.Analytics.Redis.Addr)
	set("REDIS_PASSWORD", &c.Analytics.Redis.Password)
	set("ANALYTICS_DRIVER", &c.Analytics.Driver)
	set("LOG_LEVEL", &c.Log.Level)

	if v, ok := lookup("PORT"); ok {
		if port, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && port > 0 {
			c.Server.Port = port
		}
	}

	var keys []string
	for i := 1; i <= MaxYouTubeKeySlots; i++ {
		name := "YOUTUBE_API_KEY"
		if i > 1 {
			name = fmt.Sprintf("YOUTUBE_API_KEY%d", i)
		}
		if v, ok := lookup(name); ok && strings.TrimSpace(v) != "" {
			keys = append(keys, strings.TrimSpace(v))
		}
	}
	if len(keys) > 0 {
		c.Credentials.YouTube.APIKeys = keys
	}
}

// Validate reports configuration that cannot be served.
func (c *Config) Validate() error {
	switch c.Analytics.Driver {
	case "", "none", "sqlite", "mongo", "redis":
	default:
		return fmt.Errorf("%w: unknown analytics driver %q", ErrInvalidConfig, c.Analytics.Driver)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, c.Server.Port)
	}
	if c.Credentials.Spotify.TokenBufferSeconds < 60 {
		return fmt.Errorf("%w: token_buffer_seconds must be at least 60", ErrInvalidConfig)
	}
	return nil
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
