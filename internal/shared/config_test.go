package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./melodysyncer.db" {
			t.Errorf("expected database path ./melodysyncer.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 3000 {
			t.Errorf("expected server port 3000, got %d", config.Server.Port)
		}

		if config.Credentials.Spotify.TokenBufferSeconds != 120 {
			t.Errorf("expected token buffer 120, got %d", config.Credentials.Spotify.TokenBufferSeconds)
		}

		if config.Credentials.YouTube.MaxResults != 10 {
			t.Errorf("expected max results 10, got %d", config.Credentials.YouTube.MaxResults)
		}

		if config.Analytics.Driver != "sqlite" {
			t.Errorf("expected sqlite analytics driver, got %s", config.Analytics.Driver)
		}

		if err := config.Validate(); err != nil {
			t.Errorf("default config should validate, got %v", err)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		defaultConfig := DefaultConfig()
		if config.Database.Path != defaultConfig.Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[server]
host = "127.0.0.1"
port = 8080

[credentials.spotify]
client_id = "test_client_id"
client_secret = "test_secret"

[credentials.youtube]
api_keys = ["k1", "k2"]

[analytics]
driver = "mongo"

[analytics.mongo]
uri = "mongodb://localhost:27017"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Server.Port != 8080 {
			t.Errorf("expected server port 8080, got %d", config.Server.Port)
		}

		if len(config.Credentials.YouTube.APIKeys) != 2 {
			t.Errorf("expected 2 api keys, got %v", config.Credentials.YouTube.APIKeys)
		}

		if config.Analytics.Mongo.URI != "mongodb://localhost:27017" {
			t.Errorf("expected mongo uri, got %s", config.Analytics.Mongo.URI)
		}

		t.Run("Keeps Defaults For Missing Values", func(t *testing.T) {
			if config.Credentials.Spotify.TokenURL != "https://accounts.spotify.com/api/token" {
				t.Errorf("expected default token url, got %s", config.Credentials.Spotify.TokenURL)
			}
			if config.Analytics.Mongo.Collection != "analytics" {
				t.Errorf("expected default collection, got %s", config.Analytics.Mongo.Collection)
			}
		})
	})

	t.Run("LoadConfig Invalid TOML", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[server\nport = "), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		_, err := LoadConfig(configPath)
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("ApplyEnv", func(t *testing.T) {
		env := map[string]string{
			"SPOTIPY_CLIENT_ID":     "env-id",
			"SPOTIPY_CLIENT_SECRET": "env-secret",
			"YOUTUBE_API_KEY":       "key-one",
			"YOUTUBE_API_KEY3":      "key-three",
			"YOUTUBE_API_KEY10":     "key-ten",
			"MONGO_URI":             "mongodb://env",
			"PORT":                  "9090",
		}
		lookup := func(k string) (string, bool) {
			v, ok := env[k]
			return v, ok
		}

		config := DefaultConfig()
		config.Credentials.YouTube.APIKeys = []string{"from-file"}
		config.ApplyEnv(lookup)

		if config.Credentials.Spotify.ClientID != "env-id" {
			t.Errorf("expected env-id, got %s", config.Credentials.Spotify.ClientID)
		}

		if config.Server.Port != 9090 {
			t.Errorf("expected port 9090, got %d", config.Server.Port)
		}

		want := []string{"key-one", "key-three", "key-ten"}
		got := config.Credentials.YouTube.APIKeys
		if len(got) != len(want) {
			t.Fatalf("expected keys %v, got %v", want, got)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("key %d: expected %s, got %s", i, want[i], got[i])
			}
		}

		t.Run("Leaves Keys Without Env", func(t *testing.T) {
			config := DefaultConfig()
			config.Credentials.YouTube.APIKeys = []string{"from-file"}
			config.ApplyEnv(func(string) (string, bool) { return "", false })

			if len(config.Credentials.YouTube.APIKeys) != 1 {
				t.Errorf("expected file keys to survive, got %v", config.Credentials.YouTube.APIKeys)
			}
		})
	})

	t.Run("Validate", func(t *testing.T) {
		t.Run("Unknown Driver", func(t *testing.T) {
			config := DefaultConfig()
			config.Analytics.Driver = "cassandra"
			if err := config.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})

		t.Run("Short Token Buffer", func(t *testing.T) {
			config := DefaultConfig()
			config.Credentials.Spotify.TokenBufferSeconds = 30
			if err := config.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	})
}
