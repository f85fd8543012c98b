// Package config provides configuration management for the journal service.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	apperrors "fxjournal/internal/errors"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Store       StoreConfig       `mapstructure:"store"`
	Blob        BlobConfig        `mapstructure:"blob"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Leaderboard LeaderboardConfig `mapstructure:"leaderboard"`
	Log         LogConfig         `mapstructure:"log"`
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// StoreConfig selects and configures the persistence backend.
type StoreConfig struct {
	Backend    string `mapstructure:"backend"` // "mongo", "sqlite"
	MongoURI   string `mapstructure:"mongo_uri"`
	Database   string `mapstructure:"database"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

// BlobConfig holds the S3-compatible object storage configuration used for
// chart screenshots.
type BlobConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	BaseURL   string `mapstructure:"base_url"` // public URL prefix for stored objects
}

// AuthConfig holds token verification configuration.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

// LeaderboardConfig bounds the community leaderboard aggregation.
type LeaderboardConfig struct {
	MinTrades   int `mapstructure:"min_trades"`
	RecentLimit int `mapstructure:"recent_limit"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  bool   `mapstructure:"file"`
	Path  string `mapstructure:"path"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/fxjournal"
	}
	return filepath.Join(home, ".config", "fxjournal")
}

// Load loads configuration from the specified directory. If configDir is
// empty, uses the default config directory. A .env file in the working
// directory is honored before environment overrides are applied.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	// Optional local .env, ignored when absent.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := loadConfigFile(configDir, "config", cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadConfigFile(configDir, name string, target interface{}) error {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			if err := createTemplateConfig(configDir, name); err != nil {
				return err
			}
			// Template written; continue with defaults.
			return v.Unmarshal(target)
		}
		return err
	}

	return v.Unmarshal(target)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("store.backend", "sqlite")
	v.SetDefault("store.database", "fxjournal")
	v.SetDefault("store.sqlite_path", filepath.Join(DefaultConfigDir(), "journal.db"))
	v.SetDefault("blob.use_ssl", true)
	v.SetDefault("leaderboard.min_trades", 3)
	v.SetDefault("leaderboard.recent_limit", 500)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", true)
	v.SetDefault("log.path", filepath.Join(DefaultConfigDir(), "logs", "fxjournal.log"))
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FXJOURNAL_MONGO_URI"); v != "" {
		cfg.Store.MongoURI = v
	}
	if v := os.Getenv("FXJOURNAL_DATABASE"); v != "" {
		cfg.Store.Database = v
	}
	if v := os.Getenv("FXJOURNAL_JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("FXJOURNAL_BLOB_ENDPOINT"); v != "" {
		cfg.Blob.Endpoint = v
	}
	if v := os.Getenv("FXJOURNAL_BLOB_ACCESS_KEY"); v != "" {
		cfg.Blob.AccessKey = v
	}
	if v := os.Getenv("FXJOURNAL_BLOB_SECRET_KEY"); v != "" {
		cfg.Blob.SecretKey = v
	}
	if v := os.Getenv("FXJOURNAL_BLOB_BUCKET"); v != "" {
		cfg.Blob.Bucket = v
	}
	if v := os.Getenv("FXJOURNAL_BLOB_BASE_URL"); v != "" {
		cfg.Blob.BaseURL = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "mongo":
		if c.Store.MongoURI == "" {
			return apperrors.Wrap(apperrors.ErrConfigInvalid, "store.mongo_uri is required for the mongo backend")
		}
		if c.Store.Database == "" {
			return apperrors.Wrap(apperrors.ErrConfigInvalid, "store.database is required for the mongo backend")
		}
	case "sqlite":
		if c.Store.SQLitePath == "" {
			return apperrors.Wrap(apperrors.ErrConfigInvalid, "store.sqlite_path is required for the sqlite backend")
		}
	default:
		return apperrors.Wrapf(apperrors.ErrConfigInvalid, "invalid store backend: %s (must be 'mongo' or 'sqlite')", c.Store.Backend)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return apperrors.Wrapf(apperrors.ErrConfigInvalid, "invalid server port: %d", c.Server.Port)
	}
	if c.Leaderboard.MinTrades < 1 {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, "leaderboard.min_trades must be at least 1")
	}
	if c.Leaderboard.RecentLimit < 1 {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, "leaderboard.recent_limit must be at least 1")
	}

	// Blob storage is optional; when any field is set, all connection fields
	// must be.
	if c.BlobConfigured() {
		if c.Blob.Endpoint == "" || c.Blob.AccessKey == "" || c.Blob.SecretKey == "" || c.Blob.Bucket == "" {
			return apperrors.Wrap(apperrors.ErrConfigInvalid, "blob storage requires endpoint, access_key, secret_key and bucket")
		}
	}
	return nil
}

// BlobConfigured reports whether any blob storage setting is present.
func (c *Config) BlobConfigured() bool {
	return c.Blob.Endpoint != "" || c.Blob.AccessKey != "" || c.Blob.SecretKey != "" || c.Blob.Bucket != ""
}

// Addr returns the server listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
