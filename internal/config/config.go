// Package config provides configuration management for drop-admin.
// Configuration is read from a YAML file, with .env files loaded via
// godotenv and environment variables taking precedence over both.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/dropworks/drop-admin/internal/logger"
)

const (
	defaultServerPort      = 4000
	defaultServerTimeout   = 30 * time.Second
	defaultIdleTimeout     = 120 * time.Second
	defaultDatabase        = "drop-db"
	defaultJWTExpiry       = 24 * time.Hour
	defaultFetchTimeout    = 10 * time.Second
	defaultDefaultCollName = "new-posts"
	defaultUserAgent       = "DropAdmin-Extractor/1.0"
)

// defaultCollections is the collection allow-list used when none is configured.
var defaultCollections = []string{"new-posts", "new-p-posts", "old-posts", "new-s-posts", "new-o-posts"}

// Config is the top-level application configuration.
type Config struct {
	Debug   bool             `yaml:"debug" env:"APP_DEBUG"`
	Server  ServerConfig     `yaml:"server"`
	Mongo   MongoConfig      `yaml:"mongo"`
	JWT     JWTConfig        `yaml:"jwt"`
	Extract ExtractionConfig `yaml:"extraction"`
	Logging logger.Config    `yaml:"logging"`

	// Collections is the allow-list of record collections the API may touch.
	Collections []string `yaml:"collections"`
	// DefaultCollection is used when a request omits the collection parameter.
	DefaultCollection string `yaml:"default_collection"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// Address returns the host:port listen address.
func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// MongoConfig holds MongoDB connection settings.
type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

// JWTConfig holds token signing settings.
type JWTConfig struct {
	Secret string        `yaml:"secret"`
	Expiry time.Duration `yaml:"expiry"`
}

// ExtractionConfig holds settings for the extraction pipeline.
type ExtractionConfig struct {
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
	UserAgent    string        `yaml:"user_agent"`
}

// CollectionAllowed reports whether name is in the configured allow-list.
func (c *Config) CollectionAllowed(name string) bool {
	for _, allowed := range c.Collections {
		if name == allowed {
			return true
		}
	}
	return false
}

// Validate checks that required settings are present.
func (c *Config) Validate() error {
	if c.Mongo.URI == "" {
		return errors.New("mongo.uri is required")
	}
	if c.JWT.Secret == "" {
		return errors.New("jwt.secret is required")
	}
	if c.Server.Port <= 0 {
		return errors.New("server.port must be positive")
	}
	if len(c.Collections) == 0 {
		return errors.New("collections allow-list must not be empty")
	}
	if !c.CollectionAllowed(c.DefaultCollection) {
		return fmt.Errorf("default collection %q is not in the allow-list", c.DefaultCollection)
	}
	return nil
}

// Load reads configuration from path, applies defaults and env overrides,
// and validates the result. A missing config file is not an error: env
// variables alone can fully configure the service.
func Load(path string) (*Config, error) {
	// .env is optional; ignore a missing file.
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if unmarshalErr := yaml.Unmarshal(data, &cfg); unmarshalErr != nil {
			return nil, fmt.Errorf("parse config: %w", unmarshalErr)
		}
	case os.IsNotExist(err):
		// Fall through to defaults and env overrides.
	default:
		return nil, fmt.Errorf("read config file: %w", err)
	}

	setDefaults(&cfg)
	overrideFromEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// setDefaults applies default values for unset fields.
func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaultServerPort
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultServerTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaultServerTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = defaultIdleTimeout
	}
	if cfg.Mongo.Database == "" {
		cfg.Mongo.Database = defaultDatabase
	}
	if cfg.JWT.Expiry == 0 {
		cfg.JWT.Expiry = defaultJWTExpiry
	}
	if cfg.Extract.FetchTimeout == 0 {
		cfg.Extract.FetchTimeout = defaultFetchTimeout
	}
	if cfg.Extract.UserAgent == "" {
		cfg.Extract.UserAgent = defaultUserAgent
	}
	if len(cfg.Collections) == 0 {
		cfg.Collections = append(cfg.Collections, defaultCollections...)
	}
	if cfg.DefaultCollection == "" {
		cfg.DefaultCollection = defaultDefaultCollName
	}
}

// overrideFromEnv applies environment variable overrides.
func overrideFromEnv(cfg *Config) {
	if uri := os.Getenv("MONGODB_URI"); uri != "" {
		cfg.Mongo.URI = uri
	}
	if db := os.Getenv("MONGODB_DATABASE"); db != "" {
		cfg.Mongo.Database = db
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.JWT.Secret = secret
	}
	if expiry := os.Getenv("JWT_EXPIRY"); expiry != "" {
		if d, err := time.ParseDuration(expiry); err == nil {
			cfg.JWT.Expiry = d
		}
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	if debug := os.Getenv("APP_DEBUG"); debug != "" {
		cfg.Debug = parseBool(debug)
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if timeout := os.Getenv("EXTRACT_FETCH_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			cfg.Extract.FetchTimeout = d
		}
	}
	if agent := os.Getenv("EXTRACT_USER_AGENT"); agent != "" {
		cfg.Extract.UserAgent = agent
	}
	if collections := os.Getenv("ALLOWED_COLLECTIONS"); collections != "" {
		parts := strings.Split(collections, ",")
		cfg.Collections = cfg.Collections[:0]
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				cfg.Collections = append(cfg.Collections, trimmed)
			}
		}
	}
}

// parseBool parses a string as a boolean.
// Returns true for "true", "1", "yes" (case-insensitive).
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes"
}

// GetConfigPath returns the config path from CONFIG_PATH or the default.
func GetConfigPath(defaultPath string) string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}
	return defaultPath
}
