// Package config loads server settings with priority
// defaults -> TOML file -> environment -> flags.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Storage backends accepted by storage.backend
const (
	BackendAuto     = ""
	BackendFile     = "file"
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// Config represents the application configuration.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Auth    AuthConfig    `toml:"auth"`
	Storage StorageConfig `toml:"storage"`
	Images  ImagesConfig  `toml:"images"`
	Logging LoggingConfig `toml:"logging"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host   string `toml:"host"`
	Port   int    `toml:"port"`
	Banner string `toml:"banner"`
}

// Addr returns host:port for net/http
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// AuthConfig holds the shared secret for mutating routes.
// An empty secret disables every protected route.
type AuthConfig struct {
	APISecret string `toml:"api_secret"`
}

// StorageConfig selects and configures the catalog backend.
type StorageConfig struct {
	Backend  string      `toml:"backend"`
	Seed     bool        `toml:"seed"`
	SeedPath string      `toml:"seed_path"`
	Timeout  Duration    `toml:"timeout"`
	File     FileConfig  `toml:"file"`
	Mongo    MongoConfig `toml:"mongo"`
	SQL      SQLConfig   `toml:"sql"`
}

type FileConfig struct {
	Path     string `toml:"path"`
	ReadOnly bool   `toml:"read_only"`
}

type MongoConfig struct {
	URI        string `toml:"uri"`
	Database   string `toml:"database"`
	Collection string `toml:"collection"`
}

type SQLConfig struct {
	// DSN is a Postgres connection string (Supabase included) or a sqlite path
	DSN string `toml:"dsn"`
}

type ImagesConfig struct {
	Dir string `toml:"dir"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Duration decodes TOML strings such as "10s"
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// SelectedBackend resolves BackendAuto from the configured credentials
func (s StorageConfig) SelectedBackend() string {
	if s.Backend != BackendAuto {
		return s.Backend
	}
	switch {
	case s.Mongo.URI != "":
		return BackendMongo
	case s.SQL.DSN != "":
		return BackendPostgres
	default:
		return BackendFile
	}
}

// Load loads configuration with priority: defaults -> file -> env.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	config := NewDefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate rejects settings the server cannot start with
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	switch c.Storage.Backend {
	case BackendAuto, BackendFile, BackendMongo, BackendPostgres, BackendSQLite:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("unknown log format %q", c.Logging.Format)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(config *Config) {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("HOST"); host != "" {
		config.Server.Host = host
	}
	if secret := os.Getenv("API_SECRET"); secret != "" {
		config.Auth.APISecret = secret
	}
	if backend := os.Getenv("STORAGE_BACKEND"); backend != "" {
		config.Storage.Backend = strings.ToLower(backend)
	}
	if seed := os.Getenv("STORAGE_SEED"); seed != "" {
		if b, err := strconv.ParseBool(seed); err == nil {
			config.Storage.Seed = b
		}
	}
	if path := os.Getenv("COFFEE_FILE"); path != "" {
		config.Storage.File.Path = path
	}
	if ro := os.Getenv("COFFEE_FILE_READ_ONLY"); ro != "" {
		if b, err := strconv.ParseBool(ro); err == nil {
			config.Storage.File.ReadOnly = b
		}
	}
	if uri := os.Getenv("MONGODB_URI"); uri != "" {
		config.Storage.Mongo.URI = uri
	}
	if db := os.Getenv("MONGODB_DATABASE"); db != "" {
		config.Storage.Mongo.Database = db
	}
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		config.Storage.SQL.DSN = dsn
	} else if dsn := os.Getenv("SUPABASE_DB_URL"); dsn != "" {
		config.Storage.SQL.DSN = dsn
	}
	if dir := os.Getenv("IMAGES_DIR"); dir != "" {
		config.Images.Dir = dir
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config.
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}
