package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"PORT", "HOST", "API_SECRET", "STORAGE_BACKEND", "STORAGE_SEED",
	"COFFEE_FILE", "COFFEE_FILE_READ_ONLY", "MONGODB_URI", "MONGODB_DATABASE",
	"DATABASE_URL", "SUPABASE_DB_URL", "IMAGES_DIR", "LOG_LEVEL", "LOG_FORMAT",
}

// clearEnv blanks every variable the loader reads
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "coffee.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestNewDefaultConfig(t *testing.T) {
	c := NewDefaultConfig()

	assert.Equal(t, "0.0.0.0", c.Server.Host)
	assert.Equal(t, 3000, c.Server.Port)
	assert.Equal(t, "Coffee catalog API", c.Server.Banner)
	assert.Equal(t, "", c.Auth.APISecret)
	assert.Equal(t, BackendAuto, c.Storage.Backend)
	assert.True(t, c.Storage.Seed)
	assert.Equal(t, 10*time.Second, c.Storage.Timeout.Duration)
	assert.Equal(t, "./data/coffees.json", c.Storage.File.Path)
	assert.Equal(t, "coffee", c.Storage.Mongo.Database)
	assert.Equal(t, "coffees", c.Storage.Mongo.Collection)
	assert.Equal(t, "./images", c.Images.Dir)
	assert.Equal(t, "info", c.Logging.Level)
	assert.Equal(t, "json", c.Logging.Format)
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	clearEnv(t)

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, NewDefaultConfig(), c)
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
[server]
port = 8080
banner = "Beans"

[auth]
api_secret = "from-file"

[storage]
backend = "sqlite"
timeout = "3s"

[storage.sql]
dsn = "./coffee.db"

[logging]
format = "console"
`)

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, "0.0.0.0", c.Server.Host, "unset keys keep defaults")
	assert.Equal(t, "Beans", c.Server.Banner)
	assert.Equal(t, "from-file", c.Auth.APISecret)
	assert.Equal(t, BackendSQLite, c.Storage.Backend)
	assert.Equal(t, 3*time.Second, c.Storage.Timeout.Duration)
	assert.Equal(t, "./coffee.db", c.Storage.SQL.DSN)
	assert.Equal(t, "console", c.Logging.Format)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
[auth]
api_secret = "from-file"
`)
	t.Setenv("API_SECRET", "from-env")
	t.Setenv("PORT", "9090")
	t.Setenv("STORAGE_BACKEND", "FILE")
	t.Setenv("COFFEE_FILE_READ_ONLY", "true")
	t.Setenv("MONGODB_URI", "mongodb://db:27017")

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", c.Auth.APISecret)
	assert.Equal(t, 9090, c.Server.Port)
	assert.Equal(t, BackendFile, c.Storage.Backend)
	assert.True(t, c.Storage.File.ReadOnly)
	assert.Equal(t, "mongodb://db:27017", c.Storage.Mongo.URI)
}

func TestLoad_DatabaseURLPrecedence(t *testing.T) {
	clearEnv(t)
	t.Setenv("SUPABASE_DB_URL", "postgres://supabase")

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "postgres://supabase", c.Storage.SQL.DSN)

	t.Setenv("DATABASE_URL", "postgres://primary")
	c, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "postgres://primary", c.Storage.SQL.DSN)
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, `[server`))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "[storage]\nbackend = \"redis\"\n"))
	assert.ErrorContains(t, err, "unknown storage backend")

	_, err = Load(writeConfig(t, "[storage]\ntimeout = \"soon\"\n"))
	assert.Error(t, err)

	t.Setenv("LOG_FORMAT", "xml")
	_, err = Load("")
	assert.ErrorContains(t, err, "unknown log format")
}

func TestSelectedBackend(t *testing.T) {
	tests := []struct {
		name string
		cfg  StorageConfig
		want string
	}{
		{"nothing configured", StorageConfig{}, BackendFile},
		{"mongo uri", StorageConfig{Mongo: MongoConfig{URI: "mongodb://x"}}, BackendMongo},
		{"sql dsn", StorageConfig{SQL: SQLConfig{DSN: "postgres://x"}}, BackendPostgres},
		{"mongo wins over sql", StorageConfig{Mongo: MongoConfig{URI: "m"}, SQL: SQLConfig{DSN: "p"}}, BackendMongo},
		{"explicit backend", StorageConfig{Backend: BackendSQLite, Mongo: MongoConfig{URI: "m"}}, BackendSQLite},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.SelectedBackend())
		})
	}
}

func TestApplyFlagOverrides(t *testing.T) {
	c := NewDefaultConfig()
	ApplyFlagOverrides(c, 0, "")
	assert.Equal(t, 3000, c.Server.Port)

	ApplyFlagOverrides(c, 4000, "127.0.0.1")
	assert.Equal(t, 4000, c.Server.Port)
	assert.Equal(t, "127.0.0.1:4000", c.Server.Addr())
}

func TestLoad_ExampleConfig(t *testing.T) {
	clearEnv(t)

	c, err := Load(filepath.Join("..", "..", "config.example.toml"))
	require.NoError(t, err)
	assert.Equal(t, NewDefaultConfig(), c)
}
