package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropworks/drop-admin/internal/config"
)

// writeConfig writes a config file into a temp dir and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const minimalYAML = `
mongo:
  uri: mongodb://localhost:27017
jwt:
  secret: file-secret
`

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, minimalYAML)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:4000", cfg.Server.Address())
	assert.Equal(t, "drop-db", cfg.Mongo.Database)
	assert.Equal(t, 24*time.Hour, cfg.JWT.Expiry)
	assert.Equal(t, 10*time.Second, cfg.Extract.FetchTimeout)
	assert.Equal(t, "new-posts", cfg.DefaultCollection)
	assert.Len(t, cfg.Collections, 5)
	assert.False(t, cfg.Debug)
}

func TestLoad_FileValues(t *testing.T) {
	path := writeConfig(t, `
debug: true
server:
  host: 127.0.0.1
  port: 9000
mongo:
  uri: mongodb://db:27017
  database: other-db
jwt:
  secret: file-secret
  expiry: 1h
extraction:
  fetch_timeout: 3s
  user_agent: custom-agent/2.0
collections:
  - new-posts
  - archive-posts
default_collection: archive-posts
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.Debug)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Address())
	assert.Equal(t, "other-db", cfg.Mongo.Database)
	assert.Equal(t, time.Hour, cfg.JWT.Expiry)
	assert.Equal(t, 3*time.Second, cfg.Extract.FetchTimeout)
	assert.Equal(t, "custom-agent/2.0", cfg.Extract.UserAgent)
	assert.Equal(t, []string{"new-posts", "archive-posts"}, cfg.Collections)
	assert.Equal(t, "archive-posts", cfg.DefaultCollection)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, minimalYAML)

	t.Setenv("MONGODB_URI", "mongodb://env-host:27017")
	t.Setenv("MONGODB_DATABASE", "env-db")
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("JWT_EXPIRY", "2h")
	t.Setenv("SERVER_PORT", "8081")
	t.Setenv("APP_DEBUG", "yes")
	t.Setenv("EXTRACT_FETCH_TIMEOUT", "7s")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "mongodb://env-host:27017", cfg.Mongo.URI)
	assert.Equal(t, "env-db", cfg.Mongo.Database)
	assert.Equal(t, "env-secret", cfg.JWT.Secret)
	assert.Equal(t, 2*time.Hour, cfg.JWT.Expiry)
	assert.Equal(t, 8081, cfg.Server.Port)
	assert.True(t, cfg.Debug)
	assert.Equal(t, 7*time.Second, cfg.Extract.FetchTimeout)
}

func TestLoad_EnvOnlyNoFile(t *testing.T) {
	t.Setenv("MONGODB_URI", "mongodb://env-host:27017")
	t.Setenv("JWT_SECRET", "env-secret")

	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)

	assert.Equal(t, "mongodb://env-host:27017", cfg.Mongo.URI)
	assert.Equal(t, 4000, cfg.Server.Port)
}

func TestLoad_AllowedCollectionsFromEnv(t *testing.T) {
	path := writeConfig(t, minimalYAML)

	t.Setenv("ALLOWED_COLLECTIONS", "new-posts, special-posts ,")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"new-posts", "special-posts"}, cfg.Collections)
}

func TestLoad_MissingMongoURI(t *testing.T) {
	t.Setenv("MONGODB_URI", "")

	path := writeConfig(t, `
jwt:
  secret: file-secret
`)

	_, err := config.Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mongo.uri")
}

func TestLoad_MissingJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	path := writeConfig(t, `
mongo:
  uri: mongodb://localhost:27017
`)

	_, err := config.Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt.secret")
}

func TestLoad_DefaultCollectionNotInAllowList(t *testing.T) {
	path := writeConfig(t, minimalYAML + `
collections:
  - only-posts
default_collection: new-posts
`)

	_, err := config.Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "allow-list")
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "mongo: [not a map")

	_, err := config.Load(path)
	require.Error(t, err)
}

func TestCollectionAllowed(t *testing.T) {
	cfg := &config.Config{Collections: []string{"new-posts", "old-posts"}}

	assert.True(t, cfg.CollectionAllowed("new-posts"))
	assert.False(t, cfg.CollectionAllowed("New-Posts"))
	assert.False(t, cfg.CollectionAllowed(""))
	assert.False(t, cfg.CollectionAllowed("admins"))
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	assert.Equal(t, "config.yml", config.GetConfigPath("config.yml"))

	t.Setenv("CONFIG_PATH", "/etc/drop-admin/config.yml")
	assert.Equal(t, "/etc/drop-admin/config.yml", config.GetConfigPath("config.yml"))
}
