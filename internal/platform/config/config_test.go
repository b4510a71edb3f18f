package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cartel-backend/internal/platform/config"
)

const sampleYAML = `
version: "1.0"
mode: dev
server:
  addr: ":9090"
  shutdown_timeout: 5s
storage:
  driver: mysql
database:
  host: db
  port: 3307
  user: cartel
  password: secret
  dbname: cartel
auth:
  admin_user: root
  admin_password_hash: "$2a$10$abcdefghijklmnopqrstuv"
  jwt_secret: dev-secret
  token_ttl: 2h
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func Test_Load_ReadsYAMLOverDefaults(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "db", cfg.DB.Host)
	assert.Equal(t, 3307, cfg.DB.Port)
	assert.Equal(t, "cartel", cfg.DB.Username)
	assert.Equal(t, "root", cfg.Auth.AdminUser)
	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
	// untouched defaults survive
	assert.Equal(t, 20, cfg.DB.MaxOpenConns)
	assert.Equal(t, "https://catalogue.bnf.fr/api/SRU", cfg.BnF.BaseURL)
}

func Test_Load_EnvironmentOverridesFile(t *testing.T) {
	t.Setenv("CARTEL_DB_PASSWORD", "from-env")
	t.Setenv("CARTEL_DB_PORT", "3310")
	t.Setenv("CARTEL_JWT_SECRET", "env-secret")

	cfg, err := config.Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.DB.Password)
	assert.Equal(t, 3310, cfg.DB.Port)
	assert.Equal(t, "env-secret", cfg.Auth.JWTSecret)
}

func Test_Load_MissingFileUsesEnvOnly(t *testing.T) {
	t.Setenv("CARTEL_STORAGE_DRIVER", "memory")
	t.Setenv("CARTEL_JWT_SECRET", "s")
	t.Setenv("CARTEL_ADMIN_PASSWORD_HASH", "h")

	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.DriverMemory, cfg.Storage.Driver)
}

func Test_Validate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *config.Config)
	}{
		{name: "bad_mode", mutate: func(c *config.Config) { c.Mode = "staging" }},
		{name: "bad_driver", mutate: func(c *config.Config) { c.Storage.Driver = "sqlite" }},
		{name: "mysql_without_db", mutate: func(c *config.Config) { c.Storage.Driver = config.DriverMySQL; c.DB.DBName = "" }},
		{name: "no_secret", mutate: func(c *config.Config) { c.Auth.JWTSecret = "" }},
		{name: "no_admin_hash", mutate: func(c *config.Config) { c.Auth.AdminPasswordHash = "" }},
		{name: "short_secret_in_release", mutate: func(c *config.Config) { c.Mode = config.ModeRelease; c.Auth.JWTSecret = "short" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Storage.Driver = config.DriverMemory
			cfg.Auth.JWTSecret = "secret"
			cfg.Auth.AdminPasswordHash = "hash"
			cfg.DB.DBName, cfg.DB.Username = "cartel", "cartel"
			require.NoError(t, cfg.Validate())

			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
