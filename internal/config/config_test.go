package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CONFIG_PATH", "PORT", "GIT_BASE_URL", "LOG_LEVEL", "DB_DRIVER", "DB_DSN",
		"RATE_LIMIT", "RATE_BURST", "USER_CACHE_SIZE", "USER_CACHE_TTL_SECONDS",
		"OTEL_EXPORTER_OTLP_ENDPOINT", "TRACING_CONSOLE", "TRACING_SAMPLE_RATE", "SERVICE_ENVIRONMENT",
		"CONFIG_RELOAD_INTERVAL_SECONDS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, "https://repo.daou.co.kr", cfg.GitBaseURL)
	assert.Equal(t, DriverSQLite, cfg.DBDriver)
	assert.Equal(t, DefaultDBDSN, cfg.DBDSN)
	assert.Equal(t, 5*time.Minute, cfg.UserCacheTTL)
	assert.Equal(t, 30*time.Second, cfg.ReloadInterval)
	assert.Empty(t, cfg.ConfigPath)
	assert.Empty(t, cfg.Users)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("GIT_BASE_URL", "https://git.example.com")
	t.Setenv("DB_DRIVER", "Postgres")
	t.Setenv("DB_DSN", "postgres://localhost/redmine")
	t.Setenv("USER_CACHE_TTL_SECONDS", "0")
	t.Setenv("TRACING_CONSOLE", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "https://git.example.com", cfg.GitBaseURL)
	assert.Equal(t, DriverPostgres, cfg.DBDriver)
	assert.Equal(t, time.Duration(0), cfg.UserCacheTTL)
	assert.True(t, cfg.TracingConsole)
}

func TestLoad_YAMLFileWithUsers(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
git_base_url: https://bitbucket.internal
rate_limit: 5
users:
  - id: 7
    login: jdoe
    mail: jdoe@example.com
  - id: 8
    login: asmith
    mail: asmith@example.com
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("RATE_LIMIT", "7.5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://bitbucket.internal", cfg.GitBaseURL)
	assert.Equal(t, 7.5, cfg.RateLimit)
	assert.Equal(t, path, cfg.ConfigPath)
	require.Len(t, cfg.Users, 2)
	assert.Equal(t, UserSeed{ID: 7, Login: "jdoe", Mail: "jdoe@example.com"}, cfg.Users[0])
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "defaults are valid", mutate: func(c *Config) {}},
		{name: "non numeric port", mutate: func(c *Config) { c.Port = "http" }, wantErr: true},
		{name: "base URL without scheme", mutate: func(c *Config) { c.GitBaseURL = "repo.daou.co.kr" }, wantErr: true},
		{name: "unknown driver", mutate: func(c *Config) { c.DBDriver = "mysql" }, wantErr: true},
		{name: "empty dsn", mutate: func(c *Config) { c.DBDSN = "" }, wantErr: true},
		{name: "zero rate", mutate: func(c *Config) { c.RateLimit = 0 }, wantErr: true},
		{name: "sample rate above one", mutate: func(c *Config) { c.TracingSampleRate = 1.5 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
