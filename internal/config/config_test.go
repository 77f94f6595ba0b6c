package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/roster/internal/realtime"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"ROSTER_DB_DRIVER", "ROSTER_DB_DSN", "ROSTER_SESSION_FILE",
		"ROSTER_LOG_LEVEL", "ROSTER_REQUEST_TIMEOUT",
		"ROSTER_DB_MAX_OPEN_CONNS", "ROSTER_DB_MAX_IDLE_CONNS", "ROSTER_DB_CONN_MAX_LIFETIME",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, realtime.DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `
database:
  driver: postgres
  dsn: postgres://localhost/roster
  max_open_conns: 8
  conn_max_lifetime: 5m
session_file: /tmp/roster-session.json
log_level: debug
request_timeout: 3s
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, realtime.Config{
		Driver:          realtime.DriverPostgres,
		DSN:             "postgres://localhost/roster",
		MaxOpenConns:    8,
		ConnMaxLifetime: 5 * time.Minute,
	}, cfg.Database.Realtime())
	assert.Equal(t, "/tmp/roster-session.json", cfg.SessionFile)
	assert.Equal(t, 3*time.Second, cfg.RequestTimeout)

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "log_level: warn\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, Default().Database, cfg.Database)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "database:\n  dsn: /from/file.db\nrequest_timeout: 3s\n")
	t.Setenv("ROSTER_DB_DSN", "/from/env.db")
	t.Setenv("ROSTER_REQUEST_TIMEOUT", "750ms")
	t.Setenv("ROSTER_LOG_LEVEL", "error")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/from/env.db", cfg.Database.DSN)
	assert.Equal(t, 750*time.Millisecond, cfg.RequestTimeout)
	assert.Equal(t, "error", cfg.LogLevel)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		env     map[string]string
		want    string
	}{
		{"bad yaml", "database: [", nil, "parse config"},
		{"bad driver", "database:\n  driver: mysql\n", nil, "database.driver"},
		{"bad level", "log_level: loud\n", nil, "log_level"},
		{"negative timeout", "request_timeout: -1s\n", nil, "request_timeout"},
		{"bad env duration", "", map[string]string{"ROSTER_REQUEST_TIMEOUT": "soon"}, "parse env"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load(writeFile(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
