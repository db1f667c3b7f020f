package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalConfig = `
app:
  name: assettrack-notifier
  version: 1.0.0
  base_url: https://app.example.test
database:
  postgres:
    host: localhost
    port: 5432
    database: assettrack
    user: svc
    password: secret
  redis:
    address: localhost:6379
`

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 300000, cfg.Server.RequestTimeout)
	assert.Equal(t, 25, cfg.Database.Postgres.MaxConnections)
	assert.Equal(t, "disable", cfg.Database.Postgres.SSLMode)
	assert.Equal(t, 600000, cfg.Notifications.LockTTL)
	assert.Equal(t, 5, cfg.Notifications.Digest.TopExpiring)
	assert.Equal(t, "delivery-logs", cfg.Notifications.Audit.Index)
	assert.False(t, cfg.Notifications.Digest.IncludeContracts)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFromFile_ExpandsEnvVars(t *testing.T) {
	t.Setenv("TEST_DB_PASSWORD", "expanded-secret")

	cfg, err := LoadFromFile(writeConfig(t, `
app:
  name: assettrack-notifier
database:
  postgres:
    host: localhost
    database: assettrack
    user: svc
    password: ${TEST_DB_PASSWORD}
  redis:
    address: localhost:6379
`))
	require.NoError(t, err)
	assert.Equal(t, "expanded-secret", cfg.Database.Postgres.Password)
}

func TestLoadFromFile_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "missing postgres host",
			content: `
database:
  postgres:
    database: assettrack
    user: svc
  redis:
    address: localhost:6379
`,
			wantErr: "database.postgres.host is required",
		},
		{
			name: "missing redis address",
			content: `
database:
  postgres:
    host: localhost
    database: assettrack
    user: svc
`,
			wantErr: "database.redis.address is required",
		},
		{
			name: "email enabled without sender",
			content: minimalConfig + `
notifications:
  email:
    enabled: true
`,
			wantErr: "notifications.email.from_email is required",
		},
		{
			name: "alerts enabled without topic",
			content: minimalConfig + `
notifications:
  alerts:
    enabled: true
`,
			wantErr: "notifications.alerts.topic_arn is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestPostgresConfig_GetDSN(t *testing.T) {
	cfg := PostgresConfig{
		Host:     "db.internal",
		Port:     5432,
		Database: "assettrack",
		User:     "svc",
		Password: "secret",
		SSLMode:  "require",
	}

	assert.Equal(t,
		"host=db.internal port=5432 user=svc password=secret dbname=assettrack sslmode=require",
		cfg.GetDSN())
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 10*time.Minute, GetDuration(600000))
	assert.Equal(t, time.Duration(0), GetDuration(0))
}
