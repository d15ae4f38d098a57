package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseYAML = `
app:
  name: apply-desk
database:
  postgres:
    host: localhost
    database: apply
    user: apply
  local:
    backend: sqlite
    path: /tmp/apply.db
integrations:
  aws:
    ses:
      template_name: telecom-request
workers:
  submit-application:
    enabled: true
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, baseYAML))
	require.NoError(t, err)

	assert.Equal(t, "speed_apartment2", cfg.Deployment.ApartmentID)
	assert.Equal(t, "Speed 아파트", cfg.Deployment.ApartmentName)
	assert.Equal(t, 3, cfg.Relay.MaxInitAttempts)
	assert.Equal(t, 1500, cfg.Relay.LoadWait)
	assert.Equal(t, 3000, cfg.Relay.MobileLoadWait)
	assert.Equal(t, 2000, cfg.Relay.InitBackoff)
	assert.Equal(t, 30000, cfg.Relay.SendTimeout)
	assert.Equal(t, 1000, cfg.Relay.RecipientPause)
	assert.Equal(t, "접수일시:", cfg.Relay.SubmissionLabel)
	assert.Equal(t, 5432, cfg.Database.Postgres.Port)
	assert.Equal(t, "disable", cfg.Database.Postgres.SSLMode)
	assert.Equal(t, "localhost:26500", cfg.Camunda.BrokerAddress)

	w := GetWorkerConfig(cfg, "submit-application")
	assert.True(t, w.Enabled)
	assert.Equal(t, 5, w.MaxJobsActive)
	assert.Equal(t, 3, w.MaxRetries)
	assert.Equal(t, DefaultWorkerTimeout, w.Timeout)
}

func TestDefaultWorkerTimeout_CoversSlowSubmission(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, baseYAML))
	require.NoError(t, err)

	// Three recipients, each send running to its timeout, after a full
	// round of relay init attempts.
	r := cfg.Relay
	worst := 3*(r.SendTimeout+r.RecipientPause) + r.MaxInitAttempts*(r.MobileLoadWait+r.InitBackoff)
	assert.Greater(t, GetWorkerConfig(cfg, "submit-application").Timeout, worst)
	assert.Greater(t, GetWorkerConfig(cfg, "unknown-worker").Timeout, worst)
}

func TestLoadFromFile_EnvOverride(t *testing.T) {
	t.Setenv("DEPLOYMENT_APARTMENT_ID", "other_apartment")
	t.Setenv("RELAY_MAX_INIT_ATTEMPTS", "5")

	cfg, err := LoadFromFile(writeConfig(t, baseYAML))
	require.NoError(t, err)

	assert.Equal(t, "other_apartment", cfg.Deployment.ApartmentID)
	assert.Equal(t, 5, cfg.Relay.MaxInitAttempts)
}

func TestLoadFromFile_ExpandsPlaceholders(t *testing.T) {
	t.Setenv("APPLY_DB_PASSWORD", "s3cret")

	cfg, err := LoadFromFile(writeConfig(t, `
database:
  postgres:
    host: localhost
    database: apply
    user: apply
    password: ${APPLY_DB_PASSWORD}
integrations:
  aws:
    ses:
      enabled: false
`))
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.Database.Postgres.Password)
}

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing postgres host",
			yaml:    "database:\n  postgres:\n    database: a\n    user: b\n",
			wantErr: "database.postgres.host is required",
		},
		{
			name: "unknown local backend",
			yaml: `
database:
  postgres: {host: h, database: d, user: u}
  local: {backend: bolt}
`,
			wantErr: "database.local.backend",
		},
		{
			name: "redis backend without address",
			yaml: `
database:
  postgres: {host: h, database: d, user: u}
  local: {backend: redis}
`,
			wantErr: "database.redis.address is required",
		},
		{
			name: "ses without template",
			yaml: `
database:
  postgres: {host: h, database: d, user: u}
`,
			wantErr: "template_name is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDeploymentLocation(t *testing.T) {
	loc := DeploymentConfig{TimeZone: "Not/AZone"}.Location()
	_, offset := time.Date(2025, 1, 1, 0, 0, 0, 0, loc).Zone()
	assert.Equal(t, 9*60*60, offset)
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 1500*time.Millisecond, GetDuration(1500))
}

func TestIsWorkerEnabled(t *testing.T) {
	cfg := &Config{Workers: map[string]WorkerConfig{"sync-admin-settings": {Enabled: false}}}
	assert.False(t, IsWorkerEnabled(cfg, "sync-admin-settings"))
	assert.True(t, IsWorkerEnabled(cfg, "submit-application"))
}
