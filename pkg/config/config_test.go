package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

const minimalConfig = `
server:
  port: 9090
auth:
  jwt_secret: "test-secret"
openai:
  api_key: "sk-test"
database:
  use_in_memory: true
payments:
  api_key: "lsq-key"
  store_id: "1"
  webhook_secret: "whsec"
plans:
  tiers:
    - name: free
      display_name: Free
      note_limit: 20
      transcription_seconds_limit: 600
    - name: pro
      display_name: Pro
      variant_id: "111"
      transcription_seconds_limit: 36000
`

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Address())
	assert.True(t, cfg.Database.UseInMemory)
	assert.Equal(t, "test-secret", cfg.Auth.JWTSecret)

	// Defaults fill in everything the file omits.
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model)
	assert.Equal(t, "whisper-1", cfg.OpenAI.WhisperModel)
	assert.Equal(t, "https://api.lemonsqueezy.com/v1", cfg.Payments.BaseURL)
	assert.Equal(t, "pro", cfg.Plans.DefaultPaid)

	require.Len(t, cfg.Plans.Tiers, 2)
	assert.Equal(t, 20, cfg.Plans.Tiers[0].NoteLimit)
	assert.Equal(t, "111", cfg.Plans.Tiers[1].VariantID)
}

func TestLoadConfigRejectsMissingSecrets(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `
server:
  port: 8080
openai:
  api_key: "sk-test"
`))
	assert.Error(t, err, "a missing JWT secret must fail loading")
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("OPENAI_API_KEY", "sk-env")

	cfg, err := LoadConfig(writeConfig(t, minimalConfig))
	require.NoError(t, err)
	assert.Equal(t, "env-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, "sk-env", cfg.OpenAI.APIKey)
}

func TestParseDatabaseURL(t *testing.T) {
	db, err := parseDatabaseURL("postgres://remy:pw@db.internal:6543/remy_notes")
	require.NoError(t, err)
	assert.Equal(t, "db.internal", db.Host)
	assert.Equal(t, 6543, db.Port)
	assert.Equal(t, "remy", db.User)
	assert.Equal(t, "pw", db.Password)
	assert.Equal(t, "remy_notes", db.DBName)

	db, err = parseDatabaseURL("postgres://remy:pw@db.internal/remy_notes")
	require.NoError(t, err)
	assert.Equal(t, 5432, db.Port)
}
