package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	require.NoError(t, err)

	assert.Equal(t, 22500, cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.True(t, cfg.IsDev())
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
	assert.Equal(t, 2308, cfg.SMS.Type)
	assert.Contains(t, cfg.DSNValue(), "family_education")
}

func TestLoadParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	data := `
port: 9000
env: production
database:
  host: db.internal
  name: famedu
ai:
  providers:
    - id: main
      type: anthropic
      enabled: false
    - id: backup
      type: openai-compatible
      enabled: true
      endpoint: https://llm.example.com
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.False(t, cfg.IsDev())
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 3306, cfg.Database.Port)

	p := cfg.AI.FirstEnabledProvider()
	require.NotNil(t, p)
	assert.Equal(t, "backup", p.ID)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("port: [not a number"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("FAMEDU_DSN", "user:pw@tcp(10.0.0.1:3306)/other")
	t.Setenv("FAMEDU_ENV", "production")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	require.NoError(t, err)

	assert.Equal(t, "user:pw@tcp(10.0.0.1:3306)/other", cfg.DSNValue())
	assert.False(t, cfg.IsDev())
}

func TestDSNAssembledFromParts(t *testing.T) {
	cfg := &AppConfig{}
	cfg.applyDefaults()
	cfg.Database.User = "famedu"
	cfg.Database.Password = "secret"

	assert.Equal(t,
		"famedu:secret@tcp(127.0.0.1:3306)/family_education?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.DSNValue())
}
