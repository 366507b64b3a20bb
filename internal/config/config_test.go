package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenMissing(t *testing.T) {
	ws := t.TempDir()
	cfg, err := Load(ws, "")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(ws, "refdata.yaml"), cfg.RefData)
	assert.Equal(t, 4, cfg.SceneConcurrency)
	assert.Equal(t, 70, cfg.Budget.Base["medium shot"])
	assert.False(t, cfg.Strict)
	assert.Empty(t, cfg.AuditDB)
}

func TestLoadExplicitMissingFileFails(t *testing.T) {
	_, err := Load(t.TempDir(), "/nonexistent/shotsmith.yaml")
	require.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	ws := t.TempDir()
	content := `
refdata: library/world.yaml
audit_db: runs.db
strict: true
scene_concurrency: 2
llm:
  provider: openai
  model: gpt-4o-mini
  timeout_seconds: 10
budget:
  per_subject: 50
logging:
  level: debug
  debug: true
`
	require.NoError(t, os.WriteFile(filepath.Join(ws, DefaultFileName), []byte(content), 0o644))

	cfg, err := Load(ws, "")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(ws, "library/world.yaml"), cfg.RefData)
	assert.Equal(t, filepath.Join(ws, "runs.db"), cfg.AuditDB)
	assert.True(t, cfg.Strict)
	assert.Equal(t, 2, cfg.SceneConcurrency)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, 10, cfg.LLM.TimeoutSeconds)

	// A partial budget override keeps the rest of the table.
	assert.Equal(t, 50, cfg.Budget.PerSubject)
	assert.Equal(t, 85, cfg.Budget.Base["wide shot"])
	assert.Equal(t, 60, cfg.Budget.Floor)

	assert.True(t, cfg.Logging.Debug)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SHOTSMITH_LLM_PROVIDER", "gemini")
	t.Setenv("SHOTSMITH_STRICT", "true")
	t.Setenv("SHOTSMITH_REFDATA", "/abs/world.yaml")

	cfg, err := Load(t.TempDir(), "")
	require.NoError(t, err)

	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.True(t, cfg.Strict)
	assert.Equal(t, "/abs/world.yaml", cfg.RefData)
}

func TestProviderConfig(t *testing.T) {
	c := LLMConfig{Provider: "openai", Model: "gpt-4o-mini", BaseURL: "http://gw"}
	pc := c.ProviderConfig()
	assert.Equal(t, "openai", pc.Provider)
	assert.Equal(t, "gpt-4o-mini", pc.Model)
	assert.Equal(t, "http://gw", pc.BaseURL)
}
