package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.Equal(t, "Sentinel", cfg.Agent.AssistantName)
	assert.Equal(t, 5, cfg.Agent.MaxIterations)
	assert.Equal(t, 512, cfg.Agent.BaseTokens)
	assert.Equal(t, 1500, cfg.Agent.ToolTokens)
	assert.Equal(t, 20, cfg.Agent.MaxWindowSize)
	assert.Equal(t, 6, cfg.Agent.PreserveRecent)
	assert.Equal(t, 3, cfg.Agent.MaxRetainedSystem)
	assert.Equal(t, DefaultRetentionKeywords, cfg.Agent.RetentionKeywords)
	assert.Equal(t, "Beirut", cfg.Integrations.Maps.DefaultCity)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Integrations.Twilio.Configured())
}

func TestDefaultsDoNotShareKeywordSlice(t *testing.T) {
	cfg := Defaults()
	cfg.Agent.RetentionKeywords[0] = "mutated"
	assert.Equal(t, "patient context", DefaultRetentionKeywords[0])
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	require.NoError(t, err)
	// Should return defaults
	assert.Equal(t, 5, cfg.Agent.MaxIterations)
	assert.Equal(t, "Sentinel", cfg.Agent.AssistantName)
}

func TestLoadValidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	yaml := `
llm:
  provider: gemini
  fallbacks: [ollama]
  gemini:
    apiKey: key-123
    model: gemini-2.0-flash
agent:
  maxWindowSize: 30
  preserveRecent: 8
  assistantName: Aegis
integrations:
  twilio:
    accountSid: AC123
    authToken: tok
    fromNumber: "+15550000"
  mqtt:
    broker: mqtt://localhost:1883
logging:
  level: debug
  consoleStyle: json
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, []string{"ollama"}, cfg.LLM.Fallbacks)
	assert.Equal(t, "key-123", cfg.LLM.Gemini.APIKey)
	assert.Equal(t, 30, cfg.Agent.MaxWindowSize)
	assert.Equal(t, 8, cfg.Agent.PreserveRecent)
	assert.Equal(t, "Aegis", cfg.Agent.AssistantName)
	assert.True(t, cfg.Integrations.Twilio.Configured())
	assert.Equal(t, "mqtt://localhost:1883", cfg.Integrations.MQTT.Broker)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.ConsoleStyle)

	// untouched fields keep their defaults
	assert.Equal(t, 5, cfg.Agent.MaxIterations)
	assert.Equal(t, 1500, cfg.Agent.ToolTokens)
}

func TestLoadZeroValuesFallBackToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("agent:\n  maxIterations: 0\n  retentionKeywords: []\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Agent.MaxIterations)
	assert.Equal(t, DefaultRetentionKeywords, cfg.Agent.RetentionKeywords)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{{invalid yaml"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	var ce *ConfigError
	assert.ErrorAs(t, err, &ce)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("AEGIS_MAX_WINDOW_SIZE", "12")
	t.Setenv("AEGIS_PRESERVE_RECENT", "4")
	t.Setenv("AEGIS_LOG_LEVEL", "TRACE")
	t.Setenv("LLM_PROVIDER", "Anthropic")
	t.Setenv("TWILIO_ACCOUNT_SID", "AC1")
	t.Setenv("TWILIO_AUTH_TOKEN", "secret")

	cfg, err := Load("/nonexistent/config.yaml")
	require.NoError(t, err)

	assert.Equal(t, 12, cfg.Agent.MaxWindowSize)
	assert.Equal(t, 4, cfg.Agent.PreserveRecent)
	assert.Equal(t, "trace", cfg.Logging.Level)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.True(t, cfg.Integrations.Twilio.Configured())
}

func TestLoadEnvOverridesIgnoreGarbage(t *testing.T) {
	t.Setenv("AEGIS_MAX_WINDOW_SIZE", "lots")
	t.Setenv("AEGIS_PRESERVE_RECENT", "-3")

	cfg, err := Load("/nonexistent/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.Agent.MaxWindowSize)
	assert.Equal(t, 6, cfg.Agent.PreserveRecent)
}

func TestLoadExpandsSecretReferences(t *testing.T) {
	t.Setenv("MY_MAPS_KEY", "maps-secret")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("integrations:\n  maps:\n    apiKey: ${MY_MAPS_KEY}\n  habitica:\n    apiToken: ${UNSET_AEGIS_VAR}\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "maps-secret", cfg.Integrations.Maps.APIKey)
	assert.Equal(t, "${UNSET_AEGIS_VAR}", cfg.Integrations.Habitica.APIToken)
}

func TestLoadRawAndSaveRaw(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	raw := map[string]any{
		"agent": map[string]any{
			"maxWindowSize": 25,
		},
	}

	require.NoError(t, SaveRaw(path, raw))

	loaded, err := LoadRaw(path)
	require.NoError(t, err)

	val, ok := GetValueAtPath(loaded, []string{"agent", "maxWindowSize"})
	assert.True(t, ok)
	assert.Equal(t, 25, val)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Agent.MaxWindowSize)
}

func TestLoadRawMissingAndEmpty(t *testing.T) {
	raw, err := LoadRaw(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Empty(t, raw)

	path := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0o600))
	raw, err = LoadRaw(path)
	require.NoError(t, err)
	assert.NotNil(t, raw)
}
