package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- ParseConfigPath tests ---

func TestParseConfigPath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr bool
	}{
		{"single segment", "agent", []string{"agent"}, false},
		{"two segments", "agent.maxWindowSize", []string{"agent", "maxWindowSize"}, false},
		{"three segments", "integrations.twilio.fromNumber", []string{"integrations", "twilio", "fromNumber"}, false},
		{"empty", "", nil, true},
		{"empty segment", "agent..x", nil, true},
		{"trailing dot", "agent.", nil, true},
		{"blocked __proto__", "foo.__proto__.bar", nil, true},
		{"blocked constructor", "constructor", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseConfigPath(tt.input)
			if tt.wantErr {
				var ce *ConfigError
				assert.ErrorAs(t, err, &ce)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

// --- value path tests ---

func TestGetValueAtPath(t *testing.T) {
	root := map[string]any{
		"agent": map[string]any{
			"maxIterations": 5,
			"window": map[string]any{"size": 20},
		},
		"simple": "value",
	}

	tests := []struct {
		name string
		path []string
		want any
		ok   bool
	}{
		{"nested value", []string{"agent", "maxIterations"}, 5, true},
		{"deeply nested", []string{"agent", "window", "size"}, 20, true},
		{"top level", []string{"simple"}, "value", true},
		{"missing key", []string{"nonexistent"}, nil, false},
		{"non-map intermediate", []string{"simple", "sub"}, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			val, ok := GetValueAtPath(root, tt.path)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, val)
			}
		})
	}
}

func TestSetValueAtPath(t *testing.T) {
	root := map[string]any{"integrations": "string-not-map"}

	require.NoError(t, SetValueAtPath(root, []string{"agent", "window", "size"}, 30))
	val, ok := GetValueAtPath(root, []string{"agent", "window", "size"})
	assert.True(t, ok)
	assert.Equal(t, 30, val)

	err := SetValueAtPath(root, []string{"integrations", "mqtt"}, "x")
	assert.ErrorContains(t, err, "integrations is a string")
	assert.Equal(t, "string-not-map", root["integrations"])

	require.NoError(t, SetValueAtPath(root, []string{"integrations"}, "replaced"))
	assert.Equal(t, "replaced", root["integrations"])
}

func TestRedact(t *testing.T) {
	raw := map[string]any{
		"llm": map[string]any{
			"provider":  "anthropic",
			"anthropic": map[string]any{"apiKey": "sk-secret", "model": "claude"},
		},
		"integrations": map[string]any{
			"twilio": map[string]any{"accountSid": "AC1", "authToken": "tok", "fromNumber": "+1"},
			"mqtt":   map[string]any{"password": ""},
		},
	}

	out := Redact(raw)
	v, _ := GetValueAtPath(out, []string{"llm", "anthropic", "apiKey"})
	assert.Equal(t, "********", v)
	v, _ = GetValueAtPath(out, []string{"integrations", "twilio", "authToken"})
	assert.Equal(t, "********", v)
	v, _ = GetValueAtPath(out, []string{"integrations", "twilio", "fromNumber"})
	assert.Equal(t, "+1", v)
	v, _ = GetValueAtPath(out, []string{"integrations", "mqtt", "password"})
	assert.Equal(t, "", v)

	orig, _ := GetValueAtPath(raw, []string{"llm", "anthropic", "apiKey"})
	assert.Equal(t, "sk-secret", orig)
}

func TestUnsetValueAtPath(t *testing.T) {
	root := map[string]any{
		"agent": map[string]any{"maxIterations": 5, "baseTokens": 512},
	}

	assert.True(t, UnsetValueAtPath(root, []string{"agent", "maxIterations"}))
	_, found := GetValueAtPath(root, []string{"agent", "maxIterations"})
	assert.False(t, found)

	val, found := GetValueAtPath(root, []string{"agent", "baseTokens"})
	assert.True(t, found)
	assert.Equal(t, 512, val)

	assert.False(t, UnsetValueAtPath(root, []string{"agent", "nonexistent"}))
	assert.False(t, UnsetValueAtPath(root, []string{"a", "b", "c"}))
}

// --- ResolvePaths tests ---

func TestResolvePathsDefaultHome(t *testing.T) {
	t.Setenv("AEGIS_HOME", "")

	paths, err := ResolvePaths()
	require.NoError(t, err)

	home, _ := os.UserHomeDir()
	assert.Equal(t, filepath.Join(home, ".aegis"), paths.Base)
	assert.Equal(t, filepath.Join(home, ".aegis", "config.yaml"), paths.Config)
	assert.Equal(t, filepath.Join(home, ".aegis", "data", "aegis.db"), paths.Database)
}

func TestResolvePathsCustomHome(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("AEGIS_HOME", tmp)

	paths, err := ResolvePaths()
	require.NoError(t, err)
	assert.Equal(t, tmp, paths.Base)
	assert.Equal(t, filepath.Join(tmp, "logs"), paths.Logs)
	assert.Equal(t, filepath.Join(tmp, "credentials"), paths.Credentials)
}

func TestDatabasePath(t *testing.T) {
	p := Paths{Database: "/var/aegis/data/aegis.db"}
	cfg := Defaults()
	assert.Equal(t, "/var/aegis/data/aegis.db", p.DatabasePath(cfg))

	cfg.Database.Path = "/tmp/other.db"
	assert.Equal(t, "/tmp/other.db", p.DatabasePath(cfg))
}

func TestEnsureDirs(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("AEGIS_HOME", tmp)

	paths, err := ResolvePaths()
	require.NoError(t, err)
	require.NoError(t, paths.EnsureDirs())
	require.NoError(t, paths.EnsureDirs())

	for _, d := range []string{paths.Credentials, paths.Logs, paths.Data} {
		info, err := os.Stat(d)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}
