package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func issuePaths(issues []ValidationIssue) []string {
	var paths []string
	for _, i := range issues {
		paths = append(paths, i.Path)
	}
	return paths
}

func TestValidate_ValidDefaults(t *testing.T) {
	cfg := Defaults()
	assert.Empty(t, Validate(&cfg))
}

func TestValidate_InvalidProvider(t *testing.T) {
	cfg := Defaults()
	cfg.LLM.Provider = "gpt"
	issues := Validate(&cfg)
	require.NotEmpty(t, issues)
	assert.Equal(t, "llm.provider", issues[0].Path)
	assert.True(t, HasErrors(issues))
}

func TestValidate_Fallbacks(t *testing.T) {
	cfg := Defaults()
	cfg.LLM.Fallbacks = []string{"ollama", "bogus"}
	issues := Validate(&cfg)

	assert.Contains(t, issuePaths(issues), "llm.fallbacks[0]")
	assert.Contains(t, issuePaths(issues), "llm.fallbacks[1]")
	assert.Equal(t, SeverityWarning, issues[0].Severity)
	assert.Equal(t, SeverityError, issues[1].Severity)
}

func TestValidate_MissingKeysAreWarnings(t *testing.T) {
	cfg := Defaults()
	cfg.LLM.Provider = "anthropic"
	issues := Validate(&cfg)
	require.Len(t, issues, 1)
	assert.Equal(t, "llm.anthropic.apiKey", issues[0].Path)
	assert.False(t, HasErrors(issues))
}

func TestValidate_Temperature(t *testing.T) {
	cfg := Defaults()
	hot := 3.5
	cfg.LLM.Temperature = &hot
	assert.Contains(t, issuePaths(Validate(&cfg)), "llm.temperature")
}

func TestValidate_AgentLimits(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		path   string
	}{
		{"zero iterations", func(c *Config) { c.Agent.MaxIterations = 0 }, "agent.maxIterations"},
		{"too many iterations", func(c *Config) { c.Agent.MaxIterations = 50 }, "agent.maxIterations"},
		{"zero base tokens", func(c *Config) { c.Agent.BaseTokens = 0 }, "agent.baseTokens"},
		{"tool budget below base", func(c *Config) { c.Agent.ToolTokens = 100 }, "agent.toolTokens"},
		{"zero preserve recent", func(c *Config) { c.Agent.PreserveRecent = 0 }, "agent.preserveRecent"},
		{"tiny window", func(c *Config) { c.Agent.MaxWindowSize = 5 }, "agent.maxWindowSize"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			assert.Contains(t, issuePaths(Validate(&cfg)), tt.path)
		})
	}
}

func TestValidate_Twilio(t *testing.T) {
	cfg := Defaults()
	cfg.Integrations.Twilio.AccountSID = "AC1"
	issues := Validate(&cfg)
	assert.Contains(t, issuePaths(issues), "integrations.twilio")

	cfg.Integrations.Twilio.AuthToken = "tok"
	issues = Validate(&cfg)
	require.Len(t, issues, 1)
	assert.Equal(t, "integrations.twilio.fromNumber", issues[0].Path)
	assert.Equal(t, SeverityWarning, issues[0].Severity)
}

func TestValidate_MQTTBroker(t *testing.T) {
	cfg := Defaults()
	cfg.Integrations.MQTT.Broker = "http://broker"
	assert.Contains(t, issuePaths(Validate(&cfg)), "integrations.mqtt.broker")

	cfg.Integrations.MQTT.Broker = "mqtts://broker:8883"
	assert.Empty(t, Validate(&cfg))
}

func TestValidate_Logging(t *testing.T) {
	cfg := Defaults()
	cfg.Logging.Level = "loud"
	cfg.Logging.ConsoleStyle = "fancy"
	paths := issuePaths(Validate(&cfg))
	assert.Contains(t, paths, "logging.level")
	assert.Contains(t, paths, "logging.consoleStyle")
}

func TestValidationIssueString(t *testing.T) {
	is := ValidationIssue{Path: "agent.maxIterations", Message: "must be 1-20, got 0"}
	assert.Equal(t, "agent.maxIterations: must be 1-20, got 0", is.String())
}
