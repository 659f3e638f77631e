package config

import (
	"fmt"
	"net/url"
	"slices"
)

// Severity grades a validation issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path     string
	Message  string
	Severity Severity
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// HasErrors reports whether any issue is an error rather than a warning.
func HasErrors(issues []ValidationIssue) bool {
	for _, is := range issues {
		if is.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue
	errorf := func(path, format string, args ...any) {
		issues = append(issues, ValidationIssue{Path: path, Message: fmt.Sprintf(format, args...), Severity: SeverityError})
	}
	warnf := func(path, format string, args ...any) {
		issues = append(issues, ValidationIssue{Path: path, Message: fmt.Sprintf(format, args...), Severity: SeverityWarning})
	}

	// LLM validation
	validProviders := []string{"ollama", "gemini", "anthropic", "none"}
	if cfg.LLM.Provider != "" && !slices.Contains(validProviders, cfg.LLM.Provider) {
		errorf("llm.provider", "must be one of %v, got %q", validProviders, cfg.LLM.Provider)
	}
	for i, fb := range cfg.LLM.Fallbacks {
		path := fmt.Sprintf("llm.fallbacks[%d]", i)
		switch {
		case !slices.Contains(validProviders[:3], fb):
			errorf(path, "must be one of %v, got %q", validProviders[:3], fb)
		case fb == cfg.LLM.Provider:
			warnf(path, "fallback %q duplicates the primary provider", fb)
		}
	}
	for _, name := range append([]string{cfg.LLM.Provider}, cfg.LLM.Fallbacks...) {
		switch name {
		case "gemini":
			if cfg.LLM.Gemini.APIKey == "" {
				warnf("llm.gemini.apiKey", "gemini is selected but no API key is set")
			}
		case "anthropic":
			if cfg.LLM.Anthropic.APIKey == "" {
				warnf("llm.anthropic.apiKey", "anthropic is selected but no API key is set")
			}
		}
	}
	if t := cfg.LLM.Temperature; t != nil && (*t < 0 || *t > 2) {
		errorf("llm.temperature", "must be between 0 and 2, got %v", *t)
	}

	// Agent validation
	a := cfg.Agent
	if a.MaxIterations < 1 || a.MaxIterations > 20 {
		errorf("agent.maxIterations", "must be 1-20, got %d", a.MaxIterations)
	}
	if a.BaseTokens < 1 {
		errorf("agent.baseTokens", "must be positive, got %d", a.BaseTokens)
	}
	if a.ToolTokens < a.BaseTokens {
		warnf("agent.toolTokens", "tool budget %d is smaller than base budget %d", a.ToolTokens, a.BaseTokens)
	}
	if a.PreserveRecent < 1 {
		errorf("agent.preserveRecent", "must be positive, got %d", a.PreserveRecent)
	}
	if a.MaxWindowSize < 1 {
		errorf("agent.maxWindowSize", "must be positive, got %d", a.MaxWindowSize)
	} else if a.MaxWindowSize < a.MaxRetainedSystem+1+a.PreserveRecent {
		warnf("agent.maxWindowSize", "window %d is smaller than retained system + marker + preserveRecent (%d); compaction will exceed it",
			a.MaxWindowSize, a.MaxRetainedSystem+1+a.PreserveRecent)
	}
	if a.MaxRetainedSystem < 0 {
		errorf("agent.maxRetainedSystem", "must not be negative, got %d", a.MaxRetainedSystem)
	}

	// Integrations validation
	tw := cfg.Integrations.Twilio
	if (tw.AccountSID == "") != (tw.AuthToken == "") {
		errorf("integrations.twilio", "accountSid and authToken must be set together")
	}
	if tw.Configured() && tw.FromNumber == "" {
		warnf("integrations.twilio.fromNumber", "SMS alerts will fail without a sender number")
	}

	if b := cfg.Integrations.MQTT.Broker; b != "" {
		u, err := url.Parse(b)
		validSchemes := []string{"mqtt", "mqtts", "tcp", "ssl", "ws", "wss"}
		if err != nil || !slices.Contains(validSchemes, u.Scheme) {
			errorf("integrations.mqtt.broker", "must be a URL with scheme %v, got %q", validSchemes, b)
		}
	}

	cal := cfg.Integrations.Calendar
	if cal.TokenFile != "" && cal.CredentialsFile == "" {
		warnf("integrations.calendar.credentialsFile", "token file set without OAuth client credentials")
	}

	// Logging validation
	validLogLevels := []string{"silent", "error", "warn", "info", "debug", "trace"}
	if cfg.Logging.Level != "" && !slices.Contains(validLogLevels, cfg.Logging.Level) {
		errorf("logging.level", "must be one of %v, got %q", validLogLevels, cfg.Logging.Level)
	}
	validConsoleStyles := []string{"pretty", "json"}
	if cfg.Logging.ConsoleStyle != "" && !slices.Contains(validConsoleStyles, cfg.Logging.ConsoleStyle) {
		errorf("logging.consoleStyle", "must be one of %v, got %q", validConsoleStyles, cfg.Logging.ConsoleStyle)
	}

	return issues
}
