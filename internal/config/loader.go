package config

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} patterns in strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR} patterns with environment variable values.
// Unset variables are left unchanged.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

// expandSensitiveFields processes environment variable references in
// credential fields so keys and tokens can be stored as ${ENV_VAR}.
func expandSensitiveFields(cfg *Config) {
	cfg.LLM.Gemini.APIKey = expandEnvVars(cfg.LLM.Gemini.APIKey)
	cfg.LLM.Anthropic.APIKey = expandEnvVars(cfg.LLM.Anthropic.APIKey)

	in := &cfg.Integrations
	in.Twilio.AccountSID = expandEnvVars(in.Twilio.AccountSID)
	in.Twilio.AuthToken = expandEnvVars(in.Twilio.AuthToken)
	in.Maps.APIKey = expandEnvVars(in.Maps.APIKey)
	in.Habitica.APIToken = expandEnvVars(in.Habitica.APIToken)
	in.MQTT.Password = expandEnvVars(in.MQTT.Password)
	in.Calendar.CredentialsFile = expandEnvVars(in.Calendar.CredentialsFile)
	in.Calendar.TokenFile = expandEnvVars(in.Calendar.TokenFile)
}

// Load reads the config file, applies environment overrides, and returns
// a merged Config. Missing files produce defaults only.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(&cfg)
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	expandSensitiveFields(&cfg)
	return cfg, nil
}

// LoadRaw reads the config file into a generic map for path-based access.
func LoadRaw(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, err
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return raw, nil
}

// SaveRaw writes a generic map back to a YAML config file.
func SaveRaw(path string, raw map[string]any) error {
	data, err := yaml.Marshal(raw)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// applyDefaults fills zero-value fields with sensible defaults.
func applyDefaults(cfg *Config) {
	d := Defaults()

	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = d.LLM.Provider
	}
	if cfg.LLM.Ollama.Endpoint == "" {
		cfg.LLM.Ollama.Endpoint = d.LLM.Ollama.Endpoint
	}

	a := &cfg.Agent
	if a.AssistantName == "" {
		a.AssistantName = d.Agent.AssistantName
	}
	if a.MaxIterations <= 0 {
		a.MaxIterations = d.Agent.MaxIterations
	}
	if a.BaseTokens <= 0 {
		a.BaseTokens = d.Agent.BaseTokens
	}
	if a.ToolTokens <= 0 {
		a.ToolTokens = d.Agent.ToolTokens
	}
	if a.MaxWindowSize <= 0 {
		a.MaxWindowSize = d.Agent.MaxWindowSize
	}
	if a.PreserveRecent <= 0 {
		a.PreserveRecent = d.Agent.PreserveRecent
	}
	if a.MaxRetainedSystem <= 0 {
		a.MaxRetainedSystem = d.Agent.MaxRetainedSystem
	}
	if len(a.RetentionKeywords) == 0 {
		a.RetentionKeywords = d.Agent.RetentionKeywords
	}
	if a.TurnTimeoutSeconds <= 0 {
		a.TurnTimeoutSeconds = d.Agent.TurnTimeoutSeconds
	}

	m := &cfg.Integrations.Maps
	if m.DefaultCity == "" {
		m.DefaultCity = d.Integrations.Maps.DefaultCity
	}
	if m.SearchRadius <= 0 {
		m.SearchRadius = d.Integrations.Maps.SearchRadius
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.ConsoleStyle == "" {
		cfg.Logging.ConsoleStyle = "pretty"
	}
}

// applyEnvOverrides reads AEGIS_* and provider environment variables and
// overrides config values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("AEGIS_MAX_WINDOW_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Agent.MaxWindowSize = n
		}
	}
	if v := os.Getenv("AEGIS_PRESERVE_RECENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Agent.PreserveRecent = n
		}
	}
	if v := os.Getenv("AEGIS_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("AEGIS_DB"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = strings.ToLower(v)
	}
	if v := os.Getenv("AEGIS_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("OLLAMA_HOST"); v != "" {
		cfg.LLM.Ollama.Endpoint = v
	}
	if v := os.Getenv("GOOGLE_API_KEY"); v != "" {
		cfg.LLM.Gemini.APIKey = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.LLM.Anthropic.APIKey = v
	}

	in := &cfg.Integrations
	envString(&in.Twilio.AccountSID, "TWILIO_ACCOUNT_SID")
	envString(&in.Twilio.AuthToken, "TWILIO_AUTH_TOKEN")
	envString(&in.Twilio.FromNumber, "TWILIO_FROM_NUMBER")
	envString(&in.Twilio.PhoneNumber, "TWILIO_PHONE_NUMBER")
	envString(&in.Twilio.WhatsAppFrom, "TWILIO_WHATSAPP_FROM")
	envString(&in.Twilio.WebhookBase, "TWILIO_WEBHOOK_BASE_URL")
	envString(&in.Maps.APIKey, "GOOGLE_MAPS_API_KEY")
	envString(&in.Habitica.UserID, "HABITICA_USER_ID")
	envString(&in.Habitica.APIToken, "HABITICA_API_TOKEN")
	envString(&in.MQTT.Broker, "AEGIS_MQTT_BROKER")
	envString(&in.Emergency.ContactNumber, "DEFAULT_EMERGENCY_NUMBER")
}

func envString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
