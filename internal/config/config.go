package config

import "fmt"

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// DefaultRetentionKeywords marks system messages that survive history
// compaction.
var DefaultRetentionKeywords = []string{
	"patient context",
	"medical record",
	"emergency",
	"critical",
	"vital",
	"alert",
	"diagnosis",
	"medication",
}

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	return Config{
		LLM: LLMConfig{
			Provider: "ollama",
			Ollama: OllamaProviderConfig{
				Endpoint: "http://localhost:11434",
				Model:    "qwen2.5:7b-instruct",
			},
			Gemini:    APIProviderConfig{Model: "gemini-2.0-flash"},
			Anthropic: APIProviderConfig{Model: "claude-sonnet-4-20250514"},
		},
		Agent: AgentConfig{
			AssistantName:      "Sentinel",
			MaxIterations:      5,
			BaseTokens:         512,
			ToolTokens:         1500,
			MaxWindowSize:      20,
			PreserveRecent:     6,
			MaxRetainedSystem:  3,
			RetentionKeywords:  append([]string(nil), DefaultRetentionKeywords...),
			DefaultUserID:      1,
			TurnTimeoutSeconds: 300,
		},
		Integrations: IntegrationsConfig{
			Twilio: TwilioConfig{BaseURL: "https://api.twilio.com"},
			Maps: MapsConfig{
				PlacesURL:    "https://places.googleapis.com/v1",
				GeocodeURL:   "https://nominatim.openstreetmap.org/search",
				DefaultCity:  "Beirut",
				CountryHint:  "Lebanon",
				DefaultLat:   33.8938,
				DefaultLon:   35.5018,
				SearchRadius: 5000,
			},
			Calendar: CalendarConfig{CalendarID: "primary", TimeZone: "Asia/Beirut"},
			Habitica: HabiticaConfig{BaseURL: "https://habitica.com/api/v3"},
			MQTT:     MQTTConfig{TopicPrefix: "aegis", ClientID: "aegis-agent"},
			Emergency: EmergencyConfig{
				ContactNumber: "+96100000000",
				Numbers:       "140 (Red Cross) | 112 (Internal Security) | 125 (Civil Defense)",
				AutoEscalate:  true,
			},
			Knowledge: KnowledgeConfig{
				MedlinePlusURL: "https://wsearch.nlm.nih.gov/ws/query",
				PubMedURL:      "https://eutils.ncbi.nlm.nih.gov/entrez/eutils",
				OpenFDAURL:     "https://api.fda.gov/drug/event.json",
			},
		},
		Logging: LoggingConfig{
			Level:        "info",
			ConsoleStyle: "pretty",
		},
	}
}
