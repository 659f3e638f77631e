package config

// Config is the root configuration for AEGIS.
type Config struct {
	LLM          LLMConfig          `yaml:"llm,omitempty"`
	Agent        AgentConfig        `yaml:"agent,omitempty"`
	Database     DatabaseConfig     `yaml:"database,omitempty"`
	Integrations IntegrationsConfig `yaml:"integrations,omitempty"`
	Logging      LoggingConfig      `yaml:"logging,omitempty"`
}

// LLMConfig selects the language-model providers.
type LLMConfig struct {
	Provider    string               `yaml:"provider,omitempty"` // "ollama" | "gemini" | "anthropic" | "none"
	Model       string               `yaml:"model,omitempty"`
	Fallbacks   []string             `yaml:"fallbacks,omitempty"` // provider names tried after the primary
	Temperature *float64             `yaml:"temperature,omitempty"`
	Ollama      OllamaProviderConfig `yaml:"ollama,omitempty"`
	Gemini      APIProviderConfig    `yaml:"gemini,omitempty"`
	Anthropic   APIProviderConfig    `yaml:"anthropic,omitempty"`
}

// OllamaProviderConfig points at a local Ollama server.
type OllamaProviderConfig struct {
	Endpoint string `yaml:"endpoint,omitempty"`
	Model    string `yaml:"model,omitempty"`
}

// APIProviderConfig holds credentials for a hosted model API.
type APIProviderConfig struct {
	APIKey   string `yaml:"apiKey,omitempty"`
	Model    string `yaml:"model,omitempty"`
	Endpoint string `yaml:"endpoint,omitempty"`
}

// AgentConfig tunes the conversation loop and its history window.
type AgentConfig struct {
	AssistantName      string   `yaml:"assistantName,omitempty"`
	MaxIterations      int      `yaml:"maxIterations,omitempty"`
	BaseTokens         int      `yaml:"baseTokens,omitempty"`
	ToolTokens         int      `yaml:"toolTokens,omitempty"`
	MaxWindowSize      int      `yaml:"maxWindowSize,omitempty"`
	PreserveRecent     int      `yaml:"preserveRecent,omitempty"`
	MaxRetainedSystem  int      `yaml:"maxRetainedSystem,omitempty"`
	RetentionKeywords  []string `yaml:"retentionKeywords,omitempty"`
	DefaultUserID      int64    `yaml:"defaultUserId,omitempty"`
	TurnTimeoutSeconds int      `yaml:"turnTimeoutSeconds,omitempty"`
}

// DatabaseConfig locates the SQLite database.
type DatabaseConfig struct {
	Path string `yaml:"path,omitempty"` // empty means <base>/data/aegis.db
}

// IntegrationsConfig holds the external services used by tools.
type IntegrationsConfig struct {
	Twilio    TwilioConfig    `yaml:"twilio,omitempty"`
	Maps      MapsConfig      `yaml:"maps,omitempty"`
	Calendar  CalendarConfig  `yaml:"calendar,omitempty"`
	Habitica  HabiticaConfig  `yaml:"habitica,omitempty"`
	MQTT      MQTTConfig      `yaml:"mqtt,omitempty"`
	Emergency EmergencyConfig `yaml:"emergency,omitempty"`
	Knowledge KnowledgeConfig `yaml:"knowledge,omitempty"`
}

// TwilioConfig holds Twilio credentials. Empty credentials put every
// Twilio-backed tool into simulation mode.
type TwilioConfig struct {
	AccountSID   string `yaml:"accountSid,omitempty"`
	AuthToken    string `yaml:"authToken,omitempty"`
	FromNumber   string `yaml:"fromNumber,omitempty"`   // SMS sender
	PhoneNumber  string `yaml:"phoneNumber,omitempty"`  // voice caller ID
	WhatsAppFrom string `yaml:"whatsappFrom,omitempty"` // "whatsapp:+1..."
	WebhookBase  string `yaml:"webhookBase,omitempty"`  // base URL serving TwiML
	BaseURL      string `yaml:"baseUrl,omitempty"`
}

// Configured reports whether real Twilio calls can be made.
func (t TwilioConfig) Configured() bool {
	return t.AccountSID != "" && t.AuthToken != ""
}

// MapsConfig holds Google Maps Platform and geocoding settings.
type MapsConfig struct {
	APIKey       string  `yaml:"apiKey,omitempty"`
	PlacesURL    string  `yaml:"placesUrl,omitempty"`
	GeocodeURL   string  `yaml:"geocodeUrl,omitempty"`
	DefaultCity  string  `yaml:"defaultCity,omitempty"`
	CountryHint  string  `yaml:"countryHint,omitempty"` // appended to city names when geocoding
	DefaultLat   float64 `yaml:"defaultLat,omitempty"`
	DefaultLon   float64 `yaml:"defaultLon,omitempty"`
	SearchRadius float64 `yaml:"searchRadius,omitempty"` // meters
}

// CalendarConfig holds Google Calendar OAuth files.
type CalendarConfig struct {
	CredentialsFile string `yaml:"credentialsFile,omitempty"`
	TokenFile       string `yaml:"tokenFile,omitempty"`
	CalendarID      string `yaml:"calendarId,omitempty"`
	TimeZone        string `yaml:"timeZone,omitempty"`
}

// HabiticaConfig holds Habitica API credentials.
type HabiticaConfig struct {
	UserID   string `yaml:"userId,omitempty"`
	APIToken string `yaml:"apiToken,omitempty"`
	BaseURL  string `yaml:"baseUrl,omitempty"`
}

// MQTTConfig configures the out-of-band emergency event publisher.
type MQTTConfig struct {
	Broker      string `yaml:"broker,omitempty"` // e.g. "mqtt://localhost:1883"
	Username    string `yaml:"username,omitempty"`
	Password    string `yaml:"password,omitempty"`
	TopicPrefix string `yaml:"topicPrefix,omitempty"`
	ClientID    string `yaml:"clientId,omitempty"`
}

// EmergencyConfig holds emergency routing defaults.
type EmergencyConfig struct {
	ContactNumber string `yaml:"contactNumber,omitempty"` // ALERT destination
	Numbers       string `yaml:"numbers,omitempty"`       // local emergency numbers shown to the patient
	AutoEscalate  bool   `yaml:"autoEscalate,omitempty"`
}

// KnowledgeConfig overrides the public medical knowledge endpoints.
type KnowledgeConfig struct {
	MedlinePlusURL string `yaml:"medlinePlusUrl,omitempty"`
	PubMedURL      string `yaml:"pubmedUrl,omitempty"`
	OpenFDAURL     string `yaml:"openfdaUrl,omitempty"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level        string `yaml:"level,omitempty"` // "silent" | "error" | "warn" | "info" | "debug" | "trace"
	File         string `yaml:"file,omitempty"`
	ConsoleStyle string `yaml:"consoleStyle,omitempty"` // "pretty" | "json"
}
