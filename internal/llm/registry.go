package llm

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/config"
	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/logging"
)

// ProviderError is returned when an LLM provider fails.
type ProviderError struct {
	Provider string
	Message  string
	Code     int // HTTP-like status code (401, 429, 500, etc.)
}

func (e *ProviderError) Error() string {
	if e.Code > 0 {
		return fmt.Sprintf("%s: %d %s", e.Provider, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// Registry manages LLM provider clients and resolves model references to clients.
type Registry struct {
	mu       sync.RWMutex
	clients  map[string]Client // provider name → client
	aliases  map[string]string // model alias → provider name
	fallback string            // default provider name
	log      *logging.Logger
}

// NewRegistry creates an empty provider registry.
func NewRegistry(log *logging.Logger) *Registry {
	if log == nil {
		log = logging.Nop()
	}
	return &Registry{
		clients: make(map[string]Client),
		aliases: make(map[string]string),
		log:     log.Sub("llm.registry"),
	}
}

// Register adds a client under the given provider name.
func (r *Registry) Register(name string, client Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[name] = client
	r.log.Debug().Str("provider", name).Msg("registered LLM provider")
}

// Alias maps a model name/alias to a provider.
// e.g., Alias("sonnet", "anthropic") means "sonnet" resolves to the "anthropic" provider.
func (r *Registry) Alias(model, provider string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aliases[model] = provider
}

// SetFallback sets the default provider used when no model/provider match is found.
func (r *Registry) SetFallback(provider string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = provider
}

// Resolve returns the Client for the given model reference.
// Resolution order: exact provider name → alias → fallback.
func (r *Registry) Resolve(model string) (Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// Direct provider name match
	if c, ok := r.clients[model]; ok {
		return c, nil
	}

	// Alias lookup
	if provider, ok := r.aliases[model]; ok {
		if c, ok := r.clients[provider]; ok {
			return c, nil
		}
	}

	// Fallback
	if r.fallback != "" {
		if c, ok := r.clients[r.fallback]; ok {
			return c, nil
		}
	}

	return nil, fmt.Errorf("no LLM provider for model %q", model)
}

// List returns all registered provider names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.clients))
	for n := range r.clients {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Len reports how many providers are registered.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// Providers lists the backends NewRegistryFromConfig knows how to build.
var Providers = []string{"ollama", "gemini", "anthropic"}

// NewRegistryFromConfig builds a Registry holding the primary provider and any
// configured fallbacks. Hosted providers are skipped when they have no API key;
// provider "none" yields an empty registry.
func NewRegistryFromConfig(cfg config.LLMConfig, log *logging.Logger) *Registry {
	reg := NewRegistry(log)

	primary := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if primary == "none" {
		return reg
	}

	wanted := append([]string{primary}, cfg.Fallbacks...)
	for _, name := range wanted {
		name = strings.ToLower(strings.TrimSpace(name))
		if _, exists := reg.clients[name]; exists {
			continue
		}

		override := ""
		if name == primary {
			override = cfg.Model
		}

		switch name {
		case "ollama":
			model := firstNonEmpty(override, cfg.Ollama.Model)
			reg.Register("ollama", NewOllamaClient(cfg.Ollama.Endpoint, model))
			for _, alias := range []string{"llama", "llama3", "qwen", "mistral"} {
				reg.Alias(alias, "ollama")
			}

		case "gemini":
			if cfg.Gemini.APIKey == "" {
				reg.log.Warn().Msg("gemini selected but no API key configured, skipping")
				continue
			}
			model := firstNonEmpty(override, cfg.Gemini.Model)
			reg.Register("gemini", NewGeminiClient(cfg.Gemini.APIKey, model, cfg.Gemini.Endpoint))
			for _, alias := range []string{"gemini-pro", "gemini-flash"} {
				reg.Alias(alias, "gemini")
			}

		case "anthropic":
			if cfg.Anthropic.APIKey == "" {
				reg.log.Warn().Msg("anthropic selected but no API key configured, skipping")
				continue
			}
			model := firstNonEmpty(override, cfg.Anthropic.Model)
			reg.Register("anthropic", NewAnthropicClient(cfg.Anthropic.APIKey, model, cfg.Anthropic.Endpoint))
			for _, alias := range []string{"claude", "sonnet", "haiku", "opus"} {
				reg.Alias(alias, "anthropic")
			}

		default:
			reg.log.Warn().Str("provider", name).Msg("unknown LLM provider, skipping")
		}
	}

	if _, ok := reg.clients[primary]; ok {
		reg.SetFallback(primary)
	}
	return reg
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
