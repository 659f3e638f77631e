package agent

import (
	"context"
	"fmt"

	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/domain"
	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/logging"
)

// Default token budgets for a reasoning step.
const (
	DefaultBaseTokens = 512
	DefaultToolTokens = 1500
)

// Completer is the language-model collaborator: one prompt in, one text out.
type Completer interface {
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, prompt string, maxTokens int) (string, error)

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	return f(ctx, prompt, maxTokens)
}

// Menu supplies the capability menu shown in the prompt.
type Menu interface {
	Menu() string
}

// ReasonerConfig tunes the reasoning step.
type ReasonerConfig struct {
	AssistantName string
	BaseTokens    int
	ToolTokens    int
}

// Reasoner renders the prompt and obtains one completion per step.
type Reasoner struct {
	cfg       ReasonerConfig
	completer Completer
	menu      Menu
	log       *logging.Logger
}

// NewReasoner creates a reasoning step.
func NewReasoner(cfg ReasonerConfig, completer Completer, menu Menu, log *logging.Logger) *Reasoner {
	if cfg.AssistantName == "" {
		cfg.AssistantName = "Sentinel"
	}
	if cfg.BaseTokens <= 0 {
		cfg.BaseTokens = DefaultBaseTokens
	}
	if cfg.ToolTokens <= 0 {
		cfg.ToolTokens = DefaultToolTokens
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Reasoner{cfg: cfg, completer: completer, menu: menu, log: log.Sub("reasoner")}
}

// Budget returns the token budget for a step over the given history. It
// widens once a tool result is present so long listings are not truncated.
func (r *Reasoner) Budget(history []domain.Message) int {
	if HasToolResult(history) {
		return r.cfg.ToolTokens
	}
	return r.cfg.BaseTokens
}

// Prompt renders the prompt for state.
func (r *Reasoner) Prompt(state domain.ConversationState) string {
	menu := ""
	if r.menu != nil {
		menu = r.menu.Menu()
	}
	return BuildPrompt(PromptConfig{
		AssistantName:  r.cfg.AssistantName,
		Menu:           menu,
		PatientContext: state.PatientContext,
		MedicalRecord:  state.MedicalRecord,
		History:        state.History,
	})
}

// Reason runs one step: it increments state.Iterations and returns the
// model's raw text as an Assistant message. The message is not appended; the
// loop merges it through the compactor.
func (r *Reasoner) Reason(ctx context.Context, state *domain.ConversationState) (domain.Message, error) {
	prompt := r.Prompt(*state)
	budget := r.Budget(state.History)

	r.log.Debug().
		Int("iteration", state.Iterations).
		Int("maxTokens", budget).
		Int("promptLen", len(prompt)).
		Msg("reasoning")

	text, err := r.completer.Complete(ctx, prompt, budget)
	state.Iterations++
	if err != nil {
		return domain.Message{}, fmt.Errorf("completion: %w", err)
	}
	return domain.Assistant(text), nil
}
