package agent

import (
	"context"
	"fmt"

	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/llm"
	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/logging"
)

// PlaceholderResponse is what the model collaborator returns when no provider
// can answer. It deliberately contains no tool command, so the loop ends.
const PlaceholderResponse = "[LLM not configured - placeholder response]\n\n" +
	"The language model is unavailable right now, so I cannot analyse this request. " +
	"If this is an emergency, call 140 (Red Cross) or 112 immediately.\n\n" +
	"[End of placeholder response]"

// ModelCompleter adapts an llm.Client to the Completer contract. Provider
// failures are logged and replaced by PlaceholderResponse. A cancelled or
// expired turn context is the one error it returns, so the turn fails and
// is not persisted.
type ModelCompleter struct {
	client      llm.Client
	temperature *float64
	log         *logging.Logger
}

// NewModelCompleter wraps client. A nil client always yields the placeholder.
func NewModelCompleter(client llm.Client, temperature *float64, log *logging.Logger) *ModelCompleter {
	if log == nil {
		log = logging.Nop()
	}
	return &ModelCompleter{client: client, temperature: temperature, log: log.Sub("llm")}
}

// Complete returns the model's text for prompt. It only errors when ctx
// is done.
func (m *ModelCompleter) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.client == nil {
		return PlaceholderResponse, nil
	}

	resp, err := m.client.Complete(ctx, llm.CompletionRequest{
		Prompt:      prompt,
		MaxTokens:   maxTokens,
		Temperature: m.temperature,
	})
	if err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return "", fmt.Errorf("%w: %w", cerr, err)
		}
		m.log.Warn().Err(err).Str("provider", m.client.Name()).Msg("completion failed, using placeholder")
		return PlaceholderResponse, nil
	}

	m.log.Debug().
		Str("model", resp.Model).
		Int("inputTokens", resp.Usage.InputTokens).
		Int("outputTokens", resp.Usage.OutputTokens).
		Dur("duration", resp.Duration).
		Msg("completion")
	return resp.Content, nil
}
