package agent

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/llm"
	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/logging"
)

// FailoverClient wraps an LLM registry to try fallback providers on failure.
type FailoverClient struct {
	registry  *llm.Registry
	primary   string
	fallbacks []string
	log       *logging.Logger
}

// NewFailoverClient creates a client that tries the primary provider first,
// then the fallbacks, moving on after retryable errors.
func NewFailoverClient(registry *llm.Registry, primary string, fallbacks []string, log *logging.Logger) *FailoverClient {
	if log == nil {
		log = logging.Nop()
	}
	return &FailoverClient{
		registry:  registry,
		primary:   primary,
		fallbacks: fallbacks,
		log:       log.Sub("failover"),
	}
}

// Name implements llm.Client.
func (f *FailoverClient) Name() string { return "failover:" + f.primary }

// providers returns the primary followed by the fallbacks, without repeats.
func (f *FailoverClient) providers() []string {
	seen := make(map[string]bool, len(f.fallbacks)+1)
	var out []string
	for _, p := range append([]string{f.primary}, f.fallbacks...) {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

// Complete tries each provider in order. It moves on only after a retryable
// failure and stops as soon as ctx is done.
func (f *FailoverClient) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	var errs []error
	for _, name := range f.providers() {
		if err := ctx.Err(); err != nil {
			return nil, errors.Join(append(errs, err)...)
		}

		client, err := f.registry.Resolve(name)
		if err != nil {
			f.log.Debug().Str("provider", name).Err(err).Msg("provider unavailable, skipping")
			errs = append(errs, err)
			continue
		}

		req.Model = name
		resp, err := client.Complete(ctx, req)
		if err == nil {
			if len(errs) > 0 {
				f.log.Info().Str("provider", name).Int("failed", len(errs)).Msg("answered by fallback provider")
			}
			return resp, nil
		}
		if !isRetryable(err) {
			return nil, err
		}
		f.log.Warn().Str("provider", name).Err(err).Msg("retryable error, trying next provider")
		errs = append(errs, err)
	}

	if len(errs) == 0 {
		return nil, errors.New("no LLM providers configured")
	}
	return nil, errors.Join(errs...)
}

// isRetryable reports whether another provider might succeed where this one
// failed. Code 0 means the request never got an HTTP answer.
func isRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var provErr *llm.ProviderError
	if errors.As(err, &provErr) {
		return slices.Contains(retryableCodes, provErr.Code)
	}

	msg := strings.ToLower(err.Error())
	for _, hint := range retryableHints {
		if strings.Contains(msg, hint) {
			return true
		}
	}
	return false
}

var (
	retryableCodes = []int{0, 401, 403, 429, 500, 502, 503, 529}
	retryableHints = []string{"overloaded", "rate limit", "capacity", "timeout", "connection refused"}
)
