package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// DefaultGeminiEndpoint is the public Generative Language API base.
const DefaultGeminiEndpoint = "https://generativelanguage.googleapis.com/v1beta"

// GeminiClient is a direct HTTP client for the Google Gemini API.
type GeminiClient struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// NewGeminiClient creates a new Gemini client. An empty endpoint uses the
// public API.
func NewGeminiClient(apiKey, model, endpoint string) *GeminiClient {
	if endpoint == "" {
		endpoint = DefaultGeminiEndpoint
	}
	return &GeminiClient{
		apiKey:   apiKey,
		model:    model,
		endpoint: strings.TrimSuffix(endpoint, "/"),
		client:   &http.Client{Timeout: 120 * time.Second},
	}
}

// Complete sends a generateContent request.
func (g *GeminiClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	genCfg := map[string]any{}
	if req.MaxTokens > 0 {
		genCfg["maxOutputTokens"] = req.MaxTokens
	}
	if req.Temperature != nil {
		genCfg["temperature"] = *req.Temperature
	}

	body := map[string]any{
		"contents": []map[string]any{
			{
				"role":  "user",
				"parts": []map[string]string{{"text": req.Prompt}},
			},
		},
		"generationConfig": genCfg,
	}
	if req.System != "" {
		body["systemInstruction"] = map[string]any{
			"parts": []map[string]string{{"text": req.System}},
		}
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", g.endpoint, g.model)
	headers := map[string]string{"x-goog-api-key": g.apiKey}

	var result geminiResponse
	if err := postJSON(ctx, g.client, g.Name(), endpoint, headers, body, &result); err != nil {
		return nil, err
	}

	var content strings.Builder
	stop := ""
	if len(result.Candidates) > 0 {
		c := result.Candidates[0]
		for _, p := range c.Content.Parts {
			content.WriteString(p.Text)
		}
		stop = c.FinishReason
	}

	return &CompletionResponse{
		Content:    content.String(),
		StopReason: stop,
		Model:      g.model,
		Usage: Usage{
			InputTokens:  result.UsageMetadata.PromptTokenCount,
			OutputTokens: result.UsageMetadata.CandidatesTokenCount,
		},
		Duration: time.Since(start),
	}, nil
}

// Name returns the provider name.
func (g *GeminiClient) Name() string { return "gemini" }

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text,omitempty"`
			} `json:"parts"`
			Role string `json:"role"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}
