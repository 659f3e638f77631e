package llm

import (
	"context"
	"sync"
)

// MockClient is a test double for Client.
type MockClient struct {
	ProviderName string
	CompleteFunc func(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	mu       sync.Mutex
	requests []CompletionRequest
}

func (m *MockClient) Name() string { return m.ProviderName }

func (m *MockClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, req)
	}
	return &CompletionResponse{Content: "mock response"}, nil
}

// Requests returns a copy of every request seen so far.
func (m *MockClient) Requests() []CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]CompletionRequest(nil), m.requests...)
}

// Scripted returns a MockClient that answers with each reply in turn and
// repeats the last one once the script runs out.
func Scripted(replies ...string) *MockClient {
	var (
		mu sync.Mutex
		i  int
	)
	return &MockClient{
		ProviderName: "scripted",
		CompleteFunc: func(_ context.Context, req CompletionRequest) (*CompletionResponse, error) {
			mu.Lock()
			defer mu.Unlock()
			if len(replies) == 0 {
				return &CompletionResponse{}, nil
			}
			r := replies[i]
			if i < len(replies)-1 {
				i++
			}
			return &CompletionResponse{Content: r, Model: req.Model}, nil
		},
	}
}
