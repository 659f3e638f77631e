package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/domain"
	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/llm"
	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func silentLog() *logging.Logger {
	return logging.Nop()
}

func testRegistry(mock llm.Client) *llm.Registry {
	reg := llm.NewRegistry(silentLog())
	reg.Register("mock", mock)
	reg.SetFallback("mock")
	return reg
}

type staticContext struct {
	calls []int64
}

func (s *staticContext) PatientContext(_ context.Context, userID int64, loc domain.Location) (string, string, error) {
	s.calls = append(s.calls, userID)
	return fmt.Sprintf("User ID: %d\nLocation: %.2f, %.2f", userID, loc.Lat, loc.Lon), "Hypertension", nil
}

func newTestRunner(t *testing.T, model Completer, contexts ContextProvider) (*Runner, *MemoryStateStore) {
	t.Helper()
	loop, _ := newTestLoop(t, model, nil)
	store := NewMemoryStateStore()
	return NewRunner(RunnerConfig{DefaultUserID: 1, TurnTimeout: time.Minute}, loop, store, contexts, silentLog()), store
}

// --- Runner tests ---

func TestRunnerNewThread(t *testing.T) {
	runner, store := newTestRunner(t, script("Hello!"), nil)

	res, err := runner.Run(context.Background(), Request{Message: "Hi"})
	require.NoError(t, err)
	assert.Equal(t, "Hello!", res.Answer)
	assert.NotEmpty(t, res.ThreadID)
	assert.Equal(t, 1, res.Iterations)

	st, ok, err := store.Load(context.Background(), res.ThreadID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(1), st.UserID, "default user applied")
	assert.Equal(t, []string{"Hi", "Hello!"}, texts(st.History))
}

func TestRunnerThreadPersistence(t *testing.T) {
	model := script("first", "second")
	runner, _ := newTestRunner(t, model, nil)
	ctx := context.Background()

	r1, err := runner.Run(ctx, Request{ThreadID: "t-1", Message: "one"})
	require.NoError(t, err)
	r2, err := runner.Run(ctx, Request{ThreadID: "t-1", Message: "two"})
	require.NoError(t, err)

	assert.Equal(t, "t-1", r1.ThreadID)
	assert.Equal(t, "second", r2.Answer)

	h, err := runner.History(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "first", "two", "second"}, texts(h))
	assert.Contains(t, model.prompts[1], "User: one\nSentinel: first\nUser: two\n")
}

func TestRunnerRefreshesPatientContext(t *testing.T) {
	model := script("ok")
	pc := &staticContext{}
	runner, _ := newTestRunner(t, model, pc)

	_, err := runner.Run(context.Background(), Request{UserID: 7, Message: "hi", Location: domain.Location{Lat: 33.89, Lon: 35.5}})
	require.NoError(t, err)

	assert.Equal(t, []int64{7}, pc.calls)
	assert.Contains(t, model.prompts[0], "PATIENT CONTEXT:\nUser ID: 7\nLocation: 33.89, 35.50")
	assert.Contains(t, model.prompts[0], "MEDICAL RECORD:\nHypertension")
}

func TestRunnerKeepsKnownLocation(t *testing.T) {
	runner, store := newTestRunner(t, script("ok"), nil)
	ctx := context.Background()

	_, err := runner.Run(ctx, Request{ThreadID: "loc", Message: "a", Location: domain.Location{Lat: 1, Lon: 2}})
	require.NoError(t, err)
	_, err = runner.Run(ctx, Request{ThreadID: "loc", Message: "b"})
	require.NoError(t, err)

	st, _, _ := store.Load(ctx, "loc")
	assert.Equal(t, domain.Location{Lat: 1, Lon: 2}, st.UserLocation)
}

func TestRunnerSerializesThread(t *testing.T) {
	runner, store := newTestRunner(t, script("ack"), nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := runner.Run(ctx, Request{ThreadID: "shared", Message: fmt.Sprintf("m%d", i)})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	st, ok, err := store.Load(ctx, "shared")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, st.History, 20, "no turn overwrote another")

	runner.mu.Lock()
	defer runner.mu.Unlock()
	assert.Empty(t, runner.locks, "idle thread locks are released")
}

func TestRunnerReleasesLockAfterFailedTurn(t *testing.T) {
	boom := CompleterFunc(func(context.Context, string, int) (string, error) {
		return "", errors.New("boom")
	})
	runner, _ := newTestRunner(t, boom, nil)

	for i := range 5 {
		_, err := runner.Run(context.Background(), Request{ThreadID: fmt.Sprintf("t%d", i), Message: "hi"})
		require.Error(t, err)
	}
	assert.Empty(t, runner.locks)
}

func TestRunnerModelError(t *testing.T) {
	boom := CompleterFunc(func(context.Context, string, int) (string, error) {
		return "", errors.New("boom")
	})
	runner, store := newTestRunner(t, boom, nil)

	_, err := runner.Run(context.Background(), Request{ThreadID: "x", Message: "hi"})
	require.Error(t, err)

	_, ok, _ := store.Load(context.Background(), "x")
	assert.False(t, ok, "failed turns are not persisted")
}

func TestRunnerCancelledTurnNotPersisted(t *testing.T) {
	runner, store := newTestRunner(t, NewModelCompleter(nil, nil, silentLog()), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := runner.Run(ctx, Request{ThreadID: "gone", Message: "hi"})
	require.ErrorIs(t, err, context.Canceled)

	_, ok, _ := store.Load(context.Background(), "gone")
	assert.False(t, ok)
}

func TestRunnerTurnTimeoutNotPersisted(t *testing.T) {
	slow := &llm.MockClient{
		ProviderName: "slow",
		CompleteFunc: func(ctx context.Context, _ llm.CompletionRequest) (*llm.CompletionResponse, error) {
			<-ctx.Done()
			return nil, &llm.ProviderError{Provider: "slow", Message: "request aborted"}
		},
	}
	loop, _ := newTestLoop(t, NewModelCompleter(slow, nil, silentLog()), nil)
	store := NewMemoryStateStore()
	runner := NewRunner(RunnerConfig{DefaultUserID: 1, TurnTimeout: 20 * time.Millisecond}, loop, store, nil, silentLog())

	_, err := runner.Run(context.Background(), Request{ThreadID: "slow", Message: "hi"})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	_, ok, _ := store.Load(context.Background(), "slow")
	assert.False(t, ok)
}

// --- MemoryStateStore tests ---

func TestMemoryStateStore(t *testing.T) {
	s := NewMemoryStateStore()
	ctx := context.Background()

	_, ok, err := s.Load(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	st := domain.ConversationState{ThreadID: "b", History: []domain.Message{domain.User("hi")}}
	require.NoError(t, s.Save(ctx, st))
	require.NoError(t, s.Save(ctx, domain.ConversationState{ThreadID: "a"}))

	got, ok, err := s.Load(ctx, "b")
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, got.UpdatedAt.IsZero())

	got.History = append(got.History, domain.User("mutated"))
	again, _, _ := s.Load(ctx, "b")
	assert.Len(t, again.History, 1, "loaded copies are independent")

	ids, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)

	require.NoError(t, s.Delete(ctx, "a"))
	require.NoError(t, s.Delete(ctx, "a"))
	ids, _ = s.List(ctx)
	assert.Equal(t, []string{"b"}, ids)
}

// --- Completer tests ---

func TestModelCompleterPassesBudget(t *testing.T) {
	mock := &llm.MockClient{
		ProviderName: "mock",
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			return &llm.CompletionResponse{Content: fmt.Sprintf("budget=%d", req.MaxTokens)}, nil
		},
	}
	temp := 0.3
	c := NewModelCompleter(mock, &temp, silentLog())

	out, err := c.Complete(context.Background(), "prompt", 1500)
	require.NoError(t, err)
	assert.Equal(t, "budget=1500", out)

	reqs := mock.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "prompt", reqs[0].Prompt)
	assert.Equal(t, &temp, reqs[0].Temperature)
}

func TestModelCompleterPlaceholder(t *testing.T) {
	out, err := NewModelCompleter(nil, nil, nil).Complete(context.Background(), "p", 512)
	require.NoError(t, err)
	assert.Equal(t, PlaceholderResponse, out)

	failing := &llm.MockClient{
		ProviderName: "down",
		CompleteFunc: func(context.Context, llm.CompletionRequest) (*llm.CompletionResponse, error) {
			return nil, &llm.ProviderError{Provider: "down", Message: "connection refused"}
		},
	}
	out, err = NewModelCompleter(failing, nil, silentLog()).Complete(context.Background(), "p", 512)
	require.NoError(t, err)
	assert.Equal(t, PlaceholderResponse, out)
}

func TestModelCompleterCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := NewModelCompleter(nil, nil, nil).Complete(ctx, "p", 512)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, out)

	mock := &llm.MockClient{ProviderName: "mock"}
	_, err = NewModelCompleter(mock, nil, silentLog()).Complete(ctx, "p", 512)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, mock.Requests(), "no request is sent for a dead turn")
}

func TestPlaceholderEndsTurn(t *testing.T) {
	loop, calls := newTestLoop(t, NewModelCompleter(nil, nil, nil), nil)

	st, answer, err := loop.RunTurn(context.Background(), domain.ConversationState{}, "hello")
	require.NoError(t, err)
	assert.Equal(t, PlaceholderResponse, answer)
	assert.Equal(t, 1, st.Iterations)
	assert.Empty(t, *calls)
}

// --- Failover tests ---

func TestFailoverSuccess(t *testing.T) {
	mock := &llm.MockClient{
		ProviderName: "mock",
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			return &llm.CompletionResponse{Content: "ok"}, nil
		},
	}

	reg := testRegistry(mock)
	fc := NewFailoverClient(reg, "mock", nil, silentLog())

	resp, err := fc.Complete(context.Background(), llm.CompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, "failover:mock", fc.Name())
}

func TestFailoverTriesFallback(t *testing.T) {
	callOrder := []string{}

	primary := &llm.MockClient{
		ProviderName: "primary",
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			callOrder = append(callOrder, "primary")
			return nil, &llm.ProviderError{Provider: "primary", Message: "overloaded", Code: 529}
		},
	}

	fallback := &llm.MockClient{
		ProviderName: "fallback",
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			callOrder = append(callOrder, "fallback")
			return &llm.CompletionResponse{Content: "fallback response"}, nil
		},
	}

	reg := llm.NewRegistry(silentLog())
	reg.Register("primary", primary)
	reg.Register("fallback", fallback)

	fc := NewFailoverClient(reg, "primary", []string{"fallback"}, silentLog())

	resp, err := fc.Complete(context.Background(), llm.CompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "fallback response", resp.Content)
	assert.Equal(t, []string{"primary", "fallback"}, callOrder)
}

func TestFailoverNonRetryableStops(t *testing.T) {
	callCount := 0

	primary := &llm.MockClient{
		ProviderName: "primary",
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			callCount++
			return nil, &llm.ProviderError{Provider: "primary", Message: "bad request", Code: 400}
		},
	}

	fallback := &llm.MockClient{
		ProviderName: "fallback",
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			callCount++
			return &llm.CompletionResponse{Content: "should not reach"}, nil
		},
	}

	reg := llm.NewRegistry(silentLog())
	reg.Register("primary", primary)
	reg.Register("fallback", fallback)

	fc := NewFailoverClient(reg, "primary", []string{"fallback"}, silentLog())

	_, err := fc.Complete(context.Background(), llm.CompletionRequest{})
	assert.Error(t, err)
	assert.Equal(t, 1, callCount, "should not try fallback on non-retryable error")
}

func TestFailoverEmptyRegistry(t *testing.T) {
	fc := NewFailoverClient(llm.NewRegistry(silentLog()), "ollama", nil, silentLog())
	_, err := fc.Complete(context.Background(), llm.CompletionRequest{})
	assert.Error(t, err)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, isRetryable(&llm.ProviderError{Code: 429}))
	assert.True(t, isRetryable(&llm.ProviderError{Code: 529}))
	assert.True(t, isRetryable(&llm.ProviderError{Code: 503}))
	assert.True(t, isRetryable(&llm.ProviderError{Message: "connection refused"}))
	assert.False(t, isRetryable(&llm.ProviderError{Code: 400}))
	assert.True(t, isRetryable(fmt.Errorf("server overloaded")))
	assert.True(t, isRetryable(fmt.Errorf("rate limit exceeded")))
	assert.False(t, isRetryable(fmt.Errorf("invalid input")))
	assert.False(t, isRetryable(nil))
}

func TestFailoverStopsOnCancelledContext(t *testing.T) {
	calls := 0
	mock := &llm.MockClient{
		ProviderName: "mock",
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			calls++
			return &llm.CompletionResponse{Content: "ok"}, nil
		},
	}
	fc := NewFailoverClient(testRegistry(mock), "mock", nil, silentLog())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := fc.Complete(ctx, llm.CompletionRequest{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestFailoverSkipsDuplicateProviders(t *testing.T) {
	calls := 0
	mock := &llm.MockClient{
		ProviderName: "mock",
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			calls++
			return nil, &llm.ProviderError{Provider: "mock", Message: "busy", Code: 503}
		},
	}
	fc := NewFailoverClient(testRegistry(mock), "mock", []string{"MOCK", " mock "}, silentLog())

	_, err := fc.Complete(context.Background(), llm.CompletionRequest{})
	var pe *llm.ProviderError
	assert.ErrorAs(t, err, &pe)
	assert.Equal(t, 1, calls)
}
