// Package hooks dispatches conversation-loop events to subscribers such as
// the emergency escalator and the audit log.
package hooks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/logging"
)

// Event names emitted by the agent loop.
const (
	EventTurnStart     = "turn_start"
	EventReasoningDone = "reasoning_done"
	EventToolResult    = "tool_result"
	EventToolError     = "tool_error"
	EventTurnEnd       = "turn_end"
)

// AllEvents lists all known hook event names.
var AllEvents = []string{
	EventTurnStart,
	EventReasoningDone,
	EventToolResult,
	EventToolError,
	EventTurnEnd,
}

// Payload carries event data to hook handlers.
type Payload struct {
	Event string         `json:"event"`
	Data  map[string]any `json:"data,omitempty"`
}

// String returns Data[key] if it is a string, else "".
func (p Payload) String(key string) string {
	s, _ := p.Data[key].(string)
	return s
}

// Int64 returns Data[key] as an int64, accepting the integer kinds callers use.
func (p Payload) Int64(key string) int64 {
	switch v := p.Data[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	}
	return 0
}

// Handler is a function that handles a hook event.
// Returning an error logs the failure but does not stop processing.
type Handler func(ctx context.Context, p Payload) error

// DefaultAsyncTimeout bounds an async handler registered without a timeout.
const DefaultAsyncTimeout = 30 * time.Second

// Manager manages hook registrations and dispatches events.
type Manager struct {
	mu       sync.RWMutex
	handlers map[string][]namedHandler
	inflight sync.WaitGroup
	log      *logging.Logger
}

type namedHandler struct {
	name    string
	handler Handler
	async   bool
	timeout time.Duration
}

// NewManager creates a hook manager.
func NewManager(log *logging.Logger) *Manager {
	if log == nil {
		log = logging.Nop()
	}
	return &Manager{
		handlers: make(map[string][]namedHandler),
		log:      log.Sub("hooks"),
	}
}

// On registers a handler for the given event.
// The name identifies the handler for logging and debugging.
func (m *Manager) On(event, name string, handler Handler) {
	m.register(event, namedHandler{name: name, handler: handler})
}

// OnAsync registers a handler that runs on its own goroutine, off the
// emitter's path. It gets a context detached from the emitter's
// cancellation and bounded by timeout (DefaultAsyncTimeout when <= 0).
func (m *Manager) OnAsync(event, name string, timeout time.Duration, handler Handler) {
	if timeout <= 0 {
		timeout = DefaultAsyncTimeout
	}
	m.register(event, namedHandler{name: name, handler: handler, async: true, timeout: timeout})
}

func (m *Manager) register(event string, h namedHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[event] = append(m.handlers[event], h)
	m.log.Debug().Str("event", event).Str("handler", h.name).Bool("async", h.async).Msg("hook registered")
}

// Emit dispatches an event to all registered handlers. Synchronous
// handlers are called in registration order; async ones are started and
// not waited for. Errors and panics are logged and never reach the caller.
func (m *Manager) Emit(ctx context.Context, event string, data map[string]any) {
	if m == nil {
		return
	}
	handlers := m.snapshot(event)
	if len(handlers) == 0 {
		return
	}

	payload := Payload{Event: event, Data: data}
	for _, h := range handlers {
		if h.async {
			m.spawn(ctx, h, payload)
			continue
		}
		m.call(ctx, h, payload, "hook handler error")
	}
}

func (m *Manager) spawn(ctx context.Context, h namedHandler, p Payload) {
	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.timeout)
	m.inflight.Add(1)
	go func() {
		defer m.inflight.Done()
		defer cancel()
		m.call(actx, h, p, "async hook handler error")
	}()
}

// Wait blocks until every async handler started so far has returned, or
// ctx is done. Call it before closing resources the handlers use.
func (m *Manager) Wait(ctx context.Context) error {
	if m == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		m.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) snapshot(event string) []namedHandler {
	m.mu.RLock()
	defer m.mu.RUnlock()
	handlers := make([]namedHandler, len(m.handlers[event]))
	copy(handlers, m.handlers[event])
	return handlers
}

func (m *Manager) call(ctx context.Context, h namedHandler, p Payload, msg string) {
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return h.handler(ctx, p)
	}()
	if err != nil {
		m.log.Warn().
			Err(err).
			Str("event", p.Event).
			Str("handler", h.name).
			Msg(msg)
	}
}
