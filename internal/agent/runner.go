package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/domain"
	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/logging"
)

// ContextProvider builds the read-only patient context and medical record
// snapshot for a user at the start of each turn.
type ContextProvider interface {
	PatientContext(ctx context.Context, userID int64, loc domain.Location) (patientContext, medicalRecord string, err error)
}

// RunnerConfig configures the agent runner.
type RunnerConfig struct {
	DefaultUserID int64
	TurnTimeout   time.Duration
}

// Request is one inbound user message.
type Request struct {
	ThreadID string          `json:"threadId,omitempty"`
	UserID   int64           `json:"userId,omitempty"`
	Message  string          `json:"message"`
	Location domain.Location `json:"location"`
}

// Result is the outcome of processing a request.
type Result struct {
	ThreadID   string        `json:"threadId"`
	Answer     string        `json:"answer"`
	Iterations int           `json:"iterations"`
	Duration   time.Duration `json:"duration"`
}

// Runner resumes persisted threads, runs one loop turn and saves the result.
// Turns on the same thread are serialized; different threads run concurrently.
type Runner struct {
	cfg      RunnerConfig
	loop     *Loop
	states   StateStore
	contexts ContextProvider
	log      *logging.Logger

	mu    sync.Mutex
	locks map[string]*threadLock
}

// threadLock is dropped from Runner.locks once no turn holds or awaits it.
type threadLock struct {
	mu   sync.Mutex
	refs int
}

// NewRunner creates an agent runner. contexts may be nil, in which case the
// state's existing context strings are kept.
func NewRunner(cfg RunnerConfig, loop *Loop, states StateStore, contexts ContextProvider, log *logging.Logger) *Runner {
	if states == nil {
		states = NewMemoryStateStore()
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Runner{
		cfg:      cfg,
		loop:     loop,
		states:   states,
		contexts: contexts,
		log:      log.Sub("runner"),
		locks:    make(map[string]*threadLock),
	}
}

// Run processes an inbound message and returns the answer.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	if req.ThreadID == "" {
		req.ThreadID = uuid.New().String()
	}
	if req.UserID == 0 {
		req.UserID = r.cfg.DefaultUserID
	}

	unlock := r.lockThread(req.ThreadID)
	defer unlock()

	state, ok, err := r.states.Load(ctx, req.ThreadID)
	if err != nil {
		return nil, fmt.Errorf("loading thread %s: %w", req.ThreadID, err)
	}
	if !ok {
		state = domain.ConversationState{ThreadID: req.ThreadID, CreatedAt: start}
	}
	state.UserID = req.UserID
	if req.Location.Known() {
		state.UserLocation = req.Location
	}

	if r.contexts != nil {
		pc, mr, err := r.contexts.PatientContext(ctx, state.UserID, state.UserLocation)
		if err != nil {
			r.log.Warn().Err(err).Int64("userId", state.UserID).Msg("patient context unavailable")
		} else {
			state.PatientContext, state.MedicalRecord = pc, mr
		}
	}

	r.log.Info().
		Str("threadId", state.ThreadID).
		Int64("userId", state.UserID).
		Int("historyLen", len(state.History)).
		Bool("resumed", ok).
		Msg("processing message")

	turnCtx := ctx
	if r.cfg.TurnTimeout > 0 {
		var cancel context.CancelFunc
		turnCtx, cancel = context.WithTimeout(ctx, r.cfg.TurnTimeout)
		defer cancel()
	}

	next, answer, err := r.loop.RunTurn(turnCtx, state, req.Message)
	if err != nil {
		return nil, fmt.Errorf("running turn: %w", err)
	}

	if err := r.states.Save(ctx, next); err != nil {
		return nil, fmt.Errorf("saving thread %s: %w", next.ThreadID, err)
	}

	return &Result{
		ThreadID:   next.ThreadID,
		Answer:     answer,
		Iterations: next.Iterations,
		Duration:   time.Since(start),
	}, nil
}

// History returns the persisted history of a thread.
func (r *Runner) History(ctx context.Context, threadID string) ([]domain.Message, error) {
	state, ok, err := r.states.Load(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return state.History, nil
}

func (r *Runner) lockThread(id string) func() {
	r.mu.Lock()
	l, ok := r.locks[id]
	if !ok {
		l = &threadLock{}
		r.locks[id] = l
	}
	l.refs++
	r.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		r.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(r.locks, id)
		}
		r.mu.Unlock()
	}
}
