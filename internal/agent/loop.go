package agent

import (
	"context"
	"time"

	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/capability"
	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/domain"
	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/history"
	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/hooks"
	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/logging"
)

// DefaultMaxIterations caps reasoning steps per turn. The loop stops once
// Iterations exceeds it, so a turn runs at most DefaultMaxIterations+1 steps.
const DefaultMaxIterations = 5

// FallbackAnswer is returned when a turn ends without any assistant message.
const FallbackAnswer = "I apologize, but I couldn't generate a response. Please try again."

// State is a control loop state.
type State int

const (
	StateReasoning State = iota
	StateTools
	StateTerminal
)

func (s State) String() string {
	switch s {
	case StateReasoning:
		return "REASONING"
	case StateTools:
		return "TOOLS"
	case StateTerminal:
		return "TERMINAL"
	default:
		return "UNKNOWN"
	}
}

// LoopConfig wires the control loop's collaborators.
type LoopConfig struct {
	MaxIterations int
	Registry      *capability.Registry
	Reasoner      *Reasoner
	Invoker       *Invoker
	Compactor     *history.Compactor
	Parser        Parser
	Hooks         *hooks.Manager
}

// Loop is the REASONING/TOOLS/TERMINAL state machine for one conversation
// turn. A Loop holds no per-conversation state and may serve many
// conversations concurrently.
type Loop struct {
	maxIter   int
	registry  *capability.Registry
	reasoner  *Reasoner
	invoker   *Invoker
	compactor *history.Compactor
	parser    Parser
	hooks     *hooks.Manager
	log       *logging.Logger
}

// NewLoop creates a control loop.
func NewLoop(cfg LoopConfig, log *logging.Logger) *Loop {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if cfg.Parser == nil {
		cfg.Parser = BracketParser{}
	}
	if log == nil {
		log = logging.Nop()
	}
	if cfg.Compactor == nil {
		cfg.Compactor = history.NewCompactor(history.DefaultWindow(), log)
	}
	if cfg.Invoker == nil {
		cfg.Invoker = NewInvoker(cfg.Registry, cfg.Parser, cfg.Hooks, log)
	}
	return &Loop{
		maxIter:   cfg.MaxIterations,
		registry:  cfg.Registry,
		reasoner:  cfg.Reasoner,
		invoker:   cfg.Invoker,
		compactor: cfg.Compactor,
		parser:    cfg.Parser,
		hooks:     cfg.Hooks,
		log:       log.Sub("agent"),
	}
}

// Next evaluates the termination predicate after a reasoning step produced
// latest.
func (l *Loop) Next(state domain.ConversationState, latest domain.Message) State {
	if state.Iterations > l.maxIter {
		return StateTerminal
	}
	if l.parser.Requests(latest.Text, l.registry) {
		return StateTools
	}
	return StateTerminal
}

// RunTurn appends userMessage to a copy of state and runs the loop until it
// terminates. It returns the updated state and the answer text. An error is
// returned only when the language-model collaborator itself fails.
func (l *Loop) RunTurn(ctx context.Context, state domain.ConversationState, userMessage string) (domain.ConversationState, string, error) {
	start := time.Now()
	st := state.Clone()
	st.Iterations = 0
	if st.CreatedAt.IsZero() {
		st.CreatedAt = start
	}
	st.History = l.compactor.Merge(st.History, []domain.Message{domain.User(userMessage)})

	log := l.log.With("threadId", st.ThreadID)
	log.Info().Int("historyLen", len(st.History)).Msg("turn started")
	l.hooks.Emit(ctx, hooks.EventTurnStart, map[string]any{
		"threadId": st.ThreadID,
		"userId":   st.UserID,
		"message":  userMessage,
	})

	var (
		current = StateReasoning
		latest  domain.Message
		toolRun int
	)
	for current != StateTerminal {
		switch current {
		case StateReasoning:
			msg, err := l.reasoner.Reason(ctx, &st)
			if err != nil {
				st.UpdatedAt = time.Now()
				return st, "", err
			}
			latest = msg
			st.History = l.compactor.Merge(st.History, []domain.Message{msg})
			current = l.Next(st, msg)

			l.hooks.Emit(ctx, hooks.EventReasoningDone, map[string]any{
				"threadId":  st.ThreadID,
				"iteration": st.Iterations,
				"next":      current.String(),
			})
			log.Debug().Int("iteration", st.Iterations).Str("next", current.String()).Msg("reasoning step done")

		case StateTools:
			results := l.invoker.InvokeTools(ctx, latest, st)
			toolRun++
			st.History = l.compactor.Merge(st.History, results)
			current = StateReasoning
		}
	}

	st.UpdatedAt = time.Now()
	answer := FallbackAnswer
	if m, ok := st.LastAssistant(); ok {
		answer = m.Text
	}

	capped := st.Iterations > l.maxIter
	log.Info().
		Int("iterations", st.Iterations).
		Int("toolPasses", toolRun).
		Bool("capped", capped).
		Dur("duration", time.Since(start)).
		Msg("turn finished")
	l.hooks.Emit(ctx, hooks.EventTurnEnd, map[string]any{
		"threadId":   st.ThreadID,
		"userId":     st.UserID,
		"iterations": st.Iterations,
		"capped":     capped,
	})

	return st, answer, nil
}
