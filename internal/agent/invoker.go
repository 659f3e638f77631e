package agent

import (
	"context"
	"fmt"

	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/capability"
	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/domain"
	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/hooks"
	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/logging"
)

// Invoker parses tool calls out of assistant text and dispatches them.
type Invoker struct {
	registry *capability.Registry
	parser   Parser
	hooks    *hooks.Manager
	log      *logging.Logger
}

// NewInvoker creates a tool invoker. A nil parser uses BracketParser; a nil
// hook manager disables events.
func NewInvoker(registry *capability.Registry, parser Parser, hm *hooks.Manager, log *logging.Logger) *Invoker {
	if parser == nil {
		parser = BracketParser{}
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Invoker{registry: registry, parser: parser, hooks: hm, log: log.Sub("invoker")}
}

// InvokeTools runs every call found in last, in order, and returns one System
// message per call. Failures become messages; nothing is returned as an error.
func (inv *Invoker) InvokeTools(ctx context.Context, last domain.Message, state domain.ConversationState) []domain.Message {
	calls := inv.parser.Parse(last.Text)
	if len(calls) == 0 {
		return nil
	}

	env := capability.EnvFrom(state)
	out := make([]domain.Message, 0, len(calls))
	for _, call := range calls {
		out = append(out, inv.invoke(ctx, call, env, state.ThreadID))
	}
	return out
}

func (inv *Invoker) invoke(ctx context.Context, call domain.ToolCall, env capability.Env, threadID string) domain.Message {
	log := inv.log.With("tool", call.Name)
	log.Debug().Str("args", call.RawArgs).Msg("invoking tool")

	result, err := inv.registry.Invoke(ctx, call.Name, call.RawArgs, env)
	if err != nil {
		kind := capability.KindOf(err)
		log.Warn().Str("kind", kind.String()).Err(err).Msg("tool failed")
		inv.hooks.Emit(ctx, hooks.EventToolError, map[string]any{
			"tool":     call.Name,
			"args":     call.RawArgs,
			"kind":     kind.String(),
			"error":    err.Error(),
			"userId":   env.UserID,
			"threadId": threadID,
		})
		return domain.System(FormatToolError(call.Name, err))
	}

	inv.hooks.Emit(ctx, hooks.EventToolResult, map[string]any{
		"tool":     call.Name,
		"args":     call.RawArgs,
		"output":   result,
		"userId":   env.UserID,
		"threadId": threadID,
	})
	return domain.System(FormatToolResult(call.Name, result))
}

// FormatToolResult renders a successful result as history text.
func FormatToolResult(name, result string) string {
	return fmt.Sprintf("%s (%s): %s", ToolResultMarker, name, result)
}

// FormatToolError renders a failed call as history text. Argument errors
// are framed as a tool result so the model sees the expected format inside
// the result delimiters and gets the larger follow-up budget.
func FormatToolError(name string, err error) string {
	switch capability.KindOf(err) {
	case capability.KindNotFound:
		return "Error: " + err.Error()
	case capability.KindArgument:
		return FormatToolResult(name, "Tool Error: "+err.Error())
	}
	return fmt.Sprintf("Tool Error (%s): %s", name, err)
}
