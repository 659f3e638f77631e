// Package capability defines the uniform tool contract, the argument
// binders that turn raw call text into named arguments, and the registry
// mapping tool names (including aliases) to implementations.
package capability

import (
	"context"

	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/domain"
)

// Tool is a capability the agent can invoke. Every failure is returned as
// an error value; implementations must not panic.
type Tool interface {
	Invoke(ctx context.Context, args Args) (string, error)
}

// Func adapts an ordinary function to the Tool interface.
type Func func(ctx context.Context, args Args) (string, error)

// Invoke calls f.
func (f Func) Invoke(ctx context.Context, args Args) (string, error) {
	return f(ctx, args)
}

// Env is the caller state a binder may thread into tool arguments.
type Env struct {
	UserID   int64
	Location domain.Location
}

// EnvFrom extracts the binder environment from a conversation state.
func EnvFrom(s domain.ConversationState) Env {
	return Env{UserID: s.UserID, Location: s.UserLocation}
}
