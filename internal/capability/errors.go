package capability

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a recovered tool failure.
type ErrorKind int

const (
	// KindNotFound means no capability is registered under the name.
	KindNotFound ErrorKind = iota + 1
	// KindArgument means the raw arguments did not fit the tool's format.
	KindArgument
	// KindExecution means the tool itself failed.
	KindExecution
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindArgument:
		return "argument"
	case KindExecution:
		return "execution"
	default:
		return "unknown"
	}
}

// ToolError is the error variant of a tool invocation.
type ToolError struct {
	Tool string
	Kind ErrorKind
	Err  error
}

func (e *ToolError) Error() string {
	if e.Kind == KindNotFound {
		return fmt.Sprintf("Tool %s not found.", e.Tool)
	}
	if e.Err == nil {
		return fmt.Sprintf("%s failed", e.Tool)
	}
	return e.Err.Error()
}

func (e *ToolError) Unwrap() error { return e.Err }

// NotFound returns the error for an unregistered tool name.
func NotFound(name string) *ToolError {
	return &ToolError{Tool: name, Kind: KindNotFound}
}

// InvalidArgs returns an argument error naming the expected call format.
func InvalidArgs(tool, format, provided string) *ToolError {
	return &ToolError{
		Tool: tool,
		Kind: KindArgument,
		Err: fmt.Errorf("Invalid arguments for %s. Expected format: [%s: %s]. You provided: %s",
			tool, tool, format, provided),
	}
}

// ArgumentError is returned by binders; the registry converts it into an
// argument ToolError carrying the tool's name.
type ArgumentError struct {
	Format   string
	Provided string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("expected %s, got %q", e.Format, e.Provided)
}

// Wrap classifies err as a failure of tool. ToolErrors pass through.
func Wrap(tool string, err error) *ToolError {
	if err == nil {
		return nil
	}
	var te *ToolError
	if errors.As(err, &te) {
		return te
	}
	var ae *ArgumentError
	if errors.As(err, &ae) {
		return InvalidArgs(tool, ae.Format, ae.Provided)
	}
	return &ToolError{Tool: tool, Kind: KindExecution, Err: err}
}

// KindOf returns the kind of a tool error, or zero for other errors.
func KindOf(err error) ErrorKind {
	var te *ToolError
	if errors.As(err, &te) {
		return te.Kind
	}
	return 0
}
