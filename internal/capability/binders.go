package capability

import (
	"strconv"
	"strings"
)

// Binder turns the raw argument text of a tool call into named arguments.
// Binders return *ArgumentError when the text does not fit the format.
type Binder func(raw string, env Env) (Args, error)

// SplitArgs splits comma-delimited arguments and trims each field.
func SplitArgs(raw string) []string {
	parts := strings.Split(raw, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// SplitFirst splits raw on its first comma. ok is false when there is no
// comma, in which case head is the whole trimmed input.
func SplitFirst(raw string) (head, tail string, ok bool) {
	h, t, found := strings.Cut(raw, ",")
	if !found {
		return strings.TrimSpace(raw), "", false
	}
	return strings.TrimSpace(h), strings.TrimSpace(t), true
}

// Digits parses s as a non-negative integer when it consists solely of
// ASCII digits.
func Digits(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// DigitsOr parses s like Digits, falling back to def.
func DigitsOr(s string, def int) int {
	if n, ok := Digits(s); ok {
		return n
	}
	return def
}

// Field returns parts[i], or "" when the slice is too short.
func Field(parts []string, i int) string {
	if i < len(parts) {
		return parts[i]
	}
	return ""
}

// Whole binds the entire trimmed argument text to key.
func Whole(key string) Binder {
	return func(raw string, _ Env) (Args, error) {
		return Args{key: strings.TrimSpace(raw)}, nil
	}
}

// WholeForUser binds the argument text to key and threads the user id.
func WholeForUser(key string) Binder {
	return func(raw string, env Env) (Args, error) {
		return Args{key: strings.TrimSpace(raw), "user_id": env.UserID}, nil
	}
}

// UserOnly ignores the argument text and binds only the user id.
func UserOnly() Binder {
	return func(_ string, env Env) (Args, error) {
		return Args{"user_id": env.UserID}, nil
	}
}

// Positional splits comma-delimited arguments into the named fields and
// requires at least min of them. format is shown to the model on failure.
// Fields beyond min that are missing are left unset.
func Positional(min int, format string, fields ...string) Binder {
	return func(raw string, env Env) (Args, error) {
		parts := SplitArgs(raw)
		if strings.TrimSpace(raw) == "" {
			parts = nil
		}
		if len(parts) < min {
			return nil, &ArgumentError{Format: format, Provided: strings.TrimSpace(raw)}
		}
		args := Args{"user_id": env.UserID}
		for i, f := range fields {
			if i < len(parts) {
				args[f] = parts[i]
			}
		}
		return args, nil
	}
}
