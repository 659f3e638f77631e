package capability

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/domain"
)

func echoTool() Tool {
	return Func(func(_ context.Context, args Args) (string, error) {
		return "echo:" + args.String("query"), nil
	})
}

func TestRegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Entry{Name: "SEARCH", Signature: "query", Description: "search", Bind: Whole("query"), Tool: echoTool()}))

	e, ok := r.Lookup("SEARCH")
	require.True(t, ok)
	assert.Equal(t, "SEARCH", e.Name)
	assert.True(t, r.Has("SEARCH"))
	assert.False(t, r.Has("search"))
	assert.Equal(t, 1, r.Len())
}

func TestRegisterRejectsBadEntries(t *testing.T) {
	r := NewRegistry()
	assert.Error(t, r.Register(Entry{Name: "lower", Tool: echoTool()}))
	assert.Error(t, r.Register(Entry{Name: "WITH-DASH", Tool: echoTool()}))
	assert.Error(t, r.Register(Entry{Name: "", Tool: echoTool()}))
	assert.Error(t, r.Register(Entry{Name: "NO_TOOL"}))

	require.NoError(t, r.Register(Entry{Name: "DUP", Tool: echoTool()}))
	assert.Error(t, r.Register(Entry{Name: "DUP", Tool: echoTool()}))
}

func TestAliasRoutesIdentically(t *testing.T) {
	calls := 0
	tool := Func(func(_ context.Context, args Args) (string, error) {
		calls++
		return fmt.Sprintf("guidance for %s", args.String("query")), nil
	})

	r := NewRegistry()
	require.NoError(t, r.Register(Entry{Name: "GUIDANCE", Signature: "query", Description: "MedlinePlus", Bind: Whole("query"), Tool: tool}))
	require.NoError(t, r.Alias("SEARCH", "GUIDANCE", "Same as GUIDANCE"))

	a, errA := r.Invoke(context.Background(), "GUIDANCE", " diabetes ", Env{})
	b, errB := r.Invoke(context.Background(), "SEARCH", " diabetes ", Env{})
	require.NoError(t, errA)
	require.NoError(t, errB)
	assert.Equal(t, a, b)
	assert.Equal(t, "guidance for diabetes", a)
	assert.Equal(t, 2, calls)

	alias, _ := r.Lookup("SEARCH")
	target, _ := r.Lookup("GUIDANCE")
	require.IsType(t, Func(nil), alias.Tool)
	assert.Equal(t,
		reflect.ValueOf(target.Tool.(Func)).Pointer(),
		reflect.ValueOf(alias.Tool.(Func)).Pointer(),
		"alias must share the target's tool")
	assert.Equal(t, "Same as GUIDANCE", alias.Description)
}

func TestAliasUnknownTarget(t *testing.T) {
	r := NewRegistry()
	assert.Error(t, r.Alias("X", "MISSING", ""))
}

func TestInvokeErrorKinds(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Entry{
		Name: "SAVE_PHYSICIAN",
		Bind: Positional(4, "Name, Specialty, Clinic, Phone", "name", "specialty", "clinic", "phone"),
		Tool: echoTool(),
	}))
	require.NoError(t, r.Register(Entry{
		Name: "BROKEN",
		Tool: Func(func(context.Context, Args) (string, error) { return "", errors.New("upstream 503") }),
	}))
	require.NoError(t, r.Register(Entry{
		Name: "PANICKY",
		Tool: Func(func(context.Context, Args) (string, error) { panic("boom") }),
	}))

	_, err := r.Invoke(context.Background(), "NOPE", "x", Env{})
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, "Tool NOPE not found.", err.Error())

	_, err = r.Invoke(context.Background(), "SAVE_PHYSICIAN", "Dr. House, Diagnostics", Env{})
	assert.Equal(t, KindArgument, KindOf(err))
	assert.Equal(t, "Invalid arguments for SAVE_PHYSICIAN. Expected format: [SAVE_PHYSICIAN: Name, Specialty, Clinic, Phone]. You provided: Dr. House, Diagnostics", err.Error())

	_, err = r.Invoke(context.Background(), "BROKEN", "", Env{})
	assert.Equal(t, KindExecution, KindOf(err))
	assert.Equal(t, "upstream 503", err.Error())

	_, err = r.Invoke(context.Background(), "PANICKY", "", Env{})
	assert.Equal(t, KindExecution, KindOf(err))
	assert.Contains(t, err.Error(), "boom")
}

func TestInvokeDefaultBinder(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Entry{
		Name: "RAW",
		Tool: Func(func(_ context.Context, a Args) (string, error) { return a.String("args"), nil }),
	}))
	out, err := r.Invoke(context.Background(), "RAW", "  hello ", Env{})
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
}

func TestInvokeThreadsEnv(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Entry{
		Name: "GET_PROFILE",
		Bind: UserOnly(),
		Tool: Func(func(_ context.Context, a Args) (string, error) {
			id, _ := a.Int64("user_id")
			return fmt.Sprintf("profile %d", id), nil
		}),
	}))
	out, err := r.Invoke(context.Background(), "GET_PROFILE", "user_id", EnvFrom(domain.ConversationState{UserID: 42}))
	require.NoError(t, err)
	assert.Equal(t, "profile 42", out)
}

func TestNamesAndMenu(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Entry{Name: "GET_PROFILE", Signature: "user_id", Description: "Get profile.", Tool: echoTool()}))
	require.NoError(t, r.Register(Entry{Name: "CHECK_VITALS", Signature: "heart_rate, spo2, blood_pressure", Description: "Assess vitals.", Section: "EMERGENCY TOOLS", Tool: echoTool()}))
	require.NoError(t, r.Register(Entry{Name: "SEARCH", Signature: "query", Description: "Search.", Tool: echoTool()}))

	assert.Equal(t, []string{"GET_PROFILE", "CHECK_VITALS", "SEARCH"}, r.Names())

	want := "- [GET_PROFILE: user_id] -> Get profile.\n" +
		"- [SEARCH: query] -> Search.\n" +
		"\nEMERGENCY TOOLS:\n" +
		"- [CHECK_VITALS: heart_rate, spo2, blood_pressure] -> Assess vitals.\n"
	assert.Equal(t, want, r.Menu())
}

func TestWrapPassesThroughToolErrors(t *testing.T) {
	te := NotFound("X")
	assert.Same(t, te, Wrap("Y", fmt.Errorf("ctx: %w", te)))
	assert.Nil(t, Wrap("Y", nil))
	assert.Equal(t, ErrorKind(0), KindOf(errors.New("plain")))
	assert.Equal(t, "argument", KindArgument.String())
}
