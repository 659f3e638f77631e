package capability

import (
	"context"
	"fmt"
	"strings"
)

// Entry is one routable tool name.
type Entry struct {
	Name        string
	Signature   string // argument shape shown in the menu, e.g. "query"
	Description string
	Section     string // menu heading; empty means the general section
	Bind        Binder
	Tool        Tool
}

// Usage renders the entry as a capability menu line.
func (e Entry) Usage() string {
	return fmt.Sprintf("[%s: %s] -> %s", e.Name, e.Signature, e.Description)
}

// Registry maps tool names to entries. All registration happens at
// startup; lookups afterwards are safe from concurrent conversations.
type Registry struct {
	entries map[string]Entry
	order   []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// Register adds an entry. Names must be unique uppercase identifiers.
func (r *Registry) Register(e Entry) error {
	if !validName(e.Name) {
		return fmt.Errorf("invalid tool name %q", e.Name)
	}
	if e.Tool == nil {
		return fmt.Errorf("tool %s has no implementation", e.Name)
	}
	if _, exists := r.entries[e.Name]; exists {
		return fmt.Errorf("tool %s already registered", e.Name)
	}
	if e.Bind == nil {
		e.Bind = Whole("args")
	}
	r.entries[e.Name] = e
	r.order = append(r.order, e.Name)
	return nil
}

// Alias registers alias as another name for target. The alias shares the
// target's tool instance and binder, so both names route identically.
// An empty description reuses the target's.
func (r *Registry) Alias(alias, target, description string) error {
	e, ok := r.entries[target]
	if !ok {
		return fmt.Errorf("alias %s: unknown target %s", alias, target)
	}
	e.Name = alias
	if description != "" {
		e.Description = description
	}
	return r.Register(e)
}

// Lookup returns the entry registered under name.
func (r *Registry) Lookup(name string) (Entry, bool) {
	e, ok := r.entries[name]
	return e, ok
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.entries[name]
	return ok
}

// Len returns the number of registered names, aliases included.
func (r *Registry) Len() int { return len(r.order) }

// Names returns registered names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Entries returns entries in registration order.
func (r *Registry) Entries() []Entry {
	out := make([]Entry, 0, len(r.order))
	for _, n := range r.order {
		out = append(out, r.entries[n])
	}
	return out
}

// Invoke binds raw against the named tool's argument rule and runs it.
// Every failure, including a panic inside the tool, comes back as a
// *ToolError.
func (r *Registry) Invoke(ctx context.Context, name, raw string, env Env) (out string, err error) {
	e, ok := r.entries[name]
	if !ok {
		return "", NotFound(name)
	}

	defer func() {
		if p := recover(); p != nil {
			out, err = "", &ToolError{Tool: name, Kind: KindExecution, Err: fmt.Errorf("panic: %v", p)}
		}
	}()

	args, err := e.Bind(raw, env)
	if err != nil {
		return "", Wrap(name, err)
	}
	res, err := e.Tool.Invoke(ctx, args)
	if err != nil {
		return "", Wrap(name, err)
	}
	return res, nil
}

// Menu renders the capability menu grouped by section, in registration
// order within each section.
func (r *Registry) Menu() string {
	var sections []string
	bySection := make(map[string][]Entry)
	for _, e := range r.Entries() {
		if _, seen := bySection[e.Section]; !seen {
			sections = append(sections, e.Section)
		}
		bySection[e.Section] = append(bySection[e.Section], e)
	}

	var b strings.Builder
	for i, s := range sections {
		if i > 0 {
			b.WriteString("\n")
		}
		if s != "" {
			b.WriteString(s + ":\n")
		}
		for _, e := range bySection[s] {
			b.WriteString("- " + e.Usage() + "\n")
		}
	}
	return b.String()
}

func validName(name string) bool {
	if name == "" {
		return false
	}
	for _, c := range name {
		if (c < 'A' || c > 'Z') && c != '_' {
			return false
		}
	}
	return true
}
