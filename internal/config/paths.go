package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const defaultBaseDir = ".aegis"

// Paths holds resolved filesystem paths for AEGIS data.
type Paths struct {
	Base        string // ~/.aegis
	Config      string // ~/.aegis/config.yaml
	Credentials string // ~/.aegis/credentials
	Logs        string // ~/.aegis/logs
	Data        string // ~/.aegis/data
	Database    string // ~/.aegis/data/aegis.db
}

// ResolvePaths computes all standard paths from the home directory.
// If AEGIS_HOME is set, it overrides the default base directory.
func ResolvePaths() (Paths, error) {
	base := os.Getenv("AEGIS_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Paths{}, err
		}
		base = filepath.Join(home, defaultBaseDir)
	}

	data := filepath.Join(base, "data")
	return Paths{
		Base:        base,
		Config:      filepath.Join(base, "config.yaml"),
		Credentials: filepath.Join(base, "credentials"),
		Logs:        filepath.Join(base, "logs"),
		Data:        data,
		Database:    filepath.Join(data, "aegis.db"),
	}, nil
}

// EnsureDirs creates all standard directories if they don't exist.
func (p Paths) EnsureDirs() error {
	dirs := []string{p.Base, p.Credentials, p.Logs, p.Data}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o700); err != nil {
			return err
		}
	}
	return nil
}

// DatabasePath returns the configured database path, falling back to
// the default location under the data directory.
func (p Paths) DatabasePath(cfg Config) string {
	if cfg.Database.Path != "" {
		return cfg.Database.Path
	}
	return p.Database
}

// blockedKeys are keys that must never appear in config paths.
var blockedKeys = map[string]bool{
	"__proto__":   true,
	"prototype":   true,
	"constructor": true,
}

// ParseConfigPath splits a dot-separated config path into segments.
// Returns an error if any segment is blocked or empty.
func ParseConfigPath(raw string) ([]string, error) {
	if raw == "" {
		return nil, &ConfigError{Message: "empty config path"}
	}
	parts := strings.Split(raw, ".")
	for _, p := range parts {
		if p == "" {
			return nil, &ConfigError{Message: "config path contains empty segment"}
		}
		if blockedKeys[p] {
			return nil, &ConfigError{Message: "config path contains blocked key: " + p}
		}
	}
	return parts, nil
}

// walk descends root along all but the last path segment and returns the
// map holding the final key. With create set, missing segments become empty
// maps. A non-map value in the way is reported as an error.
func walk(root map[string]any, path []string, create bool) (map[string]any, error) {
	current := root
	for i, key := range path[:len(path)-1] {
		next, ok := current[key]
		if !ok {
			if !create {
				return nil, nil
			}
			m := map[string]any{}
			current[key] = m
			current = m
			continue
		}
		m, ok := next.(map[string]any)
		if !ok {
			return nil, &ConfigError{Message: fmt.Sprintf("%s is a %T, not a section", strings.Join(path[:i+1], "."), next)}
		}
		current = m
	}
	return current, nil
}

// GetValueAtPath traverses a nested map using the given path segments.
func GetValueAtPath(root map[string]any, path []string) (any, bool) {
	if len(path) == 0 {
		return root, true
	}
	parent, err := walk(root, path, false)
	if err != nil || parent == nil {
		return nil, false
	}
	v, ok := parent[path[len(path)-1]]
	return v, ok
}

// SetValueAtPath sets a value in a nested map, creating intermediate sections
// as needed. It refuses to replace a scalar with a section.
func SetValueAtPath(root map[string]any, path []string, value any) error {
	parent, err := walk(root, path, true)
	if err != nil {
		return err
	}
	parent[path[len(path)-1]] = value
	return nil
}

// UnsetValueAtPath removes a value at the given path. Returns true if removed.
func UnsetValueAtPath(root map[string]any, path []string) bool {
	parent, err := walk(root, path, false)
	if err != nil || parent == nil {
		return false
	}
	last := path[len(path)-1]
	if _, ok := parent[last]; !ok {
		return false
	}
	delete(parent, last)
	return true
}

// secretKeys name config leaves that hold credentials.
var secretKeys = map[string]bool{
	"apikey":     true,
	"authtoken":  true,
	"apitoken":   true,
	"password":   true,
	"accountsid": true,
}

// Redact returns a copy of raw with credential values masked, for display.
func Redact(raw map[string]any) map[string]any {
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case map[string]any:
			out[k] = Redact(val)
		case string:
			if secretKeys[strings.ToLower(k)] && val != "" {
				out[k] = "********"
			} else {
				out[k] = val
			}
		default:
			out[k] = v
		}
	}
	return out
}
