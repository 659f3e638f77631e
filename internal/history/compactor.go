// Package history implements the bounded conversation window that every
// new message passes through before it reaches the agent's history.
package history

import (
	"fmt"
	"strings"

	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/domain"
	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/logging"
)

const markerFormat = "[Prior conversation: %d earlier messages summarized. Recent context preserved.]"

// WindowConfig bounds the conversation history.
type WindowConfig struct {
	// MaxWindowSize is the length above which compaction runs.
	MaxWindowSize int
	// PreserveRecent is the minimum conversational tail kept, even when
	// that pushes the result past MaxWindowSize.
	PreserveRecent int
	// MaxRetainedSystem caps the keyword-matching system messages kept.
	MaxRetainedSystem int
	// Keywords mark system messages that survive compaction. Matching is
	// case-insensitive substring matching.
	Keywords []string
}

// DefaultWindow returns the standard window: 20 messages, 6 preserved,
// at most 3 safety-relevant system messages.
func DefaultWindow() WindowConfig {
	return WindowConfig{
		MaxWindowSize:     20,
		PreserveRecent:    6,
		MaxRetainedSystem: 3,
		Keywords: []string{
			"patient context",
			"medical record",
			"emergency",
			"critical",
			"vital",
			"alert",
			"diagnosis",
			"medication",
		},
	}
}

// Compactor merges new messages into a history and evicts the oldest
// conversational turns once the window overflows. It holds no mutable
// state and is safe for concurrent use.
type Compactor struct {
	cfg      WindowConfig
	keywords []string
	log      *logging.Logger
}

// NewCompactor creates a compactor. Non-positive sizes fall back to the
// defaults.
func NewCompactor(cfg WindowConfig, log *logging.Logger) *Compactor {
	def := DefaultWindow()
	if cfg.MaxWindowSize <= 0 {
		cfg.MaxWindowSize = def.MaxWindowSize
	}
	if cfg.PreserveRecent <= 0 {
		cfg.PreserveRecent = def.PreserveRecent
	}
	if cfg.MaxRetainedSystem < 0 {
		cfg.MaxRetainedSystem = def.MaxRetainedSystem
	}
	if cfg.Keywords == nil {
		cfg.Keywords = def.Keywords
	}
	if log == nil {
		log = logging.Nop()
	}

	kw := make([]string, 0, len(cfg.Keywords))
	for _, k := range cfg.Keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			kw = append(kw, k)
		}
	}
	return &Compactor{cfg: cfg, keywords: kw, log: log.Sub("history")}
}

// Config returns the effective window configuration.
func (c *Compactor) Config() WindowConfig { return c.cfg }

// Retains reports whether m is a system message protected by the keyword
// allowlist.
func (c *Compactor) Retains(m domain.Message) bool {
	if !m.IsSystem() {
		return false
	}
	text := strings.ToLower(m.Text)
	for _, k := range c.keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

// Merge appends incoming to existing and applies the sliding window. The
// returned slice never aliases either argument.
func (c *Compactor) Merge(existing, incoming []domain.Message) []domain.Message {
	merged := make([]domain.Message, 0, len(existing)+len(incoming))
	merged = append(merged, existing...)
	merged = append(merged, incoming...)

	if len(merged) <= c.cfg.MaxWindowSize {
		return merged
	}
	return c.compact(merged)
}

func (c *Compactor) compact(msgs []domain.Message) []domain.Message {
	var retained, conversation []domain.Message
	matched := 0
	for _, m := range msgs {
		if c.Retains(m) {
			matched++
			if len(retained) < c.cfg.MaxRetainedSystem {
				retained = append(retained, m)
			}
			continue
		}
		conversation = append(conversation, m)
	}

	available := c.cfg.MaxWindowSize - len(retained) - 1
	if available < c.cfg.PreserveRecent {
		available = c.cfg.PreserveRecent
	}

	tail := conversation
	dropped := 0
	if len(conversation) > available {
		tail = conversation[len(conversation)-available:]
		dropped = len(conversation) - len(tail)
	}

	out := make([]domain.Message, 0, len(retained)+1+len(tail))
	out = append(out, retained...)
	if dropped > 0 {
		out = append(out, Marker(dropped))
	}
	out = append(out, tail...)

	c.log.Debug().
		Int("before", len(msgs)).
		Int("after", len(out)).
		Int("retained_system", len(retained)).
		Int("discarded_system", matched-len(retained)).
		Int("dropped", dropped).
		Msg("history compacted")
	return out
}

// Marker builds the system message that stands in for dropped turns.
func Marker(dropped int) domain.Message {
	return domain.System(fmt.Sprintf(markerFormat, dropped))
}

// IsMarker reports whether m is a dropped-count marker.
func IsMarker(m domain.Message) bool {
	return m.IsSystem() &&
		strings.HasPrefix(m.Text, "[Prior conversation: ") &&
		strings.HasSuffix(m.Text, " earlier messages summarized. Recent context preserved.]")
}
