// Package escalation raises critical vitals assessments out of band. It
// listens to tool results on the hook bus, records an emergency event and
// publishes it over MQTT. It never writes back into a conversation.
package escalation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/hooks"
	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/logging"
	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/store"
	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/tools"
)

// HandlerName is the name the escalator registers on the hook bus.
const HandlerName = "escalation"

// Recorder persists emergency events. *store.Records implements it.
type Recorder interface {
	LogEmergency(ctx context.Context, e store.EmergencyEvent) (store.EmergencyEvent, error)
}

// Event is the JSON payload published for each escalation.
type Event struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"userId"`
	ThreadID  string    `json:"threadId,omitempty"`
	Tool      string    `json:"tool"`
	Severity  string    `json:"severity"`
	Findings  []string  `json:"findings"`
	Args      string    `json:"args,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Options configures an Escalator.
type Options struct {
	Recorder    Recorder
	Publisher   Publisher     // nil records events without publishing
	TopicPrefix string        // default "aegis"
	Timeout     time.Duration // per escalation, default DefaultTimeout
	Log         *logging.Logger
}

// Escalator watches vitals assessments and escalates critical ones.
type Escalator struct {
	rec    Recorder
	pub    Publisher
	prefix  string
	timeout time.Duration
	log     *logging.Logger
}

// DefaultTimeout bounds recording plus publishing one escalation.
const DefaultTimeout = 15 * time.Second

// New creates an escalator.
func New(opts Options) *Escalator {
	log := opts.Log
	if log == nil {
		log = logging.Nop()
	}
	prefix := strings.TrimRight(opts.TopicPrefix, "/")
	if prefix == "" {
		prefix = "aegis"
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Escalator{
		rec:     opts.Recorder,
		pub:     opts.Publisher,
		prefix:  prefix,
		timeout: timeout,
		log:     log.Sub("escalation"),
	}
}

// Attach registers the escalator for tool results on m. It runs off the
// turn's path, so a slow database or broker never delays the reply, and
// it outlives the turn's context up to the escalator's timeout.
func (e *Escalator) Attach(m *hooks.Manager) {
	m.OnAsync(hooks.EventToolResult, HandlerName, e.timeout, e.Handle)
}

// Topic returns the emergency topic for a user.
func (e *Escalator) Topic(userID int64) string {
	return fmt.Sprintf("%s/%d/emergency", e.prefix, userID)
}

// watched lists the tools whose output carries a risk line.
var watched = map[string]bool{
	"CHECK_VITALS":       true,
	"EMERGENCY_RESPONSE": true,
}

// Handle is the tool_result hook handler.
func (e *Escalator) Handle(ctx context.Context, p hooks.Payload) error {
	tool := p.String("tool")
	if !watched[tool] {
		return nil
	}
	output := p.String("output")
	risk, ok := tools.RiskOf(output)
	if !ok || risk != tools.RiskCritical {
		return nil
	}

	userID := p.Int64("userId")
	findings := criticalFindings(output)
	ev := store.EmergencyEvent{
		PatientID: userID,
		Kind:      "vitals",
		Severity:  "critical",
		Details:   strings.Join(findings, "; "),
	}
	if e.rec != nil {
		logged, err := e.rec.LogEmergency(ctx, ev)
		if err != nil {
			return fmt.Errorf("recording emergency: %w", err)
		}
		ev = logged
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC().Truncate(time.Second)
	}

	log := e.log.With("tool", tool)
	log.Warn().Int64("user", userID).Str("event", ev.ID).Strs("findings", findings).Msg("critical vitals escalated")

	if e.pub == nil {
		return nil
	}
	payload, err := json.Marshal(Event{
		ID:        ev.ID,
		UserID:    userID,
		ThreadID:  p.String("threadId"),
		Tool:      tool,
		Severity:  ev.Severity,
		Findings:  findings,
		Args:      p.String("args"),
		CreatedAt: ev.CreatedAt,
	})
	if err != nil {
		return err
	}
	return e.pub.Publish(ctx, e.Topic(userID), payload)
}

// criticalFindings extracts the "- CRITICAL: ..." lines of an assessment.
func criticalFindings(output string) []string {
	var out []string
	for line := range strings.Lines(output) {
		if f, ok := strings.CutPrefix(strings.TrimSpace(line), "- CRITICAL: "); ok {
			out = append(out, f)
		}
	}
	return out
}
