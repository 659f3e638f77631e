package domain

import "time"

// Role identifies the author of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single entry in a conversation history. Messages are values
// and are never modified after they are appended.
type Message struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// System creates a runtime-injected message (instructions or tool output).
func System(text string) Message {
	return Message{Role: RoleSystem, Text: text, Timestamp: time.Now()}
}

// User creates a message authored by the patient.
func User(text string) Message {
	return Message{Role: RoleUser, Text: text, Timestamp: time.Now()}
}

// Assistant creates a message produced by the language model.
func Assistant(text string) Message {
	return Message{Role: RoleAssistant, Text: text, Timestamp: time.Now()}
}

// IsSystem reports whether the message was injected by the runtime.
func (m Message) IsSystem() bool { return m.Role == RoleSystem }

// IsUser reports whether the message was authored by the patient.
func (m Message) IsUser() bool { return m.Role == RoleUser }

// IsAssistant reports whether the message was produced by the model.
func (m Message) IsAssistant() bool { return m.Role == RoleAssistant }

// ToolCall is a tool request parsed out of assistant text.
type ToolCall struct {
	Name    string `json:"name"`
	RawArgs string `json:"rawArgs"`
}
