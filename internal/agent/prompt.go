package agent

import (
	"fmt"
	"strings"

	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/domain"
)

// ToolResultMarker tags System messages that carry a successful tool result.
const ToolResultMarker = "Tool Result"

// PromptConfig controls prompt rendering.
type PromptConfig struct {
	AssistantName  string
	Menu           string
	PatientContext string
	MedicalRecord  string
	History        []domain.Message
}

// HasToolResult reports whether any message in history carries a tool result.
func HasToolResult(history []domain.Message) bool {
	for _, m := range history {
		if m.IsSystem() && strings.Contains(m.Text, ToolResultMarker) {
			return true
		}
	}
	return false
}

// RenderHistory linearizes history with role labels. Tool results are fenced
// with explicit delimiters so the model cannot miss them.
func RenderHistory(assistantName string, history []domain.Message) string {
	var b strings.Builder
	for _, m := range history {
		switch m.Role {
		case domain.RoleUser:
			fmt.Fprintf(&b, "User: %s\n", m.Text)
		case domain.RoleAssistant:
			fmt.Fprintf(&b, "%s: %s\n", assistantName, m.Text)
		default:
			if strings.Contains(m.Text, ToolResultMarker) {
				fmt.Fprintf(&b, "\n>>> TOOL OUTPUT <<<\n%s\n>>> END TOOL OUTPUT <<<\n\n", m.Text)
			} else {
				fmt.Fprintf(&b, "System: %s\n", m.Text)
			}
		}
	}
	return b.String()
}

// BuildPrompt renders the single completion prompt for a reasoning step.
func BuildPrompt(cfg PromptConfig) string {
	name := cfg.AssistantName
	if name == "" {
		name = "Sentinel"
	}

	var b strings.Builder
	b.WriteString("<system>\n")
	fmt.Fprintf(&b, "You are %s, an AI medical assistant.\n\n", name)
	b.WriteString("GOAL: Use the patient's context and medical record to give safe, actionable advice.\n\n")

	b.WriteString("PATIENT CONTEXT:\n")
	b.WriteString(orNone(cfg.PatientContext))
	b.WriteString("\n\nMEDICAL RECORD:\n")
	b.WriteString(orNone(cfg.MedicalRecord))

	b.WriteString("\n\nAVAILABLE TOOLS:\n")
	b.WriteString(cfg.Menu)

	b.WriteString("\nHISTORY:\n")
	b.WriteString(RenderHistory(name, cfg.History))

	b.WriteString("\nINSTRUCTIONS:\n")
	b.WriteString("1. Answer simple greetings directly.\n")
	b.WriteString("2. To use a tool, output only the tool command on that turn, e.g. [READ_HISTORY: medication]. Several commands may appear in one reply.\n")
	b.WriteString("3. Do not ask permission before using a tool when the patient asks about their health data.\n")
	b.WriteString("4. When the history contains \">>> TOOL OUTPUT <<<\", answer from that data. Reproduce location results (addresses, phone numbers, links) in full.\n")
	b.WriteString("5. Never mention that a tool was used, and never suggest tool commands in a final answer.\n")
	b.WriteString("6. For critical symptoms or vitals, use the emergency tools immediately.\n")
	b.WriteString("7. Give a standalone answer to the patient's most recent message.\n")
	b.WriteString("</system>\n")
	fmt.Fprintf(&b, "%s:", name)

	return b.String()
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(none provided)"
	}
	return s
}
