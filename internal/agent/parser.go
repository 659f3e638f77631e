package agent

import (
	"regexp"
	"strings"

	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/domain"
)

// Parser extracts tool requests from assistant text. The loop uses Requests
// for the continue/stop decision and the invoker uses Parse for dispatch.
type Parser interface {
	Parse(text string) []domain.ToolCall
	Requests(text string, known Catalog) bool
}

// Catalog lists the tool names a parser may treat as real requests.
type Catalog interface {
	Names() []string
}

// bracketCallRe matches [NAME: args] on a single line.
var bracketCallRe = regexp.MustCompile(`\[([A-Z_]+):(.*?)\]`)

// fencedCallRe matches a fenced block whose body starts with NAME: args.
// Some models emit this instead of the bracket form.
var fencedCallRe = regexp.MustCompile("(?s)```(?:tool_code)?\\s*\\n?\\s*([A-Z_]+):\\s*(.+?)\\s*```")

// fencedBlockRe matches any fenced code block.
var fencedBlockRe = regexp.MustCompile("(?s)```.*?```")

// BracketParser implements the [NAME: args] grammar with a single-match
// fenced-block fallback.
type BracketParser struct{}

// Parse returns every bracket call in order. When there are none it returns
// at most one call from the fenced form.
func (BracketParser) Parse(text string) []domain.ToolCall {
	var calls []domain.ToolCall
	for _, m := range bracketCallRe.FindAllStringSubmatch(text, -1) {
		calls = append(calls, domain.ToolCall{
			Name:    strings.TrimSpace(m[1]),
			RawArgs: strings.TrimSpace(m[2]),
		})
	}
	if len(calls) > 0 {
		return calls
	}

	if m := fencedCallRe.FindStringSubmatch(text); m != nil {
		return []domain.ToolCall{{
			Name:    strings.TrimSpace(m[1]),
			RawArgs: strings.TrimSpace(m[2]),
		}}
	}
	return nil
}

// Requests reports whether text asks for a known tool: either "[NAME:" for a
// known NAME, or a fenced block containing "NAME:". Prose outside a fence
// that merely mentions "NAME:" does not count.
func (BracketParser) Requests(text string, known Catalog) bool {
	names := known.Names()
	for _, name := range names {
		if strings.Contains(text, "["+name+":") {
			return true
		}
	}

	if !strings.Contains(text, "```") {
		return false
	}
	for _, block := range fencedBlockRe.FindAllString(text, -1) {
		for _, name := range names {
			if strings.Contains(block, name+":") {
				return true
			}
		}
	}
	return false
}
