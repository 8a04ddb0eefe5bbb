package agent

import "strings"

// conclusionSentinel is the fixed-format line the system prompt asks the
// model to emit when it finds something worth keeping.
const conclusionSentinel = `Conclusão salva:`

// ParseConclusion scans free text for the sentinel and extracts the quoted
// conclusion. Grammar: sentinel-label ':' whitespace* '"' text '"'. The
// parse is best-effort: no sentinel, no opening quote, or no closing quote
// all yield ok=false with no side effects.
func ParseConclusion(text string) (string, bool) {
	idx := strings.Index(text, conclusionSentinel)
	if idx < 0 {
		return "", false
	}

	rest := strings.TrimLeft(text[idx+len(conclusionSentinel):], " \t")
	if !strings.HasPrefix(rest, `"`) {
		return "", false
	}
	rest = rest[1:]

	end := strings.Index(rest, `"`)
	if end < 0 {
		return "", false
	}

	conclusion := rest[:end]
	if conclusion == "" {
		return "", false
	}
	return conclusion, true
}
