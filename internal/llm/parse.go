package llm

import (
	"errors"
	"strings"
)

// ErrUnparseable means the model answered but not in the requested
// Decision/Reason format, so nothing actionable can be extracted.
var ErrUnparseable = errors.New("llm: response does not follow the Decision/Reason format")

// ParseAdvice extracts the decision and reason lines from a raw model
// response. The decision line is mandatory; a missing reason degrades to
// a placeholder rather than failing the whole call. The reason may span
// multiple lines, ending at the next labelled line or the end of text.
func ParseAdvice(raw string) (decision, reason string, err error) {
	lines := strings.Split(strings.TrimSpace(raw), "\n")

	var reasonLines []string
	inReason := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case hasLabel(trimmed, "Decision:"):
			decision = strings.TrimSpace(trimValue(trimmed, "Decision:"))
			inReason = false
		case hasLabel(trimmed, "Reason:"):
			reasonLines = []string{strings.TrimSpace(trimValue(trimmed, "Reason:"))}
			inReason = true
		case inReason && trimmed != "":
			reasonLines = append(reasonLines, trimmed)
		}
	}

	if decision == "" {
		return "", "", ErrUnparseable
	}

	reason = strings.TrimSpace(strings.Join(reasonLines, " "))
	if reason == "" {
		reason = "no reason given"
	}
	return decision, reason, nil
}

func hasLabel(line, label string) bool {
	return len(line) >= len(label) && strings.EqualFold(line[:len(label)], label)
}

func trimValue(line, label string) string {
	return line[len(label):]
}
