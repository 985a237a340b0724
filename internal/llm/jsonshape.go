package llm

import "encoding/json"

// replyShape is the JSON contract a backend must produce for GenerateReply
// (spec.md §4.5): a reply string, the chosen next node, a scoring update,
// and a red-flag list. All fields are optional from the backend's point of
// view — the adapter fills in safe zero values when omitted.
type replyShape struct {
	Reply         string   `json:"reply"`
	NextNodeID    string   `json:"next_node_id"`
	ScoringUpdate *scoringUpdateShape `json:"scoring_update"`
	RedFlags      []string `json:"red_flags"`
}

type scoringUpdateShape struct {
	Block string  `json:"block"`
	Delta float64 `json:"delta"`
	Score float64 `json:"score"`
}

// parseReplyShape parses raw directly, then, if that fails, falls back to
// extracting the largest brace-balanced substring and parsing that. LLM
// backends occasionally wrap JSON in prose or markdown fences even when
// asked for a bare object; this recovers the payload instead of discarding
// an otherwise-usable answer. Grounded on internal/llm/sanitize.go's
// tree-walking approach, repurposed here from media redaction to JSON
// substring recovery.
func parseReplyShape(raw json.RawMessage) (replyShape, bool) {
	var shape replyShape
	if err := json.Unmarshal(raw, &shape); err == nil {
		return shape, true
	}
	if sub, ok := largestBraceBalancedSubstring(string(raw)); ok {
		if err := json.Unmarshal([]byte(sub), &shape); err == nil {
			return shape, true
		}
	}
	return replyShape{}, false
}

// largestBraceBalancedSubstring scans s left to right and returns the
// longest substring beginning at a '{' that is brace-balanced (respecting
// quoted strings and escapes), or false if none is found.
func largestBraceBalancedSubstring(s string) (string, bool) {
	best := ""
	runes := []rune(s)
	for start := 0; start < len(runes); start++ {
		if runes[start] != '{' {
			continue
		}
		depth := 0
		inString := false
		escaped := false
		for end := start; end < len(runes); end++ {
			r := runes[end]
			switch {
			case escaped:
				escaped = false
			case r == '\\' && inString:
				escaped = true
			case r == '"':
				inString = !inString
			case inString:
				// inside a string, ignore braces
			case r == '{':
				depth++
			case r == '}':
				depth--
				if depth == 0 {
					candidate := string(runes[start : end+1])
					if len(candidate) > len(best) {
						best = candidate
					}
				}
			}
		}
	}
	return best, best != ""
}
