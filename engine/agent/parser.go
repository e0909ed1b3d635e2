package agent

import (
	"encoding/json"
	"strings"
)

const (
	finalAnswerMarker = "Final Answer:"
	actionMarker      = "Action:"
	thoughtMarker     = "Thought:"
)

// parsedReply is the structured form of one model reply: either an action to
// execute or a final answer.
type parsedReply struct {
	Thought     string
	Action      *Action
	ActionStr   string
	FinalAnswer string
}

type actionPayload struct {
	Action      string          `json:"action"`
	ActionInput json.RawMessage `json:"action_input"`
}

// parseReply extracts the thought, the action JSON, or the final answer from
// raw model output. Replies that fit neither shape are treated as a final
// answer so malformed output degrades to a direct response instead of an
// error.
func parseReply(text string) parsedReply {
	out := parsedReply{Thought: extractThought(text)}
	if idx := strings.Index(text, finalAnswerMarker); idx >= 0 {
		out.FinalAnswer = strings.TrimSpace(text[idx+len(finalAnswerMarker):])
		return out
	}
	if actionStr, action, ok := extractAction(text); ok {
		out.Action = action
		out.ActionStr = actionStr
		return out
	}
	out.FinalAnswer = strings.TrimSpace(text)
	return out
}

func extractThought(text string) string {
	idx := strings.Index(text, thoughtMarker)
	if idx < 0 {
		return ""
	}
	rest := text[idx+len(thoughtMarker):]
	for _, stop := range []string{actionMarker, finalAnswerMarker} {
		if cut := strings.Index(rest, stop); cut >= 0 {
			rest = rest[:cut]
		}
	}
	return strings.TrimSpace(rest)
}

func extractAction(text string) (string, *Action, bool) {
	idx := strings.Index(text, actionMarker)
	if idx < 0 {
		return "", nil, false
	}
	rest := strings.TrimSpace(text[idx+len(actionMarker):])
	rest = stripCodeFence(rest)
	jsonStr, ok := extractJSONObject(rest)
	if !ok {
		return "", nil, false
	}
	var payload actionPayload
	if err := json.Unmarshal([]byte(jsonStr), &payload); err != nil || payload.Action == "" {
		return "", nil, false
	}
	input := strings.TrimSpace(string(payload.ActionInput))
	input = strings.Trim(input, `"`)
	return jsonStr, &Action{Name: payload.Action, Input: input}, true
}

func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	if end := strings.Index(text, "```"); end >= 0 {
		text = text[:end]
	}
	return strings.TrimSpace(text)
}

// extractJSONObject returns the first balanced JSON object in text.
func extractJSONObject(text string) (string, bool) {
	start := strings.Index(text, "{")
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}
