package agent

import "strings"

// Action is one parsed tool invocation request.
type Action struct {
	Name  string
	Input string
}

// ScratchpadUnit records one reasoning-loop iteration. Units are append-only:
// once appended they are serialized into the next prompt turn and never
// mutated.
type ScratchpadUnit struct {
	Thought       string
	Action        *Action
	ActionStr     string
	Observation   string
	AgentResponse string
}

// IsFinal is the loop's termination predicate: a unit is final when it has no
// action, or when its action name contains both "final" and "answer"
// case-insensitively (models emit "Final Answer", "final_answer", etc.).
func (u *ScratchpadUnit) IsFinal() bool {
	if u.Action == nil {
		return true
	}
	name := strings.ToLower(u.Action.Name)
	return strings.Contains(name, "final") && strings.Contains(name, "answer")
}

// serializeScratchpad renders the iteration history for the next prompt turn.
func serializeScratchpad(units []ScratchpadUnit) string {
	var b strings.Builder
	for _, u := range units {
		if u.Thought != "" {
			b.WriteString("Thought: ")
			b.WriteString(u.Thought)
			b.WriteString("\n")
		}
		if u.ActionStr != "" {
			b.WriteString("Action: ")
			b.WriteString(u.ActionStr)
			b.WriteString("\n")
		}
		if u.Observation != "" {
			b.WriteString("Observation: ")
			b.WriteString(u.Observation)
			b.WriteString("\n")
		}
		if u.AgentResponse != "" {
			b.WriteString("Final Answer: ")
			b.WriteString(u.AgentResponse)
			b.WriteString("\n")
		}
	}
	return b.String()
}
