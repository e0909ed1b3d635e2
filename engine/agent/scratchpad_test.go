package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScratchpadUnit_IsFinal(t *testing.T) {
	t.Run("Should be final without an action", func(t *testing.T) {
		u := ScratchpadUnit{Thought: "done"}
		assert.True(t, u.IsFinal())
	})

	t.Run("Should be final for Final Answer action names", func(t *testing.T) {
		u := ScratchpadUnit{Action: &Action{Name: "Final Answer"}}
		assert.True(t, u.IsFinal())
		u = ScratchpadUnit{Action: &Action{Name: "final_answer"}}
		assert.True(t, u.IsFinal())
		u = ScratchpadUnit{Action: &Action{Name: "FINAL-ANSWER"}}
		assert.True(t, u.IsFinal())
	})

	t.Run("Should not be final for tool actions", func(t *testing.T) {
		u := ScratchpadUnit{Action: &Action{Name: "Search"}}
		assert.False(t, u.IsFinal())
		u = ScratchpadUnit{Action: &Action{Name: "final_summary"}}
		assert.False(t, u.IsFinal())
	})
}

func TestSerializeScratchpad(t *testing.T) {
	t.Run("Should render iterations in ReAct transcript order", func(t *testing.T) {
		units := []ScratchpadUnit{
			{
				Thought:     "need the weather",
				ActionStr:   `{"action": "search", "action_input": "weather"}`,
				Observation: "sunny",
			},
			{Thought: "I know the answer", AgentResponse: "It is sunny."},
		}
		got := serializeScratchpad(units)
		assert.Equal(t, "Thought: need the weather\n"+
			"Action: {\"action\": \"search\", \"action_input\": \"weather\"}\n"+
			"Observation: sunny\n"+
			"Thought: I know the answer\n"+
			"Final Answer: It is sunny.\n", got)
	})

	t.Run("Should render nothing for an empty scratchpad", func(t *testing.T) {
		assert.Empty(t, serializeScratchpad(nil))
	})
}
