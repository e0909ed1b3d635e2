package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/genflow/genflow/engine/core"
	"github.com/genflow/genflow/engine/event"
	llmadapter "github.com/genflow/genflow/engine/llm/adapter"
	"github.com/genflow/genflow/engine/queue"
	"github.com/genflow/genflow/pkg/logger"
	"github.com/looplab/fsm"
	"github.com/sethvargo/go-retry"
)

// Reasoning loop states.
const (
	StateRunning            = "running"
	StateAwaitingToolResult = "awaiting_tool_result"
	StateFinal              = "final"
)

const (
	eventActionParsed = "action_parsed"
	eventObservation  = "observation_recorded"
	eventFinalAnswer  = "final_answer"
)

const defaultMaxIterations = 5

// Tool describes one tool offered to the reasoning loop.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ToolInvoker is the tool/retrieval execution boundary.
type ToolInvoker interface {
	Invoke(ctx context.Context, name string, input string) (string, error)
}

// Config parameterizes one reasoning-loop invocation.
type Config struct {
	Instruction   string
	Query         string
	History       []llmadapter.Message
	Tools         []Tool
	Style         PromptStyle
	MaxIterations int
	Temperature   float64
	MaxTokens     int
	RetryAttempts uint64
}

// CotRunner is the chain-of-thought reasoning loop. It is the principal
// producer of events for agent-mode apps: every iteration's
// thought/action/observation is published as it happens so the pipeline can
// stream reasoning incrementally.
type CotRunner struct {
	client     llmadapter.LLMClient
	tools      ToolInvoker
	qm         *queue.Manager
	cfg        Config
	scratchpad []ScratchpadUnit
	usage      event.Usage
	machine    *fsm.FSM
}

func NewCotRunner(client llmadapter.LLMClient, tools ToolInvoker, qm *queue.Manager, cfg Config) *CotRunner {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = defaultMaxIterations
	}
	return &CotRunner{
		client: client,
		tools:  tools,
		qm:     qm,
		cfg:    cfg,
		machine: fsm.NewFSM(
			StateRunning,
			fsm.Events{
				{Name: eventActionParsed, Src: []string{StateRunning}, Dst: StateAwaitingToolResult},
				{Name: eventObservation, Src: []string{StateAwaitingToolResult}, Dst: StateRunning},
				{Name: eventFinalAnswer, Src: []string{StateRunning}, Dst: StateFinal},
			},
			fsm.Callbacks{},
		),
	}
}

// Scratchpad exposes the append-only iteration history.
func (r *CotRunner) Scratchpad() []ScratchpadUnit {
	return r.scratchpad
}

// State returns the loop's current state.
func (r *CotRunner) State() string {
	return r.machine.Current()
}

// Run drives the loop to a final answer, publishing events along the way and
// closing with a terminal MessageEnd. Cancellation and provider failures
// surface as errors for the producer boundary to handle.
func (r *CotRunner) Run(ctx context.Context) (string, error) {
	log := logger.FromContext(ctx).With("task_id", r.qm.TaskID())
	renderer := rendererFor(r.cfg.Style)
	for position := 1; position <= r.cfg.MaxIterations; position++ {
		resp, err := r.invokeModel(ctx, renderer.Render(&r.cfg, r.scratchpad))
		if err != nil {
			return "", err
		}
		r.usage.Add(resp.Usage)
		reply := parseReply(resp.Content)
		unit := ScratchpadUnit{
			Thought:       reply.Thought,
			Action:        reply.Action,
			ActionStr:     reply.ActionStr,
			AgentResponse: reply.FinalAnswer,
		}
		if unit.IsFinal() {
			answer := reply.FinalAnswer
			if answer == "" {
				answer = reply.Thought
			}
			return answer, r.finish(ctx, position, reply.Thought, answer)
		}
		if err := r.machine.Event(ctx, eventActionParsed); err != nil {
			return "", err
		}
		unit.Observation = r.invokeTool(ctx, unit.Action)
		if err := r.machine.Event(ctx, eventObservation); err != nil {
			return "", err
		}
		r.scratchpad = append(r.scratchpad, unit)
		if err := r.publishThought(ctx, position, unit); err != nil {
			return "", err
		}
		if err := r.publishToolResult(ctx, unit); err != nil {
			return "", err
		}
	}
	// Iteration budget exhausted: force a synthetic final from the last
	// partial result instead of running another iteration.
	log.Warn("reasoning loop hit max iterations", "max_iterations", r.cfg.MaxIterations)
	answer := r.lastPartialAnswer()
	return answer, r.finish(ctx, r.cfg.MaxIterations, "", answer)
}

func (r *CotRunner) invokeModel(ctx context.Context, req *llmadapter.LLMRequest) (*llmadapter.LLMResponse, error) {
	attempts := r.cfg.RetryAttempts
	if attempts == 0 {
		attempts = 2
	}
	backoff := retry.WithMaxRetries(attempts, retry.NewExponential(500*time.Millisecond))
	var resp *llmadapter.LLMResponse
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var callErr error
		resp, callErr = r.client.GenerateContent(ctx, req)
		if callErr != nil && llmadapter.IsRetryable(callErr) {
			return retry.RetryableError(callErr)
		}
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// invokeTool runs the named tool and records failures as observations so the
// model can recover on the next iteration.
func (r *CotRunner) invokeTool(ctx context.Context, action *Action) string {
	observation, err := r.tools.Invoke(ctx, action.Name, action.Input)
	if err != nil {
		logger.FromContext(ctx).Warn("tool invocation failed",
			"tool", action.Name, "error", err)
		return fmt.Sprintf("tool %s failed: %v", action.Name, err)
	}
	return observation
}

func (r *CotRunner) publishThought(ctx context.Context, position int, unit ScratchpadUnit) error {
	thought := event.AgentThought{
		ID:          core.MustNewID(),
		Position:    position,
		Thought:     unit.Thought,
		Observation: unit.Observation,
	}
	if unit.Action != nil {
		thought.Action = unit.Action.Name
		thought.ActionInput = unit.Action.Input
	}
	return r.qm.Publish(ctx, thought, queue.OriginApplicationManager)
}

func (r *CotRunner) publishToolResult(ctx context.Context, unit ScratchpadUnit) error {
	return r.qm.Publish(ctx, event.ToolInvoked{
		Tool:        unit.Action.Name,
		Input:       unit.Action.Input,
		Observation: unit.Observation,
	}, queue.OriginApplicationManager)
}

// finish transitions to the final state and publishes the closing events:
// the final thought, the answer text, and the terminal MessageEnd with
// accumulated usage.
func (r *CotRunner) finish(ctx context.Context, position int, thought, answer string) error {
	if err := r.machine.Event(ctx, eventFinalAnswer); err != nil {
		return err
	}
	r.scratchpad = append(r.scratchpad, ScratchpadUnit{Thought: thought, AgentResponse: answer})
	if thought != "" {
		err := r.qm.Publish(ctx, event.AgentThought{
			ID:       core.MustNewID(),
			Position: position,
			Thought:  thought,
		}, queue.OriginApplicationManager)
		if err != nil {
			return err
		}
	}
	if err := r.qm.Publish(ctx, event.TextDelta{Text: answer}, queue.OriginApplicationManager); err != nil {
		return err
	}
	usage := r.usage
	return r.qm.Publish(ctx, event.MessageEnd{
		Metadata: event.Metadata{Usage: &usage},
	}, queue.OriginApplicationManager)
}

// lastPartialAnswer picks the best available text when the loop is cut off:
// the last observation, else the last thought.
func (r *CotRunner) lastPartialAnswer() string {
	for i := len(r.scratchpad) - 1; i >= 0; i-- {
		if r.scratchpad[i].Observation != "" {
			return r.scratchpad[i].Observation
		}
		if r.scratchpad[i].Thought != "" {
			return r.scratchpad[i].Thought
		}
	}
	return ""
}
