package app

import (
	"context"
	"errors"

	"github.com/genflow/genflow/engine/agent"
	"github.com/genflow/genflow/engine/converter"
	"github.com/genflow/genflow/engine/core"
	"github.com/genflow/genflow/engine/event"
	"github.com/genflow/genflow/engine/infra/server/router"
	llmadapter "github.com/genflow/genflow/engine/llm/adapter"
	"github.com/genflow/genflow/engine/llm/usage"
	"github.com/genflow/genflow/engine/moderation"
	"github.com/genflow/genflow/engine/pipeline"
	"github.com/genflow/genflow/engine/queue"
	"github.com/genflow/genflow/pkg/config"
)

// WorkflowRunner executes one workflow run, publishing node and terminal
// events on the task's queue. Workflow node semantics live behind this
// boundary.
type WorkflowRunner interface {
	Run(ctx context.Context, qm *queue.Manager, req *router.RunRequest) error
}

// ConversationStore loads conversation records so requests that continue an
// existing conversation can be validated before a producer is spawned.
type ConversationStore interface {
	ConversationExists(ctx context.Context, id core.ID) (bool, error)
}

// Dependencies carries everything a Service needs. Flags, Registry, Provider,
// and Repo are required; the rest is optional.
type Dependencies struct {
	Config        *config.Config
	Flags         queue.FlagStore
	Registry      *llmadapter.Registry
	Provider      llmadapter.ProviderConfig
	Repo          pipeline.Repository
	Conversations ConversationStore
	Usage         *usage.Calculator
	Moderator     moderation.Provider
	Instruction   string
	Tools         []agent.Tool
	ToolInvoker   agent.ToolInvoker
	Workflows     WorkflowRunner
}

// Service is the application manager: it creates the per-task queue, spawns
// the producer for the requested app mode, and hands the consuming pipeline
// back to the transport.
type Service struct {
	deps Dependencies
}

func NewService(deps Dependencies) *Service {
	if deps.Config == nil {
		deps.Config = config.Default()
	}
	return &Service{deps: deps}
}

// StartTask spawns the producer for the request and returns the pipeline that
// will consume its queue. The producer runs on its own goroutine behind the
// producer boundary; the caller drives the pipeline.
func (s *Service) StartTask(ctx context.Context, req *router.RunRequest) (*pipeline.TaskPipeline, error) {
	taskID := core.MustNewID()
	qm, err := s.startProducer(ctx, taskID, req)
	if err != nil {
		return nil, err
	}
	return pipeline.New(qm, pipeline.Options{
		ResponseMode:      modeFor(req.InvokeFrom),
		HeartbeatInterval: s.deps.Config.Pipeline.HeartbeatInterval,
		Model:             s.deps.Provider.Model,
		Moderation:        s.moderationFor(taskID, req),
		Usage:             s.deps.Usage,
		Repo:              s.deps.Repo,
	}), nil
}

// StopTask raises the cross-process stop flag; the producer observes it at
// its next publish point.
func (s *Service) StopTask(ctx context.Context, taskID core.ID, invokeFrom core.InvokeFrom, userID string) error {
	return s.deps.Flags.SetStopFlag(ctx, taskID, invokeFrom, userID)
}

func (s *Service) startProducer(ctx context.Context, taskID core.ID, req *router.RunRequest) (*queue.Manager, error) {
	qcfg := s.queueConfig()
	if req.AppMode.IsWorkflow() {
		if s.deps.Workflows == nil {
			return nil, core.NewError(errors.New("workflow execution is not configured"),
				core.ErrCodeInvokeBadRequest, nil)
		}
		qm := queue.NewWorkflowManager(taskID, req.User, req.InvokeFrom, core.MustNewID(), s.deps.Flags, qcfg)
		pipeline.RunProducer(ctx, qm, func(ctx context.Context) error {
			return s.deps.Workflows.Run(ctx, qm, req)
		})
		return qm, nil
	}
	conversationID, err := s.conversationIDFor(ctx, req)
	if err != nil {
		return nil, err
	}
	qm := queue.NewMessageManager(
		taskID, req.User, req.InvokeFrom, req.AppMode,
		conversationID, core.MustNewID(), s.deps.Flags, qcfg,
	)
	client, err := s.deps.Registry.Client(ctx, &s.deps.Provider)
	if err != nil {
		return nil, pipeline.Translate(err)
	}
	if req.AppMode == core.AppModeAgentChat {
		runner := agent.NewCotRunner(client, s.deps.ToolInvoker, qm, agent.Config{
			Instruction:   s.deps.Instruction,
			Query:         req.Query,
			Tools:         s.deps.Tools,
			Style:         agent.StyleChat,
			MaxIterations: s.deps.Config.Agent.MaxIterations,
			Temperature:   s.deps.Config.Agent.Temperature,
			RetryAttempts: s.deps.Config.Agent.RetryAttempts,
		})
		pipeline.RunProducer(ctx, qm, func(ctx context.Context) error {
			_, err := runner.Run(ctx)
			return err
		})
		return qm, nil
	}
	pipeline.RunProducer(ctx, qm, func(ctx context.Context) error {
		return s.generate(ctx, qm, client, req)
	})
	return qm, nil
}

// generate is the plain chat/completion producer: stream the model's deltas
// onto the queue and close with the terminal MessageEnd.
func (s *Service) generate(
	ctx context.Context,
	qm *queue.Manager,
	client llmadapter.LLMClient,
	req *router.RunRequest,
) error {
	llmReq := &llmadapter.LLMRequest{
		SystemPrompt: s.deps.Instruction,
		Messages:     []llmadapter.Message{{Role: llmadapter.RoleUser, Content: req.Query}},
		Options: llmadapter.CallOptions{
			Temperature: s.deps.Config.Agent.Temperature,
		},
	}
	resp, err := client.StreamContent(ctx, llmReq, func(ctx context.Context, chunk string) error {
		return qm.Publish(ctx, event.TextDelta{Text: chunk}, queue.OriginApplicationManager)
	})
	if err != nil {
		return err
	}
	return qm.Publish(ctx, event.MessageEnd{
		Metadata: event.Metadata{Usage: resp.Usage},
	}, queue.OriginApplicationManager)
}

// moderationFor builds the moderation worker for one task. On a violation the
// worker raises the task's own stop flag so the producer unwinds at its next
// publish point.
func (s *Service) moderationFor(taskID core.ID, req *router.RunRequest) *moderation.Output {
	cfg := s.deps.Config.Moderation
	if s.deps.Moderator == nil || !cfg.Enabled || req.AppMode.IsWorkflow() {
		return nil
	}
	invokeFrom, userID := req.InvokeFrom, req.User
	return moderation.NewOutput(s.deps.Moderator, &moderation.Config{
		CheckInterval: cfg.CheckInterval,
		MinLength:     cfg.MinLength,
	}, func(ctx context.Context) {
		_ = s.deps.Flags.SetStopFlag(ctx, taskID, invokeFrom, userID)
	})
}

func (s *Service) queueConfig() *queue.Config {
	q := s.deps.Config.Queue
	return &queue.Config{
		BufferSize:    q.BufferSize,
		ItemWait:      q.ItemWait,
		ListenTimeout: q.ListenTimeout,
	}
}

// conversationIDFor resolves the conversation a message-scoped request joins:
// a fresh conversation when none is named, otherwise the named one after it
// is validated against the store.
func (s *Service) conversationIDFor(ctx context.Context, req *router.RunRequest) (core.ID, error) {
	if req.ConversationID == "" {
		return core.MustNewID(), nil
	}
	id, err := core.ParseID(req.ConversationID)
	if err != nil {
		return "", core.NewError(err, core.ErrCodeInvokeBadRequest, map[string]any{
			"conversation_id": req.ConversationID,
		})
	}
	if s.deps.Conversations != nil {
		exists, err := s.deps.Conversations.ConversationExists(ctx, id)
		if err != nil {
			return "", core.NewError(err, core.ErrCodeUnknown, nil)
		}
		if !exists {
			return "", core.NewError(errors.New("conversation not found"),
				core.ErrCodeInvokeBadRequest, map[string]any{"conversation_id": req.ConversationID})
		}
	}
	return id, nil
}

// modeFor maps the invoking surface onto a payload mode: operator surfaces
// get full payloads, end-user surfaces get the trimmed simple shape.
func modeFor(from core.InvokeFrom) converter.Mode {
	switch from {
	case core.InvokeFromDebugger, core.InvokeFromServiceAPI:
		return converter.ModeFull
	default:
		return converter.ModeSimple
	}
}
