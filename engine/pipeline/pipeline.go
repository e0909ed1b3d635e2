package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/genflow/genflow/engine/converter"
	"github.com/genflow/genflow/engine/core"
	"github.com/genflow/genflow/engine/event"
	"github.com/genflow/genflow/engine/llm/usage"
	"github.com/genflow/genflow/engine/moderation"
	"github.com/genflow/genflow/engine/queue"
	"github.com/genflow/genflow/pkg/logger"
)

const defaultHeartbeatInterval = 10 * time.Second

// Options configures one pipeline run.
type Options struct {
	// ResponseMode selects full (internal) or simple (client-safe) payloads.
	ResponseMode converter.Mode
	// HeartbeatInterval is the idle gap before a ping is injected into a
	// streaming response. Pings never reach persistence or accounting.
	HeartbeatInterval time.Duration
	// Model names the generation model for usage estimation.
	Model string
	// Moderation is nil when the app's sensitive-content policy is disabled.
	Moderation *moderation.Output
	// Usage finalizes token counts and pricing; optional.
	Usage *usage.Calculator
	// Repo persists terminal state; required.
	Repo Repository
}

// outcome captures the terminal state the loop observed, for blocking
// responses and for callers that need the final status.
type outcome struct {
	status     core.StatusType
	err        *core.Error
	stopReason event.StopReason
	wfOutputs  map[string]any
	wfError    string
	elapsed    float64
}

// TaskPipeline consumes one task's queue, applies cross-cutting policy
// (moderation, heartbeats, error translation, persistence), and shapes the
// client-facing result through the app's response converter.
type TaskPipeline struct {
	qm    *queue.Manager
	conv  converter.StreamConverter
	scope event.Scope
	opts  Options

	answer    strings.Builder
	metadata  event.Metadata
	identity  event.Message
	startedAt time.Time
	out       outcome
}

func New(qm *queue.Manager, opts Options) *TaskPipeline {
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = defaultHeartbeatInterval
	}
	return &TaskPipeline{
		qm:        qm,
		conv:      converter.ForAppMode(qm.AppMode()),
		scope:     event.ScopeOf(qm.AppMode()),
		opts:      opts,
		startedAt: time.Now(),
	}
}

// ProcessStream drives the pipeline and returns the lazy sequence of wire
// chunks. The channel closes after the terminal chunk.
func (p *TaskPipeline) ProcessStream(ctx context.Context) (<-chan converter.Chunk, error) {
	msgs, err := p.qm.Listen(ctx)
	if err != nil {
		return nil, err
	}
	if p.opts.Moderation != nil {
		p.opts.Moderation.Start(ctx)
	}
	out := make(chan converter.Chunk)
	go func() {
		defer close(out)
		if p.opts.Moderation != nil {
			defer p.opts.Moderation.Close()
		}
		p.loop(ctx, msgs, func(c converter.Chunk) bool {
			select {
			case out <- c:
				return true
			case <-ctx.Done():
				return false
			}
		})
	}()
	return out, nil
}

// ProcessBlocking drives the pipeline to completion and returns one
// aggregated response object. A failure terminal comes back as the translated
// domain error.
func (p *TaskPipeline) ProcessBlocking(ctx context.Context) (map[string]any, error) {
	msgs, err := p.qm.Listen(ctx)
	if err != nil {
		return nil, err
	}
	if p.opts.Moderation != nil {
		p.opts.Moderation.Start(ctx)
		defer p.opts.Moderation.Close()
	}
	p.loop(ctx, msgs, nil)
	if p.out.err != nil {
		return nil, p.out.err
	}
	if p.out.status == "" {
		// The loop exited without a terminal event (cancellation, or the
		// queue closed early). That run is a failure, never an empty success.
		cause := ctx.Err()
		if cause == nil {
			cause = errors.New("task ended before a terminal event")
		}
		return nil, Translate(cause)
	}
	return p.blockingResponse(), nil
}

// loop is the consumer side of the task: it multiplexes queue messages,
// moderation redact commands, and the idle heartbeat. emit is nil for
// blocking mode.
func (p *TaskPipeline) loop(ctx context.Context, msgs <-chan event.Message, emit func(converter.Chunk) bool) {
	var modCmds <-chan moderation.Command
	if p.opts.Moderation != nil {
		modCmds = p.opts.Moderation.Commands()
	}
	idle := time.NewTimer(p.opts.HeartbeatInterval)
	defer idle.Stop()
	for {
		select {
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			if p.identity.TaskID.IsZero() {
				p.identity = msg
			}
			if event.IsTerminal(msg.Event, p.scope) {
				p.finalize(ctx, msg, emit)
				return
			}
			p.handle(ctx, msg, emit)
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(p.opts.HeartbeatInterval)
		case cmd := <-modCmds:
			p.redact(cmd.Replacement, emit)
		case <-idle.C:
			if emit != nil {
				if !emit(converter.Chunk{Ping: true}) {
					return
				}
			}
			idle.Reset(p.opts.HeartbeatInterval)
		case <-ctx.Done():
			return
		}
	}
}

func (p *TaskPipeline) handle(ctx context.Context, msg event.Message, emit func(converter.Chunk) bool) {
	switch ev := msg.Event.(type) {
	case event.TextDelta:
		p.answer.WriteString(ev.Text)
		if p.opts.Moderation != nil {
			p.opts.Moderation.Append(ev.Text)
		}
	case event.MessageReplace:
		p.answer.Reset()
		p.answer.WriteString(ev.Text)
	case event.RetrieverResources:
		p.metadata.RetrieverResources = ev.Resources
		if p.opts.Repo != nil {
			if err := p.opts.Repo.IncrementRetrievalHits(ctx, ev.Resources); err != nil {
				logger.FromContext(ctx).Warn("retrieval hit count update failed", "error", err)
			}
		}
	}
	p.emitChunk(msg, emit)
}

// redact applies a moderation redact command: the in-flight answer is
// replaced and streaming clients get a message_replace chunk.
func (p *TaskPipeline) redact(replacement string, emit func(converter.Chunk) bool) {
	p.answer.Reset()
	p.answer.WriteString(replacement)
	if p.identity.TaskID.IsZero() {
		return
	}
	replaced := p.identity
	replaced.Event = event.MessageReplace{Text: replacement}
	p.emitChunk(replaced, emit)
}

func (p *TaskPipeline) finalize(ctx context.Context, msg event.Message, emit func(converter.Chunk) bool) {
	msg = p.applyModeration(ctx, msg, emit)
	switch ev := msg.Event.(type) {
	case event.MessageEnd:
		if ev.Metadata.Usage != nil {
			if p.metadata.Usage == nil {
				p.metadata.Usage = &event.Usage{}
			}
			p.metadata.Usage.Add(ev.Metadata.Usage)
		}
		if len(ev.Metadata.RetrieverResources) > 0 {
			p.metadata.RetrieverResources = ev.Metadata.RetrieverResources
		}
		p.finalizeUsage()
		p.out.status = core.StatusSuccess
		p.persistAnswer(ctx, msg)
		p.persistStatus(ctx, msg, core.StatusSuccess, "")
		msg.Event = event.MessageEnd{Metadata: p.metadata}
	case event.Stop:
		p.finalizeUsage()
		p.out.status = core.StatusStopped
		p.out.stopReason = ev.Reason
		p.persistAnswer(ctx, msg)
		p.persistStatus(ctx, msg, core.StatusStopped, "")
	case event.Error:
		translated := Translate(ev.Err)
		p.out.status = core.StatusFailed
		p.out.err = translated
		p.persistStatus(ctx, msg, core.StatusFailed, translated.Message)
		msg.Event = event.Error{Err: translated}
	case event.WorkflowSucceeded:
		p.out.status = core.StatusSuccess
		p.out.wfOutputs = ev.Outputs
		p.out.elapsed = ev.ElapsedSecs
		p.persistStatus(ctx, msg, core.StatusSuccess, "")
	case event.WorkflowFailed:
		p.out.status = core.StatusFailed
		p.out.wfError = ev.Reason
		p.out.elapsed = ev.ElapsedSecs
		p.persistStatus(ctx, msg, core.StatusFailed, ev.Reason)
	}
	p.emitChunk(msg, emit)
}

// applyModeration enforces last-moderation-result-wins at finalization: a
// flagged verdict overrides even a normal MessageEnd that raced it.
func (p *TaskPipeline) applyModeration(
	ctx context.Context,
	msg event.Message,
	emit func(converter.Chunk) bool,
) event.Message {
	if p.opts.Moderation == nil || p.scope != event.ScopeMessage {
		return msg
	}
	if _, isErr := msg.Event.(event.Error); isErr {
		return msg
	}
	result := p.opts.Moderation.Final(ctx, p.answer.String())
	if !result.Flagged {
		return msg
	}
	p.redact(result.ReplacementText, emit)
	msg.Event = event.Stop{Reason: event.StopReasonOutputModeration}
	return msg
}

func (p *TaskPipeline) finalizeUsage() {
	if p.opts.Usage == nil {
		return
	}
	p.metadata.Usage = p.opts.Usage.Finalize(
		p.opts.Model,
		p.metadata.Usage,
		time.Since(p.startedAt),
		"",
		p.answer.String(),
	)
}

func (p *TaskPipeline) persistAnswer(ctx context.Context, msg event.Message) {
	if p.opts.Repo == nil {
		return
	}
	if err := p.opts.Repo.PersistAnswer(ctx, msg, p.answer.String(), p.metadata); err != nil {
		logger.FromContext(ctx).Error("persisting answer failed", "task_id", msg.TaskID, "error", err)
	}
}

func (p *TaskPipeline) persistStatus(ctx context.Context, msg event.Message, status core.StatusType, errText string) {
	if p.opts.Repo == nil {
		return
	}
	if err := p.opts.Repo.PersistTerminalStatus(ctx, msg, status, errText); err != nil {
		logger.FromContext(ctx).Error("persisting terminal status failed",
			"task_id", msg.TaskID, "status", status, "error", err)
	}
}

func (p *TaskPipeline) emitChunk(msg event.Message, emit func(converter.Chunk) bool) {
	if emit == nil {
		return
	}
	if chunk, ok := p.conv.ConvertChunk(msg, p.opts.ResponseMode); ok {
		emit(chunk)
	}
}

func (p *TaskPipeline) blockingResponse() map[string]any {
	createdAt := p.startedAt.Unix()
	switch c := p.conv.(type) {
	case converter.WorkflowConverter:
		return c.ConvertBlocking(&converter.WorkflowBlockingResponse{
			TaskID:        p.identity.TaskID.String(),
			WorkflowRunID: p.identity.WorkflowRunID.String(),
			Status:        p.out.status,
			Outputs:       p.out.wfOutputs,
			Error:         p.out.wfError,
			ElapsedSecs:   p.out.elapsed,
			CreatedAt:     createdAt,
		}, p.opts.ResponseMode)
	case converter.CompletionConverter:
		return c.ConvertBlocking(&converter.BlockingResponse{
			TaskID:    p.identity.TaskID.String(),
			MessageID: p.identity.MessageID.String(),
			Answer:    p.answer.String(),
			Metadata:  p.metadata,
			CreatedAt: createdAt,
		}, p.opts.ResponseMode)
	default:
		return converter.ChatConverter{}.ConvertBlocking(&converter.BlockingResponse{
			TaskID:         p.identity.TaskID.String(),
			ConversationID: p.identity.ConversationID.String(),
			MessageID:      p.identity.MessageID.String(),
			Answer:         p.answer.String(),
			Metadata:       p.metadata,
			CreatedAt:      createdAt,
		}, p.opts.ResponseMode)
	}
}
