package moderation

import (
	"context"
	"sync"
	"time"

	"github.com/genflow/genflow/pkg/logger"
)

// Action tells the pipeline what to do with a flagged answer.
type Action string

const (
	// ActionOverride replaces the in-flight answer with ReplacementText.
	ActionOverride Action = "override"
	// ActionDirectOutput keeps a preset answer verbatim.
	ActionDirectOutput Action = "direct_output"
)

// Result is the verdict of one moderation check.
type Result struct {
	Flagged         bool
	Action          Action
	ReplacementText string
}

// Provider is the external moderation collaborator.
type Provider interface {
	Check(ctx context.Context, text string) (Result, error)
}

// Command is the redact instruction the worker sends back to the pipeline.
// Moderation never mutates pipeline state directly; this channel is its only
// write path besides the stop flag.
type Command struct {
	Replacement string
}

// Config tunes the output moderation worker.
type Config struct {
	// CheckInterval bounds how much extra latency moderation can add before a
	// violation is noticed.
	CheckInterval time.Duration
	// MinLength is the minimum buffered length before the first check runs.
	MinLength int
}

const (
	defaultCheckInterval = 300 * time.Millisecond
	defaultMinLength     = 20
)

// Output buffers streamed answer text and evaluates it periodically on its
// own goroutine. On a violation it requests cooperative cancellation via the
// onFlag callback and emits exactly one redact command.
type Output struct {
	provider Provider
	interval time.Duration
	minLen   int
	onFlag   func(ctx context.Context)

	mu         sync.Mutex
	buffer     string
	checkedLen int
	lastResult *Result

	commands  chan Command
	stopOnce  sync.Once
	stopCh    chan struct{}
	workerWg  sync.WaitGroup
	started   bool
}

func NewOutput(provider Provider, cfg *Config, onFlag func(ctx context.Context)) *Output {
	interval := defaultCheckInterval
	minLen := defaultMinLength
	if cfg != nil {
		if cfg.CheckInterval > 0 {
			interval = cfg.CheckInterval
		}
		if cfg.MinLength > 0 {
			minLen = cfg.MinLength
		}
	}
	return &Output{
		provider: provider,
		interval: interval,
		minLen:   minLen,
		onFlag:   onFlag,
		commands: make(chan Command, 1),
		stopCh:   make(chan struct{}),
	}
}

// Start launches the periodic checker. Idempotent.
func (o *Output) Start(ctx context.Context) {
	o.mu.Lock()
	if o.started {
		o.mu.Unlock()
		return
	}
	o.started = true
	o.mu.Unlock()
	o.workerWg.Add(1)
	go o.worker(ctx)
}

// Append buffers one emitted text delta. Never blocks the caller.
func (o *Output) Append(text string) {
	o.mu.Lock()
	o.buffer += text
	o.mu.Unlock()
}

// Commands exposes the redact channel the pipeline selects on.
func (o *Output) Commands() <-chan Command {
	return o.commands
}

// LastResult returns the most recent verdict, flagged or not. The pipeline
// applies it at finalization so a late moderation hit wins over a
// concurrently arriving normal terminal event.
func (o *Output) LastResult() *Result {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastResult
}

// Final runs one last check over the complete answer and returns the verdict
// that finalization must honor.
func (o *Output) Final(ctx context.Context, text string) Result {
	if prev := o.LastResult(); prev != nil && prev.Flagged {
		return *prev
	}
	result, err := o.provider.Check(ctx, text)
	if err != nil {
		logger.FromContext(ctx).Warn("final moderation check failed", "error", err)
		return Result{}
	}
	o.mu.Lock()
	o.lastResult = &result
	o.mu.Unlock()
	return result
}

// Close stops the worker. Idempotent; safe to call from the pipeline's defer.
func (o *Output) Close() {
	o.stopOnce.Do(func() {
		close(o.stopCh)
	})
	o.workerWg.Wait()
}

func (o *Output) worker(ctx context.Context) {
	defer o.workerWg.Done()
	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()
	for {
		select {
		case <-o.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if o.checkOnce(ctx) {
				return
			}
		}
	}
}

// checkOnce evaluates newly buffered text. Returns true when a violation was
// found and the worker should stop: one redact command is enough.
func (o *Output) checkOnce(ctx context.Context) bool {
	o.mu.Lock()
	snapshot := o.buffer
	checked := o.checkedLen
	o.mu.Unlock()
	if len(snapshot) <= checked || len(snapshot) < o.minLen {
		return false
	}
	result, err := o.provider.Check(ctx, snapshot)
	if err != nil {
		logger.FromContext(ctx).Warn("output moderation check failed", "error", err)
		return false
	}
	o.mu.Lock()
	o.checkedLen = len(snapshot)
	o.lastResult = &result
	o.mu.Unlock()
	if !result.Flagged {
		return false
	}
	if o.onFlag != nil {
		o.onFlag(ctx)
	}
	select {
	case o.commands <- Command{Replacement: result.ReplacementText}:
	default:
	}
	return true
}
