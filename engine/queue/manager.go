package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/genflow/genflow/engine/core"
	"github.com/genflow/genflow/engine/event"
	"github.com/genflow/genflow/pkg/logger"
)

// ErrTaskStopped unwinds the producer goroutine when a stop flag is observed
// at a publish point. It marks normal cooperative cancellation, not a failure.
var ErrTaskStopped = errors.New("task stopped")

// ErrIterationTimeout is the cause carried by the synthetic Error event the
// listener emits when no terminal event arrives within the listen deadline.
var ErrIterationTimeout = errors.New("queue iteration timed out")

// ErrAlreadyListening is returned on a second Listen call: the sequence is
// single-pass and owned by exactly one consumer.
var ErrAlreadyListening = errors.New("queue is already being listened to")

// Origin identifies which side of the task published an event. Only
// producer-side publishes observe the stop flag; consumer-side injections
// (heartbeats, synthesized terminals) must never unwind the consumer.
type Origin string

const (
	OriginApplicationManager Origin = "application-manager"
	OriginTaskPipeline       Origin = "task-pipeline"
)

// Config carries the queue tunables. Zero values fall back to defaults.
type Config struct {
	// BufferSize bounds the per-task queue.
	BufferSize int
	// ItemWait is the per-item receive timeout between stop-flag polls.
	ItemWait time.Duration
	// ListenTimeout is the overall deadline after which the listener gives up
	// and emits a synthetic iteration-timeout error.
	ListenTimeout time.Duration
}

const (
	defaultBufferSize    = 128
	defaultItemWait      = time.Second
	defaultListenTimeout = 10 * time.Minute
)

func (c *Config) withDefaults() Config {
	out := Config{BufferSize: defaultBufferSize, ItemWait: defaultItemWait, ListenTimeout: defaultListenTimeout}
	if c == nil {
		return out
	}
	if c.BufferSize > 0 {
		out.BufferSize = c.BufferSize
	}
	if c.ItemWait > 0 {
		out.ItemWait = c.ItemWait
	}
	if c.ListenTimeout > 0 {
		out.ListenTimeout = c.ListenTimeout
	}
	return out
}

// Manager owns one bounded, single-producer/single-consumer queue for a
// generation task. It is the only component allowed to close the queue, which
// it does after the first terminal event.
type Manager struct {
	taskID     core.ID
	appMode    core.AppMode
	userID     string
	invokeFrom core.InvokeFrom
	scope      event.Scope
	stamp      func(ev event.Event) event.Message

	cfg   Config
	flags FlagStore

	mu        sync.Mutex
	ch        chan event.Message
	closed    bool
	closeCh   chan struct{}
	listening atomic.Bool
}

// NewMessageManager builds a manager for chat, agent-chat, and completion
// apps: messages are stamped with conversation and message identity, and
// MessageEnd/Stop/Error are the terminal variants.
func NewMessageManager(
	taskID core.ID,
	userID string,
	invokeFrom core.InvokeFrom,
	appMode core.AppMode,
	conversationID core.ID,
	messageID core.ID,
	flags FlagStore,
	cfg *Config,
) *Manager {
	m := newManager(taskID, userID, invokeFrom, appMode, event.ScopeMessage, flags, cfg)
	m.stamp = func(ev event.Event) event.Message {
		return event.Message{
			TaskID:         taskID,
			AppMode:        appMode,
			ConversationID: conversationID,
			MessageID:      messageID,
			Event:          ev,
		}
	}
	return m
}

// NewWorkflowManager builds a manager for workflow apps: messages carry the
// workflow run identity, and workflow success/failure also terminate the
// queue.
func NewWorkflowManager(
	taskID core.ID,
	userID string,
	invokeFrom core.InvokeFrom,
	workflowRunID core.ID,
	flags FlagStore,
	cfg *Config,
) *Manager {
	m := newManager(taskID, userID, invokeFrom, core.AppModeWorkflow, event.ScopeWorkflow, flags, cfg)
	m.stamp = func(ev event.Event) event.Message {
		return event.Message{
			TaskID:        taskID,
			AppMode:       core.AppModeWorkflow,
			WorkflowRunID: workflowRunID,
			Event:         ev,
		}
	}
	return m
}

func newManager(
	taskID core.ID,
	userID string,
	invokeFrom core.InvokeFrom,
	appMode core.AppMode,
	scope event.Scope,
	flags FlagStore,
	cfg *Config,
) *Manager {
	resolved := cfg.withDefaults()
	return &Manager{
		taskID:     taskID,
		appMode:    appMode,
		userID:     userID,
		invokeFrom: invokeFrom,
		scope:      scope,
		cfg:        resolved,
		flags:      flags,
		ch:         make(chan event.Message, resolved.BufferSize),
		closeCh:    make(chan struct{}),
	}
}

func (m *Manager) TaskID() core.ID {
	return m.taskID
}

func (m *Manager) AppMode() core.AppMode {
	return m.appMode
}

// Publish enqueues one event. Producer-side publishes poll the stop flag: if
// it is set, a final Stop event is still enqueued so the consumer observes a
// deterministic terminal, then ErrTaskStopped is returned to unwind the
// producer. Publishing after the queue closed is a silent drop, which keeps
// the exactly-one-terminal guarantee when cancellation races completion.
func (m *Manager) Publish(ctx context.Context, ev event.Event, origin Origin) error {
	m.enqueue(ctx, ev)
	if origin == OriginApplicationManager && m.isStopped(ctx) {
		m.enqueue(ctx, event.Stop{Reason: event.StopReasonUserRequest})
		return ErrTaskStopped
	}
	return nil
}

func (m *Manager) enqueue(ctx context.Context, ev event.Event) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		logger.FromContext(ctx).Debug("dropping event published after queue close",
			"task_id", m.taskID, "event", ev.Type())
		return
	}
	terminal := event.IsTerminal(ev, m.scope)
	msg := m.stamp(ev)
	m.mu.Unlock()
	select {
	case m.ch <- msg:
	case <-m.closeCh:
		return
	case <-ctx.Done():
		return
	}
	if terminal {
		m.StopListen()
	}
}

// StopListen marks the queue closed. Buffered messages are still drained by
// the listener; further publishes are dropped.
func (m *Manager) StopListen() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	close(m.closeCh)
}

// Listen returns the lazy, single-pass sequence of queue messages. The
// returned channel is closed after the first terminal event, after the queue
// closes and drains, or after the overall listen deadline fires a synthetic
// iteration-timeout error. A second call returns ErrAlreadyListening.
func (m *Manager) Listen(ctx context.Context) (<-chan event.Message, error) {
	if !m.listening.CompareAndSwap(false, true) {
		return nil, ErrAlreadyListening
	}
	out := make(chan event.Message)
	go m.listenLoop(ctx, out)
	return out, nil
}

func (m *Manager) listenLoop(ctx context.Context, out chan<- event.Message) {
	defer close(out)
	log := logger.FromContext(ctx).With("task_id", m.taskID)
	deadline := time.Now().Add(m.cfg.ListenTimeout)
	for {
		if time.Now().After(deadline) {
			log.Warn("queue listen deadline exceeded")
			m.StopListen()
			m.yield(ctx, out, m.stamp(event.Error{
				Err: core.NewError(ErrIterationTimeout, core.ErrCodeIterationTimeout, nil),
			}))
			return
		}
		wait := time.NewTimer(m.cfg.ItemWait)
		select {
		case msg := <-m.ch:
			wait.Stop()
			if !m.yield(ctx, out, msg) {
				return
			}
			if event.IsTerminal(msg.Event, m.scope) {
				return
			}
		case <-m.closeCh:
			wait.Stop()
			m.drain(ctx, out)
			return
		case <-wait.C:
			if m.isStopped(ctx) {
				m.StopListen()
				m.yield(ctx, out, m.stamp(event.Stop{Reason: event.StopReasonUserRequest}))
				return
			}
		case <-ctx.Done():
			wait.Stop()
			return
		}
	}
}

// drain flushes messages buffered before the queue closed, stopping at the
// first terminal event.
func (m *Manager) drain(ctx context.Context, out chan<- event.Message) {
	for {
		select {
		case msg := <-m.ch:
			if !m.yield(ctx, out, msg) {
				return
			}
			if event.IsTerminal(msg.Event, m.scope) {
				return
			}
		default:
			return
		}
	}
}

func (m *Manager) yield(ctx context.Context, out chan<- event.Message, msg event.Message) bool {
	select {
	case out <- msg:
		return true
	case <-ctx.Done():
		return false
	}
}

func (m *Manager) isStopped(ctx context.Context) bool {
	if m.flags == nil {
		return false
	}
	stopped, err := m.flags.IsStopped(ctx, m.taskID, m.invokeFrom, m.userID)
	if err != nil {
		logger.FromContext(ctx).Warn("stop flag check failed", "task_id", m.taskID, "error", err)
		return false
	}
	return stopped
}
