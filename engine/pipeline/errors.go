package pipeline

import (
	"context"
	"errors"

	"github.com/genflow/genflow/engine/core"
	"github.com/genflow/genflow/engine/event"
	llmadapter "github.com/genflow/genflow/engine/llm/adapter"
	"github.com/genflow/genflow/engine/queue"
	"github.com/genflow/genflow/pkg/logger"
)

// Translate maps a low-level producer failure onto the domain error taxonomy.
// Already-translated errors pass through unchanged.
func Translate(err error) *core.Error {
	if err == nil {
		return nil
	}
	var coreErr *core.Error
	if errors.As(err, &coreErr) {
		return coreErr
	}
	if llmErr, ok := llmadapter.AsError(err); ok {
		return core.NewError(err, llmErr.Category.ErrorCode(), map[string]any{
			"provider": llmErr.Provider,
		})
	}
	switch {
	case errors.Is(err, queue.ErrTaskStopped):
		return core.NewError(err, core.ErrCodeTaskStopped, nil)
	case errors.Is(err, queue.ErrIterationTimeout):
		return core.NewError(err, core.ErrCodeIterationTimeout, nil)
	default:
		return core.NewError(err, core.ErrCodeUnknown, nil)
	}
}

// RunProducer executes the producer function on its own goroutine and
// enforces the producer-boundary contract: failures are translated and
// re-emitted as a terminal Error event, never silently swallowed, while
// ErrTaskStopped unwinds quietly because the queue manager already delivered
// the Stop terminal.
func RunProducer(ctx context.Context, qm *queue.Manager, fn func(ctx context.Context) error) {
	go func() {
		err := fn(ctx)
		if err == nil {
			return
		}
		if errors.Is(err, queue.ErrTaskStopped) {
			logger.FromContext(ctx).Debug("producer unwound after stop", "task_id", qm.TaskID())
			return
		}
		translated := Translate(err)
		logger.FromContext(ctx).Error("producer failed",
			"task_id", qm.TaskID(), "code", translated.Code, "error", err)
		// Origin is the pipeline so a concurrent stop flag cannot shadow the
		// failure terminal.
		_ = qm.Publish(ctx, event.Error{Err: translated}, queue.OriginTaskPipeline)
	}()
}
