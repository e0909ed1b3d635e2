package queue

import (
	"context"
	"fmt"

	"github.com/genflow/genflow/engine/core"
)

// FlagStore is the cross-process stop-flag store. The API process handling a
// stop request writes a flag; the worker process running the generation polls
// it before every producer-side publish. Entries expire so abandoned flags
// never accumulate.
type FlagStore interface {
	SetStopFlag(ctx context.Context, taskID core.ID, invokeFrom core.InvokeFrom, userID string) error
	IsStopped(ctx context.Context, taskID core.ID, invokeFrom core.InvokeFrom, userID string) (bool, error)
	ClearStopFlag(ctx context.Context, taskID core.ID, invokeFrom core.InvokeFrom, userID string) error
}

// StopFlagKey builds the composite key a stop flag is stored under. The
// invoke source and user are part of the key so only the requester that owns
// the task can cancel it.
func StopFlagKey(taskID core.ID, invokeFrom core.InvokeFrom, userID string) string {
	return fmt.Sprintf("generate_task_stopped:%s:%s:%s", taskID, invokeFrom, userID)
}
