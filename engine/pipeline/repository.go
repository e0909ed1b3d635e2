package pipeline

import (
	"context"

	"github.com/genflow/genflow/engine/core"
	"github.com/genflow/genflow/engine/event"
)

// Repository is the persistence boundary the pipeline writes terminal state
// through. Loading and storage engines live outside this core; only the
// operations the pipeline needs are specified here.
type Repository interface {
	// PersistAnswer stores the final answer and aggregated metadata on the
	// owning message or run record.
	PersistAnswer(ctx context.Context, msg event.Message, answer string, metadata event.Metadata) error
	// PersistTerminalStatus records how the task ended. errText is empty for
	// success and stop terminals.
	PersistTerminalStatus(ctx context.Context, msg event.Message, status core.StatusType, errText string) error
	// IncrementRetrievalHits bumps hit counters for retrieved documents.
	IncrementRetrievalHits(ctx context.Context, resources []event.RetrieverResource) error
}
