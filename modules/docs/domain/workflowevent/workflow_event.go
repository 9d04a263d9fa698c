package workflowevent

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event statuses.
const (
	StatusInProgress = "InProgress"
	StatusCompleted  = "Completed"
	StatusFailed     = "Failed"
	StatusWarning    = "Warning"
)

// Event types emitted by the workflow engine.
const (
	TypeWatcherDetectedNewRow = "WatcherDetectedNewRow"
	TypeCodeExtraction        = "CodeExtraction"
	TypeApprovalCreated       = "ApprovalCreated"
	TypeApprovalDecision      = "ApprovalDecision"
	TypeRegenerationRequested = "RegenerationRequested"
	TypeEnrichment            = "Enrichment"
	TypeWorkflowCompleted     = "WorkflowCompleted"
	TypeWorkflowFailed        = "WorkflowFailed"
)

// Event is an append-only audit/observability record correlated by workflow
// identifier. Events are never mutated.
type Event struct {
	ID         uuid.UUID
	WorkflowID string
	EventType  string
	Status     string
	Message    string
	DurationMS *int64
	Metadata   json.RawMessage
	CreatedAt  time.Time
}

type Repository interface {
	Append(ctx context.Context, e *Event) error
	ListByWorkflowID(ctx context.Context, workflowID string) ([]*Event, error)
}
