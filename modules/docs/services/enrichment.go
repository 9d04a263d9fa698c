package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// Enrichment topics processed by the outbox-driven dispatcher after an
// approval has been committed. The approval itself is never rolled back for
// an enrichment failure; the relay retries each step independently.
const (
	TopicApprovalFinalize   = "approval.finalize"
	TopicApprovalIndex      = "approval.index"
	TopicApprovalRoutineDoc = "approval.routinedoc"
)

// EnrichmentTask is the payload shared by all enrichment topics.
type EnrichmentTask struct {
	EntryID        uuid.UUID `json:"entry_id"`
	DocID          string    `json:"doc_id"`
	WorkflowID     string    `json:"workflow_id"`
	CorrelationKey string    `json:"correlation_key"`
	Approver       string    `json:"approver"`
	DraftPath      string    `json:"draft_path"`
	FinalPath      string    `json:"final_path"`
	DatabaseName   string    `json:"database_name"`
	SchemaName     string    `json:"schema_name"`
	ObjectName     string    `json:"object_name"`
	ObjectType     string    `json:"object_type"`
}

// EnrichmentQueue records enrichment steps durably inside the caller's
// transaction, so a committed approval always has its steps on the queue.
type EnrichmentQueue interface {
	Enqueue(ctx context.Context, topic string, task EnrichmentTask) error
}

// isStoredRoutine reports whether the object type names a stored routine
// whose persistent documentation record must be kept current.
func isStoredRoutine(objectType string) bool {
	t := strings.ToLower(objectType)
	return strings.Contains(t, "procedure") ||
		strings.Contains(t, "function") ||
		strings.Contains(t, "routine")
}
