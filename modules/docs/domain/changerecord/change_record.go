package changerecord

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/akfbtn1-netizen/docflow/modules/docs/domain/docid"
)

const StatusCompleted = "Completed"

// ChangeRecord describes a pending real-world change that requires
// documentation. Rows are created by an external ingestion process; this
// subsystem only ever fills in DocID, exactly once.
type ChangeRecord struct {
	ID             uuid.UUID
	CorrelationKey string
	ObjectName     string
	SchemaName     string
	DatabaseName   string
	ObjectType     string
	ChangeType     string
	Description    string
	Status         string
	DocID          *docid.ID
	CreatedAt      time.Time
}

type Repository interface {
	// NextUnclaimed returns the oldest record with status Completed and no
	// document id, or nil when none is pending.
	NextUnclaimed(ctx context.Context) (*ChangeRecord, error)
	// ClaimDocID conditionally assigns id to the record; the predicate
	// requires the doc id column to still be null. Returns false when another
	// process already claimed the record.
	ClaimDocID(ctx context.Context, recordID uuid.UUID, id docid.ID) (bool, error)
	GetByID(ctx context.Context, recordID uuid.UUID) (*ChangeRecord, error)
	// GetByDocID returns the record claimed with id, or nil when none was.
	GetByDocID(ctx context.Context, id docid.ID) (*ChangeRecord, error)
}
