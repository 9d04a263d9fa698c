package approval

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/akfbtn1-netizen/docflow/modules/docs/domain/docid"
)

// Queue entry statuses. Pending is initial; Approved and Rejected are
// terminal. Regenerating and Edited are intermediate: Edited resolves to
// Approved in the same operation, Regenerating is superseded by a new version.
const (
	StatusPending      = "Pending"
	StatusApproved     = "Approved"
	StatusRejected     = "Rejected"
	StatusRegenerating = "Regenerating"
	StatusEdited       = "Edited"
)

// History actions.
const (
	ActionCreated     = "Created"
	ActionViewed      = "Viewed"
	ActionEdited      = "Edited"
	ActionApproved    = "Approved"
	ActionRejected    = "Rejected"
	ActionRegenerated = "Regenerated"
	ActionMoved       = "Moved"
	ActionAssigned    = "Assigned"
	ActionCommented   = "Commented"
)

// Regeneration request statuses.
const (
	RegenStatusPending    = "Pending"
	RegenStatusProcessing = "Processing"
	RegenStatusCompleted  = "Completed"
	RegenStatusFailed     = "Failed"
)

// Unassigned is the sentinel assignee when no approver is configured.
const Unassigned = "unassigned"

// QueueEntry is the approval-tracking record for one draft/version.
// Entries are never physically deleted.
type QueueEntry struct {
	ID                uuid.UUID
	DocID             docid.ID
	DatabaseName      string
	SchemaName        string
	ObjectName        string
	ObjectType        string
	DocumentType      string
	DraftPath         string
	DestinationPath   string
	Status            string
	Priority          string
	Requester         string
	Assignee          string
	Resolver          string
	ResolutionNotes   *string
	Version           int
	PreviousVersionID *uuid.UUID
	CreatedAt         time.Time
	UpdatedAt         time.Time
	ResolvedAt        *time.Time
}

// HistoryEntry is the immutable audit record of one action on a queue entry.
type HistoryEntry struct {
	ID              uuid.UUID
	QueueEntryID    uuid.UUID
	Action          string
	ActionBy        string
	PreviousStatus  string
	NewStatus       string
	Notes           *string
	SourcePath      *string
	DestinationPath *string
	CreatedAt       time.Time
}

// DocumentEdit records a content change made during human review, tagged for
// downstream model-improvement consumption.
type DocumentEdit struct {
	ID           uuid.UUID
	QueueEntryID uuid.UUID
	SectionName  string
	OriginalText string
	EditedText   string
	Reason       string
	Category     string
	CreatedAt    time.Time
}

// RegenerationRequest is the feedback payload asking for a new draft version.
// Fulfillment is delegated to an external collaborator watching for Pending.
type RegenerationRequest struct {
	ID               uuid.UUID
	QueueEntryID     uuid.UUID
	OriginVersion    int
	FeedbackText     string
	FeedbackSection  string
	FeedbackContext  string
	RequestedBy      string
	Status           string
	FulfilledByEntry *uuid.UUID
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type Repository interface {
	CreateEntry(ctx context.Context, e *QueueEntry) error
	GetEntry(ctx context.Context, id uuid.UUID) (*QueueEntry, error)
	GetEntryByDocID(ctx context.Context, id docid.ID) (*QueueEntry, error)
	// TransitionStatus flips the entry from one status to another with a
	// conditional predicate on the current status. Returns false when the
	// entry was not in the expected status.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to string, resolver string, notes *string) (bool, error)

	AppendHistory(ctx context.Context, h *HistoryEntry) error
	ListHistory(ctx context.Context, entryID uuid.UUID) ([]*HistoryEntry, error)

	CreateEdit(ctx context.Context, e *DocumentEdit) error
	ListEdits(ctx context.Context, entryID uuid.UUID) ([]*DocumentEdit, error)

	CreateRegenerationRequest(ctx context.Context, r *RegenerationRequest) error
}
