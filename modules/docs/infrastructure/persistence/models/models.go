package models

import "time"

type ChangeRecord struct {
	ID             string
	CorrelationKey string
	ObjectName     string
	SchemaName     string
	DatabaseName   string
	ObjectType     string
	ChangeType     string
	Description    string
	Status         string
	DocID          *string
	CreatedAt      time.Time
}

type QueueEntry struct {
	ID                string
	DocID             string
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
	PreviousVersionID *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	ResolvedAt        *time.Time
}

type HistoryEntry struct {
	ID              string
	QueueEntryID    string
	Action          string
	ActionBy        string
	PreviousStatus  string
	NewStatus       string
	Notes           *string
	SourcePath      *string
	DestinationPath *string
	CreatedAt       time.Time
}

type DocumentEdit struct {
	ID           string
	QueueEntryID string
	SectionName  string
	OriginalText string
	EditedText   string
	Reason       string
	Category     string
	CreatedAt    time.Time
}

type RegenerationRequest struct {
	ID               string
	QueueEntryID     string
	OriginVersion    int
	FeedbackText     string
	FeedbackSection  string
	FeedbackContext  string
	RequestedBy      string
	Status           string
	FulfilledByEntry *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type WorkflowEvent struct {
	ID         string
	WorkflowID string
	EventType  string
	Status     string
	Message    string
	DurationMS *int64
	Metadata   []byte
	CreatedAt  time.Time
}
