package persistence

import (
	"github.com/google/uuid"

	"github.com/akfbtn1-netizen/docflow/modules/docs/domain/approval"
	"github.com/akfbtn1-netizen/docflow/modules/docs/domain/changerecord"
	"github.com/akfbtn1-netizen/docflow/modules/docs/domain/docid"
	"github.com/akfbtn1-netizen/docflow/modules/docs/domain/workflowevent"
	"github.com/akfbtn1-netizen/docflow/modules/docs/infrastructure/persistence/models"
)

func parseUUID(s string) uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil
	}
	return id
}

func parseUUIDPtr(s *string) *uuid.UUID {
	if s == nil {
		return nil
	}
	id := parseUUID(*s)
	return &id
}

func uuidPtrStr(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func toDomainChangeRecord(row *models.ChangeRecord) *changerecord.ChangeRecord {
	var id *docid.ID
	if row.DocID != nil {
		v := docid.ID(*row.DocID)
		id = &v
	}
	return &changerecord.ChangeRecord{
		ID:             parseUUID(row.ID),
		CorrelationKey: row.CorrelationKey,
		ObjectName:     row.ObjectName,
		SchemaName:     row.SchemaName,
		DatabaseName:   row.DatabaseName,
		ObjectType:     row.ObjectType,
		ChangeType:     row.ChangeType,
		Description:    row.Description,
		Status:         row.Status,
		DocID:          id,
		CreatedAt:      row.CreatedAt,
	}
}

func toDBQueueEntry(e *approval.QueueEntry) *models.QueueEntry {
	return &models.QueueEntry{
		ID:                e.ID.String(),
		DocID:             e.DocID.String(),
		DatabaseName:      e.DatabaseName,
		SchemaName:        e.SchemaName,
		ObjectName:        e.ObjectName,
		ObjectType:        e.ObjectType,
		DocumentType:      e.DocumentType,
		DraftPath:         e.DraftPath,
		DestinationPath:   e.DestinationPath,
		Status:            e.Status,
		Priority:          e.Priority,
		Requester:         e.Requester,
		Assignee:          e.Assignee,
		Resolver:          e.Resolver,
		ResolutionNotes:   e.ResolutionNotes,
		Version:           e.Version,
		PreviousVersionID: uuidPtrStr(e.PreviousVersionID),
		CreatedAt:         e.CreatedAt,
		UpdatedAt:         e.UpdatedAt,
		ResolvedAt:        e.ResolvedAt,
	}
}

func toDomainQueueEntry(row *models.QueueEntry) *approval.QueueEntry {
	return &approval.QueueEntry{
		ID:                parseUUID(row.ID),
		DocID:             docid.ID(row.DocID),
		DatabaseName:      row.DatabaseName,
		SchemaName:        row.SchemaName,
		ObjectName:        row.ObjectName,
		ObjectType:        row.ObjectType,
		DocumentType:      row.DocumentType,
		DraftPath:         row.DraftPath,
		DestinationPath:   row.DestinationPath,
		Status:            row.Status,
		Priority:          row.Priority,
		Requester:         row.Requester,
		Assignee:          row.Assignee,
		Resolver:          row.Resolver,
		ResolutionNotes:   row.ResolutionNotes,
		Version:           row.Version,
		PreviousVersionID: parseUUIDPtr(row.PreviousVersionID),
		CreatedAt:         row.CreatedAt,
		UpdatedAt:         row.UpdatedAt,
		ResolvedAt:        row.ResolvedAt,
	}
}

func toDomainHistoryEntry(row *models.HistoryEntry) *approval.HistoryEntry {
	return &approval.HistoryEntry{
		ID:              parseUUID(row.ID),
		QueueEntryID:    parseUUID(row.QueueEntryID),
		Action:          row.Action,
		ActionBy:        row.ActionBy,
		PreviousStatus:  row.PreviousStatus,
		NewStatus:       row.NewStatus,
		Notes:           row.Notes,
		SourcePath:      row.SourcePath,
		DestinationPath: row.DestinationPath,
		CreatedAt:       row.CreatedAt,
	}
}

func toDomainDocumentEdit(row *models.DocumentEdit) *approval.DocumentEdit {
	return &approval.DocumentEdit{
		ID:           parseUUID(row.ID),
		QueueEntryID: parseUUID(row.QueueEntryID),
		SectionName:  row.SectionName,
		OriginalText: row.OriginalText,
		EditedText:   row.EditedText,
		Reason:       row.Reason,
		Category:     row.Category,
		CreatedAt:    row.CreatedAt,
	}
}

func toDomainWorkflowEvent(row *models.WorkflowEvent) *workflowevent.Event {
	return &workflowevent.Event{
		ID:         parseUUID(row.ID),
		WorkflowID: row.WorkflowID,
		EventType:  row.EventType,
		Status:     row.Status,
		Message:    row.Message,
		DurationMS: row.DurationMS,
		Metadata:   row.Metadata,
		CreatedAt:  row.CreatedAt,
	}
}
