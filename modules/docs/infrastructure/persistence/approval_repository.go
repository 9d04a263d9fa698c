package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/akfbtn1-netizen/docflow/modules/docs/domain/approval"
	"github.com/akfbtn1-netizen/docflow/modules/docs/domain/docid"
	"github.com/akfbtn1-netizen/docflow/modules/docs/infrastructure/persistence/models"
)

type ApprovalRepository struct {
	db Querier
}

func NewApprovalRepository(db Querier) approval.Repository {
	return &ApprovalRepository{db: db}
}

const queueEntryColumns = `id, doc_id, database_name, schema_name, object_name, object_type, document_type,
	       draft_path, destination_path, status, priority, requester, assignee, resolver,
	       resolution_notes, version, previous_version_id, created_at, updated_at, resolved_at`

func (r *ApprovalRepository) CreateEntry(ctx context.Context, e *approval.QueueEntry) error {
	q := querierFrom(ctx, r.db)
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	e.UpdatedAt = e.CreatedAt
	row := toDBQueueEntry(e)

	_, err := q.Exec(ctx, `
		INSERT INTO approval_queue_entries (`+queueEntryColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`,
		row.ID, row.DocID, row.DatabaseName, row.SchemaName, row.ObjectName, row.ObjectType,
		row.DocumentType, row.DraftPath, row.DestinationPath, row.Status, row.Priority,
		row.Requester, row.Assignee, row.Resolver, row.ResolutionNotes, row.Version,
		row.PreviousVersionID, row.CreatedAt, row.UpdatedAt, row.ResolvedAt,
	)
	return err
}

func scanQueueEntry(row pgx.Row) (*approval.QueueEntry, error) {
	var m models.QueueEntry
	if err := row.Scan(
		&m.ID,
		&m.DocID,
		&m.DatabaseName,
		&m.SchemaName,
		&m.ObjectName,
		&m.ObjectType,
		&m.DocumentType,
		&m.DraftPath,
		&m.DestinationPath,
		&m.Status,
		&m.Priority,
		&m.Requester,
		&m.Assignee,
		&m.Resolver,
		&m.ResolutionNotes,
		&m.Version,
		&m.PreviousVersionID,
		&m.CreatedAt,
		&m.UpdatedAt,
		&m.ResolvedAt,
	); err != nil {
		return nil, err
	}
	return toDomainQueueEntry(&m), nil
}

func (r *ApprovalRepository) GetEntry(ctx context.Context, id uuid.UUID) (*approval.QueueEntry, error) {
	q := querierFrom(ctx, r.db)
	return scanQueueEntry(q.QueryRow(ctx, `
		SELECT `+queueEntryColumns+`
		FROM approval_queue_entries
		WHERE id = $1`,
		id,
	))
}

func (r *ApprovalRepository) GetEntryByDocID(ctx context.Context, id docid.ID) (*approval.QueueEntry, error) {
	q := querierFrom(ctx, r.db)
	return scanQueueEntry(q.QueryRow(ctx, `
		SELECT `+queueEntryColumns+`
		FROM approval_queue_entries
		WHERE doc_id = $1
		ORDER BY version DESC
		LIMIT 1`,
		id.String(),
	))
}

func (r *ApprovalRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to string, resolver string, notes *string) (bool, error) {
	q := querierFrom(ctx, r.db)
	tag, err := q.Exec(ctx, `
		UPDATE approval_queue_entries
		SET status = $1,
		    resolver = $2,
		    resolution_notes = $3,
		    resolved_at = now(),
		    updated_at = now()
		WHERE id = $4 AND status = $5`,
		to, resolver, notes, id, from,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *ApprovalRepository) AppendHistory(ctx context.Context, h *approval.HistoryEntry) error {
	q := querierFrom(ctx, r.db)
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now()
	}

	_, err := q.Exec(ctx, `
		INSERT INTO approval_history_entries
			(id, queue_entry_id, action, action_by, previous_status, new_status, notes,
			 source_path, destination_path, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		h.ID, h.QueueEntryID, h.Action, h.ActionBy, h.PreviousStatus, h.NewStatus,
		h.Notes, h.SourcePath, h.DestinationPath, h.CreatedAt,
	)
	return err
}

func (r *ApprovalRepository) ListHistory(ctx context.Context, entryID uuid.UUID) ([]*approval.HistoryEntry, error) {
	q := querierFrom(ctx, r.db)
	rows, err := q.Query(ctx, `
		SELECT id, queue_entry_id, action, action_by, previous_status, new_status, notes,
		       source_path, destination_path, created_at
		FROM approval_history_entries
		WHERE queue_entry_id = $1
		ORDER BY created_at ASC`,
		entryID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*approval.HistoryEntry
	for rows.Next() {
		var m models.HistoryEntry
		if err := rows.Scan(
			&m.ID,
			&m.QueueEntryID,
			&m.Action,
			&m.ActionBy,
			&m.PreviousStatus,
			&m.NewStatus,
			&m.Notes,
			&m.SourcePath,
			&m.DestinationPath,
			&m.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, toDomainHistoryEntry(&m))
	}
	return result, rows.Err()
}

func (r *ApprovalRepository) CreateEdit(ctx context.Context, e *approval.DocumentEdit) error {
	q := querierFrom(ctx, r.db)
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	_, err := q.Exec(ctx, `
		INSERT INTO document_edits
			(id, queue_entry_id, section_name, original_text, edited_text, reason, category, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.QueueEntryID, e.SectionName, e.OriginalText, e.EditedText, e.Reason, e.Category, e.CreatedAt,
	)
	return err
}

func (r *ApprovalRepository) ListEdits(ctx context.Context, entryID uuid.UUID) ([]*approval.DocumentEdit, error) {
	q := querierFrom(ctx, r.db)
	rows, err := q.Query(ctx, `
		SELECT id, queue_entry_id, section_name, original_text, edited_text, reason, category, created_at
		FROM document_edits
		WHERE queue_entry_id = $1
		ORDER BY created_at ASC`,
		entryID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*approval.DocumentEdit
	for rows.Next() {
		var m models.DocumentEdit
		if err := rows.Scan(
			&m.ID,
			&m.QueueEntryID,
			&m.SectionName,
			&m.OriginalText,
			&m.EditedText,
			&m.Reason,
			&m.Category,
			&m.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, toDomainDocumentEdit(&m))
	}
	return result, rows.Err()
}

func (r *ApprovalRepository) CreateRegenerationRequest(ctx context.Context, req *approval.RegenerationRequest) error {
	q := querierFrom(ctx, r.db)
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now()
	}
	req.UpdatedAt = req.CreatedAt

	_, err := q.Exec(ctx, `
		INSERT INTO regeneration_requests
			(id, queue_entry_id, origin_version, feedback_text, feedback_section, feedback_context,
			 requested_by, status, fulfilled_by_entry_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		req.ID, req.QueueEntryID, req.OriginVersion, req.FeedbackText, req.FeedbackSection,
		req.FeedbackContext, req.RequestedBy, req.Status, uuidPtrStr(req.FulfilledByEntry),
		req.CreatedAt, req.UpdatedAt,
	)
	return err
}
