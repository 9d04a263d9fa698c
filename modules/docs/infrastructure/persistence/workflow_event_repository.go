package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/akfbtn1-netizen/docflow/modules/docs/domain/workflowevent"
	"github.com/akfbtn1-netizen/docflow/modules/docs/infrastructure/persistence/models"
)

type WorkflowEventRepository struct {
	db Querier
}

func NewWorkflowEventRepository(db Querier) workflowevent.Repository {
	return &WorkflowEventRepository{db: db}
}

func (r *WorkflowEventRepository) Append(ctx context.Context, e *workflowevent.Event) error {
	q := querierFrom(ctx, r.db)
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	_, err := q.Exec(ctx, `
		INSERT INTO workflow_events
			(id, workflow_id, event_type, status, message, duration_ms, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.WorkflowID, e.EventType, e.Status, e.Message, e.DurationMS, []byte(e.Metadata), e.CreatedAt,
	)
	return err
}

func (r *WorkflowEventRepository) ListByWorkflowID(ctx context.Context, workflowID string) ([]*workflowevent.Event, error) {
	q := querierFrom(ctx, r.db)
	rows, err := q.Query(ctx, `
		SELECT id, workflow_id, event_type, status, message, duration_ms, metadata, created_at
		FROM workflow_events
		WHERE workflow_id = $1
		ORDER BY created_at ASC`,
		workflowID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*workflowevent.Event
	for rows.Next() {
		var m models.WorkflowEvent
		if err := rows.Scan(
			&m.ID,
			&m.WorkflowID,
			&m.EventType,
			&m.Status,
			&m.Message,
			&m.DurationMS,
			&m.Metadata,
			&m.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, toDomainWorkflowEvent(&m))
	}
	return result, rows.Err()
}
