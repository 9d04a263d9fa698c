package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/akfbtn1-netizen/docflow/modules/docs/domain/changerecord"
	"github.com/akfbtn1-netizen/docflow/modules/docs/domain/docid"
	"github.com/akfbtn1-netizen/docflow/modules/docs/infrastructure/persistence/models"
)

type ChangeRecordRepository struct {
	db Querier
}

func NewChangeRecordRepository(db Querier) changerecord.Repository {
	return &ChangeRecordRepository{db: db}
}

const changeRecordColumns = `id, correlation_key, object_name, schema_name, database_name, object_type,
	       change_type, description, status, doc_id, created_at`

func scanChangeRecord(row pgx.Row) (*changerecord.ChangeRecord, error) {
	var m models.ChangeRecord
	if err := row.Scan(
		&m.ID,
		&m.CorrelationKey,
		&m.ObjectName,
		&m.SchemaName,
		&m.DatabaseName,
		&m.ObjectType,
		&m.ChangeType,
		&m.Description,
		&m.Status,
		&m.DocID,
		&m.CreatedAt,
	); err != nil {
		return nil, err
	}
	return toDomainChangeRecord(&m), nil
}

func (r *ChangeRecordRepository) NextUnclaimed(ctx context.Context) (*changerecord.ChangeRecord, error) {
	q := querierFrom(ctx, r.db)
	record, err := scanChangeRecord(q.QueryRow(ctx, `
		SELECT `+changeRecordColumns+`
		FROM change_records
		WHERE status = $1 AND doc_id IS NULL
		ORDER BY created_at ASC
		LIMIT 1`,
		changerecord.StatusCompleted,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (r *ChangeRecordRepository) ClaimDocID(ctx context.Context, recordID uuid.UUID, id docid.ID) (bool, error) {
	q := querierFrom(ctx, r.db)
	tag, err := q.Exec(ctx, `
		UPDATE change_records
		SET doc_id = $1
		WHERE id = $2 AND doc_id IS NULL`,
		id.String(), recordID,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *ChangeRecordRepository) GetByID(ctx context.Context, recordID uuid.UUID) (*changerecord.ChangeRecord, error) {
	q := querierFrom(ctx, r.db)
	return scanChangeRecord(q.QueryRow(ctx, `
		SELECT `+changeRecordColumns+`
		FROM change_records
		WHERE id = $1`,
		recordID,
	))
}

func (r *ChangeRecordRepository) GetByDocID(ctx context.Context, id docid.ID) (*changerecord.ChangeRecord, error) {
	q := querierFrom(ctx, r.db)
	record, err := scanChangeRecord(q.QueryRow(ctx, `
		SELECT `+changeRecordColumns+`
		FROM change_records
		WHERE doc_id = $1`,
		id.String(),
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}
