package persistence

import (
	"context"

	"github.com/google/uuid"

	"github.com/akfbtn1-netizen/docflow/modules/docs/domain/docid"
)

// RoutineDocRepository keeps one documentation record per stored routine,
// pointing at its latest published artifact.
type RoutineDocRepository struct {
	db Querier
}

func NewRoutineDocRepository(db Querier) *RoutineDocRepository {
	return &RoutineDocRepository{db: db}
}

func (r *RoutineDocRepository) UpsertRoutineDoc(ctx context.Context, id docid.ID, schemaName, objectName, finalPath string) error {
	q := querierFrom(ctx, r.db)
	_, err := q.Exec(ctx, `
		INSERT INTO routine_docs (id, schema_name, object_name, doc_id, final_path, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (schema_name, object_name) DO UPDATE SET
			doc_id = EXCLUDED.doc_id,
			final_path = EXCLUDED.final_path,
			updated_at = now()`,
		uuid.New(), schemaName, objectName, id.String(), finalPath,
	)
	return err
}
