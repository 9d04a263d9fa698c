package persistence

import (
	"context"

	"github.com/akfbtn1-netizen/docflow/modules/docs/domain/docid"
)

// DocIDRegistry answers identifier-uniqueness questions against the store.
// Identifiers live both on claimed change records and on queue entries, so
// both tables participate.
type DocIDRegistry struct {
	db Querier
}

func NewDocIDRegistry(db Querier) docid.Registry {
	return &DocIDRegistry{db: db}
}

func (r *DocIDRegistry) MaxSequence(ctx context.Context, prefix docid.Prefix) (int, error) {
	q := querierFrom(ctx, r.db)

	// doc ids are "{prefix}-{zero-padded sequence}"; the substring after the
	// dash sorts numerically once cast.
	var maxSeq int
	err := q.QueryRow(ctx, `
		SELECT COALESCE(MAX(seq), 0) FROM (
			SELECT CAST(SPLIT_PART(doc_id, '-', 2) AS INTEGER) AS seq
			FROM change_records
			WHERE doc_id LIKE $1 || '-%'
			UNION ALL
			SELECT CAST(SPLIT_PART(doc_id, '-', 2) AS INTEGER) AS seq
			FROM approval_queue_entries
			WHERE doc_id LIKE $1 || '-%'
		) seqs`,
		string(prefix),
	).Scan(&maxSeq)
	if err != nil {
		return 0, err
	}
	return maxSeq, nil
}

func (r *DocIDRegistry) Exists(ctx context.Context, id docid.ID) (bool, error) {
	q := querierFrom(ctx, r.db)

	var exists bool
	err := q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM change_records WHERE doc_id = $1
			UNION ALL
			SELECT 1 FROM approval_queue_entries WHERE doc_id = $1
		)`,
		id.String(),
	).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}
