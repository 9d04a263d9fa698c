package persistence

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/akfbtn1-netizen/docflow/modules/docs/domain/approval"
	"github.com/akfbtn1-netizen/docflow/modules/docs/domain/changerecord"
	"github.com/akfbtn1-netizen/docflow/modules/docs/domain/docid"
	"github.com/akfbtn1-netizen/docflow/modules/docs/domain/workflowevent"
)

func TestChangeRecordRepository_NextUnclaimed_MapsRow(t *testing.T) {
	recordID := uuid.New()
	now := time.Now()

	db := &stubQuerier{
		queryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
			require.Contains(t, sql, "FROM change_records")
			require.Contains(t, sql, "doc_id IS NULL")
			require.Contains(t, sql, "LIMIT 1")
			require.Equal(t, changerecord.StatusCompleted, args[0])
			return stubRow{scan: func(dest ...any) error {
				require.Len(t, dest, 11)
				*dest[0].(*string) = recordID.String()
				*dest[1].(*string) = "BAS-123"
				*dest[2].(*string) = "usp_monthly_rollup"
				*dest[3].(*string) = "dbo"
				*dest[4].(*string) = "warehouse"
				*dest[5].(*string) = "StoredProcedure"
				*dest[6].(*string) = "Enhancement"
				*dest[7].(*string) = "improve rollup speed"
				*dest[8].(*string) = changerecord.StatusCompleted
				*dest[9].(**string) = nil
				*dest[10].(*time.Time) = now
				return nil
			}}
		},
	}

	repo := NewChangeRecordRepository(db)
	record, err := repo.NextUnclaimed(context.Background())
	require.NoError(t, err)
	require.NotNil(t, record)
	require.Equal(t, recordID, record.ID)
	require.Equal(t, "BAS-123", record.CorrelationKey)
	require.Nil(t, record.DocID)
	require.Equal(t, now, record.CreatedAt)
}

func TestChangeRecordRepository_NextUnclaimed_Empty(t *testing.T) {
	db := &stubQuerier{
		queryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
			return stubRow{scan: func(dest ...any) error { return pgx.ErrNoRows }}
		},
	}

	repo := NewChangeRecordRepository(db)
	record, err := repo.NextUnclaimed(context.Background())
	require.NoError(t, err)
	require.Nil(t, record)
}

func TestChangeRecordRepository_ClaimDocID_Conditional(t *testing.T) {
	recordID := uuid.New()

	claims := 0
	db := &stubQuerier{
		execFunc: func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
			require.Contains(t, sql, "doc_id IS NULL")
			require.Equal(t, "EN-0001", args[0])
			require.Equal(t, recordID, args[1])
			claims++
			if claims == 1 {
				return pgconn.NewCommandTag("UPDATE 1"), nil
			}
			// Second claim sees the predicate fail.
			return pgconn.NewCommandTag("UPDATE 0"), nil
		},
	}

	repo := NewChangeRecordRepository(db)

	ok, err := repo.ClaimDocID(context.Background(), recordID, docid.ID("EN-0001"))
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.ClaimDocID(context.Background(), recordID, docid.ID("EN-0001"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestApprovalRepository_TransitionStatus_Conditional(t *testing.T) {
	entryID := uuid.New()

	db := &stubQuerier{
		execFunc: func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
			require.Contains(t, sql, "UPDATE approval_queue_entries")
			require.Contains(t, sql, "status = $5")
			require.Equal(t, approval.StatusApproved, args[0])
			require.Equal(t, "alex@company.com", args[1])
			require.Equal(t, entryID, args[3])
			require.Equal(t, approval.StatusPending, args[4])
			return pgconn.NewCommandTag("UPDATE 1"), nil
		},
	}

	repo := NewApprovalRepository(db)
	ok, err := repo.TransitionStatus(context.Background(), entryID, approval.StatusPending, approval.StatusApproved, "alex@company.com", nil)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestApprovalRepository_CreateEntry_FillsDefaults(t *testing.T) {
	var inserted []any
	db := &stubQuerier{
		execFunc: func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
			require.Contains(t, sql, "INSERT INTO approval_queue_entries")
			inserted = args
			return pgconn.NewCommandTag("INSERT 0 1"), nil
		},
	}

	repo := NewApprovalRepository(db)
	entry := &approval.QueueEntry{
		DocID:        docid.ID("EN-0001"),
		DatabaseName: "warehouse",
		SchemaName:   "dbo",
		ObjectName:   "usp_monthly_rollup",
		Status:       approval.StatusPending,
		Version:      1,
	}
	require.NoError(t, repo.CreateEntry(context.Background(), entry))
	require.NotEqual(t, uuid.Nil, entry.ID)
	require.False(t, entry.CreatedAt.IsZero())
	require.Len(t, inserted, 20)
	require.Equal(t, "EN-0001", inserted[1])
}

func TestApprovalRepository_ListHistory_MapsRows(t *testing.T) {
	entryID := uuid.New()
	now := time.Now()

	db := &stubQuerier{
		queryFunc: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
			require.Contains(t, sql, "FROM approval_history_entries")
			require.Equal(t, entryID, args[0])
			return &stubRows{data: [][]any{
				{uuid.NewString(), entryID.String(), approval.ActionApproved, "alex@company.com",
					approval.StatusPending, approval.StatusApproved, (*string)(nil), (*string)(nil), (*string)(nil), now},
			}}, nil
		},
	}

	repo := NewApprovalRepository(db)
	history, err := repo.ListHistory(context.Background(), entryID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, approval.ActionApproved, history[0].Action)
	require.Equal(t, "alex@company.com", history[0].ActionBy)
	require.Equal(t, approval.StatusApproved, history[0].NewStatus)
}

func TestWorkflowEventRepository_Append(t *testing.T) {
	var inserted []any
	db := &stubQuerier{
		execFunc: func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
			require.Contains(t, sql, "INSERT INTO workflow_events")
			inserted = args
			return pgconn.NewCommandTag("INSERT 0 1"), nil
		},
	}

	repo := NewWorkflowEventRepository(db)
	event := &workflowevent.Event{
		WorkflowID: "WF-EN-0001",
		EventType:  workflowevent.TypeWorkflowCompleted,
		Status:     workflowevent.StatusCompleted,
		Message:    "done",
	}
	require.NoError(t, repo.Append(context.Background(), event))
	require.NotEqual(t, uuid.Nil, event.ID)
	require.Equal(t, "WF-EN-0001", inserted[1])
}

func TestWithQuerier_OverridesDefault(t *testing.T) {
	outer := &stubQuerier{
		execFunc: func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
			t.Fatal("default querier must not be used when ctx carries one")
			return pgconn.CommandTag{}, nil
		},
	}
	inner := &stubQuerier{
		execFunc: func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
			return pgconn.NewCommandTag("UPDATE 1"), nil
		},
	}

	repo := NewChangeRecordRepository(outer)
	ctx := WithQuerier(context.Background(), inner)
	ok, err := repo.ClaimDocID(ctx, uuid.New(), docid.ID("DOC-0001"))
	require.NoError(t, err)
	require.True(t, ok)
}

type stubQuerier struct {
	execFunc     func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	queryFunc    func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	queryRowFunc func(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *stubQuerier) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if s.execFunc == nil {
		return pgconn.CommandTag{}, errors.New("exec not implemented")
	}
	return s.execFunc(ctx, sql, args...)
}

func (s *stubQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if s.queryFunc == nil {
		return nil, errors.New("query not implemented")
	}
	return s.queryFunc(ctx, sql, args...)
}

func (s *stubQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if s.queryRowFunc == nil {
		return stubRow{scan: func(dest ...any) error { return errors.New("query row not implemented") }}
	}
	return s.queryRowFunc(ctx, sql, args...)
}

type stubRows struct {
	data [][]any
	idx  int
	err  error
}

func (r *stubRows) Next() bool {
	if r.idx >= len(r.data) {
		return false
	}
	r.idx++
	return true
}

func (r *stubRows) Scan(dest ...any) error {
	if r.idx == 0 || r.idx > len(r.data) {
		return errors.New("no current row to scan")
	}
	row := r.data[r.idx-1]
	if len(dest) != len(row) {
		return fmt.Errorf("destination length %d does not match row length %d", len(dest), len(row))
	}
	for i, target := range dest {
		switch v := target.(type) {
		case *string:
			*v = row[i].(string)
		case **string:
			*v = row[i].(*string)
		case *int:
			*v = row[i].(int)
		case *time.Time:
			*v = row[i].(time.Time)
		case **time.Time:
			*v = row[i].(*time.Time)
		case *[]byte:
			*v = row[i].([]byte)
		case **int64:
			*v = row[i].(*int64)
		default:
			return fmt.Errorf("unsupported scan target %T", target)
		}
	}
	return nil
}

func (r *stubRows) Values() ([]any, error) {
	if r.idx == 0 || r.idx > len(r.data) {
		return nil, errors.New("no current row")
	}
	return r.data[r.idx-1], nil
}

func (r *stubRows) RawValues() [][]byte { return nil }
func (r *stubRows) Err() error          { return r.err }
func (r *stubRows) Close()              {}
func (r *stubRows) CommandTag() pgconn.CommandTag {
	return pgconn.CommandTag{}
}
func (r *stubRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *stubRows) Conn() *pgx.Conn                              { return nil }

type stubRow struct {
	scan func(dest ...any) error
}

func (r stubRow) Scan(dest ...any) error {
	if r.scan == nil {
		return errors.New("scan not implemented")
	}
	return r.scan(dest...)
}
