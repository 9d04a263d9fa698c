package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/akfbtn1-netizen/docflow/modules/docs/domain/approval"
	"github.com/akfbtn1-netizen/docflow/modules/docs/domain/changerecord"
	"github.com/akfbtn1-netizen/docflow/modules/docs/domain/workflowevent"
)

// Exercises the full internal path: a completed change record is claimed by
// the watcher, flows through extraction and draft generation into the
// approval queue, and an approval decision records history, events, and the
// enrichment steps.
func TestWorkflow_RecordToApprovedEndToEnd(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	records := &memChangeRepo{}
	records.add(&changerecord.ChangeRecord{
		CorrelationKey: "BAS-123",
		ObjectName:     "usp_monthly_rollup",
		SchemaName:     "dbo",
		DatabaseName:   "warehouse",
		ObjectType:     "StoredProcedure",
		ChangeType:     "Enhancement",
		Description:    "add rollup window",
		Status:         changerecord.StatusCompleted,
	})

	events := &memEventRepo{}
	eventLog := NewEventLogService(events, testLog())
	notifier := &recordingNotifier{}
	queue := &memQueue{}
	approvalRepo := newMemApprovalRepo()

	approvals := NewApprovalService(approvalRepo, records, eventLog, notifier, queue, passthroughTx,
		ApprovalOptions{Approvers: []string{"alex@company.com"}, DestinationRoot: t.TempDir()}, testLog())

	source := &stubSource{fn: func(context.Context, string) (string, error) {
		return "-- BEGIN DOC BAS-123\nCREATE PROCEDURE dbo.usp_monthly_rollup AS SELECT 1;\n-- END DOC BAS-123", nil
	}}
	extraction := NewExtractionService(source, eventLog, notifier, time.Millisecond, testLog())
	pipeline := NewDraftPipeline(extraction, &stubGenerator{}, approvals, eventLog, 4, testLog())
	go func() { _ = pipeline.Run(ctx) }()

	ids := NewIdentifierService(&memRegistry{records: records}, testLog())
	watcher := NewWatcherService(records, ids, eventLog, pipeline, time.Hour, testLog())

	watcher.Tick(ctx)

	claimed, err := records.GetByDocID(ctx, "EN-0001")
	require.NoError(t, err)
	require.NotNil(t, claimed, "enhancement record claims EN-0001")

	var entry *approval.QueueEntry
	require.Eventually(t, func() bool {
		e, err := approvalRepo.GetEntryByDocID(context.Background(), "EN-0001")
		if err != nil {
			return false
		}
		entry = e
		return true
	}, 2*time.Second, 10*time.Millisecond, "pipeline admits the draft to the approval queue")

	require.Equal(t, approval.StatusPending, entry.Status)
	require.Equal(t, "Enhancement", entry.DocumentType)
	require.Equal(t, "alex@company.com", entry.Assignee)

	approved, err := approvals.Approve(ctx, entry.ID, "alex@company.com", nil)
	require.NoError(t, err)
	require.Equal(t, approval.StatusApproved, approved.Status)

	history, err := approvalRepo.ListHistory(ctx, entry.ID)
	require.NoError(t, err)
	var decisions []*approval.HistoryEntry
	for _, h := range history {
		if h.Action == approval.ActionApproved {
			decisions = append(decisions, h)
		}
	}
	require.Len(t, decisions, 1)
	require.Equal(t, "alex@company.com", decisions[0].ActionBy)

	workflow, err := events.ListByWorkflowID(ctx, "WF-EN-0001")
	require.NoError(t, err)
	byType := map[string]bool{}
	for _, e := range workflow {
		byType[e.EventType] = true
	}
	require.True(t, byType[workflowevent.TypeWatcherDetectedNewRow])
	require.True(t, byType[workflowevent.TypeCodeExtraction])
	require.True(t, byType[workflowevent.TypeApprovalCreated])
	require.True(t, byType[workflowevent.TypeApprovalDecision])

	require.Equal(t, []string{TopicApprovalFinalize, TopicApprovalIndex, TopicApprovalRoutineDoc}, queue.topics())
	require.Equal(t, "BAS-123", queue.items[0].task.CorrelationKey)
}
