package services

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/akfbtn1-netizen/docflow/modules/docs/domain/approval"
	"github.com/akfbtn1-netizen/docflow/modules/docs/domain/docid"
	"github.com/akfbtn1-netizen/docflow/pkg/serrors"
)

type approvalFixture struct {
	svc      *ApprovalService
	repo     *memApprovalRepo
	records  *memChangeRepo
	events   *memEventRepo
	queue    *memQueue
	notifier *recordingNotifier
}

func newApprovalFixture() *approvalFixture {
	f := &approvalFixture{
		repo:     newMemApprovalRepo(),
		records:  &memChangeRepo{},
		events:   &memEventRepo{},
		queue:    &memQueue{},
		notifier: &recordingNotifier{},
	}
	f.svc = NewApprovalService(
		f.repo,
		f.records,
		NewEventLogService(f.events, testLog()),
		f.notifier,
		f.queue,
		passthroughTx,
		ApprovalOptions{
			Approvers:       []string{"reviewer@company.com"},
			DestinationRoot: "/srv/docs/final",
		},
		testLog(),
	)
	return f
}

func (f *approvalFixture) pendingEntry(t *testing.T, id docid.ID, objectType string) *approval.QueueEntry {
	t.Helper()
	entry, err := f.svc.Create(context.Background(), CreateParams{
		DocID:        id,
		DatabaseName: "warehouse",
		SchemaName:   "dbo",
		ObjectName:   "usp_monthly_rollup",
		ObjectType:   objectType,
		DocumentType: "Enhancement",
		DraftPath:    "/srv/docs/drafts/" + id.String() + "_usp_monthly_rollup_draft.md",
		Requester:    "requester@company.com",
	})
	require.NoError(t, err)
	return entry
}

func TestCreate_MissingDescriptorIsValidationError(t *testing.T) {
	f := newApprovalFixture()

	_, err := f.svc.Create(context.Background(), CreateParams{
		DocID:      docid.ID("EN-0001"),
		SchemaName: "dbo",
		ObjectName: "usp_monthly_rollup",
		DraftPath:  "/tmp/x_draft.md",
	})
	require.Error(t, err)
	require.Equal(t, "DOCS_VALIDATION", serrors.CodeOf(err))
}

func TestCreate_AssignsApproverAndDestination(t *testing.T) {
	f := newApprovalFixture()
	entry := f.pendingEntry(t, docid.ID("EN-0001"), "StoredProcedure")

	require.Equal(t, approval.StatusPending, entry.Status)
	require.Equal(t, "reviewer@company.com", entry.Assignee)
	require.Equal(t, 1, entry.Version)
	require.Equal(t,
		filepath.Join("/srv/docs/final", "warehouse", "dbo", "Enhancement", "EN-0001_usp_monthly_rollup.md"),
		entry.DestinationPath)

	history, err := f.repo.ListHistory(context.Background(), entry.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, approval.ActionCreated, history[0].Action)
}

func TestApprove_PendingTransitionsToApproved(t *testing.T) {
	f := newApprovalFixture()
	entry := f.pendingEntry(t, docid.ID("EN-0001"), "StoredProcedure")

	approved, err := f.svc.Approve(context.Background(), entry.ID, "alex@company.com", nil)
	require.NoError(t, err)
	require.Equal(t, approval.StatusApproved, approved.Status)
	require.Equal(t, "alex@company.com", approved.Resolver)
	require.NotNil(t, approved.ResolvedAt)

	history, err := f.repo.ListHistory(context.Background(), entry.ID)
	require.NoError(t, err)

	var approvals []*approval.HistoryEntry
	for _, h := range history {
		if h.Action == approval.ActionApproved {
			approvals = append(approvals, h)
		}
	}
	require.Len(t, approvals, 1)
	require.Equal(t, approval.StatusApproved, approvals[0].NewStatus)

	require.Equal(t,
		[]string{TopicApprovalFinalize, TopicApprovalIndex, TopicApprovalRoutineDoc},
		f.queue.topics())
}

func TestApprove_TwiceIsInvalidTransition(t *testing.T) {
	f := newApprovalFixture()
	entry := f.pendingEntry(t, docid.ID("EN-0001"), "Table")

	_, err := f.svc.Approve(context.Background(), entry.ID, "alex@company.com", nil)
	require.NoError(t, err)

	_, err = f.svc.Approve(context.Background(), entry.ID, "alex@company.com", nil)
	require.Error(t, err)
	require.Equal(t, "DOCS_INVALID_TRANSITION", serrors.CodeOf(err))
}

func TestApprove_TableObjectSkipsRoutineDocStep(t *testing.T) {
	f := newApprovalFixture()
	entry := f.pendingEntry(t, docid.ID("EN-0001"), "Table")

	_, err := f.svc.Approve(context.Background(), entry.ID, "alex@company.com", nil)
	require.NoError(t, err)
	require.Equal(t, []string{TopicApprovalFinalize, TopicApprovalIndex}, f.queue.topics())
}

func TestReject_RejectedIsTerminal(t *testing.T) {
	f := newApprovalFixture()
	entry := f.pendingEntry(t, docid.ID("DF-0001"), "StoredProcedure")

	reason := "sections incomplete"
	_, err := f.svc.Reject(context.Background(), entry.ID, "alex@company.com", &reason)
	require.NoError(t, err)

	_, err = f.svc.Reject(context.Background(), entry.ID, "alex@company.com", &reason)
	require.Error(t, err)
	require.Equal(t, "DOCS_INVALID_TRANSITION", serrors.CodeOf(err))

	require.Empty(t, f.queue.topics(), "rejection queues no enrichment")
}

func TestEditAndApprove_RecordsEveryEdit(t *testing.T) {
	f := newApprovalFixture()
	entry := f.pendingEntry(t, docid.ID("EN-0002"), "StoredProcedure")

	edits := []EditParams{
		{SectionName: "Description", OriginalText: "a", EditedText: "b", Reason: "clarity", Category: "wording"},
		{SectionName: "Parameters", OriginalText: "c", EditedText: "d", Reason: "accuracy", Category: "factual"},
		{SectionName: "Returns", OriginalText: "e", EditedText: "f", Reason: "typo", Category: "wording"},
	}
	approved, err := f.svc.EditAndApprove(context.Background(), entry.ID, "alex@company.com", edits, nil)
	require.NoError(t, err)
	require.Equal(t, approval.StatusApproved, approved.Status)

	stored, err := f.repo.ListEdits(context.Background(), entry.ID)
	require.NoError(t, err)
	require.Len(t, stored, 3)

	history, err := f.repo.ListHistory(context.Background(), entry.ID)
	require.NoError(t, err)
	var transitions int
	for _, h := range history {
		if h.NewStatus == approval.StatusApproved {
			transitions++
			require.Contains(t, *h.Notes, "3 section edit(s)")
		}
	}
	require.Equal(t, 1, transitions)
}

func TestRequestRegeneration_AllowedFromPendingAndApproved(t *testing.T) {
	f := newApprovalFixture()

	pending := f.pendingEntry(t, docid.ID("EN-0003"), "StoredProcedure")
	req, err := f.svc.RequestRegeneration(context.Background(), pending.ID, "alex@company.com", FeedbackParams{Text: "expand usage section"})
	require.NoError(t, err)
	require.Equal(t, approval.RegenStatusPending, req.Status)
	require.Equal(t, 1, req.OriginVersion)

	got, err := f.repo.GetEntry(context.Background(), pending.ID)
	require.NoError(t, err)
	require.Equal(t, approval.StatusRegenerating, got.Status)

	approvedEntry := f.pendingEntry(t, docid.ID("EN-0004"), "StoredProcedure")
	_, err = f.svc.Approve(context.Background(), approvedEntry.ID, "alex@company.com", nil)
	require.NoError(t, err)
	_, err = f.svc.RequestRegeneration(context.Background(), approvedEntry.ID, "alex@company.com", FeedbackParams{Text: "refresh after schema change"})
	require.NoError(t, err)
}

func TestRequestRegeneration_RejectedEntryIsRefused(t *testing.T) {
	f := newApprovalFixture()
	entry := f.pendingEntry(t, docid.ID("EN-0005"), "StoredProcedure")

	reason := "not needed"
	_, err := f.svc.Reject(context.Background(), entry.ID, "alex@company.com", &reason)
	require.NoError(t, err)

	_, err = f.svc.RequestRegeneration(context.Background(), entry.ID, "alex@company.com", FeedbackParams{Text: "try again"})
	require.Error(t, err)
	require.Equal(t, "DOCS_INVALID_TRANSITION", serrors.CodeOf(err))
}

func TestCreate_RegeneratedVersionIncrements(t *testing.T) {
	f := newApprovalFixture()
	v1 := f.pendingEntry(t, docid.ID("EN-0006"), "StoredProcedure")

	v2, err := f.svc.Create(context.Background(), CreateParams{
		DocID:             v1.DocID,
		DatabaseName:      v1.DatabaseName,
		SchemaName:        v1.SchemaName,
		ObjectName:        v1.ObjectName,
		ObjectType:        v1.ObjectType,
		DocumentType:      v1.DocumentType,
		DraftPath:         "/srv/docs/drafts/EN-0006_v2_draft.md",
		Requester:         "system",
		PreviousVersionID: &v1.ID,
	})
	require.NoError(t, err)
	require.Equal(t, 2, v2.Version)
	require.Equal(t, v1.ID, *v2.PreviousVersionID)
}

func TestApprove_UnknownEntryIsNotFound(t *testing.T) {
	f := newApprovalFixture()

	_, err := f.svc.Approve(context.Background(), uuid.New(), "alex@company.com", nil)
	require.Error(t, err)
	require.Equal(t, "DOCS_NOT_FOUND", serrors.CodeOf(err))
}

func TestFinalFileName(t *testing.T) {
	cases := []struct {
		draft, object, want string
	}{
		{"/tmp/EN-0001_usp_rollup_draft.md", "usp_rollup", "EN-0001_usp_rollup.md"},
		{"/tmp/draft_report.md", "report", "report.md"},
		{"/tmp/Report.Draft.md", "report", "Report.md"},
		{"/tmp/draft.md", "usp_rollup", "usp_rollup.md"},
		{"/tmp/report.md", "report", "report.md"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, finalFileName(tc.draft, tc.object), "draft %s", tc.draft)
	}
}
