package services

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/akfbtn1-netizen/docflow/modules/docs/domain/approval"
	"github.com/akfbtn1-netizen/docflow/modules/docs/domain/changerecord"
	"github.com/akfbtn1-netizen/docflow/modules/docs/domain/docid"
	"github.com/akfbtn1-netizen/docflow/modules/docs/domain/workflowevent"
	"github.com/akfbtn1-netizen/docflow/modules/docs/infrastructure/persistence"
	"github.com/akfbtn1-netizen/docflow/pkg/serrors"
)

// TxRunner runs fn with every repository call joined into one transaction.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

// PgxTxRunner is the production TxRunner. Tests substitute a pass-through.
func PgxTxRunner(pool *pgxpool.Pool) TxRunner {
	return func(ctx context.Context, fn func(ctx context.Context) error) error {
		return persistence.InTx(ctx, pool, fn)
	}
}

// ApprovalOptions carries deployment-level approval policy.
type ApprovalOptions struct {
	// Approvers is the ordered approver pool; the first entry is assigned to
	// new queue entries. Empty pool assigns the unassigned sentinel.
	Approvers []string
	// DestinationRoot is the directory final artifacts are published under.
	DestinationRoot string
}

type CreateParams struct {
	DocID             docid.ID
	DatabaseName      string
	SchemaName        string
	ObjectName        string
	ObjectType        string
	DocumentType      string
	DraftPath         string
	Priority          string
	Requester         string
	PreviousVersionID *uuid.UUID
}

type EditParams struct {
	SectionName  string
	OriginalText string
	EditedText   string
	Reason       string
	Category     string
}

type FeedbackParams struct {
	Text    string
	Section string
	Context string
}

// ApprovalService owns the approval queue entry state machine:
// Pending (initial) -> Approved | Rejected (terminal) | Regenerating.
// The status write plus its primary history entry are transactional and
// failure-propagating; everything after a committed transition is enrichment
// recorded on the outbox and executed with independent retry.
type ApprovalService struct {
	repo    approval.Repository
	records changerecord.Repository
	events  *EventLogService
	notify  *asyncNotifier
	queue   EnrichmentQueue
	inTx    TxRunner
	opts    ApprovalOptions
	log     *logrus.Entry
}

func NewApprovalService(
	repo approval.Repository,
	records changerecord.Repository,
	events *EventLogService,
	notifier Notifier,
	queue EnrichmentQueue,
	inTx TxRunner,
	opts ApprovalOptions,
	log *logrus.Entry,
) *ApprovalService {
	l := log.WithField("component", "approval")
	return &ApprovalService{
		repo:    repo,
		records: records,
		events:  events,
		notify:  newAsyncNotifier(notifier, l),
		queue:   queue,
		inTx:    inTx,
		opts:    opts,
		log:     l,
	}
}

// Create queues a draft for human decision. The entry starts Pending and is
// assigned the first configured approver.
func (s *ApprovalService) Create(ctx context.Context, params CreateParams) (*approval.QueueEntry, error) {
	for field, value := range map[string]string{
		"docId":        params.DocID.String(),
		"databaseName": params.DatabaseName,
		"schemaName":   params.SchemaName,
		"objectName":   params.ObjectName,
		"draftPath":    params.DraftPath,
	} {
		if strings.TrimSpace(value) == "" {
			return nil, serrors.NewFieldRequiredError(field)
		}
	}

	documentType := params.DocumentType
	if documentType == "" {
		documentType = "General"
	}

	version := 1
	if params.PreviousVersionID != nil {
		prev, err := s.repo.GetEntry(ctx, *params.PreviousVersionID)
		if err != nil {
			return nil, mapStoreError(err)
		}
		version = prev.Version + 1
	}

	entry := &approval.QueueEntry{
		DocID:             params.DocID,
		DatabaseName:      params.DatabaseName,
		SchemaName:        params.SchemaName,
		ObjectName:        params.ObjectName,
		ObjectType:        params.ObjectType,
		DocumentType:      documentType,
		DraftPath:         params.DraftPath,
		DestinationPath:   s.destinationPath(params, documentType),
		Status:            approval.StatusPending,
		Priority:          params.Priority,
		Requester:         params.Requester,
		Assignee:          s.firstApprover(),
		Version:           version,
		PreviousVersionID: params.PreviousVersionID,
	}

	err := s.inTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.CreateEntry(txCtx, entry); err != nil {
			return mapStoreError(err)
		}
		return s.appendHistory(txCtx, entry.ID, approval.ActionCreated, params.Requester,
			"", approval.StatusPending, nil, nil, nil)
	})
	if err != nil {
		return nil, err
	}

	s.events.Append(ctx, &workflowevent.Event{
		WorkflowID: entry.DocID.WorkflowID(),
		EventType:  workflowevent.TypeApprovalCreated,
		Status:     workflowevent.StatusCompleted,
		Message:    fmt.Sprintf("%s queued for approval (version %d), assigned to %s", entry.DocID, entry.Version, entry.Assignee),
		Metadata:   mustMetadata(map[string]any{"entry_id": entry.ID, "version": entry.Version}),
	})
	s.notify.send(ctx, Notification{
		Recipient: entry.Assignee,
		Title:     "Documentation approval requested",
		Body:      fmt.Sprintf("%s %s.%s.%s is awaiting review", entry.DocID, entry.DatabaseName, entry.SchemaName, entry.ObjectName),
		Severity:  SeverityInfo,
		DocID:     entry.DocID,
	})
	return entry, nil
}

// Approve requires current status Pending. On success the finalize, index and
// (for stored routines) routine-doc enrichment steps are queued in the same
// transaction as the status flip.
func (s *ApprovalService) Approve(ctx context.Context, entryID uuid.UUID, approver string, notes *string) (*approval.QueueEntry, error) {
	if strings.TrimSpace(approver) == "" {
		return nil, serrors.NewFieldRequiredError("approver")
	}

	entry, err := s.pendingEntry(ctx, entryID, "Approve")
	if err != nil {
		return nil, err
	}
	return s.resolve(ctx, entry, "Approve", approval.StatusApproved, approval.ActionApproved, approver, notes, true)
}

// Reject requires current status Pending. Rejected is terminal.
func (s *ApprovalService) Reject(ctx context.Context, entryID uuid.UUID, approver string, reason *string) (*approval.QueueEntry, error) {
	if strings.TrimSpace(approver) == "" {
		return nil, serrors.NewFieldRequiredError("approver")
	}

	entry, err := s.pendingEntry(ctx, entryID, "Reject")
	if err != nil {
		return nil, err
	}
	return s.resolve(ctx, entry, "Reject", approval.StatusRejected, approval.ActionRejected, approver, reason, false)
}

// EditAndApprove is a superset of Approve that also persists the reviewer's
// section edits for downstream content-model feedback.
func (s *ApprovalService) EditAndApprove(ctx context.Context, entryID uuid.UUID, approver string, edits []EditParams, notes *string) (*approval.QueueEntry, error) {
	if strings.TrimSpace(approver) == "" {
		return nil, serrors.NewFieldRequiredError("approver")
	}

	entry, err := s.pendingEntry(ctx, entryID, "EditAndApprove")
	if err != nil {
		return nil, err
	}

	editNote := fmt.Sprintf("approved with %d section edit(s)", len(edits))
	if notes != nil && *notes != "" {
		editNote = editNote + ": " + *notes
	}

	err = s.inTx(ctx, func(txCtx context.Context) error {
		for _, e := range edits {
			if err := s.repo.CreateEdit(txCtx, &approval.DocumentEdit{
				QueueEntryID: entry.ID,
				SectionName:  e.SectionName,
				OriginalText: e.OriginalText,
				EditedText:   e.EditedText,
				Reason:       e.Reason,
				Category:     e.Category,
			}); err != nil {
				return mapStoreError(err)
			}
		}
		return s.transition(txCtx, entry, "EditAndApprove", approval.StatusApproved, approval.ActionApproved, approver, &editNote, true)
	})
	if err != nil {
		return nil, err
	}

	s.afterResolution(ctx, entry, approval.StatusApproved, approver, &editNote)
	return entry, nil
}

// RequestRegeneration is permitted from Pending and Approved; Rejected is
// terminal and already-regenerating entries must resolve through their new
// version first. The request itself is fulfilled by an external collaborator
// watching for Pending regeneration requests.
func (s *ApprovalService) RequestRegeneration(ctx context.Context, entryID uuid.UUID, requestedBy string, fb FeedbackParams) (*approval.RegenerationRequest, error) {
	if strings.TrimSpace(requestedBy) == "" {
		return nil, serrors.NewFieldRequiredError("requestedBy")
	}
	if strings.TrimSpace(fb.Text) == "" {
		return nil, serrors.NewFieldRequiredError("feedbackText")
	}

	entry, err := s.repo.GetEntry(ctx, entryID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	if entry.Status != approval.StatusPending && entry.Status != approval.StatusApproved {
		return nil, serrors.NewInvalidTransitionError("RequestRegeneration", entry.Status)
	}

	req := &approval.RegenerationRequest{
		QueueEntryID:    entry.ID,
		OriginVersion:   entry.Version,
		FeedbackText:    fb.Text,
		FeedbackSection: fb.Section,
		FeedbackContext: fb.Context,
		RequestedBy:     requestedBy,
		Status:          approval.RegenStatusPending,
	}

	err = s.inTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.CreateRegenerationRequest(txCtx, req); err != nil {
			return mapStoreError(err)
		}
		return s.transition(txCtx, entry, "RequestRegeneration", approval.StatusRegenerating, approval.ActionRegenerated, requestedBy, &fb.Text, false)
	})
	if err != nil {
		return nil, err
	}

	s.events.Append(ctx, &workflowevent.Event{
		WorkflowID: entry.DocID.WorkflowID(),
		EventType:  workflowevent.TypeRegenerationRequested,
		Status:     workflowevent.StatusCompleted,
		Message:    fmt.Sprintf("regeneration of %s requested by %s (version %d)", entry.DocID, requestedBy, entry.Version),
		Metadata:   mustMetadata(map[string]any{"entry_id": entry.ID, "request_id": req.ID, "origin_version": entry.Version}),
	})
	s.notify.send(ctx, Notification{
		Recipient: entry.Requester,
		Title:     "Documentation regeneration requested",
		Body:      fmt.Sprintf("a new version of %s was requested: %s", entry.DocID, fb.Text),
		Severity:  SeverityInfo,
		DocID:     entry.DocID,
	})
	return req, nil
}

func (s *ApprovalService) Entry(ctx context.Context, entryID uuid.UUID) (*approval.QueueEntry, error) {
	entry, err := s.repo.GetEntry(ctx, entryID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return entry, nil
}

func (s *ApprovalService) History(ctx context.Context, entryID uuid.UUID) ([]*approval.HistoryEntry, error) {
	history, err := s.repo.ListHistory(ctx, entryID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return history, nil
}

func (s *ApprovalService) Edits(ctx context.Context, entryID uuid.UUID) ([]*approval.DocumentEdit, error) {
	edits, err := s.repo.ListEdits(ctx, entryID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return edits, nil
}

func (s *ApprovalService) pendingEntry(ctx context.Context, entryID uuid.UUID, operation string) (*approval.QueueEntry, error) {
	entry, err := s.repo.GetEntry(ctx, entryID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	if entry.Status != approval.StatusPending {
		return nil, serrors.NewInvalidTransitionError(operation, entry.Status)
	}
	return entry, nil
}

func (s *ApprovalService) resolve(ctx context.Context, entry *approval.QueueEntry, operation, to, action, resolver string, notes *string, enrich bool) (*approval.QueueEntry, error) {
	err := s.inTx(ctx, func(txCtx context.Context) error {
		return s.transition(txCtx, entry, operation, to, action, resolver, notes, enrich)
	})
	if err != nil {
		return nil, err
	}

	s.afterResolution(ctx, entry, to, resolver, notes)
	return entry, nil
}

// transition performs the conditional status flip plus its primary history
// entry, and queues enrichment when asked. Runs inside the caller's
// transaction; any error here rolls the whole decision back.
func (s *ApprovalService) transition(ctx context.Context, entry *approval.QueueEntry, operation, to, action, resolver string, notes *string, enrich bool) error {
	from := entry.Status
	ok, err := s.repo.TransitionStatus(ctx, entry.ID, from, to, resolver, notes)
	if err != nil {
		return mapStoreError(err)
	}
	if !ok {
		// Lost the race to a concurrent decision on the same entry.
		current := "unknown"
		if cur, err := s.repo.GetEntry(ctx, entry.ID); err == nil {
			current = cur.Status
		}
		return serrors.NewInvalidTransitionError(operation, current)
	}

	if err := s.appendHistory(ctx, entry.ID, action, resolver, from, to, notes, nil, nil); err != nil {
		return err
	}

	if enrich {
		if err := s.enqueueEnrichment(ctx, entry, resolver); err != nil {
			return err
		}
	}

	now := time.Now()
	entry.Status = to
	entry.Resolver = resolver
	entry.ResolutionNotes = notes
	entry.ResolvedAt = &now
	entry.UpdatedAt = now
	return nil
}

func (s *ApprovalService) appendHistory(ctx context.Context, entryID uuid.UUID, action, actor, from, to string, notes, sourcePath, destinationPath *string) error {
	if err := s.repo.AppendHistory(ctx, &approval.HistoryEntry{
		QueueEntryID:    entryID,
		Action:          action,
		ActionBy:        actor,
		PreviousStatus:  from,
		NewStatus:       to,
		Notes:           notes,
		SourcePath:      sourcePath,
		DestinationPath: destinationPath,
	}); err != nil {
		return mapStoreError(err)
	}
	return nil
}

func (s *ApprovalService) enqueueEnrichment(ctx context.Context, entry *approval.QueueEntry, approver string) error {
	task := EnrichmentTask{
		EntryID:        entry.ID,
		DocID:          entry.DocID.String(),
		WorkflowID:     entry.DocID.WorkflowID(),
		CorrelationKey: s.correlationKeyFor(ctx, entry.DocID),
		Approver:       approver,
		DraftPath:      entry.DraftPath,
		FinalPath:      entry.DestinationPath,
		DatabaseName:   entry.DatabaseName,
		SchemaName:     entry.SchemaName,
		ObjectName:     entry.ObjectName,
		ObjectType:     entry.ObjectType,
	}

	topics := []string{TopicApprovalFinalize, TopicApprovalIndex}
	if isStoredRoutine(entry.ObjectType) {
		topics = append(topics, TopicApprovalRoutineDoc)
	}
	for _, topic := range topics {
		if err := s.queue.Enqueue(ctx, topic, task); err != nil {
			return fmt.Errorf("queue enrichment %s: %w", topic, err)
		}
	}
	return nil
}

// correlationKeyFor is best-effort: an entry created outside the watcher path
// may have no originating change record.
func (s *ApprovalService) correlationKeyFor(ctx context.Context, id docid.ID) string {
	record, err := s.records.GetByDocID(ctx, id)
	if err != nil {
		s.log.WithError(err).WithField("doc_id", id.String()).Warn("correlation key lookup failed")
		return ""
	}
	if record == nil {
		return ""
	}
	return record.CorrelationKey
}

func (s *ApprovalService) afterResolution(ctx context.Context, entry *approval.QueueEntry, to, resolver string, notes *string) {
	s.events.Append(ctx, &workflowevent.Event{
		WorkflowID: entry.DocID.WorkflowID(),
		EventType:  workflowevent.TypeApprovalDecision,
		Status:     workflowevent.StatusCompleted,
		Message:    fmt.Sprintf("%s %s by %s", entry.DocID, strings.ToLower(to), resolver),
		Metadata:   mustMetadata(map[string]any{"entry_id": entry.ID, "status": to, "resolver": resolver}),
	})

	body := fmt.Sprintf("%s was %s by %s", entry.DocID, strings.ToLower(to), resolver)
	if notes != nil && *notes != "" {
		body = body + ": " + *notes
	}
	s.notify.send(ctx, Notification{
		Recipient: entry.Requester,
		Title:     "Documentation " + strings.ToLower(to),
		Body:      body,
		Severity:  SeverityInfo,
		DocID:     entry.DocID,
	})
}

func (s *ApprovalService) firstApprover() string {
	for _, a := range s.opts.Approvers {
		if strings.TrimSpace(a) != "" {
			return a
		}
	}
	return approval.Unassigned
}

// Most specific marker first so the separator is removed with the word.
var draftMarkerRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)[._-]draft`),
	regexp.MustCompile(`(?i)draft[_-]`),
	regexp.MustCompile(`(?i)draft`),
}

// finalFileName derives the published filename from the draft filename by
// removing the first "draft" marker.
func finalFileName(draftPath, objectName string) string {
	base := filepath.Base(draftPath)
	if base == "" || base == "." || base == string(filepath.Separator) {
		return objectName + ".md"
	}
	for _, re := range draftMarkerRes {
		loc := re.FindStringIndex(base)
		if loc == nil {
			continue
		}
		cleaned := base[:loc[0]] + base[loc[1]:]
		if cleaned == "" || strings.HasPrefix(cleaned, ".") {
			return objectName + ".md"
		}
		return cleaned
	}
	return base
}

func (s *ApprovalService) destinationPath(params CreateParams, documentType string) string {
	return filepath.Join(
		s.opts.DestinationRoot,
		params.DatabaseName,
		params.SchemaName,
		documentType,
		finalFileName(params.DraftPath, params.ObjectName),
	)
}
