package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/akfbtn1-netizen/docflow/modules/docs/domain/approval"
	"github.com/akfbtn1-netizen/docflow/modules/docs/domain/changerecord"
	"github.com/akfbtn1-netizen/docflow/modules/docs/domain/docid"
	"github.com/akfbtn1-netizen/docflow/modules/docs/domain/workflowevent"
)

func testLog() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(l)
}

func passthroughTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type memEventRepo struct {
	mu     sync.Mutex
	events []*workflowevent.Event
	fail   error
}

func (r *memEventRepo) Append(_ context.Context, e *workflowevent.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	cp := *e
	r.events = append(r.events, &cp)
	return nil
}

func (r *memEventRepo) ListByWorkflowID(_ context.Context, workflowID string) ([]*workflowevent.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*workflowevent.Event
	for _, e := range r.events {
		if e.WorkflowID == workflowID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memEventRepo) byType(eventType string) []*workflowevent.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*workflowevent.Event
	for _, e := range r.events {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

type memChangeRepo struct {
	mu      sync.Mutex
	records []*changerecord.ChangeRecord
}

func (r *memChangeRepo) add(record *changerecord.ChangeRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	r.records = append(r.records, record)
}

func (r *memChangeRepo) NextUnclaimed(context.Context) (*changerecord.ChangeRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var oldest *changerecord.ChangeRecord
	for _, rec := range r.records {
		if rec.Status != changerecord.StatusCompleted || rec.DocID != nil {
			continue
		}
		if oldest == nil || rec.CreatedAt.Before(oldest.CreatedAt) {
			oldest = rec
		}
	}
	if oldest == nil {
		return nil, nil
	}
	cp := *oldest
	return &cp, nil
}

func (r *memChangeRepo) ClaimDocID(_ context.Context, recordID uuid.UUID, id docid.ID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.ID == recordID {
			if rec.DocID != nil {
				return false, nil
			}
			rec.DocID = &id
			return true, nil
		}
	}
	return false, nil
}

func (r *memChangeRepo) GetByID(_ context.Context, recordID uuid.UUID) (*changerecord.ChangeRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.ID == recordID {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memChangeRepo) GetByDocID(_ context.Context, id docid.ID) (*changerecord.ChangeRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.DocID != nil && *rec.DocID == id {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, nil
}

// memRegistry derives assigned ids from the change records, mirroring how the
// store-backed registry reads claimed ids back.
type memRegistry struct {
	records *memChangeRepo
	extra   map[docid.ID]bool
}

func (r *memRegistry) assigned() map[docid.ID]bool {
	out := map[docid.ID]bool{}
	r.records.mu.Lock()
	for _, rec := range r.records.records {
		if rec.DocID != nil {
			out[*rec.DocID] = true
		}
	}
	r.records.mu.Unlock()
	for id := range r.extra {
		out[id] = true
	}
	return out
}

func (r *memRegistry) MaxSequence(_ context.Context, prefix docid.Prefix) (int, error) {
	maxSeq := 0
	for id := range r.assigned() {
		p, seq, err := docid.Parse(id.String())
		if err != nil || p != prefix {
			continue
		}
		if seq > maxSeq {
			maxSeq = seq
		}
	}
	return maxSeq, nil
}

func (r *memRegistry) Exists(_ context.Context, id docid.ID) (bool, error) {
	return r.assigned()[id], nil
}

type memApprovalRepo struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*approval.QueueEntry
	history []*approval.HistoryEntry
	edits   []*approval.DocumentEdit
	regens  []*approval.RegenerationRequest
}

func newMemApprovalRepo() *memApprovalRepo {
	return &memApprovalRepo{entries: map[uuid.UUID]*approval.QueueEntry{}}
}

func (r *memApprovalRepo) CreateEntry(_ context.Context, e *approval.QueueEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	e.UpdatedAt = e.CreatedAt
	cp := *e
	r.entries[e.ID] = &cp
	return nil
}

func (r *memApprovalRepo) GetEntry(_ context.Context, id uuid.UUID) (*approval.QueueEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *e
	return &cp, nil
}

func (r *memApprovalRepo) GetEntryByDocID(_ context.Context, id docid.ID) (*approval.QueueEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *approval.QueueEntry
	for _, e := range r.entries {
		if e.DocID != id {
			continue
		}
		if latest == nil || e.Version > latest.Version {
			latest = e
		}
	}
	if latest == nil {
		return nil, pgx.ErrNoRows
	}
	cp := *latest
	return &cp, nil
}

func (r *memApprovalRepo) TransitionStatus(_ context.Context, id uuid.UUID, from, to string, resolver string, notes *string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok || e.Status != from {
		return false, nil
	}
	now := time.Now()
	e.Status = to
	e.Resolver = resolver
	e.ResolutionNotes = notes
	e.ResolvedAt = &now
	e.UpdatedAt = now
	return true, nil
}

func (r *memApprovalRepo) AppendHistory(_ context.Context, h *approval.HistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now()
	}
	cp := *h
	r.history = append(r.history, &cp)
	return nil
}

func (r *memApprovalRepo) ListHistory(_ context.Context, entryID uuid.UUID) ([]*approval.HistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*approval.HistoryEntry
	for _, h := range r.history {
		if h.QueueEntryID == entryID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (r *memApprovalRepo) CreateEdit(_ context.Context, e *approval.DocumentEdit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	cp := *e
	r.edits = append(r.edits, &cp)
	return nil
}

func (r *memApprovalRepo) ListEdits(_ context.Context, entryID uuid.UUID) ([]*approval.DocumentEdit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*approval.DocumentEdit
	for _, e := range r.edits {
		if e.QueueEntryID == entryID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memApprovalRepo) CreateRegenerationRequest(_ context.Context, req *approval.RegenerationRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	cp := *req
	r.regens = append(r.regens, &cp)
	return nil
}

type memQueue struct {
	mu    sync.Mutex
	items []queuedStep
	fail  error
}

type queuedStep struct {
	topic string
	task  EnrichmentTask
}

func (q *memQueue) Enqueue(_ context.Context, topic string, task EnrichmentTask) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.fail != nil {
		return q.fail
	}
	q.items = append(q.items, queuedStep{topic: topic, task: task})
	return nil
}

func (q *memQueue) topics() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, 0, len(q.items))
	for _, it := range q.items {
		out = append(out, it.topic)
	}
	return out
}

type recordingNotifier struct {
	mu    sync.Mutex
	notes []Notification
}

func (n *recordingNotifier) Notify(_ context.Context, note Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notes = append(n.notes, note)
	return nil
}

type stubSource struct {
	fn func(ctx context.Context, objectName string) (string, error)
}

func (s *stubSource) Definition(ctx context.Context, objectName string) (string, error) {
	return s.fn(ctx, objectName)
}

type stubGenerator struct {
	fn func(ctx context.Context, dc DraftContext) (string, error)
}

func (g *stubGenerator) GenerateDraft(ctx context.Context, dc DraftContext) (string, error) {
	if g.fn != nil {
		return g.fn(ctx, dc)
	}
	return fmt.Sprintf("/tmp/%s_draft.md", dc.DocID), nil
}
