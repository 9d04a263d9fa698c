package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/akfbtn1-netizen/docflow/modules/docs/domain/changerecord"
	"github.com/akfbtn1-netizen/docflow/modules/docs/domain/docid"
	"github.com/akfbtn1-netizen/docflow/modules/docs/domain/workflowevent"
)

type draftJob struct {
	record *changerecord.ChangeRecord
	id     docid.ID
}

// DraftPipeline turns a claimed change record into a Pending queue entry:
// marked-code extraction, draft generation, then approval queue admission.
// Jobs run on a single worker fed by a bounded channel; a full queue is
// reported back to the watcher, which fails the tick and retries next poll.
type DraftPipeline struct {
	extraction *ExtractionService
	generator  DraftGenerator
	approvals  *ApprovalService
	events     *EventLogService
	jobs       chan draftJob
	log        *logrus.Entry
}

func NewDraftPipeline(
	extraction *ExtractionService,
	generator DraftGenerator,
	approvals *ApprovalService,
	events *EventLogService,
	queueSize int,
	log *logrus.Entry,
) *DraftPipeline {
	if queueSize <= 0 {
		queueSize = 16
	}
	return &DraftPipeline{
		extraction: extraction,
		generator:  generator,
		approvals:  approvals,
		events:     events,
		jobs:       make(chan draftJob, queueSize),
		log:        log.WithField("component", "draftpipeline"),
	}
}

func (p *DraftPipeline) EnqueueDraft(ctx context.Context, record *changerecord.ChangeRecord, id docid.ID) error {
	select {
	case p.jobs <- draftJob{record: record, id: id}:
		return nil
	default:
		return fmt.Errorf("draft queue full, %s not enqueued", id)
	}
}

// Run drains the job queue until ctx is cancelled.
func (p *DraftPipeline) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case job := <-p.jobs:
			p.process(ctx, job)
		}
	}
}

func (p *DraftPipeline) process(ctx context.Context, job draftJob) {
	record, id := job.record, job.id
	log := p.log.WithFields(logrus.Fields{
		"doc_id":          id.String(),
		"correlation_key": record.CorrelationKey,
	})

	extraction, err := p.extraction.ExtractMarkedCode(ctx, id, qualifiedObjectName(record), record.CorrelationKey)
	if err != nil {
		log.WithError(err).Error("code extraction failed, workflow halted")
		p.events.Record(ctx, id.WorkflowID(), workflowevent.TypeWorkflowFailed, workflowevent.StatusFailed,
			fmt.Sprintf("code extraction for %s failed: %v", id, err))
		return
	}

	draftPath, err := p.generator.GenerateDraft(ctx, DraftContext{
		DocID:          id,
		CorrelationKey: record.CorrelationKey,
		DatabaseName:   record.DatabaseName,
		SchemaName:     record.SchemaName,
		ObjectName:     record.ObjectName,
		ObjectType:     record.ObjectType,
		Description:    record.Description,
		Extraction:     extraction,
	})
	if err != nil {
		log.WithError(err).Error("draft generation failed")
		p.events.Record(ctx, id.WorkflowID(), workflowevent.TypeWorkflowFailed, workflowevent.StatusFailed,
			fmt.Sprintf("draft generation for %s failed: %v", id, err))
		return
	}

	if _, err := p.approvals.Create(ctx, CreateParams{
		DocID:        id,
		DatabaseName: record.DatabaseName,
		SchemaName:   record.SchemaName,
		ObjectName:   record.ObjectName,
		ObjectType:   record.ObjectType,
		DocumentType: documentTypeFor(id.Prefix()),
		DraftPath:    draftPath,
		Priority:     "Normal",
		Requester:    "system",
	}); err != nil {
		log.WithError(err).Error("approval queue admission failed")
		p.events.Record(ctx, id.WorkflowID(), workflowevent.TypeWorkflowFailed, workflowevent.StatusFailed,
			fmt.Sprintf("queueing %s for approval failed: %v", id, err))
		return
	}

	log.WithField("draft_path", draftPath).Info("draft queued for approval")
}

func qualifiedObjectName(record *changerecord.ChangeRecord) string {
	if record.SchemaName != "" {
		return record.SchemaName + "." + record.ObjectName
	}
	return record.ObjectName
}

func documentTypeFor(prefix docid.Prefix) string {
	switch prefix {
	case docid.PrefixBusinessRequest:
		return "Business Request"
	case docid.PrefixEnhancement:
		return "Enhancement"
	case docid.PrefixDefectFix:
		return "Defect Fix"
	default:
		return "General"
	}
}
