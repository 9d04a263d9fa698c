package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/akfbtn1-netizen/docflow/modules/docs/domain/approval"
	"github.com/akfbtn1-netizen/docflow/modules/docs/domain/docid"
	"github.com/akfbtn1-netizen/docflow/modules/docs/domain/workflowevent"
	"github.com/akfbtn1-netizen/docflow/modules/docs/services"
	"github.com/akfbtn1-netizen/docflow/pkg/outbox"
)

// EnrichmentDispatcher executes the approve side effects recorded on the
// enrichment outbox. A returned error makes the relay retry the step with
// backoff; exhausted attempts are parked dead. The approval itself is already
// committed and is never affected by anything that happens here.
type EnrichmentDispatcher struct {
	artifacts services.ArtifactStore
	indexer   services.MetadataIndexer
	routines  services.RoutineDocStore
	approvals approval.Repository
	events    *services.EventLogService
	log       *logrus.Entry
}

func NewEnrichmentDispatcher(
	artifacts services.ArtifactStore,
	indexer services.MetadataIndexer,
	routines services.RoutineDocStore,
	approvals approval.Repository,
	events *services.EventLogService,
	log *logrus.Entry,
) *EnrichmentDispatcher {
	return &EnrichmentDispatcher{
		artifacts: artifacts,
		indexer:   indexer,
		routines:  routines,
		approvals: approvals,
		events:    events,
		log:       log.WithField("component", "enrichment"),
	}
}

func (d *EnrichmentDispatcher) Dispatch(ctx context.Context, msg outbox.DispatchedMessage) error {
	var task services.EnrichmentTask
	if err := json.Unmarshal(msg.Payload, &task); err != nil {
		return fmt.Errorf("enrichment payload: %w", err)
	}

	switch msg.Meta.Topic {
	case services.TopicApprovalFinalize:
		return d.finalize(ctx, task)
	case services.TopicApprovalIndex:
		return d.index(ctx, task)
	case services.TopicApprovalRoutineDoc:
		return d.routineDoc(ctx, task)
	default:
		d.log.WithField("topic", msg.Meta.Topic).Warn("unknown enrichment topic acked")
		return nil
	}
}

// finalize copies the draft to its destination. Copy, not move: the draft
// stays recoverable.
func (d *EnrichmentDispatcher) finalize(ctx context.Context, task services.EnrichmentTask) error {
	if err := d.artifacts.Materialize(ctx, task.DraftPath, task.FinalPath); err != nil {
		return fmt.Errorf("materialize %s: %w", task.DocID, err)
	}

	// Audit only; a retry of the copy must not hinge on the history write.
	if err := d.approvals.AppendHistory(ctx, &approval.HistoryEntry{
		QueueEntryID:    task.EntryID,
		Action:          approval.ActionMoved,
		ActionBy:        task.Approver,
		PreviousStatus:  approval.StatusApproved,
		NewStatus:       approval.StatusApproved,
		SourcePath:      &task.DraftPath,
		DestinationPath: &task.FinalPath,
	}); err != nil {
		d.log.WithError(err).WithField("doc_id", task.DocID).Warn("move history append failed")
	}

	d.events.Record(ctx, task.WorkflowID, workflowevent.TypeEnrichment, workflowevent.StatusCompleted,
		fmt.Sprintf("%s published to %s", task.DocID, task.FinalPath))
	return nil
}

// index populates the metadata index, embeds approval provenance using the
// returned quality score, and closes the workflow. Provenance embedding is
// best-effort; an embed failure degrades to a warning.
func (d *EnrichmentDispatcher) index(ctx context.Context, task services.EnrichmentTask) error {
	res, err := d.indexer.PopulateIndex(ctx, docid.ID(task.DocID), task.FinalPath, task.CorrelationKey)
	if err != nil {
		return fmt.Errorf("index %s: %w", task.DocID, err)
	}

	if err := d.artifacts.EmbedProvenance(ctx, task.FinalPath, services.Provenance{
		Approver:       task.Approver,
		CorrelationKey: task.CorrelationKey,
		QualityScore:   res.QualityScore,
		DatabaseName:   task.DatabaseName,
		SchemaName:     task.SchemaName,
		ObjectName:     task.ObjectName,
	}); err != nil {
		d.log.WithError(err).WithField("doc_id", task.DocID).Warn("provenance embedding failed")
		d.events.Record(ctx, task.WorkflowID, workflowevent.TypeEnrichment, workflowevent.StatusWarning,
			fmt.Sprintf("provenance embedding for %s failed: %v", task.DocID, err))
	}

	d.events.Append(ctx, &workflowevent.Event{
		WorkflowID: task.WorkflowID,
		EventType:  workflowevent.TypeWorkflowCompleted,
		Status:     workflowevent.StatusCompleted,
		Message:    fmt.Sprintf("%s indexed as %s (%.0f%% complete)", task.DocID, res.IndexID, res.CompletenessPercent),
		Metadata: mustJSON(map[string]any{
			"final_path":           task.FinalPath,
			"index_id":             res.IndexID,
			"completeness_percent": res.CompletenessPercent,
		}),
	})
	return nil
}

func (d *EnrichmentDispatcher) routineDoc(ctx context.Context, task services.EnrichmentTask) error {
	if err := d.routines.UpsertRoutineDoc(ctx, docid.ID(task.DocID), task.SchemaName, task.ObjectName, task.FinalPath); err != nil {
		return fmt.Errorf("routine doc upsert %s: %w", task.DocID, err)
	}
	d.events.Record(ctx, task.WorkflowID, workflowevent.TypeEnrichment, workflowevent.StatusCompleted,
		fmt.Sprintf("routine documentation record for %s.%s updated", task.SchemaName, task.ObjectName))
	return nil
}

func mustJSON(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return raw
}
