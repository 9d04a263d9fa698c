package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/akfbtn1-netizen/docflow/modules/docs/domain/changerecord"
	"github.com/akfbtn1-netizen/docflow/modules/docs/domain/docid"
	"github.com/akfbtn1-netizen/docflow/modules/docs/domain/workflowevent"
)

// WatcherService polls the store for completed change records that have no
// document id yet, processing at most one record per tick. Claiming is a
// conditional update on the null doc id column, which makes the claim
// at-most-once even with several watcher instances polling the same store.
type WatcherService struct {
	records  changerecord.Repository
	ids      *IdentifierService
	events   *EventLogService
	enqueuer DraftEnqueuer
	interval time.Duration
	log      *logrus.Entry
	m        *watcherMetrics
}

func NewWatcherService(
	records changerecord.Repository,
	ids *IdentifierService,
	events *EventLogService,
	enqueuer DraftEnqueuer,
	interval time.Duration,
	log *logrus.Entry,
) *WatcherService {
	return &WatcherService{
		records:  records,
		ids:      ids,
		events:   events,
		enqueuer: enqueuer,
		interval: interval,
		log:      log.WithField("component", "watcher"),
		m:        getWatcherMetrics(),
	}
}

// Run polls until ctx is cancelled. A failing record never stops the loop;
// the inter-tick delay is the sole cancellation checkpoint.
func (w *WatcherService) Run(ctx context.Context) error {
	w.log.WithField("interval", w.interval.String()).Info("watcher started")
	for {
		w.Tick(ctx)

		select {
		case <-ctx.Done():
			w.log.Info("watcher stopped")
			return ctx.Err()
		case <-time.After(w.interval):
		}
	}
}

// Tick processes at most one unclaimed change record. All errors are
// absorbed here: logged, counted and recorded in the event log.
func (w *WatcherService) Tick(ctx context.Context) {
	w.m.ticksTotal.Inc()

	record, err := w.records.NextUnclaimed(ctx)
	if err != nil {
		w.m.failuresTotal.Inc()
		w.log.WithError(err).Error("change record poll failed")
		return
	}
	if record == nil {
		return
	}

	if err := w.process(ctx, record); err != nil {
		w.m.failuresTotal.Inc()
		w.log.WithError(err).WithField("correlation_key", record.CorrelationKey).Error("change record processing failed")
		w.events.Record(ctx, failureWorkflowID(record), workflowevent.TypeWorkflowFailed, workflowevent.StatusFailed,
			fmt.Sprintf("watcher failed processing change %s: %v", record.CorrelationKey, err))
	}
}

func (w *WatcherService) process(ctx context.Context, record *changerecord.ChangeRecord) error {
	id, err := w.ids.GenerateFor(ctx, classifyRecord(record))
	if err != nil {
		return fmt.Errorf("generate id: %w", err)
	}

	claimed, err := w.records.ClaimDocID(ctx, record.ID, id)
	if err != nil {
		return fmt.Errorf("claim doc id: %w", err)
	}
	if !claimed {
		// Another watcher got there first between select and update.
		w.m.claimConflictsTotal.Inc()
		w.log.WithFields(logrus.Fields{
			"correlation_key": record.CorrelationKey,
			"doc_id":          id.String(),
		}).Info("change record already claimed, skipping")
		return nil
	}
	w.m.claimsTotal.Inc()

	w.events.Append(ctx, &workflowevent.Event{
		WorkflowID: id.WorkflowID(),
		EventType:  workflowevent.TypeWatcherDetectedNewRow,
		Status:     workflowevent.StatusCompleted,
		Message:    fmt.Sprintf("change %s assigned document id %s", record.CorrelationKey, id),
		Metadata:   mustMetadata(map[string]string{"correlation_key": record.CorrelationKey, "object_name": record.ObjectName}),
	})

	if err := w.enqueuer.EnqueueDraft(ctx, record, id); err != nil {
		return fmt.Errorf("enqueue draft generation: %w", err)
	}

	w.log.WithFields(logrus.Fields{
		"correlation_key": record.CorrelationKey,
		"doc_id":          id.String(),
	}).Info("change record claimed")
	return nil
}

// classifyRecord prefers the explicit change-type field; when it carries no
// recognizable type, the free-text description decides, and a record no
// keyword matches is filed as a business request.
func classifyRecord(record *changerecord.ChangeRecord) docid.Prefix {
	if p := docid.Classify(record.ChangeType); p != docid.PrefixGeneric {
		return p
	}
	return docid.ClassifyDescription(record.Description)
}

// failureWorkflowID keys watcher failures by the correlation key, since a
// document id may not exist yet when processing fails.
func failureWorkflowID(record *changerecord.ChangeRecord) string {
	if record.DocID != nil {
		return record.DocID.WorkflowID()
	}
	return "WF-" + record.CorrelationKey
}
