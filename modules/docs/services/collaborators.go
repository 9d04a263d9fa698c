package services

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/akfbtn1-netizen/docflow/modules/docs/domain/changerecord"
	"github.com/akfbtn1-netizen/docflow/modules/docs/domain/docid"
)

// DraftContext carries everything a generation backend needs to produce a
// draft artifact for a freshly minted document id.
type DraftContext struct {
	DocID          docid.ID
	CorrelationKey string
	DatabaseName   string
	SchemaName     string
	ObjectName     string
	ObjectType     string
	Description    string
	Extraction     *ExtractionResult
}

// DraftGenerator produces a draft artifact and returns its file path.
type DraftGenerator interface {
	GenerateDraft(ctx context.Context, dc DraftContext) (draftPath string, err error)
}

// DraftEnqueuer hands a claimed change record off to the draft-generation
// pipeline. The watcher never blocks on generation itself.
type DraftEnqueuer interface {
	EnqueueDraft(ctx context.Context, record *changerecord.ChangeRecord, id docid.ID) error
}

// IndexResult is what the metadata indexer reports for a published document.
type IndexResult struct {
	IndexID             string
	CompletenessPercent float64
	QualityScore        float64
}

type MetadataIndexer interface {
	PopulateIndex(ctx context.Context, id docid.ID, finalPath, correlationKey string) (*IndexResult, error)
}

// RoutineDocStore keeps the persistent documentation record of a stored
// routine up to date with the latest published artifact.
type RoutineDocStore interface {
	UpsertRoutineDoc(ctx context.Context, id docid.ID, schemaName, objectName, finalPath string) error
}

// Provenance is the approval metadata embedded into a published artifact.
type Provenance struct {
	Approver       string
	CorrelationKey string
	QualityScore   float64
	DatabaseName   string
	SchemaName     string
	ObjectName     string
}

// ArtifactStore materializes artifacts at their destination and embeds
// provenance. Materialize copies rather than moves so the draft stays
// recoverable.
type ArtifactStore interface {
	Materialize(ctx context.Context, draftPath, finalPath string) error
	EmbedProvenance(ctx context.Context, finalPath string, p Provenance) error
}

// Notification severities.
const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
	SeverityError   = "error"
)

type Notification struct {
	Recipient string
	Title     string
	Body      string
	Severity  string
	DocID     docid.ID
}

// Notifier delivers out-of-band notifications. Delivery is fire-and-forget
// from the caller's point of view.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// notifySlots caps concurrent background deliveries per service.
const notifySlots = 16

// asyncNotifier delivers notifications on bounded background tasks so a slow
// delivery channel cannot pile goroutines behind it. When every slot is busy
// the notification is dropped with a warning. Delivery never runs on the
// caller's path and failures are logged, never returned.
type asyncNotifier struct {
	delegate Notifier
	slots    chan struct{}
	log      *logrus.Entry
}

func newAsyncNotifier(delegate Notifier, log *logrus.Entry) *asyncNotifier {
	return &asyncNotifier{
		delegate: delegate,
		slots:    make(chan struct{}, notifySlots),
		log:      log,
	}
}

func (a *asyncNotifier) send(ctx context.Context, n Notification) {
	if a.delegate == nil {
		return
	}
	select {
	case a.slots <- struct{}{}:
	default:
		a.log.WithFields(logrus.Fields{
			"recipient": n.Recipient,
			"doc_id":    n.DocID.String(),
		}).Warn("notification dropped, delivery slots exhausted")
		return
	}
	go func() {
		defer func() { <-a.slots }()
		if err := a.delegate.Notify(context.WithoutCancel(ctx), n); err != nil {
			a.log.WithError(err).WithFields(logrus.Fields{
				"recipient": n.Recipient,
				"doc_id":    n.DocID.String(),
			}).Warn("notification delivery failed")
		}
	}()
}
