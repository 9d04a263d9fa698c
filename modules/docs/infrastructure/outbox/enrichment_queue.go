package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/akfbtn1-netizen/docflow/modules/docs/infrastructure/persistence"
	"github.com/akfbtn1-netizen/docflow/modules/docs/services"
	"github.com/akfbtn1-netizen/docflow/pkg/outbox"
)

// Table is the enrichment outbox table processed by the relay.
var Table = pgx.Identifier{"enrichment_outbox"}

// EnrichmentQueue records approval enrichment steps on the outbox. Enqueues
// made under a transactional context join that transaction, so the steps
// commit or roll back together with the approval decision.
type EnrichmentQueue struct {
	pool *pgxpool.Pool
	pub  outbox.Publisher
}

func NewEnrichmentQueue(pool *pgxpool.Pool) *EnrichmentQueue {
	return &EnrichmentQueue{pool: pool, pub: outbox.NewPublisher()}
}

func (q *EnrichmentQueue) Enqueue(ctx context.Context, topic string, task services.EnrichmentTask) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("enrichment task marshal: %w", err)
	}

	var tx outbox.Tx = q.pool
	if qr, ok := persistence.UseQuerier(ctx); ok {
		tx = qr
	}

	_, err = q.pub.Enqueue(ctx, tx, Table, outbox.Message{
		Topic:   topic,
		EventID: enrichmentEventID(topic, task.EntryID),
		Payload: payload,
	})
	return err
}

// enrichmentEventID is deterministic per (topic, entry) so a replayed
// approval of the same entry cannot double-enqueue a step.
func enrichmentEventID(topic string, entryID uuid.UUID) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(topic+":"+entryID.String()))
}
