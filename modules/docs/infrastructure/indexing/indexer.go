package indexing

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/akfbtn1-netizen/docflow/modules/docs/domain/docid"
	"github.com/akfbtn1-netizen/docflow/modules/docs/infrastructure/persistence"
	"github.com/akfbtn1-netizen/docflow/modules/docs/services"
)

// Sections a complete documentation artifact is expected to carry.
var expectedSections = []string{
	"description",
	"parameters",
	"returns",
	"usage",
	"change history",
}

// Indexer scores a published artifact and records it in the document index
// table. Re-indexing the same document id updates the existing row.
type Indexer struct {
	db  persistence.Querier
	log *logrus.Entry
}

func NewIndexer(db persistence.Querier, log *logrus.Entry) *Indexer {
	return &Indexer{db: db, log: log.WithField("component", "indexer")}
}

func (ix *Indexer) PopulateIndex(ctx context.Context, id docid.ID, finalPath, correlationKey string) (*services.IndexResult, error) {
	content, err := os.ReadFile(finalPath)
	if err != nil {
		return nil, fmt.Errorf("read artifact for indexing: %w", err)
	}

	completeness, quality := score(string(content))

	indexID := uuid.New()
	if err := ix.db.QueryRow(ctx, `
		INSERT INTO document_index
			(id, doc_id, final_path, correlation_key, completeness_percent, quality_score, indexed_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (doc_id) DO UPDATE SET
			final_path = EXCLUDED.final_path,
			correlation_key = EXCLUDED.correlation_key,
			completeness_percent = EXCLUDED.completeness_percent,
			quality_score = EXCLUDED.quality_score,
			indexed_at = now()
		RETURNING id`,
		indexID, id.String(), finalPath, correlationKey, completeness, quality,
	).Scan(&indexID); err != nil {
		return nil, fmt.Errorf("document index upsert: %w", err)
	}

	ix.log.WithFields(logrus.Fields{
		"doc_id":       id.String(),
		"index_id":     indexID,
		"completeness": completeness,
	}).Info("document indexed")

	return &services.IndexResult{
		IndexID:             indexID.String(),
		CompletenessPercent: completeness,
		QualityScore:        quality,
	}, nil
}

// score rates the artifact: completeness is the share of expected sections
// present, quality the share of expected sections that carry content beyond
// the heading line.
func score(content string) (completeness, quality float64) {
	lower := strings.ToLower(content)

	present, filled := 0, 0
	for _, section := range expectedSections {
		idx := strings.Index(lower, section)
		if idx < 0 {
			continue
		}
		present++
		rest := lower[idx+len(section):]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 && strings.TrimSpace(rest[nl:]) != "" {
			filled++
		}
	}

	n := float64(len(expectedSections))
	return float64(present) / n * 100, float64(filled) / n * 100
}
