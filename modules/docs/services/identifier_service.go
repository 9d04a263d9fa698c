package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/akfbtn1-netizen/docflow/modules/docs/domain/docid"
)

// Collision retries are bounded by the number of concurrent generators
// actually racing; the cap only guards against a pathological store.
const maxCollisionRetries = 50

// IdentifierService mints collision-free, typed, sequential document ids.
// Generation is optimistic: propose max+1, re-check existence, bump on
// collision. No locks are taken.
type IdentifierService struct {
	registry docid.Registry
	log      *logrus.Entry
}

func NewIdentifierService(registry docid.Registry, log *logrus.Entry) *IdentifierService {
	return &IdentifierService{
		registry: registry,
		log:      log.WithField("component", "identifier"),
	}
}

func (s *IdentifierService) Generate(ctx context.Context, typeHint string) (docid.ID, error) {
	return s.GenerateFor(ctx, docid.Classify(typeHint))
}

func (s *IdentifierService) GenerateFor(ctx context.Context, prefix docid.Prefix) (docid.ID, error) {
	maxSeq, err := s.registry.MaxSequence(ctx, prefix)
	if err != nil {
		return "", mapStoreError(err)
	}
	return s.propose(ctx, prefix, maxSeq+1, 0)
}

func (s *IdentifierService) propose(ctx context.Context, prefix docid.Prefix, sequence, attempt int) (docid.ID, error) {
	if attempt > maxCollisionRetries {
		return "", fmt.Errorf("%w: id generation exceeded %d collision retries for prefix %s",
			ErrStoreUnavailable, maxCollisionRetries, prefix)
	}

	candidate := docid.Format(prefix, sequence)
	exists, err := s.registry.Exists(ctx, candidate)
	if err != nil {
		return "", mapStoreError(err)
	}
	if exists {
		s.log.WithField("doc_id", candidate.String()).Debug("id collision, retrying with next sequence")
		return s.propose(ctx, prefix, sequence+1, attempt+1)
	}
	return candidate, nil
}
