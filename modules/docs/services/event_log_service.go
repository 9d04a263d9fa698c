package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/akfbtn1-netizen/docflow/modules/docs/domain/workflowevent"
)

// EventLogService appends to the workflow event log. Appends are fire-and-
// forget: a failed write is logged and swallowed so it can never fail the
// operation that produced the event.
type EventLogService struct {
	repo workflowevent.Repository
	log  *logrus.Entry
}

func NewEventLogService(repo workflowevent.Repository, log *logrus.Entry) *EventLogService {
	return &EventLogService{
		repo: repo,
		log:  log.WithField("component", "eventlog"),
	}
}

func (s *EventLogService) Append(ctx context.Context, e *workflowevent.Event) {
	if err := s.repo.Append(ctx, e); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"workflow_id": e.WorkflowID,
			"event_type":  e.EventType,
		}).Warn("workflow event append failed")
	}
}

func (s *EventLogService) Record(ctx context.Context, workflowID, eventType, status, message string) {
	s.Append(ctx, &workflowevent.Event{
		WorkflowID: workflowID,
		EventType:  eventType,
		Status:     status,
		Message:    message,
	})
}

// RecordTimed records an event with its duration and a structured metadata
// payload. Metadata that fails to marshal is dropped, not fatal.
func (s *EventLogService) RecordTimed(ctx context.Context, workflowID, eventType, status, message string, startedAt time.Time, metadata any) {
	duration := time.Since(startedAt).Milliseconds()
	e := &workflowevent.Event{
		WorkflowID: workflowID,
		EventType:  eventType,
		Status:     status,
		Message:    message,
		DurationMS: &duration,
	}
	if metadata != nil {
		raw, err := json.Marshal(metadata)
		if err != nil {
			s.log.WithError(err).WithField("workflow_id", workflowID).Warn("event metadata marshal failed")
		} else {
			e.Metadata = raw
		}
	}
	s.Append(ctx, e)
}

// mustMetadata marshals a metadata payload, dropping it when it cannot be
// represented as JSON.
func mustMetadata(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return raw
}

func (s *EventLogService) History(ctx context.Context, workflowID string) ([]*workflowevent.Event, error) {
	events, err := s.repo.ListByWorkflowID(ctx, workflowID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return events, nil
}
