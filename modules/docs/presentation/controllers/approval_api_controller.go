package controllers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/akfbtn1-netizen/docflow/modules/docs/domain/approval"
	"github.com/akfbtn1-netizen/docflow/modules/docs/domain/docid"
	"github.com/akfbtn1-netizen/docflow/modules/docs/domain/workflowevent"
	"github.com/akfbtn1-netizen/docflow/modules/docs/services"
	"github.com/akfbtn1-netizen/docflow/pkg/httpapi"
	"github.com/akfbtn1-netizen/docflow/pkg/serrors"
)

// ApprovalAPIController exposes the approval operations over JSON.
// Authentication is handled outside this surface.
type ApprovalAPIController struct {
	approvals *services.ApprovalService
	events    *services.EventLogService
	basePath  string
	log       *logrus.Entry
}

func NewApprovalAPIController(approvals *services.ApprovalService, events *services.EventLogService, log *logrus.Entry) *ApprovalAPIController {
	return &ApprovalAPIController{
		approvals: approvals,
		events:    events,
		basePath:  "/docs/api",
		log:       log.WithField("component", "approvalapi"),
	}
}

func (c *ApprovalAPIController) Key() string {
	return c.basePath
}

func (c *ApprovalAPIController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.HandleFunc("/queue", c.create).Methods(http.MethodPost)
	router.HandleFunc("/queue/{id}:approve", c.approve).Methods(http.MethodPost)
	router.HandleFunc("/queue/{id}:reject", c.reject).Methods(http.MethodPost)
	router.HandleFunc("/queue/{id}:edit-approve", c.editApprove).Methods(http.MethodPost)
	router.HandleFunc("/queue/{id}:regenerate", c.regenerate).Methods(http.MethodPost)
	router.HandleFunc("/queue/{id}", c.get).Methods(http.MethodGet)
	router.HandleFunc("/queue/{id}/history", c.history).Methods(http.MethodGet)
	router.HandleFunc("/events/{workflowID}", c.workflowEvents).Methods(http.MethodGet)
}

type createRequest struct {
	DocID             string  `json:"docId"`
	DatabaseName      string  `json:"databaseName"`
	SchemaName        string  `json:"schemaName"`
	ObjectName        string  `json:"objectName"`
	ObjectType        string  `json:"objectType"`
	DocumentType      string  `json:"documentType"`
	DraftPath         string  `json:"draftPath"`
	Priority          string  `json:"priority"`
	Requester         string  `json:"requester"`
	PreviousVersionID *string `json:"previousVersionId"`
}

type decisionRequest struct {
	Actor string  `json:"actor"`
	Notes *string `json:"notes"`
}

type editApproveRequest struct {
	Actor string           `json:"actor"`
	Notes *string          `json:"notes"`
	Edits []editRequestDTO `json:"edits"`
}

type editRequestDTO struct {
	SectionName  string `json:"sectionName"`
	OriginalText string `json:"originalText"`
	EditedText   string `json:"editedText"`
	Reason       string `json:"reason"`
	Category     string `json:"category"`
}

type regenerateRequest struct {
	RequestedBy     string `json:"requestedBy"`
	FeedbackText    string `json:"feedbackText"`
	FeedbackSection string `json:"feedbackSection"`
	FeedbackContext string `json:"feedbackContext"`
}

type queueEntryResponse struct {
	ID                string     `json:"id"`
	DocID             string     `json:"docId"`
	WorkflowID        string     `json:"workflowId"`
	DatabaseName      string     `json:"databaseName"`
	SchemaName        string     `json:"schemaName"`
	ObjectName        string     `json:"objectName"`
	ObjectType        string     `json:"objectType"`
	DocumentType      string     `json:"documentType"`
	DraftPath         string     `json:"draftPath"`
	DestinationPath   string     `json:"destinationPath"`
	Status            string     `json:"status"`
	Priority          string     `json:"priority"`
	Requester         string     `json:"requester"`
	Assignee          string     `json:"assignee"`
	Resolver          string     `json:"resolver,omitempty"`
	ResolutionNotes   *string    `json:"resolutionNotes,omitempty"`
	Version           int        `json:"version"`
	PreviousVersionID *string    `json:"previousVersionId,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
	ResolvedAt        *time.Time `json:"resolvedAt,omitempty"`
}

func toQueueEntryResponse(e *approval.QueueEntry) *queueEntryResponse {
	var prev *string
	if e.PreviousVersionID != nil {
		s := e.PreviousVersionID.String()
		prev = &s
	}
	return &queueEntryResponse{
		ID:                e.ID.String(),
		DocID:             e.DocID.String(),
		WorkflowID:        e.DocID.WorkflowID(),
		DatabaseName:      e.DatabaseName,
		SchemaName:        e.SchemaName,
		ObjectName:        e.ObjectName,
		ObjectType:        e.ObjectType,
		DocumentType:      e.DocumentType,
		DraftPath:         e.DraftPath,
		DestinationPath:   e.DestinationPath,
		Status:            e.Status,
		Priority:          e.Priority,
		Requester:         e.Requester,
		Assignee:          e.Assignee,
		Resolver:          e.Resolver,
		ResolutionNotes:   e.ResolutionNotes,
		Version:           e.Version,
		PreviousVersionID: prev,
		CreatedAt:         e.CreatedAt,
		UpdatedAt:         e.UpdatedAt,
		ResolvedAt:        e.ResolvedAt,
	}
}

type historyEntryResponse struct {
	ID              string    `json:"id"`
	Action          string    `json:"action"`
	ActionBy        string    `json:"actionBy"`
	PreviousStatus  string    `json:"previousStatus,omitempty"`
	NewStatus       string    `json:"newStatus"`
	Notes           *string   `json:"notes,omitempty"`
	SourcePath      *string   `json:"sourcePath,omitempty"`
	DestinationPath *string   `json:"destinationPath,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

type workflowEventResponse struct {
	ID         string          `json:"id"`
	WorkflowID string          `json:"workflowId"`
	EventType  string          `json:"eventType"`
	Status     string          `json:"status"`
	Message    string          `json:"message"`
	DurationMS *int64          `json:"durationMs,omitempty"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

func (c *ApprovalAPIController) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "DOCS_VALIDATION", "invalid request body", nil)
		return
	}

	var prev *uuid.UUID
	if req.PreviousVersionID != nil {
		id, err := uuid.Parse(*req.PreviousVersionID)
		if err != nil {
			_ = httpapi.WriteError(w, http.StatusBadRequest, "DOCS_VALIDATION", "invalid previousVersionId", nil)
			return
		}
		prev = &id
	}

	entry, err := c.approvals.Create(r.Context(), services.CreateParams{
		DocID:             docid.ID(req.DocID),
		DatabaseName:      req.DatabaseName,
		SchemaName:        req.SchemaName,
		ObjectName:        req.ObjectName,
		ObjectType:        req.ObjectType,
		DocumentType:      req.DocumentType,
		DraftPath:         req.DraftPath,
		Priority:          req.Priority,
		Requester:         req.Requester,
		PreviousVersionID: prev,
	})
	if err != nil {
		c.writeServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusCreated, toQueueEntryResponse(entry))
}

func (c *ApprovalAPIController) approve(w http.ResponseWriter, r *http.Request) {
	c.decide(w, r, func(entryID uuid.UUID, req decisionRequest) (*approval.QueueEntry, error) {
		return c.approvals.Approve(r.Context(), entryID, req.Actor, req.Notes)
	})
}

func (c *ApprovalAPIController) reject(w http.ResponseWriter, r *http.Request) {
	c.decide(w, r, func(entryID uuid.UUID, req decisionRequest) (*approval.QueueEntry, error) {
		return c.approvals.Reject(r.Context(), entryID, req.Actor, req.Notes)
	})
}

func (c *ApprovalAPIController) decide(w http.ResponseWriter, r *http.Request, op func(uuid.UUID, decisionRequest) (*approval.QueueEntry, error)) {
	entryID, ok := c.entryID(w, r)
	if !ok {
		return
	}

	var req decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "DOCS_VALIDATION", "invalid request body", nil)
		return
	}

	entry, err := op(entryID, req)
	if err != nil {
		c.writeServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, toQueueEntryResponse(entry))
}

func (c *ApprovalAPIController) editApprove(w http.ResponseWriter, r *http.Request) {
	entryID, ok := c.entryID(w, r)
	if !ok {
		return
	}

	var req editApproveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "DOCS_VALIDATION", "invalid request body", nil)
		return
	}

	edits := make([]services.EditParams, 0, len(req.Edits))
	for _, e := range req.Edits {
		edits = append(edits, services.EditParams{
			SectionName:  e.SectionName,
			OriginalText: e.OriginalText,
			EditedText:   e.EditedText,
			Reason:       e.Reason,
			Category:     e.Category,
		})
	}

	entry, err := c.approvals.EditAndApprove(r.Context(), entryID, req.Actor, edits, req.Notes)
	if err != nil {
		c.writeServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, toQueueEntryResponse(entry))
}

func (c *ApprovalAPIController) regenerate(w http.ResponseWriter, r *http.Request) {
	entryID, ok := c.entryID(w, r)
	if !ok {
		return
	}

	var req regenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "DOCS_VALIDATION", "invalid request body", nil)
		return
	}

	regen, err := c.approvals.RequestRegeneration(r.Context(), entryID, req.RequestedBy, services.FeedbackParams{
		Text:    req.FeedbackText,
		Section: req.FeedbackSection,
		Context: req.FeedbackContext,
	})
	if err != nil {
		c.writeServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusAccepted, map[string]any{
		"requestId":     regen.ID.String(),
		"queueEntryId":  regen.QueueEntryID.String(),
		"originVersion": regen.OriginVersion,
		"status":        regen.Status,
	})
}

func (c *ApprovalAPIController) get(w http.ResponseWriter, r *http.Request) {
	entryID, ok := c.entryID(w, r)
	if !ok {
		return
	}

	entry, err := c.approvals.Entry(r.Context(), entryID)
	if err != nil {
		c.writeServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, toQueueEntryResponse(entry))
}

func (c *ApprovalAPIController) history(w http.ResponseWriter, r *http.Request) {
	entryID, ok := c.entryID(w, r)
	if !ok {
		return
	}

	history, err := c.approvals.History(r.Context(), entryID)
	if err != nil {
		c.writeServiceError(w, err)
		return
	}

	out := make([]*historyEntryResponse, 0, len(history))
	for _, h := range history {
		out = append(out, &historyEntryResponse{
			ID:              h.ID.String(),
			Action:          h.Action,
			ActionBy:        h.ActionBy,
			PreviousStatus:  h.PreviousStatus,
			NewStatus:       h.NewStatus,
			Notes:           h.Notes,
			SourcePath:      h.SourcePath,
			DestinationPath: h.DestinationPath,
			CreatedAt:       h.CreatedAt,
		})
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, out)
}

func (c *ApprovalAPIController) workflowEvents(w http.ResponseWriter, r *http.Request) {
	workflowID := mux.Vars(r)["workflowID"]

	events, err := c.events.History(r.Context(), workflowID)
	if err != nil {
		c.writeServiceError(w, err)
		return
	}

	out := make([]*workflowEventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, toWorkflowEventResponse(e))
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, out)
}

func toWorkflowEventResponse(e *workflowevent.Event) *workflowEventResponse {
	return &workflowEventResponse{
		ID:         e.ID.String(),
		WorkflowID: e.WorkflowID,
		EventType:  e.EventType,
		Status:     e.Status,
		Message:    e.Message,
		DurationMS: e.DurationMS,
		Metadata:   e.Metadata,
		CreatedAt:  e.CreatedAt,
	}
}

func (c *ApprovalAPIController) entryID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "DOCS_VALIDATION", "invalid queue entry id", nil)
		return uuid.Nil, false
	}
	return id, true
}

func (c *ApprovalAPIController) writeServiceError(w http.ResponseWriter, err error) {
	code := serrors.CodeOf(err)
	status := http.StatusInternalServerError
	switch code {
	case "DOCS_VALIDATION":
		status = http.StatusBadRequest
	case "DOCS_INVALID_TRANSITION":
		status = http.StatusConflict
	case "DOCS_NOT_FOUND":
		status = http.StatusNotFound
	case "":
		code = "DOCS_INTERNAL"
	}
	if status >= http.StatusInternalServerError {
		c.log.WithError(err).Error("approval api request failed")
	}
	_ = httpapi.WriteError(w, status, code, err.Error(), nil)
}
