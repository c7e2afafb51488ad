package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medscan-io/report-engine/pkg/models"
	"github.com/medscan-io/report-engine/pkg/services"
)

// ReviewRequest carries a moderator decision. Actor identifies the reviewer
// for the audit trail; Remarks are free-form notes.
type ReviewRequest struct {
	Actor   string  `json:"actor"`
	Remarks *string `json:"remarks,omitempty"`
}

// RemapRequest points a candidate at an existing canonical name. A null
// target clears the mapping so the candidate stands alone. Actor identifies
// the moderator for the audit trail.
type RemapRequest struct {
	Actor  string  `json:"actor"`
	Target *string `json:"target"`
}

// ReopenRequest is the administrative override that returns a terminal
// candidate to the moderation queue. Reason is required.
type ReopenRequest struct {
	Actor  string `json:"actor"`
	Reason string `json:"reason"`
}

// ParameterResponse is the standard response shape for a single candidate.
type ParameterResponse struct {
	Parameter     *models.ParameterCandidate `json:"parameter"`
	Status        string                     `json:"status_display"`
	CanonicalName string                     `json:"canonical_name"`
}

// ParametersHandler handles the moderation workflow's HTTP requests.
type ParametersHandler struct {
	review  services.ReviewService
	mapping services.MappingService
	logger  *zap.Logger
}

// NewParametersHandler creates a new parameters handler.
func NewParametersHandler(review services.ReviewService, mapping services.MappingService, logger *zap.Logger) *ParametersHandler {
	return &ParametersHandler{
		review:  review,
		mapping: mapping,
		logger:  logger,
	}
}

// RegisterRoutes registers the parameters handler's routes on the given mux.
func (h *ParametersHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/parameters", h.List)
	mux.HandleFunc("GET /api/parameters/{id}", h.Get)
	mux.HandleFunc("POST /api/parameters/{id}/approve", h.Approve)
	mux.HandleFunc("POST /api/parameters/{id}/reject", h.Reject)
	mux.HandleFunc("POST /api/parameters/{id}/reopen", h.Reopen)
	mux.HandleFunc("POST /api/parameters/{id}/remap", h.Remap)
	mux.HandleFunc("GET /api/parameters/{id}/mapping-choices", h.MappingChoices)
}

// List handles GET /api/parameters?status=pending&limit=100.
// Status defaults to pending, the moderation queue's natural view.
func (h *ParametersHandler) List(w http.ResponseWriter, r *http.Request) {
	status := models.ApprovalStatus(r.URL.Query().Get("status"))
	if status == "" {
		status = models.ApprovalStatusPending
	}
	switch status {
	case models.ApprovalStatusPending, models.ApprovalStatusApproved, models.ApprovalStatusRejected:
	default:
		h.writeError(w, http.StatusBadRequest, "invalid_status", "status must be pending, approved, or rejected")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			h.writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	candidates, err := h.review.ListByStatus(r.Context(), status, limit)
	if err != nil {
		h.serviceError(w, err, "Failed to list parameters")
		return
	}

	responses := make([]ParameterResponse, 0, len(candidates))
	for _, c := range candidates {
		responses = append(responses, ParameterResponse{
			Parameter:     c,
			Status:        c.Status.Display(),
			CanonicalName: c.CanonicalName(),
		})
	}

	if err := WriteJSON(w, http.StatusOK, map[string]any{
		"parameters": responses,
		"count":      len(responses),
	}); err != nil {
		h.logger.Error("Failed to encode parameters response", zap.Error(err))
	}
}

// Get handles GET /api/parameters/{id}.
func (h *ParametersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	candidate, err := h.review.Get(r.Context(), id)
	if err != nil {
		h.serviceError(w, err, "Failed to get parameter")
		return
	}

	h.writeParameter(w, candidate)
}

// Approve handles POST /api/parameters/{id}/approve.
func (h *ParametersHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, req, ok := h.reviewRequest(w, r)
	if !ok {
		return
	}

	if err := h.review.Approve(r.Context(), id, req.Actor, req.Remarks); err != nil {
		h.serviceError(w, err, "Failed to approve parameter")
		return
	}

	h.writeUpdated(w, r, id)
}

// Reject handles POST /api/parameters/{id}/reject.
func (h *ParametersHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, req, ok := h.reviewRequest(w, r)
	if !ok {
		return
	}

	if err := h.review.Reject(r.Context(), id, req.Actor, req.Remarks); err != nil {
		h.serviceError(w, err, "Failed to reject parameter")
		return
	}

	h.writeUpdated(w, r, id)
}

// Reopen handles POST /api/parameters/{id}/reopen.
// Returns an approved or rejected candidate to the moderation queue.
func (h *ParametersHandler) Reopen(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req ReopenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "request body must be valid JSON")
		return
	}
	if req.Actor == "" {
		h.writeError(w, http.StatusBadRequest, "missing_actor", "actor is required")
		return
	}
	if req.Reason == "" {
		h.writeError(w, http.StatusBadRequest, "missing_reason", "reason is required")
		return
	}

	if err := h.review.Reopen(r.Context(), id, req.Actor, req.Reason); err != nil {
		h.serviceError(w, err, "Failed to reopen parameter")
		return
	}

	h.writeUpdated(w, r, id)
}

// Remap handles POST /api/parameters/{id}/remap.
func (h *ParametersHandler) Remap(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req RemapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "request body must be valid JSON")
		return
	}
	if req.Actor == "" {
		h.writeError(w, http.StatusBadRequest, "missing_actor", "actor is required")
		return
	}

	if err := h.mapping.Remap(r.Context(), id, req.Actor, req.Target); err != nil {
		h.serviceError(w, err, "Failed to remap parameter")
		return
	}

	h.writeUpdated(w, r, id)
}

// MappingChoices handles GET /api/parameters/{id}/mapping-choices.
// Lists the approved canonical names this candidate may be mapped to.
func (h *ParametersHandler) MappingChoices(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	choices, err := h.mapping.MappingChoices(r.Context(), id)
	if err != nil {
		h.serviceError(w, err, "Failed to list mapping choices")
		return
	}
	if choices == nil {
		choices = []string{}
	}

	if err := WriteJSON(w, http.StatusOK, map[string]any{"choices": choices}); err != nil {
		h.logger.Error("Failed to encode mapping choices", zap.Error(err))
	}
}

func (h *ParametersHandler) reviewRequest(w http.ResponseWriter, r *http.Request) (uuid.UUID, *ReviewRequest, bool) {
	id, ok := h.pathID(w, r)
	if !ok {
		return uuid.Nil, nil, false
	}

	var req ReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "request body must be valid JSON")
		return uuid.Nil, nil, false
	}
	if req.Actor == "" {
		h.writeError(w, http.StatusBadRequest, "missing_actor", "actor is required")
		return uuid.Nil, nil, false
	}

	return id, &req, true
}

func (h *ParametersHandler) writeUpdated(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	candidate, err := h.review.Get(r.Context(), id)
	if err != nil {
		h.serviceError(w, err, "Failed to load parameter after update")
		return
	}
	h.writeParameter(w, candidate)
}

func (h *ParametersHandler) writeParameter(w http.ResponseWriter, candidate *models.ParameterCandidate) {
	if err := WriteJSON(w, http.StatusOK, ParameterResponse{
		Parameter:     candidate,
		Status:        candidate.Status.Display(),
		CanonicalName: candidate.CanonicalName(),
	}); err != nil {
		h.logger.Error("Failed to encode parameter response", zap.Error(err))
	}
}

func (h *ParametersHandler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_parameter_id", "parameter ID must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func (h *ParametersHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	if err := ErrorResponse(w, status, code, message); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}

func (h *ParametersHandler) serviceError(w http.ResponseWriter, err error, logMsg string) {
	status, code, message := serviceError(err)
	if status == http.StatusInternalServerError {
		h.logger.Error(logMsg, zap.Error(err))
	}
	h.writeError(w, status, code, message)
}
