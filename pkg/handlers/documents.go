package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medscan-io/report-engine/pkg/models"
	"github.com/medscan-io/report-engine/pkg/services"
)

// IngestRequest is the payload for submitting a document for processing.
// RawText is the already-extracted text of the report; the binary original
// stays in object storage under StorageKey.
type IngestRequest struct {
	ClientID   string `json:"client_id"`
	StorageKey string `json:"storage_key"`
	Format     string `json:"format,omitempty"`
	RawText    string `json:"raw_text"`
}

// DocumentResponse is the standard response shape for document endpoints.
type DocumentResponse struct {
	Document   *models.Document             `json:"document"`
	Status     string                       `json:"status_display"`
	Candidates []*models.ParameterCandidate `json:"candidates,omitempty"`
}

// DocumentsHandler handles document intake and lifecycle HTTP requests.
type DocumentsHandler struct {
	documents services.DocumentService
	logger    *zap.Logger
}

// NewDocumentsHandler creates a new documents handler.
func NewDocumentsHandler(documents services.DocumentService, logger *zap.Logger) *DocumentsHandler {
	return &DocumentsHandler{
		documents: documents,
		logger:    logger,
	}
}

// RegisterRoutes registers the documents handler's routes on the given mux.
func (h *DocumentsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/documents", h.Ingest)
	mux.HandleFunc("GET /api/documents/{id}", h.Get)
	mux.HandleFunc("POST /api/documents/{id}/reprocess", h.Reprocess)
}

// Ingest handles POST /api/documents.
// Registers an uploaded report and queues it for the extraction pipeline.
func (h *DocumentsHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "request body must be valid JSON")
		return
	}

	clientID, err := uuid.Parse(req.ClientID)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_client_id", "client_id must be a valid UUID")
		return
	}
	if req.StorageKey == "" {
		h.writeError(w, http.StatusBadRequest, "missing_storage_key", "storage_key is required")
		return
	}

	doc, err := h.documents.Ingest(r.Context(), clientID, req.StorageKey, req.Format, req.RawText)
	if err != nil {
		h.serviceError(w, err, "Failed to ingest document")
		return
	}

	if err := WriteJSON(w, http.StatusAccepted, DocumentResponse{
		Document: doc,
		Status:   doc.Status.Display(),
	}); err != nil {
		h.logger.Error("Failed to encode document response", zap.Error(err))
	}
}

// Get handles GET /api/documents/{id}.
// Returns the document and all candidates extracted from it.
func (h *DocumentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	doc, candidates, err := h.documents.Get(r.Context(), id)
	if err != nil {
		h.serviceError(w, err, "Failed to get document")
		return
	}

	if err := WriteJSON(w, http.StatusOK, DocumentResponse{
		Document:   doc,
		Status:     doc.Status.Display(),
		Candidates: candidates,
	}); err != nil {
		h.logger.Error("Failed to encode document response", zap.Error(err))
	}
}

// Reprocess handles POST /api/documents/{id}/reprocess.
// Requeues the document for another pipeline run.
func (h *DocumentsHandler) Reprocess(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.documents.Reprocess(r.Context(), id); err != nil {
		h.serviceError(w, err, "Failed to reprocess document")
		return
	}

	if err := WriteJSON(w, http.StatusAccepted, map[string]string{
		"status":      "queued",
		"document_id": id.String(),
	}); err != nil {
		h.logger.Error("Failed to encode reprocess response", zap.Error(err))
	}
}

func (h *DocumentsHandler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_document_id", "document ID must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func (h *DocumentsHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	if err := ErrorResponse(w, status, code, message); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}

func (h *DocumentsHandler) serviceError(w http.ResponseWriter, err error, logMsg string) {
	status, code, message := serviceError(err)
	if status == http.StatusInternalServerError {
		h.logger.Error(logMsg, zap.Error(err))
	}
	h.writeError(w, status, code, message)
}
