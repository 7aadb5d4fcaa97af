package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/careref/backend/internal/domain/entities"
	"github.com/careref/backend/internal/domain/repositories"
)

// PromotionService defines the promotion workflow operations used by the handler
type PromotionService interface {
	Request(ctx context.Context, referenceID, requestedBy, reason string) (*entities.PromotionRequest, bool, error)
	Assign(ctx context.Context, requestID, assignee string) (*entities.PromotionRequest, error)
	Unassign(ctx context.Context, requestID string) (*entities.PromotionRequest, error)
	Complete(ctx context.Context, requestID string, curated *entities.CuratedCondition, notes string) (*entities.PromotionRequest, error)
	Reject(ctx context.Context, requestID, notes string) (*entities.PromotionRequest, error)
	Get(ctx context.Context, requestID string) (*entities.PromotionRequest, error)
	List(ctx context.Context, filter repositories.PromotionFilter) ([]*entities.PromotionRequest, error)
}

// PromotionHandler handles promotion workflow HTTP requests
type PromotionHandler struct {
	service PromotionService
}

// NewPromotionHandler creates a new promotion handler
func NewPromotionHandler(service PromotionService) *PromotionHandler {
	return &PromotionHandler{service: service}
}

type createPromotionRequest struct {
	ReferenceID string `json:"reference_id"`
	RequestedBy string `json:"requested_by"`
	Reason      string `json:"reason"`
}

type updatePromotionRequest struct {
	Action   string                     `json:"action"`
	Assignee string                     `json:"assignee,omitempty"`
	Notes    string                     `json:"notes,omitempty"`
	Curated  *entities.CuratedCondition `json:"curated,omitempty"`
}

// CreateRequest handles POST /api/promotions. Returns 201 for a new request
// and 200 when an open request for the reference entry already existed.
func (h *PromotionHandler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	var payload createPromotionRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	request, created, err := h.service.Request(r.Context(), payload.ReferenceID, payload.RequestedBy, payload.Reason)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	statusCode := http.StatusOK
	if created {
		statusCode = http.StatusCreated
	}

	respondWithJSON(w, statusCode, request)
}

// ListRequests handles GET /api/promotions?status=&limit=&offset=
func (h *PromotionHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	filter := repositories.PromotionFilter{
		Status: entities.PromotionStatus(r.URL.Query().Get("status")),
		Limit:  50,
	}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 200 {
			filter.Limit = parsed
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 0 {
			filter.Offset = parsed
		}
	}

	requests, err := h.service.List(r.Context(), filter)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"requests": requests,
		"count":    len(requests),
	})
}

// GetRequest handles GET /api/promotions/{id}
func (h *PromotionHandler) GetRequest(w http.ResponseWriter, r *http.Request) {
	requestID := r.PathValue("id")
	if requestID == "" {
		respondWithError(w, http.StatusBadRequest, "request ID is required")
		return
	}

	request, err := h.service.Get(r.Context(), requestID)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, request)
}

// UpdateRequest handles PATCH /api/promotions/{id} with an action payload
func (h *PromotionHandler) UpdateRequest(w http.ResponseWriter, r *http.Request) {
	requestID := r.PathValue("id")
	if requestID == "" {
		respondWithError(w, http.StatusBadRequest, "request ID is required")
		return
	}

	var payload updatePromotionRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	var (
		request *entities.PromotionRequest
		err     error
	)

	switch payload.Action {
	case "assign":
		request, err = h.service.Assign(r.Context(), requestID, payload.Assignee)
	case "unassign":
		request, err = h.service.Unassign(r.Context(), requestID)
	case "complete":
		request, err = h.service.Complete(r.Context(), requestID, payload.Curated, payload.Notes)
	case "reject":
		request, err = h.service.Reject(r.Context(), requestID, payload.Notes)
	default:
		respondWithError(w, http.StatusBadRequest, "action must be one of assign, unassign, complete, reject")
		return
	}

	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, request)
}
