package handlers

import (
	"context"
	"net/http"

	"github.com/careref/backend/internal/domain/entities"
)

// SearchService defines the search operations used by the handler
type SearchService interface {
	Search(ctx context.Context, query string) (*entities.TieredSearchResult, error)
}

// SearchHandler handles knowledge base search requests
type SearchHandler struct {
	service SearchService
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(service SearchService) *SearchHandler {
	return &SearchHandler{service: service}
}

// Search handles GET /api/search?q=...
// A miss is a 200 with tier 0 and suggestions, not a 404.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		respondWithError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}

	result, err := h.service.Search(r.Context(), query)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}
