package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/careref/backend/internal/domain/entities"
)

const defaultItemsLimit = 50

// DatasetRefresher defines the refresh operations used by the handler
type DatasetRefresher interface {
	Status(datasetID string) (*entities.RefreshStatus, error)
	ForceRefresh(ctx context.Context, datasetID string) (*entities.RefreshStatus, bool, error)
	Items(datasetID, prefix string, limit int) ([]string, error)
	Datasets() []string
}

// DatasetHandler handles dataset cache HTTP requests
type DatasetHandler struct {
	refresher DatasetRefresher
}

// NewDatasetHandler creates a new dataset handler
func NewDatasetHandler(refresher DatasetRefresher) *DatasetHandler {
	return &DatasetHandler{refresher: refresher}
}

// ListDatasets handles GET /api/cache
func (h *DatasetHandler) ListDatasets(w http.ResponseWriter, r *http.Request) {
	datasets := h.refresher.Datasets()
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"datasets": datasets,
		"count":    len(datasets),
	})
}

// GetStatus handles GET /api/cache/{dataset}/status
func (h *DatasetHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	datasetID := r.PathValue("dataset")
	if datasetID == "" {
		respondWithError(w, http.StatusBadRequest, "dataset is required")
		return
	}

	status, err := h.refresher.Status(datasetID)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, status)
}

// ForceRefresh handles POST /api/cache/{dataset}/refresh. Responds 202 when
// a refresh ran, 200 with the current status when one was already in flight.
func (h *DatasetHandler) ForceRefresh(w http.ResponseWriter, r *http.Request) {
	datasetID := r.PathValue("dataset")
	if datasetID == "" {
		respondWithError(w, http.StatusBadRequest, "dataset is required")
		return
	}

	status, refreshed, err := h.refresher.ForceRefresh(r.Context(), datasetID)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	statusCode := http.StatusAccepted
	if !refreshed {
		statusCode = http.StatusOK
	}

	respondWithJSON(w, statusCode, map[string]interface{}{
		"refreshed": refreshed,
		"status":    status,
	})
}

// ListItems handles GET /api/cache/{dataset}/items
func (h *DatasetHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	datasetID := r.PathValue("dataset")
	if datasetID == "" {
		respondWithError(w, http.StatusBadRequest, "dataset is required")
		return
	}

	prefix := r.URL.Query().Get("prefix")

	limit := defaultItemsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 1000 {
			respondWithError(w, http.StatusBadRequest, "limit must be an integer between 1 and 1000")
			return
		}
		limit = parsed
	}

	items, err := h.refresher.Items(datasetID, prefix, limit)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"dataset": datasetID,
		"items":   items,
		"count":   len(items),
	})
}
