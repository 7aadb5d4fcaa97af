package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/careref/backend/internal/domain/providers"
)

// DrugSource fetches the full drug display-name list from an RxNav-style
// upstream. An empty or malformed response is an error, never an empty
// dataset, so a bad fetch can fall through to the durable snapshot.
type DrugSource struct {
	baseURL    string
	httpClient *http.Client
}

var _ providers.SourceProvider = (*DrugSource)(nil)

type drugDisplayTermsResponse struct {
	DisplayTermsList struct {
		Term []string `json:"term"`
	} `json:"displayTermsList"`
}

// NewDrugSource creates a drug list source against the given base URL
func NewDrugSource(baseURL string) *DrugSource {
	return &DrugSource{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Name identifies the dataset
func (s *DrugSource) Name() string {
	return "drugs"
}

// Fetch retrieves the drug display-name list from the live upstream
func (s *DrugSource) Fetch(ctx context.Context) ([]string, error) {
	url := s.baseURL + "/displaynames.json"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create drug list request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("drug list request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("drug list upstream returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read drug list response: %w", err)
	}

	var parsed drugDisplayTermsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse drug list response: %w", err)
	}

	terms := parsed.DisplayTermsList.Term
	if len(terms) == 0 {
		return nil, fmt.Errorf("drug list upstream returned no terms")
	}

	return terms, nil
}

// Seed returns the bundled static drug list
func (s *DrugSource) Seed() []string {
	return seedDrugs()
}
