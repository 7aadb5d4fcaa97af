package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/careref/backend/internal/domain/providers"
)

// DiseaseSource fetches condition names from a clinical-tables-style
// upstream. The API pages results; Fetch walks pages until exhausted.
type DiseaseSource struct {
	baseURL    string
	httpClient *http.Client
	pageSize   int
}

var _ providers.SourceProvider = (*DiseaseSource)(nil)

// NewDiseaseSource creates a disease list source against the given base URL
func NewDiseaseSource(baseURL string) *DiseaseSource {
	return &DiseaseSource{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		pageSize: 500,
	}
}

// Name identifies the dataset
func (s *DiseaseSource) Name() string {
	return "diseases"
}

// Fetch retrieves the condition name list from the live upstream
func (s *DiseaseSource) Fetch(ctx context.Context) ([]string, error) {
	var names []string
	offset := 0

	for {
		page, total, err := s.fetchPage(ctx, offset)
		if err != nil {
			return nil, err
		}

		names = append(names, page...)
		offset += len(page)

		if len(page) == 0 || offset >= total {
			break
		}
	}

	if len(names) == 0 {
		return nil, fmt.Errorf("disease list upstream returned no conditions")
	}

	return names, nil
}

// fetchPage retrieves one page. The upstream answers with a four-element
// JSON array: [total, codes, extra, display rows].
func (s *DiseaseSource) fetchPage(ctx context.Context, offset int) ([]string, int, error) {
	params := url.Values{}
	params.Set("terms", "")
	params.Set("maxList", fmt.Sprintf("%d", s.pageSize))
	params.Set("offset", fmt.Sprintf("%d", offset))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create disease list request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("disease list request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("disease list upstream returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read disease list response: %w", err)
	}

	var parsed []json.RawMessage
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, 0, fmt.Errorf("failed to parse disease list response: %w", err)
	}
	if len(parsed) < 4 {
		return nil, 0, fmt.Errorf("unexpected disease list response shape")
	}

	var total int
	if err := json.Unmarshal(parsed[0], &total); err != nil {
		return nil, 0, fmt.Errorf("failed to parse disease list total: %w", err)
	}

	var rows [][]string
	if err := json.Unmarshal(parsed[3], &rows); err != nil {
		return nil, 0, fmt.Errorf("failed to parse disease list rows: %w", err)
	}

	names := make([]string, 0, len(rows))
	for _, row := range rows {
		if len(row) > 0 && row[0] != "" {
			names = append(names, row[0])
		}
	}

	return names, total, nil
}

// Seed returns the bundled static disease list
func (s *DiseaseSource) Seed() []string {
	return seedDiseases()
}
