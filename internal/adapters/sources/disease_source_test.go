package sources_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careref/backend/internal/adapters/sources"
)

func TestDiseaseSource_FetchWalksPages(t *testing.T) {
	pages := map[string]string{
		"0": `[4,["c1","c2"],null,[["Asthma"],["Bronchitis"]]]`,
		"2": `[4,["c3","c4"],null,[["Cholera"],["Diphtheria"]]]`,
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		offset := r.URL.Query().Get("offset")
		body, ok := pages[offset]
		if !ok {
			body = `[4,[],null,[]]`
		}
		fmt.Fprint(w, body)
	}))
	defer server.Close()

	source := sources.NewDiseaseSource(server.URL)
	assert.Equal(t, "diseases", source.Name())

	items, err := source.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Asthma", "Bronchitis", "Cholera", "Diphtheria"}, items)
}

func TestDiseaseSource_SinglePage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[2,["c1","c2"],null,[["Asthma"],["Bronchitis"]]]`)
	}))
	defer server.Close()

	source := sources.NewDiseaseSource(server.URL)
	items, err := source.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Asthma", "Bronchitis"}, items)
}

func TestDiseaseSource_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	source := sources.NewDiseaseSource(server.URL)
	_, err := source.Fetch(context.Background())
	assert.Error(t, err)
}

func TestDiseaseSource_UnexpectedShape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[2,["c1"]]`)
	}))
	defer server.Close()

	source := sources.NewDiseaseSource(server.URL)
	_, err := source.Fetch(context.Background())
	assert.Error(t, err)
}

func TestDiseaseSource_EmptyListIsAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[0,[],null,[]]`)
	}))
	defer server.Close()

	source := sources.NewDiseaseSource(server.URL)
	_, err := source.Fetch(context.Background())
	assert.Error(t, err)
}

func TestDiseaseSource_SeedIsNonEmpty(t *testing.T) {
	source := sources.NewDiseaseSource("http://unused")
	assert.NotEmpty(t, source.Seed())
}

func TestStaticSource(t *testing.T) {
	source := sources.NewStaticSource("drugs", []string{"Aspirin"})
	assert.Equal(t, "drugs", source.Name())

	items, err := source.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Aspirin"}, items)

	// Returned slices are copies; mutating one does not affect the source
	items[0] = "mutated"
	again, err := source.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Aspirin"}, again)
}
