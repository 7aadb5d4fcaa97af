package sources_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careref/backend/internal/adapters/sources"
)

func TestDrugSource_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/displaynames.json", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"displayTermsList":{"term":["Aspirin","Metformin","Warfarin"]}}`))
	}))
	defer server.Close()

	source := sources.NewDrugSource(server.URL)
	assert.Equal(t, "drugs", source.Name())

	items, err := source.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Aspirin", "Metformin", "Warfarin"}, items)
}

func TestDrugSource_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	source := sources.NewDrugSource(server.URL)
	_, err := source.Fetch(context.Background())
	assert.Error(t, err)
}

func TestDrugSource_MalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer server.Close()

	source := sources.NewDrugSource(server.URL)
	_, err := source.Fetch(context.Background())
	assert.Error(t, err)
}

func TestDrugSource_EmptyListIsAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"displayTermsList":{"term":[]}}`))
	}))
	defer server.Close()

	source := sources.NewDrugSource(server.URL)
	_, err := source.Fetch(context.Background())
	assert.Error(t, err)
}

func TestDrugSource_SeedIsNonEmpty(t *testing.T) {
	source := sources.NewDrugSource("http://unused")
	assert.NotEmpty(t, source.Seed())
}
