package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careref/backend/internal/application/services"
	"github.com/careref/backend/internal/domain/entities"
	"github.com/careref/backend/internal/domain/providers"
	"github.com/careref/backend/pkg/config"
	apperrors "github.com/careref/backend/pkg/errors"
)

type stubSource struct {
	mu    sync.Mutex
	name  string
	items []string
	err   error
	seed  []string
	gate  chan struct{}
}

func (s *stubSource) Fetch(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	gate := s.gate
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.items, nil
}

func (s *stubSource) Seed() []string { return s.seed }
func (s *stubSource) Name() string   { return s.name }

func (s *stubSource) setFetch(items []string, err error) {
	s.mu.Lock()
	s.items = items
	s.err = err
	s.mu.Unlock()
}

type stubSnapshotRepo struct {
	mu        sync.Mutex
	snapshots map[string]*entities.DatasetSnapshot
}

func newStubSnapshotRepo() *stubSnapshotRepo {
	return &stubSnapshotRepo{snapshots: make(map[string]*entities.DatasetSnapshot)}
}

func (r *stubSnapshotRepo) Save(ctx context.Context, datasetID string, items []string, source entities.SnapshotSource) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots[datasetID] = &entities.DatasetSnapshot{
		DatasetID: datasetID,
		Items:     items,
		Source:    source,
		Count:     len(items),
		UpdatedAt: time.Now(),
	}
	return nil
}

func (r *stubSnapshotRepo) Load(ctx context.Context, datasetID string) (*entities.DatasetSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	snapshot, ok := r.snapshots[datasetID]
	if !ok {
		return nil, apperrors.NewNotFoundError("no snapshot")
	}
	return snapshot, nil
}

func (r *stubSnapshotRepo) stored(datasetID string) *entities.DatasetSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshots[datasetID]
}

func newRefreshService(source providers.SourceProvider, repo *stubSnapshotRepo) *services.RefreshService {
	return services.NewRefreshService(
		[]providers.SourceProvider{source},
		repo,
		nil,
		nil,
		config.RefreshConfig{Interval: time.Hour, FetchTimeout: time.Minute},
	)
}

func TestRefreshService_LiveFetchServesLiveData(t *testing.T) {
	source := &stubSource{name: "drugs", items: []string{"Aspirin", "Metformin"}, seed: []string{"Aspirin"}}
	repo := newStubSnapshotRepo()
	svc := newRefreshService(source, repo)

	status, refreshed, err := svc.ForceRefresh(context.Background(), "drugs")
	require.NoError(t, err)
	assert.True(t, refreshed)
	assert.Equal(t, entities.SnapshotSourceLive, status.LastAttemptSource)
	assert.False(t, status.NetworkWarning)
	assert.Equal(t, 2, status.ItemCount)
	assert.Equal(t, 0, status.ConsecutiveFailures)
	require.NotNil(t, status.LastSuccessAt)

	snapshot := repo.stored("drugs")
	require.NotNil(t, snapshot)
	assert.Equal(t, []string{"Aspirin", "Metformin"}, snapshot.Items)
	assert.Equal(t, entities.SnapshotSourceLive, snapshot.Source)
}

func TestRefreshService_LiveFetchDropsDuplicates(t *testing.T) {
	source := &stubSource{
		name:  "drugs",
		items: []string{"Aspirin", "Metformin", "Aspirin", "Warfarin", "Metformin"},
		seed:  []string{"Aspirin"},
	}
	repo := newStubSnapshotRepo()
	svc := newRefreshService(source, repo)

	status, _, err := svc.ForceRefresh(context.Background(), "drugs")
	require.NoError(t, err)
	assert.Equal(t, 3, status.ItemCount)

	items, err := svc.Items("drugs", "", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"Aspirin", "Metformin", "Warfarin"}, items)

	snapshot := repo.stored("drugs")
	require.NotNil(t, snapshot)
	assert.Equal(t, []string{"Aspirin", "Metformin", "Warfarin"}, snapshot.Items)
	assert.Equal(t, 3, snapshot.Count)
}

func TestRefreshService_StartServesSnapshotBeforeFirstFetch(t *testing.T) {
	gate := make(chan struct{})
	source := &stubSource{
		name:  "drugs",
		items: []string{"Aspirin", "Metformin", "Warfarin"},
		seed:  []string{"Aspirin"},
		gate:  gate,
	}
	repo := newStubSnapshotRepo()
	require.NoError(t, repo.Save(context.Background(), "drugs", []string{"Aspirin", "Metformin"}, entities.SnapshotSourceLive))

	svc := newRefreshService(source, repo)
	svc.Start(context.Background())
	defer svc.Stop()

	// The upstream fetch is still blocked; the durable snapshot is served
	status, err := svc.Status("drugs")
	require.NoError(t, err)
	assert.Equal(t, entities.SnapshotSourceDurable, status.LastAttemptSource)
	assert.True(t, status.NetworkWarning)
	assert.Equal(t, 2, status.ItemCount)

	items, err := svc.Items("drugs", "", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"Aspirin", "Metformin"}, items)

	close(gate)
	require.Eventually(t, func() bool {
		status, err := svc.Status("drugs")
		return err == nil && status.LastAttemptSource == entities.SnapshotSourceLive
	}, time.Second, 10*time.Millisecond)
}

func TestRefreshService_StartWithoutSnapshotServesSeed(t *testing.T) {
	gate := make(chan struct{})
	source := &stubSource{
		name:  "drugs",
		items: []string{"Aspirin", "Metformin"},
		seed:  []string{"Aspirin", "Ibuprofen"},
		gate:  gate,
	}
	svc := newRefreshService(source, newStubSnapshotRepo())
	svc.Start(context.Background())
	defer svc.Stop()
	defer close(gate)

	status, err := svc.Status("drugs")
	require.NoError(t, err)
	assert.Equal(t, entities.SnapshotSourceSeed, status.LastAttemptSource)
	assert.Equal(t, 2, status.ItemCount)
}

func TestRefreshService_ForceRefreshWhileRunningIsANoOp(t *testing.T) {
	gate := make(chan struct{})
	source := &stubSource{
		name:  "drugs",
		items: []string{"Aspirin", "Metformin"},
		seed:  []string{"Aspirin"},
		gate:  gate,
	}
	svc := newRefreshService(source, newStubSnapshotRepo())

	first := make(chan bool, 1)
	go func() {
		_, refreshed, err := svc.ForceRefresh(context.Background(), "drugs")
		require.NoError(t, err)
		first <- refreshed
	}()

	require.Eventually(t, func() bool {
		status, err := svc.Status("drugs")
		return err == nil && status.IsRunning
	}, time.Second, 10*time.Millisecond)

	status, refreshed, err := svc.ForceRefresh(context.Background(), "drugs")
	require.NoError(t, err)
	assert.False(t, refreshed)
	assert.True(t, status.IsRunning)

	close(gate)
	assert.True(t, <-first)
}

func TestRefreshService_FailureFallsBackToDurableSnapshot(t *testing.T) {
	source := &stubSource{name: "drugs", items: []string{"Aspirin", "Metformin"}, seed: []string{"Aspirin"}}
	repo := newStubSnapshotRepo()
	svc := newRefreshService(source, repo)

	_, _, err := svc.ForceRefresh(context.Background(), "drugs")
	require.NoError(t, err)

	source.setFetch(nil, errors.New("connection refused"))

	status, refreshed, err := svc.ForceRefresh(context.Background(), "drugs")
	require.NoError(t, err)
	assert.True(t, refreshed)
	assert.Equal(t, entities.SnapshotSourceDurable, status.LastAttemptSource)
	assert.True(t, status.NetworkWarning)
	assert.Equal(t, 1, status.ConsecutiveFailures)
	assert.Equal(t, 2, status.ItemCount)

	// The stored snapshot keeps the last successful fetch
	snapshot := repo.stored("drugs")
	require.NotNil(t, snapshot)
	assert.Equal(t, entities.SnapshotSourceLive, snapshot.Source)
	assert.Equal(t, []string{"Aspirin", "Metformin"}, snapshot.Items)
}

func TestRefreshService_FailureWithoutSnapshotServesSeed(t *testing.T) {
	source := &stubSource{name: "drugs", err: errors.New("timeout"), seed: []string{"Aspirin", "Ibuprofen"}}
	repo := newStubSnapshotRepo()
	svc := newRefreshService(source, repo)

	status, _, err := svc.ForceRefresh(context.Background(), "drugs")
	require.NoError(t, err)
	assert.Equal(t, entities.SnapshotSourceSeed, status.LastAttemptSource)
	assert.True(t, status.NetworkWarning)
	assert.Equal(t, 2, status.ItemCount)
	assert.Nil(t, repo.stored("drugs"))
}

func TestRefreshService_EmptyFetchIsAFailure(t *testing.T) {
	source := &stubSource{name: "drugs", items: []string{}, seed: []string{"Aspirin"}}
	repo := newStubSnapshotRepo()
	svc := newRefreshService(source, repo)

	status, _, err := svc.ForceRefresh(context.Background(), "drugs")
	require.NoError(t, err)
	assert.Equal(t, entities.SnapshotSourceSeed, status.LastAttemptSource)
	assert.Equal(t, 1, status.ConsecutiveFailures)
}

func TestRefreshService_RecoveryClearsWarning(t *testing.T) {
	source := &stubSource{name: "drugs", err: errors.New("down"), seed: []string{"Aspirin"}}
	repo := newStubSnapshotRepo()
	svc := newRefreshService(source, repo)

	status, _, err := svc.ForceRefresh(context.Background(), "drugs")
	require.NoError(t, err)
	assert.True(t, status.NetworkWarning)

	source.setFetch([]string{"Aspirin", "Metformin", "Warfarin"}, nil)

	status, _, err = svc.ForceRefresh(context.Background(), "drugs")
	require.NoError(t, err)
	assert.False(t, status.NetworkWarning)
	assert.Equal(t, entities.SnapshotSourceLive, status.LastAttemptSource)
	assert.Equal(t, 0, status.ConsecutiveFailures)
	assert.Equal(t, 3, status.ItemCount)
}

func TestRefreshService_UnknownDataset(t *testing.T) {
	source := &stubSource{name: "drugs", seed: []string{"Aspirin"}}
	svc := newRefreshService(source, newStubSnapshotRepo())

	_, err := svc.Status("bogus")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))

	_, _, err = svc.ForceRefresh(context.Background(), "bogus")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))

	_, err = svc.Items("bogus", "", 10)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestRefreshService_ItemsPrefixFilter(t *testing.T) {
	source := &stubSource{name: "drugs", items: []string{"Aspirin", "Atorvastatin", "Metformin"}, seed: nil}
	svc := newRefreshService(source, newStubSnapshotRepo())

	_, _, err := svc.ForceRefresh(context.Background(), "drugs")
	require.NoError(t, err)

	items, err := svc.Items("drugs", "a", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"Aspirin", "Atorvastatin"}, items)

	items, err = svc.Items("drugs", "", 2)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestRefreshService_Datasets(t *testing.T) {
	drugs := &stubSource{name: "drugs", seed: []string{"Aspirin"}}
	diseases := &stubSource{name: "diseases", seed: []string{"Asthma"}}

	svc := services.NewRefreshService(
		[]providers.SourceProvider{drugs, diseases},
		newStubSnapshotRepo(),
		nil,
		nil,
		config.RefreshConfig{Interval: time.Hour, FetchTimeout: time.Second},
	)

	assert.Equal(t, []string{"diseases", "drugs"}, svc.Datasets())
}
