package services

import (
	"context"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/careref/backend/internal/domain/entities"
	"github.com/careref/backend/internal/domain/providers"
	"github.com/careref/backend/internal/domain/repositories"
	"github.com/careref/backend/internal/infrastructure/observability"
	"github.com/careref/backend/pkg/config"
	apperrors "github.com/careref/backend/pkg/errors"
)

// datasetJob holds the refresh state for one dataset. refreshMu serializes
// refresh attempts; a forced refresh that cannot take the lock is a no-op.
// stateMu guards the serving copy and status fields.
type datasetJob struct {
	source providers.SourceProvider

	refreshMu sync.Mutex

	stateMu             sync.RWMutex
	items               []string
	servingSource       entities.SnapshotSource
	lastSuccessAt       *time.Time
	consecutiveFailures int
	running             bool
}

// RefreshService keeps the enumerable datasets current. Each dataset runs
// its own periodic job: fetch live, fall back to the durable snapshot, fall
// back to the bundled seed. A failed fetch never replaces served data.
type RefreshService struct {
	jobs      map[string]*datasetJob
	snapshots repositories.SnapshotRepository
	eventBus  providers.EventBus
	metrics   *observability.Metrics
	cfg       config.RefreshConfig

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRefreshService creates a refresh service over the given dataset sources
func NewRefreshService(
	sources []providers.SourceProvider,
	snapshots repositories.SnapshotRepository,
	eventBus providers.EventBus,
	metrics *observability.Metrics,
	cfg config.RefreshConfig,
) *RefreshService {
	jobs := make(map[string]*datasetJob, len(sources))
	for _, source := range sources {
		jobs[source.Name()] = &datasetJob{source: source}
	}

	return &RefreshService{
		jobs:      jobs,
		snapshots: snapshots,
		eventBus:  eventBus,
		metrics:   metrics,
		cfg:       cfg,
	}
}

// Start hydrates every dataset's serving copy from the durable snapshot (or
// the bundled seed) and schedules the periodic jobs, which begin with an
// immediate live fetch. It never waits on the upstream sources, so callers
// can serve data as soon as it returns.
func (s *RefreshService) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	for datasetID, job := range s.jobs {
		s.hydrate(ctx, datasetID, job)

		s.wg.Add(1)
		go s.run(runCtx, datasetID, job)
	}

	log.Printf("Refresh service started for %d datasets (interval %v)", len(s.jobs), s.cfg.Interval)
}

// Stop cancels the periodic jobs and waits for them to exit
func (s *RefreshService) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	log.Println("Refresh service stopped")
}

func (s *RefreshService) run(ctx context.Context, datasetID string, job *datasetJob) {
	defer s.wg.Done()

	s.refresh(ctx, datasetID, job)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refresh(ctx, datasetID, job)
		}
	}
}

// ForceRefresh triggers an immediate refresh outside the schedule. If a
// refresh for the dataset is already in flight it does nothing and returns
// the current status with refreshed=false.
func (s *RefreshService) ForceRefresh(ctx context.Context, datasetID string) (*entities.RefreshStatus, bool, error) {
	job, ok := s.jobs[datasetID]
	if !ok {
		return nil, false, apperrors.NewNotFoundError("unknown dataset: " + datasetID)
	}

	if !job.refreshMu.TryLock() {
		status := s.status(datasetID, job)
		return status, false, nil
	}

	s.doRefresh(ctx, datasetID, job)
	job.refreshMu.Unlock()

	return s.status(datasetID, job), true, nil
}

// Status returns the refresh state of a dataset
func (s *RefreshService) Status(datasetID string) (*entities.RefreshStatus, error) {
	job, ok := s.jobs[datasetID]
	if !ok {
		return nil, apperrors.NewNotFoundError("unknown dataset: " + datasetID)
	}
	return s.status(datasetID, job), nil
}

// Datasets returns the known dataset identifiers, sorted
func (s *RefreshService) Datasets() []string {
	ids := make([]string, 0, len(s.jobs))
	for id := range s.jobs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Items returns the currently served copy of a dataset, optionally filtered
// by a case-insensitive prefix and truncated to limit entries.
func (s *RefreshService) Items(datasetID, prefix string, limit int) ([]string, error) {
	job, ok := s.jobs[datasetID]
	if !ok {
		return nil, apperrors.NewNotFoundError("unknown dataset: " + datasetID)
	}

	job.stateMu.RLock()
	defer job.stateMu.RUnlock()

	lowered := strings.ToLower(prefix)
	items := make([]string, 0, limit)
	for _, item := range job.items {
		if lowered != "" && !strings.HasPrefix(strings.ToLower(item), lowered) {
			continue
		}
		items = append(items, item)
		if limit > 0 && len(items) >= limit {
			break
		}
	}

	return items, nil
}

// hydrate fills the serving copy from the durable snapshot, falling back to
// the bundled seed, so reads work before the first live fetch lands. The
// source stays non-live until a fetch succeeds.
func (s *RefreshService) hydrate(ctx context.Context, datasetID string, job *datasetJob) {
	job.stateMu.Lock()
	defer job.stateMu.Unlock()

	snapshot, err := s.snapshots.Load(ctx, datasetID)
	if err == nil && len(snapshot.Items) > 0 {
		job.items = snapshot.Items
		job.servingSource = entities.SnapshotSourceDurable
		return
	}

	if err != nil && !apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
		log.Printf("Failed to load snapshot for dataset %s: %v", datasetID, err)
	}

	job.items = job.source.Seed()
	job.servingSource = entities.SnapshotSourceSeed
}

// refresh performs one refresh attempt for a dataset. Callers outside the
// scheduler reach it through ForceRefresh so attempts never overlap.
func (s *RefreshService) refresh(ctx context.Context, datasetID string, job *datasetJob) {
	job.refreshMu.Lock()
	defer job.refreshMu.Unlock()
	s.doRefresh(ctx, datasetID, job)
}

// doRefresh runs one attempt; the caller must hold refreshMu
func (s *RefreshService) doRefresh(ctx context.Context, datasetID string, job *datasetJob) {
	job.stateMu.Lock()
	job.running = true
	job.stateMu.Unlock()

	defer func() {
		job.stateMu.Lock()
		job.running = false
		job.stateMu.Unlock()
	}()

	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	items, err := job.source.Fetch(fetchCtx)
	cancel()

	if err == nil && len(items) > 0 {
		s.applyLive(ctx, datasetID, job, items)
		observability.RecordRefresh(ctx, s.metrics, datasetID, true)
		return
	}

	if err == nil {
		err = apperrors.NewExternalError("upstream returned empty dataset", nil)
	}

	log.Printf("Refresh failed for dataset %s: %v", datasetID, err)
	s.applyFallback(ctx, datasetID, job)
	observability.RecordRefresh(ctx, s.metrics, datasetID, false)
}

// applyLive stores and serves a successful fetch
func (s *RefreshService) applyLive(ctx context.Context, datasetID string, job *datasetJob, items []string) {
	items = dedupeItems(items)

	if err := s.snapshots.Save(ctx, datasetID, items, entities.SnapshotSourceLive); err != nil {
		// Keep serving the fresh copy even if persistence failed; the next
		// successful refresh will retry the write.
		log.Printf("Failed to persist snapshot for dataset %s: %v", datasetID, err)
	}

	now := time.Now()
	job.stateMu.Lock()
	job.items = items
	job.servingSource = entities.SnapshotSourceLive
	job.lastSuccessAt = &now
	job.consecutiveFailures = 0
	job.stateMu.Unlock()

	if s.eventBus != nil {
		event := &entities.DatasetEvent{
			ID:        uuid.New().String(),
			Type:      entities.EventDatasetRefreshed,
			DatasetID: datasetID,
			Count:     len(items),
			Timestamp: now,
		}
		if err := s.eventBus.Publish(ctx, entities.ChannelDatasets, event); err != nil {
			log.Printf("Failed to publish refresh event for dataset %s: %v", datasetID, err)
		}
	}

	log.Printf("Dataset %s refreshed from live source (%d items)", datasetID, len(items))
}

// applyFallback serves the durable snapshot when one exists, else the seed.
// The stored snapshot is never overwritten on failure.
func (s *RefreshService) applyFallback(ctx context.Context, datasetID string, job *datasetJob) {
	job.stateMu.Lock()
	defer job.stateMu.Unlock()

	job.consecutiveFailures++

	snapshot, err := s.snapshots.Load(ctx, datasetID)
	if err == nil && len(snapshot.Items) > 0 {
		job.items = snapshot.Items
		job.servingSource = entities.SnapshotSourceDurable
		return
	}

	if err != nil && !apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
		log.Printf("Failed to load snapshot for dataset %s: %v", datasetID, err)
	}

	job.items = job.source.Seed()
	job.servingSource = entities.SnapshotSourceSeed
}

// dedupeItems drops repeated entries while preserving upstream order. The
// public drug and disease lists both repeat terms across pages.
func dedupeItems(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	deduped := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		deduped = append(deduped, item)
	}
	return deduped
}

func (s *RefreshService) status(datasetID string, job *datasetJob) *entities.RefreshStatus {
	job.stateMu.RLock()
	defer job.stateMu.RUnlock()

	return &entities.RefreshStatus{
		DatasetID:           datasetID,
		IsRunning:           job.running,
		LastSuccessAt:       job.lastSuccessAt,
		LastAttemptSource:   job.servingSource,
		ConsecutiveFailures: job.consecutiveFailures,
		NetworkWarning:      job.servingSource != entities.SnapshotSourceLive,
		ItemCount:           len(job.items),
	}
}
