package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careref/backend/internal/application/services"
	"github.com/careref/backend/internal/domain/entities"
	"github.com/careref/backend/pkg/config"
)

type stubEventBus struct {
	mu       sync.Mutex
	channels map[string]chan *entities.DatasetEvent
}

func newStubEventBus() *stubEventBus {
	return &stubEventBus{channels: make(map[string]chan *entities.DatasetEvent)}
}

func (b *stubEventBus) Publish(ctx context.Context, channel string, event *entities.DatasetEvent) error {
	b.mu.Lock()
	ch, ok := b.channels[channel]
	b.mu.Unlock()
	if ok {
		ch <- event
	}
	return nil
}

func (b *stubEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.DatasetEvent, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan *entities.DatasetEvent, 8)
	b.channels[channel] = ch
	return ch, nil
}

func (b *stubEventBus) Close() error { return nil }

type recordingCache struct {
	mu       sync.Mutex
	patterns []string
}

func (c *recordingCache) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, context.Canceled
}

func (c *recordingCache) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	return nil
}

func (c *recordingCache) Delete(ctx context.Context, key string) error { return nil }

func (c *recordingCache) DeletePattern(ctx context.Context, pattern string) error {
	c.mu.Lock()
	c.patterns = append(c.patterns, pattern)
	c.mu.Unlock()
	return nil
}

func (c *recordingCache) Exists(ctx context.Context, key string) (bool, error) { return false, nil }

func (c *recordingCache) deleted() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	patterns := make([]string, len(c.patterns))
	copy(patterns, c.patterns)
	return patterns
}

func TestCacheInvalidation_DatasetRefresh(t *testing.T) {
	bus := newStubEventBus()
	recorder := &recordingCache{}

	svc := services.NewCacheInvalidationService(recorder, nil, bus)
	require.NoError(t, svc.Start())
	defer svc.Stop()

	err := bus.Publish(context.Background(), entities.ChannelDatasets, &entities.DatasetEvent{
		ID:        "evt-1",
		Type:      entities.EventDatasetRefreshed,
		DatasetID: "drugs",
		Timestamp: time.Now(),
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(recorder.deleted()) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, "http:cache:/api/cache/drugs/*", recorder.deleted()[0])
}

func TestCacheInvalidation_PromotionCompleted(t *testing.T) {
	bus := newStubEventBus()
	recorder := &recordingCache{}
	local := services.NewAdaptiveCache(config.CacheConfig{
		MaxEntries:  16,
		UrgentTTL:   time.Minute,
		StandardTTL: time.Minute,
		ResearchTTL: time.Minute,
	}, config.BreakerConfig{FailureThreshold: 5, Cooldown: time.Minute}, nil)
	require.NoError(t, local.Set(services.TTLClassStandard, "search:pots", []byte("cached")))

	svc := services.NewCacheInvalidationService(recorder, local, bus)
	require.NoError(t, svc.Start())
	defer svc.Stop()

	err := bus.Publish(context.Background(), entities.ChannelPromotions, &entities.DatasetEvent{
		ID:        "evt-2",
		Type:      entities.EventPromotionCompleted,
		Subject:   "ref-pots",
		Timestamp: time.Now(),
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(recorder.deleted()) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, "http:cache:/api/search*", recorder.deleted()[0])

	// The in-process tier was purged as well
	_, ok := local.Get(context.Background(), services.TTLClassStandard, "search:pots")
	assert.False(t, ok)
}
