package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/careref/backend/internal/domain/entities"
	"github.com/careref/backend/internal/domain/providers"
)

// CacheInvalidationService drops cached HTTP responses when the data behind
// them changes: dataset refreshes invalidate that dataset's endpoints,
// completed promotions invalidate search responses.
type CacheInvalidationService struct {
	cache    providers.CacheProvider
	local    *AdaptiveCache
	eventBus providers.EventBus
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewCacheInvalidationService creates a new cache invalidation service
func NewCacheInvalidationService(cache providers.CacheProvider, local *AdaptiveCache, eventBus providers.EventBus) *CacheInvalidationService {
	ctx, cancel := context.WithCancel(context.Background())
	return &CacheInvalidationService{
		cache:    cache,
		local:    local,
		eventBus: eventBus,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins listening for events and invalidating cache
func (s *CacheInvalidationService) Start() error {
	datasetChan, err := s.eventBus.Subscribe(s.ctx, entities.ChannelDatasets)
	if err != nil {
		return fmt.Errorf("failed to subscribe to dataset events: %w", err)
	}

	promotionChan, err := s.eventBus.Subscribe(s.ctx, entities.ChannelPromotions)
	if err != nil {
		return fmt.Errorf("failed to subscribe to promotion events: %w", err)
	}

	go s.processEvents(datasetChan)
	go s.processEvents(promotionChan)
	log.Println("Cache invalidation service started")
	return nil
}

// Stop stops the cache invalidation service
func (s *CacheInvalidationService) Stop() {
	s.cancel()
	log.Println("Cache invalidation service stopped")
}

func (s *CacheInvalidationService) processEvents(eventChan <-chan *entities.DatasetEvent) {
	for {
		select {
		case <-s.ctx.Done():
			return
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			if event == nil {
				continue
			}
			s.handleEvent(event)
		}
	}
}

func (s *CacheInvalidationService) handleEvent(event *entities.DatasetEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	switch event.Type {
	case entities.EventDatasetRefreshed:
		pattern := fmt.Sprintf("http:cache:/api/cache/%s/*", event.DatasetID)
		if err := s.cache.DeletePattern(ctx, pattern); err != nil {
			log.Printf("Failed to invalidate cache for dataset %s: %v", event.DatasetID, err)
		}
	case entities.EventPromotionCompleted:
		if err := s.cache.DeletePattern(ctx, "http:cache:/api/search*"); err != nil {
			log.Printf("Failed to invalidate search cache after promotion of %s: %v", event.Subject, err)
		}
		if s.local != nil {
			s.local.Purge()
		}
	default:
		log.Printf("Ignoring unknown event type %s", event.Type)
	}
}
