package services

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/careref/backend/internal/domain/entities"
	"github.com/careref/backend/internal/domain/providers"
	"github.com/careref/backend/internal/domain/repositories"
	"github.com/careref/backend/internal/infrastructure/observability"
	"github.com/careref/backend/pkg/config"
	apperrors "github.com/careref/backend/pkg/errors"
)

// AutoPromotionRequester identifies requests opened by the search threshold
const AutoPromotionRequester = "system:search-threshold"

const suggestionDependency = "typesense"

// TieredSearchService answers condition lookups against the two knowledge
// base tiers. Curated entries always win; reference entries answer only
// when no curated entry matches. A miss returns suggestions, not an error.
type TieredSearchService struct {
	curated     repositories.CuratedConditionRepository
	references  repositories.ReferenceConditionRepository
	suggestions providers.SuggestionProvider
	promotions  *PromotionService
	analytics   *SearchAnalyticsService
	cache       *AdaptiveCache
	metrics     *observability.Metrics
	cfg         config.PromotionConfig
}

// NewTieredSearchService creates a new tiered search service
func NewTieredSearchService(
	curated repositories.CuratedConditionRepository,
	references repositories.ReferenceConditionRepository,
	suggestions providers.SuggestionProvider,
	promotions *PromotionService,
	analytics *SearchAnalyticsService,
	cache *AdaptiveCache,
	metrics *observability.Metrics,
	cfg config.PromotionConfig,
) *TieredSearchService {
	return &TieredSearchService{
		curated:     curated,
		references:  references,
		suggestions: suggestions,
		promotions:  promotions,
		analytics:   analytics,
		cache:       cache,
		metrics:     metrics,
		cfg:         cfg,
	}
}

// Normalize lowercases, trims and collapses internal whitespace so lookups
// and counters key on one canonical form of each query.
func Normalize(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

// Search runs a tiered lookup for the query
func (s *TieredSearchService) Search(ctx context.Context, query string) (*entities.TieredSearchResult, error) {
	normalized := Normalize(query)
	if normalized == "" {
		return nil, apperrors.NewValidationError("query is required")
	}

	start := time.Now()
	result, cached := s.cachedResult(ctx, normalized)
	if !cached {
		var err error
		result, err = s.search(ctx, normalized)
		if err != nil {
			return nil, err
		}
		s.cacheResult(normalized, result)
	} else if result.Tier == entities.SearchTierReference {
		// Counters still advance when a cached reference answer is served
		for _, reference := range result.Reference {
			go s.trackReferenceHit(reference.ReferenceID)
		}
	}
	result.Query = query

	observability.RecordSearch(ctx, s.metrics, int(result.Tier))
	if s.analytics != nil {
		s.analytics.TrackSearch(ctx, &entities.SearchEvent{
			Query:           query,
			NormalizedQuery: normalized,
			Tier:            int(result.Tier),
			ResultCount:     len(result.Curated) + len(result.Reference),
			LatencyMs:       int(time.Since(start).Milliseconds()),
		})
	}

	return result, nil
}

func (s *TieredSearchService) search(ctx context.Context, normalized string) (*entities.TieredSearchResult, error) {
	curated, err := s.curated.FindByTerm(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if len(curated) > 0 {
		return &entities.TieredSearchResult{
			Tier:    entities.SearchTierCurated,
			Curated: curated,
		}, nil
	}

	references, err := s.references.FindByTerm(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if len(references) > 0 {
		for _, reference := range references {
			go s.trackReferenceHit(reference.ReferenceID)
		}
		return &entities.TieredSearchResult{
			Tier:      entities.SearchTierReference,
			Reference: references,
		}, nil
	}

	return &entities.TieredSearchResult{
		Tier:        entities.SearchTierNone,
		Suggestions: s.suggest(ctx, normalized),
	}, nil
}

// cachedResult returns a previously cached answer for the normalized query.
// Only reference answers and misses are cached; curated entries are small
// and read straight from the database.
func (s *TieredSearchService) cachedResult(ctx context.Context, normalized string) (*entities.TieredSearchResult, bool) {
	if s.cache == nil {
		return nil, false
	}

	data, ok := s.cache.Get(ctx, TTLClassStandard, "search:"+normalized)
	if !ok {
		return nil, false
	}

	result := &entities.TieredSearchResult{}
	if err := json.Unmarshal(data, result); err != nil {
		return nil, false
	}
	return result, true
}

func (s *TieredSearchService) cacheResult(normalized string, result *entities.TieredSearchResult) {
	if s.cache == nil || result.Tier == entities.SearchTierCurated {
		return
	}

	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := s.cache.Set(TTLClassStandard, "search:"+normalized, data); err != nil {
		log.Printf("Warning: failed to cache search result for %q: %v", normalized, err)
	}
}

// suggest fetches near-match suggestions through the search engine's
// circuit breaker. Suggestions are best effort; a tripped breaker or an
// upstream error just means none are offered.
func (s *TieredSearchService) suggest(ctx context.Context, normalized string) []string {
	if s.suggestions == nil {
		return nil
	}

	fetch := func(ctx context.Context) ([]string, error) {
		return s.suggestions.Suggest(ctx, normalized, 5)
	}

	if s.cache == nil {
		suggestions, err := fetch(ctx)
		if err != nil {
			log.Printf("Warning: suggestion lookup failed for %q: %v", normalized, err)
			return nil
		}
		return suggestions
	}

	result, err := s.cache.CallWithBreaker(ctx, suggestionDependency, func() (interface{}, error) {
		return fetch(ctx)
	})
	if err != nil {
		log.Printf("Warning: suggestion lookup failed for %q: %v", normalized, err)
		return nil
	}

	return result.([]string)
}

// trackReferenceHit bumps the search counters for a reference entry and
// opens an automatic promotion request once the thresholds are crossed.
// Runs off the request path on a fresh context.
func (s *TieredSearchService) trackReferenceHit(referenceID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	now := time.Now()
	if err := s.references.IncrementSearchCount(ctx, referenceID, entities.SearchBucket(now)); err != nil {
		log.Printf("Warning: failed to increment search count for %s: %v", referenceID, err)
		return
	}

	if s.promotions == nil {
		return
	}

	reference, err := s.references.GetByID(ctx, referenceID)
	if err != nil {
		log.Printf("Warning: failed to reload reference %s: %v", referenceID, err)
		return
	}

	if reference.Promoted {
		return
	}
	if reference.PeriodSearches(now) < s.cfg.PeriodThreshold &&
		reference.LifetimeSearches < s.cfg.LifetimeThreshold {
		return
	}

	reason := "search volume crossed the promotion threshold"
	if _, _, err := s.promotions.Request(ctx, referenceID, AutoPromotionRequester, reason); err != nil {
		if !apperrors.IsType(err, apperrors.ErrorTypeConflict) {
			log.Printf("Warning: failed to open automatic promotion request for %s: %v", referenceID, err)
		}
	}
}
