package services

import (
	"context"
	"errors"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sony/gobreaker"

	"github.com/careref/backend/internal/infrastructure/observability"
	"github.com/careref/backend/pkg/config"
	apperrors "github.com/careref/backend/pkg/errors"
)

// TTLClass selects how long a cached entry stays valid. Urgent data ages
// out fastest; research data slowest.
type TTLClass string

const (
	TTLClassUrgent   TTLClass = "urgent"
	TTLClassStandard TTLClass = "standard"
	TTLClassResearch TTLClass = "research"
)

// BreakerState reports one dependency's circuit breaker for diagnostics
type BreakerState struct {
	Dependency          string     `json:"dependency"`
	State               string     `json:"state"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	OpenedAt            *time.Time `json:"opened_at,omitempty"`
}

// AdaptiveCache combines class-based TTL caching with per-dependency
// circuit breakers. Each TTL class is its own LRU store so one class
// filling up cannot evict another's entries. Breakers are created lazily on
// first use of a dependency and trip after a run of consecutive failures;
// after the cooldown a single trial call decides whether to close again.
type AdaptiveCache struct {
	stores  map[TTLClass]*lru.LRU[string, []byte]
	metrics *observability.Metrics

	breakerCfg config.BreakerConfig
	mu         sync.Mutex
	breakers   map[string]*gobreaker.CircuitBreaker

	// openedAt has its own lock: gobreaker invokes OnStateChange from
	// inside State() and Execute(), so it must never contend with mu.
	openMu   sync.Mutex
	openedAt map[string]time.Time
}

// NewAdaptiveCache creates an adaptive cache from configuration
func NewAdaptiveCache(cacheCfg config.CacheConfig, breakerCfg config.BreakerConfig, metrics *observability.Metrics) *AdaptiveCache {
	return &AdaptiveCache{
		stores: map[TTLClass]*lru.LRU[string, []byte]{
			TTLClassUrgent:   lru.NewLRU[string, []byte](cacheCfg.MaxEntries, nil, cacheCfg.UrgentTTL),
			TTLClassStandard: lru.NewLRU[string, []byte](cacheCfg.MaxEntries, nil, cacheCfg.StandardTTL),
			TTLClassResearch: lru.NewLRU[string, []byte](cacheCfg.MaxEntries, nil, cacheCfg.ResearchTTL),
		},
		metrics:    metrics,
		breakerCfg: breakerCfg,
		breakers:   make(map[string]*gobreaker.CircuitBreaker),
		openedAt:   make(map[string]time.Time),
	}
}

// ValidTTLClass reports whether class names a known TTL class
func ValidTTLClass(class TTLClass) bool {
	switch class {
	case TTLClassUrgent, TTLClassStandard, TTLClassResearch:
		return true
	}
	return false
}

// Get returns the cached value for key in the given class
func (c *AdaptiveCache) Get(ctx context.Context, class TTLClass, key string) ([]byte, bool) {
	store, ok := c.stores[class]
	if !ok {
		return nil, false
	}

	value, ok := store.Get(key)
	if ok {
		observability.RecordCacheHit(ctx, c.metrics, string(class))
		return value, true
	}

	observability.RecordCacheMiss(ctx, c.metrics, string(class))
	return nil, false
}

// Set stores a value under the given class
func (c *AdaptiveCache) Set(class TTLClass, key string, value []byte) error {
	store, ok := c.stores[class]
	if !ok {
		return apperrors.NewValidationError("unknown TTL class: " + string(class))
	}
	store.Add(key, value)
	return nil
}

// Delete removes a key from every class store
func (c *AdaptiveCache) Delete(key string) {
	for _, store := range c.stores {
		store.Remove(key)
	}
}

// Purge empties every class store
func (c *AdaptiveCache) Purge() {
	for _, store := range c.stores {
		store.Purge()
	}
}

// Fetch returns the cached value for key, or loads it through the
// dependency's circuit breaker and caches the result. A breaker that is
// open fails fast without calling the loader.
func (c *AdaptiveCache) Fetch(ctx context.Context, class TTLClass, dependency, key string, loader func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	if value, ok := c.Get(ctx, class, key); ok {
		return value, nil
	}

	result, err := c.CallWithBreaker(ctx, dependency, func() (interface{}, error) {
		return loader(ctx)
	})
	if err != nil {
		return nil, err
	}

	value := result.([]byte)
	if err := c.Set(class, key, value); err != nil {
		return nil, err
	}
	return value, nil
}

// CallWithBreaker runs fn through the dependency's circuit breaker
func (c *AdaptiveCache) CallWithBreaker(ctx context.Context, dependency string, fn func() (interface{}, error)) (interface{}, error) {
	breaker := c.breaker(dependency)

	result, err := breaker.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, apperrors.NewExternalError("dependency unavailable: "+dependency, err)
		}
		return nil, err
	}

	return result, nil
}

// BreakerStates returns the state of every breaker created so far
func (c *AdaptiveCache) BreakerStates() []BreakerState {
	c.mu.Lock()
	breakers := make(map[string]*gobreaker.CircuitBreaker, len(c.breakers))
	for dependency, breaker := range c.breakers {
		breakers[dependency] = breaker
	}
	c.mu.Unlock()

	states := make([]BreakerState, 0, len(breakers))
	for dependency, breaker := range breakers {
		states = append(states, c.breakerState(dependency, breaker))
	}
	return states
}

// BreakerStateFor returns one dependency's breaker state. A dependency that
// has never been called reports a closed breaker.
func (c *AdaptiveCache) BreakerStateFor(dependency string) BreakerState {
	c.mu.Lock()
	breaker, ok := c.breakers[dependency]
	c.mu.Unlock()

	if !ok {
		return BreakerState{Dependency: dependency, State: gobreaker.StateClosed.String()}
	}
	return c.breakerState(dependency, breaker)
}

func (c *AdaptiveCache) breakerState(dependency string, breaker *gobreaker.CircuitBreaker) BreakerState {
	current := breaker.State()
	state := BreakerState{
		Dependency:          dependency,
		State:               current.String(),
		ConsecutiveFailures: int(breaker.Counts().ConsecutiveFailures),
	}
	if current == gobreaker.StateOpen {
		c.openMu.Lock()
		if opened, ok := c.openedAt[dependency]; ok {
			t := opened
			state.OpenedAt = &t
		}
		c.openMu.Unlock()
	}
	return state
}

// breaker returns the dependency's circuit breaker, creating it on first use
func (c *AdaptiveCache) breaker(dependency string) *gobreaker.CircuitBreaker {
	c.mu.Lock()
	defer c.mu.Unlock()

	if breaker, ok := c.breakers[dependency]; ok {
		return breaker
	}

	threshold := uint32(c.breakerCfg.FailureThreshold)
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        dependency,
		MaxRequests: 1,
		Timeout:     c.breakerCfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.openMu.Lock()
			if to == gobreaker.StateOpen {
				c.openedAt[name] = time.Now()
			} else {
				delete(c.openedAt, name)
			}
			c.openMu.Unlock()
		},
	})

	c.breakers[dependency] = breaker
	return breaker
}
