package services_test

import (
	"context"
	"sync"
	"time"

	"github.com/careref/backend/internal/domain/entities"
	"github.com/careref/backend/internal/domain/repositories"
	apperrors "github.com/careref/backend/pkg/errors"
)

type stubCuratedRepo struct {
	mu         sync.Mutex
	conditions map[string]*entities.CuratedCondition
	byTerm     map[string][]*entities.CuratedCondition
}

func newStubCuratedRepo() *stubCuratedRepo {
	return &stubCuratedRepo{
		conditions: make(map[string]*entities.CuratedCondition),
		byTerm:     make(map[string][]*entities.CuratedCondition),
	}
}

func (r *stubCuratedRepo) Create(ctx context.Context, condition *entities.CuratedCondition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conditions[condition.PrimaryCode]; ok {
		return apperrors.NewConflictError("curated condition already exists: " + condition.PrimaryCode)
	}
	r.conditions[condition.PrimaryCode] = condition
	return nil
}

func (r *stubCuratedRepo) Update(ctx context.Context, condition *entities.CuratedCondition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conditions[condition.PrimaryCode]; !ok {
		return apperrors.NewNotFoundError("curated condition not found")
	}
	r.conditions[condition.PrimaryCode] = condition
	return nil
}

func (r *stubCuratedRepo) GetByCode(ctx context.Context, code string) (*entities.CuratedCondition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, condition := range r.conditions {
		if condition.PrimaryCode == code || condition.SecondaryCode == code {
			return condition, nil
		}
	}
	return nil, apperrors.NewNotFoundError("curated condition not found: " + code)
}

func (r *stubCuratedRepo) FindByTerm(ctx context.Context, term string) ([]*entities.CuratedCondition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byTerm[term], nil
}

func (r *stubCuratedRepo) List(ctx context.Context, limit, offset int) ([]*entities.CuratedCondition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := make([]*entities.CuratedCondition, 0, len(r.conditions))
	for _, condition := range r.conditions {
		list = append(list, condition)
	}
	return list, nil
}

func (r *stubCuratedRepo) has(primaryCode string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.conditions[primaryCode]
	return ok
}

type stubReferenceRepo struct {
	mu         sync.Mutex
	conditions map[string]*entities.ReferenceCondition
	byTerm     map[string][]*entities.ReferenceCondition
}

func newStubReferenceRepo() *stubReferenceRepo {
	return &stubReferenceRepo{
		conditions: make(map[string]*entities.ReferenceCondition),
		byTerm:     make(map[string][]*entities.ReferenceCondition),
	}
}

func (r *stubReferenceRepo) add(condition *entities.ReferenceCondition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conditions[condition.ReferenceID] = condition
}

func (r *stubReferenceRepo) Create(ctx context.Context, condition *entities.ReferenceCondition) error {
	r.add(condition)
	return nil
}

func (r *stubReferenceRepo) GetByID(ctx context.Context, referenceID string) (*entities.ReferenceCondition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	condition, ok := r.conditions[referenceID]
	if !ok {
		return nil, apperrors.NewNotFoundError("reference condition not found: " + referenceID)
	}
	copied := *condition
	return &copied, nil
}

func (r *stubReferenceRepo) FindByTerm(ctx context.Context, term string) ([]*entities.ReferenceCondition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byTerm[term], nil
}

func (r *stubReferenceRepo) IncrementSearchCount(ctx context.Context, referenceID string, bucket string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	condition, ok := r.conditions[referenceID]
	if !ok {
		return apperrors.NewNotFoundError("reference condition not found: " + referenceID)
	}
	if condition.SearchCounts == nil {
		condition.SearchCounts = make(map[string]int)
	}
	condition.SearchCounts[bucket]++
	condition.LifetimeSearches++
	now := time.Now()
	condition.LastSearchedAt = &now
	return nil
}

func (r *stubReferenceRepo) MarkPromoted(ctx context.Context, referenceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	condition, ok := r.conditions[referenceID]
	if !ok {
		return apperrors.NewNotFoundError("reference condition not found: " + referenceID)
	}
	now := time.Now()
	condition.Promoted = true
	condition.PromotionDate = &now
	return nil
}

func (r *stubReferenceRepo) List(ctx context.Context, limit, offset int) ([]*entities.ReferenceCondition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := make([]*entities.ReferenceCondition, 0, len(r.conditions))
	for _, condition := range r.conditions {
		list = append(list, condition)
	}
	return list, nil
}

func (r *stubReferenceRepo) lifetimeSearches(referenceID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	condition, ok := r.conditions[referenceID]
	if !ok {
		return 0
	}
	return condition.LifetimeSearches
}

type stubPromotionRepo struct {
	mu       sync.Mutex
	requests map[string]*entities.PromotionRequest
}

func newStubPromotionRepo() *stubPromotionRepo {
	return &stubPromotionRepo{requests: make(map[string]*entities.PromotionRequest)}
}

func (r *stubPromotionRepo) Create(ctx context.Context, request *entities.PromotionRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.requests {
		if existing.ReferenceID == request.ReferenceID && existing.Status.IsOpen() {
			return apperrors.NewConflictError("open promotion request already exists")
		}
	}
	copied := *request
	r.requests[request.RequestID] = &copied
	return nil
}

func (r *stubPromotionRepo) Update(ctx context.Context, request *entities.PromotionRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.requests[request.RequestID]; !ok {
		return apperrors.NewNotFoundError("promotion request not found")
	}
	copied := *request
	r.requests[request.RequestID] = &copied
	return nil
}

func (r *stubPromotionRepo) GetByID(ctx context.Context, requestID string) (*entities.PromotionRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	request, ok := r.requests[requestID]
	if !ok {
		return nil, apperrors.NewNotFoundError("promotion request not found: " + requestID)
	}
	copied := *request
	return &copied, nil
}

func (r *stubPromotionRepo) GetOpenByReferenceID(ctx context.Context, referenceID string) (*entities.PromotionRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, request := range r.requests {
		if request.ReferenceID == referenceID && request.Status.IsOpen() {
			copied := *request
			return &copied, nil
		}
	}
	return nil, apperrors.NewNotFoundError("no open promotion request for " + referenceID)
}

func (r *stubPromotionRepo) List(ctx context.Context, filter repositories.PromotionFilter) ([]*entities.PromotionRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := make([]*entities.PromotionRequest, 0, len(r.requests))
	for _, request := range r.requests {
		if filter.Status != "" && request.Status != filter.Status {
			continue
		}
		copied := *request
		list = append(list, &copied)
	}
	return list, nil
}

func (r *stubPromotionRepo) openCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, request := range r.requests {
		if request.Status.IsOpen() {
			count++
		}
	}
	return count
}

type stubSuggestionProvider struct {
	mu          sync.Mutex
	suggestions []string
	err         error
	calls       int
}

func (p *stubSuggestionProvider) Suggest(ctx context.Context, query string, limit int) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return p.suggestions, nil
}

func (p *stubSuggestionProvider) Index(ctx context.Context, condition *entities.ReferenceCondition) error {
	return nil
}

type stubAnalyticsRepo struct {
	mu     sync.Mutex
	events []*entities.SearchEvent
}

func (r *stubAnalyticsRepo) LogEvent(ctx context.Context, event *entities.SearchEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *stubAnalyticsRepo) GetZeroResultQueries(ctx context.Context, limit int) ([]*entities.SearchEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	zero := make([]*entities.SearchEvent, 0)
	for _, event := range r.events {
		if event.ResultCount == 0 {
			zero = append(zero, event)
		}
	}
	if limit > 0 && len(zero) > limit {
		zero = zero[:limit]
	}
	return zero, nil
}

func (r *stubAnalyticsRepo) eventCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}
