package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/careref/backend/internal/domain/entities"
	"github.com/careref/backend/internal/domain/providers"
	"github.com/careref/backend/internal/domain/repositories"
	apperrors "github.com/careref/backend/pkg/errors"
)

// PromotionService runs the editorial workflow that moves reference entries
// into the curated tier. At most one open request exists per reference
// entry; repeat requests return the existing one.
type PromotionService struct {
	promotions repositories.PromotionRepository
	references repositories.ReferenceConditionRepository
	curated    repositories.CuratedConditionRepository
	eventBus   providers.EventBus
}

// NewPromotionService creates a new promotion service
func NewPromotionService(
	promotions repositories.PromotionRepository,
	references repositories.ReferenceConditionRepository,
	curated repositories.CuratedConditionRepository,
	eventBus providers.EventBus,
) *PromotionService {
	return &PromotionService{
		promotions: promotions,
		references: references,
		curated:    curated,
		eventBus:   eventBus,
	}
}

// Request opens a promotion request for a reference entry. If an open
// request already exists it is returned with created=false, so both manual
// requests and the automatic search-threshold trigger are idempotent.
func (s *PromotionService) Request(ctx context.Context, referenceID, requestedBy, reason string) (*entities.PromotionRequest, bool, error) {
	if referenceID == "" {
		return nil, false, apperrors.NewValidationError("reference_id is required")
	}
	if requestedBy == "" {
		return nil, false, apperrors.NewValidationError("requested_by is required")
	}

	reference, err := s.references.GetByID(ctx, referenceID)
	if err != nil {
		return nil, false, err
	}
	if reference.Promoted {
		return nil, false, apperrors.NewConflictError(fmt.Sprintf("reference condition %s is already promoted", referenceID))
	}

	if existing, err := s.promotions.GetOpenByReferenceID(ctx, referenceID); err == nil {
		return existing, false, nil
	} else if !apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
		return nil, false, err
	}

	request := &entities.PromotionRequest{
		RequestID:   uuid.New().String(),
		ReferenceID: referenceID,
		RequestedBy: requestedBy,
		Reason:      reason,
		Status:      entities.PromotionStatusPending,
		RequestedAt: time.Now(),
	}

	if err := s.promotions.Create(ctx, request); err != nil {
		// Lost a race with a concurrent request; return the winner
		if apperrors.IsType(err, apperrors.ErrorTypeConflict) {
			existing, getErr := s.promotions.GetOpenByReferenceID(ctx, referenceID)
			return existing, false, getErr
		}
		return nil, false, err
	}

	return request, true, nil
}

// Assign moves a pending request to assigned
func (s *PromotionService) Assign(ctx context.Context, requestID, assignee string) (*entities.PromotionRequest, error) {
	if assignee == "" {
		return nil, apperrors.NewValidationError("assignee is required")
	}

	request, err := s.promotions.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if !request.Status.CanTransitionTo(entities.PromotionStatusAssigned) {
		return nil, apperrors.NewValidationError(fmt.Sprintf("cannot assign request in status %s", request.Status))
	}

	now := time.Now()
	request.Status = entities.PromotionStatusAssigned
	request.AssignedTo = assignee
	request.ReviewedAt = &now

	if err := s.promotions.Update(ctx, request); err != nil {
		return nil, err
	}
	return request, nil
}

// Unassign returns an assigned request to the pending pool
func (s *PromotionService) Unassign(ctx context.Context, requestID string) (*entities.PromotionRequest, error) {
	request, err := s.promotions.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if request.Status != entities.PromotionStatusAssigned {
		return nil, apperrors.NewValidationError(fmt.Sprintf("cannot unassign request in status %s", request.Status))
	}

	request.Status = entities.PromotionStatusPending
	request.AssignedTo = ""
	request.ReviewedAt = nil

	if err := s.promotions.Update(ctx, request); err != nil {
		return nil, err
	}
	return request, nil
}

// Complete finishes an assigned request. The supplied curated draft is
// created; when no draft is given the request completes only if a curated
// entry already carries one of the reference entry's codes. Either way the
// reference entry is marked promoted and the request closes.
func (s *PromotionService) Complete(ctx context.Context, requestID string, curated *entities.CuratedCondition, notes string) (*entities.PromotionRequest, error) {
	if curated != nil && (curated.PrimaryCode == "" || curated.DisplayName == "") {
		return nil, apperrors.NewValidationError("curated draft requires primary_code and display_name")
	}

	request, err := s.promotions.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if !request.Status.CanTransitionTo(entities.PromotionStatusCompleted) {
		return nil, apperrors.NewValidationError(fmt.Sprintf("cannot complete request in status %s", request.Status))
	}

	if curated != nil {
		if err := s.curated.Create(ctx, curated); err != nil {
			return nil, err
		}
	} else {
		if err := s.curatedEntryExists(ctx, request.ReferenceID); err != nil {
			return nil, err
		}
	}

	if err := s.references.MarkPromoted(ctx, request.ReferenceID); err != nil {
		return nil, err
	}

	now := time.Now()
	request.Status = entities.PromotionStatusCompleted
	request.ReviewNotes = notes
	request.CompletedAt = &now

	if err := s.promotions.Update(ctx, request); err != nil {
		return nil, err
	}

	if s.eventBus != nil {
		event := &entities.DatasetEvent{
			ID:        uuid.New().String(),
			Type:      entities.EventPromotionCompleted,
			Subject:   request.ReferenceID,
			Timestamp: now,
		}
		if err := s.eventBus.Publish(ctx, entities.ChannelPromotions, event); err != nil {
			log.Printf("Failed to publish promotion event for %s: %v", request.ReferenceID, err)
		}
	}

	return request, nil
}

// curatedEntryExists checks that some curated entry already carries one of
// the reference entry's codes; completing without a draft requires it.
func (s *PromotionService) curatedEntryExists(ctx context.Context, referenceID string) error {
	reference, err := s.references.GetByID(ctx, referenceID)
	if err != nil {
		return err
	}

	for _, code := range reference.Codes {
		if _, err := s.curated.GetByCode(ctx, code); err == nil {
			return nil
		} else if !apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			return err
		}
	}

	return apperrors.NewConflictError(fmt.Sprintf("no curated entry matches the codes of %s; supply a curated draft", referenceID))
}

// Reject closes an assigned request without promoting
func (s *PromotionService) Reject(ctx context.Context, requestID, notes string) (*entities.PromotionRequest, error) {
	request, err := s.promotions.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if !request.Status.CanTransitionTo(entities.PromotionStatusRejected) {
		return nil, apperrors.NewValidationError(fmt.Sprintf("cannot reject request in status %s", request.Status))
	}

	now := time.Now()
	request.Status = entities.PromotionStatusRejected
	request.ReviewNotes = notes
	request.CompletedAt = &now

	if err := s.promotions.Update(ctx, request); err != nil {
		return nil, err
	}
	return request, nil
}

// Get retrieves a promotion request by ID
func (s *PromotionService) Get(ctx context.Context, requestID string) (*entities.PromotionRequest, error) {
	return s.promotions.GetByID(ctx, requestID)
}

// List retrieves promotion requests with optional status filter
func (s *PromotionService) List(ctx context.Context, filter repositories.PromotionFilter) ([]*entities.PromotionRequest, error) {
	if filter.Status != "" {
		switch filter.Status {
		case entities.PromotionStatusPending, entities.PromotionStatusAssigned,
			entities.PromotionStatusCompleted, entities.PromotionStatusRejected:
		default:
			return nil, apperrors.NewValidationError("unknown status: " + string(filter.Status))
		}
	}
	return s.promotions.List(ctx, filter)
}
