package service

import (
	"context"
	"errors"
	"strings"

	"github.com/Harshitk-cp/kindred/internal/domain"
	"github.com/Harshitk-cp/kindred/internal/store"
	"github.com/google/uuid"
)

var (
	ErrFeedbackPersonaIDMissing = errors.New("persona_id is required")
	ErrFeedbackInvalidKind      = errors.New("invalid feedback kind")
	ErrFeedbackInvalidRating    = errors.New("rating must be between 1 and 5")
)

// adjustmentInvalidator drops cached adjustments when new evidence arrives.
type adjustmentInvalidator interface {
	Invalidate(personaID uuid.UUID)
}

type FeedbackService struct {
	feedbackStore domain.FeedbackStore
	personaStore  domain.PersonaStore
	invalidator   adjustmentInvalidator
}

func NewFeedbackService(fs domain.FeedbackStore, ps domain.PersonaStore, inv adjustmentInvalidator) *FeedbackService {
	return &FeedbackService{
		feedbackStore: fs,
		personaStore:  ps,
		invalidator:   inv,
	}
}

func (s *FeedbackService) Create(ctx context.Context, f *domain.Feedback, tenantID uuid.UUID) error {
	if f.PersonaID == uuid.Nil {
		return ErrFeedbackPersonaIDMissing
	}
	if !domain.ValidFeedbackKind(string(f.Kind)) {
		return ErrFeedbackInvalidKind
	}
	if !f.Valid() {
		return ErrFeedbackInvalidRating
	}
	f.Payload.Phrase = strings.TrimSpace(f.Payload.Phrase)
	f.Payload.Replacement = strings.TrimSpace(f.Payload.Replacement)

	// Verify persona belongs to tenant
	if _, err := s.personaStore.GetByID(ctx, f.PersonaID, tenantID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrPersonaNotFound
		}
		return err
	}

	if err := s.feedbackStore.Create(ctx, f); err != nil {
		return err
	}
	if s.invalidator != nil {
		s.invalidator.Invalidate(f.PersonaID)
	}
	return nil
}

func (s *FeedbackService) ListByPersona(ctx context.Context, personaID uuid.UUID) ([]domain.Feedback, error) {
	return s.feedbackStore.ListByPersona(ctx, personaID)
}
