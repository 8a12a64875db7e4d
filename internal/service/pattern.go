package service

import (
	"context"
	"errors"

	"github.com/Harshitk-cp/kindred/internal/domain"
	"github.com/Harshitk-cp/kindred/internal/store"
	"github.com/google/uuid"
)

var (
	ErrPatternInvalidKind       = errors.New("invalid pattern metric")
	ErrPatternInvalidConfidence = errors.New("confidence must be between 0 and 1")
	ErrPatternInvalidSampleSize = errors.New("sample_size must not be negative")
)

// PatternService accepts pattern metrics computed by conversation analysis.
type PatternService struct {
	patternStore domain.PatternStore
	personaStore domain.PersonaStore
	invalidator  adjustmentInvalidator
}

func NewPatternService(pts domain.PatternStore, ps domain.PersonaStore, inv adjustmentInvalidator) *PatternService {
	return &PatternService{
		patternStore: pts,
		personaStore: ps,
		invalidator:  inv,
	}
}

// Create validates the metric value against its kind before storing it, so
// malformed records are rejected at the door. The engine still skips any
// that reach it by other paths.
func (s *PatternService) Create(ctx context.Context, p *domain.PatternMetric, tenantID uuid.UUID) error {
	if !domain.ValidPatternKind(string(p.Metric)) {
		return ErrPatternInvalidKind
	}
	if p.Confidence < 0 || p.Confidence > 1 {
		return ErrPatternInvalidConfidence
	}
	if p.SampleSize < 0 {
		return ErrPatternInvalidSampleSize
	}
	var ev evidence
	if err := ev.add(*p); err != nil {
		return err
	}

	if _, err := s.personaStore.GetByID(ctx, p.PersonaID, tenantID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrPersonaNotFound
		}
		return err
	}

	if err := s.patternStore.Create(ctx, p); err != nil {
		return err
	}
	if s.invalidator != nil {
		s.invalidator.Invalidate(p.PersonaID)
	}
	return nil
}

func (s *PatternService) ListByPersona(ctx context.Context, personaID uuid.UUID) ([]domain.PatternMetric, error) {
	return s.patternStore.ListByPersona(ctx, personaID)
}
