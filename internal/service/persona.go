package service

import (
	"context"
	"errors"
	"strings"

	"github.com/Harshitk-cp/kindred/internal/domain"
	"github.com/Harshitk-cp/kindred/internal/store"
	"github.com/google/uuid"
)

type PersonaService struct {
	store domain.PersonaStore
}

func NewPersonaService(s domain.PersonaStore) *PersonaService {
	return &PersonaService{store: s}
}

var (
	ErrPersonaNotFound    = errors.New("persona not found")
	ErrPersonaNameMissing = errors.New("persona name is required")
	ErrPersonaConflict    = errors.New("persona already exists")
)

func (s *PersonaService) Create(ctx context.Context, p *domain.Persona) error {
	p.Traits.Name = strings.TrimSpace(p.Traits.Name)
	if p.Traits.Name == "" {
		return ErrPersonaNameMissing
	}
	err := s.store.Create(ctx, p)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return ErrPersonaConflict
		}
		return err
	}
	return nil
}

func (s *PersonaService) GetByID(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*domain.Persona, error) {
	p, err := s.store.GetByID(ctx, id, tenantID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrPersonaNotFound
		}
		return nil, err
	}
	return p, nil
}
