package store

import (
	"context"
	"errors"

	"github.com/Harshitk-cp/kindred/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PersonaStore struct {
	db *pgxpool.Pool
}

func NewPersonaStore(db *pgxpool.Pool) *PersonaStore {
	return &PersonaStore{db: db}
}

func (s *PersonaStore) Create(ctx context.Context, p *domain.Persona) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO personas (tenant_id, name, traits)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at, updated_at`,
		p.TenantID, p.Traits.Name, p.Traits,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrConflict
		}
		return err
	}
	return nil
}

func (s *PersonaStore) GetByID(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*domain.Persona, error) {
	p := &domain.Persona{}
	err := s.db.QueryRow(ctx,
		`SELECT id, tenant_id, traits, created_at, updated_at
		 FROM personas WHERE id = $1 AND tenant_id = $2`,
		id, tenantID,
	).Scan(&p.ID, &p.TenantID, &p.Traits, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *PersonaStore) GetTraits(ctx context.Context, id uuid.UUID) (*domain.PersonaTraits, error) {
	var traits domain.PersonaTraits
	err := s.db.QueryRow(ctx,
		`SELECT traits FROM personas WHERE id = $1`,
		id,
	).Scan(&traits)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &traits, nil
}
