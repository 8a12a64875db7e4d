package store

import (
	"context"
	"errors"

	"github.com/Harshitk-cp/kindred/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type EvolutionStore struct {
	db *pgxpool.Pool
}

func NewEvolutionStore(db *pgxpool.Pool) *EvolutionStore {
	return &EvolutionStore{db: db}
}

func (s *EvolutionStore) Get(ctx context.Context, personaID uuid.UUID) (*domain.EvolutionState, error) {
	st := &domain.EvolutionState{}
	err := s.db.QueryRow(ctx,
		`SELECT persona_id, stage, adaptation_score, last_evolved_at, history, created_at, updated_at
		 FROM evolution_states WHERE persona_id = $1`,
		personaID,
	).Scan(&st.PersonaID, &st.Stage, &st.AdaptationScore, &st.LastEvolvedAt, &st.History, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if st.History == nil {
		st.History = []domain.EvolutionSnapshot{}
	}
	return st, nil
}

// Upsert writes the whole state. History is append-only in practice: callers
// always write a superset of what they read, or an empty list on reset.
func (s *EvolutionStore) Upsert(ctx context.Context, st *domain.EvolutionState) error {
	history := st.History
	if history == nil {
		history = []domain.EvolutionSnapshot{}
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO evolution_states (persona_id, stage, adaptation_score, last_evolved_at, history, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (persona_id) DO UPDATE SET
		   stage = EXCLUDED.stage,
		   adaptation_score = EXCLUDED.adaptation_score,
		   last_evolved_at = EXCLUDED.last_evolved_at,
		   history = EXCLUDED.history,
		   updated_at = EXCLUDED.updated_at`,
		st.PersonaID, st.Stage, st.AdaptationScore, st.LastEvolvedAt, history, st.CreatedAt, st.UpdatedAt,
	)
	return err
}
