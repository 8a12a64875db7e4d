package store

import (
	"context"

	"github.com/Harshitk-cp/kindred/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PatternStore struct {
	db *pgxpool.Pool
}

func NewPatternStore(db *pgxpool.Pool) *PatternStore {
	return &PatternStore{db: db}
}

func (s *PatternStore) Create(ctx context.Context, p *domain.PatternMetric) error {
	if p.ObservedAt.IsZero() {
		return s.db.QueryRow(ctx,
			`INSERT INTO pattern_metrics (persona_id, metric, value, window_label, confidence, sample_size)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 RETURNING id, observed_at`,
			p.PersonaID, p.Metric, []byte(p.Value), p.Window, p.Confidence, p.SampleSize,
		).Scan(&p.ID, &p.ObservedAt)
	}
	return s.db.QueryRow(ctx,
		`INSERT INTO pattern_metrics (persona_id, metric, value, window_label, confidence, sample_size, observed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		p.PersonaID, p.Metric, []byte(p.Value), p.Window, p.Confidence, p.SampleSize, p.ObservedAt,
	).Scan(&p.ID)
}

// ListByPersona returns metrics oldest first, so later observations override
// earlier ones when the engine folds them.
func (s *PatternStore) ListByPersona(ctx context.Context, personaID uuid.UUID) ([]domain.PatternMetric, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, persona_id, metric, value, window_label, confidence, sample_size, observed_at
		 FROM pattern_metrics WHERE persona_id = $1
		 ORDER BY observed_at ASC`,
		personaID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var patterns []domain.PatternMetric
	for rows.Next() {
		var p domain.PatternMetric
		var value []byte
		if err := rows.Scan(&p.ID, &p.PersonaID, &p.Metric, &value, &p.Window, &p.Confidence, &p.SampleSize, &p.ObservedAt); err != nil {
			return nil, err
		}
		p.Value = value
		patterns = append(patterns, p)
	}
	return patterns, rows.Err()
}
