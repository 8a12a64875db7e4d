package store

import (
	"context"

	"github.com/Harshitk-cp/kindred/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type FeedbackStore struct {
	db *pgxpool.Pool
}

func NewFeedbackStore(db *pgxpool.Pool) *FeedbackStore {
	return &FeedbackStore{db: db}
}

func (s *FeedbackStore) Create(ctx context.Context, f *domain.Feedback) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO persona_feedback (persona_id, user_id, kind, payload)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		f.PersonaID, f.UserID, f.Kind, f.Payload,
	).Scan(&f.ID, &f.CreatedAt)
}

func (s *FeedbackStore) ListByPersona(ctx context.Context, personaID uuid.UUID) ([]domain.Feedback, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, persona_id, user_id, kind, payload, created_at
		 FROM persona_feedback WHERE persona_id = $1
		 ORDER BY created_at ASC`,
		personaID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var feedbacks []domain.Feedback
	for rows.Next() {
		var f domain.Feedback
		if err := rows.Scan(&f.ID, &f.PersonaID, &f.UserID, &f.Kind, &f.Payload, &f.CreatedAt); err != nil {
			return nil, err
		}
		feedbacks = append(feedbacks, f)
	}
	return feedbacks, rows.Err()
}
