package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Harshitk-cp/kindred/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CorrectionSettingsStore struct {
	db *pgxpool.Pool
}

func NewCorrectionSettingsStore(db *pgxpool.Pool) *CorrectionSettingsStore {
	return &CorrectionSettingsStore{db: db}
}

func (s *CorrectionSettingsStore) Get(ctx context.Context, userID uuid.UUID) (*domain.UserCorrectionSettings, error) {
	settings, err := scanSettings(s.db.QueryRow(ctx,
		`SELECT user_id, forbidden_terms, language_corrections, updated_at
		 FROM user_correction_settings WHERE user_id = $1`,
		userID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.NewUserCorrectionSettings(userID), nil
	}
	return settings, err
}

// Merge locks the user's row, unions the correction into what is stored and
// writes the result in the same transaction.
func (s *CorrectionSettingsStore) Merge(ctx context.Context, userID uuid.UUID, c domain.Correction) (*domain.UserCorrectionSettings, bool, error) {
	var (
		merged  *domain.UserCorrectionSettings
		changed bool
	)
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		// Make sure a row exists so two first-time corrections serialize on it.
		if _, err := tx.Exec(ctx,
			`INSERT INTO user_correction_settings (user_id) VALUES ($1)
			 ON CONFLICT (user_id) DO NOTHING`,
			userID,
		); err != nil {
			return err
		}

		current, err := scanSettings(tx.QueryRow(ctx,
			`SELECT user_id, forbidden_terms, language_corrections, updated_at
			 FROM user_correction_settings WHERE user_id = $1
			 FOR UPDATE`,
			userID,
		))
		if err != nil {
			return err
		}

		changed = current.Merge(c)
		merged = current
		if !changed {
			return nil
		}

		return tx.QueryRow(ctx,
			`UPDATE user_correction_settings
			 SET forbidden_terms = $2, language_corrections = $3, updated_at = $4
			 WHERE user_id = $1
			 RETURNING updated_at`,
			userID, current.ForbiddenTerms, current.LanguageCorrections, time.Now().UTC(),
		).Scan(&merged.UpdatedAt)
	})
	if err != nil {
		return nil, false, fmt.Errorf("merge correction settings: %w", err)
	}
	return merged, changed, nil
}

func scanSettings(row pgx.Row) (*domain.UserCorrectionSettings, error) {
	settings := &domain.UserCorrectionSettings{}
	if err := row.Scan(&settings.UserID, &settings.ForbiddenTerms, &settings.LanguageCorrections, &settings.UpdatedAt); err != nil {
		return nil, err
	}
	if settings.ForbiddenTerms == nil {
		settings.ForbiddenTerms = []string{}
	}
	if settings.LanguageCorrections == nil {
		settings.LanguageCorrections = map[string]string{}
	}
	return settings, nil
}
