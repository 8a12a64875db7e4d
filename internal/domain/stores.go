package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type TenantStore interface {
	Create(ctx context.Context, t *Tenant) error
	GetByAPIKeyHash(ctx context.Context, apiKeyHash string) (*Tenant, error)
}

type PersonaStore interface {
	Create(ctx context.Context, p *Persona) error
	GetByID(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*Persona, error)
	// GetTraits looks a persona up without tenant scoping, for internal callers
	// that already hold a verified persona id.
	GetTraits(ctx context.Context, id uuid.UUID) (*PersonaTraits, error)
}

// PatternStore is the pattern-metrics source, keyed by persona id.
type PatternStore interface {
	Create(ctx context.Context, p *PatternMetric) error
	ListByPersona(ctx context.Context, personaID uuid.UUID) ([]PatternMetric, error)
}

// FeedbackStore is the feedback source, keyed by persona id.
type FeedbackStore interface {
	Create(ctx context.Context, f *Feedback) error
	ListByPersona(ctx context.Context, personaID uuid.UUID) ([]Feedback, error)
}

type EvolutionStore interface {
	// Get returns store.ErrNotFound when no state has been created yet.
	Get(ctx context.Context, personaID uuid.UUID) (*EvolutionState, error)
	Upsert(ctx context.Context, s *EvolutionState) error
}

// CorrectionSettingsStore persists per-user correction settings.
type CorrectionSettingsStore interface {
	// Get returns empty settings when the user has none yet.
	Get(ctx context.Context, userID uuid.UUID) (*UserCorrectionSettings, error)
	// Merge reads the current settings, unions the correction in and writes the
	// result atomically, so concurrent corrections never overwrite each other.
	Merge(ctx context.Context, userID uuid.UUID, c Correction) (*UserCorrectionSettings, bool, error)
}

// UsedResponseStore is the small persisted list behind the response window.
type UsedResponseStore interface {
	Add(ctx context.Context, r UsedResponseRecord) error
	// ListSince returns records for the pair emitted strictly after since.
	ListSince(ctx context.Context, personaID, userID uuid.UUID, since time.Time) ([]UsedResponseRecord, error)
	// DeleteBefore removes every record emitted at or before cutoff.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// TextGenerator is the external text-completion collaborator.
type TextGenerator interface {
	Complete(ctx context.Context, system string, conversation []Message) (string, error)
}
