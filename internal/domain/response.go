package domain

import (
	"time"

	"github.com/google/uuid"
)

// UsedResponseRecord is an emitted opening/fallback line, scoped per (persona, user).
// Records older than the dedup window are logically expired.
type UsedResponseRecord struct {
	PersonaID uuid.UUID `json:"persona_id"`
	UserID    uuid.UUID `json:"user_id"`
	Text      string    `json:"text"`
	EmittedAt time.Time `json:"emitted_at"`
}
