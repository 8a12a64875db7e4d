package domain

import (
	"time"

	"github.com/google/uuid"
)

// Tenant owns an API key and the personas created under it.
type Tenant struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	APIKeyHash string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Caller identifies who is talking to a persona. Session verification happens
// upstream; the core only trusts the ids it is handed.
type Caller struct {
	TenantID uuid.UUID
	UserID   uuid.UUID
}
