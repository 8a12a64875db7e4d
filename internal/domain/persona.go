package domain

import (
	"time"

	"github.com/google/uuid"
)

// PersonaTraits is the static, onboarding-derived identity of a persona.
// The adaptation core only reads it.
type PersonaTraits struct {
	Name               string   `json:"name"`
	Relationship       string   `json:"relationship,omitempty"`
	Greeting           string   `json:"greeting,omitempty"`
	Catchphrase        string   `json:"catchphrase,omitempty"`
	CommunicationStyle []string `json:"communication_style,omitempty"`
	FavoriteTopics     []string `json:"favorite_topics,omitempty"`
	SupportStyle       string   `json:"support_style,omitempty"`
	RelationshipFacts  []string `json:"relationship_facts,omitempty"`
	RecentContext      []string `json:"recent_context,omitempty"`
}

// PrimaryTrait returns the first communication style tag, or "" when none is set.
func (t PersonaTraits) PrimaryTrait() string {
	if len(t.CommunicationStyle) == 0 {
		return ""
	}
	return t.CommunicationStyle[0]
}

type Persona struct {
	ID        uuid.UUID     `json:"id"`
	TenantID  uuid.UUID     `json:"tenant_id,omitempty"`
	Traits    PersonaTraits `json:"traits"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Message is a single conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)
