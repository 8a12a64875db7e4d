package domain

import (
	"time"

	"github.com/google/uuid"
)

type EvolutionStage string

const (
	StageInitial  EvolutionStage = "initial"
	StageLearning EvolutionStage = "learning"
	StageAdapted  EvolutionStage = "adapted"
	StageMature   EvolutionStage = "mature"
)

// AdjustmentCategory names one of the five sections of PersonalityAdjustments.
type AdjustmentCategory string

const (
	CategoryCommunicationStyle AdjustmentCategory = "communication_style"
	CategoryTopicPreferences   AdjustmentCategory = "topic_preferences"
	CategoryEmotionalResponse  AdjustmentCategory = "emotional_response"
	CategoryConversationFlow   AdjustmentCategory = "conversation_flow"
	CategoryVocabulary         AdjustmentCategory = "vocabulary"
)

// AllAdjustmentCategories lists categories in bundle order.
func AllAdjustmentCategories() []AdjustmentCategory {
	return []AdjustmentCategory{
		CategoryCommunicationStyle,
		CategoryTopicPreferences,
		CategoryEmotionalResponse,
		CategoryConversationFlow,
		CategoryVocabulary,
	}
}

type CommunicationStyle struct {
	Formality      float64 `json:"formality"`      // [-1, 1]
	Expressiveness float64 `json:"expressiveness"` // [-1, 1]
	Directness     float64 `json:"directness"`     // [-1, 1]
	Humor          float64 `json:"humor"`          // [0, 1]
}

type TopicPreferences struct {
	Preferred []string           `json:"preferred,omitempty"`
	Avoided   []string           `json:"avoided,omitempty"`
	Weights   map[string]float64 `json:"weights,omitempty"`
}

type EmotionalResponse struct {
	EmpathyLevel float64 `json:"empathy_level"`
	SupportStyle string  `json:"support_style"`
	Mirroring    bool    `json:"mirroring"`
	Warmth       float64 `json:"warmth"`
}

type Pacing string

const (
	PacingImmediate Pacing = "immediate"
	PacingNatural   Pacing = "natural"
	PacingVaried    Pacing = "varied"
)

type ConversationFlow struct {
	PreferredLength   int     `json:"preferred_length"`
	QuestionFrequency float64 `json:"question_frequency"`
	InitiativeLevel   float64 `json:"initiative_level"`
	Pacing            Pacing  `json:"pacing"`
}

type Vocabulary struct {
	Complexity     float64           `json:"complexity"`
	SpecialPhrases []string          `json:"special_phrases,omitempty"`
	AvoidedPhrases []string          `json:"avoided_phrases,omitempty"`
	Substitutions  map[string]string `json:"substitutions,omitempty"`
}

// PersonalityAdjustments is the derived, disposable bundle used to bias prompt construction.
type PersonalityAdjustments struct {
	CommunicationStyle CommunicationStyle `json:"communication_style"`
	TopicPreferences   TopicPreferences   `json:"topic_preferences"`
	EmotionalResponse  EmotionalResponse  `json:"emotional_response"`
	ConversationFlow   ConversationFlow   `json:"conversation_flow"`
	Vocabulary         Vocabulary         `json:"vocabulary"`
}

// Category returns the value of the named section.
func (a *PersonalityAdjustments) Category(c AdjustmentCategory) any {
	switch c {
	case CategoryCommunicationStyle:
		return a.CommunicationStyle
	case CategoryTopicPreferences:
		return a.TopicPreferences
	case CategoryEmotionalResponse:
		return a.EmotionalResponse
	case CategoryConversationFlow:
		return a.ConversationFlow
	case CategoryVocabulary:
		return a.Vocabulary
	}
	return nil
}

// AdjustmentDelta records a change to one category between two snapshots.
type AdjustmentDelta struct {
	Category AdjustmentCategory `json:"category"`
	Before   any                `json:"before,omitempty"`
	After    any                `json:"after"`
	Reason   string             `json:"reason"`
}

// EvolutionSnapshot is append-only; it is never mutated after creation.
type EvolutionSnapshot struct {
	Timestamp       time.Time              `json:"timestamp"`
	Changes         []AdjustmentDelta      `json:"changes"`
	ConfidenceScore float64                `json:"confidence_score"`
	Adjustments     PersonalityAdjustments `json:"adjustments"`
}

// EvolutionState is created lazily on the first adaptation request and is only
// ever reset, never deleted.
type EvolutionState struct {
	PersonaID       uuid.UUID           `json:"persona_id"`
	Stage           EvolutionStage      `json:"stage"`
	AdaptationScore float64             `json:"adaptation_score"`
	LastEvolvedAt   *time.Time          `json:"last_evolved_at,omitempty"`
	History         []EvolutionSnapshot `json:"history"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

func NewEvolutionState(personaID uuid.UUID) *EvolutionState {
	return &EvolutionState{
		PersonaID: personaID,
		Stage:     StageInitial,
		History:   []EvolutionSnapshot{},
	}
}

// LastSnapshot returns the most recent snapshot or nil.
func (s *EvolutionState) LastSnapshot() *EvolutionSnapshot {
	if len(s.History) == 0 {
		return nil
	}
	return &s.History[len(s.History)-1]
}

// Reset clears history and score and returns the stage to initial.
func (s *EvolutionState) Reset() {
	s.Stage = StageInitial
	s.AdaptationScore = 0
	s.LastEvolvedAt = nil
	s.History = []EvolutionSnapshot{}
}
