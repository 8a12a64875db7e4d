package domain

import (
	"time"

	"github.com/google/uuid"
)

type FeedbackKind string

const (
	FeedbackThumbsUp   FeedbackKind = "thumbs_up"
	FeedbackThumbsDown FeedbackKind = "thumbs_down"
	FeedbackRating     FeedbackKind = "rating"
)

func ValidFeedbackKind(k string) bool {
	switch FeedbackKind(k) {
	case FeedbackThumbsUp, FeedbackThumbsDown, FeedbackRating:
		return true
	}
	return false
}

const (
	MinRating = 1
	MaxRating = 5
)

// FeedbackPayload carries the optional details attached to a feedback signal.
type FeedbackPayload struct {
	Phrase      string    `json:"phrase,omitempty"`
	Replacement string    `json:"replacement,omitempty"`
	Rating      int       `json:"rating,omitempty"`
	Emotion     string    `json:"emotion,omitempty"`
	MessageID   uuid.UUID `json:"message_id,omitempty"`
}

type Feedback struct {
	ID        uuid.UUID       `json:"id"`
	PersonaID uuid.UUID       `json:"persona_id"`
	UserID    uuid.UUID       `json:"user_id"`
	Kind      FeedbackKind    `json:"kind"`
	Payload   FeedbackPayload `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// Valid reports whether the record is well-formed. Malformed records are
// skipped by the evolution engine rather than failing the whole computation.
func (f Feedback) Valid() bool {
	switch f.Kind {
	case FeedbackThumbsUp, FeedbackThumbsDown:
		return true
	case FeedbackRating:
		return f.Payload.Rating >= MinRating && f.Payload.Rating <= MaxRating
	}
	return false
}

func (f Feedback) Positive() bool {
	switch f.Kind {
	case FeedbackThumbsUp:
		return true
	case FeedbackRating:
		return f.Payload.Rating >= 4
	}
	return false
}

func (f Feedback) Negative() bool {
	switch f.Kind {
	case FeedbackThumbsDown:
		return true
	case FeedbackRating:
		return f.Payload.Rating >= MinRating && f.Payload.Rating <= 2
	}
	return false
}

// EmotionallyTagged reports whether the reply this feedback refers to carried an emotion tag.
func (f Feedback) EmotionallyTagged() bool {
	return f.Payload.Emotion != ""
}
