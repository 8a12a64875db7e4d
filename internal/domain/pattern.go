package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PatternKind names a precomputed conversation metric.
type PatternKind string

const (
	PatternCommunicationStyle PatternKind = "communication_style"
	PatternSentiment          PatternKind = "sentiment"
	PatternTopic              PatternKind = "topic"
	PatternEmotionalState     PatternKind = "emotional_state"
	PatternConversationFlow   PatternKind = "conversation_flow"
	PatternVerbosity          PatternKind = "verbosity"
)

func ValidPatternKind(k string) bool {
	switch PatternKind(k) {
	case PatternCommunicationStyle, PatternSentiment, PatternTopic,
		PatternEmotionalState, PatternConversationFlow, PatternVerbosity:
		return true
	}
	return false
}

// PatternMetric is a windowed observation derived from conversation analysis.
// Value holds a kind-specific JSON document; see the Decode* helpers.
type PatternMetric struct {
	ID         uuid.UUID       `json:"id"`
	PersonaID  uuid.UUID       `json:"persona_id"`
	Metric     PatternKind     `json:"metric"`
	Value      json.RawMessage `json:"value"`
	Window     string          `json:"window,omitempty"`
	Confidence float64         `json:"confidence"`
	SampleSize int             `json:"sample_size"`
	ObservedAt time.Time       `json:"observed_at"`
}

var ErrMalformedPattern = errors.New("malformed pattern metric")

type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

func validSentiment(s Sentiment) bool {
	switch s {
	case SentimentPositive, SentimentNeutral, SentimentNegative:
		return true
	}
	return false
}

type CommunicationStyleValue struct {
	Formality      string `json:"formality,omitempty"`      // formal | casual
	Expressiveness string `json:"expressiveness,omitempty"` // expressive | reserved
	Directness     string `json:"directness,omitempty"`     // direct | indirect
	Humor          bool   `json:"humor,omitempty"`
}

type SentimentValue struct {
	Overall Sentiment `json:"overall"`
	Score   float64   `json:"score,omitempty"`
}

type TopicValue struct {
	Topic     string    `json:"topic"`
	Frequency int       `json:"frequency"`
	Sentiment Sentiment `json:"sentiment"`
}

type EmotionalStateValue struct {
	CurrentEmotion string `json:"current_emotion,omitempty"`
	NeedsSupport   bool   `json:"needs_support,omitempty"`
	SupportStyle   string `json:"support_style,omitempty"`
}

type ConversationFlowValue struct {
	QuestionFrequency    *float64 `json:"question_frequency,omitempty"`
	InitiativeLevel      *float64 `json:"initiative_level,omitempty"`
	ConversationStarters int      `json:"conversation_starters,omitempty"`
	MeanResponseLatency  float64  `json:"mean_response_latency_seconds,omitempty"`
}

type VerbosityValue struct {
	PreferredLength int `json:"preferred_length"`
}

func (p PatternMetric) decode(kind PatternKind, v any) error {
	if p.Metric != kind {
		return fmt.Errorf("%w: expected %s, got %s", ErrMalformedPattern, kind, p.Metric)
	}
	if len(p.Value) == 0 {
		return fmt.Errorf("%w: empty value", ErrMalformedPattern)
	}
	if err := json.Unmarshal(p.Value, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPattern, err)
	}
	return nil
}

func (p PatternMetric) DecodeCommunicationStyle() (CommunicationStyleValue, error) {
	var v CommunicationStyleValue
	err := p.decode(PatternCommunicationStyle, &v)
	return v, err
}

func (p PatternMetric) DecodeSentiment() (SentimentValue, error) {
	var v SentimentValue
	if err := p.decode(PatternSentiment, &v); err != nil {
		return v, err
	}
	if !validSentiment(v.Overall) {
		return v, fmt.Errorf("%w: unknown sentiment %q", ErrMalformedPattern, v.Overall)
	}
	return v, nil
}

func (p PatternMetric) DecodeTopic() (TopicValue, error) {
	var v TopicValue
	if err := p.decode(PatternTopic, &v); err != nil {
		return v, err
	}
	if v.Topic == "" || v.Frequency < 0 {
		return v, fmt.Errorf("%w: topic requires a name and non-negative frequency", ErrMalformedPattern)
	}
	if v.Sentiment == "" {
		v.Sentiment = SentimentNeutral
	}
	if !validSentiment(v.Sentiment) {
		return v, fmt.Errorf("%w: unknown sentiment %q", ErrMalformedPattern, v.Sentiment)
	}
	return v, nil
}

func (p PatternMetric) DecodeEmotionalState() (EmotionalStateValue, error) {
	var v EmotionalStateValue
	err := p.decode(PatternEmotionalState, &v)
	return v, err
}

func (p PatternMetric) DecodeConversationFlow() (ConversationFlowValue, error) {
	var v ConversationFlowValue
	if err := p.decode(PatternConversationFlow, &v); err != nil {
		return v, err
	}
	if v.MeanResponseLatency < 0 || v.ConversationStarters < 0 {
		return v, fmt.Errorf("%w: negative flow measurement", ErrMalformedPattern)
	}
	return v, nil
}

func (p PatternMetric) DecodeVerbosity() (VerbosityValue, error) {
	var v VerbosityValue
	if err := p.decode(PatternVerbosity, &v); err != nil {
		return v, err
	}
	if v.PreferredLength <= 0 {
		return v, fmt.Errorf("%w: preferred_length must be positive", ErrMalformedPattern)
	}
	return v, nil
}
