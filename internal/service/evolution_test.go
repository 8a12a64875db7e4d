package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Harshitk-cp/kindred/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pattern(personaID uuid.UUID, kind domain.PatternKind, value any, confidence float64, samples int) domain.PatternMetric {
	raw, _ := json.Marshal(value)
	return domain.PatternMetric{
		ID:         uuid.New(),
		PersonaID:  personaID,
		Metric:     kind,
		Value:      raw,
		Window:     "30d",
		Confidence: confidence,
		SampleSize: samples,
	}
}

func feedbackSet(personaID uuid.UUID, positive, negative int) []domain.Feedback {
	var out []domain.Feedback
	for i := 0; i < positive; i++ {
		out = append(out, domain.Feedback{ID: uuid.New(), PersonaID: personaID, Kind: domain.FeedbackThumbsUp})
	}
	for i := 0; i < negative; i++ {
		out = append(out, domain.Feedback{ID: uuid.New(), PersonaID: personaID, Kind: domain.FeedbackThumbsDown})
	}
	return out
}

func fivePatterns(personaID uuid.UUID, confidence float64) []domain.PatternMetric {
	return []domain.PatternMetric{
		pattern(personaID, domain.PatternCommunicationStyle, domain.CommunicationStyleValue{Formality: "casual", Humor: true}, confidence, 10),
		pattern(personaID, domain.PatternSentiment, domain.SentimentValue{Overall: domain.SentimentPositive}, confidence, 10),
		pattern(personaID, domain.PatternTopic, domain.TopicValue{Topic: "Gardening", Frequency: 4, Sentiment: domain.SentimentPositive}, confidence, 10),
		pattern(personaID, domain.PatternEmotionalState, domain.EmotionalStateValue{CurrentEmotion: "sad", NeedsSupport: true}, confidence, 10),
		pattern(personaID, domain.PatternVerbosity, domain.VerbosityValue{PreferredLength: 80}, confidence, 10),
	}
}

func TestEvolver_NoPatterns(t *testing.T) {
	e := NewEvolver(testLogger())

	if r := e.Evolve(uuid.New(), domain.PersonaTraits{}, nil, feedbackSet(uuid.Nil, 3, 0), nil); r != nil {
		t.Fatalf("expected nil result for empty pattern list, got %+v", r)
	}
}

func TestEvolver_OnlyMalformedPatterns(t *testing.T) {
	e := NewEvolver(testLogger())
	personaID := uuid.New()

	patterns := []domain.PatternMetric{
		{ID: uuid.New(), PersonaID: personaID, Metric: domain.PatternTopic, Value: json.RawMessage(`{"topic":""}`)},
		{ID: uuid.New(), PersonaID: personaID, Metric: "mood_ring", Value: json.RawMessage(`{}`)},
	}
	if r := e.Evolve(personaID, domain.PersonaTraits{}, patterns, nil, nil); r != nil {
		t.Fatalf("expected nil result when every pattern is malformed, got %+v", r)
	}
}

func TestEvolver_StageCorrectness(t *testing.T) {
	e := NewEvolver(testLogger())
	personaID := uuid.New()

	r := e.Evolve(personaID, domain.PersonaTraits{}, fivePatterns(personaID, 0.9), feedbackSet(personaID, 9, 1), nil)
	require.NotNil(t, r)

	assert.GreaterOrEqual(t, r.AdaptationScore, 0.5)
	assert.Contains(t, []domain.EvolutionStage{domain.StageAdapted, domain.StageMature}, r.Stage)
}

func TestEvolver_ScoreMonotonicInPositiveRatio(t *testing.T) {
	e := NewEvolver(testLogger())
	personaID := uuid.New()
	patterns := fivePatterns(personaID, 0.7)

	low := e.Evolve(personaID, domain.PersonaTraits{}, patterns, feedbackSet(personaID, 4, 6), nil)
	high := e.Evolve(personaID, domain.PersonaTraits{}, patterns, feedbackSet(personaID, 9, 1), nil)
	require.NotNil(t, low)
	require.NotNil(t, high)

	if high.AdaptationScore < low.AdaptationScore {
		t.Fatalf("score decreased: ratio 0.4 -> %.3f, ratio 0.9 -> %.3f", low.AdaptationScore, high.AdaptationScore)
	}
}

func TestAdaptationScore(t *testing.T) {
	tests := []struct {
		name                       string
		patterns                   int
		meanConfidence             float64
		positive, total, sampleSum int
		want                       float64
	}{
		{"no feedback, low volume", 3, 0.8, 0, 0, 30, (0.3 * 0.8) / 0.5},
		{"no feedback, mid volume", 3, 0.8, 0, 0, 60, (0.3*0.8 + 0.2*0.5) / 0.5},
		{"no feedback, high volume", 3, 0.8, 0, 0, 150, (0.3*0.8 + 0.2) / 0.5},
		{"all inputs", 5, 0.9, 9, 10, 50, 0.3*0.9 + 0.5*0.9},
		{"feedback only", 0, 0, 1, 2, 0, 0.5},
		{"nothing", 0, 0, 0, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AdaptationScore(tt.patterns, tt.meanConfidence, tt.positive, tt.total, tt.sampleSum)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestStageFor(t *testing.T) {
	tests := []struct {
		patterns int
		score    float64
		want     domain.EvolutionStage
	}{
		{2, 0.95, domain.StageInitial},
		{3, 0.1, domain.StageInitial},
		{3, 0.2, domain.StageLearning},
		{3, 0.49, domain.StageLearning},
		{3, 0.5, domain.StageAdapted},
		{10, 0.79, domain.StageAdapted},
		{10, 0.8, domain.StageMature},
	}
	for _, tt := range tests {
		if got := StageFor(tt.patterns, tt.score); got != tt.want {
			t.Fatalf("StageFor(%d, %.2f) = %s, want %s", tt.patterns, tt.score, got, tt.want)
		}
	}
}

func TestEvolver_StageCanRegress(t *testing.T) {
	e := NewEvolver(testLogger())
	personaID := uuid.New()
	patterns := fivePatterns(personaID, 0.9)

	first := e.Evolve(personaID, domain.PersonaTraits{}, patterns, feedbackSet(personaID, 10, 0), nil)
	require.NotNil(t, first)
	second := e.Evolve(personaID, domain.PersonaTraits{}, patterns[:2], feedbackSet(personaID, 10, 0), first.Snapshot)
	require.NotNil(t, second)

	assert.NotEqual(t, domain.StageInitial, first.Stage)
	assert.Equal(t, domain.StageInitial, second.Stage)
}

func TestEvolver_CommunicationStyle(t *testing.T) {
	e := NewEvolver(testLogger())
	personaID := uuid.New()

	formal := e.Evolve(personaID, domain.PersonaTraits{}, []domain.PatternMetric{
		pattern(personaID, domain.PatternCommunicationStyle, domain.CommunicationStyleValue{Formality: "formal", Expressiveness: "reserved", Directness: "direct"}, 0.8, 10),
		pattern(personaID, domain.PatternSentiment, domain.SentimentValue{Overall: domain.SentimentNegative}, 0.8, 10),
	}, nil, nil)
	require.NotNil(t, formal)

	style := formal.Adjustments.CommunicationStyle
	assert.InDelta(t, 0.9, style.Formality, 1e-9)
	assert.InDelta(t, -0.6, style.Expressiveness, 1e-9)
	assert.InDelta(t, 0.6, style.Directness, 1e-9)
	assert.InDelta(t, 0.2, style.Humor, 1e-9)
	assert.InDelta(t, 0.7, formal.Adjustments.Vocabulary.Complexity, 1e-9)

	casual := e.Evolve(personaID, domain.PersonaTraits{}, []domain.PatternMetric{
		pattern(personaID, domain.PatternCommunicationStyle, domain.CommunicationStyleValue{Formality: "casual", Expressiveness: "expressive", Humor: true}, 0.8, 10),
		pattern(personaID, domain.PatternSentiment, domain.SentimentValue{Overall: domain.SentimentPositive}, 0.8, 10),
	}, nil, nil)
	require.NotNil(t, casual)

	style = casual.Adjustments.CommunicationStyle
	assert.InDelta(t, -0.7, style.Formality, 1e-9)
	assert.InDelta(t, 0.8, style.Expressiveness, 1e-9)
	assert.InDelta(t, 0.7, style.Humor, 1e-9)
	assert.InDelta(t, 0.3, casual.Adjustments.Vocabulary.Complexity, 1e-9)
}

func TestEvolver_TopicPreferences(t *testing.T) {
	e := NewEvolver(testLogger())
	personaID := uuid.New()

	r := e.Evolve(personaID, domain.PersonaTraits{}, []domain.PatternMetric{
		pattern(personaID, domain.PatternTopic, domain.TopicValue{Topic: "fishing", Frequency: 4, Sentiment: domain.SentimentPositive}, 0.8, 5),
		pattern(personaID, domain.PatternTopic, domain.TopicValue{Topic: "weather", Frequency: 6, Sentiment: domain.SentimentNeutral}, 0.8, 5),
		pattern(personaID, domain.PatternTopic, domain.TopicValue{Topic: "hospital", Frequency: 3, Sentiment: domain.SentimentNegative}, 0.8, 5),
		pattern(personaID, domain.PatternTopic, domain.TopicValue{Topic: "cooking", Frequency: 2, Sentiment: domain.SentimentPositive}, 0.8, 5),
		pattern(personaID, domain.PatternTopic, domain.TopicValue{Topic: "Fishing", Frequency: 9, Sentiment: domain.SentimentPositive}, 0.8, 5),
	}, nil, nil)
	require.NotNil(t, r)

	topics := r.Adjustments.TopicPreferences
	assert.Equal(t, []string{"fishing", "weather"}, topics.Preferred)
	assert.Equal(t, []string{"hospital"}, topics.Avoided)
	assert.Equal(t, map[string]float64{
		"fishing":  0.8,
		"weather":  0.6,
		"hospital": 0.2,
		"cooking":  0.5,
	}, topics.Weights)
}

func TestEvolver_EmotionalResponse(t *testing.T) {
	e := NewEvolver(testLogger())
	personaID := uuid.New()
	patterns := []domain.PatternMetric{
		pattern(personaID, domain.PatternEmotionalState, domain.EmotionalStateValue{CurrentEmotion: "Anxious", NeedsSupport: true}, 0.8, 10),
	}

	tagged := []domain.Feedback{
		{Kind: domain.FeedbackThumbsUp, Payload: domain.FeedbackPayload{Emotion: "sad"}},
		{Kind: domain.FeedbackThumbsUp, Payload: domain.FeedbackPayload{Emotion: "sad"}},
		{Kind: domain.FeedbackRating, Payload: domain.FeedbackPayload{Emotion: "sad", Rating: 5}},
		{Kind: domain.FeedbackThumbsDown, Payload: domain.FeedbackPayload{Emotion: "sad"}},
		{Kind: domain.FeedbackThumbsDown},
	}

	r := e.Evolve(personaID, domain.PersonaTraits{SupportStyle: "gentle"}, patterns, tagged, nil)
	require.NotNil(t, r)

	resp := r.Adjustments.EmotionalResponse
	assert.InDelta(t, 0.88, resp.EmpathyLevel, 1e-9)
	assert.InDelta(t, 0.7, resp.Warmth, 1e-9)
	assert.True(t, resp.Mirroring)
	assert.Equal(t, "gentle", resp.SupportStyle)

	calm := e.Evolve(personaID, domain.PersonaTraits{}, []domain.PatternMetric{
		pattern(personaID, domain.PatternEmotionalState, domain.EmotionalStateValue{CurrentEmotion: "calm"}, 0.8, 10),
	}, nil, nil)
	require.NotNil(t, calm)
	assert.InDelta(t, 0.6, calm.Adjustments.EmotionalResponse.EmpathyLevel, 1e-9)
	assert.False(t, calm.Adjustments.EmotionalResponse.Mirroring)
	assert.Equal(t, "balanced", calm.Adjustments.EmotionalResponse.SupportStyle)
}

func TestEvolver_ConversationFlow(t *testing.T) {
	e := NewEvolver(testLogger())
	personaID := uuid.New()
	q, initiative := 1.7, 0.2

	r := e.Evolve(personaID, domain.PersonaTraits{}, []domain.PatternMetric{
		pattern(personaID, domain.PatternVerbosity, domain.VerbosityValue{PreferredLength: 1200}, 0.8, 10),
		pattern(personaID, domain.PatternConversationFlow, domain.ConversationFlowValue{
			QuestionFrequency:    &q,
			InitiativeLevel:      &initiative,
			ConversationStarters: 4,
			MeanResponseLatency:  3,
		}, 0.8, 10),
	}, nil, nil)
	require.NotNil(t, r)

	flow := r.Adjustments.ConversationFlow
	assert.Equal(t, 500, flow.PreferredLength)
	assert.InDelta(t, 1.0, flow.QuestionFrequency, 1e-9)
	assert.InDelta(t, 0.7, flow.InitiativeLevel, 1e-9)
	assert.Equal(t, domain.PacingImmediate, flow.Pacing)

	slow := e.Evolve(personaID, domain.PersonaTraits{}, []domain.PatternMetric{
		pattern(personaID, domain.PatternVerbosity, domain.VerbosityValue{PreferredLength: 5}, 0.8, 10),
		pattern(personaID, domain.PatternConversationFlow, domain.ConversationFlowValue{MeanResponseLatency: 40}, 0.8, 10),
	}, nil, nil)
	require.NotNil(t, slow)
	assert.Equal(t, 20, slow.Adjustments.ConversationFlow.PreferredLength)
	assert.Equal(t, domain.PacingVaried, slow.Adjustments.ConversationFlow.Pacing)
	assert.InDelta(t, 0.3, slow.Adjustments.ConversationFlow.QuestionFrequency, 1e-9)
}

func TestEvolver_Vocabulary(t *testing.T) {
	e := NewEvolver(testLogger())
	personaID := uuid.New()

	fb := []domain.Feedback{
		{Kind: domain.FeedbackThumbsUp, Payload: domain.FeedbackPayload{Phrase: "Proud of you, kiddo"}},
		{Kind: domain.FeedbackThumbsUp, Payload: domain.FeedbackPayload{Phrase: "proud of you, kiddo"}},
		{Kind: domain.FeedbackThumbsDown, Payload: domain.FeedbackPayload{Phrase: "my dear", Replacement: "love"}},
		{Kind: domain.FeedbackThumbsDown, Payload: domain.FeedbackPayload{Phrase: "whatever"}},
		{Kind: domain.FeedbackRating, Payload: domain.FeedbackPayload{Phrase: "ignored", Rating: 5}},
		{Kind: domain.FeedbackRating, Payload: domain.FeedbackPayload{Rating: 9}},
	}

	r := e.Evolve(personaID, domain.PersonaTraits{}, fivePatterns(personaID, 0.8), fb, nil)
	require.NotNil(t, r)

	vocab := r.Adjustments.Vocabulary
	assert.Equal(t, []string{"proud of you, kiddo"}, vocab.SpecialPhrases)
	assert.Equal(t, []string{"my dear", "whatever"}, vocab.AvoidedPhrases)
	assert.Equal(t, map[string]string{"my dear": "love"}, vocab.Substitutions)
}

func TestEvolver_SnapshotOnlyOnChange(t *testing.T) {
	e := NewEvolver(testLogger())
	personaID := uuid.New()
	patterns := fivePatterns(personaID, 0.8)
	fb := feedbackSet(personaID, 3, 1)

	first := e.Evolve(personaID, domain.PersonaTraits{}, patterns, fb, nil)
	require.NotNil(t, first)
	require.NotNil(t, first.Snapshot)
	assert.Len(t, first.Snapshot.Changes, len(domain.AllAdjustmentCategories()))

	same := e.Evolve(personaID, domain.PersonaTraits{}, patterns, fb, first.Snapshot)
	require.NotNil(t, same)
	assert.Nil(t, same.Snapshot)

	fb = append(fb, domain.Feedback{Kind: domain.FeedbackThumbsDown, Payload: domain.FeedbackPayload{Phrase: "chin up"}})
	changed := e.Evolve(personaID, domain.PersonaTraits{}, patterns, fb, first.Snapshot)
	require.NotNil(t, changed)
	require.NotNil(t, changed.Snapshot)
	require.Len(t, changed.Snapshot.Changes, 1)
	assert.Equal(t, domain.CategoryVocabulary, changed.Snapshot.Changes[0].Category)
	assert.Equal(t, first.Snapshot.Adjustments.Vocabulary, changed.Snapshot.Changes[0].Before)
}

func setupEvolutionTest() (*EvolutionService, *mockPatternStore, *mockFeedbackStore, *mockEvolutionStore, uuid.UUID) {
	personaStore := newMockPersonaStore()
	patternStore := newMockPatternStore()
	feedbackStore := newMockFeedbackStore()
	stateStore := newMockEvolutionStore()

	svc := NewEvolutionService(personaStore, patternStore, feedbackStore, stateStore, testLogger())

	persona := &domain.Persona{TenantID: uuid.New(), Traits: domain.PersonaTraits{Name: "Grandpa Joe"}}
	_ = personaStore.Create(context.Background(), persona)

	return svc, patternStore, feedbackStore, stateStore, persona.ID
}

func TestEvolutionService_AdjustmentsCached(t *testing.T) {
	svc, patternStore, _, stateStore, personaID := setupEvolutionTest()
	ctx := context.Background()
	for _, p := range fivePatterns(personaID, 0.8) {
		p := p
		_ = patternStore.Create(ctx, &p)
	}

	first, err := svc.Adjustments(ctx, personaID)
	require.NoError(t, err)
	require.NotNil(t, first)
	second, err := svc.Adjustments(ctx, personaID)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, patternStore.listCalls())

	svc.Flush()
	state, err := stateStore.Get(ctx, personaID)
	require.NoError(t, err)
	assert.Len(t, state.History, 1)
	assert.NotNil(t, state.LastEvolvedAt)

	svc.Invalidate(personaID)
	_, err = svc.Adjustments(ctx, personaID)
	require.NoError(t, err)
	assert.Equal(t, 2, patternStore.listCalls())
}

func TestEvolutionService_NothingToAdapt(t *testing.T) {
	svc, _, _, stateStore, personaID := setupEvolutionTest()
	ctx := context.Background()

	adj, err := svc.Adjustments(ctx, personaID)
	require.NoError(t, err)
	assert.Nil(t, adj)

	svc.Flush()
	state, err := stateStore.Get(ctx, personaID)
	require.NoError(t, err)
	assert.Equal(t, domain.StageInitial, state.Stage)
	assert.Empty(t, state.History)
}

func TestEvolutionService_RefreshAppendsOnlyOnChange(t *testing.T) {
	svc, patternStore, feedbackStore, stateStore, personaID := setupEvolutionTest()
	ctx := context.Background()
	for _, p := range fivePatterns(personaID, 0.8) {
		p := p
		_ = patternStore.Create(ctx, &p)
	}

	_, err := svc.Refresh(ctx, personaID)
	require.NoError(t, err)
	svc.Flush()

	_, err = svc.Refresh(ctx, personaID)
	require.NoError(t, err)
	svc.Flush()

	state, _ := stateStore.Get(ctx, personaID)
	assert.Len(t, state.History, 1)

	_ = feedbackStore.Create(ctx, &domain.Feedback{PersonaID: personaID, Kind: domain.FeedbackThumbsUp, Payload: domain.FeedbackPayload{Phrase: "love you"}})
	_, err = svc.Refresh(ctx, personaID)
	require.NoError(t, err)
	svc.Flush()

	state, _ = stateStore.Get(ctx, personaID)
	assert.Len(t, state.History, 2)
}

func TestEvolutionService_PersistFailureIsSwallowed(t *testing.T) {
	svc, patternStore, _, stateStore, personaID := setupEvolutionTest()
	ctx := context.Background()
	stateStore.upsertErr = errors.New("disk full")
	for _, p := range fivePatterns(personaID, 0.8) {
		p := p
		_ = patternStore.Create(ctx, &p)
	}

	result, err := svc.Refresh(ctx, personaID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.NotNil(t, result.Adjustments)

	svc.Flush()
	assert.Equal(t, 1, stateStore.upsertCount())
}

func TestEvolutionService_StateReadFailureStillAdapts(t *testing.T) {
	svc, patternStore, _, stateStore, personaID := setupEvolutionTest()
	ctx := context.Background()
	for _, p := range fivePatterns(personaID, 0.8)[:3] {
		p := p
		_ = patternStore.Create(ctx, &p)
	}
	stateStore.getErr = errors.New("db down")

	adj, err := svc.Adjustments(ctx, personaID)
	require.NoError(t, err)
	require.NotNil(t, adj)
	assert.Equal(t, []string{"gardening"}, adj.TopicPreferences.Preferred)

	svc.Flush()
	assert.Equal(t, 0, stateStore.upsertCount(), "stored history must not be overwritten")

	again, err := svc.Adjustments(ctx, personaID)
	require.NoError(t, err)
	assert.Same(t, adj, again)
}

func TestEvolutionService_Reset(t *testing.T) {
	svc, patternStore, _, _, personaID := setupEvolutionTest()
	ctx := context.Background()
	for _, p := range fivePatterns(personaID, 0.9) {
		p := p
		_ = patternStore.Create(ctx, &p)
	}

	_, err := svc.Refresh(ctx, personaID)
	require.NoError(t, err)
	svc.Flush()

	state, err := svc.Reset(ctx, personaID)
	require.NoError(t, err)
	assert.Equal(t, domain.StageInitial, state.Stage)
	assert.Zero(t, state.AdaptationScore)
	assert.Empty(t, state.History)

	persisted, err := svc.State(ctx, personaID)
	require.NoError(t, err)
	if diff := cmp.Diff(state.History, persisted.History); diff != "" {
		t.Fatalf("persisted history mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, domain.StageInitial, persisted.Stage)
}

func TestEvolutionService_UnknownPersona(t *testing.T) {
	svc, _, _, _, _ := setupEvolutionTest()

	_, err := svc.Refresh(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrPersonaNotFound)
}

func TestEvolutionService_CacheExpires(t *testing.T) {
	svc, patternStore, _, _, personaID := setupEvolutionTest()
	ctx := context.Background()
	svc.SetCache(4, 20*time.Millisecond)
	for _, p := range fivePatterns(personaID, 0.8) {
		p := p
		_ = patternStore.Create(ctx, &p)
	}

	_, err := svc.Adjustments(ctx, personaID)
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	_, err = svc.Adjustments(ctx, personaID)
	require.NoError(t, err)

	assert.Equal(t, 2, patternStore.listCalls())
	svc.Flush()
}
