package service

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Harshitk-cp/kindred/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// Adaptation score weights
	confidenceWeight = 0.3
	feedbackWeight   = 0.5
	volumeWeight     = 0.2

	// Evidence volume thresholds (total sample size across patterns)
	highVolumeSamples = 100
	midVolumeSamples  = 50

	// Stage thresholds
	minPatternsForLearning = 3
	learningScore          = 0.2
	adaptedScore           = 0.5
	matureScore            = 0.8

	// Communication style
	formalityShift      = 0.7
	expressivenessShift = 0.6
	directnessShift     = 0.6
	humorOn             = 0.6
	humorOff            = 0.2
	sentimentNudge      = 0.2
	sentimentHumorNudge = 0.1

	// Topic weights
	preferredPositiveWeight = 0.8
	preferredNeutralWeight  = 0.6
	avoidedTopicWeight      = 0.2
	defaultTopicWeight      = 0.5

	// Emotional response
	defaultEmpathy        = 0.6
	supportEmpathy        = 0.8
	defaultWarmth         = 0.5
	supportWarmth         = 0.7
	empathyAmplifier      = 1.1
	positiveSuperMajority = 0.6
	defaultSupportStyle   = "balanced"

	// Conversation flow
	defaultReplyLength       = 150
	minReplyLength           = 20
	maxReplyLength           = 500
	defaultQuestionFrequency = 0.3
	defaultInitiative        = 0.5
	starterInitiative        = 0.7
	starterThreshold         = 3
	immediateLatencySeconds  = 5.0
	variedLatencySeconds     = 15.0

	// Vocabulary
	formalComplexity  = 0.7
	casualComplexity  = 0.3
	neutralComplexity = 0.5
)

var mirroredEmotions = map[string]bool{
	"sad":     true,
	"anxious": true,
	"excited": true,
}

// EvolutionResult is the outcome of one evolution pass.
type EvolutionResult struct {
	Adjustments     *domain.PersonalityAdjustments `json:"adjustments"`
	AdaptationScore float64                        `json:"adaptation_score"`
	Stage           domain.EvolutionStage          `json:"stage"`
	// Snapshot is nil when no category changed since the last recorded snapshot.
	Snapshot *domain.EvolutionSnapshot `json:"snapshot,omitempty"`
}

// ApplyTo folds the result into state: score and stage are replaced, and the
// snapshot, if any, is appended to history.
func (r *EvolutionResult) ApplyTo(state *domain.EvolutionState, at time.Time) {
	state.AdaptationScore = r.AdaptationScore
	state.Stage = r.Stage
	if r.Snapshot != nil {
		state.History = append(state.History, *r.Snapshot)
		evolvedAt := at
		state.LastEvolvedAt = &evolvedAt
	}
}

// Evolver is the pure evolution engine. It holds no state between calls.
type Evolver struct {
	logger *zap.Logger
	now    func() time.Time
}

func NewEvolver(logger *zap.Logger) *Evolver {
	return &Evolver{logger: logger, now: time.Now}
}

// evidence is the decoded, validated view of the raw inputs.
type evidence struct {
	patternCount  int
	confidenceSum float64
	sampleSize    int

	style     *domain.CommunicationStyleValue
	sentiment *domain.SentimentValue
	topics    []domain.TopicValue
	emotion   *domain.EmotionalStateValue
	flow      *domain.ConversationFlowValue
	verbosity *domain.VerbosityValue

	feedback []domain.Feedback
}

// Evolve computes adjustments for a persona from its pattern metrics and
// feedback. previous is used only to diff the new result into a snapshot; it
// never biases the computed adjustments. Evolve returns nil when there are no
// usable patterns to learn from.
func (e *Evolver) Evolve(personaID uuid.UUID, traits domain.PersonaTraits, patterns []domain.PatternMetric, feedback []domain.Feedback, previous *domain.EvolutionSnapshot) *EvolutionResult {
	ev := e.collect(personaID, patterns, feedback)
	if ev.patternCount == 0 {
		return nil
	}

	adj := &domain.PersonalityAdjustments{
		CommunicationStyle: computeCommunicationStyle(ev),
		TopicPreferences:   computeTopicPreferences(ev),
		EmotionalResponse:  computeEmotionalResponse(ev, traits),
		ConversationFlow:   computeConversationFlow(ev),
		Vocabulary:         computeVocabulary(ev),
	}

	positive := 0
	for _, f := range ev.feedback {
		if f.Positive() {
			positive++
		}
	}
	score := AdaptationScore(ev.patternCount, ev.confidenceSum/float64(ev.patternCount), positive, len(ev.feedback), ev.sampleSize)

	result := &EvolutionResult{
		Adjustments:     adj,
		AdaptationScore: score,
		Stage:           StageFor(ev.patternCount, score),
	}

	if changes := diffAdjustments(previous, adj, ev); len(changes) > 0 {
		result.Snapshot = &domain.EvolutionSnapshot{
			Timestamp:       e.now().UTC(),
			Changes:         changes,
			ConfidenceScore: score,
			Adjustments:     *adj,
		}
	}
	return result
}

func (e *Evolver) collect(personaID uuid.UUID, patterns []domain.PatternMetric, feedback []domain.Feedback) evidence {
	var ev evidence

	// Later observations of single-valued metrics win; patterns without a
	// timestamp keep list order.
	sorted := make([]domain.PatternMetric, len(patterns))
	copy(sorted, patterns)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ObservedAt.Before(sorted[j].ObservedAt)
	})

	for _, p := range sorted {
		if err := ev.add(p); err != nil {
			e.logger.Warn("skipping malformed pattern metric",
				zap.String("persona_id", personaID.String()),
				zap.String("pattern_id", p.ID.String()),
				zap.String("metric", string(p.Metric)),
				zap.Error(err))
			continue
		}
		ev.patternCount++
		ev.confidenceSum += clamp(p.Confidence, 0, 1)
		if p.SampleSize > 0 {
			ev.sampleSize += p.SampleSize
		}
	}

	for _, f := range feedback {
		if !f.Valid() {
			e.logger.Warn("skipping malformed feedback",
				zap.String("persona_id", personaID.String()),
				zap.String("feedback_id", f.ID.String()),
				zap.String("kind", string(f.Kind)))
			continue
		}
		ev.feedback = append(ev.feedback, f)
	}
	return ev
}

func (ev *evidence) add(p domain.PatternMetric) error {
	switch p.Metric {
	case domain.PatternCommunicationStyle:
		v, err := p.DecodeCommunicationStyle()
		if err != nil {
			return err
		}
		ev.style = &v
	case domain.PatternSentiment:
		v, err := p.DecodeSentiment()
		if err != nil {
			return err
		}
		ev.sentiment = &v
	case domain.PatternTopic:
		v, err := p.DecodeTopic()
		if err != nil {
			return err
		}
		ev.topics = append(ev.topics, v)
	case domain.PatternEmotionalState:
		v, err := p.DecodeEmotionalState()
		if err != nil {
			return err
		}
		ev.emotion = &v
	case domain.PatternConversationFlow:
		v, err := p.DecodeConversationFlow()
		if err != nil {
			return err
		}
		ev.flow = &v
	case domain.PatternVerbosity:
		v, err := p.DecodeVerbosity()
		if err != nil {
			return err
		}
		ev.verbosity = &v
	default:
		return fmt.Errorf("%w: unknown metric %q", domain.ErrMalformedPattern, p.Metric)
	}
	return nil
}

// AdaptationScore blends mean pattern confidence, positive feedback ratio and
// an evidence-volume bonus, dividing by the weights that actually contributed.
func AdaptationScore(patternCount int, meanConfidence float64, positiveFeedback, totalFeedback, sampleSize int) float64 {
	var weighted, weights float64

	if patternCount > 0 {
		weighted += confidenceWeight * clamp(meanConfidence, 0, 1)
		weights += confidenceWeight

		volume := 0.0
		switch {
		case sampleSize > highVolumeSamples:
			volume = 1.0
		case sampleSize > midVolumeSamples:
			volume = 0.5
		}
		weighted += volumeWeight * volume
		weights += volumeWeight
	}

	if totalFeedback > 0 {
		weighted += feedbackWeight * float64(positiveFeedback) / float64(totalFeedback)
		weights += feedbackWeight
	}

	if weights == 0 {
		return 0
	}
	return clamp(weighted/weights, 0, 1)
}

// StageFor maps evidence count and score to a stage. It is recomputed on
// every pass, so a persona can move back to an earlier stage.
func StageFor(patternCount int, score float64) domain.EvolutionStage {
	switch {
	case patternCount < minPatternsForLearning || score < learningScore:
		return domain.StageInitial
	case score < adaptedScore:
		return domain.StageLearning
	case score < matureScore:
		return domain.StageAdapted
	default:
		return domain.StageMature
	}
}

func computeCommunicationStyle(ev evidence) domain.CommunicationStyle {
	style := domain.CommunicationStyle{Humor: humorOff}

	if v := ev.style; v != nil {
		switch v.Formality {
		case "formal":
			style.Formality = formalityShift
		case "casual":
			style.Formality = -formalityShift
		}
		switch v.Expressiveness {
		case "expressive":
			style.Expressiveness = expressivenessShift
		case "reserved":
			style.Expressiveness = -expressivenessShift
		}
		switch v.Directness {
		case "direct":
			style.Directness = directnessShift
		case "indirect":
			style.Directness = -directnessShift
		}
		if v.Humor {
			style.Humor = humorOn
		}
	}

	if s := ev.sentiment; s != nil {
		switch s.Overall {
		case domain.SentimentPositive:
			style.Expressiveness += sentimentNudge
			style.Humor += sentimentHumorNudge
		case domain.SentimentNegative:
			style.Formality += sentimentNudge
		}
	}

	style.Formality = clamp(style.Formality, -1, 1)
	style.Expressiveness = clamp(style.Expressiveness, -1, 1)
	style.Directness = clamp(style.Directness, -1, 1)
	style.Humor = clamp(style.Humor, 0, 1)
	return style
}

func computeTopicPreferences(ev evidence) domain.TopicPreferences {
	prefs := domain.TopicPreferences{}
	if len(ev.topics) == 0 {
		return prefs
	}

	preferred := map[string]bool{}
	avoided := map[string]bool{}
	prefs.Weights = make(map[string]float64, len(ev.topics))

	for _, t := range ev.topics {
		name := strings.ToLower(strings.TrimSpace(t.Topic))
		switch {
		case t.Frequency > 3 && t.Sentiment == domain.SentimentPositive:
			preferred[name] = true
			prefs.Weights[name] = preferredPositiveWeight
		case t.Frequency > 5 && t.Sentiment == domain.SentimentNeutral:
			preferred[name] = true
			prefs.Weights[name] = preferredNeutralWeight
		case t.Frequency > 2 && t.Sentiment == domain.SentimentNegative:
			avoided[name] = true
			prefs.Weights[name] = avoidedTopicWeight
		default:
			prefs.Weights[name] = defaultTopicWeight
		}
	}

	prefs.Preferred = sortedKeys(preferred)
	prefs.Avoided = sortedKeys(avoided)
	return prefs
}

func computeEmotionalResponse(ev evidence, traits domain.PersonaTraits) domain.EmotionalResponse {
	resp := domain.EmotionalResponse{
		EmpathyLevel: defaultEmpathy,
		Warmth:       defaultWarmth,
		SupportStyle: defaultSupportStyle,
	}
	if traits.SupportStyle != "" {
		resp.SupportStyle = traits.SupportStyle
	}

	if v := ev.emotion; v != nil {
		if v.NeedsSupport {
			resp.EmpathyLevel = supportEmpathy
			resp.Warmth = supportWarmth
		}
		resp.Mirroring = mirroredEmotions[strings.ToLower(v.CurrentEmotion)]
		if v.SupportStyle != "" {
			resp.SupportStyle = v.SupportStyle
		}
	}

	var tagged, positive int
	for _, f := range ev.feedback {
		if !f.EmotionallyTagged() {
			continue
		}
		tagged++
		if f.Positive() {
			positive++
		}
	}
	if tagged > 0 && float64(positive)/float64(tagged) > positiveSuperMajority {
		resp.EmpathyLevel = min(resp.EmpathyLevel*empathyAmplifier, 1.0)
	}
	return resp
}

func computeConversationFlow(ev evidence) domain.ConversationFlow {
	flow := domain.ConversationFlow{
		PreferredLength:   defaultReplyLength,
		QuestionFrequency: defaultQuestionFrequency,
		InitiativeLevel:   defaultInitiative,
		Pacing:            domain.PacingNatural,
	}

	if v := ev.verbosity; v != nil {
		flow.PreferredLength = min(max(v.PreferredLength, minReplyLength), maxReplyLength)
	}

	if v := ev.flow; v != nil {
		if v.QuestionFrequency != nil {
			flow.QuestionFrequency = clamp(*v.QuestionFrequency, 0, 1)
		}
		if v.InitiativeLevel != nil {
			flow.InitiativeLevel = clamp(*v.InitiativeLevel, 0, 1)
		}
		if v.ConversationStarters > starterThreshold {
			flow.InitiativeLevel = max(flow.InitiativeLevel, starterInitiative)
		}
		switch {
		case v.MeanResponseLatency <= 0:
		case v.MeanResponseLatency < immediateLatencySeconds:
			flow.Pacing = domain.PacingImmediate
		case v.MeanResponseLatency > variedLatencySeconds:
			flow.Pacing = domain.PacingVaried
		}
	}
	return flow
}

func computeVocabulary(ev evidence) domain.Vocabulary {
	vocab := domain.Vocabulary{Complexity: neutralComplexity}
	if ev.style != nil {
		switch ev.style.Formality {
		case "formal":
			vocab.Complexity = formalComplexity
		case "casual":
			vocab.Complexity = casualComplexity
		}
	}

	special := map[string]bool{}
	avoided := map[string]bool{}
	for _, f := range ev.feedback {
		phrase := strings.ToLower(strings.TrimSpace(f.Payload.Phrase))
		if phrase == "" {
			continue
		}
		switch f.Kind {
		case domain.FeedbackThumbsUp:
			special[phrase] = true
		case domain.FeedbackThumbsDown:
			avoided[phrase] = true
			if r := strings.TrimSpace(f.Payload.Replacement); r != "" {
				if vocab.Substitutions == nil {
					vocab.Substitutions = map[string]string{}
				}
				vocab.Substitutions[phrase] = r
			}
		}
	}

	vocab.SpecialPhrases = sortedKeys(special)
	vocab.AvoidedPhrases = sortedKeys(avoided)
	return vocab
}

var adjustmentCmpOpts = []cmp.Option{cmpopts.EquateEmpty()}

// diffAdjustments returns one delta per category whose value differs from the
// previous snapshot's.
func diffAdjustments(previous *domain.EvolutionSnapshot, next *domain.PersonalityAdjustments, ev evidence) []domain.AdjustmentDelta {
	var changes []domain.AdjustmentDelta
	for _, c := range domain.AllAdjustmentCategories() {
		after := next.Category(c)
		var before any
		if previous != nil {
			before = previous.Adjustments.Category(c)
			if cmp.Equal(before, after, adjustmentCmpOpts...) {
				continue
			}
		}
		changes = append(changes, domain.AdjustmentDelta{
			Category: c,
			Before:   before,
			After:    after,
			Reason:   changeReason(c, ev),
		})
	}
	return changes
}

func changeReason(c domain.AdjustmentCategory, ev evidence) string {
	switch c {
	case domain.CategoryCommunicationStyle:
		switch {
		case ev.style != nil && ev.sentiment != nil:
			return fmt.Sprintf("observed communication style, %s overall sentiment", ev.sentiment.Overall)
		case ev.style != nil:
			return "observed communication style"
		case ev.sentiment != nil:
			return fmt.Sprintf("%s overall sentiment", ev.sentiment.Overall)
		}
		return "default style"
	case domain.CategoryTopicPreferences:
		return fmt.Sprintf("%d topic observations", len(ev.topics))
	case domain.CategoryEmotionalResponse:
		if ev.emotion != nil && ev.emotion.NeedsSupport {
			return "user needs support"
		}
		return fmt.Sprintf("emotional state and %d feedback signals", len(ev.feedback))
	case domain.CategoryConversationFlow:
		return "observed conversation flow"
	case domain.CategoryVocabulary:
		return fmt.Sprintf("formality and %d feedback signals", len(ev.feedback))
	}
	return ""
}

func clamp(v, lo, hi float64) float64 {
	return min(max(v, lo), hi)
}

func sortedKeys(m map[string]bool) []string {
	if len(m) == 0 {
		return nil
	}
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
