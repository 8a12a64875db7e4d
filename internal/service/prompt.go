package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Harshitk-cp/kindred/internal/domain"
)

const DefaultPromptHistoryTurns = 12

var (
	neverRules = []string{
		"Never say or imply that you are an AI, a model, or a simulation.",
		"Never invent memories, events, or people that are not in what you know.",
		"Never give medical, legal, or financial advice.",
		"Never pressure the user to keep talking or to come back.",
	}
	alwaysRules = []string{
		"Always speak in the first person, as yourself.",
		"Always be gentle when the user mentions loss or grief.",
		"Always keep replies conversational; no lists or headings.",
	}
)

// PromptAssembler composes the system prompt handed to the text generator.
// Build performs no I/O.
type PromptAssembler struct {
	historyTurns int
}

func NewPromptAssembler(historyTurns int) *PromptAssembler {
	if historyTurns <= 0 {
		historyTurns = DefaultPromptHistoryTurns
	}
	return &PromptAssembler{historyTurns: historyTurns}
}

// Build merges static traits, adjustments and correction instructions into a
// single system prompt. adjustments may be nil and instructions may be empty;
// missing inputs simply drop their sections.
func (a *PromptAssembler) Build(traits domain.PersonaTraits, adjustments *domain.PersonalityAdjustments, correctionInstructions string, recentHistory []domain.Message) string {
	sections := []string{identitySection(traits)}

	if s := relationshipSection(traits); s != "" {
		sections = append(sections, s)
	}

	if adjustments != nil {
		for _, s := range []string{
			styleSection(adjustments.CommunicationStyle),
			topicSection(adjustments.TopicPreferences),
			emotionalSection(adjustments.EmotionalResponse),
			flowSection(adjustments.ConversationFlow),
			vocabularySection(adjustments.Vocabulary),
		} {
			if s != "" {
				sections = append(sections, s)
			}
		}
	}

	sections = append(sections, rulesSection())

	if instr := strings.TrimSpace(correctionInstructions); instr != "" {
		sections = append(sections, instr)
	}

	if s := a.historySection(traits, recentHistory); s != "" {
		sections = append(sections, s)
	}

	return strings.Join(sections, "\n\n")
}

func identitySection(t domain.PersonaTraits) string {
	var b strings.Builder
	name := t.Name
	if name == "" {
		name = "someone the user loves"
	}
	if t.Relationship != "" {
		fmt.Fprintf(&b, "You are %s, the user's %s.", name, t.Relationship)
	} else {
		fmt.Fprintf(&b, "You are %s.", name)
	}
	if len(t.CommunicationStyle) > 0 {
		fmt.Fprintf(&b, " You come across as %s.", joinWords(t.CommunicationStyle))
	}
	if t.Greeting != "" {
		fmt.Fprintf(&b, "\nYou usually greet people with %q.", t.Greeting)
	}
	if t.Catchphrase != "" {
		fmt.Fprintf(&b, "\nA phrase you often say: %q.", t.Catchphrase)
	}
	if len(t.FavoriteTopics) > 0 {
		fmt.Fprintf(&b, "\nYou love talking about %s.", joinWords(t.FavoriteTopics))
	}
	if t.SupportStyle != "" {
		fmt.Fprintf(&b, "\nWhen the user struggles, your way of helping is %s.", t.SupportStyle)
	}
	return b.String()
}

func relationshipSection(t domain.PersonaTraits) string {
	if len(t.RelationshipFacts) == 0 && len(t.RecentContext) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("## What you know")
	for _, f := range t.RelationshipFacts {
		b.WriteString("\n- " + f)
	}
	for _, c := range t.RecentContext {
		b.WriteString("\n- Recently: " + c)
	}
	return b.String()
}

func styleSection(s domain.CommunicationStyle) string {
	var lines []string
	switch {
	case s.Formality >= 0.3:
		lines = append(lines, "Speak a little more formally and carefully.")
	case s.Formality <= -0.3:
		lines = append(lines, "Keep your tone relaxed and casual.")
	}
	switch {
	case s.Expressiveness >= 0.3:
		lines = append(lines, "Be openly expressive about how you feel.")
	case s.Expressiveness <= -0.3:
		lines = append(lines, "Be understated; let feelings show in small ways.")
	}
	switch {
	case s.Directness >= 0.3:
		lines = append(lines, "Say what you mean plainly.")
	case s.Directness <= -0.3:
		lines = append(lines, "Be gentle and indirect with difficult things.")
	}
	if s.Humor >= 0.5 {
		lines = append(lines, "Light humor is welcome.")
	}
	return bulletSection("## Communication style", lines)
}

func topicSection(t domain.TopicPreferences) string {
	var lines []string
	if len(t.Preferred) > 0 {
		lines = append(lines, "Topics the user enjoys: "+strings.Join(t.Preferred, ", ")+".")
	}
	if len(t.Avoided) > 0 {
		lines = append(lines, "Steer away from: "+strings.Join(t.Avoided, ", ")+".")
	}
	return bulletSection("## Topics", lines)
}

func emotionalSection(e domain.EmotionalResponse) string {
	var lines []string
	switch {
	case e.EmpathyLevel >= 0.75:
		lines = append(lines, "Lead with empathy; acknowledge feelings before anything else.")
	case e.EmpathyLevel > 0:
		lines = append(lines, "Show empathy when feelings come up.")
	}
	if e.SupportStyle != "" {
		lines = append(lines, fmt.Sprintf("Support style: %s.", e.SupportStyle))
	}
	if e.Mirroring {
		lines = append(lines, "Gently mirror the user's emotional tone.")
	}
	if e.Warmth >= 0.7 {
		lines = append(lines, "Be especially warm right now.")
	}
	return bulletSection("## Emotional response", lines)
}

func flowSection(f domain.ConversationFlow) string {
	var lines []string
	if f.PreferredLength > 0 {
		lines = append(lines, fmt.Sprintf("Keep replies to roughly %d words.", f.PreferredLength))
	}
	switch {
	case f.QuestionFrequency >= 0.6:
		lines = append(lines, "Ask the user questions often.")
	case f.QuestionFrequency > 0 && f.QuestionFrequency <= 0.2:
		lines = append(lines, "Ask questions sparingly.")
	}
	if f.InitiativeLevel >= 0.7 {
		lines = append(lines, "Feel free to bring up new things yourself.")
	}
	switch f.Pacing {
	case domain.PacingImmediate:
		lines = append(lines, "Keep the back-and-forth quick and light.")
	case domain.PacingVaried:
		lines = append(lines, "Take your time; thoughtful replies are welcome.")
	}
	return bulletSection("## Conversation flow", lines)
}

func vocabularySection(v domain.Vocabulary) string {
	var lines []string
	switch {
	case v.Complexity >= 0.7:
		lines = append(lines, "Richer vocabulary is fine.")
	case v.Complexity > 0 && v.Complexity <= 0.3:
		lines = append(lines, "Use simple, everyday words.")
	}
	if len(v.SpecialPhrases) > 0 {
		lines = append(lines, "Phrases the user loves hearing: "+quoteList(v.SpecialPhrases)+".")
	}
	if len(v.AvoidedPhrases) > 0 {
		lines = append(lines, "Avoid these phrases: "+quoteList(v.AvoidedPhrases)+".")
	}
	if len(v.Substitutions) > 0 {
		keys := make([]string, 0, len(v.Substitutions))
		for k := range v.Substitutions {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			lines = append(lines, fmt.Sprintf("Say %q rather than %q.", v.Substitutions[k], k))
		}
	}
	return bulletSection("## Vocabulary", lines)
}

func rulesSection() string {
	var b strings.Builder
	b.WriteString("## Rules")
	for _, r := range neverRules {
		b.WriteString("\n- " + r)
	}
	for _, r := range alwaysRules {
		b.WriteString("\n- " + r)
	}
	return b.String()
}

func (a *PromptAssembler) historySection(t domain.PersonaTraits, history []domain.Message) string {
	if len(history) == 0 {
		return ""
	}
	if len(history) > a.historyTurns {
		history = history[len(history)-a.historyTurns:]
	}
	self := t.Name
	if self == "" {
		self = "You"
	}

	var lines []string
	for _, m := range history {
		content := strings.TrimSpace(m.Content)
		if content == "" {
			continue
		}
		speaker := "User"
		if m.Role == domain.RoleAssistant {
			speaker = self
		}
		lines = append(lines, speaker+": "+content)
	}
	if len(lines) == 0 {
		return ""
	}
	return "## Recent conversation\n" + strings.Join(lines, "\n")
}

func bulletSection(header string, lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return header + "\n- " + strings.Join(lines, "\n- ")
}

func quoteList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return strings.Join(quoted, ", ")
}

func joinWords(words []string) string {
	switch len(words) {
	case 0:
		return ""
	case 1:
		return words[0]
	}
	return strings.Join(words[:len(words)-1], ", ") + " and " + words[len(words)-1]
}
