package service

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Harshitk-cp/kindred/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	minCorrectionTermLen = 1
	maxCorrectionTermLen = 50

	defaultCorrectionApplyTimeout = 150 * time.Millisecond
)

//go:embed correction_patterns.yaml
var defaultCorrectionPatternsYAML []byte

var (
	quoteReplacer = strings.NewReplacer("‘", "'", "’", "'", "“", `"`, "”", `"`)
	termSplitter  = regexp.MustCompile(`\s+(?:and|or)\s+`)
	termFillers   = []string{"anymore", "any more", "again", "please", "ever", "thanks", "thank you", "ok", "okay"}
)

type correctionPatternDef struct {
	Name      string `yaml:"name"`
	Type      string `yaml:"type"`
	Severity  string `yaml:"severity"`
	Regex     string `yaml:"regex"`
	Terms     []int  `yaml:"terms"`
	Preferred int    `yaml:"preferred"`
	Split     bool   `yaml:"split"`
}

type correctionPatternFile struct {
	Patterns []correctionPatternDef `yaml:"patterns"`
}

// CorrectionPattern pairs a matcher with the capture groups its extractor reads.
type CorrectionPattern struct {
	Name     string
	Type     domain.CorrectionType
	Severity domain.Severity

	matcher        *regexp.Regexp
	termGroups     []int
	preferredGroup int
	split          bool
}

// Match runs the pattern against an already-normalized message.
func (p CorrectionPattern) Match(normalized string) (*domain.Correction, bool) {
	groups := p.matcher.FindStringSubmatch(normalized)
	if groups == nil {
		return nil, false
	}

	var terms []string
	for _, g := range p.termGroups {
		raw := groups[g]
		parts := []string{raw}
		if p.split {
			parts = termSplitter.Split(raw, -1)
		}
		for _, part := range parts {
			if term, ok := cleanCorrectionTerm(part); ok {
				terms = append(terms, term)
			}
		}
	}
	if len(terms) == 0 {
		return nil, false
	}

	c := &domain.Correction{
		Type:           p.Type,
		Severity:       p.Severity,
		Pattern:        p.Name,
		ExtractedTerms: dedupeStrings(terms),
	}
	if p.preferredGroup > 0 {
		preferred, ok := cleanCorrectionTerm(groups[p.preferredGroup])
		if !ok {
			return nil, false
		}
		c.PreferredTerm = preferred
	}
	return c, true
}

// LoadCorrectionPatterns parses and validates a YAML pattern table.
func LoadCorrectionPatterns(data []byte) ([]CorrectionPattern, error) {
	var file correctionPatternFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse correction patterns: %w", err)
	}
	if len(file.Patterns) == 0 {
		return nil, fmt.Errorf("correction patterns: no patterns defined")
	}

	patterns := make([]CorrectionPattern, 0, len(file.Patterns))
	for i, def := range file.Patterns {
		if !domain.ValidCorrectionType(def.Type) {
			return nil, fmt.Errorf("correction pattern %d (%s): invalid type %q", i, def.Name, def.Type)
		}
		if !domain.ValidSeverity(def.Severity) {
			return nil, fmt.Errorf("correction pattern %d (%s): invalid severity %q", i, def.Name, def.Severity)
		}
		re, err := regexp.Compile(def.Regex)
		if err != nil {
			return nil, fmt.Errorf("correction pattern %d (%s): %w", i, def.Name, err)
		}
		if len(def.Terms) == 0 {
			return nil, fmt.Errorf("correction pattern %d (%s): no term groups", i, def.Name)
		}
		for _, g := range def.Terms {
			if g < 1 || g > re.NumSubexp() {
				return nil, fmt.Errorf("correction pattern %d (%s): term group %d out of range", i, def.Name, g)
			}
		}
		ctype := domain.CorrectionType(def.Type)
		if ctype == domain.CorrectionLanguagePreference {
			if def.Preferred < 1 || def.Preferred > re.NumSubexp() {
				return nil, fmt.Errorf("correction pattern %d (%s): language preference needs a preferred group", i, def.Name)
			}
		} else if def.Preferred != 0 {
			return nil, fmt.Errorf("correction pattern %d (%s): preferred group only applies to language_preference", i, def.Name)
		}

		patterns = append(patterns, CorrectionPattern{
			Name:           def.Name,
			Type:           ctype,
			Severity:       domain.Severity(def.Severity),
			matcher:        re,
			termGroups:     def.Terms,
			preferredGroup: def.Preferred,
			split:          def.Split,
		})
	}
	return patterns, nil
}

// LoadCorrectionPatternsFile reads a pattern table from disk, falling back to the
// built-in table when path is empty.
func LoadCorrectionPatternsFile(path string) ([]CorrectionPattern, error) {
	if path == "" {
		return DefaultCorrectionPatterns(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read correction patterns: %w", err)
	}
	return LoadCorrectionPatterns(data)
}

// DefaultCorrectionPatterns returns the built-in pattern table.
func DefaultCorrectionPatterns() []CorrectionPattern {
	patterns, err := LoadCorrectionPatterns(defaultCorrectionPatternsYAML)
	if err != nil {
		panic(fmt.Sprintf("built-in correction patterns are invalid: %v", err))
	}
	return patterns
}

// CorrectionDetector scans a single utterance for explicit behavioral directives.
type CorrectionDetector struct {
	patterns []CorrectionPattern
}

func NewCorrectionDetector(patterns []CorrectionPattern) *CorrectionDetector {
	if patterns == nil {
		patterns = DefaultCorrectionPatterns()
	}
	return &CorrectionDetector{patterns: patterns}
}

// Detect returns the correction produced by the first matching pattern, or nil.
func (d *CorrectionDetector) Detect(message string) *domain.Correction {
	normalized := normalizeUtterance(message)
	if normalized == "" {
		return nil
	}
	for _, p := range d.patterns {
		if c, ok := p.Match(normalized); ok {
			return c
		}
	}
	return nil
}

// Patterns returns the detector's ordered pattern table.
func (d *CorrectionDetector) Patterns() []CorrectionPattern {
	return d.patterns
}

func normalizeUtterance(s string) string {
	return strings.ToLower(strings.TrimSpace(quoteReplacer.Replace(s)))
}

func cleanCorrectionTerm(raw string) (string, bool) {
	term := strings.Trim(strings.TrimSpace(raw), `"' `)
	for {
		trimmed := term
		for _, f := range termFillers {
			trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, " "+f))
		}
		if trimmed == term {
			break
		}
		term = trimmed
	}
	term = strings.Trim(term, `"' `)

	n := utf8.RuneCountInString(term)
	if n < minCorrectionTermLen || n > maxCorrectionTermLen {
		return "", false
	}
	return term, true
}

// RenderInstructions turns the active correction settings into a compact
// directive block for the prompt. It returns "" when nothing is active.
func RenderInstructions(forbiddenTerms []string, languageCorrections map[string]string) string {
	var lines []string

	if len(forbiddenTerms) > 0 {
		terms := dedupeStrings(forbiddenTerms)
		sort.Strings(terms)
		quoted := make([]string, len(terms))
		for i, t := range terms {
			quoted[i] = fmt.Sprintf("%q", t)
		}
		lines = append(lines, "Never use these terms, names or topics: "+strings.Join(quoted, ", ")+".")
	}

	if len(languageCorrections) > 0 {
		avoided := make([]string, 0, len(languageCorrections))
		for k := range languageCorrections {
			avoided = append(avoided, k)
		}
		sort.Strings(avoided)
		pairs := make([]string, len(avoided))
		for i, a := range avoided {
			pairs[i] = fmt.Sprintf("say %q instead of %q", languageCorrections[a], a)
		}
		lines = append(lines, "Prefer these phrasings: "+strings.Join(pairs, "; ")+".")
	}

	if len(lines) == 0 {
		return ""
	}
	return "## User corrections (always honor)\n" + strings.Join(lines, "\n")
}

// Confirmation is the short user-facing acknowledgement for a correction.
func Confirmation(c *domain.Correction) string {
	if c == nil || len(c.ExtractedTerms) == 0 {
		return ""
	}
	terms := quoteJoin(c.ExtractedTerms)
	switch c.Type {
	case domain.CorrectionForbiddenTerm:
		return fmt.Sprintf("Understood. I won't use %s again.", terms)
	case domain.CorrectionLanguagePreference:
		return fmt.Sprintf("Okay, I'll say %q instead of %s from now on.", c.PreferredTerm, terms)
	case domain.CorrectionStopBehavior:
		return fmt.Sprintf("Of course. I'll stop bringing up %s.", terms)
	}
	return ""
}

func quoteJoin(terms []string) string {
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = fmt.Sprintf("%q", t)
	}
	if len(quoted) == 1 {
		return quoted[0]
	}
	return strings.Join(quoted[:len(quoted)-1], ", ") + " or " + quoted[len(quoted)-1]
}

// CorrectionOutcome is what message handling gets back from a detection pass.
type CorrectionOutcome struct {
	Correction   *domain.Correction `json:"correction"`
	Applied      bool               `json:"applied"`
	Confirmation string             `json:"confirmation"`
}

// CorrectionService persists detected corrections into per-user settings.
type CorrectionService struct {
	detector     *CorrectionDetector
	store        domain.CorrectionSettingsStore
	logger       *zap.Logger
	applyTimeout time.Duration
}

func NewCorrectionService(detector *CorrectionDetector, store domain.CorrectionSettingsStore, logger *zap.Logger) *CorrectionService {
	if detector == nil {
		detector = NewCorrectionDetector(nil)
	}
	return &CorrectionService{
		detector:     detector,
		store:        store,
		logger:       logger,
		applyTimeout: defaultCorrectionApplyTimeout,
	}
}

func (s *CorrectionService) SetApplyTimeout(d time.Duration) {
	s.applyTimeout = d
}

func (s *CorrectionService) Detect(message string) *domain.Correction {
	return s.detector.Detect(message)
}

// Apply unions the correction into the user's settings. It never returns an
// error: a failed or slow write yields false and message handling carries on.
func (s *CorrectionService) Apply(ctx context.Context, userID uuid.UUID, c *domain.Correction) bool {
	if c == nil || userID == uuid.Nil {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, s.applyTimeout)
	defer cancel()

	start := time.Now()
	_, changed, err := s.store.Merge(ctx, userID, *c)
	if err != nil {
		s.logger.Warn("failed to apply correction",
			zap.String("user_id", userID.String()),
			zap.String("type", string(c.Type)),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return false
	}

	s.logger.Debug("correction applied",
		zap.String("user_id", userID.String()),
		zap.String("type", string(c.Type)),
		zap.String("pattern", c.Pattern),
		zap.Bool("changed", changed),
		zap.Duration("elapsed", time.Since(start)))
	return true
}

// DetectAndApply runs detection and, on a match, persistence.
// It returns nil when the message carries no correction.
func (s *CorrectionService) DetectAndApply(ctx context.Context, userID uuid.UUID, message string) *CorrectionOutcome {
	c := s.detector.Detect(message)
	if c == nil {
		return nil
	}
	return &CorrectionOutcome{
		Correction:   c,
		Applied:      s.Apply(ctx, userID, c),
		Confirmation: Confirmation(c),
	}
}

// Settings returns the user's correction settings, or empty settings when
// they cannot be read in time.
func (s *CorrectionService) Settings(ctx context.Context, userID uuid.UUID) (*domain.UserCorrectionSettings, error) {
	settings, err := s.store.Get(ctx, userID)
	if err != nil {
		return domain.NewUserCorrectionSettings(userID), err
	}
	return settings, nil
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		key := strings.ToLower(s)
		if s == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}
