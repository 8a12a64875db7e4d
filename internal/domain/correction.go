package domain

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

type CorrectionType string

const (
	CorrectionForbiddenTerm      CorrectionType = "forbidden_term"
	CorrectionLanguagePreference CorrectionType = "language_preference"
	CorrectionStopBehavior       CorrectionType = "stop_behavior"
)

func ValidCorrectionType(t string) bool {
	switch CorrectionType(t) {
	case CorrectionForbiddenTerm, CorrectionLanguagePreference, CorrectionStopBehavior:
		return true
	}
	return false
}

type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

func ValidSeverity(s string) bool {
	switch Severity(s) {
	case SeverityHigh, SeverityMedium, SeverityLow:
		return true
	}
	return false
}

// Correction is a behavioral directive detected in a single user utterance.
type Correction struct {
	Type           CorrectionType `json:"type"`
	Severity       Severity       `json:"severity"`
	Pattern        string         `json:"pattern"`
	ExtractedTerms []string       `json:"extracted_terms"`
	// PreferredTerm is set for language_preference corrections only.
	PreferredTerm string `json:"preferred_term,omitempty"`
}

// UserCorrectionSettings grows monotonically; removal is an explicit action
// outside the adaptation core.
type UserCorrectionSettings struct {
	UserID              uuid.UUID         `json:"user_id"`
	ForbiddenTerms      []string          `json:"forbidden_terms"`
	LanguageCorrections map[string]string `json:"language_corrections"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

func NewUserCorrectionSettings(userID uuid.UUID) *UserCorrectionSettings {
	return &UserCorrectionSettings{
		UserID:              userID,
		ForbiddenTerms:      []string{},
		LanguageCorrections: map[string]string{},
	}
}

func normalizeTerm(t string) string {
	return strings.ToLower(strings.TrimSpace(t))
}

// HasForbiddenTerm reports case-insensitive membership.
func (s *UserCorrectionSettings) HasForbiddenTerm(term string) bool {
	n := normalizeTerm(term)
	for _, t := range s.ForbiddenTerms {
		if normalizeTerm(t) == n {
			return true
		}
	}
	return false
}

// Merge unions the correction into the settings and reports whether anything changed.
// Applying the same correction twice is a no-op the second time.
func (s *UserCorrectionSettings) Merge(c Correction) bool {
	if s.LanguageCorrections == nil {
		s.LanguageCorrections = map[string]string{}
	}

	changed := false
	switch c.Type {
	case CorrectionForbiddenTerm, CorrectionStopBehavior:
		for _, term := range c.ExtractedTerms {
			n := normalizeTerm(term)
			if n == "" || s.HasForbiddenTerm(n) {
				continue
			}
			s.ForbiddenTerms = append(s.ForbiddenTerms, n)
			changed = true
		}
		sort.Strings(s.ForbiddenTerms)
	case CorrectionLanguagePreference:
		preferred := normalizeTerm(c.PreferredTerm)
		if preferred == "" {
			return false
		}
		for _, term := range c.ExtractedTerms {
			avoided := normalizeTerm(term)
			if avoided == "" || avoided == preferred {
				continue
			}
			if s.LanguageCorrections[avoided] == preferred {
				continue
			}
			s.LanguageCorrections[avoided] = preferred
			changed = true
		}
	}
	return changed
}

// Clone returns a deep copy.
func (s *UserCorrectionSettings) Clone() *UserCorrectionSettings {
	out := &UserCorrectionSettings{
		UserID:              s.UserID,
		ForbiddenTerms:      append([]string{}, s.ForbiddenTerms...),
		LanguageCorrections: make(map[string]string, len(s.LanguageCorrections)),
		UpdatedAt:           s.UpdatedAt,
	}
	for k, v := range s.LanguageCorrections {
		out.LanguageCorrections[k] = v
	}
	return out
}
