package domain

import (
	"testing"

	"github.com/google/uuid"
)

func TestUserCorrectionSettings_MergeForbiddenTerm(t *testing.T) {
	s := NewUserCorrectionSettings(uuid.New())
	c := Correction{Type: CorrectionForbiddenTerm, ExtractedTerms: []string{"sweetheart"}}

	if !s.Merge(c) {
		t.Fatal("expected first merge to change settings")
	}
	if s.Merge(c) {
		t.Fatal("expected second merge to be a no-op")
	}
	if len(s.ForbiddenTerms) != 1 || s.ForbiddenTerms[0] != "sweetheart" {
		t.Fatalf("unexpected forbidden terms: %v", s.ForbiddenTerms)
	}
}

func TestUserCorrectionSettings_MergeIsCaseInsensitive(t *testing.T) {
	s := NewUserCorrectionSettings(uuid.New())
	s.Merge(Correction{Type: CorrectionForbiddenTerm, ExtractedTerms: []string{"sweetheart"}})

	if s.Merge(Correction{Type: CorrectionForbiddenTerm, ExtractedTerms: []string{"Sweetheart"}}) {
		t.Fatal("expected differently-cased term to be deduplicated")
	}
	if !s.HasForbiddenTerm("SWEETHEART") {
		t.Fatal("expected case-insensitive membership")
	}
	if len(s.ForbiddenTerms) != 1 {
		t.Fatalf("expected 1 term, got %d", len(s.ForbiddenTerms))
	}
}

func TestUserCorrectionSettings_MergeStopBehaviorUnions(t *testing.T) {
	s := NewUserCorrectionSettings(uuid.New())
	s.Merge(Correction{Type: CorrectionForbiddenTerm, ExtractedTerms: []string{"kiddo"}})
	s.Merge(Correction{Type: CorrectionStopBehavior, ExtractedTerms: []string{"work", "kiddo"}})

	want := []string{"kiddo", "work"}
	if len(s.ForbiddenTerms) != len(want) {
		t.Fatalf("expected %v, got %v", want, s.ForbiddenTerms)
	}
	for i := range want {
		if s.ForbiddenTerms[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, s.ForbiddenTerms)
		}
	}
}

func TestUserCorrectionSettings_MergeLanguagePreference(t *testing.T) {
	s := NewUserCorrectionSettings(uuid.New())
	c := Correction{
		Type:           CorrectionLanguagePreference,
		ExtractedTerms: []string{"Babe"},
		PreferredTerm:  "hun",
	}

	if !s.Merge(c) {
		t.Fatal("expected merge to change settings")
	}
	if got := s.LanguageCorrections["babe"]; got != "hun" {
		t.Fatalf("expected babe -> hun, got %q", got)
	}
	if s.Merge(c) {
		t.Fatal("expected repeated language preference to be a no-op")
	}
}

func TestUserCorrectionSettings_MergeLanguagePreferenceWithoutPreferred(t *testing.T) {
	s := NewUserCorrectionSettings(uuid.New())
	if s.Merge(Correction{Type: CorrectionLanguagePreference, ExtractedTerms: []string{"babe"}}) {
		t.Fatal("expected language preference without preferred term to be ignored")
	}
}

func TestUserCorrectionSettings_CloneIsDeep(t *testing.T) {
	s := NewUserCorrectionSettings(uuid.New())
	s.Merge(Correction{Type: CorrectionForbiddenTerm, ExtractedTerms: []string{"kiddo"}})
	s.Merge(Correction{Type: CorrectionLanguagePreference, ExtractedTerms: []string{"babe"}, PreferredTerm: "hun"})

	c := s.Clone()
	c.ForbiddenTerms[0] = "changed"
	c.LanguageCorrections["babe"] = "changed"

	if s.ForbiddenTerms[0] != "kiddo" || s.LanguageCorrections["babe"] != "hun" {
		t.Fatal("expected clone mutations not to leak into the original")
	}
}
