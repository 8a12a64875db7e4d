package service

import (
	"context"
	"errors"
	"testing"

	"github.com/Harshitk-cp/kindred/internal/domain"
	"github.com/google/uuid"
)

type recordingInvalidator struct {
	ids []uuid.UUID
}

func (r *recordingInvalidator) Invalidate(personaID uuid.UUID) {
	r.ids = append(r.ids, personaID)
}

func setupFeedbackTest() (*FeedbackService, *mockFeedbackStore, *recordingInvalidator, *domain.Persona) {
	ps := newMockPersonaStore()
	fs := newMockFeedbackStore()
	inv := &recordingInvalidator{}

	persona := &domain.Persona{TenantID: uuid.New(), Traits: domain.PersonaTraits{Name: "Dad"}}
	_ = ps.Create(context.Background(), persona)

	return NewFeedbackService(fs, ps, inv), fs, inv, persona
}

func TestFeedbackService_Create(t *testing.T) {
	svc, fs, inv, persona := setupFeedbackTest()
	ctx := context.Background()

	f := &domain.Feedback{
		PersonaID: persona.ID,
		UserID:    uuid.New(),
		Kind:      domain.FeedbackThumbsDown,
		Payload:   domain.FeedbackPayload{Phrase: "  my dear ", Replacement: " kiddo"},
	}
	if err := svc.Create(ctx, f, persona.TenantID); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if f.ID == uuid.Nil {
		t.Fatal("expected feedback ID to be set")
	}
	if f.Payload.Phrase != "my dear" || f.Payload.Replacement != "kiddo" {
		t.Fatalf("expected trimmed payload, got %+v", f.Payload)
	}

	stored, _ := fs.ListByPersona(ctx, persona.ID)
	if len(stored) != 1 {
		t.Fatalf("expected 1 stored feedback, got %d", len(stored))
	}
	if len(inv.ids) != 1 || inv.ids[0] != persona.ID {
		t.Fatalf("expected adjustments for %s to be invalidated, got %v", persona.ID, inv.ids)
	}
}

func TestFeedbackService_Create_Validation(t *testing.T) {
	svc, _, inv, persona := setupFeedbackTest()
	ctx := context.Background()

	tests := []struct {
		name     string
		feedback domain.Feedback
		tenantID uuid.UUID
		want     error
	}{
		{"missing persona", domain.Feedback{Kind: domain.FeedbackThumbsUp}, persona.TenantID, ErrFeedbackPersonaIDMissing},
		{"unknown kind", domain.Feedback{PersonaID: persona.ID, Kind: "meh"}, persona.TenantID, ErrFeedbackInvalidKind},
		{"rating too high", domain.Feedback{PersonaID: persona.ID, Kind: domain.FeedbackRating, Payload: domain.FeedbackPayload{Rating: 6}}, persona.TenantID, ErrFeedbackInvalidRating},
		{"rating missing", domain.Feedback{PersonaID: persona.ID, Kind: domain.FeedbackRating}, persona.TenantID, ErrFeedbackInvalidRating},
		{"other tenant", domain.Feedback{PersonaID: persona.ID, Kind: domain.FeedbackThumbsUp}, uuid.New(), ErrPersonaNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := tt.feedback
			err := svc.Create(ctx, &f, tt.tenantID)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}

	if len(inv.ids) != 0 {
		t.Fatalf("rejected feedback must not invalidate adjustments, got %v", inv.ids)
	}
}
