package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Harshitk-cp/kindred/internal/domain"
	"github.com/Harshitk-cp/kindred/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultAdjustmentFetchTimeout = 400 * time.Millisecond

var ErrEmptyMessage = errors.New("message is required")

// Reply is the persona's answer to a single user turn.
type Reply struct {
	Text       string             `json:"text"`
	Fallback   bool               `json:"fallback"`
	Correction *CorrectionOutcome `json:"correction,omitempty"`
}

// ChatService runs one conversational turn through the adaptation core.
type ChatService struct {
	personaStore domain.PersonaStore
	corrections  *CorrectionService
	evolution    *EvolutionService
	tracker      *ResponseTracker
	assembler    *PromptAssembler
	generator    domain.TextGenerator
	logger       *zap.Logger

	fetchTimeout time.Duration
	now          func() time.Time
}

func NewChatService(
	ps domain.PersonaStore,
	corrections *CorrectionService,
	evolution *EvolutionService,
	tracker *ResponseTracker,
	assembler *PromptAssembler,
	generator domain.TextGenerator,
	logger *zap.Logger,
) *ChatService {
	return &ChatService{
		personaStore: ps,
		corrections:  corrections,
		evolution:    evolution,
		tracker:      tracker,
		assembler:    assembler,
		generator:    generator,
		logger:       logger,
		fetchTimeout: defaultAdjustmentFetchTimeout,
		now:          time.Now,
	}
}

func (s *ChatService) SetFetchTimeout(d time.Duration) {
	if d > 0 {
		s.fetchTimeout = d
	}
}

// HandleMessage detects and applies any correction in the message, builds the
// system prompt from traits, adjustments and correction settings, and asks the
// generator for a reply. Slow or failing inputs are dropped for this turn; a
// failed completion falls back to a non-repeating fallback line.
func (s *ChatService) HandleMessage(ctx context.Context, caller domain.Caller, personaID uuid.UUID, message string, history []domain.Message) (*Reply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}
	persona, err := s.persona(ctx, caller, personaID)
	if err != nil {
		return nil, err
	}

	correction := s.corrections.Detect(message)

	// Apply never fails the turn; the fetches return their errors so the turn
	// can note what it is running without. None of them cancels the others.
	var (
		applied       bool
		settings      *domain.UserCorrectionSettings
		adjustments   *domain.PersonalityAdjustments
		adjustmentsOK bool
		g             errgroup.Group
	)

	if correction != nil {
		g.Go(func() error {
			applied = s.corrections.Apply(ctx, caller.UserID, correction)
			return nil
		})
	}

	g.Go(func() error {
		fctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
		defer cancel()
		fetched, err := s.corrections.Settings(fctx, caller.UserID)
		if err != nil {
			return fmt.Errorf("correction settings: %w", err)
		}
		settings = fetched
		return nil
	})

	g.Go(func() error {
		fctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
		defer cancel()
		fetched, err := s.evolution.Adjustments(fctx, personaID)
		if err != nil {
			return fmt.Errorf("adjustments: %w", err)
		}
		adjustments, adjustmentsOK = fetched, true
		return nil
	})

	if err := g.Wait(); err != nil {
		s.logger.Warn("turn degraded, continuing without unavailable inputs",
			zap.String("persona_id", personaID.String()),
			zap.String("user_id", caller.UserID.String()),
			zap.Bool("settings_loaded", settings != nil),
			zap.Bool("adjustments_loaded", adjustmentsOK),
			zap.Error(err))
	}

	// The settings read may have raced the write; fold the fresh correction in
	// so this very reply already honors it.
	if settings == nil {
		settings = domain.NewUserCorrectionSettings(caller.UserID)
	}
	if correction != nil {
		settings = settings.Clone()
		settings.Merge(*correction)
	}

	instructions := RenderInstructions(settings.ForbiddenTerms, settings.LanguageCorrections)
	system := s.assembler.Build(persona.Traits, adjustments, instructions, history)

	reply := &Reply{}
	if correction != nil {
		reply.Correction = &CorrectionOutcome{
			Correction:   correction,
			Applied:      applied,
			Confirmation: Confirmation(correction),
		}
	}

	text, err := s.generator.Complete(ctx, system, []domain.Message{{Role: domain.RoleUser, Content: message}})
	text = strings.TrimSpace(text)
	if err == nil && text != "" {
		reply.Text = text
		return reply, nil
	}

	if err != nil {
		s.logger.Warn("completion failed, using fallback line",
			zap.String("persona_id", personaID.String()),
			zap.Error(err))
	}
	reply.Text = s.pick(ctx, FallbackTemplates(persona.Traits), personaID, caller.UserID)
	reply.Fallback = true
	return reply, nil
}

// Open returns an opening line that has not been used for this user within
// the dedup window, and records it.
func (s *ChatService) Open(ctx context.Context, caller domain.Caller, personaID uuid.UUID) (string, error) {
	persona, err := s.persona(ctx, caller, personaID)
	if err != nil {
		return "", err
	}
	return s.pick(ctx, WelcomeTemplates(persona.Traits), personaID, caller.UserID), nil
}

func (s *ChatService) pick(ctx context.Context, candidates []string, personaID, userID uuid.UUID) string {
	line := s.tracker.Available(ctx, candidates, personaID, userID)[0]
	s.tracker.Record(ctx, line, personaID, userID, s.now())
	return line
}

func (s *ChatService) persona(ctx context.Context, caller domain.Caller, personaID uuid.UUID) (*domain.Persona, error) {
	p, err := s.personaStore.GetByID(ctx, personaID, caller.TenantID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrPersonaNotFound
		}
		return nil, err
	}
	return p, nil
}
