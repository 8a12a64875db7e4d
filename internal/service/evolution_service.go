package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Harshitk-cp/kindred/internal/domain"
	"github.com/Harshitk-cp/kindred/internal/store"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
)

const (
	defaultAdjustmentCacheSize = 1024
	defaultAdjustmentCacheTTL  = 1 * time.Hour
	persistTimeout             = 5 * time.Second
)

// EvolutionService owns the adjustment cache and the lazily created
// evolution state of every persona.
type EvolutionService struct {
	evolver       *Evolver
	personaStore  domain.PersonaStore
	patternStore  domain.PatternStore
	feedbackStore domain.FeedbackStore
	stateStore    domain.EvolutionStore
	logger        *zap.Logger

	// A nil value caches "nothing to adapt yet".
	cache *expirable.LRU[uuid.UUID, *domain.PersonalityAdjustments]

	pending sync.WaitGroup
	now     func() time.Time
}

func NewEvolutionService(ps domain.PersonaStore, pts domain.PatternStore, fs domain.FeedbackStore, es domain.EvolutionStore, logger *zap.Logger) *EvolutionService {
	return &EvolutionService{
		evolver:       NewEvolver(logger),
		personaStore:  ps,
		patternStore:  pts,
		feedbackStore: fs,
		stateStore:    es,
		logger:        logger,
		cache:         expirable.NewLRU[uuid.UUID, *domain.PersonalityAdjustments](defaultAdjustmentCacheSize, nil, defaultAdjustmentCacheTTL),
		now:           time.Now,
	}
}

// SetCache replaces the adjustment cache with one of the given bounds.
// Call it before the service starts taking traffic.
func (s *EvolutionService) SetCache(size int, ttl time.Duration) {
	if size <= 0 {
		size = defaultAdjustmentCacheSize
	}
	s.cache = expirable.NewLRU[uuid.UUID, *domain.PersonalityAdjustments](size, nil, ttl)
}

// Adjustments returns the cached adjustments for a persona, evolving on a
// miss. A nil result with a nil error means there is nothing to adapt yet.
func (s *EvolutionService) Adjustments(ctx context.Context, personaID uuid.UUID) (*domain.PersonalityAdjustments, error) {
	if adj, ok := s.cache.Get(personaID); ok {
		return adj, nil
	}
	result, err := s.Refresh(ctx, personaID)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}
	return result.Adjustments, nil
}

// Refresh recomputes adjustments from the full current evidence set,
// replaces the cache entry and persists the updated state in the background.
func (s *EvolutionService) Refresh(ctx context.Context, personaID uuid.UUID) (*EvolutionResult, error) {
	s.cache.Remove(personaID)

	traits, err := s.personaStore.GetTraits(ctx, personaID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrPersonaNotFound
		}
		return nil, fmt.Errorf("load persona traits: %w", err)
	}

	patterns, err := s.patternStore.ListByPersona(ctx, personaID)
	if err != nil {
		return nil, fmt.Errorf("load pattern metrics: %w", err)
	}
	feedback, err := s.feedbackStore.ListByPersona(ctx, personaID)
	if err != nil {
		return nil, fmt.Errorf("load feedback: %w", err)
	}

	state, created, err := s.loadState(ctx, personaID)
	if err != nil {
		// History only feeds the snapshot diff. Evolve without it and leave the
		// stored state alone so this pass cannot overwrite it.
		s.logger.Warn("evolution state unavailable, evolving without history",
			zap.String("persona_id", personaID.String()),
			zap.Error(err))
		result := s.evolver.Evolve(personaID, *traits, patterns, feedback, nil)
		if result == nil {
			s.cache.Add(personaID, nil)
			return nil, nil
		}
		s.cache.Add(personaID, result.Adjustments)
		return result, nil
	}

	result := s.evolver.Evolve(personaID, *traits, patterns, feedback, state.LastSnapshot())
	if result == nil {
		s.cache.Add(personaID, nil)
		if created {
			s.persist(state)
		}
		return nil, nil
	}

	s.cache.Add(personaID, result.Adjustments)

	if result.Snapshot != nil || created || state.Stage != result.Stage || state.AdaptationScore != result.AdaptationScore {
		result.ApplyTo(state, s.now())
		s.persist(state)
	}

	s.logger.Debug("persona evolved",
		zap.String("persona_id", personaID.String()),
		zap.String("stage", string(result.Stage)),
		zap.Float64("adaptation_score", result.AdaptationScore),
		zap.Bool("snapshot", result.Snapshot != nil))

	return result, nil
}

// Reset clears a persona's history and score. The state row is kept.
func (s *EvolutionService) Reset(ctx context.Context, personaID uuid.UUID) (*domain.EvolutionState, error) {
	if _, err := s.personaStore.GetTraits(ctx, personaID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrPersonaNotFound
		}
		return nil, err
	}

	state, _, err := s.loadState(ctx, personaID)
	if err != nil {
		return nil, err
	}
	state.Reset()
	state.UpdatedAt = s.now().UTC()

	s.cache.Remove(personaID)
	if err := s.stateStore.Upsert(ctx, state); err != nil {
		return nil, fmt.Errorf("reset evolution state: %w", err)
	}

	s.logger.Info("evolution state reset", zap.String("persona_id", personaID.String()))
	return state, nil
}

// State returns the persisted state, or a fresh initial state when the
// persona has never been evolved.
func (s *EvolutionService) State(ctx context.Context, personaID uuid.UUID) (*domain.EvolutionState, error) {
	state, _, err := s.loadState(ctx, personaID)
	return state, err
}

// Invalidate drops the cached adjustments for a persona so the next read
// recomputes from fresh evidence.
func (s *EvolutionService) Invalidate(personaID uuid.UUID) {
	s.cache.Remove(personaID)
}

// Flush waits for background state writes to finish.
func (s *EvolutionService) Flush() {
	s.pending.Wait()
}

func (s *EvolutionService) loadState(ctx context.Context, personaID uuid.UUID) (*domain.EvolutionState, bool, error) {
	state, err := s.stateStore.Get(ctx, personaID)
	if err == nil {
		return state, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, false, fmt.Errorf("load evolution state: %w", err)
	}
	state = domain.NewEvolutionState(personaID)
	now := s.now().UTC()
	state.CreatedAt, state.UpdatedAt = now, now
	return state, true, nil
}

// persist writes the state without blocking the caller. Failures are logged.
func (s *EvolutionService) persist(state *domain.EvolutionState) {
	state.UpdatedAt = s.now().UTC()
	snapshot := *state
	snapshot.History = append([]domain.EvolutionSnapshot(nil), state.History...)

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()

		if err := s.stateStore.Upsert(ctx, &snapshot); err != nil {
			s.logger.Error("failed to persist evolution state",
				zap.String("persona_id", snapshot.PersonaID.String()),
				zap.Error(err))
		}
	}()
}
