package service

import (
	"context"
	"sync"
	"time"

	"github.com/Harshitk-cp/kindred/internal/domain"
	"github.com/Harshitk-cp/kindred/internal/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	logger, _ := zap.NewDevelopment()
	return logger
}

// mockPersonaStore implements domain.PersonaStore for testing.
type mockPersonaStore struct {
	mu       sync.Mutex
	personas map[uuid.UUID]*domain.Persona
}

func newMockPersonaStore() *mockPersonaStore {
	return &mockPersonaStore{personas: make(map[uuid.UUID]*domain.Persona)}
}

func (m *mockPersonaStore) Create(ctx context.Context, p *domain.Persona) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	m.personas[p.ID] = p
	return nil
}

func (m *mockPersonaStore) GetByID(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*domain.Persona, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.personas[id]
	if !ok || p.TenantID != tenantID {
		return nil, store.ErrNotFound
	}
	return p, nil
}

func (m *mockPersonaStore) GetTraits(ctx context.Context, id uuid.UUID) (*domain.PersonaTraits, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.personas[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	traits := p.Traits
	return &traits, nil
}

// mockPatternStore implements domain.PatternStore for testing.
type mockPatternStore struct {
	mu       sync.Mutex
	patterns []domain.PatternMetric
	err      error
	calls    int
}

func newMockPatternStore() *mockPatternStore {
	return &mockPatternStore{}
}

func (m *mockPatternStore) Create(ctx context.Context, p *domain.PatternMetric) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = uuid.New()
	m.patterns = append(m.patterns, *p)
	return nil
}

func (m *mockPatternStore) ListByPersona(ctx context.Context, personaID uuid.UUID) ([]domain.PatternMetric, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.PatternMetric
	for _, p := range m.patterns {
		if p.PersonaID == personaID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockPatternStore) listCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockFeedbackStore implements domain.FeedbackStore for testing.
type mockFeedbackStore struct {
	mu        sync.Mutex
	feedbacks []domain.Feedback
}

func newMockFeedbackStore() *mockFeedbackStore {
	return &mockFeedbackStore{}
}

func (m *mockFeedbackStore) Create(ctx context.Context, f *domain.Feedback) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f.ID = uuid.New()
	f.CreatedAt = time.Now()
	m.feedbacks = append(m.feedbacks, *f)
	return nil
}

func (m *mockFeedbackStore) ListByPersona(ctx context.Context, personaID uuid.UUID) ([]domain.Feedback, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Feedback
	for _, f := range m.feedbacks {
		if f.PersonaID == personaID {
			out = append(out, f)
		}
	}
	return out, nil
}

// mockEvolutionStore implements domain.EvolutionStore for testing.
type mockEvolutionStore struct {
	mu        sync.Mutex
	states    map[uuid.UUID]domain.EvolutionState
	getErr    error
	upsertErr error
	upserts   int
}

func newMockEvolutionStore() *mockEvolutionStore {
	return &mockEvolutionStore{states: make(map[uuid.UUID]domain.EvolutionState)}
}

func (m *mockEvolutionStore) Get(ctx context.Context, personaID uuid.UUID) (*domain.EvolutionState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	s, ok := m.states[personaID]
	if !ok {
		return nil, store.ErrNotFound
	}
	s.History = append([]domain.EvolutionSnapshot{}, s.History...)
	return &s, nil
}

func (m *mockEvolutionStore) Upsert(ctx context.Context, s *domain.EvolutionState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts++
	if m.upsertErr != nil {
		return m.upsertErr
	}
	cp := *s
	cp.History = append([]domain.EvolutionSnapshot{}, s.History...)
	m.states[s.PersonaID] = cp
	return nil
}

func (m *mockEvolutionStore) upsertCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upserts
}

// mockCorrectionSettingsStore implements domain.CorrectionSettingsStore for testing.
type mockCorrectionSettingsStore struct {
	mu       sync.Mutex
	settings map[uuid.UUID]*domain.UserCorrectionSettings
	getErr   error
	mergeErr error
	// block makes Merge wait for context cancellation, simulating a slow backend.
	block bool
}

func newMockCorrectionSettingsStore() *mockCorrectionSettingsStore {
	return &mockCorrectionSettingsStore{settings: make(map[uuid.UUID]*domain.UserCorrectionSettings)}
}

func (m *mockCorrectionSettingsStore) Get(ctx context.Context, userID uuid.UUID) (*domain.UserCorrectionSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	s, ok := m.settings[userID]
	if !ok {
		return domain.NewUserCorrectionSettings(userID), nil
	}
	return s.Clone(), nil
}

func (m *mockCorrectionSettingsStore) Merge(ctx context.Context, userID uuid.UUID, c domain.Correction) (*domain.UserCorrectionSettings, bool, error) {
	if m.block {
		<-ctx.Done()
		return nil, false, ctx.Err()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mergeErr != nil {
		return nil, false, m.mergeErr
	}
	s, ok := m.settings[userID]
	if !ok {
		s = domain.NewUserCorrectionSettings(userID)
		m.settings[userID] = s
	}
	changed := s.Merge(c)
	if changed {
		s.UpdatedAt = time.Now()
	}
	return s.Clone(), changed, nil
}

// mockUsedResponseStore implements domain.UsedResponseStore for testing.
type mockUsedResponseStore struct {
	mu      sync.Mutex
	records []domain.UsedResponseRecord
	addErr  error
	listErr error
}

func newMockUsedResponseStore() *mockUsedResponseStore {
	return &mockUsedResponseStore{}
}

func (m *mockUsedResponseStore) Add(ctx context.Context, r domain.UsedResponseRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.addErr != nil {
		return m.addErr
	}
	m.records = append(m.records, r)
	return nil
}

func (m *mockUsedResponseStore) ListSince(ctx context.Context, personaID, userID uuid.UUID, since time.Time) ([]domain.UsedResponseRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []domain.UsedResponseRecord
	for _, r := range m.records {
		if r.PersonaID == personaID && r.UserID == userID && r.EmittedAt.After(since) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockUsedResponseStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.records[:0]
	var deleted int64
	for _, r := range m.records {
		if r.EmittedAt.After(cutoff) {
			kept = append(kept, r)
			continue
		}
		deleted++
	}
	m.records = kept
	return deleted, nil
}

func (m *mockUsedResponseStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// mockTextGenerator implements domain.TextGenerator for testing.
type mockTextGenerator struct {
	mock.Mock
}

func (m *mockTextGenerator) Complete(ctx context.Context, system string, conversation []domain.Message) (string, error) {
	args := m.Called(ctx, system, conversation)
	return args.String(0), args.Error(1)
}
