package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/Harshitk-cp/kindred/internal/domain"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
)

const (
	DefaultDedupWindow = 30 * time.Minute

	defaultRecentCacheSize = 4096
	defaultRecentCacheTTL  = 1 * time.Minute
)

type recentKey struct {
	personaID uuid.UUID
	userID    uuid.UUID
}

// ResponseTracker keeps opening and fallback lines from repeating for the
// same (persona, user) pair within a trailing window.
type ResponseTracker struct {
	store        domain.UsedResponseStore
	personaStore domain.PersonaStore
	logger       *zap.Logger
	window       time.Duration

	mu     sync.Mutex
	recent *expirable.LRU[recentKey, []domain.UsedResponseRecord]

	now func() time.Time
}

func NewResponseTracker(store domain.UsedResponseStore, ps domain.PersonaStore, logger *zap.Logger) *ResponseTracker {
	return &ResponseTracker{
		store:        store,
		personaStore: ps,
		logger:       logger,
		window:       DefaultDedupWindow,
		recent:       expirable.NewLRU[recentKey, []domain.UsedResponseRecord](defaultRecentCacheSize, nil, defaultRecentCacheTTL),
		now:          time.Now,
	}
}

func (t *ResponseTracker) SetWindow(d time.Duration) {
	if d > 0 {
		t.window = d
	}
}

func (t *ResponseTracker) Window() time.Duration {
	return t.window
}

// Available returns the candidates not emitted for the pair within the
// window. When none survive it falls through synthesized, emergency and
// terminal lines, so the result is never empty.
func (t *ResponseTracker) Available(ctx context.Context, candidates []string, personaID, userID uuid.UUID) []string {
	now := t.now()
	used := t.usedSet(ctx, personaID, userID, now)

	if out := filterUnused(candidates, used); len(out) > 0 {
		return out
	}

	traits := t.traits(ctx, personaID)

	if out := filterUnused(SynthesizeVariants(traits, now), used); len(out) > 0 {
		t.logger.Debug("response pool exhausted, using synthesized variants",
			zap.String("persona_id", personaID.String()),
			zap.String("user_id", userID.String()))
		return out
	}

	if out := filterUnused(EmergencyTemplates(traits), used); len(out) > 0 {
		t.logger.Info("synthesized variants exhausted, using emergency templates",
			zap.String("persona_id", personaID.String()),
			zap.String("user_id", userID.String()))
		return out
	}

	for attempt := 0; ; attempt++ {
		line := terminalLine(traits, now, attempt)
		if !used[responseKey(line)] {
			t.logger.Warn("emergency templates exhausted, using terminal line",
				zap.String("persona_id", personaID.String()),
				zap.String("user_id", userID.String()))
			return []string{line}
		}
	}
}

// Record marks text as emitted for the pair at the given time. The local
// cache keeps the record even when the durable write fails; the return value
// reports whether it was persisted.
func (t *ResponseTracker) Record(ctx context.Context, text string, personaID, userID uuid.UUID, at time.Time) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	rec := domain.UsedResponseRecord{
		PersonaID: personaID,
		UserID:    userID,
		Text:      text,
		EmittedAt: at.UTC(),
	}

	t.remember(recentKey{personaID: personaID, userID: userID}, t.now(), rec)

	if err := t.store.Add(ctx, rec); err != nil {
		t.logger.Warn("failed to persist used response",
			zap.String("persona_id", personaID.String()),
			zap.String("user_id", userID.String()),
			zap.Error(err))
		return false
	}
	return true
}

// LoadSession reads the pair's live window from the store and merges it into
// the local cache.
func (t *ResponseTracker) LoadSession(ctx context.Context, personaID, userID uuid.UUID) ([]domain.UsedResponseRecord, error) {
	now := t.now()
	records, err := t.store.ListSince(ctx, personaID, userID, now.Add(-t.window))
	if err != nil {
		return nil, err
	}
	t.remember(recentKey{personaID: personaID, userID: userID}, now, records...)
	return records, nil
}

// Sweep physically removes records that fell out of the window.
func (t *ResponseTracker) Sweep(ctx context.Context, now time.Time) (int64, error) {
	return t.store.DeleteBefore(ctx, now.Add(-t.window))
}

// usedSet reads the store on every call, since other workers record into it
// too. Cached records cover writes that never reached the store.
func (t *ResponseTracker) usedSet(ctx context.Context, personaID, userID uuid.UUID, now time.Time) map[string]bool {
	key := recentKey{personaID: personaID, userID: userID}

	if _, err := t.LoadSession(ctx, personaID, userID); err != nil {
		t.logger.Warn("failed to load used responses, using local cache only",
			zap.String("persona_id", personaID.String()),
			zap.String("user_id", userID.String()),
			zap.Error(err))
	}

	t.mu.Lock()
	records, _ := t.recent.Get(key)
	t.mu.Unlock()

	cutoff := now.Add(-t.window)
	used := make(map[string]bool, len(records))
	for _, r := range records {
		if r.EmittedAt.After(cutoff) {
			used[responseKey(r.Text)] = true
		}
	}
	return used
}

// remember merges records into the pair's cache entry, dropping anything at or
// before now minus the window and collapsing duplicates of the same emission.
func (t *ResponseTracker) remember(key recentKey, now time.Time, records ...domain.UsedResponseRecord) {
	cutoff := now.Add(-t.window)

	t.mu.Lock()
	defer t.mu.Unlock()

	existing, _ := t.recent.Get(key)
	merged := make([]domain.UsedResponseRecord, 0, len(existing)+len(records))
	seen := make(map[usedEmission]bool, len(existing)+len(records))
	for _, batch := range [][]domain.UsedResponseRecord{existing, records} {
		for _, r := range batch {
			e := usedEmission{text: responseKey(r.Text), at: r.EmittedAt.UnixMilli()}
			if !r.EmittedAt.After(cutoff) || seen[e] {
				continue
			}
			seen[e] = true
			merged = append(merged, r)
		}
	}
	t.recent.Add(key, merged)
}

type usedEmission struct {
	text string
	at   int64
}

func (t *ResponseTracker) traits(ctx context.Context, personaID uuid.UUID) domain.PersonaTraits {
	traits, err := t.personaStore.GetTraits(ctx, personaID)
	if err != nil {
		t.logger.Warn("failed to load persona traits for synthesis",
			zap.String("persona_id", personaID.String()),
			zap.Error(err))
		return domain.PersonaTraits{}
	}
	return *traits
}

func responseKey(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

func filterUnused(candidates []string, used map[string]bool) []string {
	var out []string
	seen := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		k := responseKey(c)
		if k == "" || used[k] || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, c)
	}
	return out
}
