package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Harshitk-cp/kindred/internal/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	usedResponsePrefix   = "kindred:used"
	usedResponseIndexKey = "kindred:used:index"
)

// UsedResponseStore keeps one sorted set per (persona, user) pair, with the
// emitted text as member and the emission time in unix milliseconds as score.
// An index set tracks live keys so the sweep never needs KEYS or SCAN.
type UsedResponseStore struct {
	client redis.UniversalClient
	keyTTL time.Duration
}

// NewUsedResponseStore returns a Redis-backed store. keyTTL bounds how long an
// idle pair's key survives even if no sweep runs; zero disables it.
func NewUsedResponseStore(client redis.UniversalClient, keyTTL time.Duration) *UsedResponseStore {
	return &UsedResponseStore{client: client, keyTTL: keyTTL}
}

func usedResponseKey(personaID, userID uuid.UUID) string {
	return fmt.Sprintf("%s:%s:%s", usedResponsePrefix, personaID, userID)
}

func parseUsedResponseKey(key string) (uuid.UUID, uuid.UUID, bool) {
	parts := strings.Split(strings.TrimPrefix(key, usedResponsePrefix+":"), ":")
	if len(parts) != 2 {
		return uuid.Nil, uuid.Nil, false
	}
	personaID, err := uuid.Parse(parts[0])
	if err != nil {
		return uuid.Nil, uuid.Nil, false
	}
	userID, err := uuid.Parse(parts[1])
	if err != nil {
		return uuid.Nil, uuid.Nil, false
	}
	return personaID, userID, true
}

func (s *UsedResponseStore) Add(ctx context.Context, r domain.UsedResponseRecord) error {
	key := usedResponseKey(r.PersonaID, r.UserID)
	pipe := s.client.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(r.EmittedAt.UnixMilli()), Member: r.Text})
	pipe.SAdd(ctx, usedResponseIndexKey, key)
	if s.keyTTL > 0 {
		pipe.Expire(ctx, key, s.keyTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record used response: %w", err)
	}
	return nil
}

func (s *UsedResponseStore) ListSince(ctx context.Context, personaID, userID uuid.UUID, since time.Time) ([]domain.UsedResponseRecord, error) {
	zs, err := s.client.ZRangeByScoreWithScores(ctx, usedResponseKey(personaID, userID), &redis.ZRangeBy{
		Min: "(" + strconv.FormatInt(since.UnixMilli(), 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("list used responses: %w", err)
	}

	records := make([]domain.UsedResponseRecord, 0, len(zs))
	for _, z := range zs {
		text, ok := z.Member.(string)
		if !ok {
			continue
		}
		records = append(records, domain.UsedResponseRecord{
			PersonaID: personaID,
			UserID:    userID,
			Text:      text,
			EmittedAt: time.UnixMilli(int64(z.Score)).UTC(),
		})
	}
	return records, nil
}

// DeleteBefore trims every indexed pair and drops keys left empty.
func (s *UsedResponseStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	keys, err := s.client.SMembers(ctx, usedResponseIndexKey).Result()
	if err != nil {
		return 0, fmt.Errorf("list used response keys: %w", err)
	}

	max := strconv.FormatInt(cutoff.UnixMilli(), 10)
	var deleted int64
	for _, key := range keys {
		if _, _, ok := parseUsedResponseKey(key); !ok {
			s.client.SRem(ctx, usedResponseIndexKey, key)
			continue
		}
		n, err := s.client.ZRemRangeByScore(ctx, key, "-inf", max).Result()
		if err != nil {
			return deleted, fmt.Errorf("sweep %s: %w", key, err)
		}
		deleted += n

		remaining, err := s.client.ZCard(ctx, key).Result()
		if err != nil {
			return deleted, fmt.Errorf("sweep %s: %w", key, err)
		}
		if remaining == 0 {
			s.client.SRem(ctx, usedResponseIndexKey, key)
		}
	}
	return deleted, nil
}
