package redis

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"

	"solo-quiz-service/internal/domain"
)

// ScoreStore keeps the capped high-score ledger as one JSON list per profile,
// read-modify-written on each finished session. High scores outlive sessions,
// so ledger keys carry no TTL.
type ScoreStore struct {
	client *redis.Client
}

func NewScoreStore(client *redis.Client) *ScoreStore {
	return &ScoreStore{client: client}
}

func (s *ScoreStore) Record(ctx context.Context, profile string, entry domain.HighScoreEntry) ([]domain.HighScoreEntry, error) {
	ledger, err := s.List(ctx, profile)
	if err != nil {
		return nil, err
	}
	ledger = domain.AppendHighScore(ledger, entry)
	blob, err := json.Marshal(ledger)
	if err != nil {
		return nil, err
	}
	if err := s.client.Set(ctx, s.key(profile), blob, 0).Err(); err != nil {
		return nil, err
	}
	return ledger, nil
}

func (s *ScoreStore) List(ctx context.Context, profile string) ([]domain.HighScoreEntry, error) {
	blob, err := s.client.Get(ctx, s.key(profile)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var ledger []domain.HighScoreEntry
	if err := json.Unmarshal(blob, &ledger); err != nil {
		// unreadable ledger starts over rather than crashing the flow
		return nil, nil
	}
	return ledger, nil
}

func (s *ScoreStore) key(profile string) string {
	return "quiz:highscores:" + profile
}
