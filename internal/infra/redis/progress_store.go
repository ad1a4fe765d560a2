package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"solo-quiz-service/internal/domain"
)

// ProgressStore keeps each profile's session under a single named key, the
// durable analogue of one browser-storage slot: overwritten wholesale on every
// save, deleted wholesale on restart. A corrupt blob reads back as no session.
type ProgressStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewProgressStore(client *redis.Client, ttl time.Duration) *ProgressStore {
	return &ProgressStore{client: client, ttl: ttl}
}

func (s *ProgressStore) Load(ctx context.Context, profile string) (domain.QuizSession, bool, error) {
	blob, err := s.client.Get(ctx, s.key(profile)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.QuizSession{}, false, nil
	}
	if err != nil {
		return domain.QuizSession{}, false, err
	}
	var session domain.QuizSession
	if err := json.Unmarshal(blob, &session); err != nil {
		return domain.QuizSession{}, false, nil
	}
	return session, true, nil
}

func (s *ProgressStore) Save(ctx context.Context, profile string, session domain.QuizSession) error {
	blob, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(profile), blob, s.ttl).Err()
}

func (s *ProgressStore) Delete(ctx context.Context, profile string) error {
	return s.client.Del(ctx, s.key(profile)).Err()
}

func (s *ProgressStore) key(profile string) string {
	return "quiz:progress:" + profile
}
