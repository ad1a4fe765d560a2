package memory

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"solo-quiz-service/internal/domain"
	"solo-quiz-service/internal/trivia"
)

// QuestionCache caches raw trivia batches with TTL to spare the public API,
// deduping concurrent identical fetches. Only raw records are cached; option
// shuffling and IDs happen downstream per session.
type QuestionCache struct {
	fetcher trivia.RawFetcher
	ttl     time.Duration
	clock   func() time.Time
	sf      singleflight.Group

	mu    sync.RWMutex
	cache map[string]cachedBatch
}

type cachedBatch struct {
	records   []trivia.RawQuestion
	expiresAt time.Time
}

func NewQuestionCache(fetcher trivia.RawFetcher, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		fetcher: fetcher,
		ttl:     ttl,
		clock:   time.Now,
		cache:   make(map[string]cachedBatch),
	}
}

func (c *QuestionCache) FetchRaw(ctx context.Context, amount int, difficulty domain.Difficulty) ([]trivia.RawQuestion, error) {
	key := fmt.Sprintf("%d:%s", amount, difficulty)
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.cache[key]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.records, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.cache[key]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.records, nil
		}
		c.mu.RUnlock()

		records, err := c.fetcher.FetchRaw(ctx, amount, difficulty)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.cache[key] = cachedBatch{
			records:   records,
			expiresAt: now.Add(c.ttlWithJitter()),
		}
		c.mu.Unlock()
		return records, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]trivia.RawQuestion), nil
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations; the locked top-level source
	// stays safe across concurrent singleflight keys
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(rand.Int63n(jitterMax+1))
}
