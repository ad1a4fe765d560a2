package memory

import (
	"context"
	"sync"

	"solo-quiz-service/internal/domain"
)

// ScoreStore is the in-memory high-score ledger, one capped list per profile.
type ScoreStore struct {
	mu      sync.RWMutex
	ledgers map[string][]domain.HighScoreEntry
}

func NewScoreStore() *ScoreStore {
	return &ScoreStore{ledgers: make(map[string][]domain.HighScoreEntry)}
}

func (s *ScoreStore) Record(_ context.Context, profile string, entry domain.HighScoreEntry) ([]domain.HighScoreEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ledger := domain.AppendHighScore(s.ledgers[profile], entry)
	s.ledgers[profile] = ledger
	return copyLedger(ledger), nil
}

func (s *ScoreStore) List(_ context.Context, profile string) ([]domain.HighScoreEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyLedger(s.ledgers[profile]), nil
}

func copyLedger(ledger []domain.HighScoreEntry) []domain.HighScoreEntry {
	out := make([]domain.HighScoreEntry, len(ledger))
	copy(out, ledger)
	return out
}
