package memory

import (
	"context"
	"encoding/json"
	"sync"

	"solo-quiz-service/internal/domain"
)

// ProgressStore keeps each profile's session as a serialized blob, mirroring
// the single-slot semantics of the durable stores: overwritten wholesale on
// save, removed wholesale on delete, and an unparsable blob reads as absent.
type ProgressStore struct {
	mu    sync.RWMutex
	slots map[string][]byte
}

func NewProgressStore() *ProgressStore {
	return &ProgressStore{slots: make(map[string][]byte)}
}

func (s *ProgressStore) Load(_ context.Context, profile string) (domain.QuizSession, bool, error) {
	s.mu.RLock()
	blob, ok := s.slots[profile]
	s.mu.RUnlock()
	if !ok {
		return domain.QuizSession{}, false, nil
	}
	var session domain.QuizSession
	if err := json.Unmarshal(blob, &session); err != nil {
		return domain.QuizSession{}, false, nil
	}
	return session, true, nil
}

func (s *ProgressStore) Save(_ context.Context, profile string, session domain.QuizSession) error {
	blob, err := json.Marshal(session)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.slots[profile] = blob
	s.mu.Unlock()
	return nil
}

func (s *ProgressStore) Delete(_ context.Context, profile string) error {
	s.mu.Lock()
	delete(s.slots, profile)
	s.mu.Unlock()
	return nil
}

// Corrupt overwrites a slot with garbage. Test-only.
func (s *ProgressStore) Corrupt(profile string) {
	s.mu.Lock()
	s.slots[profile] = []byte("{not json")
	s.mu.Unlock()
}
