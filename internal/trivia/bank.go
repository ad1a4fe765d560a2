package trivia

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"solo-quiz-service/internal/domain"
)

//go:embed bank.json
var bankJSON []byte

// Bank is the fixed local question set used when the remote source is
// unavailable or when the user explicitly picks the local source.
type Bank struct {
	records []RawQuestion
	norm    *Normalizer
}

// NewBank loads the embedded fallback bank.
func NewBank() (*Bank, error) {
	var records []RawQuestion
	if err := json.Unmarshal(bankJSON, &records); err != nil {
		return nil, fmt.Errorf("unmarshal bank: %w", err)
	}
	return NewBankFromRecords(records), nil
}

// NewBankFromRecords builds a bank over externally loaded records, e.g. a
// Postgres-backed question table.
func NewBankFromRecords(records []RawQuestion) *Bank {
	return &Bank{records: records, norm: NewNormalizer()}
}

func (b *Bank) Size() int {
	return len(b.records)
}

// Fetch returns the first min(amount, size) bank entries, normalized with the
// same shuffle as remote questions. Difficulty is advisory only; the bank is
// too small to filter.
func (b *Bank) Fetch(_ context.Context, amount int, _ domain.Difficulty) ([]domain.Question, error) {
	if len(b.records) == 0 {
		return nil, fmt.Errorf("%w: empty question bank", domain.ErrInvalidPayload)
	}
	if amount > len(b.records) {
		amount = len(b.records)
	}
	return b.norm.Normalize(b.records[:amount])
}
