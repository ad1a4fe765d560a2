package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"solo-quiz-service/internal/trivia"
)

// BankLoader reads the local question bank from Postgres. Rows carry the same
// raw-record shape the trivia API returns, stored as JSONB, ordered by
// position so "first N entries" stays deterministic.
type BankLoader struct {
	pool *pgxpool.Pool
}

func NewBankLoader(pool *pgxpool.Pool) *BankLoader {
	return &BankLoader{pool: pool}
}

func (l *BankLoader) LoadBank(ctx context.Context) ([]trivia.RawQuestion, error) {
	rows, err := l.pool.Query(ctx, `SELECT data FROM question_bank ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("load bank: %w", err)
	}
	defer rows.Close()

	var records []trivia.RawQuestion
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan bank row: %w", err)
		}
		var record trivia.RawQuestion
		if err := json.Unmarshal(raw, &record); err != nil {
			return nil, fmt.Errorf("unmarshal bank row: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load bank: %w", err)
	}
	return records, nil
}
