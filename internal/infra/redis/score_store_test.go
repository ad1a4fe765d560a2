package redis

import (
	"context"
	"testing"

	"solo-quiz-service/internal/domain"
)

func TestScoreStoreRecordAndList(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestClient(t)
	store := NewScoreStore(client)

	ledger, err := store.Record(ctx, "p1", domain.HighScoreEntry{Score: 2, Total: 5})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	ledger, err = store.Record(ctx, "p1", domain.HighScoreEntry{Score: 4, Total: 5})
	if err != nil {
		t.Fatalf("record 2: %v", err)
	}
	if len(ledger) != 2 || ledger[0].Score != 4 || ledger[1].Score != 2 {
		t.Fatalf("expected ledger [4, 2], got %+v", ledger)
	}
	if !mr.Exists("quiz:highscores:p1") {
		t.Fatal("expected ledger key to be set")
	}

	// the ledger survives a fresh store over the same backend
	listed, err := NewScoreStore(client).List(ctx, "p1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 2 || listed[0].Score != 4 {
		t.Fatalf("ledger not durable: %+v", listed)
	}
}

func TestScoreStoreCapsLedger(t *testing.T) {
	ctx := context.Background()
	_, client := newTestClient(t)
	store := NewScoreStore(client)

	for i := 0; i < domain.HighScoreCap+4; i++ {
		if _, err := store.Record(ctx, "p1", domain.HighScoreEntry{Score: i, Total: 100}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	ledger, err := store.List(ctx, "p1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ledger) != domain.HighScoreCap {
		t.Fatalf("expected cap %d, got %d", domain.HighScoreCap, len(ledger))
	}
}

func TestScoreStoreUnreadableLedgerStartsOver(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestClient(t)
	store := NewScoreStore(client)

	if err := mr.Set("quiz:highscores:p1", "not json"); err != nil {
		t.Fatalf("seed garbage: %v", err)
	}
	ledger, err := store.Record(ctx, "p1", domain.HighScoreEntry{Score: 3, Total: 5})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if len(ledger) != 1 || ledger[0].Score != 3 {
		t.Fatalf("expected fresh ledger, got %+v", ledger)
	}
}
