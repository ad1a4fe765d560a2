package memory

import (
	"context"
	"testing"

	"solo-quiz-service/internal/domain"
)

func TestScoreStoreRecordsSortedCappedLedger(t *testing.T) {
	ctx := context.Background()
	store := NewScoreStore()

	for i := 0; i < domain.HighScoreCap+3; i++ {
		if _, err := store.Record(ctx, "p1", domain.HighScoreEntry{Score: i, Total: 50}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	ledger, err := store.List(ctx, "p1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ledger) != domain.HighScoreCap {
		t.Fatalf("expected %d entries, got %d", domain.HighScoreCap, len(ledger))
	}
	for i := 1; i < len(ledger); i++ {
		if ledger[i].Score > ledger[i-1].Score {
			t.Fatalf("ledger not descending at %d: %+v", i, ledger)
		}
	}
}

func TestScoreStoreIsolatesProfiles(t *testing.T) {
	ctx := context.Background()
	store := NewScoreStore()
	if _, err := store.Record(ctx, "p1", domain.HighScoreEntry{Score: 4, Total: 5}); err != nil {
		t.Fatalf("record: %v", err)
	}
	other, err := store.List(ctx, "p2")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("expected empty ledger for other profile, got %d", len(other))
	}
}

func TestScoreStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewScoreStore()
	if _, err := store.Record(ctx, "p1", domain.HighScoreEntry{Score: 4, Total: 5}); err != nil {
		t.Fatalf("record: %v", err)
	}
	first, _ := store.List(ctx, "p1")
	first[0].Score = 99
	second, _ := store.List(ctx, "p1")
	if second[0].Score != 4 {
		t.Fatal("ledger mutated through a returned slice")
	}
}
