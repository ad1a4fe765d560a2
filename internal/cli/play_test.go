package cli

import (
	"context"
	"strings"
	"testing"

	"solo-quiz-service/internal/app"
	"solo-quiz-service/internal/domain"
	"solo-quiz-service/internal/infra/memory"
	"solo-quiz-service/internal/trivia"
)

func newPlayService(t *testing.T) *app.SessionService {
	t.Helper()
	bank, err := trivia.NewBank()
	if err != nil {
		t.Fatalf("bank: %v", err)
	}
	return app.NewSessionService(memory.NewProgressStore(), memory.NewScoreStore(), bank, bank)
}

func TestPlayLoopSelectThenLockPlaythrough(t *testing.T) {
	ctx := context.Background()
	service := newPlayService(t)
	if _, err := service.Start(ctx, playProfile, app.StartRequest{Amount: 5, Source: domain.SourceLocal}); err != nil {
		t.Fatalf("start: %v", err)
	}

	script := strings.Repeat("A\nL\nN\n", 5)
	if err := playLoop(ctx, service, strings.NewReader(script)); err != nil {
		t.Fatalf("play loop: %v", err)
	}

	ledger, err := service.HighScores(ctx, playProfile)
	if err != nil {
		t.Fatalf("highscores: %v", err)
	}
	if len(ledger) != 1 || ledger[0].Total != 5 {
		t.Fatalf("expected one finished 5-question entry, got %+v", ledger)
	}
}

func TestPlayLoopLetterOnlySelectsTentatively(t *testing.T) {
	ctx := context.Background()
	service := newPlayService(t)
	if _, err := service.Start(ctx, playProfile, app.StartRequest{Amount: 5, Source: domain.SourceLocal}); err != nil {
		t.Fatalf("start: %v", err)
	}

	// pick A, change to B, quit without locking
	if err := playLoop(ctx, service, strings.NewReader("A\nB\nQ\n")); err != nil {
		t.Fatalf("play loop: %v", err)
	}

	view, err := service.Resume(ctx, playProfile)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if view.Question.State != domain.QuestionSelected {
		t.Fatalf("a letter alone must leave the question selected, got %s", view.Question.State)
	}
	if view.Question.Selection != view.Question.Options[1] {
		t.Fatalf("re-selection must replace the prior choice, got %q", view.Question.Selection)
	}
	if view.Answers[0] != nil {
		t.Fatalf("no answer may be recorded before lock, got %+v", view.Answers[0])
	}
}

func TestPlayLoopLockWithoutSelectionIsRejected(t *testing.T) {
	ctx := context.Background()
	service := newPlayService(t)
	if _, err := service.Start(ctx, playProfile, app.StartRequest{Amount: 5, Source: domain.SourceLocal}); err != nil {
		t.Fatalf("start: %v", err)
	}

	if err := playLoop(ctx, service, strings.NewReader("L\nQ\n")); err != nil {
		t.Fatalf("play loop: %v", err)
	}

	view, err := service.Resume(ctx, playProfile)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if view.Question.State != domain.QuestionUnanswered || view.Answers[0] != nil {
		t.Fatalf("bare lock must leave the question open, got %+v", view.Question)
	}
}

func TestOptionForInput(t *testing.T) {
	view := app.SessionView{Question: &app.QuestionView{Options: []string{"w", "x", "y", "z"}}}
	if opt, ok := optionForInput(view, "C"); !ok || opt != "y" {
		t.Fatalf("expected C to map to y, got %q ok=%v", opt, ok)
	}
	for _, input := range []string{"E", "AA", "1", ""} {
		if _, ok := optionForInput(view, input); ok {
			t.Fatalf("input %q must not map to an option", input)
		}
	}
}
