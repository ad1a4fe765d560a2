package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"solo-quiz-service/internal/app"
	"solo-quiz-service/internal/domain"
	"solo-quiz-service/internal/infra/memory"
	"solo-quiz-service/internal/trivia"
)

const playProfile = "terminal"

// NewPlayCmd runs a quiz interactively in the terminal: the home, quiz and
// results screens rendered as text. State lives in memory for the lifetime of
// the command.
func NewPlayCmd() *cobra.Command {
	var (
		amount     int
		difficulty string
		source     string
	)
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a quiz in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(cmd.Context(), amount, domain.Difficulty(difficulty), domain.Source(source))
		},
	}
	cmd.Flags().IntVar(&amount, "amount", 5, "number of questions (5-10)")
	cmd.Flags().StringVar(&difficulty, "difficulty", "", "easy, medium or hard (empty for any)")
	cmd.Flags().StringVar(&source, "source", "api", "question source: api or local")
	return cmd
}

func runPlay(ctx context.Context, amount int, difficulty domain.Difficulty, source domain.Source) error {
	bank, err := trivia.NewBank()
	if err != nil {
		return err
	}
	api := trivia.NewSource(trivia.NewClient("", 0))
	service := app.NewSessionService(memory.NewProgressStore(), memory.NewScoreStore(), api, bank)

	view, err := service.Start(ctx, playProfile, app.StartRequest{
		Amount:     amount,
		Difficulty: difficulty,
		Source:     source,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Starting a %d-question quiz (source: %s)\n", view.Total, view.Source)

	return playLoop(ctx, service, os.Stdin)
}

// playLoop drives a started session from line input. A letter only selects
// (tentative, re-selectable); L commits it, matching the lock-after-select
// flow of the quiz screen.
func playLoop(ctx context.Context, service *app.SessionService, in io.Reader) error {
	reader := bufio.NewReader(in)
	for {
		view, err := service.Resume(ctx, playProfile)
		if err != nil {
			return err
		}
		if view.State == domain.SessionFinished {
			printResults(ctx, service, view)
			return nil
		}

		printQuestion(view)
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return nil
		}
		input := strings.ToUpper(strings.TrimSpace(line))

		switch input {
		case "":
			continue
		case "L":
			locked, err := service.Lock(ctx, playProfile)
			if err != nil {
				printActionError(err)
				continue
			}
			printOutcome(locked)
		case "S":
			if _, err := service.Skip(ctx, playProfile); err != nil {
				printActionError(err)
			}
		case "N":
			next, err := service.Advance(ctx, playProfile)
			if err != nil {
				printActionError(err)
				continue
			}
			if next.State == domain.SessionFinished {
				printResults(ctx, service, next)
				return nil
			}
		case "P":
			if _, err := service.Retreat(ctx, playProfile); err != nil {
				printActionError(err)
			}
		case "R":
			if err := service.Restart(ctx, playProfile); err != nil {
				return err
			}
			fmt.Println("Session discarded.")
			return nil
		case "Q":
			return nil
		default:
			option, ok := optionForInput(view, input)
			if !ok {
				fmt.Println("Enter a letter to select, L to lock, S to skip, N/P to move, R to restart, Q to quit.")
				continue
			}
			if _, err := service.Select(ctx, playProfile, option); err != nil {
				printActionError(err)
			}
		}
	}
}

// optionForInput maps a single letter A.. to the matching option of the
// current question.
func optionForInput(view app.SessionView, input string) (string, bool) {
	if view.Question == nil || len(input) != 1 || input[0] < 'A' {
		return "", false
	}
	idx := int(input[0] - 'A')
	if idx >= len(view.Question.Options) {
		return "", false
	}
	return view.Question.Options[idx], true
}

func printQuestion(view app.SessionView) {
	q := view.Question
	fmt.Printf("\nQuestion %d of %d", view.Index+1, view.Total)
	if q.Category != "" {
		fmt.Printf(" [%s]", q.Category)
	}
	fmt.Printf("\n%s\n\n", q.Text)
	for i, opt := range q.Options {
		marker := " "
		if opt == q.Selection {
			marker = "*"
		}
		fmt.Printf("%s %c. %s\n", marker, 'A'+i, opt)
	}
	switch q.State {
	case domain.QuestionLocked, domain.QuestionSkipped:
		printOutcome(view)
		fmt.Println("(N next, P previous, R restart, Q quit)")
	default:
		if q.RemainingSeconds > 0 {
			fmt.Printf("(%ds left; select A-%c, L lock, S skip, P previous, R restart, Q quit)\n", q.RemainingSeconds, 'A'+len(q.Options)-1)
		} else {
			fmt.Printf("(select A-%c, L lock, S skip, P previous, R restart, Q quit)\n", 'A'+len(q.Options)-1)
		}
	}
}

func printOutcome(view app.SessionView) {
	q := view.Question
	if q == nil || q.Outcome == nil {
		return
	}
	switch {
	case q.Outcome.Skipped:
		fmt.Printf("Skipped. The answer was %s.\n", q.Outcome.CorrectOption)
	case q.Outcome.IsCorrect:
		fmt.Println("Correct!")
	case q.Outcome.ChosenOption == nil:
		fmt.Printf("Time ran out. The answer was %s.\n", q.Outcome.CorrectOption)
	default:
		fmt.Printf("Wrong. The answer was %s.\n", q.Outcome.CorrectOption)
	}
}

func printResults(ctx context.Context, service *app.SessionService, view app.SessionView) {
	fmt.Printf("\nFinished! Final score: %d/%d\n", view.Score, view.Total)
	scores := view.HighScores
	if scores == nil {
		if listed, err := service.HighScores(ctx, playProfile); err == nil {
			scores = listed
		}
	}
	if len(scores) > 0 {
		fmt.Println("\nHigh scores:")
		for i, entry := range scores {
			difficulty := entry.Difficulty
			if difficulty == "" {
				difficulty = "any"
			}
			fmt.Printf("%2d. %d/%d (%s, %s) on %s\n", i+1, entry.Score, entry.Total, difficulty, entry.Source, entry.Date.Format("2006-01-02 15:04"))
		}
	}
}

func printActionError(err error) {
	switch {
	case errors.Is(err, domain.ErrQuestionLocked):
		fmt.Println("This question is already locked.")
	case errors.Is(err, domain.ErrNotLocked):
		fmt.Println("Lock or skip the question first.")
	case errors.Is(err, domain.ErrNoSelection):
		fmt.Println("Pick an option first.")
	default:
		fmt.Printf("error: %v\n", err)
	}
}
