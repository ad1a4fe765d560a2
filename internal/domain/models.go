package domain

import "time"

// Difficulty narrows questions to one of the trivia API's difficulty tiers.
type Difficulty string

const (
	DifficultyAny    Difficulty = ""
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Source identifies where a session's questions came from.
type Source string

const (
	SourceAPI   Source = "api"
	SourceLocal Source = "local"
)

// QuestionState is the per-question lifecycle. Locked and Skipped are terminal
// and mutually exclusive.
type QuestionState string

const (
	QuestionUnanswered QuestionState = "unanswered"
	QuestionSelected   QuestionState = "selected"
	QuestionLocked     QuestionState = "locked"
	QuestionSkipped    QuestionState = "skipped"
)

// SessionState tracks the whole playthrough.
type SessionState string

const (
	SessionInProgress SessionState = "in_progress"
	SessionFinished   SessionState = "finished"
)

// Question models an MCQ question with exactly one correct option among four.
type Question struct {
	ID            string     `json:"id"`
	Text          string     `json:"text"`
	Options       []string   `json:"options"`
	CorrectOption string     `json:"correctOption"`
	Category      string     `json:"category,omitempty"`
	Difficulty    Difficulty `json:"difficulty,omitempty"`
}

// AnswerRecord is written exactly once per question, when it is locked or
// skipped. ChosenOption is nil for timeouts and skips.
type AnswerRecord struct {
	QuestionID    string  `json:"questionId"`
	ChosenOption  *string `json:"chosenOption"`
	CorrectOption string  `json:"correctOption"`
	IsCorrect     bool    `json:"isCorrect"`
	Skipped       bool    `json:"skipped"`
}

// Settings captures the configuration a session was started with.
type Settings struct {
	Amount     int        `json:"amount"`
	Difficulty Difficulty `json:"difficulty"`
}

// QuizSession is the single persisted progress record for one playthrough.
// Answers is sparse and indexed by question position; Score is always
// recomputed from Answers, never tracked independently.
type QuizSession struct {
	Source       Source          `json:"source"`
	Questions    []Question      `json:"questions"`
	CreatedAt    time.Time       `json:"createdAt"`
	CurrentIndex int             `json:"currentIndex"`
	Answers      []*AnswerRecord `json:"answers"`
	Score        int             `json:"score"`
	Settings     Settings        `json:"settings"`
	FinishedAt   *time.Time      `json:"finishedAt,omitempty"`
}

// RecomputeScore derives Score from the recorded answers.
func (s *QuizSession) RecomputeScore() {
	score := 0
	for _, a := range s.Answers {
		if a != nil && a.IsCorrect {
			score++
		}
	}
	s.Score = score
}

// QuestionStateAt reports the lifecycle state of the question at position i as
// far as the persisted record can tell. A tentative selection lives outside the
// persisted session and is layered on by the session controller.
func (s *QuizSession) QuestionStateAt(i int) QuestionState {
	if i < 0 || i >= len(s.Answers) {
		return QuestionUnanswered
	}
	a := s.Answers[i]
	switch {
	case a == nil:
		return QuestionUnanswered
	case a.Skipped:
		return QuestionSkipped
	default:
		return QuestionLocked
	}
}

// State reports whether the session is still in play.
func (s *QuizSession) State() SessionState {
	if s.FinishedAt != nil {
		return SessionFinished
	}
	return SessionInProgress
}

// HighScoreCap bounds the ledger length; entries beyond it are discarded
// lowest-score first.
const HighScoreCap = 20

// HighScoreEntry is one finished playthrough's outcome. Appended once, never
// mutated.
type HighScoreEntry struct {
	Score      int       `json:"score"`
	Total      int       `json:"total"`
	Date       time.Time `json:"date"`
	Difficulty string    `json:"difficulty"`
	Source     string    `json:"source"`
}
