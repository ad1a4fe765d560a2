package app

import (
	"context"
	"sync"
	"time"

	"solo-quiz-service/internal/domain"
)

// ProgressRepository persists the single progress slot per client profile.
// The session blob is written wholesale on every mutation; a missing or
// unparsable blob reads back as ok=false, never as an error.
type ProgressRepository interface {
	Load(ctx context.Context, profile string) (domain.QuizSession, bool, error)
	Save(ctx context.Context, profile string, session domain.QuizSession) error
	Delete(ctx context.Context, profile string) error
}

// ScoreRepository persists the capped high-score ledger per client profile.
// Record returns the ledger after append, re-sort and truncation.
type ScoreRepository interface {
	Record(ctx context.Context, profile string, entry domain.HighScoreEntry) ([]domain.HighScoreEntry, error)
	List(ctx context.Context, profile string) ([]domain.HighScoreEntry, error)
}

// QuestionSource produces a normalized question batch.
type QuestionSource interface {
	Fetch(ctx context.Context, amount int, difficulty domain.Difficulty) ([]domain.Question, error)
}

// StartRequest configures a new session.
type StartRequest struct {
	Amount     int
	Difficulty domain.Difficulty
	Source     domain.Source
}

// QuestionView is the current question as a client should render it. Outcome
// is only populated once the question is locked or skipped, which is also the
// only point the correct option is revealed.
type QuestionView struct {
	ID               string               `json:"id"`
	Text             string               `json:"text"`
	Options          []string             `json:"options"`
	Category         string               `json:"category,omitempty"`
	Difficulty       domain.Difficulty    `json:"difficulty,omitempty"`
	State            domain.QuestionState `json:"state"`
	Selection        string               `json:"selection,omitempty"`
	Outcome          *domain.AnswerRecord `json:"outcome,omitempty"`
	RemainingSeconds int                  `json:"remainingSeconds"`
}

// SessionView is a transport-friendly snapshot of the session.
type SessionView struct {
	State      domain.SessionState     `json:"state"`
	Source     domain.Source           `json:"source"`
	Settings   domain.Settings         `json:"settings"`
	Index      int                     `json:"index"`
	Total      int                     `json:"total"`
	Score      int                     `json:"score"`
	Question   *QuestionView           `json:"question,omitempty"`
	Answers    []*domain.AnswerRecord  `json:"answers"`
	HighScores []domain.HighScoreEntry `json:"highScores,omitempty"`
}

// SessionService is the quiz session controller: it owns the question
// lifecycle (unanswered, selected, locked, skipped), the traversal of the
// question sequence and the per-question countdown. All storage goes through
// the injected repositories.
type SessionService struct {
	progress ProgressRepository
	scores   ScoreRepository
	api      QuestionSource
	bank     QuestionSource
	timerDur time.Duration
	now      func() time.Time

	mu   sync.Mutex
	live map[string]*liveSession
}

// QuestionTime is the fixed per-question countdown.
const QuestionTime = 30 * time.Second

func NewSessionService(progress ProgressRepository, scores ScoreRepository, api, bank QuestionSource) *SessionService {
	return &SessionService{
		progress: progress,
		scores:   scores,
		api:      api,
		bank:     bank,
		timerDur: QuestionTime,
		now:      time.Now,
		live:     make(map[string]*liveSession),
	}
}

// WithQuestionTimer overrides the countdown duration; zero disables it.
func (s *SessionService) WithQuestionTimer(d time.Duration) *SessionService {
	s.timerDur = d
	return s
}

// WithClock is test-only for deterministic timestamps.
func (s *SessionService) WithClock(now func() time.Time) *SessionService {
	s.now = now
	return s
}

// liveSession pairs the persisted record with the runtime-only pieces: the
// tentative selection, the countdown timer and push subscribers.
type liveSession struct {
	mu          sync.Mutex
	profile     string
	session     domain.QuizSession
	selection   string
	timerSeq    int
	timer       *time.Timer
	deadline    time.Time
	subscribers map[chan SessionView]struct{}
}

// Start creates a fresh session, overwriting any previous one. When the remote
// source fails the local bank is substituted silently and the session is marked
// local; only a bank failure surfaces as an error.
func (s *SessionService) Start(ctx context.Context, profile string, req StartRequest) (SessionView, error) {
	if req.Amount < 5 || req.Amount > 10 {
		return SessionView{}, domain.ErrInvalidAmount
	}

	source := req.Source
	if source != domain.SourceLocal {
		source = domain.SourceAPI
	}

	var questions []domain.Question
	var err error
	if source == domain.SourceAPI {
		questions, err = s.api.Fetch(ctx, req.Amount, req.Difficulty)
		if err != nil {
			source = domain.SourceLocal
		}
	}
	if source == domain.SourceLocal {
		questions, err = s.bank.Fetch(ctx, req.Amount, req.Difficulty)
		if err != nil {
			return SessionView{}, err
		}
	}

	session := domain.QuizSession{
		Source:       source,
		Questions:    questions,
		CreatedAt:    s.now(),
		CurrentIndex: 0,
		Answers:      make([]*domain.AnswerRecord, len(questions)),
		Settings:     domain.Settings{Amount: req.Amount, Difficulty: req.Difficulty},
	}
	session.RecomputeScore()

	if err := s.progress.Save(ctx, profile, session); err != nil {
		return SessionView{}, err
	}

	ls := s.replaceLive(profile, session)
	ls.mu.Lock()
	defer ls.mu.Unlock()
	s.armTimerLocked(ls)
	return s.viewLocked(ctx, ls), nil
}

// Resume rehydrates a persisted session, restarting the countdown when the
// current question is still open. A finished session resumes read-only with
// its ledger attached, which is what the results screen renders.
func (s *SessionService) Resume(ctx context.Context, profile string) (SessionView, error) {
	ls, err := s.getLive(ctx, profile)
	if err != nil {
		return SessionView{}, err
	}
	ls.mu.Lock()
	defer ls.mu.Unlock()
	view := s.viewLocked(ctx, ls)
	if ls.session.State() == domain.SessionFinished {
		if scores, err := s.scores.List(ctx, profile); err == nil {
			view.HighScores = scores
		}
	}
	return view, nil
}

// Select records a tentative choice for the current question. It is idempotent,
// replaces any prior choice and persists nothing.
func (s *SessionService) Select(ctx context.Context, profile, option string) (SessionView, error) {
	ls, err := s.getLive(ctx, profile)
	if err != nil {
		return SessionView{}, err
	}
	ls.mu.Lock()
	defer ls.mu.Unlock()

	if ls.session.State() == domain.SessionFinished {
		return SessionView{}, domain.ErrSessionFinished
	}
	idx := ls.session.CurrentIndex
	if state := ls.session.QuestionStateAt(idx); state == domain.QuestionLocked || state == domain.QuestionSkipped {
		return SessionView{}, domain.ErrQuestionLocked
	}
	if !containsOption(ls.session.Questions[idx].Options, option) {
		return SessionView{}, domain.ErrUnknownOption
	}
	ls.selection = option
	return s.viewLocked(ctx, ls), nil
}

// Lock commits the current selection. It may only happen once per question;
// a second lock fails without touching the answer or the score.
func (s *SessionService) Lock(ctx context.Context, profile string) (SessionView, error) {
	ls, err := s.getLive(ctx, profile)
	if err != nil {
		return SessionView{}, err
	}
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return s.lockLocked(ctx, ls, false)
}

// Skip resolves the current question without an answer. Terminal like a lock
// but explicitly flagged, and never worth a point.
func (s *SessionService) Skip(ctx context.Context, profile string) (SessionView, error) {
	ls, err := s.getLive(ctx, profile)
	if err != nil {
		return SessionView{}, err
	}
	ls.mu.Lock()
	defer ls.mu.Unlock()

	if ls.session.State() == domain.SessionFinished {
		return SessionView{}, domain.ErrSessionFinished
	}
	idx := ls.session.CurrentIndex
	if state := ls.session.QuestionStateAt(idx); state == domain.QuestionLocked || state == domain.QuestionSkipped {
		return SessionView{}, domain.ErrQuestionLocked
	}

	q := ls.session.Questions[idx]
	ls.session.Answers[idx] = &domain.AnswerRecord{
		QuestionID:    q.ID,
		ChosenOption:  nil,
		CorrectOption: q.CorrectOption,
		IsCorrect:     false,
		Skipped:       true,
	}
	ls.session.RecomputeScore()
	s.disarmTimerLocked(ls)
	ls.selection = ""

	if err := s.progress.Save(ctx, profile, ls.session); err != nil {
		return SessionView{}, err
	}
	return s.viewLocked(ctx, ls), nil
}

// Advance moves to the next question once the current one is resolved. From
// the last question it finishes the session, records exactly one ledger entry
// and returns the capped ledger on the view.
func (s *SessionService) Advance(ctx context.Context, profile string) (SessionView, error) {
	ls, err := s.getLive(ctx, profile)
	if err != nil {
		return SessionView{}, err
	}
	ls.mu.Lock()
	defer ls.mu.Unlock()

	if ls.session.State() == domain.SessionFinished {
		return SessionView{}, domain.ErrSessionFinished
	}
	idx := ls.session.CurrentIndex
	if state := ls.session.QuestionStateAt(idx); state != domain.QuestionLocked && state != domain.QuestionSkipped {
		return SessionView{}, domain.ErrNotLocked
	}
	ls.selection = ""

	if idx == len(ls.session.Questions)-1 {
		now := s.now()
		ls.session.CurrentIndex = len(ls.session.Questions)
		ls.session.FinishedAt = &now
		ls.session.RecomputeScore()
		s.disarmTimerLocked(ls)

		if err := s.progress.Save(ctx, profile, ls.session); err != nil {
			return SessionView{}, err
		}
		scores, err := s.scores.Record(ctx, profile, domain.HighScoreEntry{
			Score:      ls.session.Score,
			Total:      len(ls.session.Questions),
			Date:       now,
			Difficulty: string(ls.session.Settings.Difficulty),
			Source:     string(ls.session.Source),
		})
		if err != nil {
			return SessionView{}, err
		}
		view := s.viewLocked(ctx, ls)
		view.HighScores = scores
		return view, nil
	}

	ls.session.CurrentIndex++
	ls.session.RecomputeScore()
	if ls.session.QuestionStateAt(ls.session.CurrentIndex) == domain.QuestionUnanswered {
		s.armTimerLocked(ls)
	} else {
		s.disarmTimerLocked(ls)
	}
	if err := s.progress.Save(ctx, profile, ls.session); err != nil {
		return SessionView{}, err
	}
	return s.viewLocked(ctx, ls), nil
}

// Retreat steps back one question, floored at the first. Revisited questions
// display their stored outcome; no data is cleared and no countdown runs for
// an already resolved question.
func (s *SessionService) Retreat(ctx context.Context, profile string) (SessionView, error) {
	ls, err := s.getLive(ctx, profile)
	if err != nil {
		return SessionView{}, err
	}
	ls.mu.Lock()
	defer ls.mu.Unlock()

	if ls.session.State() == domain.SessionFinished {
		return SessionView{}, domain.ErrSessionFinished
	}
	if ls.session.CurrentIndex == 0 {
		return s.viewLocked(ctx, ls), nil
	}
	ls.session.CurrentIndex--
	ls.selection = ""
	s.disarmTimerLocked(ls)
	if err := s.progress.Save(ctx, profile, ls.session); err != nil {
		return SessionView{}, err
	}
	return s.viewLocked(ctx, ls), nil
}

// Restart discards the progress slot entirely. The ledger is untouched.
func (s *SessionService) Restart(ctx context.Context, profile string) error {
	s.mu.Lock()
	ls, ok := s.live[profile]
	delete(s.live, profile)
	s.mu.Unlock()
	if ok {
		ls.mu.Lock()
		s.disarmTimerLocked(ls)
		for ch := range ls.subscribers {
			delete(ls.subscribers, ch)
			close(ch)
		}
		ls.mu.Unlock()
	}
	return s.progress.Delete(ctx, profile)
}

// HighScores returns the capped, sorted ledger.
func (s *SessionService) HighScores(ctx context.Context, profile string) ([]domain.HighScoreEntry, error) {
	return s.scores.List(ctx, profile)
}

// Subscribe returns a channel receiving snapshots pushed by the service
// itself, i.e. timer-forced locks. The caller must invoke cancel.
func (s *SessionService) Subscribe(ctx context.Context, profile string) (<-chan SessionView, func(), error) {
	ls, err := s.getLive(ctx, profile)
	if err != nil {
		return nil, nil, err
	}
	ls.mu.Lock()
	ch := make(chan SessionView, 8)
	ls.subscribers[ch] = struct{}{}
	ls.mu.Unlock()

	// The subscription may have been carried over to a newer runtime session
	// by the time cancel runs, so resolve the current one then.
	cancel := func() {
		s.mu.Lock()
		cur, ok := s.live[profile]
		s.mu.Unlock()
		if !ok {
			cur = ls
		}
		cur.mu.Lock()
		if _, ok := cur.subscribers[ch]; ok {
			delete(cur.subscribers, ch)
			close(ch)
		}
		cur.mu.Unlock()
	}
	return ch, cancel, nil
}

// lockLocked is the single lock path, shared by Lock and the countdown expiry.
// forced locks accept an empty selection and record a nil choice.
func (s *SessionService) lockLocked(ctx context.Context, ls *liveSession, forced bool) (SessionView, error) {
	if ls.session.State() == domain.SessionFinished {
		return SessionView{}, domain.ErrSessionFinished
	}
	idx := ls.session.CurrentIndex
	if state := ls.session.QuestionStateAt(idx); state == domain.QuestionLocked || state == domain.QuestionSkipped {
		return SessionView{}, domain.ErrQuestionLocked
	}
	if ls.selection == "" && !forced {
		return SessionView{}, domain.ErrNoSelection
	}

	q := ls.session.Questions[idx]
	record := &domain.AnswerRecord{
		QuestionID:    q.ID,
		CorrectOption: q.CorrectOption,
	}
	if ls.selection != "" {
		chosen := ls.selection
		record.ChosenOption = &chosen
		record.IsCorrect = chosen == q.CorrectOption
	}
	ls.session.Answers[idx] = record
	ls.session.RecomputeScore()
	s.disarmTimerLocked(ls)
	ls.selection = ""

	if err := s.progress.Save(ctx, ls.profile, ls.session); err != nil {
		return SessionView{}, err
	}
	return s.viewLocked(ctx, ls), nil
}

// getLive returns the runtime session, rehydrating it from the progress slot
// when needed (e.g. after a reconnect or process restart).
func (s *SessionService) getLive(ctx context.Context, profile string) (*liveSession, error) {
	s.mu.Lock()
	if ls, ok := s.live[profile]; ok {
		s.mu.Unlock()
		return ls, nil
	}
	s.mu.Unlock()

	session, ok, err := s.progress.Load(ctx, profile)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrNoSession
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if ls, ok := s.live[profile]; ok {
		return ls, nil
	}
	ls := &liveSession{
		profile:     profile,
		session:     session,
		subscribers: make(map[chan SessionView]struct{}),
	}
	s.live[profile] = ls
	if session.State() == domain.SessionInProgress &&
		session.QuestionStateAt(session.CurrentIndex) == domain.QuestionUnanswered {
		ls.mu.Lock()
		s.armTimerLocked(ls)
		ls.mu.Unlock()
	}
	return ls, nil
}

// replaceLive swaps in a fresh runtime session, keeping any subscribers from
// the previous one so an open connection keeps receiving pushes after a
// restart-by-start.
func (s *SessionService) replaceLive(profile string, session domain.QuizSession) *liveSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	subscribers := make(map[chan SessionView]struct{})
	if old, ok := s.live[profile]; ok {
		old.mu.Lock()
		s.disarmTimerLocked(old)
		subscribers, old.subscribers = old.subscribers, subscribers
		old.mu.Unlock()
	}
	ls := &liveSession{
		profile:     profile,
		session:     session,
		subscribers: subscribers,
	}
	s.live[profile] = ls
	return ls
}

// armTimerLocked restarts the countdown for the current question. The sequence
// counter makes a stale expiry a no-op, so a timer can never fire into a
// question that has since been locked or left.
func (s *SessionService) armTimerLocked(ls *liveSession) {
	ls.timerSeq++
	if ls.timer != nil {
		ls.timer.Stop()
		ls.timer = nil
	}
	if s.timerDur <= 0 {
		return
	}
	seq := ls.timerSeq
	ls.deadline = s.now().Add(s.timerDur)
	ls.timer = time.AfterFunc(s.timerDur, func() {
		s.timerExpired(ls, seq)
	})
}

func (s *SessionService) disarmTimerLocked(ls *liveSession) {
	ls.timerSeq++
	if ls.timer != nil {
		ls.timer.Stop()
		ls.timer = nil
	}
	ls.deadline = time.Time{}
}

func (s *SessionService) timerExpired(ls *liveSession, seq int) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	if ls.timerSeq != seq {
		return
	}
	view, err := s.lockLocked(context.Background(), ls, true)
	if err != nil {
		return
	}
	s.broadcastLocked(ls, view)
}

func (s *SessionService) broadcastLocked(ls *liveSession, view SessionView) {
	for ch := range ls.subscribers {
		select {
		case ch <- view:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- view
		}
	}
}

func (s *SessionService) viewLocked(_ context.Context, ls *liveSession) SessionView {
	view := SessionView{
		State:    ls.session.State(),
		Source:   ls.session.Source,
		Settings: ls.session.Settings,
		Index:    ls.session.CurrentIndex,
		Total:    len(ls.session.Questions),
		Score:    ls.session.Score,
		Answers:  ls.session.Answers,
	}
	idx := ls.session.CurrentIndex
	if idx >= 0 && idx < len(ls.session.Questions) {
		q := ls.session.Questions[idx]
		qv := &QuestionView{
			ID:         q.ID,
			Text:       q.Text,
			Options:    q.Options,
			Category:   q.Category,
			Difficulty: q.Difficulty,
			State:      ls.session.QuestionStateAt(idx),
			Selection:  ls.selection,
		}
		if qv.State == domain.QuestionUnanswered && ls.selection != "" {
			qv.State = domain.QuestionSelected
		}
		if qv.State == domain.QuestionLocked || qv.State == domain.QuestionSkipped {
			qv.Outcome = ls.session.Answers[idx]
		} else if !ls.deadline.IsZero() {
			if remaining := ls.deadline.Sub(s.now()); remaining > 0 {
				qv.RemainingSeconds = int(remaining.Round(time.Second) / time.Second)
			}
		}
		view.Question = qv
	}
	return view
}

func containsOption(options []string, option string) bool {
	for _, o := range options {
		if o == option {
			return true
		}
	}
	return false
}
