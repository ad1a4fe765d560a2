package domain

import "errors"

var (
	// ErrFetchFailed is returned when the remote trivia call cannot complete.
	ErrFetchFailed = errors.New("trivia fetch failed")
	// ErrInvalidPayload indicates the remote response was malformed or empty.
	ErrInvalidPayload = errors.New("invalid trivia payload")
	// ErrNoSession is returned when no usable progress record exists.
	ErrNoSession = errors.New("quiz session not found")
	// ErrSessionFinished indicates the session has already been completed.
	ErrSessionFinished = errors.New("quiz session already finished")
	// ErrQuestionLocked indicates the current question already has a committed answer.
	ErrQuestionLocked = errors.New("question already locked")
	// ErrNoSelection indicates a lock was requested with no option selected.
	ErrNoSelection = errors.New("no option selected")
	// ErrNotLocked indicates an advance was requested before the question was resolved.
	ErrNotLocked = errors.New("question not locked or skipped")
	// ErrUnknownOption indicates a selected option is not part of the question.
	ErrUnknownOption = errors.New("option not part of question")
	// ErrInvalidAmount indicates a requested question count outside [5,10].
	ErrInvalidAmount = errors.New("question amount out of range")
)
