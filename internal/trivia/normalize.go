package trivia

import (
	"context"
	"fmt"
	"html"
	"math/rand"
	"net/url"

	"github.com/google/uuid"

	"solo-quiz-service/internal/domain"
)

// Normalizer turns raw API records into uniform domain questions: text fields
// decoded, options shuffled so the correct answer's position is unpredictable,
// and a fresh unique ID per question. One instance is shared by every session,
// so it holds no unsynchronized state.
type Normalizer struct {
	newID func() string
}

func NewNormalizer() *Normalizer {
	return &Normalizer{newID: uuid.NewString}
}

func (n *Normalizer) Normalize(raw []RawQuestion) ([]domain.Question, error) {
	questions := make([]domain.Question, 0, len(raw))
	for _, r := range raw {
		q, err := n.normalizeOne(r)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, nil
}

func (n *Normalizer) normalizeOne(r RawQuestion) (domain.Question, error) {
	text, err := decodeText(r.Question)
	if err != nil {
		return domain.Question{}, err
	}
	correct, err := decodeText(r.CorrectAnswer)
	if err != nil {
		return domain.Question{}, err
	}
	if text == "" || correct == "" {
		return domain.Question{}, fmt.Errorf("%w: empty question or answer", domain.ErrInvalidPayload)
	}
	if len(r.IncorrectAnswers) != 3 {
		return domain.Question{}, fmt.Errorf("%w: expected 3 incorrect answers, got %d", domain.ErrInvalidPayload, len(r.IncorrectAnswers))
	}

	options := make([]string, 0, 4)
	seen := map[string]bool{correct: true}
	for _, inc := range r.IncorrectAnswers {
		decoded, err := decodeText(inc)
		if err != nil {
			return domain.Question{}, err
		}
		if seen[decoded] {
			return domain.Question{}, fmt.Errorf("%w: duplicate option %q", domain.ErrInvalidPayload, decoded)
		}
		seen[decoded] = true
		options = append(options, decoded)
	}
	options = append(options, correct)
	n.shuffle(options)

	category, err := decodeText(r.Category)
	if err != nil {
		return domain.Question{}, err
	}

	return domain.Question{
		ID:            n.newID(),
		Text:          text,
		Options:       options,
		CorrectOption: correct,
		Category:      category,
		Difficulty:    domain.Difficulty(r.Difficulty),
	}, nil
}

// shuffle applies an unbiased Fisher-Yates pass. The locked top-level source
// keeps concurrent normalizations safe.
func (n *Normalizer) shuffle(options []string) {
	rand.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})
}

// decodeText undoes the url3986 percent encoding, then any residual HTML
// entities the API leaks through.
func decodeText(s string) (string, error) {
	decoded, err := url.PathUnescape(s)
	if err != nil {
		return "", fmt.Errorf("%w: undecodable text %q", domain.ErrInvalidPayload, s)
	}
	return html.UnescapeString(decoded), nil
}

// Source adapts a raw fetcher plus normalization into the question source the
// session controller consumes.
type Source struct {
	fetcher RawFetcher
	norm    *Normalizer
}

func NewSource(fetcher RawFetcher) *Source {
	return &Source{fetcher: fetcher, norm: NewNormalizer()}
}

func (s *Source) Fetch(ctx context.Context, amount int, difficulty domain.Difficulty) ([]domain.Question, error) {
	raw, err := s.fetcher.FetchRaw(ctx, amount, difficulty)
	if err != nil {
		return nil, err
	}
	return s.norm.Normalize(raw)
}
