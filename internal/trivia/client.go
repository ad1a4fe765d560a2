package trivia

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"solo-quiz-service/internal/domain"
)

// DefaultBaseURL is the public Open Trivia DB endpoint.
const DefaultBaseURL = "https://opentdb.com/api.php"

// DefaultTimeout bounds a single fetch; there is no retry.
const DefaultTimeout = 8 * time.Second

// RawQuestion mirrors one record of the trivia API payload. Text fields arrive
// percent-encoded (encode=url3986).
type RawQuestion struct {
	Category         string   `json:"category"`
	Difficulty       string   `json:"difficulty"`
	Question         string   `json:"question"`
	CorrectAnswer    string   `json:"correct_answer"`
	IncorrectAnswers []string `json:"incorrect_answers"`
}

type apiResponse struct {
	ResponseCode int           `json:"response_code"`
	Results      []RawQuestion `json:"results"`
}

// RawFetcher produces raw trivia records for a batch request.
type RawFetcher interface {
	FetchRaw(ctx context.Context, amount int, difficulty domain.Difficulty) ([]RawQuestion, error)
}

// Client fetches multiple-choice question batches from the trivia API.
type Client struct {
	baseURL string
	httpc   *http.Client
	timeout time.Duration
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: baseURL,
		httpc:   &http.Client{},
		timeout: timeout,
	}
}

// FetchRaw issues a single GET for amount multiple-choice questions. The call
// is aborted after the client timeout. Failures map to domain.ErrFetchFailed
// (transport, timeout, non-2xx status) or domain.ErrInvalidPayload (bad body,
// non-success response code, empty results).
func (c *Client) FetchRaw(ctx context.Context, amount int, difficulty domain.Difficulty) ([]RawQuestion, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	query := url.Values{}
	query.Set("amount", strconv.Itoa(amount))
	query.Set("type", "multiple")
	query.Set("encode", "url3986")
	if difficulty != domain.DifficultyAny {
		query.Set("difficulty", string(difficulty))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", domain.ErrFetchFailed, err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: unexpected status %d", domain.ErrFetchFailed, resp.StatusCode)
	}

	var payload apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode body: %v", domain.ErrInvalidPayload, err)
	}
	if payload.ResponseCode != 0 {
		return nil, fmt.Errorf("%w: response code %d", domain.ErrInvalidPayload, payload.ResponseCode)
	}
	if len(payload.Results) == 0 {
		return nil, fmt.Errorf("%w: no results", domain.ErrInvalidPayload)
	}
	return payload.Results, nil
}
