package nlu

import (
	"alcyxob/workout-journal/internal/domain"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultModel   = "deepseek-chat"
	defaultTimeout = 60 * time.Second
	maxRetries     = 2
)

// ClientConfig configures an OpenAI-compatible chat-completions backend.
type ClientConfig struct {
	Endpoint string // base URL, e.g. https://api.deepseek.com/v1
	APIKey   string
	Model    string
	Timeout  time.Duration
	// RetryDelay is the base backoff between attempts; doubled on every retry.
	RetryDelay time.Duration
}

// Client implements Parser over HTTP.
type Client struct {
	cfg        ClientConfig
	httpClient *http.Client
	catalog    CatalogSource
	logger     *slog.Logger
}

var _ Parser = (*Client)(nil)

// NewClient creates a parser client. catalog may be nil.
func NewClient(cfg ClientConfig, catalog CatalogSource, logger *slog.Logger) *Client {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 2 * time.Second
	}
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		catalog:    catalog,
		logger:     logger.With("component", "nlu"),
	}
}

// Parse reads a new workout from text. Any id the backend invents is dropped; resolution
// is the catalog's job.
func (c *Client) Parse(ctx context.Context, text string, currentDate time.Time) (*domain.ParsedWorkout, error) {
	var hints []domain.ExerciseForNLU
	if c.catalog != nil {
		var err error
		hints, err = c.catalog.ListForNLU(ctx)
		if err != nil {
			// The prompt works without hints.
			c.logger.Warn("catalog hints unavailable", "error", err)
		}
	}

	start := time.Now()
	content, err := c.complete(ctx, buildParseMessages(text, currentDate.Format(domain.DateLayout), hints))
	if err != nil {
		return nil, err
	}
	p, err := DecodeWorkout([]byte(content))
	if err != nil {
		c.logger.Warn("unusable parse output", "error", err)
		return nil, err
	}
	for i := range p.Exercises {
		p.Exercises[i].MappedExerciseID = nil
	}
	c.logger.Info("workout parsed", "exercises", len(p.Exercises), "duration_ms", time.Since(start).Milliseconds())
	return p, nil
}

// ParseEdit reads a change request. Only ids that already appear in the current workout
// survive; everything else goes back through resolution.
func (c *Client) ParseEdit(ctx context.Context, text string, currentDate time.Time, currentWorkoutJSON string) (*domain.EditDelta, error) {
	start := time.Now()
	content, err := c.complete(ctx, buildEditMessages(text, currentDate.Format(domain.DateLayout), currentWorkoutJSON))
	if err != nil {
		return nil, err
	}
	d, err := DecodeEdit([]byte(content))
	if err != nil {
		c.logger.Warn("unusable edit output", "error", err)
		return nil, err
	}
	KeepKnownIDs(d, currentWorkoutJSON)
	c.logger.Info("edit parsed", "kind", d.Kind, "exercises", len(d.ExerciseList()), "duration_ms", time.Since(start).Milliseconds())
	return d, nil
}

// ParseDate reads the day a phrase such as "вчера" refers to. The backend answers with today
// when the phrase names no day.
func (c *Client) ParseDate(ctx context.Context, text string, currentDate time.Time) (time.Time, error) {
	content, err := c.complete(ctx, buildDateMessages(text, currentDate.Format(domain.DateLayout)))
	if err != nil {
		return time.Time{}, err
	}
	day, err := DecodeDate([]byte(content))
	if err != nil {
		c.logger.Warn("unusable date output", "error", err)
		return time.Time{}, err
	}
	c.logger.Info("date parsed", "date", day.Format(domain.DateLayout))
	return day, nil
}

// KeepKnownIDs clears every mapped id in d that is neither RawExerciseID nor an exerciseId of
// the snapshot in currentWorkoutJSON.
func KeepKnownIDs(d *domain.EditDelta, currentWorkoutJSON string) {
	known := map[string]struct{}{domain.RawExerciseID: {}}
	var snap WorkoutSnapshot
	if err := json.Unmarshal([]byte(currentWorkoutJSON), &snap); err == nil {
		for _, e := range snap.Exercises {
			if e.ExerciseID != nil {
				known[*e.ExerciseID] = struct{}{}
			}
		}
	}
	list := d.ExerciseList()
	for i := range list {
		id := list[i].MappedExerciseID
		if id == nil {
			continue
		}
		if _, ok := known[*id]; !ok {
			list[i].MappedExerciseID = nil
		}
	}
}

// --- Wire types ---

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	ResponseFormat responseFormat `json:"response_format"`
	Temperature    float64        `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Refusal string `json:"refusal,omitempty"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// retryableError marks failures worth another attempt.
type retryableError struct{ err error }

func (e retryableError) Error() string { return e.err.Error() }
func (e retryableError) Unwrap() error { return e.err }

func (c *Client) complete(ctx context.Context, messages []chatMessage) (string, error) {
	if c.cfg.Endpoint == "" {
		return "", parseErr("backend endpoint not configured", nil)
	}
	body, err := json.Marshal(chatRequest{
		Model:          c.cfg.Model,
		Messages:       messages,
		ResponseFormat: responseFormat{Type: "json_object"},
		Temperature:    0.1,
	})
	if err != nil {
		return "", parseErr("encode request", err)
	}

	var content string
	err = withRetry(ctx, c.logger, c.cfg.RetryDelay, func() error {
		var err error
		content, err = c.doRequest(ctx, body)
		return err
	})
	if err != nil {
		return "", parseErr("backend request failed", err)
	}
	return content, nil
}

// withRetry runs fn until it succeeds, fails with a non-retryable error or maxRetries is
// spent. The delay doubles after every attempt.
func withRetry(ctx context.Context, logger *slog.Logger, delay time.Duration, fn func() error) error {
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		var re retryableError
		if !errors.As(err, &re) || attempt >= maxRetries {
			return err
		}
		logger.Warn("backend request failed, retrying", "attempt", attempt+1, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
}

func (c *Client) doRequest(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", err
		}
		return "", retryableError{err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", retryableError{err}
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return "", retryableError{fmt.Errorf("backend returned status %d", resp.StatusCode)}
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		if out.Error != nil {
			return "", fmt.Errorf("backend returned status %d: %s", resp.StatusCode, out.Error.Message)
		}
		return "", fmt.Errorf("backend returned status %d", resp.StatusCode)
	}
	if len(out.Choices) == 0 {
		return "", errors.New("empty response")
	}
	msg := out.Choices[0].Message
	if msg.Refusal != "" {
		return "", fmt.Errorf("refused: %s", msg.Refusal)
	}
	if strings.TrimSpace(msg.Content) == "" {
		return "", errors.New("empty response")
	}
	return msg.Content, nil
}
