package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options parameterise the GraphQL fetch client.
type Options struct {
	Endpoint    string
	AuthToken   string
	ProfileID   string
	MaxRetries  int
	BackoffBase time.Duration
	Timeout     time.Duration
	UserAgent   string
}

// Client performs GraphQL requests against the upstream API with bounded
// retry and exponential backoff. Stateless across calls.
type Client struct {
	opts   Options
	logger zerolog.Logger
	client *http.Client
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewClient constructs a fetch client.
func NewClient(opts Options, logger zerolog.Logger) *Client {
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 3
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = time.Second
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		opts:   opts,
		logger: logger.With().Str("component", "fetch_client").Logger(),
		client: &http.Client{Timeout: timeout},
		sleep:  sleepCtx,
	}
}

type requestEnvelope struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type responseEnvelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Do executes one GraphQL request, decoding the data payload into out.
// Failed attempts are retried up to MaxRetries with a backoff of
// BackoffBase << attempt between them; the final attempt's error is
// surfaced to the caller. A successful response with empty data is a
// valid result, not a failure. Decode errors are never retried.
func (c *Client) Do(ctx context.Context, query string, variables map[string]any, out any) error {
	var lastErr error
	for attempt := 0; attempt < c.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := c.sleep(ctx, c.opts.BackoffBase<<(attempt-1)); err != nil {
				return err
			}
		}

		err := c.doOnce(ctx, query, variables, out)
		if err == nil {
			return nil
		}
		lastErr = err

		if !retryable(err) {
			return err
		}
		c.logger.Warn().Err(err).Int("attempt", attempt+1).Msg("request attempt failed")
	}
	return lastErr
}

func (c *Client) doOnce(ctx context.Context, query string, variables map[string]any, out any) error {
	body, err := json.Marshal(requestEnvelope{Query: query, Variables: variables})
	if err != nil {
		return &DecodeError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.Endpoint, bytes.NewReader(body))
	if err != nil {
		return &NetworkError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(c.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}
	if c.opts.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.opts.AuthToken)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &UpstreamError{Status: resp.StatusCode, Messages: upstreamMessages(payload)}
	}

	var envelope responseEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return &DecodeError{Err: err}
	}

	if len(envelope.Errors) > 0 {
		messages := make([]string, 0, len(envelope.Errors))
		for _, e := range envelope.Errors {
			messages = append(messages, e.Message)
		}
		return &UpstreamError{Status: resp.StatusCode, Messages: messages}
	}

	if out == nil || len(envelope.Data) == 0 || bytes.Equal(envelope.Data, []byte("null")) {
		return nil
	}

	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return &DecodeError{Err: err}
	}
	return nil
}

func upstreamMessages(payload []byte) []string {
	var envelope responseEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil || len(envelope.Errors) == 0 {
		if trimmed := strings.TrimSpace(string(payload)); trimmed != "" {
			return []string{trimmed}
		}
		return nil
	}
	messages := make([]string, 0, len(envelope.Errors))
	for _, e := range envelope.Errors {
		messages = append(messages, e.Message)
	}
	return messages
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var _ FeedFetcher = (*Client)(nil)
var _ TokenFetcher = (*Client)(nil)
var _ ProfileFetcher = (*Client)(nil)
