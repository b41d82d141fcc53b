// Package dune fetches LP position rows from the Dune Analytics API:
// execute the configured query, poll the execution until it reaches a
// terminal state, then download the result rows.
package dune

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const defaultBaseURL = "https://api.dune.com"

// Terminal execution states reported by the status endpoint.
const (
	stateCompleted = "QUERY_STATE_COMPLETED"
	stateFailed    = "QUERY_STATE_FAILED"
	stateCancelled = "QUERY_STATE_CANCELLED"
)

var (
	// ErrQueryFailed marks a terminal non-success execution state.
	ErrQueryFailed = errors.New("query execution failed")
	// ErrPollTimeout marks an execution still running after the poll budget.
	ErrPollTimeout = errors.New("query execution timed out")
)

// Config holds client settings.
type Config struct {
	APIKey          string
	QueryID         string
	BaseURL         string
	Timeout         time.Duration
	PollInterval    time.Duration
	MaxPollAttempts int
	MaxRetries      int
	RetryBackoff    time.Duration
}

// Client talks to the Dune API for a single query.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient builds a Client with its own HTTP client.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 10 * time.Second
	}
	if cfg.MaxPollAttempts <= 0 {
		cfg.MaxPollAttempts = 30
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// FetchRows runs the configured query end to end and returns the result rows
// as loosely-typed records. Any failure here means the run has no fresh data
// and must abort.
func (c *Client) FetchRows(ctx context.Context) ([]map[string]interface{}, error) {
	executionID, err := c.execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("execute query %s: %w", c.cfg.QueryID, err)
	}

	c.logger.Info("query execution started",
		zap.String("query_id", c.cfg.QueryID),
		zap.String("execution_id", executionID),
	)

	if err := c.waitForCompletion(ctx, executionID); err != nil {
		return nil, fmt.Errorf("execution %s: %w", executionID, err)
	}

	rows, err := c.results(ctx, executionID)
	if err != nil {
		return nil, fmt.Errorf("fetch results %s: %w", executionID, err)
	}

	return rows, nil
}

func (c *Client) execute(ctx context.Context) (string, error) {
	url := fmt.Sprintf("%s/api/v1/query/%s/execute", c.cfg.BaseURL, c.cfg.QueryID)

	var payload struct {
		ExecutionID string `json:"execution_id"`
	}

	err := withRetry(ctx, c.cfg.MaxRetries, c.cfg.RetryBackoff, func(ctx context.Context) error {
		err := c.doJSON(ctx, http.MethodPost, url, &payload)
		if err != nil {
			c.logger.Warn("execute request failed", zap.Error(err))
		}
		return err
	})
	if err != nil {
		return "", err
	}
	if payload.ExecutionID == "" {
		return "", fmt.Errorf("response has no execution_id")
	}
	return payload.ExecutionID, nil
}

func (c *Client) waitForCompletion(ctx context.Context, executionID string) error {
	url := fmt.Sprintf("%s/api/v1/execution/%s/status", c.cfg.BaseURL, executionID)

	for attempt := 0; attempt < c.cfg.MaxPollAttempts; attempt++ {
		var payload struct {
			State string `json:"state"`
		}
		if err := c.doJSON(ctx, http.MethodGet, url, &payload); err != nil {
			return fmt.Errorf("status check: %w", err)
		}

		c.logger.Debug("execution status", zap.String("state", payload.State), zap.Int("attempt", attempt+1))

		switch payload.State {
		case stateCompleted:
			return nil
		case stateFailed, stateCancelled:
			return fmt.Errorf("%w: %s", ErrQueryFailed, payload.State)
		}

		timer := time.NewTimer(c.cfg.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return fmt.Errorf("%w after %d attempts", ErrPollTimeout, c.cfg.MaxPollAttempts)
}

func (c *Client) results(ctx context.Context, executionID string) ([]map[string]interface{}, error) {
	url := fmt.Sprintf("%s/api/v1/execution/%s/results", c.cfg.BaseURL, executionID)

	var payload struct {
		Result struct {
			Rows []map[string]interface{} `json:"rows"`
		} `json:"result"`
	}

	err := withRetry(ctx, c.cfg.MaxRetries, c.cfg.RetryBackoff, func(ctx context.Context) error {
		err := c.doJSON(ctx, http.MethodGet, url, &payload)
		if err != nil {
			c.logger.Warn("results request failed", zap.Error(err))
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	return payload.Result.Rows, nil
}

// doJSON performs one authenticated request and decodes the body into out.
// Numbers are decoded as json.Number so large amounts keep their exact wire
// form through normalization.
func (c *Client) doJSON(ctx context.Context, method, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Dune-API-Key", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
