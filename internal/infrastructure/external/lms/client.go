// Package lms implements the ClassPulse LMS API client.
package lms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/classpulse/insight-hub/internal/domain/shared"
	"github.com/classpulse/insight-hub/pkg/circuitbreaker"
	"github.com/classpulse/insight-hub/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// ClientConfig contains configuration for the LMS API client.
type ClientConfig struct {
	// BaseURL is the LMS API base URL
	BaseURL string

	// APIKey is the API key for authentication
	APIKey string

	// Timeout is the HTTP request timeout
	Timeout time.Duration

	// RateLimiterConfig for API rate limiting
	RateLimiterConfig RateLimiterConfig

	// Retry overrides; zero values keep the LMS defaults
	MaxRetries     int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration

	// Circuit breaker overrides; zero values keep the LMS defaults
	BreakerFailureThreshold int
	BreakerTimeout          time.Duration
	BreakerHalfOpenMax      int

	// Logger for structured logging
	Logger *slog.Logger

	// Debug enables debug logging
	Debug bool
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(baseURL string) ClientConfig {
	return ClientConfig{
		BaseURL:           baseURL,
		Timeout:           30 * time.Second,
		RateLimiterConfig: DefaultRateLimiterConfig(),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client is the ClassPulse LMS API client.
type Client struct {
	config         ClientConfig
	httpClient     *http.Client
	logger         *slog.Logger
	rateLimiter    *RateLimiter
	circuitBreaker *circuitbreaker.CircuitBreaker
	retrier        *retry.Retrier
}

// NewClient creates a new LMS API client.
func NewClient(config ClientConfig) *Client {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	logger := config.Logger
	breaker := circuitbreaker.LMSAPIBreaker(
		func(name string, from, to circuitbreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name, "from", from.String(), "to", to.String())
		},
		circuitbreaker.WithFailureThreshold(config.BreakerFailureThreshold),
		circuitbreaker.WithTimeout(config.BreakerTimeout),
		circuitbreaker.WithMaxHalfOpenRequests(config.BreakerHalfOpenMax),
	)

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger:         logger,
		rateLimiter:    NewRateLimiter(config.RateLimiterConfig),
		circuitBreaker: breaker,
		retrier: retry.LMSAPIRetrier(
			retry.WithMaxAttempts(config.MaxRetries),
			retry.WithInitialDelay(config.RetryBaseDelay),
			retry.WithMaxDelay(config.RetryMaxDelay),
		),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// GetStudentProfile fetches a single student profile by ID.
func (c *Client) GetStudentProfile(ctx context.Context, studentID string) (*StudentProfileDTO, error) {
	path := fmt.Sprintf("/students/%s", url.PathEscape(studentID))

	var response APIResponse[StudentProfileDTO]
	if err := c.doRequest(ctx, http.MethodGet, path, &response); err != nil {
		return nil, fmt.Errorf("get student profile %s: %w", studentID, err)
	}

	if !response.Success {
		return nil, fmt.Errorf("%w: %s", shared.ErrLMSAPIInvalidResponse, response.Error)
	}

	return &response.Data, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ATTEMPT OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// GetAttemptHistory fetches attempt history with optional filters.
func (c *Client) GetAttemptHistory(ctx context.Context, req AttemptHistoryRequestDTO) ([]AttemptDTO, *Meta, error) {
	params := url.Values{}
	if req.AssignmentID != "" {
		params.Set("assignment_id", req.AssignmentID)
	}
	if req.Subject != "" {
		params.Set("subject", req.Subject)
	}
	if req.Since != nil {
		params.Set("since", req.Since.Format(time.RFC3339))
	}
	if req.Page > 0 {
		params.Set("page", strconv.Itoa(req.Page))
	}
	if req.PerPage > 0 {
		params.Set("per_page", strconv.Itoa(req.PerPage))
	}

	path := fmt.Sprintf("/students/%s/attempts", url.PathEscape(req.StudentID))
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var response APIResponse[[]AttemptDTO]
	if err := c.doRequest(ctx, http.MethodGet, path, &response); err != nil {
		return nil, nil, fmt.Errorf("get attempt history: %w", err)
	}

	if !response.Success {
		return nil, nil, fmt.Errorf("%w: %s", shared.ErrLMSAPIInvalidResponse, response.Error)
	}

	return response.Data, response.Meta, nil
}

// GetAllAttempts fetches the full attempt history for a student, handling pagination.
func (c *Client) GetAllAttempts(ctx context.Context, studentID string) ([]AttemptDTO, error) {
	var allAttempts []AttemptDTO
	page := 1
	perPage := 100

	for {
		attempts, meta, err := c.GetAttemptHistory(ctx, AttemptHistoryRequestDTO{
			StudentID: studentID,
			Page:      page,
			PerPage:   perPage,
		})
		if err != nil {
			return nil, fmt.Errorf("get all attempts page %d: %w", page, err)
		}

		allAttempts = append(allAttempts, attempts...)

		if len(attempts) < perPage || (meta != nil && page >= meta.TotalPages) {
			break
		}
		page++
	}

	return allAttempts, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HTTP REQUEST HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// doRequest performs an HTTP request with rate limiting, circuit breaking, and retries.
func (c *Client) doRequest(ctx context.Context, method, path string, result interface{}) error {
	return c.circuitBreaker.Execute(ctx, func(ctx context.Context) error {
		return c.retrier.Do(ctx, func(ctx context.Context) error {
			// Wait for rate limiter before every attempt
			if err := c.rateLimiter.Allow(ctx); err != nil {
				var rateLimitErr *RateLimitError
				if errors.As(err, &rateLimitErr) {
					return retry.Retryable(shared.ErrLMSAPIRateLimited)
				}
				return err
			}

			err := c.doSingleRequest(ctx, method, path, result)
			if err == nil {
				return nil
			}

			var rateLimitErr *RateLimitError
			if errors.As(err, &rateLimitErr) {
				c.rateLimiter.RecordRateLimitHit(rateLimitErr.RetryAfter)
				return retry.Retryable(shared.ErrLMSAPIRateLimited)
			}

			if isRetryable(err) {
				return retry.Retryable(err)
			}
			return retry.Permanent(err)
		})
	})
}

// doSingleRequest performs a single HTTP request.
func (c *Client) doSingleRequest(ctx context.Context, method, path string, result interface{}) error {
	fullURL := c.config.BaseURL + path

	req, err := http.NewRequestWithContext(ctx, method, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	if c.config.Debug {
		c.logger.Debug("lms api request", "method", method, "path", path)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return shared.ErrLMSAPITimeout
		}
		return fmt.Errorf("%w: %v", shared.ErrLMSAPIUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	// Handle rate limiting
	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := 60 * time.Second
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if seconds, err := strconv.Atoi(ra); err == nil {
				retryAfter = time.Duration(seconds) * time.Second
			}
		}
		return &RateLimitError{
			RetryAfter: retryAfter,
			Message:    "rate limit exceeded",
		}
	}

	// Handle error responses
	if resp.StatusCode == http.StatusNotFound {
		return shared.ErrLMSStudentNotFound
	}
	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: status %d", shared.ErrLMSAPIUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		var apiErr APIErrorDTO
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Message != "" {
			return &apiErr
		}
		return fmt.Errorf("api error: status %d", resp.StatusCode)
	}

	// Unmarshal response
	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("%w: %v", shared.ErrLMSAPIInvalidResponse, err)
		}
	}

	return nil
}

// isRetryable checks if an error is worth retrying.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, shared.ErrLMSAPIUnavailable) || errors.Is(err, shared.ErrLMSAPITimeout) {
		return true
	}

	// Client-side errors and missing students are permanent
	return false
}

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH AND STATUS
// ══════════════════════════════════════════════════════════════════════════════

// IsHealthy checks if the LMS API is reachable.
func (c *Client) IsHealthy(ctx context.Context) bool {
	var response APIResponse[map[string]interface{}]
	err := c.doSingleRequest(ctx, http.MethodGet, "/health", &response)
	return err == nil && response.Success
}

// ClientStatus contains the current status of the client.
type ClientStatus struct {
	RateLimiter    RateLimiterStatus
	CircuitBreaker circuitbreaker.State
	IsHealthy      bool
}

// Status returns the current status of the client.
func (c *Client) Status(ctx context.Context) ClientStatus {
	return ClientStatus{
		RateLimiter:    c.rateLimiter.Status(),
		CircuitBreaker: c.circuitBreaker.State(),
		IsHealthy:      c.IsHealthy(ctx),
	}
}

// Reset resets the rate limiter and circuit breaker.
func (c *Client) Reset() {
	c.rateLimiter.Reset()
	c.circuitBreaker.Reset()
}
