// Package generation fetches candidate code for a command from a remote
// code-generation service.
package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/retry"

	"github.com/felixgeelhaar/domguard/domain/dispatch"
)

// GeneratePath is the service route queried for code.
const GeneratePath = "/generate"

// Domain errors for generation.
var (
	// ErrGeneratorUnavailable indicates the service could not be reached or
	// answered with a server error.
	ErrGeneratorUnavailable = errors.New("generator unavailable")

	// ErrInvalidResponse indicates a response that carries no usable code.
	ErrInvalidResponse = errors.New("invalid generator response")
)

// Config configures the generation client.
type Config struct {
	// BaseURL is the service address, e.g. http://localhost:8000.
	BaseURL string `json:"base_url" yaml:"base_url"`
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
	// MaxRetries is the maximum number of attempts.
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
	// RetryDelay is the initial delay between retries.
	RetryDelay time.Duration `json:"retry_delay" yaml:"retry_delay"`
	// CircuitBreakerThreshold is failures before opening circuit.
	CircuitBreakerThreshold int `json:"circuit_breaker_threshold" yaml:"circuit_breaker_threshold"`
	// CircuitBreakerTimeout is how long circuit stays open.
	CircuitBreakerTimeout time.Duration `json:"circuit_breaker_timeout" yaml:"circuit_breaker_timeout"`
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:                 "http://localhost:8000",
		Timeout:                 30 * time.Second,
		MaxRetries:              2,
		RetryDelay:              500 * time.Millisecond,
		CircuitBreakerThreshold: 3,
		CircuitBreakerTimeout:   30 * time.Second,
	}
}

type generateResponse struct {
	Code      string `json:"code"`
	Source    string `json:"source"`
	Prompt    string `json:"prompt"`
	Timestamp string `json:"timestamp"`
}

// Client queries the generation service.
type Client struct {
	endpoint string
	client   *http.Client
	breaker  circuitbreaker.CircuitBreaker[dispatch.Generated]
	retrier  retry.Retry[dispatch.Generated]
}

var _ dispatch.Generator = (*Client)(nil)

// NewClient creates a generation client.
func NewClient(config Config) (*Client, error) {
	defaults := DefaultConfig()
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = defaults.MaxRetries
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = defaults.RetryDelay
	}
	if config.CircuitBreakerThreshold <= 0 {
		config.CircuitBreakerThreshold = defaults.CircuitBreakerThreshold
	}
	if config.CircuitBreakerTimeout <= 0 {
		config.CircuitBreakerTimeout = defaults.CircuitBreakerTimeout
	}

	base, err := url.Parse(config.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid generator url %q", config.BaseURL)
	}

	threshold := config.CircuitBreakerThreshold
	return &Client{
		endpoint: strings.TrimRight(base.String(), "/") + GeneratePath,
		client:   &http.Client{Timeout: config.Timeout},
		breaker: circuitbreaker.New[dispatch.Generated](circuitbreaker.Config{
			MaxRequests: 1,
			Interval:    config.CircuitBreakerTimeout,
			Timeout:     config.CircuitBreakerTimeout,
			ReadyToTrip: func(counts circuitbreaker.Counts) bool {
				return counts.ConsecutiveFailures >= uint32(threshold) // #nosec G115 -- threshold is positive
			},
		}),
		retrier: retry.New[dispatch.Generated](retry.Config{
			MaxAttempts:        config.MaxRetries,
			InitialDelay:       config.RetryDelay,
			BackoffPolicy:      retry.BackoffExponential,
			Multiplier:         2.0,
			NonRetryableErrors: []error{ErrInvalidResponse, context.Canceled},
		}),
	}, nil
}

// Generate returns candidate code for command with the service's claimed
// source label. The label is passed through unverified.
func (c *Client) Generate(ctx context.Context, command string) (dispatch.Generated, error) {
	return c.breaker.Execute(ctx, func(ctx context.Context) (dispatch.Generated, error) {
		return c.retrier.Do(ctx, func(ctx context.Context) (dispatch.Generated, error) {
			return c.fetch(ctx, command)
		})
	})
}

func (c *Client) fetch(ctx context.Context, command string) (dispatch.Generated, error) {
	u := c.endpoint + "?" + url.Values{"prompt": {command}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return dispatch.Generated{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return dispatch.Generated{}, fmt.Errorf("%w: %v", ErrGeneratorUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return dispatch.Generated{}, fmt.Errorf("%w: %v", ErrGeneratorUnavailable, err)
	}
	if resp.StatusCode >= 500 {
		return dispatch.Generated{}, fmt.Errorf("%w: status %d", ErrGeneratorUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return dispatch.Generated{}, fmt.Errorf("%w: status %d", ErrInvalidResponse, resp.StatusCode)
	}

	var gr generateResponse
	if err := json.Unmarshal(body, &gr); err != nil {
		return dispatch.Generated{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if strings.TrimSpace(gr.Code) == "" {
		return dispatch.Generated{}, fmt.Errorf("%w: empty code", ErrInvalidResponse)
	}
	return dispatch.Generated{Code: gr.Code, Source: gr.Source}, nil
}

// BreakerState returns the service circuit breaker state.
func (c *Client) BreakerState() string {
	return c.breaker.State().String()
}
