package reporting

import (
	"bytes"
	"context"
	"encoding/json"
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

// SavePath is the collector route reports are posted to.
const SavePath = "/save_script"

// HTTPConfig configures the HTTP reporter.
type HTTPConfig struct {
	// BaseURL is the collector address, e.g. http://localhost:8000.
	BaseURL string
	// Timeout is the HTTP request timeout.
	Timeout time.Duration
	// MaxRetries is the maximum number of attempts.
	MaxRetries int
	// RetryDelay is the initial delay between retries.
	RetryDelay time.Duration
	// CircuitBreakerThreshold is failures before opening circuit.
	CircuitBreakerThreshold int
	// CircuitBreakerTimeout is how long circuit stays open.
	CircuitBreakerTimeout time.Duration
	// Secret signs payloads when set.
	Secret string
	// UserAgent is the User-Agent header value.
	UserAgent string
}

// DefaultHTTPConfig returns sensible default configuration.
func DefaultHTTPConfig() HTTPConfig {
	return HTTPConfig{
		BaseURL:                 "http://localhost:8000",
		Timeout:                 10 * time.Second,
		MaxRetries:              3,
		RetryDelay:              500 * time.Millisecond,
		CircuitBreakerThreshold: 5,
		CircuitBreakerTimeout:   30 * time.Second,
		UserAgent:               "domguard/1.0",
	}
}

// wireReport is the collector's payload shape.
type wireReport struct {
	Prompt    string `json:"prompt"`
	Code      string `json:"code"`
	Source    string `json:"source"`
	Success   bool   `json:"success"`
	Timestamp string `json:"timestamp"`
	URL       string `json:"url"`
	Action    string `json:"action,omitempty"`
	CycleID   string `json:"cycle_id,omitempty"`
}

type saveResponse struct {
	Message string `json:"message"`
	ID      int64  `json:"id"`
	Error   string `json:"error"`
}

// HTTPReporter posts reports to a remote collector.
type HTTPReporter struct {
	config   HTTPConfig
	endpoint string
	client   *http.Client
	signer   *Signer
	breaker  circuitbreaker.CircuitBreaker[int64]
	retrier  retry.Retry[int64]
	now      func() time.Time
}

var _ dispatch.Reporter = (*HTTPReporter)(nil)

// NewHTTPReporter creates a new HTTP reporter.
func NewHTTPReporter(config HTTPConfig) (*HTTPReporter, error) {
	defaults := DefaultHTTPConfig()
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
	if config.UserAgent == "" {
		config.UserAgent = defaults.UserAgent
	}

	base, err := url.Parse(config.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEndpoint, config.BaseURL)
	}

	r := &HTTPReporter{
		config:   config,
		endpoint: strings.TrimRight(base.String(), "/") + SavePath,
		client:   &http.Client{Timeout: config.Timeout},
		now:      time.Now,
		retrier: retry.New[int64](retry.Config{
			MaxAttempts:   config.MaxRetries,
			InitialDelay:  config.RetryDelay,
			BackoffPolicy: retry.BackoffExponential,
			Multiplier:    2.0,
			// Only transport and 5xx failures are retried
			NonRetryableErrors: []error{ErrEndpointRejected},
		}),
	}
	if config.Secret != "" {
		r.signer = NewSigner(config.Secret)
	}

	threshold := config.CircuitBreakerThreshold
	r.breaker = circuitbreaker.New[int64](circuitbreaker.Config{
		MaxRequests: 1,
		Interval:    config.CircuitBreakerTimeout,
		Timeout:     config.CircuitBreakerTimeout,
		ReadyToTrip: func(counts circuitbreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(threshold) // #nosec G115 -- threshold is positive
		},
	})

	return r, nil
}

// Report posts the report and returns once the collector accepted it.
func (r *HTTPReporter) Report(ctx context.Context, report dispatch.Report) error {
	_, err := r.Save(ctx, report)
	return err
}

// Save posts the report and returns the collector's record id.
func (r *HTTPReporter) Save(ctx context.Context, report dispatch.Report) (int64, error) {
	payload, err := json.Marshal(wireReport{
		Prompt:    report.Command,
		Code:      report.Code,
		Source:    report.Source.String(),
		Success:   report.Success,
		Timestamp: report.Timestamp.UTC().Format(time.RFC3339Nano),
		URL:       report.TargetURL,
		Action:    string(report.ActionID),
		CycleID:   report.CycleID,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to serialize report: %w", err)
	}

	return r.breaker.Execute(ctx, func(ctx context.Context) (int64, error) {
		return r.retrier.Do(ctx, func(ctx context.Context) (int64, error) {
			return r.post(ctx, payload)
		})
	})
}

func (r *HTTPReporter) post(ctx context.Context, payload []byte) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", r.config.UserAgent)
	if r.signer != nil {
		for key, value := range r.signer.Headers(payload, r.now()) {
			req.Header.Set(key, value)
		}
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrEndpointUnavailable, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= 500 {
		return 0, fmt.Errorf("%w: server error %d: %s", ErrEndpointUnavailable, resp.StatusCode, string(body))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("%w: status %d: %s", ErrEndpointRejected, resp.StatusCode, string(body))
	}

	// The collector reports storage failures in a 200 body.
	var saved saveResponse
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &saved); err != nil {
			return 0, fmt.Errorf("%w: malformed response: %v", ErrEndpointRejected, err)
		}
	}
	if saved.Error != "" {
		return 0, fmt.Errorf("%w: %s", ErrEndpointRejected, saved.Error)
	}
	return saved.ID, nil
}

// BreakerState returns the collector circuit breaker state.
func (r *HTTPReporter) BreakerState() string {
	return r.breaker.State().String()
}
