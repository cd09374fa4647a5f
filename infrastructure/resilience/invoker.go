// Package resilience wraps executors with fortify bulkhead, timeout,
// circuit breaker and retry patterns.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/felixgeelhaar/fortify/bulkhead"
	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/retry"

	"github.com/felixgeelhaar/domguard/domain/action"
	"github.com/felixgeelhaar/domguard/domain/dispatch"
)

// Config configures the resilient invoker.
type Config struct {
	// MaxConcurrent limits concurrent invocations across all targets.
	MaxConcurrent int

	// CircuitBreakerThreshold is the number of consecutive failures
	// against one target before its circuit opens.
	CircuitBreakerThreshold int

	// CircuitBreakerTimeout is how long a circuit stays open.
	CircuitBreakerTimeout time.Duration

	// MaxCircuits caps the number of tracked targets. Closed circuits are
	// evicted first, oldest first.
	MaxCircuits int

	// RetryMaxAttempts is the maximum number of attempts per invocation.
	RetryMaxAttempts int

	// RetryInitialDelay is the initial delay between attempts.
	RetryInitialDelay time.Duration

	// RetryBackoffMultiplier is the exponential backoff multiplier.
	RetryBackoffMultiplier float64

	// Timeout bounds a single invocation including retries.
	Timeout time.Duration
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxConcurrent:           10,
		CircuitBreakerThreshold: 5,
		CircuitBreakerTimeout:   30 * time.Second,
		MaxCircuits:             256,
		RetryMaxAttempts:        3,
		RetryInitialDelay:       100 * time.Millisecond,
		RetryBackoffMultiplier:  2.0,
		Timeout:                 30 * time.Second,
	}
}

// nonRetryable are failures another attempt cannot fix.
var nonRetryable = []error{
	action.ErrUnknownAction,
	action.ErrNilTarget,
	dispatch.ErrTargetUnavailable,
	context.Canceled,
}

// Invoker decorates an executor. Actions are idempotent, so every
// invocation may be retried.
type Invoker struct {
	next      dispatch.Executor
	config    Config
	bulkhead  bulkhead.Bulkhead[struct{}]
	retry     retry.Retry[struct{}]
	breakers  map[string]circuitbreaker.CircuitBreaker[struct{}]
	order     []string
	mu        sync.RWMutex
	threshold uint32
}

// NewInvoker wraps next.
func NewInvoker(next dispatch.Executor, config Config) *Invoker {
	def := DefaultConfig()
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = def.MaxConcurrent
	}
	if config.CircuitBreakerThreshold <= 0 {
		config.CircuitBreakerThreshold = def.CircuitBreakerThreshold
	}
	if config.CircuitBreakerTimeout <= 0 {
		config.CircuitBreakerTimeout = def.CircuitBreakerTimeout
	}
	if config.MaxCircuits <= 0 {
		config.MaxCircuits = def.MaxCircuits
	}
	if config.RetryMaxAttempts <= 0 {
		config.RetryMaxAttempts = 1
	}
	if config.RetryBackoffMultiplier <= 0 {
		config.RetryBackoffMultiplier = def.RetryBackoffMultiplier
	}
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}

	return &Invoker{
		next:   next,
		config: config,
		bulkhead: bulkhead.New[struct{}](bulkhead.Config{
			MaxConcurrent: config.MaxConcurrent,
		}),
		retry: retry.New[struct{}](retry.Config{
			MaxAttempts:        config.RetryMaxAttempts,
			InitialDelay:       config.RetryInitialDelay,
			BackoffPolicy:      retry.BackoffExponential,
			Multiplier:         config.RetryBackoffMultiplier,
			NonRetryableErrors: nonRetryable,
		}),
		breakers:  make(map[string]circuitbreaker.CircuitBreaker[struct{}]),
		threshold: uint32(config.CircuitBreakerThreshold), // #nosec G115 -- positive, checked above
	}
}

// Invoke applies the action through the wrapped executor.
// Composition order: Bulkhead → Timeout → Circuit Breaker → Retry.
func (i *Invoker) Invoke(ctx context.Context, id action.ID, params action.Params, target string) error {
	breaker := i.breaker(target)

	_, err := i.bulkhead.Execute(ctx, func(ctx context.Context) (struct{}, error) {
		ctx, cancel := context.WithTimeout(ctx, i.config.Timeout)
		defer cancel()

		return breaker.Execute(ctx, func(ctx context.Context) (struct{}, error) {
			return i.retry.Do(ctx, func(ctx context.Context) (struct{}, error) {
				return struct{}{}, i.next.Invoke(ctx, id, params, target)
			})
		})
	})
	if err == nil {
		return nil
	}

	if errors.Is(err, action.ErrUnknownAction) ||
		errors.Is(err, dispatch.ErrExecutionFailed) ||
		errors.Is(err, dispatch.ErrTargetUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", dispatch.ErrExecutionFailed, err)
}

// CircuitState returns the circuit state for a target.
func (i *Invoker) CircuitState(target string) circuitbreaker.State {
	return i.breaker(target).State()
}

// Circuits returns the number of tracked circuits.
func (i *Invoker) Circuits() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.breakers)
}

// circuitKey groups targets that share a failure domain: a page URL by
// scheme and host, a file path by its cleaned form.
func circuitKey(target string) string {
	target = strings.TrimSpace(target)
	if u, err := url.Parse(target); err == nil && u.Scheme != "" && u.Host != "" {
		return strings.ToLower(u.Scheme + "://" + u.Host)
	}
	return filepath.Clean(target)
}

// breaker returns the circuit breaker for a target, creating one if needed.
func (i *Invoker) breaker(target string) circuitbreaker.CircuitBreaker[struct{}] {
	target = circuitKey(target)

	i.mu.RLock()
	b, ok := i.breakers[target]
	i.mu.RUnlock()
	if ok {
		return b
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if b, ok = i.breakers[target]; ok {
		return b
	}

	threshold := i.threshold
	b = circuitbreaker.New[struct{}](circuitbreaker.Config{
		MaxRequests: 1,
		Interval:    i.config.CircuitBreakerTimeout,
		Timeout:     i.config.CircuitBreakerTimeout,
		ReadyToTrip: func(counts circuitbreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
	})
	if len(i.breakers) >= i.config.MaxCircuits {
		i.evict()
	}
	i.breakers[target] = b
	i.order = append(i.order, target)
	return b
}

// evict drops the oldest closed circuit, or the oldest one when all are
// open. Callers hold i.mu.
func (i *Invoker) evict() {
	victim := 0
	for n, key := range i.order {
		if i.breakers[key].State().String() == "closed" {
			victim = n
			break
		}
	}
	delete(i.breakers, i.order[victim])
	i.order = slices.Delete(i.order, victim, victim+1)
}

var _ dispatch.Executor = (*Invoker)(nil)
