package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/loykin/mailrelay/internal/common"
)

// Config holds configuration for retried operations
type Config struct {
	MaxRetries      int           // Maximum number of retry attempts
	InitialDelay    time.Duration // Initial delay before first retry
	MaxDelay        time.Duration // Maximum delay between retries
	BackoffFactor   float64       // Multiplier for exponential backoff
	RetryableErrors []string      // Error substrings that trigger retries
	// Retryable, when set, is consulted before RetryableErrors.
	Retryable func(error) bool
}

// DefaultRetryConfig returns the default retry configuration for outbound calls
func DefaultRetryConfig() *Config {
	return &Config{
		MaxRetries:    3,
		InitialDelay:  200 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
		RetryableErrors: []string{
			"connection refused",
			"connection reset",
			"timeout",
			"temporary failure",
			"no such host",
			"eof",
			"broken pipe",
			"database is locked",
		},
	}
}

type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as not retryable regardless of its text.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func (rc *Config) isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var p *permanentError
	if errors.As(err, &p) {
		return false
	}
	if rc.Retryable != nil && rc.Retryable(err) {
		return true
	}
	errStr := strings.ToLower(err.Error())
	for _, retryableErr := range rc.RetryableErrors {
		if strings.Contains(errStr, retryableErr) {
			return true
		}
	}
	return false
}

func (rc *Config) calculateDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return rc.InitialDelay
	}
	factor := rc.BackoffFactor
	if factor < 1 {
		factor = 1
	}
	delay := time.Duration(float64(rc.InitialDelay) * math.Pow(factor, float64(attempt)))
	if rc.MaxDelay > 0 && delay > rc.MaxDelay {
		delay = rc.MaxDelay
	}
	return delay
}

// Operation is a unit of work that can be retried
type Operation func(ctx context.Context) error

// Do runs op until it succeeds, returns a non-retryable error, or attempts
// are exhausted. The wait between attempts honors ctx.
func Do(ctx context.Context, config *Config, name string, op Operation) error {
	if config == nil {
		config = DefaultRetryConfig()
	}
	logger := common.GetLogger().WithComponent("retry")

	var lastErr error
	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		err := op(ctx)
		if err == nil {
			if attempt > 0 {
				logger.Info("operation succeeded after retry", "operation", name, "attempt", attempt+1)
			}
			return nil
		}
		lastErr = err

		if attempt == config.MaxRetries {
			break
		}
		if !config.isRetryableError(err) {
			logger.Debug("operation failed with non-retryable error", "operation", name, "error", err, "attempt", attempt+1)
			return err
		}

		delay := config.calculateDelay(attempt)
		logger.Warn("operation failed, retrying",
			"operation", name,
			"error", err,
			"attempt", attempt+1,
			"max_attempts", config.MaxRetries+1,
			"retry_delay", delay)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s cancelled during retry: %w", name, ctx.Err())
		case <-timer.C:
		}
	}

	logger.Error("operation failed after all retry attempts", "operation", name, "error", lastErr, "attempts", config.MaxRetries+1)
	return fmt.Errorf("%s failed after %d attempts: %w", name, config.MaxRetries+1, lastErr)
}
