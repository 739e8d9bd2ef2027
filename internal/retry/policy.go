// Package retry provides exponential backoff for transport calls.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// Policy defines retry behavior for a call
type Policy struct {
	MaxRetries        int           // Maximum number of retry attempts (0 = no retries)
	InitialDelay      time.Duration // Initial delay before first retry
	MaxDelay          time.Duration // Maximum delay between retries
	BackoffMultiplier float64       // Multiplier for exponential backoff (e.g., 2.0)
}

// NetworkErrorPolicy returns a retry policy for transport failures (more retries)
func NetworkErrorPolicy() Policy {
	return Policy{
		MaxRetries:        5,
		InitialDelay:      500 * time.Millisecond,
		MaxDelay:          10 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// CalculateDelay calculates the next retry delay based on the current attempt number
func (p *Policy) CalculateDelay(retryCount int) time.Duration {
	if retryCount <= 0 {
		return p.InitialDelay
	}

	// initialDelay * (multiplier ^ retryCount)
	delay := float64(p.InitialDelay) * math.Pow(p.BackoffMultiplier, float64(retryCount))

	if time.Duration(delay) > p.MaxDelay {
		return p.MaxDelay
	}

	return time.Duration(delay)
}

// ShouldRetry determines if another attempt is allowed after retryCount retries
func (p *Policy) ShouldRetry(retryCount int) bool {
	return retryCount < p.MaxRetries
}

// Validate checks if the retry policy configuration is valid
func (p *Policy) Validate() error {
	if p.MaxRetries < 0 {
		return errors.New("MaxRetries must be non-negative")
	}
	if p.InitialDelay <= 0 {
		return errors.New("InitialDelay must be positive")
	}
	if p.MaxDelay <= 0 {
		return errors.New("MaxDelay must be positive")
	}
	if p.BackoffMultiplier <= 0 {
		return errors.New("BackoffMultiplier must be positive")
	}
	if p.InitialDelay > p.MaxDelay {
		return errors.New("InitialDelay cannot be greater than MaxDelay")
	}
	return nil
}

// Classifier reports whether err is worth another attempt
type Classifier func(err error) bool

// Do runs op until it succeeds, returns an error retriable rejects, or the
// policy is exhausted. It waits CalculateDelay between attempts and stops
// early when ctx ends.
func Do(ctx context.Context, p Policy, retriable Classifier, op func(ctx context.Context) error) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("invalid retry policy: %w", err)
	}

	for retryCount := 0; ; retryCount++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if retriable == nil || !retriable(err) || !p.ShouldRetry(retryCount) {
			return err
		}

		timer := time.NewTimer(p.CalculateDelay(retryCount))
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%w (last error: %v)", ctx.Err(), err)
		case <-timer.C:
		}
	}
}
