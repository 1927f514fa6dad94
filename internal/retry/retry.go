package retry

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"
)

// Config describes an exponential backoff: Multiplier * 2^(attempt-1) * Unit,
// clamped to [MinDelay, MaxDelay].
type Config struct {
	MaxAttempts int
	Multiplier  float64
	MinDelay    time.Duration
	MaxDelay    time.Duration
	Unit        time.Duration

	// OnRetry is called before each wait. Optional.
	OnRetry func(attempt int, err error)
}

func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		Multiplier:  1,
		MinDelay:    4 * time.Second,
		MaxDelay:    10 * time.Second,
		Unit:        time.Second,
	}
}

// Backoff returns the wait after the given failed attempt (1-based).
func (c Config) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	unit := c.Unit
	if unit <= 0 {
		unit = time.Second
	}

	delay := time.Duration(c.Multiplier * math.Pow(2, float64(attempt-1)) * float64(unit))
	if delay < c.MinDelay {
		delay = c.MinDelay
	}
	if c.MaxDelay > 0 && delay > c.MaxDelay {
		delay = c.MaxDelay
	}
	return delay
}

// Do runs operation until it succeeds, MaxAttempts is reached, or ctx is done.
// The last error is wrapped on exhaustion.
func Do(ctx context.Context, config Config, logger *logrus.Logger, operation func(attempt int) error) error {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}

	var err error
	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			if err != nil {
				return fmt.Errorf("%w (last error: %v)", ctx.Err(), err)
			}
			return ctx.Err()
		default:
		}

		err = operation(attempt)
		if err == nil {
			return nil
		}

		if attempt == config.MaxAttempts {
			break
		}

		delay := config.Backoff(attempt)
		if logger != nil {
			logger.WithFields(logrus.Fields{
				"attempt": attempt,
				"delay":   delay,
				"error":   err.Error(),
			}).Warn("Retrying operation")
		}
		if config.OnRetry != nil {
			config.OnRetry(attempt, err)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w (last error: %v)", ctx.Err(), err)
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("operation failed after %d attempts: %w", config.MaxAttempts, err)
}
