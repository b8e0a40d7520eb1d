package capture

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// ErrConnectionFailed is the terminal outcome of an exhausted connection supervisor.
var ErrConnectionFailed = errors.New("connection failed after retries")

// SupervisorConfig bounds the live-call reconnect loop.
type SupervisorConfig struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Logger         zerolog.Logger
}

// Supervisor retries a connection function with exponential backoff up to a
// hard ceiling, then reports ConnectionFailed instead of retrying silently.
type Supervisor struct {
	cfg    SupervisorConfig
	logger zerolog.Logger
}

// NewSupervisor constructs a Supervisor with sane defaults.
func NewSupervisor(cfg SupervisorConfig) *Supervisor {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 15 * time.Second
	}

	return &Supervisor{
		cfg:    cfg,
		logger: cfg.Logger.With().Str("component", "capture_supervisor").Logger(),
	}
}

// Connect runs dial until it succeeds, the attempt ceiling is hit, or the
// context ends. The ceiling surfaces as ErrConnectionFailed wrapping the
// last dial error.
func (s *Supervisor) Connect(ctx context.Context, dial func(ctx context.Context) error) error {
	backoff := s.cfg.InitialBackoff

	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = dial(ctx)
		if lastErr == nil {
			return nil
		}

		s.logger.Warn().Err(lastErr).Int("attempt", attempt).Msg("connection attempt failed")

		if attempt == s.cfg.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > s.cfg.MaxBackoff {
			backoff = s.cfg.MaxBackoff
		}
	}

	return errors.Join(ErrConnectionFailed, lastErr)
}
