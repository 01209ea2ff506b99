// Package sweeper periodically removes expired portal state from the store.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Store is the subset of the store the sweeper needs.
type Store interface {
	DeleteExpiredSessions(ctx context.Context) (int64, error)
	DeleteStaleOTPChallenges(ctx context.Context, before time.Time) (int64, error)
}

// Config holds sweeper configuration.
type Config struct {
	Interval  time.Duration
	OTPWindow time.Duration // OTP challenges older than this are removed
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{Interval: 10 * time.Minute, OTPWindow: time.Hour}
}

// Loop runs the sweep on a ticker.
type Loop struct {
	store    Store
	config   Config
	logger   *slog.Logger
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
	now      func() time.Time
}

// New creates a sweeper loop.
func New(st Store, cfg Config, logger *slog.Logger) *Loop {
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.OTPWindow <= 0 {
		cfg.OTPWindow = def.OTPWindow
	}
	return &Loop{
		store:  st,
		config: cfg,
		logger: logger.With("component", "sweeper"),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
		now:    time.Now,
	}
}

// Start runs the loop. Blocks until ctx is cancelled or Stop is called.
func (l *Loop) Start(ctx context.Context) error {
	l.logger.Info("sweeper started", "interval", l.config.Interval)
	defer close(l.doneCh)

	ticker := time.NewTicker(l.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("sweeper stopping (context cancelled)")
			return ctx.Err()
		case <-l.stopCh:
			l.logger.Info("sweeper stopping (stop called)")
			return nil
		case <-ticker.C:
			if err := l.Tick(ctx); err != nil {
				l.logger.Error("sweep error", "error", err)
			}
		}
	}
}

// Stop signals the loop to exit and waits for the current sweep to finish.
// It must only be called after Start.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.stopCh) })
	<-l.doneCh
}

// Tick runs a single sweep.
func (l *Loop) Tick(ctx context.Context) error {
	sessions, err := l.store.DeleteExpiredSessions(ctx)
	if err != nil {
		return fmt.Errorf("expired sessions: %w", err)
	}
	challenges, err := l.store.DeleteStaleOTPChallenges(ctx, l.now().Add(-l.config.OTPWindow))
	if err != nil {
		return fmt.Errorf("stale otp challenges: %w", err)
	}
	if sessions > 0 || challenges > 0 {
		l.logger.Info("sweep", "sessions_deleted", sessions, "otp_challenges_deleted", challenges)
	}
	return nil
}
