package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/calliehq/bramble/internal/domain"
	"github.com/calliehq/bramble/internal/telemetry"
)

// SweeperConfig holds session sweeper configuration.
type SweeperConfig struct {
	// Interval is how often expired sessions are swept.
	Interval time.Duration
}

// Sweeper periodically deletes expired sessions. Order and profile rows
// are never touched; an expired session only loses its bag and cached
// checkout form, which is exactly what session expiry means.
type Sweeper struct {
	config   SweeperConfig
	sessions domain.SessionStore
	metrics  *telemetry.Metrics
	logger   *slog.Logger
}

// NewSweeper creates a session sweeper.
func NewSweeper(sessions domain.SessionStore, config SweeperConfig, metrics *telemetry.Metrics, logger *slog.Logger) *Sweeper {
	if config.Interval == 0 {
		config.Interval = time.Hour
	}

	return &Sweeper{
		config:   config,
		sessions: sessions,
		metrics:  metrics,
		logger:   logger,
	}
}

// Start sweeps on the configured interval until the context is
// cancelled. One sweep runs immediately at startup so a long interval
// doesn't leave a restart-heavy deployment with stale rows.
func (s *Sweeper) Start(ctx context.Context) error {
	s.logger.Info("session sweeper starting", "interval", s.config.Interval)

	s.sweep(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("session sweeper shutting down")
			return ctx.Err()
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	deleted, err := s.sessions.DeleteExpired(ctx)
	if err != nil {
		s.logger.Error("failed to sweep expired sessions", "error", err)
		return
	}

	s.metrics.RecordSessionsSwept(deleted)
	if deleted > 0 {
		s.logger.Info("swept expired sessions", "deleted", deleted)
	}
}
