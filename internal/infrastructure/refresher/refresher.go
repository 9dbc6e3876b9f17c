package refresher

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/ledgercal/internal/usecase"
)

// Refresher drives the snapshot source's fetch cadence: it refetches
// on a fixed interval so queries between cycles keep hitting one
// snapshot version. Derived structures are still built lazily; a
// refresh only makes a new version observable.
type Refresher struct {
	source   usecase.SnapshotSource
	logger   zerolog.Logger
	interval time.Duration
}

// Config for Refresher.
type Config struct {
	Source   usecase.SnapshotSource
	Logger   zerolog.Logger
	Interval time.Duration
}

// New creates a new Refresher.
func New(cfg Config) *Refresher {
	if cfg.Interval == 0 {
		cfg.Interval = time.Minute
	}
	return &Refresher{
		source:   cfg.Source,
		logger:   cfg.Logger,
		interval: cfg.Interval,
	}
}

// Start runs the refresh loop until the context is cancelled.
// Cancellation is the normal way to stop the loop, so it returns nil.
func (r *Refresher) Start(ctx context.Context) error {
	r.logger.Info().Dur("interval", r.interval).Msg("snapshot refresher started")

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("snapshot refresher shutting down")
			return nil
		case <-ticker.C:
			snap, err := r.source.Refresh(ctx)
			if err != nil {
				r.logger.Error().Err(err).Msg("snapshot refresh failed")
				continue
			}
			r.logger.Debug().Str("version", snap.Version).Msg("snapshot refreshed")
		}
	}
}
