package cleanup

import (
	"context"
	"time"

	"draftdesk/internal/domain"
	"draftdesk/internal/infra"
)

// ImageStore is the slice of the asset store the sweeper needs.
type ImageStore interface {
	Remove(ctx context.Context, keys []string) error
}

// Sweeper removes uploaded photos past the retention window. Files go first
// so a crash between the two steps leaves rows behind for the next sweep
// rather than orphaned files.
type Sweeper struct {
	images    domain.JobImageRepository
	store     ImageStore
	retention time.Duration
	logger    infra.Logger
}

func NewSweeper(images domain.JobImageRepository, store ImageStore, retention time.Duration, logger infra.Logger) *Sweeper {
	return &Sweeper{images: images, store: store, retention: retention, logger: logger}
}

// SweepOnce runs a single cleanup pass and reports how many rows it removed.
func (s *Sweeper) SweepOnce(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().Add(-s.retention)

	old, err := s.images.ListOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if len(old) == 0 {
		return 0, nil
	}

	keys := make([]string, 0, len(old))
	for _, img := range old {
		keys = append(keys, img.StoragePath)
	}
	if err := s.store.Remove(ctx, keys); err != nil {
		s.logger.Warn().Err(err).Msg("sweeper: some files could not be removed")
	}

	removed, err := s.images.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	s.logger.Info().Int64("removed", removed).Time("cutoff", cutoff).Msg("sweeper: pass complete")
	return removed, nil
}

// Run sweeps on the given interval until the context is cancelled. One pass
// runs immediately on start.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) error {
	if _, err := s.SweepOnce(ctx); err != nil {
		s.logger.Error().Err(err).Msg("sweeper: pass failed")
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil {
				s.logger.Error().Err(err).Msg("sweeper: pass failed")
			}
		}
	}
}
