package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/habitauth/internal/auth/store"
)

// HousekeepingService periodically purges refresh records and reset tokens
// that can no longer be used.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration
	// Retention keeps revoked refresh records this long past their expiry.
	// Records that are live, or revoked but unexpired, are never purged.
	Retention time.Duration
	Now       func() time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a housekeeping service. A non-positive
// interval defaults to 1 hour and a non-positive retention to 30 days.
func NewHousekeepingService(s store.Store, logger *slog.Logger, interval, retention time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = time.Hour
	}
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}

	return &HousekeepingService{
		Store:     s,
		Logger:    logger,
		Interval:  interval,
		Retention: retention,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start runs cleanup immediately and then on every tick. It does not block.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval, "retention", s.Retention)
}

// Stop blocks until any in-progress cleanup has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.cleanup(context.Background())

	for {
		select {
		case <-ticker.C:
			s.cleanup(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// cleanup runs each purge independently; one failing does not stop the others.
func (s *HousekeepingService) cleanup(ctx context.Context) {
	now := time.Now().UTC()
	if s.Now != nil {
		now = s.Now()
	}

	if n, err := s.Store.RefreshTokens().DeleteRefreshTokensBefore(ctx, now.Add(-s.Retention)); err != nil {
		s.Logger.Error("failed to purge refresh tokens", "error", err)
	} else {
		s.Logger.Debug("purged refresh tokens", "deleted", n)
	}

	if n, err := s.Store.PasswordResets().DeletePasswordResetsBefore(ctx, now); err != nil {
		s.Logger.Error("failed to purge password resets", "error", err)
	} else {
		s.Logger.Debug("purged password resets", "deleted", n)
	}
}
