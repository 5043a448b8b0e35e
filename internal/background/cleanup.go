package background

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// ExpiredSessionCleaner deletes revocation rows for sessions that have expired anyway
type ExpiredSessionCleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// AttemptSweeper drops idle entries from the in-memory login attempt ledger
type AttemptSweeper interface {
	Sweep() int
}

// CleanupManager periodically prunes the session blacklist and the login guard
type CleanupManager struct {
	sessions ExpiredSessionCleaner
	guard    AttemptSweeper
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewCleanupManager creates a new cleanup manager. Either target may be nil.
func NewCleanupManager(
	sessions ExpiredSessionCleaner,
	guard AttemptSweeper,
	logger *slog.Logger,
	interval time.Duration,
) *CleanupManager {
	return &CleanupManager{
		sessions: sessions,
		guard:    guard,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start runs the cleanup once and then every interval until Stop or ctx is done
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	// Run immediately on startup
	cm.RunOnce(ctx)

	for {
		select {
		case <-ticker.C:
			cm.RunOnce(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

// RunOnce performs a single cleanup pass
func (cm *CleanupManager) RunOnce(ctx context.Context) {
	if cm.guard != nil {
		if removed := cm.guard.Sweep(); removed > 0 {
			cm.logger.Debug("login guard swept", slog.Int("entries_removed", removed))
		}
	}

	if cm.sessions == nil {
		return
	}

	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	rowsDeleted, err := cm.sessions.CleanupExpired(cleanupCtx)
	if err != nil {
		cm.logger.Error("failed to cleanup expired sessions", slog.Any("error", err))
		return
	}

	if rowsDeleted > 0 {
		cm.logger.Info("expired session cleanup completed", slog.Int64("rows_deleted", rowsDeleted))
	}
}

// Stop signals the cleanup manager to stop. Safe to call more than once.
func (cm *CleanupManager) Stop() {
	cm.stopOnce.Do(func() {
		close(cm.stopCh)
	})
}
