package db

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pushchain/typechain-client/ledgerClient/config"
)

// JournalCleaner periodically prunes terminal journal records
type JournalCleaner struct {
	journal         *Journal
	logger          zerolog.Logger
	stopCh          chan struct{}
	stopOnce        sync.Once
	cleanupInterval time.Duration
	retentionPeriod time.Duration
}

// NewJournalCleaner creates a new journal cleaner
func NewJournalCleaner(journal *Journal, cfg *config.Config, logger zerolog.Logger) *JournalCleaner {
	return &JournalCleaner{
		journal:         journal,
		cleanupInterval: time.Duration(cfg.JournalCleanupIntervalSeconds) * time.Second,
		retentionPeriod: time.Duration(cfg.JournalRetentionSeconds) * time.Second,
		logger:          logger.With().Str("component", "journal_cleaner").Logger(),
		stopCh:          make(chan struct{}),
	}
}

// Start begins the periodic cleanup process
func (jc *JournalCleaner) Start(ctx context.Context) error {
	jc.logger.Info().
		Dur("cleanup_interval", jc.cleanupInterval).
		Dur("retention_period", jc.retentionPeriod).
		Msg("starting journal cleaner")

	// Don't fail startup on cleanup error, just log it
	if _, err := jc.performCleanup(); err != nil {
		jc.logger.Error().Err(err).Msg("failed to perform initial cleanup")
	}

	ticker := time.NewTicker(jc.cleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				jc.logger.Info().Msg("context cancelled, stopping journal cleaner")
				return
			case <-jc.stopCh:
				jc.logger.Info().Msg("stop signal received, stopping journal cleaner")
				return
			case <-ticker.C:
				if _, err := jc.performCleanup(); err != nil {
					jc.logger.Error().Err(err).Msg("failed to perform scheduled cleanup")
				}
			}
		}
	}()

	return nil
}

// Stop gracefully stops the journal cleaner
func (jc *JournalCleaner) Stop() {
	jc.stopOnce.Do(func() {
		jc.logger.Info().Msg("stopping journal cleaner")
		close(jc.stopCh)
	})
}

func (jc *JournalCleaner) performCleanup() (int64, error) {
	start := time.Now()

	deleted, err := jc.journal.DeleteOldTerminalTransactions(jc.retentionPeriod)
	if err != nil {
		return 0, err
	}

	if deleted > 0 {
		jc.logger.Info().
			Int64("deleted_count", deleted).
			Dur("duration", time.Since(start)).
			Msg("journal cleanup completed")
		jc.checkpointWAL()
	} else {
		jc.logger.Debug().
			Dur("duration", time.Since(start)).
			Msg("journal cleanup completed - no records to delete")
	}
	return deleted, nil
}

// checkpointWAL truncates the WAL file after deletions
func (jc *JournalCleaner) checkpointWAL() {
	if err := jc.journal.DB().Client().Exec("PRAGMA wal_checkpoint(TRUNCATE)").Error; err != nil {
		jc.logger.Warn().Err(err).Msg("failed to checkpoint WAL")
		return
	}
	jc.logger.Debug().Msg("WAL checkpoint completed")
}
