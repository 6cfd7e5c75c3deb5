package cron

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pushchain/typechain-client/ledgerClient/accountsync"
	lerrors "github.com/pushchain/typechain-client/ledgerClient/errors"
)

// Refresher is the read side of core.Client used by the job.
type Refresher interface {
	Contests(ctx context.Context) ([]*accountsync.Snapshot, error)
	Player(ctx context.Context) (*accountsync.Snapshot, error)
}

// ContestRefreshJob keeps the contest index and the connected player's
// account fresh in the background.
type ContestRefreshJob struct {
	client         Refresher
	interval       time.Duration
	perSyncTimeout time.Duration
	initialBackoff time.Duration
	logger         zerolog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	forceCh chan struct{}
	wg      sync.WaitGroup
}

func NewContestRefreshJob(client Refresher, interval, perSyncTimeout time.Duration, logger zerolog.Logger) *ContestRefreshJob {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if perSyncTimeout <= 0 {
		perSyncTimeout = 8 * time.Second
	}
	return &ContestRefreshJob{
		client:         client,
		interval:       interval,
		perSyncTimeout: perSyncTimeout,
		initialBackoff: time.Second,
		logger:         logger.With().Str("component", "contest_refresh_cron").Logger(),
	}
}

// Start launches the background loop and returns immediately (non-blocking).
// Safe to call multiple times; subsequent calls are no-ops.
func (j *ContestRefreshJob) Start(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.running {
		return nil
	}
	if j.client == nil {
		return errors.New("cron: client must be non-nil")
	}

	j.stopCh = make(chan struct{})
	j.forceCh = make(chan struct{}, 1) // buffered so ForceSync won't block
	j.running = true
	j.wg.Add(1)

	go j.run(ctx)
	return nil
}

// Stop signals the loop to exit and waits for it to finish.
// Safe to call multiple times.
func (j *ContestRefreshJob) Stop() {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return
	}
	close(j.stopCh)
	j.running = false
	j.mu.Unlock()
	j.wg.Wait()
}

// ForceSync requests an immediate refresh. Requests made while one is
// already pending are coalesced.
func (j *ContestRefreshJob) ForceSync() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.running {
		return
	}
	select {
	case j.forceCh <- struct{}{}:
	default:
	}
}

func (j *ContestRefreshJob) run(parent context.Context) {
	defer j.wg.Done()

	// Initial sync with 3 attempts (1s, 2s, 4s)
	if err := j.initialSync(parent); err != nil {
		j.logger.Warn().Err(err).Msg("initial contest sync failed; continuing with empty cache")
	}

	t := time.NewTicker(j.interval)
	defer t.Stop()

	for {
		select {
		case <-parent.Done():
			j.logger.Info().Msg("contest refresh cron: context canceled; stopping")
			return
		case <-j.stopCh:
			j.logger.Info().Msg("contest refresh cron: stop requested; stopping")
			return
		case <-t.C:
			if err := j.syncOnce(parent); err != nil {
				j.logger.Warn().Err(err).Msg("periodic contest refresh failed; keeping previous cache")
			}
		case <-j.forceCh:
			if err := j.syncOnce(parent); err != nil {
				j.logger.Warn().Err(err).Msg("forced contest refresh failed; keeping previous cache")
			}
		}
	}
}

func (j *ContestRefreshJob) initialSync(ctx context.Context) error {
	backoff := j.initialBackoff
	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		if err := j.syncOnce(ctx); err != nil {
			lastErr = err
			j.logger.Warn().Int("attempt", attempt).Err(err).Msg("initial contest sync attempt failed")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-j.stopCh:
				return err
			case <-time.After(backoff):
				backoff *= 2
			}
			continue
		}
		j.logger.Info().Int("attempt", attempt).Msg("initial contest sync successful")
		return nil
	}
	return lastErr
}

func (j *ContestRefreshJob) syncOnce(parent context.Context) error {
	timeout := j.perSyncTimeout
	if dl, ok := parent.Deadline(); ok {
		if remain := time.Until(dl); remain > 0 && remain < timeout {
			timeout = remain
		}
	}
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	var contests int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		snaps, err := j.client.Contests(gctx)
		contests = len(snaps)
		return err
	})
	g.Go(func() error {
		_, err := j.client.Player(gctx)
		if errors.Is(err, lerrors.ErrNotConnected) {
			return nil
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	j.logger.Debug().Int("contests", contests).Msg("contest cache refreshed")
	return nil
}
