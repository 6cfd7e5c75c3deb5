package cron

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pushchain/typechain-client/ledgerClient/accountsync"
	lerrors "github.com/pushchain/typechain-client/ledgerClient/errors"
)

type mockRefresher struct {
	mock.Mock
	contestCalls atomic.Int32
}

func (m *mockRefresher) Contests(ctx context.Context) ([]*accountsync.Snapshot, error) {
	m.contestCalls.Add(1)
	args := m.Called(ctx)
	snaps, _ := args.Get(0).([]*accountsync.Snapshot)
	return snaps, args.Error(1)
}

func (m *mockRefresher) Player(ctx context.Context) (*accountsync.Snapshot, error) {
	args := m.Called(ctx)
	snap, _ := args.Get(0).(*accountsync.Snapshot)
	return snap, args.Error(1)
}

func TestContestRefreshJob_StartRequiresClient(t *testing.T) {
	job := NewContestRefreshJob(nil, time.Second, time.Second, zerolog.Nop())
	err := job.Start(context.Background())
	assert.ErrorContains(t, err, "client must be non-nil")
}

func TestContestRefreshJob_SyncOnce(t *testing.T) {
	t.Run("not connected player is ignored", func(t *testing.T) {
		m := &mockRefresher{}
		m.On("Contests", mock.Anything).Return([]*accountsync.Snapshot{{}, {}}, nil)
		m.On("Player", mock.Anything).Return(nil, lerrors.NewNotConnectedError("player_address"))

		job := NewContestRefreshJob(m, time.Minute, time.Second, zerolog.Nop())
		require.NoError(t, job.syncOnce(context.Background()))
		m.AssertExpectations(t)
	})

	t.Run("contest failure is returned", func(t *testing.T) {
		m := &mockRefresher{}
		m.On("Contests", mock.Anything).Return(nil, errors.New("endpoint down"))
		m.On("Player", mock.Anything).Return(&accountsync.Snapshot{}, nil)

		job := NewContestRefreshJob(m, time.Minute, time.Second, zerolog.Nop())
		assert.ErrorContains(t, job.syncOnce(context.Background()), "endpoint down")
	})

	t.Run("player failure is returned", func(t *testing.T) {
		m := &mockRefresher{}
		m.On("Contests", mock.Anything).Return(nil, nil)
		m.On("Player", mock.Anything).Return(nil, lerrors.NewNetworkError("fetch_account", "timeout", nil))

		job := NewContestRefreshJob(m, time.Minute, time.Second, zerolog.Nop())
		err := job.syncOnce(context.Background())
		assert.True(t, errors.Is(err, lerrors.ErrNetwork))
	})
}

func TestContestRefreshJob_StartStopForce(t *testing.T) {
	m := &mockRefresher{}
	m.On("Contests", mock.Anything).Return(nil, nil)
	m.On("Player", mock.Anything).Return(&accountsync.Snapshot{}, nil)

	job := NewContestRefreshJob(m, time.Hour, time.Second, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, job.Start(ctx))
	require.NoError(t, job.Start(ctx))

	assert.Eventually(t, func() bool { return m.contestCalls.Load() >= 1 }, time.Second, 10*time.Millisecond)

	job.ForceSync()
	assert.Eventually(t, func() bool { return m.contestCalls.Load() >= 2 }, time.Second, 10*time.Millisecond)

	job.Stop()
	job.Stop()

	// no-op once stopped
	job.ForceSync()
}

func TestContestRefreshJob_InitialSyncRetries(t *testing.T) {
	m := &mockRefresher{}
	var mu sync.Mutex
	failures := 2
	m.On("Contests", mock.Anything).Return(nil, nil)
	m.On("Player", mock.Anything).Return(nil, nil)

	job := NewContestRefreshJob(&flakyRefresher{inner: m, fail: func() bool {
		mu.Lock()
		defer mu.Unlock()
		if failures > 0 {
			failures--
			return true
		}
		return false
	}}, time.Hour, time.Second, zerolog.Nop())
	job.initialBackoff = time.Millisecond

	require.NoError(t, job.initialSync(context.Background()))
	assert.Equal(t, int32(1), m.contestCalls.Load())
}

type flakyRefresher struct {
	inner *mockRefresher
	fail  func() bool
}

func (f *flakyRefresher) Contests(ctx context.Context) ([]*accountsync.Snapshot, error) {
	if f.fail() {
		return nil, errors.New("flaky")
	}
	return f.inner.Contests(ctx)
}

func (f *flakyRefresher) Player(ctx context.Context) (*accountsync.Snapshot, error) {
	return f.inner.Player(ctx)
}
