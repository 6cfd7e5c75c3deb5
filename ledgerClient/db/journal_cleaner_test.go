package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pushchain/typechain-client/ledgerClient/config"
	"github.com/pushchain/typechain-client/ledgerClient/logger"
	"github.com/pushchain/typechain-client/ledgerClient/store"
)

func TestJournalCleaner(t *testing.T) {
	cfg := &config.Config{
		JournalCleanupIntervalSeconds: 1,
		JournalRetentionSeconds:       3600,
		LogLevel:                      0,
		LogFormat:                     "console",
	}
	log := logger.Init(*cfg)

	j := newTestJournal(t)
	client := j.DB().Client()

	oldConfirmed := &store.TransactionRecord{OperationID: "old", Operation: "submit_result", Status: store.TxStatusConfirmed}
	recentConfirmed := &store.TransactionRecord{OperationID: "recent", Operation: "submit_result", Status: store.TxStatusConfirmed}
	oldPending := &store.TransactionRecord{OperationID: "pending", Operation: "submit_result", Status: store.TxStatusSubmitted}

	require.NoError(t, j.Record(oldConfirmed))
	require.NoError(t, j.Record(recentConfirmed))
	require.NoError(t, j.Record(oldPending))

	oldTime := time.Now().Add(-25 * time.Hour)
	require.NoError(t, client.Model(oldConfirmed).Update("updated_at", oldTime).Error)
	require.NoError(t, client.Model(recentConfirmed).Update("updated_at", time.Now().Add(-30*time.Minute)).Error)
	require.NoError(t, client.Model(oldPending).Update("updated_at", oldTime).Error)

	t.Run("performCleanup", func(t *testing.T) {
		cleaner := NewJournalCleaner(j, cfg, log)
		deleted, err := cleaner.performCleanup()
		require.NoError(t, err)
		assert.Equal(t, int64(1), deleted)

		var count int64
		require.NoError(t, client.Model(&store.TransactionRecord{}).Count(&count).Error)
		assert.Equal(t, int64(2), count)
	})

	t.Run("start and stop", func(t *testing.T) {
		old := &store.TransactionRecord{OperationID: "old-2", Operation: "x", Status: store.TxStatusRejected}
		require.NoError(t, j.Record(old))
		require.NoError(t, client.Model(old).Update("updated_at", oldTime).Error)

		cleaner := NewJournalCleaner(j, cfg, log)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		require.NoError(t, cleaner.Start(ctx))

		// initial cleanup runs synchronously
		var count int64
		require.NoError(t, client.Model(&store.TransactionRecord{}).Count(&count).Error)
		assert.Equal(t, int64(2), count)

		cleaner.Stop()
		cleaner.Stop()
	})
}
