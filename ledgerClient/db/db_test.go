package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pushchain/typechain-client/ledgerClient/constant"
	"github.com/pushchain/typechain-client/ledgerClient/store"
)

func TestDB_OpenModes(t *testing.T) {
	t.Run("in-memory alias", func(t *testing.T) {
		db, err := OpenInMemoryDB(true)
		require.NoError(t, err)
		require.NotNil(t, db)

		runSampleInsertSelectTest(t, db)
		assert.NoError(t, db.Close())
	})

	t.Run("in-memory direct", func(t *testing.T) {
		db, err := openSQLite(InMemorySQLiteDSN, true)
		require.NoError(t, err)
		require.NotNil(t, db)

		runSampleInsertSelectTest(t, db)
		assert.NoError(t, db.Close())
	})

	t.Run("file-based DB", func(t *testing.T) {
		dir := t.TempDir()

		db, err := OpenFileDB(dir, constant.JournalDBName, true)
		require.NoError(t, err)
		require.NotNil(t, db)

		assert.FileExists(t, filepath.Join(dir, constant.JournalDBName))

		runSampleInsertSelectTest(t, db)

		assert.NoError(t, db.Close())

		t.Run("close twice", func(t *testing.T) {
			assert.NoError(t, db.Close())
		})
	})

	t.Run("nested directory is created", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "data", "journal")

		db, err := OpenFileDB(dir, constant.JournalDBName, true)
		require.NoError(t, err)
		assert.DirExists(t, dir)
		assert.NoError(t, db.Close())
	})

	t.Run("pending signatures survive a restart", func(t *testing.T) {
		dir := t.TempDir()

		db, err := OpenFileDB(dir, constant.JournalDBName, true)
		require.NoError(t, err)
		require.NoError(t, NewJournal(db).Record(&store.TransactionRecord{
			OperationID: "op-pending",
			Operation:   "join_contest",
			Signature:   "sig-pending",
			Status:      store.TxStatusTimedOut,
		}))
		require.NoError(t, db.Close())

		db, err = OpenFileDB(dir, constant.JournalDBName, true)
		require.NoError(t, err)
		defer db.Close()
		rec, err := NewJournal(db).BySignature("sig-pending")
		require.NoError(t, err)
		assert.Equal(t, store.TxStatusTimedOut, rec.Status)
	})
}

func runSampleInsertSelectTest(t *testing.T, db *DB) {
	entry := store.TransactionRecord{
		OperationID: "op-1",
		Operation:   "initialize_player",
		Status:      store.TxStatusSubmitted,
	}

	err := db.Client().Create(&entry).Error
	require.NoError(t, err)

	var result store.TransactionRecord
	err = db.Client().First(&result).Error
	require.NoError(t, err)
	assert.Equal(t, "op-1", result.OperationID)
	assert.Equal(t, "initialize_player", result.Operation)
}
