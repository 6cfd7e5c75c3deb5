// Package db provides a lightweight GORM-based SQLite wrapper for persisting
// the typechain client's transaction journal.
package db

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pushchain/typechain-client/ledgerClient/store"
)

const (
	// InMemorySQLiteDSN keeps the journal for the life of the process only.
	InMemorySQLiteDSN = ":memory:"

	// dbDirPermissions keeps the journal directory private to the node user (rwxr-x---).
	dbDirPermissions = 0o750
)

var (
	// gormConfig keeps GORM quiet; journal failures are logged by the callers.
	gormConfig = &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	// schemaModels are the journal tables.
	schemaModels = []any{
		&store.TransactionRecord{},
	}
)

// DB is the SQLite database holding the transaction journal. Wrap it with
// NewJournal to record and query submissions.
type DB struct {
	client *gorm.DB
}

// OpenFileDB opens the journal stored as dir/filename, creating both when missing.
// The CLI keeps it at <home>/databases/journal.db so pending signatures survive
// restarts and can be re-checked. migrateSchema creates or updates the journal table.
func OpenFileDB(dir, filename string, migrateSchema bool) (*DB, error) {
	dsn, err := prepareFilePath(dir, filename)
	if err != nil {
		return nil, errors.Wrap(err, "failed to prepare database path")
	}
	return openSQLite(dsn, migrateSchema)
}

// OpenInMemoryDB opens a journal that is lost when the process exits. Tests use it.
func OpenInMemoryDB(migrateSchema bool) (*DB, error) {
	return openSQLite(InMemorySQLiteDSN, migrateSchema)
}

// openSQLite opens dsn. File journals use WAL so the query server can list
// transactions while a submission is being recorded.
func openSQLite(dsn string, migrateSchema bool) (*DB, error) {
	// WAL and busy timeout only make sense for file databases
	if dsn != InMemorySQLiteDSN && !strings.Contains(dsn, "?") {
		dsn += "?_journal_mode=WAL&_busy_timeout=5000&cache=shared&mode=rwc"
	}

	db, err := gorm.Open(sqlite.Open(dsn), gormConfig)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open SQLite database")
	}

	if migrateSchema {
		if err := db.AutoMigrate(schemaModels...); err != nil {
			return nil, errors.Wrap(err, "failed to auto-migrate database schema")
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get underlying sql.DB")
	}

	// SQLite performs best with a single connection; an in-memory database
	// also exists only on that connection.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	return &DB{client: db}, nil
}

// Client returns the *gorm.DB the journal queries run on.
func (d *DB) Client() *gorm.DB {
	return d.client
}

// Close closes the journal database.
func (d *DB) Close() error {
	sqlDB, err := d.client.DB()
	if err != nil {
		return errors.Wrap(err, "failed to retrieve native sql.DB")
	}

	if err := sqlDB.Close(); err != nil {
		return errors.Wrap(err, "failed to close database connection")
	}

	return nil
}

// prepareFilePath creates the journal directory and returns the journal file path.
// An in-memory DSN passed as dir is returned unchanged.
func prepareFilePath(dir, filename string) (string, error) {
	if strings.Contains(dir, InMemorySQLiteDSN) {
		return dir, nil
	}

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, dbDirPermissions); err != nil {
			return "", errors.Wrapf(err, "failed to create directory: %s", dir)
		}
	} else if err != nil {
		return "", errors.Wrap(err, "error checking directory")
	}

	return fmt.Sprintf("%s/%s", dir, filename), nil
}
