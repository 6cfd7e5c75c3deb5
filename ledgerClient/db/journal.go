package db

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/pushchain/typechain-client/ledgerClient/store"
)

// ErrTransactionNotFound is returned when no journal record matches.
var ErrTransactionNotFound = errors.New("transaction not found")

// Journal records every submission the client makes.
type Journal struct {
	db *DB
}

// NewJournal creates a Journal on an opened (and migrated) database.
func NewJournal(database *DB) *Journal {
	return &Journal{db: database}
}

// DB returns the underlying database.
func (j *Journal) DB() *DB {
	return j.db
}

// Record inserts a new journal record.
func (j *Journal) Record(rec *store.TransactionRecord) error {
	if rec.OperationID == "" {
		return errors.New("operation id is required")
	}
	if rec.Status == "" {
		rec.Status = store.TxStatusSubmitted
	}
	if err := j.db.Client().Create(rec).Error; err != nil {
		return errors.Wrapf(err, "failed to record operation %s", rec.OperationID)
	}
	return nil
}

// UpdateStatus sets the status, reason and slot of the record with operationID.
func (j *Journal) UpdateStatus(operationID, status, reason string, slot uint64) error {
	res := j.db.Client().Model(&store.TransactionRecord{}).
		Where("operation_id = ?", operationID).
		Updates(map[string]any{"status": status, "reason": reason, "slot": slot})
	if res.Error != nil {
		return errors.Wrapf(res.Error, "failed to update operation %s", operationID)
	}
	if res.RowsAffected == 0 {
		return errors.Wrapf(ErrTransactionNotFound, "operation %s", operationID)
	}
	return nil
}

// BySignature returns the most recent record for a base58 signature.
func (j *Journal) BySignature(signature string) (*store.TransactionRecord, error) {
	var rec store.TransactionRecord
	err := j.db.Client().Where("signature = ?", signature).Order("id DESC").First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrapf(ErrTransactionNotFound, "signature %s", signature)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to query transaction")
	}
	return &rec, nil
}

// List returns the newest records first. An empty status matches every record;
// a non-positive limit returns all of them.
func (j *Journal) List(status string, limit int) ([]store.TransactionRecord, error) {
	q := j.db.Client().Order("id DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var recs []store.TransactionRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list transactions")
	}
	return recs, nil
}

// DeleteOldTerminalTransactions removes terminal records last updated before
// now - retention. Submitted and timed out records are kept regardless of age.
func (j *Journal) DeleteOldTerminalTransactions(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	res := j.db.Client().Unscoped().
		Where("status IN ? AND updated_at < ?", store.TerminalStatuses, cutoff).
		Delete(&store.TransactionRecord{})
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "failed to delete old transactions")
	}
	return res.RowsAffected, nil
}

// JoinAddresses renders addresses for TransactionRecord.Addresses.
func JoinAddresses(addrs []string) string {
	return strings.Join(addrs, ",")
}
