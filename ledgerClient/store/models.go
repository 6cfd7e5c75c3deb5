// Package store contains GORM-backed SQLite models used by the typechain client.
//
// Database Structure (database file: journal.db):
//
//	<home>/databases/
//	└── journal.db
//	    └── transactions
package store

import (
	"strings"

	"gorm.io/gorm"
)

// Transaction statuses. Submitted is the only non-terminal one.
const (
	TxStatusSubmitted = "submitted"
	TxStatusConfirmed = "confirmed"
	TxStatusRejected  = "rejected"
	TxStatusTimedOut  = "timed_out"
	TxStatusFailed    = "failed"
)

// TerminalStatuses lists the statuses the journal cleaner may prune.
var TerminalStatuses = []string{TxStatusConfirmed, TxStatusRejected, TxStatusFailed}

// TransactionRecord tracks one mutating operation submitted to the ledger.
type TransactionRecord struct {
	gorm.Model
	OperationID string `gorm:"uniqueIndex;not null"` // Client generated uuid
	Operation   string `gorm:"index;not null"`       // "initialize_player", "join_contest", ...
	Signature   string `gorm:"index"`                // Base58 signature (empty if signing failed)
	Payer       string // Fee payer identity
	Addresses   string // Comma separated addresses the instruction writes to
	Instruction []byte // Encoded instruction data
	Status      string `gorm:"index;not null"` // "submitted", "confirmed", "rejected", "timed_out", "failed"
	Reason      string `gorm:"type:text"`      // Ledger reason or local error message
	Slot        uint64 // Slot the transaction was processed in, when known
}

// TableName specifies the table name for TransactionRecord.
func (TransactionRecord) TableName() string {
	return "transactions"
}

// AddressList splits Addresses.
func (r *TransactionRecord) AddressList() []string {
	if r.Addresses == "" {
		return nil
	}
	return strings.Split(r.Addresses, ",")
}

// IsTerminal reports whether the record will not change without a re-check.
func (r *TransactionRecord) IsTerminal() bool {
	return r.Status != TxStatusSubmitted && r.Status != TxStatusTimedOut
}
