package core

import (
	"github.com/pushchain/typechain-client/ledgerClient/store"
)

// Journal persists the lifecycle of every submitted operation.
type Journal interface {
	Record(rec *store.TransactionRecord) error
	UpdateStatus(operationID, status, reason string, slot uint64) error
	BySignature(signature string) (*store.TransactionRecord, error)
}
