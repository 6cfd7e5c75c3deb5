package api

import (
	"time"

	"github.com/mr-tron/base58"

	"github.com/pushchain/typechain-client/ledgerClient/accountsync"
	"github.com/pushchain/typechain-client/ledgerClient/codec"
	"github.com/pushchain/typechain-client/ledgerClient/store"
)

// QueryResponse represents the standard query response format
type QueryResponse struct {
	Data        interface{} `json:"data"`
	LastFetched time.Time   `json:"last_fetched"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// AccountView is a cached account snapshot. Data is the base58 account data
// exactly as the ledger returned it.
type AccountView struct {
	Address   string       `json:"address"`
	Kind      string       `json:"kind"`
	State     string       `json:"state"`
	Stale     bool         `json:"stale"`
	Slot      uint64       `json:"slot"`
	FetchedAt time.Time    `json:"fetched_at"`
	Record    codec.Record `json:"record,omitempty"`
	Data      string       `json:"data,omitempty"`
}

// TransactionView is a journal record.
type TransactionView struct {
	OperationID string        `json:"operation_id"`
	Operation   string        `json:"operation"`
	Signature   string        `json:"signature,omitempty"`
	Payer       string        `json:"payer"`
	Addresses   []string      `json:"addresses"`
	Instruction string        `json:"instruction"`
	Decoded     codec.Request `json:"decoded,omitempty"`
	Status      string        `json:"status"`
	Reason      string        `json:"reason,omitempty"`
	Slot        uint64        `json:"slot,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// NewAccountView renders a snapshot for output.
func NewAccountView(snap *accountsync.Snapshot) AccountView {
	view := AccountView{
		Address:   snap.Address.String(),
		Kind:      string(snap.Kind),
		State:     string(snap.State),
		Stale:     snap.Stale,
		Slot:      snap.Slot,
		FetchedAt: snap.FetchedAt,
		Record:    snap.Record,
	}
	if len(snap.Data) > 0 {
		view.Data = base58.Encode(snap.Data)
	}
	return view
}

// NewTransactionView renders a journal record for output.
func NewTransactionView(rec store.TransactionRecord) TransactionView {
	view := TransactionView{
		OperationID: rec.OperationID,
		Operation:   rec.Operation,
		Signature:   rec.Signature,
		Payer:       rec.Payer,
		Addresses:   rec.AddressList(),
		Instruction: base58.Encode(rec.Instruction),
		Status:      rec.Status,
		Reason:      rec.Reason,
		Slot:        rec.Slot,
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}
	if req, err := codec.DecodeInstruction(rec.Instruction); err == nil {
		view.Decoded = req
	}
	return view
}
