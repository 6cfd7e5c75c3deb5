package ledger

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// ErrAccountNotFound is returned by GetAccountInfo when no account exists at the address.
var ErrAccountNotFound = errors.New("account not found")

// AccountInfo is the raw state of one ledger account.
type AccountInfo struct {
	Address  solana.PublicKey
	Owner    solana.PublicKey
	Lamports uint64
	Data     []byte
	Slot     uint64
}

// FreshnessToken binds a transaction to a recent ledger state.
// The ledger refuses the transaction once the block height passes LastValidBlockHeight.
type FreshnessToken struct {
	Blockhash            solana.Hash
	LastValidBlockHeight uint64
}

// SignatureStatus is the ledger's view of a dispatched transaction.
type SignatureStatus struct {
	Slot          uint64
	Confirmations *uint64
	Commitment    rpc.ConfirmationStatusType
	// Err is the ledger supplied failure, rendered verbatim. Empty on success.
	Err string
}

// Failed reports whether the ledger executed the transaction and it failed.
func (s *SignatureStatus) Failed() bool {
	return s.Err != ""
}

// Reached reports whether the status is at or beyond target.
func (s *SignatureStatus) Reached(target rpc.CommitmentType) bool {
	return commitmentRank(string(s.Commitment)) >= commitmentRank(string(target))
}

func commitmentRank(c string) int {
	switch c {
	case string(rpc.CommitmentProcessed):
		return 1
	case string(rpc.CommitmentConfirmed):
		return 2
	case string(rpc.CommitmentFinalized):
		return 3
	default:
		return 0
	}
}

// Endpoint is the subset of the ledger JSON-RPC surface the client depends on.
type Endpoint interface {
	// GetAccountInfo returns ErrAccountNotFound when the address holds no account.
	GetAccountInfo(ctx context.Context, address solana.PublicKey) (*AccountInfo, error)
	GetLatestFreshnessToken(ctx context.Context) (FreshnessToken, error)
	// SendTransaction dispatches exactly once. A *RejectionError means the
	// endpoint refused the transaction before it reached the ledger.
	SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
	// GetSignatureStatus returns nil when the ledger has no record of sig yet.
	GetSignatureStatus(ctx context.Context, sig solana.Signature) (*SignatureStatus, error)
	GetProgramAccounts(ctx context.Context, programID solana.PublicKey, dataSize uint64) ([]AccountInfo, error)
}

// RejectionError is a preflight refusal reported by the endpoint.
type RejectionError struct {
	Code    int
	Message string
	Logs    []string
}

func (e *RejectionError) Error() string {
	return e.Message
}
