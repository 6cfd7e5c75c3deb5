package api

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/pushchain/typechain-client/ledgerClient/accountsync"
	"github.com/pushchain/typechain-client/ledgerClient/store"
)

// StateReader defines the cached state the API server exposes
type StateReader interface {
	Identity() (solana.PublicKey, bool)
	CachedPlayer() (*accountsync.Snapshot, bool)
	CachedContest(contest solana.PublicKey) (*accountsync.Snapshot, bool)
	CachedContests() []*accountsync.Snapshot
	ContestsUpdatedAt() time.Time
	// FetchError returns the error of the last failed fetch of address, or "".
	FetchError(address solana.PublicKey) string
}

// HealthChecker reports whether the ledger endpoint answers
type HealthChecker interface {
	IsHealthy(ctx context.Context) bool
}

// TransactionLister defines the journal queries the API server needs
type TransactionLister interface {
	List(status string, limit int) ([]store.TransactionRecord, error)
}
