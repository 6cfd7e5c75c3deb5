// Package ledgertest provides an in-memory ledger that executes the typing
// program's instructions, for tests of components built on ledger.Endpoint.
package ledgertest

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/pushchain/typechain-client/ledgerClient/codec"
	"github.com/pushchain/typechain-client/ledgerClient/constant"
	lerrors "github.com/pushchain/typechain-client/ledgerClient/errors"
	"github.com/pushchain/typechain-client/ledgerClient/ledger"
)

const blockhashValidity = 150

// Ledger is a single-node, instantly finalizing ledger running the typing program.
type Ledger struct {
	mu sync.Mutex

	programID   solana.PublicKey
	accounts    map[solana.PublicKey]ledger.AccountInfo
	statuses    map[solana.Signature]*ledger.SignatureStatus
	withheld    map[solana.Signature]*ledger.SignatureStatus
	blockhashes map[solana.Hash]uint64
	height      uint64
	slot        uint64
	now         func() time.Time

	preflight    bool
	withhold     bool
	confirmAs    rpc.ConfirmationStatusType
	fetchErr     error
	sendErr      error
	statusErr    error
	rejectNext   string
	lostReply    error
	gate         chan struct{}
	sendStarted  chan struct{}
	sendCount    int
	fetchCount   int
	transactions []*solana.Transaction
}

var _ ledger.Endpoint = (*Ledger)(nil)

// New creates an empty ledger for programID with preflight checks enabled.
func New(programID solana.PublicKey) *Ledger {
	return &Ledger{
		programID:   programID,
		accounts:    make(map[solana.PublicKey]ledger.AccountInfo),
		statuses:    make(map[solana.Signature]*ledger.SignatureStatus),
		withheld:    make(map[solana.Signature]*ledger.SignatureStatus),
		blockhashes: make(map[solana.Hash]uint64),
		height:      1,
		slot:        1,
		now:         time.Now,
		preflight:   true,
		confirmAs:   rpc.ConfirmationStatusFinalized,
		sendStarted: make(chan struct{}, 64),
	}
}

// ProgramID returns the program the ledger executes.
func (l *Ledger) ProgramID() solana.PublicKey { return l.programID }

// SetClock replaces the ledger clock.
func (l *Ledger) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

// SetPreflight toggles endpoint-side simulation. When off, failing program
// instructions land and surface through their signature status.
func (l *Ledger) SetPreflight(on bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.preflight = on
}

// ConfirmAs sets the commitment level reported for landed transactions.
func (l *Ledger) ConfirmAs(level rpc.ConfirmationStatusType) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.confirmAs = level
}

// WithholdStatuses makes landed transactions invisible to status queries
// until ReleaseStatuses. State changes still apply.
func (l *Ledger) WithholdStatuses(on bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.withhold = on
}

// ReleaseStatuses publishes every withheld status.
func (l *Ledger) ReleaseStatuses() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for sig, st := range l.withheld {
		l.statuses[sig] = st
	}
	l.withheld = make(map[solana.Signature]*ledger.SignatureStatus)
}

// FailFetches makes account reads fail with err until cleared with nil.
func (l *Ledger) FailFetches(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fetchErr = err
}

// FailSends makes SendTransaction fail with err until cleared with nil.
func (l *Ledger) FailSends(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sendErr = err
}

// FailStatusQueries makes GetSignatureStatus fail with err until cleared with nil.
func (l *Ledger) FailStatusQueries(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.statusErr = err
}

// LoseNextReply makes the next SendTransaction apply the transaction and then
// fail with err, as when the endpoint's reply never arrives.
func (l *Ledger) LoseNextReply(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lostReply = err
}

// RejectNextSend makes the next SendTransaction a preflight rejection with reason.
func (l *Ledger) RejectNextSend(reason string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rejectNext = reason
}

// BlockSends holds every SendTransaction until the returned func is called.
func (l *Ledger) BlockSends() (release func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	gate := make(chan struct{})
	l.gate = gate
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			l.gate = nil
			l.mu.Unlock()
			close(gate)
		})
	}
}

// SendStarted receives one value per SendTransaction call as it begins.
func (l *Ledger) SendStarted() <-chan struct{} { return l.sendStarted }

// SendCount returns how many transactions were dispatched to the ledger.
func (l *Ledger) SendCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sendCount
}

// FetchCount returns how many account reads were served.
func (l *Ledger) FetchCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.fetchCount
}

// Transactions returns the transactions that landed, in order.
func (l *Ledger) Transactions() []*solana.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*solana.Transaction(nil), l.transactions...)
}

// PlayerAddress derives the player record address for owner.
func (l *Ledger) PlayerAddress(owner solana.PublicKey) solana.PublicKey {
	addr, _, err := solana.FindProgramAddress([][]byte{[]byte(constant.PlayerSeed), owner.Bytes()}, l.programID)
	if err != nil {
		panic(err)
	}
	return addr
}

// PutPlayer stores rec at the owner's player address.
func (l *Ledger) PutPlayer(rec *codec.PlayerRecord) solana.PublicKey {
	addr := l.PlayerAddress(rec.Owner)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.putLocked(addr, codec.EncodePlayer(rec))
	return addr
}

// PutContest stores rec at addr.
func (l *Ledger) PutContest(addr solana.PublicKey, rec *codec.ContestRecord) {
	data, err := codec.EncodeContest(rec)
	if err != nil {
		panic(err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.putLocked(addr, data)
}

// PutRaw stores arbitrary program-owned data at addr.
func (l *Ledger) PutRaw(addr solana.PublicKey, data []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.putLocked(addr, data)
}

// Player returns the decoded player record of owner.
func (l *Ledger) Player(owner solana.PublicKey) (*codec.PlayerRecord, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	acc, ok := l.accounts[l.PlayerAddress(owner)]
	if !ok {
		return nil, false
	}
	rec, err := codec.DecodePlayer(acc.Data)
	return rec, err == nil
}

// Contest returns the decoded contest record at addr.
func (l *Ledger) Contest(addr solana.PublicKey) (*codec.ContestRecord, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	acc, ok := l.accounts[addr]
	if !ok {
		return nil, false
	}
	rec, err := codec.DecodeContest(acc.Data)
	return rec, err == nil
}

func (l *Ledger) putLocked(addr solana.PublicKey, data []byte) {
	l.accounts[addr] = ledger.AccountInfo{
		Address:  addr,
		Owner:    l.programID,
		Lamports: 1_000_000,
		Data:     append([]byte(nil), data...),
		Slot:     l.slot,
	}
}

// GetAccountInfo implements ledger.Endpoint.
func (l *Ledger) GetAccountInfo(ctx context.Context, address solana.PublicKey) (*ledger.AccountInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, lerrors.NewNetworkError("get_account_info", "request cancelled", err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fetchCount++
	if l.fetchErr != nil {
		return nil, lerrors.NewNetworkError("get_account_info", "endpoint unavailable", l.fetchErr)
	}
	acc, ok := l.accounts[address]
	if !ok {
		return nil, ledger.ErrAccountNotFound
	}
	acc.Data = append([]byte(nil), acc.Data...)
	acc.Slot = l.slot
	return &acc, nil
}

// GetLatestFreshnessToken implements ledger.Endpoint.
func (l *Ledger) GetLatestFreshnessToken(ctx context.Context) (ledger.FreshnessToken, error) {
	if err := ctx.Err(); err != nil {
		return ledger.FreshnessToken{}, lerrors.NewNetworkError("get_latest_blockhash", "request cancelled", err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fetchErr != nil {
		return ledger.FreshnessToken{}, lerrors.NewNetworkError("get_latest_blockhash", "endpoint unavailable", l.fetchErr)
	}
	l.height++
	var seed [8]byte
	binary.LittleEndian.PutUint64(seed[:], l.height)
	hash := solana.Hash(sha256.Sum256(seed[:]))
	l.blockhashes[hash] = l.height + blockhashValidity
	return ledger.FreshnessToken{Blockhash: hash, LastValidBlockHeight: l.height + blockhashValidity}, nil
}

// SendTransaction implements ledger.Endpoint.
func (l *Ledger) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	select {
	case l.sendStarted <- struct{}{}:
	default:
	}

	l.mu.Lock()
	gate := l.gate
	l.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return solana.Signature{}, lerrors.NewNetworkError("send_transaction", "request cancelled", ctx.Err())
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.sendErr != nil {
		return solana.Signature{}, lerrors.NewNetworkError("send_transaction", "failed to dispatch transaction", l.sendErr)
	}
	if len(tx.Signatures) == 0 {
		return solana.Signature{}, fmt.Errorf("transaction has no signatures")
	}
	if l.rejectNext != "" {
		reason := l.rejectNext
		l.rejectNext = ""
		return solana.Signature{}, &ledger.RejectionError{Code: -32002, Message: reason}
	}
	if err := tx.VerifySignatures(); err != nil {
		return solana.Signature{}, &ledger.RejectionError{Code: -32003, Message: "Transaction signature verification failure"}
	}
	if _, ok := l.blockhashes[tx.Message.RecentBlockhash]; !ok {
		return solana.Signature{}, &ledger.RejectionError{Code: -32002, Message: "Transaction simulation failed: Blockhash not found"}
	}

	sig := tx.Signatures[0]
	staged := make(map[solana.PublicKey]ledger.AccountInfo)
	failedAt, ixErr := l.execute(tx, staged)
	if ixErr != nil && l.preflight {
		return solana.Signature{}, &ledger.RejectionError{
			Code:    -32002,
			Message: fmt.Sprintf("Transaction simulation failed: Error processing Instruction %d: %s", failedAt, ixErr.simulationText()),
		}
	}

	l.sendCount++
	l.slot++
	status := &ledger.SignatureStatus{Slot: l.slot, Commitment: l.confirmAs}
	if ixErr != nil {
		status.Err = ixErr.statusText(failedAt)
	} else {
		for addr, acc := range staged {
			acc.Slot = l.slot
			l.accounts[addr] = acc
		}
		l.transactions = append(l.transactions, tx)
	}

	if l.withhold {
		l.withheld[sig] = status
	} else {
		l.statuses[sig] = status
	}
	if l.lostReply != nil {
		err := l.lostReply
		l.lostReply = nil
		return solana.Signature{}, lerrors.NewNetworkError("send_transaction", "failed to dispatch transaction", err)
	}
	return sig, nil
}

// GetSignatureStatus implements ledger.Endpoint.
func (l *Ledger) GetSignatureStatus(ctx context.Context, sig solana.Signature) (*ledger.SignatureStatus, error) {
	if err := ctx.Err(); err != nil {
		return nil, lerrors.NewNetworkError("get_signature_statuses", "request cancelled", err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.statusErr != nil {
		return nil, lerrors.NewNetworkError("get_signature_statuses", "endpoint unavailable", l.statusErr)
	}
	st, ok := l.statuses[sig]
	if !ok {
		return nil, nil
	}
	cp := *st
	return &cp, nil
}

// GetProgramAccounts implements ledger.Endpoint.
func (l *Ledger) GetProgramAccounts(ctx context.Context, programID solana.PublicKey, dataSize uint64) ([]ledger.AccountInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, lerrors.NewNetworkError("get_program_accounts", "request cancelled", err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fetchCount++
	if l.fetchErr != nil {
		return nil, lerrors.NewNetworkError("get_program_accounts", "endpoint unavailable", l.fetchErr)
	}
	var out []ledger.AccountInfo
	for _, acc := range l.accounts {
		if acc.Owner.Equals(programID) && uint64(len(acc.Data)) == dataSize {
			acc.Data = append([]byte(nil), acc.Data...)
			out = append(out, acc)
		}
	}
	return out, nil
}
