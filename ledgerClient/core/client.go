// Package core sequences the typing program operations: precondition checks
// against ledger state, submission, confirmation and re-synchronization.
package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"

	"github.com/pushchain/typechain-client/ledgerClient/accountsync"
	"github.com/pushchain/typechain-client/ledgerClient/address"
	"github.com/pushchain/typechain-client/ledgerClient/cache"
	"github.com/pushchain/typechain-client/ledgerClient/codec"
	"github.com/pushchain/typechain-client/ledgerClient/config"
	"github.com/pushchain/typechain-client/ledgerClient/confirmation"
	lerrors "github.com/pushchain/typechain-client/ledgerClient/errors"
	"github.com/pushchain/typechain-client/ledgerClient/ledger"
	"github.com/pushchain/typechain-client/ledgerClient/metrics"
	"github.com/pushchain/typechain-client/ledgerClient/signer"
	"github.com/pushchain/typechain-client/ledgerClient/submitter"
)

// ProgramErrorKey is the LedgerError context key naming the program error
// behind a rejection.
const ProgramErrorKey = "program_error"

// Result describes a finished operation.
type Result struct {
	Operation   string
	OperationID string
	Signature   solana.Signature
	Status      confirmation.Status
	Slot        uint64
	Reason      string

	// ProgramError names the program error behind a rejected Reason.
	ProgramError string

	// AlreadyInitialized is set when InitializePlayer found an existing
	// player and sent nothing.
	AlreadyInitialized bool
	// Skipped is set when UpdatePracticeStats found no player and sent nothing.
	Skipped bool
	// Resynced is false when the transaction confirmed but the follow-up
	// fetch failed. The cache entries stay stale in that case.
	Resynced bool

	Contest       solana.PublicKey
	Player        *codec.PlayerRecord
	ContestRecord *codec.ContestRecord
}

// Client is the entry point of the typing program client. A signer must be
// connected before any mutating operation.
type Client struct {
	deriver    *address.Deriver
	sync       *accountsync.Synchronizer
	submitter  *submitter.Submitter
	tracker    *confirmation.Tracker
	journal    Journal
	metrics    *metrics.Metrics
	commitment rpc.CommitmentType
	logger     zerolog.Logger

	mu     sync.RWMutex
	signer signer.Signer

	inflightMu sync.Mutex
	inflight   map[solana.PublicKey]string

	newContestKey func() (solana.PrivateKey, error)
}

// New wires a Client on endpoint. journal and m may be nil.
func New(endpoint ledger.Endpoint, cfg *config.Config, journal Journal, m *metrics.Metrics, logger zerolog.Logger) (*Client, error) {
	if endpoint == nil {
		return nil, fmt.Errorf("endpoint is required")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	deriver, err := address.NewDeriver(cfg.ProgramID)
	if err != nil {
		return nil, lerrors.NewConfigError(err.Error())
	}

	log := logger.With().Str("component", "client").Logger()

	synchronizer, err := accountsync.New(endpoint, cache.New(logger), deriver.ProgramID(), m, logger)
	if err != nil {
		return nil, err
	}
	sub, err := submitter.New(endpoint, logger)
	if err != nil {
		return nil, err
	}
	tracker, err := confirmation.New(endpoint, confirmation.Options{
		Timeout:      cfg.ConfirmationTimeout(),
		PollInterval: cfg.ConfirmationPollInterval(),
	}, logger)
	if err != nil {
		return nil, lerrors.NewConfigError(err.Error())
	}

	commitment := rpc.CommitmentType(cfg.Commitment)
	if commitment == "" {
		commitment = rpc.CommitmentConfirmed
	}

	return &Client{
		deriver:       deriver,
		sync:          synchronizer,
		submitter:     sub,
		tracker:       tracker,
		journal:       journal,
		metrics:       m,
		commitment:    commitment,
		logger:        log,
		inflight:      make(map[solana.PublicKey]string),
		newContestKey: solana.NewRandomPrivateKey,
	}, nil
}

// Connect attaches the signer whose identity pays for and owns every operation.
func (c *Client) Connect(s signer.Signer) error {
	if s == nil {
		return fmt.Errorf("signer is required")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.signer = s
	c.logger.Info().Str("identity", s.PublicKey().String()).Msg("signer connected")
	return nil
}

// Disconnect detaches the signer. Cached state is kept.
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.signer != nil {
		c.logger.Info().Str("identity", c.signer.PublicKey().String()).Msg("signer disconnected")
	}
	c.signer = nil
}

// Identity returns the connected identity.
func (c *Client) Identity() (solana.PublicKey, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.signer == nil {
		return solana.PublicKey{}, false
	}
	return c.signer.PublicKey(), true
}

// ProgramID returns the program the client talks to.
func (c *Client) ProgramID() solana.PublicKey {
	return c.deriver.ProgramID()
}

// Synchronizer exposes the account synchronizer for read-only consumers.
func (c *Client) Synchronizer() *accountsync.Synchronizer {
	return c.sync
}

// PlayerAddressOf derives the player account address of owner.
func (c *Client) PlayerAddressOf(owner solana.PublicKey) solana.PublicKey {
	return c.deriver.PlayerAddress(owner)
}

// PlayerAddress derives the connected identity's player account address.
func (c *Client) PlayerAddress() (solana.PublicKey, error) {
	owner, ok := c.Identity()
	if !ok {
		return solana.PublicKey{}, lerrors.NewNotConnectedError("player_address")
	}
	return c.deriver.PlayerAddress(owner), nil
}

// Player fetches the connected identity's player account.
func (c *Client) Player(ctx context.Context) (*accountsync.Snapshot, error) {
	addr, err := c.PlayerAddress()
	if err != nil {
		return nil, err
	}
	return c.sync.Fetch(ctx, addr, codec.KindPlayer)
}

// Contest fetches one contest account.
func (c *Client) Contest(ctx context.Context, contest solana.PublicKey) (*accountsync.Snapshot, error) {
	return c.sync.Fetch(ctx, contest, codec.KindContest)
}

// Contests lists every contest of the program.
func (c *Client) Contests(ctx context.Context) ([]*accountsync.Snapshot, error) {
	return c.sync.FetchContests(ctx)
}

// CachedPlayer returns the last fetched player snapshot of the connected identity.
func (c *Client) CachedPlayer() (*accountsync.Snapshot, bool) {
	addr, err := c.PlayerAddress()
	if err != nil {
		return nil, false
	}
	return c.sync.Cached(addr)
}

// CachedContest returns the last fetched snapshot of contest.
func (c *Client) CachedContest(contest solana.PublicKey) (*accountsync.Snapshot, bool) {
	snap, ok := c.sync.Cached(contest)
	if !ok || snap.Kind != codec.KindContest {
		return nil, false
	}
	return snap, true
}

// CachedContests returns the last listed contests.
func (c *Client) CachedContests() []*accountsync.Snapshot {
	return c.sync.CachedContests()
}

// ContestsUpdatedAt returns when the contest list was last refreshed.
func (c *Client) ContestsUpdatedAt() time.Time {
	return c.sync.ContestsUpdatedAt()
}

// FetchError returns the error of the last failed fetch of address, or "".
func (c *Client) FetchError(address solana.PublicKey) string {
	if e := c.sync.Entry(address); e != nil && e.State == cache.StateError {
		return e.Err
	}
	return ""
}

func (c *Client) currentSigner(operation string) (signer.Signer, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.signer == nil {
		return nil, lerrors.NewNotConnectedError(operation)
	}
	return c.signer, nil
}

// acquire claims addrs for operation. A claim held by another operation
// yields a Busy error.
func (c *Client) acquire(operation string, addrs ...solana.PublicKey) (func(), error) {
	c.inflightMu.Lock()
	defer c.inflightMu.Unlock()

	for _, addr := range addrs {
		if holder, busy := c.inflight[addr]; busy {
			return nil, lerrors.NewBusyError(operation, addr.String()).WithContext("held_by", holder)
		}
	}
	for _, addr := range addrs {
		c.inflight[addr] = operation
	}

	return func() {
		c.inflightMu.Lock()
		defer c.inflightMu.Unlock()
		for _, addr := range addrs {
			delete(c.inflight, addr)
		}
	}, nil
}
