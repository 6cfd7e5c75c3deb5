package accountsync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"

	"github.com/pushchain/typechain-client/ledgerClient/cache"
	"github.com/pushchain/typechain-client/ledgerClient/codec"
	lerrors "github.com/pushchain/typechain-client/ledgerClient/errors"
	"github.com/pushchain/typechain-client/ledgerClient/ledger"
	"github.com/pushchain/typechain-client/ledgerClient/metrics"
)

// Snapshot is the ledger state of one address at a point in time.
// State is either StatePresent with a Record, or StateAbsent without one.
type Snapshot struct {
	Address   solana.PublicKey
	Kind      codec.AccountKind
	State     cache.State
	Record    codec.Record
	Data      []byte
	Slot      uint64
	FetchedAt time.Time
	Stale     bool
}

// Present reports whether the account exists.
func (s *Snapshot) Present() bool {
	return s != nil && s.State == cache.StatePresent
}

// Player returns the player record, or nil.
func (s *Snapshot) Player() *codec.PlayerRecord {
	if !s.Present() {
		return nil
	}
	rec, _ := s.Record.(*codec.PlayerRecord)
	return rec
}

// Contest returns the contest record, or nil.
func (s *Snapshot) Contest() *codec.ContestRecord {
	if !s.Present() {
		return nil
	}
	rec, _ := s.Record.(*codec.ContestRecord)
	return rec
}

func fromEntry(e *cache.Entry) *Snapshot {
	return &Snapshot{
		Address:   e.Address,
		Kind:      e.Kind,
		State:     e.State,
		Record:    e.Record,
		Data:      e.Data,
		Slot:      e.Slot,
		FetchedAt: e.LastFetchedAt,
		Stale:     e.Stale,
	}
}

// Synchronizer reconciles the cache with ledger-confirmed account state.
type Synchronizer struct {
	endpoint  ledger.Endpoint
	cache     *cache.Cache
	programID solana.PublicKey
	metrics   *metrics.Metrics
	now       func() time.Time
	logger    zerolog.Logger
}

// New creates a Synchronizer. m may be nil.
func New(endpoint ledger.Endpoint, c *cache.Cache, programID solana.PublicKey, m *metrics.Metrics, logger zerolog.Logger) (*Synchronizer, error) {
	if endpoint == nil {
		return nil, fmt.Errorf("endpoint is required")
	}
	if c == nil {
		return nil, fmt.Errorf("cache is required")
	}
	return &Synchronizer{
		endpoint:  endpoint,
		cache:     c,
		programID: programID,
		metrics:   m,
		now:       time.Now,
		logger:    logger.With().Str("component", "account_sync").Logger(),
	}, nil
}

// Fetch reads address from the ledger, decodes it as kind and replaces the
// cached entry. Absence is a valid outcome, not an error.
func (s *Synchronizer) Fetch(ctx context.Context, address solana.PublicKey, kind codec.AccountKind) (*Snapshot, error) {
	ticket := s.cache.Begin()

	info, err := s.endpoint.GetAccountInfo(ctx, address)
	if errors.Is(err, ledger.ErrAccountNotFound) {
		snap := &Snapshot{Address: address, Kind: kind, State: cache.StateAbsent, FetchedAt: s.now()}
		s.store(ticket, snap)
		s.metrics.ObserveFetch(string(kind), string(cache.StateAbsent))
		return snap, nil
	}
	if err != nil {
		fetchErr := lerrors.WrapLedgerError(err, lerrors.ErrCodeNetwork, "fetch_account", "failed to fetch account").
			WithContext("address", address.String())
		s.storeError(ticket, address, kind, fetchErr)
		return nil, fetchErr
	}

	if !info.Owner.Equals(s.programID) {
		decodeErr := lerrors.NewDecodeError("fetch_account", fmt.Sprintf("account %s is owned by %s, not the program", address, info.Owner), nil)
		s.storeError(ticket, address, kind, decodeErr)
		return nil, decodeErr
	}

	rec, err := codec.Decode(info.Data, kind)
	if err != nil {
		decodeErr := lerrors.NewDecodeError("fetch_account", fmt.Sprintf("account %s is not a valid %s record", address, kind), err)
		s.storeError(ticket, address, kind, decodeErr)
		return nil, decodeErr
	}

	snap := &Snapshot{
		Address:   address,
		Kind:      kind,
		State:     cache.StatePresent,
		Record:    rec,
		Data:      info.Data,
		Slot:      info.Slot,
		FetchedAt: s.now(),
	}
	s.store(ticket, snap)
	s.metrics.ObserveFetch(string(kind), string(cache.StatePresent))
	return snap, nil
}

// FetchContests lists every contest account of the program and replaces the
// contest index. Accounts that fail to decode are skipped.
func (s *Synchronizer) FetchContests(ctx context.Context) ([]*Snapshot, error) {
	ticket := s.cache.Begin()

	accounts, err := s.endpoint.GetProgramAccounts(ctx, s.programID, codec.ContestAccountSize)
	if err != nil {
		s.metrics.ObserveFetch(string(codec.KindContest), string(cache.StateError))
		return nil, lerrors.WrapLedgerError(err, lerrors.ErrCodeNetwork, "fetch_contests", "failed to list contests")
	}

	now := s.now()
	snaps := make([]*Snapshot, 0, len(accounts))
	entries := make([]cache.Entry, 0, len(accounts))
	for _, acc := range accounts {
		if kind, ok := codec.KindForSize(len(acc.Data)); !ok || kind != codec.KindContest {
			s.logger.Warn().Str("address", acc.Address.String()).Int("size", len(acc.Data)).Msg("skipping program account that is not contest sized")
			continue
		}
		rec, err := codec.DecodeContest(acc.Data)
		if err != nil {
			s.logger.Warn().Err(err).Str("address", acc.Address.String()).Msg("skipping undecodable contest account")
			continue
		}
		snap := &Snapshot{
			Address:   acc.Address,
			Kind:      codec.KindContest,
			State:     cache.StatePresent,
			Record:    rec,
			Data:      acc.Data,
			Slot:      acc.Slot,
			FetchedAt: now,
		}
		snaps = append(snaps, snap)
		entries = append(entries, toEntry(snap))
	}

	s.cache.ReplaceContests(ticket, entries)
	s.metrics.ObserveFetch(string(codec.KindContest), "listed")
	s.metrics.SetCacheEntries(s.cache.Len())
	return snaps, nil
}

// Cached returns the cached snapshot of address without touching the ledger.
// ok is false when the address was never fetched or its last fetch failed.
func (s *Synchronizer) Cached(address solana.PublicKey) (*Snapshot, bool) {
	e := s.cache.Get(address)
	if e == nil || !e.Initialized || e.State == cache.StateError {
		return nil, false
	}
	return fromEntry(e), true
}

// CachedContests returns the last listed contests.
func (s *Synchronizer) CachedContests() []*Snapshot {
	entries := s.cache.Contests()
	out := make([]*Snapshot, 0, len(entries))
	for _, e := range entries {
		out = append(out, fromEntry(e))
	}
	return out
}

// ContestsUpdatedAt returns when the contest index was last replaced.
func (s *Synchronizer) ContestsUpdatedAt() time.Time {
	return s.cache.ContestsUpdatedAt()
}

// Entry returns the raw cache entry of address, including failures.
func (s *Synchronizer) Entry(address solana.PublicKey) *cache.Entry {
	return s.cache.Get(address)
}

// Invalidate marks addresses stale.
func (s *Synchronizer) Invalidate(addresses ...solana.PublicKey) {
	s.cache.Invalidate(addresses...)
	s.metrics.SetCacheEntries(s.cache.Len())
}

func (s *Synchronizer) store(ticket cache.Ticket, snap *Snapshot) {
	if !s.cache.Put(ticket, toEntry(snap)) {
		s.logger.Debug().Str("address", snap.Address.String()).Msg("newer snapshot already cached")
	}
	s.metrics.SetCacheEntries(s.cache.Len())
}

func (s *Synchronizer) storeError(ticket cache.Ticket, address solana.PublicKey, kind codec.AccountKind, err error) {
	s.logger.Warn().Err(err).Str("address", address.String()).Str("kind", string(kind)).Msg("account fetch failed")
	s.cache.Put(ticket, cache.Entry{
		Address:       address,
		Kind:          kind,
		State:         cache.StateError,
		Err:           err.Error(),
		LastFetchedAt: s.now(),
	})
	s.metrics.ObserveFetch(string(kind), string(cache.StateError))
	s.metrics.SetCacheEntries(s.cache.Len())
}

func toEntry(snap *Snapshot) cache.Entry {
	return cache.Entry{
		Address:       snap.Address,
		Kind:          snap.Kind,
		State:         snap.State,
		Record:        snap.Record,
		Data:          snap.Data,
		Slot:          snap.Slot,
		LastFetchedAt: snap.FetchedAt,
	}
}
