package cache

import (
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"

	"github.com/pushchain/typechain-client/ledgerClient/codec"
)

// State is the synchronization state of one address.
type State string

const (
	StateUnknown State = "unknown"
	StateAbsent  State = "absent"
	StatePresent State = "present"
	StateError   State = "error"
)

// Entry is the cached view of one account. Records are replaced wholesale,
// never merged.
type Entry struct {
	Address       solana.PublicKey
	Kind          codec.AccountKind
	State         State
	Record        codec.Record
	Data          []byte // account data as returned by the ledger
	Err           string
	Slot          uint64
	LastFetchedAt time.Time
	Initialized   bool
	// Stale is set when a mutation targeting the address resolved after the
	// snapshot was taken. A stale entry must be re-fetched before it is trusted.
	Stale bool

	writtenAt uint64
}

// Ticket marks the moment a fetch started.
type Ticket uint64

// Cache is a thread-safe store of account snapshots keyed by address.
type Cache struct {
	mu              sync.RWMutex
	entries         map[solana.PublicKey]*Entry
	contests        []solana.PublicKey
	contestsUpdated time.Time
	seq             uint64
	now             func() time.Time
	logger          zerolog.Logger
}

// New creates a new Cache instance.
func New(logger zerolog.Logger) *Cache {
	return &Cache{
		entries: make(map[solana.PublicKey]*Entry),
		now:     time.Now,
		logger:  logger.With().Str("component", "cache").Logger(),
	}
}

// Begin returns a ticket to pass to Put for a fetch starting now.
func (c *Cache) Begin() Ticket {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return Ticket(c.seq)
}

// Put stores a fetch result for e.Address unless the current entry was
// written or invalidated after the fetch began. It reports whether e was stored.
func (c *Cache) Put(ticket Ticket, e Entry) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.putLocked(ticket, e)
}

func (c *Cache) putLocked(ticket Ticket, e Entry) bool {
	if cur, ok := c.entries[e.Address]; ok && cur.writtenAt > uint64(ticket) {
		c.logger.Debug().
			Str("address", e.Address.String()).
			Uint64("ticket", uint64(ticket)).
			Uint64("written_at", cur.writtenAt).
			Msg("discarding fetch that started before the current snapshot")
		return false
	}

	c.seq++
	e.writtenAt = c.seq
	e.Initialized = true
	e.Stale = false
	if e.LastFetchedAt.IsZero() {
		e.LastFetchedAt = c.now()
	}
	c.entries[e.Address] = &e
	return true
}

// Get returns a copy of the entry for addr, or nil when never fetched.
func (c *Cache) Get(addr solana.PublicKey) *Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if e, ok := c.entries[addr]; ok {
		cp := *e
		return &cp
	}
	return nil
}

// Invalidate marks the entries stale. Fetches that began earlier can no
// longer overwrite them.
func (c *Cache) Invalidate(addrs ...solana.PublicKey) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, addr := range addrs {
		c.seq++
		e, ok := c.entries[addr]
		if !ok {
			e = &Entry{Address: addr, State: StateUnknown}
			c.entries[addr] = e
		}
		e.Stale = true
		e.writtenAt = c.seq
	}
}

// ReplaceContests atomically replaces the contest index and stores every
// listed contest that has not been written since ticket.
func (c *Cache) ReplaceContests(ticket Ticket, contests []Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	index := make([]solana.PublicKey, 0, len(contests))
	for _, e := range contests {
		index = append(index, e.Address)
		c.putLocked(ticket, e)
	}
	c.contests = index
	c.contestsUpdated = c.now()

	c.logger.Info().
		Int("contests", len(index)).
		Time("updated_at", c.contestsUpdated).
		Msg("contest index updated")
}

// Contests returns copies of the indexed contest entries.
func (c *Cache) Contests() []*Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*Entry, 0, len(c.contests))
	for _, addr := range c.contests {
		if e, ok := c.entries[addr]; ok {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out
}

// ContestsUpdatedAt returns the last time the contest index was replaced.
func (c *Cache) ContestsUpdatedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.contestsUpdated
}

// Len returns the number of tracked addresses.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
