package cache

import (
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pushchain/typechain-client/ledgerClient/codec"
)

func presentPlayer(addr solana.PublicKey, tests uint32) Entry {
	return Entry{
		Address: addr,
		Kind:    codec.KindPlayer,
		State:   StatePresent,
		Record:  &codec.PlayerRecord{TotalTests: tests},
	}
}

func TestPutAndGet(t *testing.T) {
	c := New(zerolog.Nop())
	addr := solana.NewWallet().PublicKey()

	assert.Nil(t, c.Get(addr))

	require.True(t, c.Put(c.Begin(), presentPlayer(addr, 1)))
	e := c.Get(addr)
	require.NotNil(t, e)
	assert.Equal(t, StatePresent, e.State)
	assert.True(t, e.Initialized)
	assert.False(t, e.Stale)
	assert.False(t, e.LastFetchedAt.IsZero())
	assert.Equal(t, 1, c.Len())

	require.True(t, c.Put(c.Begin(), Entry{Address: addr, Kind: codec.KindPlayer, State: StateAbsent}))
	e = c.Get(addr)
	assert.Equal(t, StateAbsent, e.State)
	assert.Nil(t, e.Record, "present record replaced wholesale")
}

func TestOlderFetchIsDiscarded(t *testing.T) {
	c := New(zerolog.Nop())
	addr := solana.NewWallet().PublicKey()

	older := c.Begin()
	newer := c.Begin()

	require.True(t, c.Put(newer, presentPlayer(addr, 2)))
	assert.False(t, c.Put(older, presentPlayer(addr, 1)))

	rec := c.Get(addr).Record.(*codec.PlayerRecord)
	assert.Equal(t, uint32(2), rec.TotalTests)
}

func TestInvalidate(t *testing.T) {
	c := New(zerolog.Nop())
	addr := solana.NewWallet().PublicKey()
	unseen := solana.NewWallet().PublicKey()

	require.True(t, c.Put(c.Begin(), presentPlayer(addr, 1)))
	inFlight := c.Begin()

	c.Invalidate(addr, unseen)
	assert.True(t, c.Get(addr).Stale)
	assert.Equal(t, StatePresent, c.Get(addr).State, "stale entries keep their last record")
	assert.Equal(t, StateUnknown, c.Get(unseen).State)
	assert.False(t, c.Get(unseen).Initialized)

	assert.False(t, c.Put(inFlight, presentPlayer(addr, 1)), "fetch begun before invalidation cannot clear staleness")
	assert.True(t, c.Get(addr).Stale)

	require.True(t, c.Put(c.Begin(), presentPlayer(addr, 2)))
	assert.False(t, c.Get(addr).Stale)
}

func TestReplaceContests(t *testing.T) {
	c := New(zerolog.Nop())
	a := solana.NewWallet().PublicKey()
	b := solana.NewWallet().PublicKey()

	c.ReplaceContests(c.Begin(), []Entry{
		{Address: a, Kind: codec.KindContest, State: StatePresent, Record: &codec.ContestRecord{TextID: 1}},
		{Address: b, Kind: codec.KindContest, State: StatePresent, Record: &codec.ContestRecord{TextID: 2}},
	})
	assert.Len(t, c.Contests(), 2)
	assert.False(t, c.ContestsUpdatedAt().IsZero())

	c.ReplaceContests(c.Begin(), []Entry{
		{Address: b, Kind: codec.KindContest, State: StatePresent, Record: &codec.ContestRecord{TextID: 3}},
	})
	contests := c.Contests()
	require.Len(t, contests, 1)
	assert.Equal(t, b, contests[0].Address)
	assert.Equal(t, uint32(3), contests[0].Record.(*codec.ContestRecord).TextID)
}

func TestConcurrentAccess(t *testing.T) {
	c := New(zerolog.Nop())
	addr := solana.NewWallet().PublicKey()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(3)
		go func(n uint32) {
			defer wg.Done()
			c.Put(c.Begin(), presentPlayer(addr, n))
		}(uint32(i))
		go func() {
			defer wg.Done()
			_ = c.Get(addr)
		}()
		go func() {
			defer wg.Done()
			c.Invalidate(addr)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, c.Len())
}
