package address

import (
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/pushchain/typechain-client/ledgerClient/constant"
)

// DerivedAddress is a program address computed from a seed and an owner.
type DerivedAddress struct {
	Seed    string
	Owner   solana.PublicKey
	Address solana.PublicKey
	Bump    uint8
}

type cacheKey struct {
	seed  string
	owner solana.PublicKey
}

// Deriver computes program derived addresses for one program id.
// Results are memoized for the lifetime of the Deriver.
type Deriver struct {
	programID solana.PublicKey

	mu    sync.RWMutex
	cache map[cacheKey]DerivedAddress
}

// NewDeriver creates a Deriver for the given base58 program id.
func NewDeriver(programID string) (*Deriver, error) {
	if programID == "" {
		return nil, fmt.Errorf("programID is required")
	}
	pid, err := solana.PublicKeyFromBase58(programID)
	if err != nil {
		return nil, fmt.Errorf("invalid program id: %w", err)
	}
	return NewDeriverForProgram(pid), nil
}

// NewDeriverForProgram creates a Deriver for an already parsed program id.
func NewDeriverForProgram(programID solana.PublicKey) *Deriver {
	return &Deriver{
		programID: programID,
		cache:     make(map[cacheKey]DerivedAddress),
	}
}

// ProgramID returns the program the Deriver derives for.
func (d *Deriver) ProgramID() solana.PublicKey {
	return d.programID
}

// Derive returns the program address for (seed, owner).
// A seed longer than solana.MaxSeedLength is a programming error and panics.
func (d *Deriver) Derive(seed string, owner solana.PublicKey) DerivedAddress {
	if len(seed) > solana.MaxSeedLength {
		panic(fmt.Sprintf("address: seed %q exceeds %d bytes", seed, solana.MaxSeedLength))
	}

	key := cacheKey{seed: seed, owner: owner}
	d.mu.RLock()
	cached, ok := d.cache[key]
	d.mu.RUnlock()
	if ok {
		return cached
	}

	addr, bump, err := solana.FindProgramAddress([][]byte{[]byte(seed), owner.Bytes()}, d.programID)
	if err != nil {
		// FindProgramAddress only fails when no bump yields an off-curve point.
		panic(fmt.Sprintf("address: failed to derive %q for %s: %v", seed, owner, err))
	}

	derived := DerivedAddress{
		Seed:    seed,
		Owner:   owner,
		Address: addr,
		Bump:    bump,
	}

	d.mu.Lock()
	d.cache[key] = derived
	d.mu.Unlock()
	return derived
}

// PlayerAddress returns the player record address for owner.
func (d *Deriver) PlayerAddress(owner solana.PublicKey) solana.PublicKey {
	return d.Derive(constant.PlayerSeed, owner).Address
}
