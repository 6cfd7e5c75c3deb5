package address

import (
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pushchain/typechain-client/ledgerClient/constant"
)

func TestNewDeriver(t *testing.T) {
	testCases := []struct {
		name      string
		programID string
		errMsg    string
	}{
		{name: "default program", programID: constant.DefaultProgramID},
		{name: "empty", programID: "", errMsg: "programID is required"},
		{name: "not base58", programID: "0OIl", errMsg: "invalid program id"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d, err := NewDeriver(tc.programID)
			if tc.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.programID, d.ProgramID().String())
		})
	}
}

func TestDeriveMatchesFindProgramAddress(t *testing.T) {
	d, err := NewDeriver(constant.DefaultProgramID)
	require.NoError(t, err)

	owner := solana.NewWallet().PublicKey()
	want, wantBump, err := solana.FindProgramAddress(
		[][]byte{[]byte(constant.PlayerSeed), owner.Bytes()},
		solana.MustPublicKeyFromBase58(constant.DefaultProgramID),
	)
	require.NoError(t, err)

	got := d.Derive(constant.PlayerSeed, owner)
	assert.Equal(t, want, got.Address)
	assert.Equal(t, wantBump, got.Bump)
	assert.Equal(t, owner, got.Owner)
	assert.Equal(t, want, d.PlayerAddress(owner))
}

func TestDeriveIsDeterministic(t *testing.T) {
	owner := solana.NewWallet().PublicKey()

	first, err := NewDeriver(constant.DefaultProgramID)
	require.NoError(t, err)
	second, err := NewDeriver(constant.DefaultProgramID)
	require.NoError(t, err)

	a := first.Derive(constant.PlayerSeed, owner)
	b := first.Derive(constant.PlayerSeed, owner)
	c := second.Derive(constant.PlayerSeed, owner)

	assert.Equal(t, a, b)
	assert.Equal(t, a, c)
}

func TestDeriveDistinctInputs(t *testing.T) {
	d, err := NewDeriver(constant.DefaultProgramID)
	require.NoError(t, err)

	alice := solana.NewWallet().PublicKey()
	bob := solana.NewWallet().PublicKey()

	assert.NotEqual(t, d.PlayerAddress(alice), d.PlayerAddress(bob))
	assert.NotEqual(t, d.Derive("player", alice).Address, d.Derive("stats", alice).Address)

	other := NewDeriverForProgram(solana.SystemProgramID)
	assert.NotEqual(t, d.PlayerAddress(alice), other.PlayerAddress(alice))
}

func TestDeriveRejectsLongSeed(t *testing.T) {
	d, err := NewDeriver(constant.DefaultProgramID)
	require.NoError(t, err)

	assert.Panics(t, func() {
		d.Derive(strings.Repeat("s", solana.MaxSeedLength+1), solana.NewWallet().PublicKey())
	})
}
