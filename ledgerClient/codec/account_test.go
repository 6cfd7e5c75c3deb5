package codec

import (
	"errors"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int64Ptr(v int64) *int64 { return &v }

func samplePlayer() *PlayerRecord {
	return &PlayerRecord{
		Owner:           solana.NewWallet().PublicKey(),
		TotalTests:      12,
		BestWPM:         91,
		AverageWPM:      77,
		BestAccuracy:    99,
		TotalWordsTyped: 1 << 33,
		CreatedAt:       1700000000,
		LastActivity:    1700003600,
	}
}

func sampleContest() *ContestRecord {
	a := solana.NewWallet().PublicKey()
	b := solana.NewWallet().PublicKey()
	return &ContestRecord{
		Creator:         a,
		TextID:          3,
		DurationSeconds: 120,
		Status:          ContestActive,
		Participants:    []solana.PublicKey{a, b},
		Results: []ContestResult{
			{Player: b, WPM: 80, Accuracy: 95, TimeTaken: 118, Position: 0},
		},
		CreatedAt:       1700000000,
		StartedAt:       int64Ptr(1700000050),
		MaxParticipants: 10,
	}
}

func TestKindForSize(t *testing.T) {
	assert.Equal(t, 72, PlayerAccountSize)
	assert.Equal(t, 1032, ContestAccountSize)

	kind, ok := KindForSize(72)
	assert.True(t, ok)
	assert.Equal(t, KindPlayer, kind)

	kind, ok = KindForSize(1032)
	assert.True(t, ok)
	assert.Equal(t, KindContest, kind)

	_, ok = KindForSize(0)
	assert.False(t, ok)
}

func TestPlayerRoundTrip(t *testing.T) {
	rec := samplePlayer()
	data := EncodePlayer(rec)
	require.Len(t, data, PlayerAccountSize)

	got, err := Decode(data, KindPlayer)
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestPlayerFieldOffsets(t *testing.T) {
	rec := samplePlayer()
	data := EncodePlayer(rec)

	assert.Equal(t, rec.Owner.Bytes(), data[0:32])
	assert.Equal(t, []byte{12, 0, 0, 0}, data[32:36])
	assert.Equal(t, []byte{91, 0, 0, 0}, data[36:40])
	assert.Equal(t, []byte{77, 0, 0, 0}, data[40:44])
	assert.Equal(t, []byte{99, 0, 0, 0}, data[44:48])
	assert.Equal(t, []byte{0, 0, 0, 0, 2, 0, 0, 0}, data[48:56])
}

func TestContestRoundTrip(t *testing.T) {
	testCases := []struct {
		name string
		rec  *ContestRecord
	}{
		{"active with result", sampleContest()},
		{"waiting empty", &ContestRecord{
			Creator:         solana.NewWallet().PublicKey(),
			TextID:          1,
			DurationSeconds: 60,
			Status:          ContestWaiting,
			Participants:    []solana.PublicKey{},
			Results:         []ContestResult{},
			CreatedAt:       5,
			MaxParticipants: 10,
		}},
		{"ended", func() *ContestRecord {
			c := sampleContest()
			c.Status = ContestEnded
			c.EndedAt = int64Ptr(1700000200)
			return c
		}()},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := EncodeContest(tc.rec)
			require.NoError(t, err)
			require.Len(t, data, ContestAccountSize)

			got, err := Decode(data, KindContest)
			require.NoError(t, err)
			assert.Equal(t, tc.rec, got)
		})
	}
}

func TestDecodeTruncatedNeverReturnsPartialRecord(t *testing.T) {
	player := EncodePlayer(samplePlayer())
	for n := 0; n < len(player); n++ {
		rec, err := Decode(player[:n], KindPlayer)
		require.Error(t, err, "length %d", n)
		assert.Nil(t, rec)

		var decErr *DecodeError
		require.True(t, errors.As(err, &decErr))
		assert.Equal(t, ReasonTruncated, decErr.Reason)
	}

	full, err := EncodeContest(sampleContest())
	require.NoError(t, err)
	// 32+4+8+1 + 4+64 + 4+52 + 8 + 9 + 1 + 1 meaningful bytes
	used := 188
	for n := 0; n < used; n++ {
		rec, err := Decode(full[:n], KindContest)
		require.Error(t, err, "length %d", n)
		assert.Nil(t, rec)
	}
	_, err = Decode(full[:used], KindContest)
	assert.NoError(t, err)
}

func TestDecodeInvalidTags(t *testing.T) {
	data, err := EncodeContest(sampleContest())
	require.NoError(t, err)

	t.Run("status", func(t *testing.T) {
		bad := append([]byte(nil), data...)
		bad[44] = 7
		_, err := DecodeContest(bad)
		var decErr *DecodeError
		require.True(t, errors.As(err, &decErr))
		assert.Equal(t, ReasonInvalid, decErr.Reason)
	})

	t.Run("started_at option", func(t *testing.T) {
		bad := append([]byte(nil), data...)
		// creator..status(45) + participants(4+64) + results(4+52) + created_at(8)
		bad[177] = 3
		_, err := DecodeContest(bad)
		var decErr *DecodeError
		require.True(t, errors.As(err, &decErr))
		assert.Equal(t, ReasonInvalid, decErr.Reason)
	})

	t.Run("participant count past end", func(t *testing.T) {
		bad := append([]byte(nil), data...)
		bad[45], bad[46], bad[47], bad[48] = 0xff, 0xff, 0xff, 0x7f
		_, err := DecodeContest(bad)
		var decErr *DecodeError
		require.True(t, errors.As(err, &decErr))
		assert.Equal(t, ReasonTruncated, decErr.Reason)
	})
}

func TestDecodeUnknownKind(t *testing.T) {
	rec, err := Decode(make([]byte, 72), AccountKind("leaderboard"))
	assert.Nil(t, rec)

	var decErr *DecodeError
	require.True(t, errors.As(err, &decErr))
	assert.Equal(t, ReasonUnknownKind, decErr.Reason)
}

func TestContestPredicates(t *testing.T) {
	c := sampleContest()
	joined := c.Participants[0]
	stranger := solana.NewWallet().PublicKey()

	assert.True(t, c.HasParticipant(joined))
	assert.False(t, c.HasParticipant(stranger))
	assert.True(t, c.HasResult(c.Participants[1]))
	assert.False(t, c.CanJoin(stranger), "active contest is not joinable")

	c.Status = ContestWaiting
	assert.True(t, c.CanJoin(stranger))
	assert.False(t, c.CanJoin(joined))

	c.MaxParticipants = 2
	assert.True(t, c.IsFull())
	assert.False(t, c.CanJoin(stranger))
}

func TestContestExpiry(t *testing.T) {
	c := sampleContest()
	exp, ok := c.ExpiresAt()
	require.True(t, ok)
	assert.Equal(t, time.Unix(1700000170, 0), exp)

	assert.False(t, c.IsExpired(time.Unix(1700000169, 0)))
	assert.True(t, c.IsExpired(time.Unix(1700000170, 0)))

	c.Status = ContestEnded
	assert.False(t, c.IsExpired(time.Unix(1800000000, 0)))

	waiting := &ContestRecord{Status: ContestWaiting}
	_, ok = waiting.ExpiresAt()
	assert.False(t, ok)
}
