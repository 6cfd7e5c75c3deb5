package codec

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lerrors "github.com/pushchain/typechain-client/ledgerClient/errors"
)

func TestEncode(t *testing.T) {
	testCases := []struct {
		name string
		req  Request
		want []byte
	}{
		{
			name: "initialize player",
			req:  InitializePlayer{},
			want: []byte{0},
		},
		{
			name: "create contest",
			req:  CreateContest{TextID: 2, DurationSeconds: 60},
			want: []byte{1, 2, 0, 0, 0, 60, 0, 0, 0, 0, 0, 0, 0},
		},
		{
			name: "join contest",
			req:  JoinContest{},
			want: []byte{2},
		},
		{
			name: "submit result",
			req:  SubmitResult{WPM: 72, Accuracy: 98, TimeTaken: 300},
			want: []byte{3, 72, 0, 0, 0, 98, 0, 0, 0, 0x2c, 0x01, 0, 0, 0, 0, 0, 0},
		},
		{
			name: "update practice stats",
			req:  UpdatePracticeStats{WPM: 85, Accuracy: 97, WordsTyped: 9},
			want: []byte{4, 85, 0, 0, 0, 97, 0, 0, 0, 9, 0, 0, 0},
		},
		{
			name: "accuracy is not clamped",
			req:  UpdatePracticeStats{WPM: 1, Accuracy: 250, WordsTyped: 0},
			want: []byte{4, 1, 0, 0, 0, 250, 0, 0, 0, 0, 0, 0, 0},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Encode(tc.req)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, byte(tc.req.Tag()), got[0])
		})
	}
}

func TestEncodedSizes(t *testing.T) {
	assert.Len(t, Encode(InitializePlayer{}), InitializePlayerSize)
	assert.Len(t, Encode(CreateContest{}), 13)
	assert.Len(t, Encode(JoinContest{}), JoinContestSize)
	assert.Len(t, Encode(SubmitResult{}), 17)
	assert.Len(t, Encode(UpdatePracticeStats{}), 13)
}

func TestDecodeInstructionInvertsEncode(t *testing.T) {
	reqs := []Request{
		InitializePlayer{},
		CreateContest{TextID: 0xdeadbeef, DurationSeconds: 1 << 40},
		JoinContest{},
		SubmitResult{WPM: 120, Accuracy: 100, TimeTaken: 45},
		UpdatePracticeStats{WPM: 40, Accuracy: 91, WordsTyped: 200},
	}
	for _, req := range reqs {
		t.Run(req.Tag().String(), func(t *testing.T) {
			got, err := DecodeInstruction(Encode(req))
			require.NoError(t, err)
			assert.Equal(t, req, got)
		})
	}
}

func TestDecodeInstructionErrors(t *testing.T) {
	testCases := []struct {
		name   string
		data   []byte
		reason DecodeReason
	}{
		{"empty", nil, ReasonTruncated},
		{"unknown tag", []byte{9}, ReasonInvalid},
		{"short create", []byte{1, 2, 0, 0}, ReasonTruncated},
		{"short submit", Encode(SubmitResult{})[:16], ReasonTruncated},
		{"trailing bytes", []byte{0, 0}, ReasonInvalid},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req, err := DecodeInstruction(tc.data)
			require.Error(t, err)
			assert.Nil(t, req)

			var decErr *DecodeError
			require.True(t, errors.As(err, &decErr))
			assert.Equal(t, tc.reason, decErr.Reason)
			assert.ErrorIs(t, err, lerrors.ErrDecode)
		})
	}
}
