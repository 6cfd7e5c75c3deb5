package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerErrorIs(t *testing.T) {
	testCases := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{"timeout matches sentinel", NewTimeoutError("join_contest", "confirmation timed out"), ErrTimedOut, true},
		{"rejected matches sentinel", NewRejectedError("submit_result", "custom program error: 0x6"), ErrRejectedByLedger, true},
		{"wrapped busy matches", fmt.Errorf("outer: %w", NewBusyError("join_contest", "abc")), ErrBusy, true},
		{"code mismatch", NewNetworkError("fetch", "dial failed", nil), ErrTimedOut, false},
		{"plain error", errors.New("boom"), ErrNetwork, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, errors.Is(tc.err, tc.target))
		})
	}
}

func TestLedgerErrorMessage(t *testing.T) {
	err := NewRejectedError("create_contest", "insufficient funds for rent").WithSignature("sig")
	assert.Contains(t, err.Error(), "create_contest")
	assert.Contains(t, err.Error(), "insufficient funds for rent")
	assert.Equal(t, "insufficient funds for rent", ReasonOf(fmt.Errorf("x: %w", err)))
	assert.Equal(t, "sig", err.Signature)

	cause := errors.New("connection refused")
	netErr := NewNetworkError("", "failed to reach endpoint", cause)
	assert.Equal(t, "[NETWORK] MEDIUM: failed to reach endpoint: connection refused", netErr.Error())
	assert.ErrorIs(t, netErr, cause)
}

func TestWrapLedgerError(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		assert.Nil(t, WrapLedgerError(nil, ErrCodeNetwork, "op", "msg"))
	})

	t.Run("existing ledger error keeps its code", func(t *testing.T) {
		orig := NewPreconditionError("", "contest is full")
		wrapped := WrapLedgerError(fmt.Errorf("ctx: %w", orig), ErrCodeInternal, "join_contest", "join failed")
		require.NotNil(t, wrapped)
		assert.Equal(t, ErrCodePrecondition, wrapped.Code)
		assert.Equal(t, "join_contest", wrapped.Operation)
		assert.Equal(t, "join failed", wrapped.Context["wrapped_message"])
	})

	t.Run("plain error gets the given code", func(t *testing.T) {
		wrapped := WrapLedgerError(errors.New("disk full"), ErrCodeDatabase, "journal", "write failed")
		assert.Equal(t, ErrCodeDatabase, CodeOf(wrapped))
		assert.Equal(t, SeverityHigh, GetSeverity(wrapped))
	})
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(NewNetworkError("", "x", nil)))
	assert.True(t, IsRetryable(NewBusyError("", "a")))
	assert.False(t, IsRetryable(NewTimeoutError("", "x")))
	assert.False(t, IsRetryable(NewRejectedError("", "x")))
	assert.False(t, IsRetryable(errors.New("timeout")))
	assert.False(t, IsRetryable(nil))
}

func TestWrapf(t *testing.T) {
	assert.Nil(t, Wrapf(nil, "x %d", 1))
	err := Wrapf(ErrDecode, "account %s", "abc")
	assert.Equal(t, ErrCodeDecode, CodeOf(err))
	assert.Contains(t, err.Error(), "account abc")
}
