package confirmation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lerrors "github.com/pushchain/typechain-client/ledgerClient/errors"
	"github.com/pushchain/typechain-client/ledgerClient/ledger"
	"github.com/pushchain/typechain-client/ledgerClient/submitter"
)

// scriptedEndpoint answers status queries from a fixed script, then repeats the last entry.
type scriptedEndpoint struct {
	ledger.Endpoint

	mu     sync.Mutex
	script []scriptStep
	calls  int
}

type scriptStep struct {
	status *ledger.SignatureStatus
	err    error
}

func (s *scriptedEndpoint) GetSignatureStatus(ctx context.Context, sig solana.Signature) (*ledger.SignatureStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	step := s.script[len(s.script)-1]
	if s.calls < len(s.script) {
		step = s.script[s.calls]
	}
	s.calls++
	return step.status, step.err
}

func (s *scriptedEndpoint) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func newTracker(t *testing.T, ep ledger.Endpoint, timeout time.Duration) *Tracker {
	t.Helper()
	tr, err := New(ep, Options{Timeout: timeout, PollInterval: 5 * time.Millisecond}, zerolog.New(zerolog.NewTestWriter(t)))
	require.NoError(t, err)
	return tr
}

func TestNew(t *testing.T) {
	_, err := New(nil, Options{Timeout: time.Second}, zerolog.Nop())
	assert.Error(t, err)

	_, err = New(&scriptedEndpoint{}, Options{}, zerolog.Nop())
	assert.Error(t, err)

	tr, err := New(&scriptedEndpoint{}, Options{Timeout: time.Second}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, tr.pollInterval)
}

func TestAwaitConfirmation(t *testing.T) {
	processed := &ledger.SignatureStatus{Slot: 5, Commitment: rpc.ConfirmationStatusProcessed}
	confirmed := &ledger.SignatureStatus{Slot: 5, Commitment: rpc.ConfirmationStatusConfirmed}
	failed := &ledger.SignatureStatus{Slot: 6, Commitment: rpc.ConfirmationStatusConfirmed, Err: `{"InstructionError":[0,{"Custom":3}]}`}

	testCases := []struct {
		name    string
		script  []scriptStep
		target  rpc.CommitmentType
		timeout time.Duration
		status  Status
		reason  string
	}{
		{
			name:    "confirmed after unknown and processed",
			script:  []scriptStep{{}, {status: processed}, {status: confirmed}},
			target:  rpc.CommitmentConfirmed,
			timeout: time.Second,
			status:  StatusConfirmed,
		},
		{
			name:    "processed is enough for processed target",
			script:  []scriptStep{{status: processed}},
			target:  rpc.CommitmentProcessed,
			timeout: time.Second,
			status:  StatusConfirmed,
		},
		{
			name:    "ledger failure is rejected verbatim",
			script:  []scriptStep{{}, {status: failed}},
			target:  rpc.CommitmentConfirmed,
			timeout: time.Second,
			status:  StatusRejected,
			reason:  `{"InstructionError":[0,{"Custom":3}]}`,
		},
		{
			name:    "transient errors keep polling",
			script:  []scriptStep{{err: errors.New("503")}, {err: errors.New("503")}, {status: confirmed}},
			target:  rpc.CommitmentConfirmed,
			timeout: time.Second,
			status:  StatusConfirmed,
		},
		{
			name:    "never confirmed times out",
			script:  []scriptStep{{status: processed}},
			target:  rpc.CommitmentFinalized,
			timeout: 40 * time.Millisecond,
			status:  StatusTimedOut,
		},
		{
			name:    "endpoint down until timeout",
			script:  []scriptStep{{err: errors.New("connection refused")}},
			target:  rpc.CommitmentConfirmed,
			timeout: 40 * time.Millisecond,
			status:  StatusTimedOut,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ep := &scriptedEndpoint{script: tc.script}
			tr := newTracker(t, ep, tc.timeout)
			handle := &submitter.Handle{Signature: solana.Signature{9}}

			outcome, err := tr.AwaitConfirmation(context.Background(), handle, tc.target)
			require.NoError(t, err)
			assert.Equal(t, tc.status, outcome.Status)
			assert.Equal(t, tc.reason, outcome.Reason)
			assert.Equal(t, handle.Signature, outcome.Signature)
			if tc.status == StatusTimedOut {
				assert.GreaterOrEqual(t, outcome.Elapsed, tc.timeout)
				assert.Greater(t, ep.callCount(), 1)
			}
		})
	}
}

func TestAwaitConfirmationCancelled(t *testing.T) {
	ep := &scriptedEndpoint{script: []scriptStep{{}}}
	tr := newTracker(t, ep, time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	outcome, err := tr.AwaitConfirmation(ctx, &submitter.Handle{Signature: solana.Signature{1}}, rpc.CommitmentConfirmed)
	require.Error(t, err)
	assert.ErrorIs(t, err, lerrors.ErrNetwork)
	assert.Equal(t, StatusTimedOut, outcome.Status)
}

func TestCheck(t *testing.T) {
	ep := &scriptedEndpoint{script: []scriptStep{{}, {err: errors.New("boom")}}}
	tr := newTracker(t, ep, time.Second)

	outcome, err := tr.Check(context.Background(), solana.Signature{2}, rpc.CommitmentConfirmed)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, outcome.Status)

	_, err = tr.Check(context.Background(), solana.Signature{2}, rpc.CommitmentConfirmed)
	assert.ErrorIs(t, err, lerrors.ErrNetwork)
}
