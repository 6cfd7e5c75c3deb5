package confirmation

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"

	lerrors "github.com/pushchain/typechain-client/ledgerClient/errors"
	"github.com/pushchain/typechain-client/ledgerClient/ledger"
	"github.com/pushchain/typechain-client/ledgerClient/submitter"
)

// Status is the resolution of a confirmation wait.
type Status string

const (
	// StatusPending is only reported by Check: the target was not reached yet.
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusRejected  Status = "rejected"
	// StatusTimedOut says nothing about whether the transaction landed.
	StatusTimedOut Status = "timed_out"
)

// Outcome is the result of waiting on a transaction.
type Outcome struct {
	Signature solana.Signature
	Status    Status
	Slot      uint64
	// Reason is the ledger failure, verbatim, for StatusRejected.
	Reason  string
	Elapsed time.Duration
}

// Options bounds a confirmation wait.
type Options struct {
	Timeout      time.Duration
	PollInterval time.Duration
}

// Tracker polls signature statuses until a target commitment is reached.
type Tracker struct {
	endpoint     ledger.Endpoint
	timeout      time.Duration
	pollInterval time.Duration
	logger       zerolog.Logger
}

// New creates a Tracker.
func New(endpoint ledger.Endpoint, opts Options, logger zerolog.Logger) (*Tracker, error) {
	if endpoint == nil {
		return nil, fmt.Errorf("endpoint is required")
	}
	if opts.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive")
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 500 * time.Millisecond
	}
	return &Tracker{
		endpoint:     endpoint,
		timeout:      opts.Timeout,
		pollInterval: opts.PollInterval,
		logger:       logger.With().Str("component", "confirmation_tracker").Logger(),
	}, nil
}

// Check queries the status of sig once.
func (t *Tracker) Check(ctx context.Context, sig solana.Signature, target rpc.CommitmentType) (Outcome, error) {
	outcome := Outcome{Signature: sig, Status: StatusPending}
	status, err := t.endpoint.GetSignatureStatus(ctx, sig)
	if err != nil {
		return outcome, lerrors.WrapLedgerError(err, lerrors.ErrCodeNetwork, "get_signature_status", "failed to query signature status")
	}
	if status == nil {
		return outcome, nil
	}
	outcome.Slot = status.Slot
	if status.Failed() {
		outcome.Status = StatusRejected
		outcome.Reason = status.Err
		return outcome, nil
	}
	if status.Reached(target) {
		outcome.Status = StatusConfirmed
	}
	return outcome, nil
}

// AwaitConfirmation polls until handle reaches target, the ledger reports a
// failure, or the configured timeout elapses. Transient query errors are
// logged and polling continues. An error is returned only when ctx ends first.
func (t *Tracker) AwaitConfirmation(ctx context.Context, handle *submitter.Handle, target rpc.CommitmentType) (Outcome, error) {
	start := time.Now()
	deadline := time.NewTimer(t.timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	log := t.logger.With().Str("signature", handle.Signature.String()).Str("target", string(target)).Logger()

	for {
		outcome, err := t.Check(ctx, handle.Signature, target)
		outcome.Elapsed = time.Since(start)
		switch {
		case err != nil:
			log.Warn().Err(err).Msg("signature status query failed, will retry")
		case outcome.Status == StatusConfirmed:
			log.Debug().Uint64("slot", outcome.Slot).Dur("elapsed", outcome.Elapsed).Msg("transaction confirmed")
			return outcome, nil
		case outcome.Status == StatusRejected:
			log.Warn().Str("reason", outcome.Reason).Msg("transaction failed on ledger")
			return outcome, nil
		}

		select {
		case <-ctx.Done():
			return Outcome{Signature: handle.Signature, Status: StatusTimedOut, Elapsed: time.Since(start)},
				lerrors.NewNetworkError("await_confirmation", "wait cancelled", ctx.Err())
		case <-deadline.C:
			log.Warn().Dur("timeout", t.timeout).Msg("confirmation timed out")
			return Outcome{Signature: handle.Signature, Status: StatusTimedOut, Elapsed: time.Since(start)}, nil
		case <-ticker.C:
		}
	}
}
