package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"

	"github.com/pushchain/typechain-client/ledgerClient/codec"
	"github.com/pushchain/typechain-client/ledgerClient/confirmation"
	"github.com/pushchain/typechain-client/ledgerClient/db"
	lerrors "github.com/pushchain/typechain-client/ledgerClient/errors"
	"github.com/pushchain/typechain-client/ledgerClient/ledger"
	"github.com/pushchain/typechain-client/ledgerClient/signer"
	"github.com/pushchain/typechain-client/ledgerClient/store"
)

// mutation is one program instruction and what to refresh once it lands.
type mutation struct {
	request      codec.Request
	accounts     solana.AccountMetaSlice
	targets      []solana.PublicKey
	extraSigners []solana.PrivateKey
	resync       func(ctx context.Context, res *Result) error
}

// execute runs submit, confirm and re-sync for m. It never retries: every
// failure is returned classified and the cached targets are left stale when
// the ledger may have changed.
func (c *Client) execute(ctx context.Context, payer signer.Signer, m mutation) (*Result, error) {
	c.metrics.IncInFlight()
	defer c.metrics.DecInFlight()

	operation := m.request.Tag().String()
	opID := uuid.NewString()
	data := codec.Encode(m.request)
	ix := solana.NewInstruction(c.deriver.ProgramID(), m.accounts, data)

	log := c.logger.With().
		Str("operation", operation).
		Str("operation_id", opID).
		Logger()

	rec := &store.TransactionRecord{
		OperationID: opID,
		Operation:   operation,
		Payer:       payer.PublicKey().String(),
		Addresses:   joinKeys(m.targets),
		Instruction: data,
	}

	handle, err := c.submitter.Submit(ctx, operation, ix, payer, m.extraSigners...)
	if err != nil && handle != nil {
		// Dispatch failed without a rejection: the transaction may have landed.
		c.metrics.ObserveSubmission(operation, outcomeLabel(err))
		rec.Signature = handle.Signature.String()
		rec.Status = store.TxStatusTimedOut
		rec.Reason = reasonOf(err)
		c.record(rec)
		c.sync.Invalidate(m.targets...)
		log.Warn().Err(err).Str("signature", rec.Signature).Msg("dispatch outcome unknown, re-check the signature before retrying")
		return nil, err
	}
	if err != nil {
		c.metrics.ObserveSubmission(operation, outcomeLabel(err))
		rec.Status = store.TxStatusFailed
		var lerr *lerrors.LedgerError
		if lerrors.As(err, &lerr) {
			rec.Signature = lerr.Signature
			if lerr.Code == lerrors.ErrCodeRejectedByLedger {
				rec.Status = store.TxStatusRejected
				withProgramError(lerr)
			}
		}
		rec.Reason = reasonOf(err)
		c.record(rec)
		return nil, err
	}
	c.metrics.ObserveSubmission(operation, store.TxStatusSubmitted)

	rec.Signature = handle.Signature.String()
	rec.Status = store.TxStatusSubmitted
	c.record(rec)

	outcome, err := c.tracker.AwaitConfirmation(ctx, handle, c.commitment)
	c.metrics.ObserveConfirmation(operation, string(outcome.Status), outcome.Elapsed)

	// Whatever happened, the snapshot taken before submission can no longer be trusted.
	c.sync.Invalidate(m.targets...)

	sig := handle.Signature.String()
	if err != nil {
		c.update(opID, store.TxStatusTimedOut, err.Error(), 0)
		return nil, lerrors.WrapLedgerError(err, lerrors.ErrCodeNetwork, operation, "confirmation wait interrupted").WithSignature(sig)
	}

	switch outcome.Status {
	case confirmation.StatusRejected:
		c.update(opID, store.TxStatusRejected, outcome.Reason, outcome.Slot)
		return nil, withProgramError(lerrors.NewRejectedError(operation, outcome.Reason).WithSignature(sig))
	case confirmation.StatusTimedOut:
		c.update(opID, store.TxStatusTimedOut, "", 0)
		return nil, lerrors.NewTimeoutError(operation,
			fmt.Sprintf("no %s status after %s, re-check the signature before retrying", c.commitment, outcome.Elapsed.Round(time.Millisecond))).
			WithSignature(sig)
	}

	c.update(opID, store.TxStatusConfirmed, "", outcome.Slot)
	log.Info().Str("signature", sig).Uint64("slot", outcome.Slot).Msg("operation confirmed")

	res := &Result{
		Operation:   operation,
		OperationID: opID,
		Signature:   handle.Signature,
		Status:      outcome.Status,
		Slot:        outcome.Slot,
	}
	if m.resync != nil {
		if err := m.resync(ctx, res); err != nil {
			log.Warn().Err(err).Msg("re-sync after confirmation failed, cached state stays stale")
			return res, nil
		}
	}
	res.Resynced = true
	return res, nil
}

func (c *Client) record(rec *store.TransactionRecord) {
	if c.journal == nil {
		return
	}
	if err := c.journal.Record(rec); err != nil {
		c.logger.Error().Err(err).Str("operation_id", rec.OperationID).Msg("failed to journal operation")
	}
}

func (c *Client) update(opID, status, reason string, slot uint64) {
	if c.journal == nil {
		return
	}
	if err := c.journal.UpdateStatus(opID, status, reason, slot); err != nil {
		c.logger.Error().Err(err).Str("operation_id", opID).Str("status", status).Msg("failed to update journal")
	}
}

// withProgramError names the program error behind a rejection. Reason stays verbatim.
func withProgramError(err *lerrors.LedgerError) *lerrors.LedgerError {
	if desc, ok := ledger.ProgramErrorOf(err.Reason); ok {
		err.WithContext(ProgramErrorKey, desc)
	}
	return err
}

func outcomeLabel(err error) string {
	code := lerrors.CodeOf(err)
	if code == "" {
		return "failed"
	}
	return strings.ToLower(string(code))
}

func reasonOf(err error) string {
	if reason := lerrors.ReasonOf(err); reason != "" {
		return reason
	}
	return err.Error()
}

func joinKeys(keys []solana.PublicKey) string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k.String())
	}
	return db.JoinAddresses(out)
}
