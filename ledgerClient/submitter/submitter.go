package submitter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"

	lerrors "github.com/pushchain/typechain-client/ledgerClient/errors"
	"github.com/pushchain/typechain-client/ledgerClient/ledger"
	"github.com/pushchain/typechain-client/ledgerClient/signer"
)

// Handle identifies a dispatched transaction.
type Handle struct {
	Signature            solana.Signature
	LastValidBlockHeight uint64
	SubmittedAt          time.Time
}

// Submitter builds, signs and dispatches single-instruction transactions.
// Every Submit call is at most one ledger-visible attempt.
type Submitter struct {
	endpoint ledger.Endpoint
	now      func() time.Time
	logger   zerolog.Logger
}

// New creates a Submitter on endpoint.
func New(endpoint ledger.Endpoint, logger zerolog.Logger) (*Submitter, error) {
	if endpoint == nil {
		return nil, fmt.Errorf("endpoint is required")
	}
	return &Submitter{
		endpoint: endpoint,
		now:      time.Now,
		logger:   logger.With().Str("component", "submitter").Logger(),
	}, nil
}

// Submit wraps ix in a transaction paid by payer, co-signs it with
// extraSigners, asks payer to sign and dispatches it.
//
// A dispatch that fails without a rejection may still have reached the
// ledger. Submit then returns the handle together with the error, and the
// error carries the signature.
func (s *Submitter) Submit(ctx context.Context, operation string, ix solana.Instruction, payer signer.Signer, extraSigners ...solana.PrivateKey) (*Handle, error) {
	if payer == nil {
		return nil, lerrors.NewNotConnectedError(operation)
	}
	if err := ctx.Err(); err != nil {
		return nil, lerrors.NewNetworkError(operation, "cancelled before submission", err)
	}

	// Fetched last so the validity window starts as late as possible.
	token, err := s.endpoint.GetLatestFreshnessToken(ctx)
	if err != nil {
		return nil, lerrors.WrapLedgerError(err, lerrors.ErrCodeNetwork, operation, "failed to fetch recent blockhash")
	}

	tx, err := solana.NewTransaction(
		[]solana.Instruction{ix},
		token.Blockhash,
		solana.TransactionPayer(payer.PublicKey()),
	)
	if err != nil {
		return nil, lerrors.NewInternalError(operation, "failed to build transaction", err)
	}

	if err := s.sign(ctx, operation, tx, payer, extraSigners); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, lerrors.NewNetworkError(operation, "cancelled before dispatch", err)
	}

	sig, err := s.endpoint.SendTransaction(ctx, tx)
	if err != nil {
		var rejection *ledger.RejectionError
		if errors.As(err, &rejection) {
			s.logger.Warn().
				Str("operation", operation).
				Str("reason", rejection.Message).
				Strs("logs", rejection.Logs).
				Msg("transaction rejected by endpoint")
			return nil, lerrors.NewRejectedError(operation, rejection.Message).
				WithSignature(tx.Signatures[0].String()).
				WithContext("logs", rejection.Logs)
		}
		sig := tx.Signatures[0]
		s.logger.Warn().
			Err(err).
			Str("operation", operation).
			Str("signature", sig.String()).
			Msg("dispatch outcome unknown")
		handle := &Handle{
			Signature:            sig,
			LastValidBlockHeight: token.LastValidBlockHeight,
			SubmittedAt:          s.now(),
		}
		return handle, lerrors.WrapLedgerError(err, lerrors.ErrCodeNetwork, operation, "failed to dispatch transaction").
			WithSignature(sig.String())
	}

	s.logger.Info().
		Str("operation", operation).
		Str("signature", sig.String()).
		Uint64("last_valid_block_height", token.LastValidBlockHeight).
		Msg("transaction submitted")

	return &Handle{
		Signature:            sig,
		LastValidBlockHeight: token.LastValidBlockHeight,
		SubmittedAt:          s.now(),
	}, nil
}

func (s *Submitter) sign(ctx context.Context, operation string, tx *solana.Transaction, payer signer.Signer, extraSigners []solana.PrivateKey) error {
	tx.Signatures = make([]solana.Signature, tx.Message.Header.NumRequiredSignatures)

	if len(extraSigners) > 0 {
		_, err := tx.PartialSign(func(key solana.PublicKey) *solana.PrivateKey {
			for i := range extraSigners {
				if extraSigners[i].PublicKey().Equals(key) {
					return &extraSigners[i]
				}
			}
			return nil
		})
		if err != nil {
			return lerrors.NewInternalError(operation, "failed to co-sign transaction", err)
		}
	}

	payerIndex := -1
	for i, key := range tx.Message.AccountKeys[:len(tx.Signatures)] {
		if key.Equals(payer.PublicKey()) {
			payerIndex = i
			break
		}
	}
	if payerIndex < 0 {
		return lerrors.NewInternalError(operation, "payer is not a transaction signer", nil)
	}

	sig, err := payer.SignTransaction(ctx, tx)
	if errors.Is(err, signer.ErrUserRejected) {
		s.logger.Info().Str("operation", operation).Msg("signature request rejected")
		return lerrors.NewUserRejectedError(operation, err)
	}
	if err != nil {
		return lerrors.NewInternalError(operation, "signer failed", err)
	}
	tx.Signatures[payerIndex] = sig

	if err := tx.VerifySignatures(); err != nil {
		return lerrors.NewInternalError(operation, "transaction signatures do not verify", err)
	}
	return nil
}
