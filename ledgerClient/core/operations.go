package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"golang.org/x/sync/errgroup"

	"github.com/pushchain/typechain-client/ledgerClient/codec"
	"github.com/pushchain/typechain-client/ledgerClient/confirmation"
	"github.com/pushchain/typechain-client/ledgerClient/db"
	lerrors "github.com/pushchain/typechain-client/ledgerClient/errors"
	"github.com/pushchain/typechain-client/ledgerClient/ledger"
	"github.com/pushchain/typechain-client/ledgerClient/store"
)

const maxAccuracy = 100

// InitializePlayer creates the connected identity's player account. When the
// account already exists nothing is sent and AlreadyInitialized is set.
func (c *Client) InitializePlayer(ctx context.Context) (*Result, error) {
	op := codec.TagInitializePlayer.String()
	payer, err := c.currentSigner(op)
	if err != nil {
		return nil, err
	}
	owner := payer.PublicKey()
	playerAddr := c.deriver.PlayerAddress(owner)

	release, err := c.acquire(op, playerAddr)
	if err != nil {
		return nil, err
	}
	defer release()

	player, err := c.sync.Fetch(ctx, playerAddr, codec.KindPlayer)
	if err != nil {
		return nil, err
	}
	if player.Present() {
		c.logger.Debug().Str("player", playerAddr.String()).Msg("player already initialized")
		return &Result{Operation: op, AlreadyInitialized: true, Resynced: true, Player: player.Player()}, nil
	}

	return c.execute(ctx, payer, mutation{
		request: codec.InitializePlayer{},
		accounts: solana.AccountMetaSlice{
			solana.NewAccountMeta(owner, true, true),
			solana.NewAccountMeta(playerAddr, true, false),
			solana.NewAccountMeta(solana.SystemProgramID, false, false),
		},
		targets: []solana.PublicKey{playerAddr},
		resync:  c.resyncPlayer(playerAddr),
	})
}

// UpdatePracticeStats records a finished practice test. It is skipped without
// error when the player account does not exist yet.
func (c *Client) UpdatePracticeStats(ctx context.Context, wpm, accuracy, wordsTyped uint32) (*Result, error) {
	op := codec.TagUpdatePracticeStats.String()
	if accuracy > maxAccuracy {
		return nil, lerrors.NewValidationError(op, fmt.Sprintf("accuracy %d is outside [0,%d]", accuracy, maxAccuracy))
	}
	payer, err := c.currentSigner(op)
	if err != nil {
		return nil, err
	}
	owner := payer.PublicKey()
	playerAddr := c.deriver.PlayerAddress(owner)

	release, err := c.acquire(op, playerAddr)
	if err != nil {
		return nil, err
	}
	defer release()

	player, err := c.sync.Fetch(ctx, playerAddr, codec.KindPlayer)
	if err != nil {
		return nil, err
	}
	if !player.Present() {
		c.logger.Debug().Str("player", playerAddr.String()).Msg("player not initialized, skipping practice stats")
		return &Result{Operation: op, Skipped: true}, nil
	}

	return c.execute(ctx, payer, mutation{
		request: codec.UpdatePracticeStats{WPM: wpm, Accuracy: accuracy, WordsTyped: wordsTyped},
		accounts: solana.AccountMetaSlice{
			solana.NewAccountMeta(owner, true, true),
			solana.NewAccountMeta(playerAddr, true, false),
		},
		targets: []solana.PublicKey{playerAddr},
		resync:  c.resyncPlayer(playerAddr),
	})
}

// CreateContest creates a contest at a freshly generated address. The new
// address co-signs the transaction and is returned in Result.Contest.
func (c *Client) CreateContest(ctx context.Context, textID uint32, durationSeconds uint64) (*Result, error) {
	op := codec.TagCreateContest.String()
	if durationSeconds == 0 {
		return nil, lerrors.NewValidationError(op, "duration must be positive")
	}
	payer, err := c.currentSigner(op)
	if err != nil {
		return nil, err
	}

	contestKey, err := c.newContestKey()
	if err != nil {
		return nil, lerrors.NewInternalError(op, "failed to generate contest keypair", err)
	}
	contest := contestKey.PublicKey()

	release, err := c.acquire(op, contest)
	if err != nil {
		return nil, err
	}
	defer release()

	res, err := c.execute(ctx, payer, mutation{
		request: codec.CreateContest{TextID: textID, DurationSeconds: durationSeconds},
		accounts: solana.AccountMetaSlice{
			solana.NewAccountMeta(payer.PublicKey(), true, true),
			solana.NewAccountMeta(contest, true, true),
			solana.NewAccountMeta(solana.SystemProgramID, false, false),
		},
		targets:      []solana.PublicKey{contest},
		extraSigners: []solana.PrivateKey{contestKey},
		resync: func(ctx context.Context, res *Result) error {
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return c.fetchContestInto(gctx, contest, res)
			})
			g.Go(func() error {
				_, err := c.sync.FetchContests(gctx)
				return err
			})
			return g.Wait()
		},
	})
	if res != nil {
		res.Contest = contest
	}
	return res, err
}

// JoinContest adds the connected identity to contest. A contest that is full,
// no longer waiting or already joined is refused locally and nothing is sent.
func (c *Client) JoinContest(ctx context.Context, contest solana.PublicKey) (*Result, error) {
	op := codec.TagJoinContest.String()
	payer, err := c.currentSigner(op)
	if err != nil {
		return nil, err
	}
	owner := payer.PublicKey()
	playerAddr := c.deriver.PlayerAddress(owner)

	release, err := c.acquire(op, playerAddr, contest)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := c.requirePlayer(ctx, op, playerAddr); err != nil {
		return nil, err
	}
	rec, err := c.requireContest(ctx, op, contest)
	if err != nil {
		return nil, err
	}
	switch {
	case rec.HasParticipant(owner):
		return nil, lerrors.NewPreconditionError(op, "already joined this contest")
	case rec.Status != codec.ContestWaiting:
		return nil, lerrors.NewPreconditionError(op, fmt.Sprintf("contest is %s", rec.Status))
	case rec.IsFull():
		return nil, lerrors.NewPreconditionError(op, fmt.Sprintf("contest is full (%d/%d)", len(rec.Participants), rec.MaxParticipants))
	}

	res, err := c.execute(ctx, payer, mutation{
		request:  codec.JoinContest{},
		accounts: contestAccounts(owner, contest, playerAddr),
		targets:  []solana.PublicKey{playerAddr, contest},
		resync: func(ctx context.Context, res *Result) error {
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return c.fetchContestInto(gctx, contest, res)
			})
			g.Go(func() error {
				return c.resyncPlayer(playerAddr)(gctx, res)
			})
			return g.Wait()
		},
	})
	if res != nil {
		res.Contest = contest
	}
	return res, err
}

// SubmitResult records the connected identity's result in an active contest.
// The contest and the player account are re-synchronized concurrently.
func (c *Client) SubmitResult(ctx context.Context, contest solana.PublicKey, wpm, accuracy uint32, timeTakenSeconds uint64) (*Result, error) {
	op := codec.TagSubmitResult.String()
	if accuracy > maxAccuracy {
		return nil, lerrors.NewValidationError(op, fmt.Sprintf("accuracy %d is outside [0,%d]", accuracy, maxAccuracy))
	}
	payer, err := c.currentSigner(op)
	if err != nil {
		return nil, err
	}
	owner := payer.PublicKey()
	playerAddr := c.deriver.PlayerAddress(owner)

	release, err := c.acquire(op, playerAddr, contest)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := c.requirePlayer(ctx, op, playerAddr); err != nil {
		return nil, err
	}
	rec, err := c.requireContest(ctx, op, contest)
	if err != nil {
		return nil, err
	}
	switch {
	case !rec.HasParticipant(owner):
		return nil, lerrors.NewPreconditionError(op, "not a participant of this contest")
	case rec.HasResult(owner):
		return nil, lerrors.NewPreconditionError(op, "result already submitted")
	case rec.Status != codec.ContestActive:
		return nil, lerrors.NewPreconditionError(op, fmt.Sprintf("contest is %s", rec.Status))
	}

	res, err := c.execute(ctx, payer, mutation{
		request:  codec.SubmitResult{WPM: wpm, Accuracy: accuracy, TimeTaken: timeTakenSeconds},
		accounts: contestAccounts(owner, contest, playerAddr),
		targets:  []solana.PublicKey{playerAddr, contest},
		resync: func(ctx context.Context, res *Result) error {
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return c.fetchContestInto(gctx, contest, res)
			})
			g.Go(func() error {
				return c.resyncPlayer(playerAddr)(gctx, res)
			})
			return g.Wait()
		},
	})
	if res != nil {
		res.Contest = contest
	}
	return res, err
}

// Recheck queries the status of a previously submitted transaction once. It
// is how a TimedOut operation is resolved: on confirmation the journal is
// updated and the accounts the operation wrote are fetched again.
func (c *Client) Recheck(ctx context.Context, sig solana.Signature) (*Result, error) {
	outcome, err := c.tracker.Check(ctx, sig, c.commitment)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Operation: "recheck",
		Signature: sig,
		Status:    outcome.Status,
		Slot:      outcome.Slot,
		Reason:    outcome.Reason,
	}
	if desc, ok := ledger.ProgramErrorOf(outcome.Reason); ok {
		res.ProgramError = desc
	}

	rec := c.lookup(sig)
	if rec == nil {
		return res, nil
	}
	res.Operation = rec.Operation
	res.OperationID = rec.OperationID

	switch outcome.Status {
	case confirmation.StatusConfirmed:
		c.update(rec.OperationID, store.TxStatusConfirmed, "", outcome.Slot)
	case confirmation.StatusRejected:
		c.update(rec.OperationID, store.TxStatusRejected, outcome.Reason, outcome.Slot)
	default:
		return res, nil
	}

	targets, kinds, err := c.recordTargets(rec)
	if err != nil {
		c.logger.Warn().Err(err).Str("operation_id", rec.OperationID).Msg("cannot resolve journal addresses")
		return res, nil
	}
	c.sync.Invalidate(targets...)

	resynced := true
	for i, addr := range targets {
		snap, err := c.sync.Fetch(ctx, addr, kinds[i])
		if err != nil {
			c.logger.Warn().Err(err).Str("address", addr.String()).Msg("re-sync after re-check failed")
			resynced = false
			continue
		}
		if p := snap.Player(); p != nil {
			res.Player = p
		}
		if ct := snap.Contest(); ct != nil {
			res.Contest = addr
			res.ContestRecord = ct
		}
	}
	res.Resynced = resynced
	return res, nil
}

func (c *Client) lookup(sig solana.Signature) *store.TransactionRecord {
	if c.journal == nil {
		return nil
	}
	rec, err := c.journal.BySignature(sig.String())
	if err != nil {
		if !errors.Is(err, db.ErrTransactionNotFound) {
			c.logger.Error().Err(err).Str("signature", sig.String()).Msg("journal lookup failed")
		}
		return nil
	}
	return rec
}

// recordTargets resolves the journaled addresses. The payer's player account
// is the only player address an operation writes; every other one is a contest.
func (c *Client) recordTargets(rec *store.TransactionRecord) ([]solana.PublicKey, []codec.AccountKind, error) {
	payer, err := solana.PublicKeyFromBase58(rec.Payer)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid payer %q: %w", rec.Payer, err)
	}
	playerAddr := c.deriver.PlayerAddress(payer)

	var (
		targets []solana.PublicKey
		kinds   []codec.AccountKind
	)
	for _, s := range rec.AddressList() {
		addr, err := solana.PublicKeyFromBase58(s)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid address %q: %w", s, err)
		}
		kind := codec.KindContest
		if addr.Equals(playerAddr) {
			kind = codec.KindPlayer
		}
		targets = append(targets, addr)
		kinds = append(kinds, kind)
	}
	return targets, kinds, nil
}

func (c *Client) requirePlayer(ctx context.Context, op string, playerAddr solana.PublicKey) error {
	player, err := c.sync.Fetch(ctx, playerAddr, codec.KindPlayer)
	if err != nil {
		return err
	}
	if !player.Present() {
		return lerrors.NewPreconditionError(op, "player account is not initialized")
	}
	return nil
}

func (c *Client) requireContest(ctx context.Context, op string, contest solana.PublicKey) (*codec.ContestRecord, error) {
	snap, err := c.sync.Fetch(ctx, contest, codec.KindContest)
	if err != nil {
		return nil, err
	}
	if !snap.Present() {
		return nil, lerrors.NewPreconditionError(op, fmt.Sprintf("contest %s does not exist", contest))
	}
	return snap.Contest(), nil
}

func (c *Client) resyncPlayer(playerAddr solana.PublicKey) func(ctx context.Context, res *Result) error {
	return func(ctx context.Context, res *Result) error {
		snap, err := c.sync.Fetch(ctx, playerAddr, codec.KindPlayer)
		if err != nil {
			return err
		}
		res.Player = snap.Player()
		return nil
	}
}

func (c *Client) fetchContestInto(ctx context.Context, contest solana.PublicKey, res *Result) error {
	snap, err := c.sync.Fetch(ctx, contest, codec.KindContest)
	if err != nil {
		return err
	}
	res.ContestRecord = snap.Contest()
	return nil
}

func contestAccounts(owner, contest, playerAddr solana.PublicKey) solana.AccountMetaSlice {
	return solana.AccountMetaSlice{
		solana.NewAccountMeta(owner, true, true),
		solana.NewAccountMeta(contest, true, false),
		solana.NewAccountMeta(playerAddr, true, false),
	}
}
