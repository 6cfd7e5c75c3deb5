package ledgertest

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/pushchain/typechain-client/ledgerClient/codec"
	"github.com/pushchain/typechain-client/ledgerClient/ledger"
)

const defaultMaxParticipants = 10

// instructionError is a failed instruction, either a custom program code or a
// builtin ledger error name.
type instructionError struct {
	custom  bool
	code    uint32
	builtin string
}

func customErr(code uint32) *instructionError { return &instructionError{custom: true, code: code} }

var errMissingSignature = &instructionError{builtin: "MissingRequiredSignature"}

func (e *instructionError) simulationText() string {
	if e.custom {
		return fmt.Sprintf("custom program error: 0x%x", e.code)
	}
	return "missing required signature for instruction"
}

func (e *instructionError) statusText(index int) string {
	if e.custom {
		return ledger.InstructionErrorReason(index, e.code)
	}
	return fmt.Sprintf(`{"InstructionError":[%d,"%s"]}`, index, e.builtin)
}

type ixContext struct {
	l       *Ledger
	staged  map[solana.PublicKey]ledger.AccountInfo
	keys    []solana.PublicKey
	signers map[solana.PublicKey]bool
	now     int64
}

// execute runs every program instruction of tx against staged copies of the
// touched accounts. The caller commits staged only when no error is returned.
func (l *Ledger) execute(tx *solana.Transaction, staged map[solana.PublicKey]ledger.AccountInfo) (int, *instructionError) {
	msg := &tx.Message
	ctx := &ixContext{
		l:       l,
		staged:  staged,
		signers: make(map[solana.PublicKey]bool),
		now:     l.now().Unix(),
	}
	for i, key := range msg.AccountKeys {
		if i < int(msg.Header.NumRequiredSignatures) {
			ctx.signers[key] = true
		}
	}

	for i, ix := range msg.Instructions {
		if int(ix.ProgramIDIndex) >= len(msg.AccountKeys) {
			return i, customErr(ledger.ErrInvalidInstruction)
		}
		if !msg.AccountKeys[ix.ProgramIDIndex].Equals(l.programID) {
			continue
		}
		keys := make([]solana.PublicKey, 0, len(ix.Accounts))
		for _, idx := range ix.Accounts {
			if int(idx) >= len(msg.AccountKeys) {
				return i, customErr(ledger.ErrInvalidInstruction)
			}
			keys = append(keys, msg.AccountKeys[idx])
		}
		ctx.keys = keys
		if err := ctx.run(ix.Data); err != nil {
			return i, err
		}
	}
	return 0, nil
}

func (c *ixContext) account(addr solana.PublicKey) (ledger.AccountInfo, bool) {
	if acc, ok := c.staged[addr]; ok {
		return acc, true
	}
	acc, ok := c.l.accounts[addr]
	return acc, ok
}

func (c *ixContext) store(addr solana.PublicKey, data []byte) {
	c.staged[addr] = ledger.AccountInfo{
		Address:  addr,
		Owner:    c.l.programID,
		Lamports: 1_000_000,
		Data:     data,
	}
}

func (c *ixContext) requireAccounts(n int) *instructionError {
	if len(c.keys) < n {
		return customErr(ledger.ErrInvalidInstruction)
	}
	if !c.signers[c.keys[0]] {
		return errMissingSignature
	}
	return nil
}

func (c *ixContext) run(data []byte) *instructionError {
	req, err := codec.DecodeInstruction(data)
	if err != nil {
		return customErr(ledger.ErrInvalidInstruction)
	}

	switch r := req.(type) {
	case codec.InitializePlayer:
		return c.initializePlayer()
	case codec.CreateContest:
		return c.createContest(r)
	case codec.JoinContest:
		return c.joinContest()
	case codec.SubmitResult:
		return c.submitResult(r)
	case codec.UpdatePracticeStats:
		return c.updatePracticeStats(r)
	default:
		return customErr(ledger.ErrInvalidInstruction)
	}
}

func (c *ixContext) initializePlayer() *instructionError {
	if err := c.requireAccounts(3); err != nil {
		return err
	}
	payer, playerAddr := c.keys[0], c.keys[1]
	if !playerAddr.Equals(c.l.PlayerAddress(payer)) {
		return customErr(ledger.ErrInvalidAccountData)
	}
	if _, exists := c.account(playerAddr); exists {
		return customErr(ledger.ErrPlayerAlreadyInitialized)
	}
	c.store(playerAddr, codec.EncodePlayer(&codec.PlayerRecord{
		Owner:        payer,
		CreatedAt:    c.now,
		LastActivity: c.now,
	}))
	return nil
}

func (c *ixContext) createContest(r codec.CreateContest) *instructionError {
	if err := c.requireAccounts(3); err != nil {
		return err
	}
	creator, contestAddr := c.keys[0], c.keys[1]
	// The contest account is created by the system program and must sign.
	if !c.signers[contestAddr] {
		return errMissingSignature
	}
	if _, exists := c.account(contestAddr); exists {
		return customErr(ledger.ErrInvalidAccountData)
	}
	data, err := codec.EncodeContest(&codec.ContestRecord{
		Creator:         creator,
		TextID:          r.TextID,
		DurationSeconds: r.DurationSeconds,
		Status:          codec.ContestWaiting,
		Participants:    []solana.PublicKey{},
		Results:         []codec.ContestResult{},
		CreatedAt:       c.now,
		MaxParticipants: defaultMaxParticipants,
	})
	if err != nil {
		return customErr(ledger.ErrInvalidAccountData)
	}
	c.store(contestAddr, data)
	return nil
}

func (c *ixContext) loadContest(addr solana.PublicKey) (*codec.ContestRecord, *instructionError) {
	acc, ok := c.account(addr)
	if !ok || !acc.Owner.Equals(c.l.programID) {
		return nil, customErr(ledger.ErrContestNotFound)
	}
	rec, err := codec.DecodeContest(acc.Data)
	if err != nil {
		return nil, customErr(ledger.ErrInvalidAccountData)
	}
	return rec, nil
}

func (c *ixContext) loadPlayer(addr solana.PublicKey) (*codec.PlayerRecord, *instructionError) {
	acc, ok := c.account(addr)
	if !ok {
		return nil, customErr(ledger.ErrInvalidAccountData)
	}
	rec, err := codec.DecodePlayer(acc.Data)
	if err != nil {
		return nil, customErr(ledger.ErrInvalidAccountData)
	}
	return rec, nil
}

func (c *ixContext) storeContest(addr solana.PublicKey, rec *codec.ContestRecord) *instructionError {
	data, err := codec.EncodeContest(rec)
	if err != nil {
		return customErr(ledger.ErrInvalidAccountData)
	}
	c.store(addr, data)
	return nil
}

func (c *ixContext) joinContest() *instructionError {
	if err := c.requireAccounts(3); err != nil {
		return err
	}
	player, contestAddr, playerAddr := c.keys[0], c.keys[1], c.keys[2]
	if !playerAddr.Equals(c.l.PlayerAddress(player)) {
		return customErr(ledger.ErrInvalidAccountData)
	}
	contest, ierr := c.loadContest(contestAddr)
	if ierr != nil {
		return ierr
	}
	if !contest.CanJoin(player) {
		return customErr(ledger.ErrContestFull)
	}
	contest.Participants = append(contest.Participants, player)
	if len(contest.Participants) >= 2 && contest.Status == codec.ContestWaiting {
		started := c.now
		contest.Status = codec.ContestActive
		contest.StartedAt = &started
	}
	return c.storeContest(contestAddr, contest)
}

func (c *ixContext) submitResult(r codec.SubmitResult) *instructionError {
	if err := c.requireAccounts(3); err != nil {
		return err
	}
	player, contestAddr, playerAddr := c.keys[0], c.keys[1], c.keys[2]
	contest, ierr := c.loadContest(contestAddr)
	if ierr != nil {
		return ierr
	}
	if contest.Status != codec.ContestActive || !contest.HasParticipant(player) || contest.HasResult(player) {
		return customErr(ledger.ErrContestNotActive)
	}
	contest.Results = append(contest.Results, codec.ContestResult{
		Player:    player,
		WPM:       r.WPM,
		Accuracy:  r.Accuracy,
		TimeTaken: r.TimeTaken,
	})

	stats, ierr := c.loadPlayer(playerAddr)
	if ierr != nil {
		return ierr
	}
	applyPractice(stats, r.WPM, r.Accuracy, (r.WPM*uint32(r.TimeTaken))/60, c.now)

	if len(contest.Results) == len(contest.Participants) {
		ended := c.now
		contest.Status = codec.ContestEnded
		contest.EndedAt = &ended
	}
	if ierr := c.storeContest(contestAddr, contest); ierr != nil {
		return ierr
	}
	c.store(playerAddr, codec.EncodePlayer(stats))
	return nil
}

func (c *ixContext) updatePracticeStats(r codec.UpdatePracticeStats) *instructionError {
	if err := c.requireAccounts(2); err != nil {
		return err
	}
	player, playerAddr := c.keys[0], c.keys[1]
	if !playerAddr.Equals(c.l.PlayerAddress(player)) {
		return customErr(ledger.ErrInvalidAccountData)
	}
	stats, ierr := c.loadPlayer(playerAddr)
	if ierr != nil {
		return ierr
	}
	applyPractice(stats, r.WPM, r.Accuracy, r.WordsTyped, c.now)
	c.store(playerAddr, codec.EncodePlayer(stats))
	return nil
}

// applyPractice folds one finished test into the running statistics,
// with the program's integer arithmetic.
func applyPractice(p *codec.PlayerRecord, wpm, accuracy, words uint32, now int64) {
	p.TotalTests++
	if wpm > p.BestWPM {
		p.BestWPM = wpm
	}
	if accuracy > p.BestAccuracy {
		p.BestAccuracy = accuracy
	}
	p.TotalWordsTyped += uint64(words)
	p.AverageWPM = (p.AverageWPM*(p.TotalTests-1) + wpm) / p.TotalTests
	p.LastActivity = now
}
