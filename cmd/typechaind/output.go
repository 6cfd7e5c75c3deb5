package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/pterm/pterm"

	"github.com/pushchain/typechain-client/ledgerClient/accountsync"
	"github.com/pushchain/typechain-client/ledgerClient/api"
	"github.com/pushchain/typechain-client/ledgerClient/codec"
	"github.com/pushchain/typechain-client/ledgerClient/core"
	lerrors "github.com/pushchain/typechain-client/ledgerClient/errors"
	"github.com/pushchain/typechain-client/ledgerClient/ledger"
	"github.com/pushchain/typechain-client/ledgerClient/store"
)

// Output formats
const (
	OutputFormatTable = "table"
	OutputFormatJSON  = "json"
)

// ResultOutput is the json rendering of a finished operation.
type ResultOutput struct {
	Operation          string               `json:"operation"`
	OperationID        string               `json:"operation_id,omitempty"`
	Signature          string               `json:"signature,omitempty"`
	Status             string               `json:"status,omitempty"`
	Slot               uint64               `json:"slot,omitempty"`
	Reason             string               `json:"reason,omitempty"`
	ProgramError       string               `json:"program_error,omitempty"`
	AlreadyInitialized bool                 `json:"already_initialized,omitempty"`
	Skipped            bool                 `json:"skipped,omitempty"`
	Resynced           bool                 `json:"resynced"`
	Contest            string               `json:"contest,omitempty"`
	Player             *codec.PlayerRecord  `json:"player,omitempty"`
	ContestRecord      *codec.ContestRecord `json:"contest_record,omitempty"`
}

func newResultOutput(res *core.Result) ResultOutput {
	out := ResultOutput{
		Operation:          res.Operation,
		OperationID:        res.OperationID,
		Status:             string(res.Status),
		Slot:               res.Slot,
		Reason:             res.Reason,
		ProgramError:       res.ProgramError,
		AlreadyInitialized: res.AlreadyInitialized,
		Skipped:            res.Skipped,
		Resynced:           res.Resynced,
		Player:             res.Player,
		ContestRecord:      res.ContestRecord,
	}
	if !res.Signature.IsZero() {
		out.Signature = res.Signature.String()
	}
	if !res.Contest.IsZero() {
		out.Contest = res.Contest.String()
	}
	return out
}

func validateOutputFormat(format string) error {
	if format != OutputFormatTable && format != OutputFormatJSON {
		return fmt.Errorf("invalid output format %q: must be 'table' or 'json'", format)
	}
	return nil
}

func printJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func printResult(w io.Writer, format string, res *core.Result) error {
	if format == OutputFormatJSON {
		return printJSON(w, newResultOutput(res))
	}

	var b strings.Builder
	switch {
	case res.AlreadyInitialized:
		b.WriteString(pterm.Sprintfln("player already initialized, nothing was sent"))
	case res.Skipped:
		b.WriteString(pterm.Sprintfln("no player account yet, practice stats were not sent"))
	default:
		b.WriteString(pterm.Sprintfln("status:     %s", pterm.LightGreen(res.Status)))
		if !res.Signature.IsZero() {
			b.WriteString(pterm.Sprintfln("signature:  %s", res.Signature))
		}
		if res.Slot > 0 {
			b.WriteString(pterm.Sprintfln("slot:       %d", res.Slot))
		}
		if res.Reason != "" {
			b.WriteString(pterm.Sprintfln("reason:     %s", res.Reason))
		}
		if res.ProgramError != "" {
			b.WriteString(pterm.Sprintfln("program:    %s", pterm.LightRed(res.ProgramError)))
		}
		if !res.Resynced && res.Status != "" {
			b.WriteString(pterm.Sprintfln("%s", pterm.LightYellow("local state could not be refreshed, run a show command to retry")))
		}
	}
	if !res.Contest.IsZero() {
		b.WriteString(pterm.Sprintfln("contest:    %s", res.Contest))
	}
	fmt.Fprintln(w, pterm.DefaultBox.WithTitle(res.Operation).Sprint(strings.TrimRight(b.String(), "\n")))

	if res.Player != nil {
		if err := renderTable(w, playerRows(res.Player)); err != nil {
			return err
		}
	}
	if res.ContestRecord != nil {
		return renderTable(w, contestRows(res.ContestRecord))
	}
	return nil
}

func printAccount(w io.Writer, format string, snap *accountsync.Snapshot) error {
	if format == OutputFormatJSON {
		return printJSON(w, api.NewAccountView(snap))
	}
	if !snap.Present() {
		pterm.Fprintln(w, pterm.LightYellow(fmt.Sprintf("%s %s does not exist", snap.Kind, snap.Address)))
		return nil
	}

	var (
		rows    pterm.TableData
		results []codec.ContestResult
	)
	switch rec := snap.Record.(type) {
	case *codec.PlayerRecord:
		rows = playerRows(rec)
	case *codec.ContestRecord:
		rows = contestRows(rec)
		results = rec.Results
	default:
		rows = pterm.TableData{{"field", "value"}}
	}
	header, body := rows[0], rows[1:]
	rows = append(pterm.TableData{header, {"address", snap.Address.String()}}, body...)
	if snap.Stale {
		rows = append(rows, []string{"stale", "true"})
	}
	if err := renderTable(w, rows); err != nil {
		return err
	}
	if len(results) > 0 {
		return renderTable(w, resultRows(results))
	}
	return nil
}

func printContests(w io.Writer, format string, snaps []*accountsync.Snapshot) error {
	if format == OutputFormatJSON {
		views := make([]api.AccountView, 0, len(snaps))
		for _, snap := range snaps {
			views = append(views, api.NewAccountView(snap))
		}
		return printJSON(w, views)
	}
	if len(snaps) == 0 {
		pterm.Fprintln(w, "no contests found")
		return nil
	}

	rows := pterm.TableData{{"address", "status", "text", "duration", "players", "results", "creator"}}
	for _, snap := range snaps {
		rec := snap.Contest()
		if rec == nil {
			continue
		}
		rows = append(rows, []string{
			snap.Address.String(),
			rec.Status.String(),
			strconv.FormatUint(uint64(rec.TextID), 10),
			(time.Duration(rec.DurationSeconds) * time.Second).String(),
			fmt.Sprintf("%d/%d", len(rec.Participants), rec.MaxParticipants),
			strconv.Itoa(len(rec.Results)),
			rec.Creator.String(),
		})
	}
	return renderTable(w, rows)
}

func printTransactions(w io.Writer, format string, recs []store.TransactionRecord) error {
	if format == OutputFormatJSON {
		views := make([]api.TransactionView, 0, len(recs))
		for _, rec := range recs {
			views = append(views, api.NewTransactionView(rec))
		}
		return printJSON(w, views)
	}
	if len(recs) == 0 {
		pterm.Fprintln(w, "no transactions recorded")
		return nil
	}

	rows := pterm.TableData{{"time", "operation", "status", "signature", "program error", "reason"}}
	for _, rec := range recs {
		programErr, _ := ledger.ProgramErrorOf(rec.Reason)
		rows = append(rows, []string{
			rec.CreatedAt.Format(time.RFC3339),
			rec.Operation,
			rec.Status,
			rec.Signature,
			programErr,
			rec.Reason,
		})
	}
	return renderTable(w, rows)
}

func renderTable(w io.Writer, rows pterm.TableData) error {
	out, err := pterm.DefaultTable.WithHasHeader().WithData(rows).Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, out)
	return err
}

func playerRows(rec *codec.PlayerRecord) pterm.TableData {
	return pterm.TableData{
		{"field", "value"},
		{"owner", rec.Owner.String()},
		{"best wpm", strconv.FormatUint(uint64(rec.BestWPM), 10)},
		{"average wpm", strconv.FormatUint(uint64(rec.AverageWPM), 10)},
		{"best accuracy", strconv.FormatUint(uint64(rec.BestAccuracy), 10) + "%"},
		{"words typed", strconv.FormatUint(rec.TotalWordsTyped, 10)},
		{"created", formatUnix(rec.CreatedAt)},
		{"last activity", formatUnix(rec.LastActivity)},
	}
}

func contestRows(rec *codec.ContestRecord) pterm.TableData {
	rows := pterm.TableData{
		{"field", "value"},
		{"creator", rec.Creator.String()},
		{"status", rec.Status.String()},
		{"text id", strconv.FormatUint(uint64(rec.TextID), 10)},
		{"duration", (time.Duration(rec.DurationSeconds) * time.Second).String()},
		{"participants", fmt.Sprintf("%d/%d", len(rec.Participants), rec.MaxParticipants)},
		{"created", formatUnix(rec.CreatedAt)},
	}
	if rec.StartedAt != nil {
		rows = append(rows, []string{"started", formatUnix(*rec.StartedAt)})
	}
	if expires, ok := rec.ExpiresAt(); ok && rec.EndedAt == nil {
		label := expires.UTC().Format(time.RFC3339)
		if rec.IsExpired(time.Now()) {
			label += " (expired, waiting for the program to end it)"
		}
		rows = append(rows, []string{"expires", label})
	}
	if rec.EndedAt != nil {
		rows = append(rows, []string{"ended", formatUnix(*rec.EndedAt)})
	}
	for i, p := range rec.Participants {
		rows = append(rows, []string{fmt.Sprintf("participant %d", i+1), p.String()})
	}
	return rows
}

func resultRows(results []codec.ContestResult) pterm.TableData {
	rows := pterm.TableData{{"position", "player", "wpm", "accuracy", "time"}}
	for _, r := range results {
		rows = append(rows, []string{
			strconv.FormatUint(uint64(r.Position), 10),
			r.Player.String(),
			strconv.FormatUint(uint64(r.WPM), 10),
			strconv.FormatUint(uint64(r.Accuracy), 10) + "%",
			(time.Duration(r.TimeTaken) * time.Second).String(),
		})
	}
	return rows
}

func formatUnix(ts int64) string {
	if ts == 0 {
		return "-"
	}
	return time.Unix(ts, 0).UTC().Format(time.RFC3339)
}

// printError renders a failed command. A dispatched transaction's signature
// is shown with the command that resolves it.
func printError(w io.Writer, err error) {
	var lerr *lerrors.LedgerError
	if !lerrors.As(err, &lerr) {
		pterm.Fprintln(w, pterm.Error.Sprint(err))
		return
	}

	pterm.Fprintln(w, pterm.Error.Sprint(lerr.Error()))
	if desc, ok := lerr.Context[core.ProgramErrorKey].(string); ok {
		pterm.Fprintln(w, "program error: "+desc)
	}
	if lerr.Signature != "" && lerr.Code != lerrors.ErrCodeRejectedByLedger {
		pterm.Fprintln(w, pterm.LightYellow(fmt.Sprintf(
			"transaction %s may still land, run `typechaind tx recheck %s` before retrying", lerr.Signature, lerr.Signature)))
		return
	}
	if lerrors.IsRetryable(err) {
		pterm.Fprintln(w, "retrying may succeed")
	}
}

func parsePublicKey(name, value string) (solana.PublicKey, error) {
	pk, err := solana.PublicKeyFromBase58(value)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid %s %q: %w", name, value, err)
	}
	return pk, nil
}
