package signer

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/gagliardetto/solana-go"

	"github.com/pushchain/typechain-client/ledgerClient/codec"
)

// ConfirmFunc asks the key holder to approve summary.
type ConfirmFunc func(summary string) (bool, error)

// PromptSigner asks for approval before delegating to an inner signer.
// Declining yields ErrUserRejected.
type PromptSigner struct {
	inner   Signer
	confirm ConfirmFunc
}

var _ Signer = (*PromptSigner)(nil)

func NewPromptSigner(inner Signer, confirm ConfirmFunc) (*PromptSigner, error) {
	if inner == nil {
		return nil, fmt.Errorf("inner signer is required")
	}
	if confirm == nil {
		return nil, fmt.Errorf("confirm func is required")
	}
	return &PromptSigner{inner: inner, confirm: confirm}, nil
}

func (s *PromptSigner) PublicKey() solana.PublicKey {
	return s.inner.PublicKey()
}

func (s *PromptSigner) SignTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	ok, err := s.confirm(Describe(tx))
	if err != nil {
		return solana.Signature{}, fmt.Errorf("approval prompt failed: %w", err)
	}
	if !ok {
		return solana.Signature{}, ErrUserRejected
	}
	return s.inner.SignTransaction(ctx, tx)
}

// Describe renders a one line summary of the program instructions in tx.
func Describe(tx *solana.Transaction) string {
	ops := make([]string, 0, len(tx.Message.Instructions))
	for _, ix := range tx.Message.Instructions {
		req, err := codec.DecodeInstruction(ix.Data)
		if err != nil {
			ops = append(ops, "unknown instruction")
			continue
		}
		ops = append(ops, describeRequest(req))
	}
	payer := "none"
	if len(tx.Message.AccountKeys) > 0 {
		payer = tx.Message.AccountKeys[0].String()
	}
	return fmt.Sprintf("sign %s (fee payer %s)", strings.Join(ops, ", "), payer)
}

func describeRequest(req codec.Request) string {
	switch r := req.(type) {
	case codec.CreateContest:
		return fmt.Sprintf("%s text=%d duration=%ds", r.Tag(), r.TextID, r.DurationSeconds)
	case codec.SubmitResult:
		return fmt.Sprintf("%s wpm=%d accuracy=%d time=%ds", r.Tag(), r.WPM, r.Accuracy, r.TimeTaken)
	case codec.UpdatePracticeStats:
		return fmt.Sprintf("%s wpm=%d accuracy=%d words=%d", r.Tag(), r.WPM, r.Accuracy, r.WordsTyped)
	default:
		return req.Tag().String()
	}
}

// LineConfirm prompts on out and approves when the answer on in starts with y.
func LineConfirm(in io.Reader, out io.Writer) ConfirmFunc {
	reader := bufio.NewReader(in)
	return func(summary string) (bool, error) {
		if _, err := fmt.Fprintf(out, "%s? [y/N]: ", summary); err != nil {
			return false, err
		}
		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return false, err
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "y" || answer == "yes", nil
	}
}
