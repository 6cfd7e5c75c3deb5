package signer

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"
)

// ErrUserRejected is returned when the holder of the key declines to sign.
var ErrUserRejected = errors.New("user rejected the signature request")

// Signer is the external signing capability. It signs the transaction
// message for PublicKey and returns the signature without modifying tx.
type Signer interface {
	PublicKey() solana.PublicKey
	SignTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
}
