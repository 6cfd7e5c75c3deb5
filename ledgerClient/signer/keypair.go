package signer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gagliardetto/solana-go"
)

// KeypairSigner signs with a private key held in memory.
type KeypairSigner struct {
	key solana.PrivateKey
}

var _ Signer = (*KeypairSigner)(nil)

// NewKeypairSigner wraps an existing private key.
func NewKeypairSigner(key solana.PrivateKey) (*KeypairSigner, error) {
	if len(key) != 64 {
		return nil, fmt.Errorf("private key must be 64 bytes, got %d", len(key))
	}
	return &KeypairSigner{key: key}, nil
}

// LoadKeypairSigner reads a Solana keygen JSON file.
func LoadKeypairSigner(path string) (*KeypairSigner, error) {
	key, err := solana.PrivateKeyFromSolanaKeygenFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to load keypair from %s: %w", path, err)
	}
	return NewKeypairSigner(key)
}

// GenerateKeypairFile creates a new keypair at path in Solana keygen format.
// An existing file is never overwritten.
func GenerateKeypairFile(path string) (*KeypairSigner, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("keypair file %s already exists", path)
	}
	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate keypair: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create key directory: %w", err)
	}

	// solana-keygen stores the 64 key bytes as a JSON array of numbers
	ints := make([]int, len(key))
	for i, b := range key {
		ints[i] = int(b)
	}
	raw, err := json.Marshal(ints)
	if err != nil {
		return nil, fmt.Errorf("failed to encode keypair: %w", err)
	}

	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write keypair file: %w", err)
	}
	return NewKeypairSigner(key)
}

func (s *KeypairSigner) PublicKey() solana.PublicKey {
	return s.key.PublicKey()
}

// SignTransaction signs the serialized message of tx.
func (s *KeypairSigner) SignTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	if err := ctx.Err(); err != nil {
		return solana.Signature{}, err
	}
	msg, err := tx.Message.MarshalBinary()
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to serialize message: %w", err)
	}
	return s.key.Sign(msg)
}
