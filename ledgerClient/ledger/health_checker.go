package ledger

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go/rpc"
)

// HealthChecker verifies that an endpoint is usable and on the expected cluster
type HealthChecker struct {
	expectedGenesisHash string
}

// NewHealthChecker creates a new health checker
func NewHealthChecker(expectedGenesisHash string) *HealthChecker {
	return &HealthChecker{
		expectedGenesisHash: expectedGenesisHash,
	}
}

// CheckHealth performs a health check on a Solana RPC client
func (h *HealthChecker) CheckHealth(ctx context.Context, client *rpc.Client) error {
	if client == nil {
		return fmt.Errorf("client is nil")
	}

	health, err := client.GetHealth(ctx)
	if err != nil {
		return fmt.Errorf("failed to get health status: %w", err)
	}

	if health != rpc.HealthOk {
		return fmt.Errorf("node is not healthy: %s", health)
	}

	if h.expectedGenesisHash != "" {
		genesisHash, err := client.GetGenesisHash(ctx)
		if err != nil {
			return fmt.Errorf("failed to get genesis hash: %w", err)
		}

		// A configured prefix is enough to identify the cluster
		actualHash := genesisHash.String()
		if len(actualHash) > len(h.expectedGenesisHash) {
			actualHash = actualHash[:len(h.expectedGenesisHash)]
		}

		if actualHash != h.expectedGenesisHash {
			return fmt.Errorf("genesis hash mismatch: expected %s, got %s",
				h.expectedGenesisHash, genesisHash.String())
		}
	}

	return nil
}
