package ledger

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
)

func TestHealthChecker(t *testing.T) {
	genesis := solana.Hash{9, 9, 9}

	server := newMockRPCServer(t, map[string]rpcHandler{
		"getGenesisHash": func(json.RawMessage) (interface{}, map[string]interface{}) {
			return genesis.String(), nil
		},
	})
	client := rpc.New(server.URL)

	testCases := []struct {
		name     string
		expected string
		errMsg   string
	}{
		{name: "no genesis check", expected: ""},
		{name: "full hash", expected: genesis.String()},
		{name: "prefix", expected: genesis.String()[:8]},
		{name: "mismatch", expected: "5eykt4UsFv8P8NJdTREpY1vzqKqZKvdp", errMsg: "genesis hash mismatch"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := NewHealthChecker(tc.expected).CheckHealth(context.Background(), client)
			if tc.errMsg != "" {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tc.errMsg)
				return
			}
			assert.NoError(t, err)
		})
	}

	t.Run("nil client", func(t *testing.T) {
		assert.Error(t, NewHealthChecker("").CheckHealth(context.Background(), nil))
	})
}
