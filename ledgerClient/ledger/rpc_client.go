package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/rs/zerolog"

	lerrors "github.com/pushchain/typechain-client/ledgerClient/errors"
)

// Options configures an RPCClient.
type Options struct {
	URLs                []string
	ExpectedGenesisHash string
	Commitment          rpc.CommitmentType
	SkipPreflight       bool
	RequestTimeout      time.Duration
}

// RPCClient implements Endpoint over one or more JSON-RPC URLs.
// Reads fail over round-robin; SendTransaction goes to a single endpoint.
type RPCClient struct {
	clients       []*rpc.Client
	index         uint64
	mu            sync.RWMutex
	commitment    rpc.CommitmentType
	skipPreflight bool
	timeout       time.Duration
	logger        zerolog.Logger
}

var _ Endpoint = (*RPCClient)(nil)

// NewRPCClient creates a client from RPC URLs, keeping only endpoints that pass the health check
func NewRPCClient(ctx context.Context, opts Options, logger zerolog.Logger) (*RPCClient, error) {
	if len(opts.URLs) == 0 {
		return nil, fmt.Errorf("no RPC URLs provided")
	}
	if opts.Commitment == "" {
		opts.Commitment = rpc.CommitmentConfirmed
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 10 * time.Second
	}

	log := logger.With().Str("component", "ledger_rpc_client").Logger()
	checker := NewHealthChecker(opts.ExpectedGenesisHash)
	clients := make([]*rpc.Client, 0, len(opts.URLs))

	for _, url := range opts.URLs {
		client := rpc.New(url)

		checkCtx, cancel := context.WithTimeout(ctx, opts.RequestTimeout)
		err := checker.CheckHealth(checkCtx, client)
		cancel()
		if err != nil {
			log.Warn().Err(err).Str("url", url).Msg("endpoint failed health check, skipping")
			continue
		}

		clients = append(clients, client)
		log.Info().Str("url", url).Msg("connected to RPC endpoint")
	}

	if len(clients) == 0 {
		return nil, lerrors.NewNetworkError("connect", "failed to connect to any valid RPC endpoints", nil)
	}

	return &RPCClient{
		clients:       clients,
		commitment:    opts.Commitment,
		skipPreflight: opts.SkipPreflight,
		timeout:       opts.RequestTimeout,
		logger:        log,
	}, nil
}

// executeWithFailover executes a function with round-robin failover.
// ErrAccountNotFound is an answer, not a failure, and stops the loop.
func (rc *RPCClient) executeWithFailover(ctx context.Context, operation string, fn func(context.Context, *rpc.Client) error) error {
	rc.mu.RLock()
	clients := rc.clients
	rc.mu.RUnlock()

	if len(clients) == 0 {
		return lerrors.NewNetworkError(operation, "no RPC clients available", nil)
	}

	var lastErr error
	maxAttempts := len(clients)
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return lerrors.NewNetworkError(operation, "request cancelled", err)
		}

		index := atomic.AddUint64(&rc.index, 1) - 1
		client := clients[index%uint64(len(clients))]

		reqCtx, cancel := context.WithTimeout(ctx, rc.timeout)
		err := fn(reqCtx, client)
		cancel()
		if err == nil || errors.Is(err, ErrAccountNotFound) {
			return err
		}
		lastErr = err

		rc.logger.Warn().
			Str("operation", operation).
			Int("attempt", attempt+1).
			Err(err).
			Msg("operation failed, trying next endpoint")
	}

	return lerrors.NewNetworkError(operation, fmt.Sprintf("failed after trying %d endpoints", maxAttempts), lastErr)
}

// GetAccountInfo fetches the raw account at address
func (rc *RPCClient) GetAccountInfo(ctx context.Context, address solana.PublicKey) (*AccountInfo, error) {
	var info *AccountInfo
	err := rc.executeWithFailover(ctx, "get_account_info", func(ctx context.Context, client *rpc.Client) error {
		out, innerErr := client.GetAccountInfoWithOpts(ctx, address, &rpc.GetAccountInfoOpts{
			Encoding:   solana.EncodingBase64,
			Commitment: rc.commitment,
		})
		if errors.Is(innerErr, rpc.ErrNotFound) {
			return ErrAccountNotFound
		}
		if innerErr != nil {
			return innerErr
		}
		if out == nil || out.Value == nil {
			return ErrAccountNotFound
		}
		info = toAccountInfo(address, out.Value, out.Context.Slot)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

// GetLatestFreshnessToken returns the latest blockhash and its validity bound
func (rc *RPCClient) GetLatestFreshnessToken(ctx context.Context) (FreshnessToken, error) {
	var token FreshnessToken
	err := rc.executeWithFailover(ctx, "get_latest_blockhash", func(ctx context.Context, client *rpc.Client) error {
		resp, innerErr := client.GetLatestBlockhash(ctx, rc.commitment)
		if innerErr != nil {
			return innerErr
		}
		if resp == nil || resp.Value == nil {
			return fmt.Errorf("empty blockhash response")
		}
		token = FreshnessToken{
			Blockhash:            resp.Value.Blockhash,
			LastValidBlockHeight: resp.Value.LastValidBlockHeight,
		}
		return nil
	})
	return token, err
}

// SendTransaction dispatches a signed transaction to one endpoint, exactly once
func (rc *RPCClient) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	if len(tx.Signatures) == 0 {
		return solana.Signature{}, fmt.Errorf("transaction has no signatures")
	}

	rc.mu.RLock()
	clients := rc.clients
	rc.mu.RUnlock()
	if len(clients) == 0 {
		return solana.Signature{}, lerrors.NewNetworkError("send_transaction", "no RPC clients available", nil)
	}
	index := atomic.AddUint64(&rc.index, 1) - 1
	client := clients[index%uint64(len(clients))]

	reqCtx, cancel := context.WithTimeout(ctx, rc.timeout)
	defer cancel()

	sig, err := client.SendTransactionWithOpts(reqCtx, tx, rpc.TransactionOpts{
		SkipPreflight:       rc.skipPreflight,
		PreflightCommitment: rc.commitment,
	})
	if err != nil {
		var rpcErr *jsonrpc.RPCError
		if errors.As(err, &rpcErr) {
			return solana.Signature{}, &RejectionError{
				Code:    rpcErr.Code,
				Message: rpcErr.Message,
				Logs:    simulationLogs(rpcErr.Data),
			}
		}
		return solana.Signature{}, lerrors.NewNetworkError("send_transaction", "failed to dispatch transaction", err)
	}
	return sig, nil
}

// GetSignatureStatus returns the current status of sig, or nil when unknown
func (rc *RPCClient) GetSignatureStatus(ctx context.Context, sig solana.Signature) (*SignatureStatus, error) {
	var status *SignatureStatus
	err := rc.executeWithFailover(ctx, "get_signature_statuses", func(ctx context.Context, client *rpc.Client) error {
		resp, innerErr := client.GetSignatureStatuses(ctx, false, sig)
		if innerErr != nil {
			return innerErr
		}
		status = nil
		if resp == nil || len(resp.Value) == 0 || resp.Value[0] == nil {
			return nil
		}
		v := resp.Value[0]
		status = &SignatureStatus{
			Slot:          v.Slot,
			Confirmations: v.Confirmations,
			Commitment:    v.ConfirmationStatus,
			Err:           renderLedgerError(v.Err),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return status, nil
}

// GetProgramAccounts lists accounts owned by programID with the given data size
func (rc *RPCClient) GetProgramAccounts(ctx context.Context, programID solana.PublicKey, dataSize uint64) ([]AccountInfo, error) {
	var accounts []AccountInfo
	err := rc.executeWithFailover(ctx, "get_program_accounts", func(ctx context.Context, client *rpc.Client) error {
		out, innerErr := client.GetProgramAccountsWithOpts(ctx, programID, &rpc.GetProgramAccountsOpts{
			Commitment: rc.commitment,
			Encoding:   solana.EncodingBase64,
			Filters:    []rpc.RPCFilter{{DataSize: dataSize}},
		})
		if innerErr != nil {
			return innerErr
		}
		accounts = make([]AccountInfo, 0, len(out))
		for _, keyed := range out {
			if keyed == nil || keyed.Account == nil {
				continue
			}
			accounts = append(accounts, *toAccountInfo(keyed.Pubkey, keyed.Account, 0))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

// IsHealthy checks if any RPC in the pool answers getHealth
func (rc *RPCClient) IsHealthy(ctx context.Context) bool {
	err := rc.executeWithFailover(ctx, "get_health", func(ctx context.Context, client *rpc.Client) error {
		health, innerErr := client.GetHealth(ctx)
		if innerErr != nil {
			return innerErr
		}
		if health != rpc.HealthOk {
			return fmt.Errorf("node is not healthy: %s", health)
		}
		return nil
	})
	return err == nil
}

// Close closes all RPC connections
func (rc *RPCClient) Close() {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	// Solana RPC clients don't have explicit Close, but we clear the slice
	rc.clients = nil
}

func toAccountInfo(address solana.PublicKey, acc *rpc.Account, slot uint64) *AccountInfo {
	info := &AccountInfo{
		Address:  address,
		Owner:    acc.Owner,
		Lamports: acc.Lamports,
		Slot:     slot,
	}
	if acc.Data != nil {
		info.Data = acc.Data.GetBinary()
	}
	return info
}

func renderLedgerError(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(raw)
}

func simulationLogs(data interface{}) []string {
	m, ok := data.(map[string]interface{})
	if !ok {
		return nil
	}
	raw, ok := m["logs"].([]interface{})
	if !ok {
		return nil
	}
	logs := make([]string, 0, len(raw))
	for _, l := range raw {
		if s, ok := l.(string); ok {
			logs = append(logs, s)
		}
	}
	return logs
}
