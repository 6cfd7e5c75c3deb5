package config

import "time"

// Commitment levels accepted by the ledger endpoint.
const (
	CommitmentProcessed = "processed"
	CommitmentConfirmed = "confirmed"
	CommitmentFinalized = "finalized"
)

type Config struct {
	// Log Config
	LogLevel   int    `json:"log_level"`   // e.g., 0 = debug, 1 = info, etc.
	LogFormat  string `json:"log_format"`  // "json" or "console"
	LogSampler bool   `json:"log_sampler"` // if true, samples logs (e.g., 1 in 5)

	// Node Config
	NodeHome string `json:"node_home"` // Home directory (default: ~/.typechain)

	// Ledger configuration
	ProgramID           string   `json:"program_id"`            // Typing program id (base58)
	RPCURLs             []string `json:"rpc_urls"`              // JSON-RPC endpoints, read calls fail over in order
	ExpectedGenesisHash string   `json:"expected_genesis_hash"` // Optional cluster genesis hash prefix check
	Commitment          string   `json:"commitment"`            // processed, confirmed or finalized (default: confirmed)
	SkipPreflight       bool     `json:"skip_preflight"`        // Skip endpoint-side simulation before dispatch

	// Confirmation policy
	ConfirmationTimeoutSeconds     int `json:"confirmation_timeout_seconds"`      // Upper bound of a confirmation wait (default: 60)
	ConfirmationPollIntervalMillis int `json:"confirmation_poll_interval_millis"` // Signature status poll interval (default: 500)
	RequestTimeoutSeconds          int `json:"request_timeout_seconds"`           // Per RPC request timeout (default: 10)

	// Signer configuration
	KeypairPath string `json:"keypair_path"` // Solana keygen JSON file (default: <home>/keys/id.json)

	// Query Server Config
	QueryServerPort int  `json:"query_server_port"` // Port for HTTP query server (default: 8080)
	MetricsEnabled  bool `json:"metrics_enabled"`   // Expose /metrics on the query server

	// Background jobs
	ContestRefreshIntervalSeconds int `json:"contest_refresh_interval_seconds"` // How often to refresh contests (default: 30)
	JournalCleanupIntervalSeconds int `json:"journal_cleanup_interval_seconds"` // How often to prune the journal (default: 3600)
	JournalRetentionSeconds       int `json:"journal_retention_seconds"`        // How long terminal journal records are kept (default: 604800)
}

// ConfirmationTimeout returns the configured confirmation bound.
func (c *Config) ConfirmationTimeout() time.Duration {
	return time.Duration(c.ConfirmationTimeoutSeconds) * time.Second
}

// ConfirmationPollInterval returns the configured signature status poll interval.
func (c *Config) ConfirmationPollInterval() time.Duration {
	return time.Duration(c.ConfirmationPollIntervalMillis) * time.Millisecond
}

// RequestTimeout returns the per request timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// ContestRefreshInterval returns the background contest refresh period.
func (c *Config) ContestRefreshInterval() time.Duration {
	return time.Duration(c.ContestRefreshIntervalSeconds) * time.Second
}
