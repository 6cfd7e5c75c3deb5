package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gagliardetto/solana-go"

	"github.com/pushchain/typechain-client/ledgerClient/constant"
)

//go:embed default_config.json
var defaultConfigJSON []byte

func validateConfig(cfg *Config) error {
	// Validate log level
	if cfg.LogLevel < 0 || cfg.LogLevel > 5 {
		return fmt.Errorf("log level must be between 0 and 5")
	}

	// Validate log format
	if cfg.LogFormat != "json" && cfg.LogFormat != "console" {
		return fmt.Errorf("log format must be 'json' or 'console'")
	}

	if cfg.NodeHome == "" {
		cfg.NodeHome = constant.DefaultNodeHome
	}

	// Program id is fatal when wrong, so it is checked here rather than per call
	if cfg.ProgramID == "" {
		cfg.ProgramID = constant.DefaultProgramID
	}
	if _, err := solana.PublicKeyFromBase58(cfg.ProgramID); err != nil {
		return fmt.Errorf("program id is not a valid public key: %w", err)
	}

	if len(cfg.RPCURLs) == 0 {
		cfg.RPCURLs = []string{"https://api.devnet.solana.com"}
	}

	if cfg.Commitment == "" {
		cfg.Commitment = CommitmentConfirmed
	}
	switch cfg.Commitment {
	case CommitmentProcessed, CommitmentConfirmed, CommitmentFinalized:
	default:
		return fmt.Errorf("commitment must be 'processed', 'confirmed' or 'finalized'")
	}

	// Set defaults for confirmation policy
	if cfg.ConfirmationTimeoutSeconds == 0 {
		cfg.ConfirmationTimeoutSeconds = 60
	}
	if cfg.ConfirmationPollIntervalMillis == 0 {
		cfg.ConfirmationPollIntervalMillis = 500
	}
	if cfg.RequestTimeoutSeconds == 0 {
		cfg.RequestTimeoutSeconds = 10
	}
	if cfg.ConfirmationTimeoutSeconds < 0 || cfg.ConfirmationPollIntervalMillis < 0 || cfg.RequestTimeoutSeconds < 0 {
		return fmt.Errorf("timeouts and intervals must not be negative")
	}

	if cfg.KeypairPath == "" {
		cfg.KeypairPath = filepath.Join(cfg.NodeHome, constant.KeysSubdir, constant.KeypairFileName)
	}

	// Set defaults for query server
	if cfg.QueryServerPort == 0 {
		cfg.QueryServerPort = 8080
	}

	// Set defaults for background jobs
	if cfg.ContestRefreshIntervalSeconds == 0 {
		cfg.ContestRefreshIntervalSeconds = 30
	}
	if cfg.JournalCleanupIntervalSeconds == 0 {
		cfg.JournalCleanupIntervalSeconds = 3600
	}
	if cfg.JournalRetentionSeconds == 0 {
		cfg.JournalRetentionSeconds = 604800
	}

	return nil
}

// Validate applies defaults and checks the configuration.
func Validate(cfg *Config) error {
	return validateConfig(cfg)
}

// Save writes the given config to <basePath>/config/typechain_config.json.
func Save(cfg *Config, basePath string) error {
	if err := validateConfig(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	configDir := filepath.Join(basePath, constant.ConfigSubdir)
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configFile := filepath.Join(configDir, constant.ConfigFileName)
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configFile, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Load reads and returns the config from <basePath>/config/typechain_config.json.
func Load(basePath string) (Config, error) {
	configFile := filepath.Join(basePath, constant.ConfigSubdir, constant.ConfigFileName)
	data, err := os.ReadFile(filepath.Clean(configFile))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := validateConfig(&cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadDefaultConfig loads the default configuration from embedded JSON
func LoadDefaultConfig() (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(defaultConfigJSON, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal default config: %w", err)
	}
	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid default config: %w", err)
	}
	return &cfg, nil
}
