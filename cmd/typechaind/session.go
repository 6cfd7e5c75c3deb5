package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/pushchain/typechain-client/ledgerClient/config"
	"github.com/pushchain/typechain-client/ledgerClient/constant"
	"github.com/pushchain/typechain-client/ledgerClient/core"
	"github.com/pushchain/typechain-client/ledgerClient/db"
	"github.com/pushchain/typechain-client/ledgerClient/ledger"
	"github.com/pushchain/typechain-client/ledgerClient/logger"
	"github.com/pushchain/typechain-client/ledgerClient/metrics"
	"github.com/pushchain/typechain-client/ledgerClient/signer"
)

// session holds everything a command needs to talk to the program.
type session struct {
	cfg      *config.Config
	logger   zerolog.Logger
	endpoint *ledger.RPCClient
	database *db.DB
	journal  *db.Journal
	metrics  *metrics.Metrics
	client   *core.Client
}

// loadConfig reads the config under the home directory, falling back to the
// embedded defaults when none was written yet, then applies flag and
// environment overrides.
func loadConfig(v *viper.Viper) (*config.Config, error) {
	home := v.GetString(flagHome)

	var cfg *config.Config
	loaded, err := config.Load(home)
	switch {
	case err == nil:
		cfg = &loaded
	case errors.Is(err, os.ErrNotExist):
		if cfg, err = config.LoadDefaultConfig(); err != nil {
			return nil, err
		}
		cfg.NodeHome = home
		cfg.KeypairPath = ""
	default:
		return nil, err
	}

	if err := applyOverrides(cfg, v); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyOverrides copies explicitly set flags and TYPECHAIN_* variables
// onto cfg and re-validates it.
func applyOverrides(cfg *config.Config, v *viper.Viper) error {
	if v.IsSet(flagRPCURL) {
		if urls := cast.ToStringSlice(v.Get(flagRPCURL)); len(urls) > 0 {
			cfg.RPCURLs = urls
		}
	}
	if v.IsSet(flagProgramID) {
		if id := cast.ToString(v.Get(flagProgramID)); id != "" {
			cfg.ProgramID = id
		}
	}
	if v.IsSet(flagKeypair) {
		if path := cast.ToString(v.Get(flagKeypair)); path != "" {
			cfg.KeypairPath = path
		}
	}
	if v.IsSet(flagCommitment) {
		if c := cast.ToString(v.Get(flagCommitment)); c != "" {
			cfg.Commitment = c
		}
	}
	if v.IsSet(flagLogLevel) {
		level, err := cast.ToIntE(v.Get(flagLogLevel))
		if err != nil {
			return fmt.Errorf("invalid %s: %w", flagLogLevel, err)
		}
		if level >= 0 {
			cfg.LogLevel = level
		}
	}
	if v.IsSet(flagLogFormat) {
		if f := cast.ToString(v.Get(flagLogFormat)); f != "" {
			cfg.LogFormat = f
		}
	}

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// newSession opens the endpoint and the journal and wires the client.
// With requireSigner the keypair must exist; otherwise a missing keypair
// leaves the client read-only.
func newSession(ctx context.Context, v *viper.Viper, requireSigner bool) (*session, error) {
	cfg, err := loadConfig(v)
	if err != nil {
		return nil, err
	}
	log := logger.Init(*cfg)

	endpoint, err := ledger.NewRPCClient(ctx, ledger.Options{
		URLs:                cfg.RPCURLs,
		ExpectedGenesisHash: cfg.ExpectedGenesisHash,
		Commitment:          rpc.CommitmentType(cfg.Commitment),
		SkipPreflight:       cfg.SkipPreflight,
		RequestTimeout:      cfg.RequestTimeout(),
	}, log)
	if err != nil {
		return nil, err
	}

	database, err := db.OpenFileDB(filepath.Join(cfg.NodeHome, constant.DatabasesSubdir), constant.JournalDBName, true)
	if err != nil {
		endpoint.Close()
		return nil, err
	}

	rt := &session{
		cfg:      cfg,
		logger:   log,
		endpoint: endpoint,
		database: database,
		journal:  db.NewJournal(database),
		metrics:  metrics.New(constant.MetricsNamespace),
	}

	rt.client, err = core.New(endpoint, cfg, rt.journal, rt.metrics, log)
	if err != nil {
		rt.Close()
		return nil, err
	}

	s, err := loadSigner(cfg, v)
	switch {
	case err == nil:
		if err := rt.client.Connect(s); err != nil {
			rt.Close()
			return nil, err
		}
	case requireSigner || !errors.Is(err, os.ErrNotExist):
		rt.Close()
		return nil, err
	default:
		log.Warn().Str("keypair", cfg.KeypairPath).Msg("no keypair found, running read-only")
	}

	return rt, nil
}

func loadSigner(cfg *config.Config, v *viper.Viper) (signer.Signer, error) {
	if _, err := os.Stat(cfg.KeypairPath); err != nil {
		return nil, err
	}
	ks, err := signer.LoadKeypairSigner(cfg.KeypairPath)
	if err != nil {
		return nil, err
	}
	if !v.GetBool(flagConfirm) {
		return ks, nil
	}

	confirm := ptermConfirm
	if v.GetString(flagOutput) == OutputFormatJSON {
		confirm = signer.LineConfirm(os.Stdin, os.Stderr)
	}
	return signer.NewPromptSigner(ks, confirm)
}

func ptermConfirm(summary string) (bool, error) {
	return pterm.DefaultInteractiveConfirm.
		WithDefaultValue(false).
		Show(fmt.Sprintf("Sign %s?", summary))
}

func (rt *session) Close() {
	if rt.client != nil {
		rt.client.Disconnect()
	}
	if err := rt.database.Close(); err != nil {
		rt.logger.Warn().Err(err).Msg("failed to close journal database")
	}
	rt.endpoint.Close()
}
