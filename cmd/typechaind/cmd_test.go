package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/pterm/pterm"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pushchain/typechain-client/ledgerClient/codec"
	"github.com/pushchain/typechain-client/ledgerClient/config"
	"github.com/pushchain/typechain-client/ledgerClient/confirmation"
	"github.com/pushchain/typechain-client/ledgerClient/constant"
	"github.com/pushchain/typechain-client/ledgerClient/core"
	lerrors "github.com/pushchain/typechain-client/ledgerClient/errors"
)

func TestLoadConfig(t *testing.T) {
	t.Run("falls back to defaults without a config file", func(t *testing.T) {
		home := t.TempDir()
		v := viper.New()
		v.Set(flagHome, home)

		cfg, err := loadConfig(v)
		require.NoError(t, err)
		assert.Equal(t, home, cfg.NodeHome)
		assert.Equal(t, filepath.Join(home, constant.KeysSubdir, constant.KeypairFileName), cfg.KeypairPath)
		assert.Equal(t, constant.DefaultProgramID, cfg.ProgramID)
	})

	t.Run("overrides win over the file", func(t *testing.T) {
		home := t.TempDir()
		require.NoError(t, config.Save(&config.Config{LogLevel: 1, LogFormat: "json", NodeHome: home}, home))

		v := viper.New()
		v.Set(flagHome, home)
		v.Set(flagRPCURL, []string{"http://127.0.0.1:8899"})
		v.Set(flagCommitment, config.CommitmentFinalized)
		v.Set(flagLogLevel, 3)

		cfg, err := loadConfig(v)
		require.NoError(t, err)
		assert.Equal(t, []string{"http://127.0.0.1:8899"}, cfg.RPCURLs)
		assert.Equal(t, config.CommitmentFinalized, cfg.Commitment)
		assert.Equal(t, 3, cfg.LogLevel)
		assert.Equal(t, "json", cfg.LogFormat)
	})

	t.Run("unset log level keeps the configured one", func(t *testing.T) {
		home := t.TempDir()
		require.NoError(t, config.Save(&config.Config{LogLevel: 4, LogFormat: "console", NodeHome: home}, home))

		v := viper.New()
		v.Set(flagHome, home)
		v.Set(flagLogLevel, -1)

		cfg, err := loadConfig(v)
		require.NoError(t, err)
		assert.Equal(t, 4, cfg.LogLevel)
	})

	t.Run("invalid override is rejected", func(t *testing.T) {
		v := viper.New()
		v.Set(flagHome, t.TempDir())
		v.Set(flagCommitment, "max")

		_, err := loadConfig(v)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid config")
	})

	t.Run("broken config file is reported", func(t *testing.T) {
		home := t.TempDir()
		dir := filepath.Join(home, constant.ConfigSubdir)
		require.NoError(t, os.MkdirAll(dir, 0o750))
		require.NoError(t, os.WriteFile(filepath.Join(dir, constant.ConfigFileName), []byte("{"), 0o600))

		v := viper.New()
		v.Set(flagHome, home)

		_, err := loadConfig(v)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to unmarshal config")
	})
}

func TestInitCommand(t *testing.T) {
	home := t.TempDir()

	rootCmd := NewRootCmd()
	rootCmd.SetArgs([]string{"init", "--home", home, "--new-keypair"})
	require.NoError(t, rootCmd.Execute())

	cfg, err := config.Load(home)
	require.NoError(t, err)
	assert.Equal(t, home, cfg.NodeHome)
	assert.FileExists(t, cfg.KeypairPath)

	// A second run keeps the existing keypair.
	rootCmd = NewRootCmd()
	rootCmd.SetArgs([]string{"init", "--home", home, "--new-keypair"})
	assert.Error(t, rootCmd.Execute())
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd := NewRootCmd()
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "typechaind")
	assert.Contains(t, out.String(), Version)
}

func TestPrintResultJSON(t *testing.T) {
	sig := solana.Signature{1, 2, 3}
	contest := solana.NewWallet().PublicKey()
	res := &core.Result{
		Operation:   "create_contest",
		OperationID: "op-1",
		Signature:   sig,
		Status:      confirmation.StatusConfirmed,
		Slot:        42,
		Resynced:    true,
		Contest:     contest,
		ContestRecord: &codec.ContestRecord{
			TextID:          2,
			DurationSeconds: 60,
			MaxParticipants: 10,
		},
	}

	var out bytes.Buffer
	require.NoError(t, printResult(&out, OutputFormatJSON, res))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, "create_contest", decoded["operation"])
	assert.Equal(t, sig.String(), decoded["signature"])
	assert.Equal(t, "confirmed", decoded["status"])
	assert.Equal(t, contest.String(), decoded["contest"])
	assert.Equal(t, true, decoded["resynced"])
	record, ok := decoded["contest_record"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "waiting", record["status"])
}

func TestPrintResultJSONOmitsZeroSignature(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printResult(&out, OutputFormatJSON, &core.Result{
		Operation:          "initialize_player",
		AlreadyInitialized: true,
	}))
	assert.NotContains(t, out.String(), "signature")
	assert.Contains(t, out.String(), `"already_initialized": true`)
}

func TestValidateOutputFormat(t *testing.T) {
	assert.NoError(t, validateOutputFormat(OutputFormatTable))
	assert.NoError(t, validateOutputFormat(OutputFormatJSON))
	assert.Error(t, validateOutputFormat("yaml"))
}

func TestParsePublicKey(t *testing.T) {
	pk := solana.NewWallet().PublicKey()
	got, err := parsePublicKey("contest", pk.String())
	require.NoError(t, err)
	assert.Equal(t, pk, got)

	_, err = parsePublicKey("contest", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid contest")
}

func TestPrintError(t *testing.T) {
	pterm.DisableColor()
	t.Cleanup(pterm.EnableColor)

	render := func(err error) string {
		var buf bytes.Buffer
		printError(&buf, err)
		return buf.String()
	}

	t.Run("plain error", func(t *testing.T) {
		out := render(errors.New("boom"))
		assert.Contains(t, out, "boom")
		assert.NotContains(t, out, "retrying")
	})

	t.Run("dispatch outcome unknown", func(t *testing.T) {
		sig := solana.Signature{7}.String()
		err := lerrors.NewNetworkError("initialize_player", "failed to dispatch transaction", errors.New("connection reset")).WithSignature(sig)
		out := render(err)
		assert.Contains(t, out, "typechaind tx recheck "+sig)
		assert.NotContains(t, out, "retrying may succeed")
	})

	t.Run("rejection names the program error", func(t *testing.T) {
		err := lerrors.NewRejectedError("join_contest", `{"InstructionError":[0,{"Custom":3}]}`).
			WithSignature(solana.Signature{9}.String()).
			WithContext(core.ProgramErrorKey, "Contest is full")
		out := render(err)
		assert.Contains(t, out, "program error: Contest is full")
		assert.NotContains(t, out, "recheck")
	})

	t.Run("retryable", func(t *testing.T) {
		out := render(lerrors.NewBusyError("join_contest", "addr"))
		assert.Contains(t, out, "retrying may succeed")
	})
}
