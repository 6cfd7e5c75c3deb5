package main

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pushchain/typechain-client/ledgerClient/constant"
)

// Flag names; each is also read from TYPECHAIN_<NAME> with dashes as underscores.
const (
	flagHome       = "home"
	flagRPCURL     = "rpc-url"
	flagProgramID  = "program-id"
	flagKeypair    = "keypair"
	flagCommitment = "commitment"
	flagLogLevel   = "log-level"
	flagLogFormat  = "log-format"
	flagConfirm    = "confirm"
	flagOutput     = "output"
)

func NewRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("TYPECHAIN")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	rootCmd := &cobra.Command{
		Use:           "typechaind",
		Short:         "Typing program client for Solana",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return v.BindPFlags(cmd.Flags())
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.String(flagHome, constant.DefaultNodeHome, "Client home directory")
	pf.StringSlice(flagRPCURL, nil, "JSON-RPC endpoint(s), overrides the config file")
	pf.String(flagProgramID, "", "Typing program id, overrides the config file")
	pf.String(flagKeypair, "", "Solana keygen keypair file, overrides the config file")
	pf.String(flagCommitment, "", "Commitment to wait for (processed|confirmed|finalized)")
	pf.Int(flagLogLevel, -1, "Log level 0 (debug) to 5 (panic), overrides the config file")
	pf.String(flagLogFormat, "", "Log format (json|console), overrides the config file")
	pf.Bool(flagConfirm, false, "Ask for approval before every signature")
	pf.StringP(flagOutput, "o", OutputFormatTable, "Output format (table|json)")

	InitRootCmd(rootCmd, v)

	return rootCmd
}
