package main

import (
	"fmt"
	"path/filepath"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pushchain/typechain-client/ledgerClient/constant"
	"github.com/pushchain/typechain-client/ledgerClient/db"
	"github.com/pushchain/typechain-client/ledgerClient/store"
)

func txCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tx",
		Short: "Local transaction journal commands",
	}

	cmd.AddCommand(
		txListCmd(v),
		txRecheckCmd(v),
	)
	return cmd
}

func txListCmd(v *viper.Viper) *cobra.Command {
	var (
		status string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List journaled transactions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format := v.GetString(flagOutput)
			if err := validateOutputFormat(format); err != nil {
				return err
			}
			switch status {
			case "", store.TxStatusSubmitted, store.TxStatusConfirmed, store.TxStatusRejected,
				store.TxStatusTimedOut, store.TxStatusFailed:
			default:
				return fmt.Errorf("invalid status %q", status)
			}

			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			database, err := db.OpenFileDB(filepath.Join(cfg.NodeHome, constant.DatabasesSubdir), constant.JournalDBName, true)
			if err != nil {
				return err
			}
			defer database.Close()

			recs, err := db.NewJournal(database).List(status, limit)
			if err != nil {
				return err
			}
			return printTransactions(cmd.OutOrStdout(), format, recs)
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Only show records with this status")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of records")
	return cmd
}

func txRecheckCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "recheck <signature>",
		Short: "Resolve a transaction whose confirmation timed out",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format := v.GetString(flagOutput)
			if err := validateOutputFormat(format); err != nil {
				return err
			}
			sig, err := solana.SignatureFromBase58(args[0])
			if err != nil {
				return fmt.Errorf("invalid signature %q: %w", args[0], err)
			}

			rt, err := newSession(cmd.Context(), v, false)
			if err != nil {
				return err
			}
			defer rt.Close()

			res, err := rt.client.Recheck(cmd.Context(), sig)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), format, res)
		},
	}
}
