package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pushchain/typechain-client/ledgerClient/accountsync"
	"github.com/pushchain/typechain-client/ledgerClient/codec"
)

func playerCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "player",
		Short: "Player account commands",
	}

	cmd.AddCommand(
		playerInitCmd(v),
		playerShowCmd(v),
		playerPracticeCmd(v),
	)
	return cmd
}

func playerInitCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the player account of the connected identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format := v.GetString(flagOutput)
			if err := validateOutputFormat(format); err != nil {
				return err
			}

			rt, err := newSession(cmd.Context(), v, true)
			if err != nil {
				return err
			}
			defer rt.Close()

			res, err := rt.client.InitializePlayer(cmd.Context())
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), format, res)
		},
	}
}

func playerShowCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "show [owner]",
		Short: "Fetch a player account; defaults to the connected identity",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format := v.GetString(flagOutput)
			if err := validateOutputFormat(format); err != nil {
				return err
			}

			rt, err := newSession(cmd.Context(), v, false)
			if err != nil {
				return err
			}
			defer rt.Close()

			var snap *accountsync.Snapshot
			if len(args) == 1 {
				owner, err := parsePublicKey("owner", args[0])
				if err != nil {
					return err
				}
				snap, err = rt.client.Synchronizer().Fetch(cmd.Context(), rt.client.PlayerAddressOf(owner), codec.KindPlayer)
				if err != nil {
					return err
				}
			} else {
				if snap, err = rt.client.Player(cmd.Context()); err != nil {
					return err
				}
			}
			return printAccount(cmd.OutOrStdout(), format, snap)
		},
	}
}

func playerPracticeCmd(v *viper.Viper) *cobra.Command {
	var (
		wpm      uint32
		accuracy uint32
		words    uint32
	)

	cmd := &cobra.Command{
		Use:   "practice",
		Short: "Record a solo practice session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format := v.GetString(flagOutput)
			if err := validateOutputFormat(format); err != nil {
				return err
			}

			rt, err := newSession(cmd.Context(), v, true)
			if err != nil {
				return err
			}
			defer rt.Close()

			res, err := rt.client.UpdatePracticeStats(cmd.Context(), wpm, accuracy, words)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), format, res)
		},
	}

	cmd.Flags().Uint32Var(&wpm, "wpm", 0, "Words per minute")
	cmd.Flags().Uint32Var(&accuracy, "accuracy", 0, "Accuracy percentage (0-100)")
	cmd.Flags().Uint32Var(&words, "words", 0, "Words typed in the session")
	_ = cmd.MarkFlagRequired("wpm")
	_ = cmd.MarkFlagRequired("accuracy")
	_ = cmd.MarkFlagRequired("words")
	return cmd
}
