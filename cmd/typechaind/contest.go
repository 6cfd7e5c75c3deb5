package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func contestCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "contest",
		Aliases: []string{"c"},
		Short:   "Multi-player contest commands",
	}

	cmd.AddCommand(
		contestCreateCmd(v),
		contestJoinCmd(v),
		contestSubmitCmd(v),
		contestListCmd(v),
		contestShowCmd(v),
	)
	return cmd
}

func contestCreateCmd(v *viper.Viper) *cobra.Command {
	var (
		textID   uint32
		duration uint64
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a contest at a fresh address",
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

			res, err := rt.client.CreateContest(cmd.Context(), textID, duration)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), format, res)
		},
	}

	cmd.Flags().Uint32Var(&textID, "text-id", 0, "Identifier of the passage to type")
	cmd.Flags().Uint64Var(&duration, "duration", 60, "Contest duration in seconds")
	_ = cmd.MarkFlagRequired("text-id")
	return cmd
}

func contestJoinCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "join <contest>",
		Short: "Join a waiting contest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format := v.GetString(flagOutput)
			if err := validateOutputFormat(format); err != nil {
				return err
			}
			contest, err := parsePublicKey("contest", args[0])
			if err != nil {
				return err
			}

			rt, err := newSession(cmd.Context(), v, true)
			if err != nil {
				return err
			}
			defer rt.Close()

			res, err := rt.client.JoinContest(cmd.Context(), contest)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), format, res)
		},
	}
}

func contestSubmitCmd(v *viper.Viper) *cobra.Command {
	var (
		wpm      uint32
		accuracy uint32
		seconds  uint64
	)

	cmd := &cobra.Command{
		Use:   "submit <contest>",
		Short: "Submit a result to an active contest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format := v.GetString(flagOutput)
			if err := validateOutputFormat(format); err != nil {
				return err
			}
			contest, err := parsePublicKey("contest", args[0])
			if err != nil {
				return err
			}

			rt, err := newSession(cmd.Context(), v, true)
			if err != nil {
				return err
			}
			defer rt.Close()

			res, err := rt.client.SubmitResult(cmd.Context(), contest, wpm, accuracy, seconds)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), format, res)
		},
	}

	cmd.Flags().Uint32Var(&wpm, "wpm", 0, "Words per minute")
	cmd.Flags().Uint32Var(&accuracy, "accuracy", 0, "Accuracy percentage (0-100)")
	cmd.Flags().Uint64Var(&seconds, "time", 0, "Time taken in seconds")
	_ = cmd.MarkFlagRequired("wpm")
	_ = cmd.MarkFlagRequired("accuracy")
	_ = cmd.MarkFlagRequired("time")
	return cmd
}

func contestListCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every contest owned by the program",
		Args:  cobra.NoArgs,
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

			snaps, err := rt.client.Contests(cmd.Context())
			if err != nil {
				return err
			}
			return printContests(cmd.OutOrStdout(), format, snaps)
		},
	}
}

func contestShowCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "show <contest>",
		Short: "Fetch one contest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format := v.GetString(flagOutput)
			if err := validateOutputFormat(format); err != nil {
				return err
			}
			contest, err := parsePublicKey("contest", args[0])
			if err != nil {
				return err
			}

			rt, err := newSession(cmd.Context(), v, false)
			if err != nil {
				return err
			}
			defer rt.Close()

			snap, err := rt.client.Contest(cmd.Context(), contest)
			if err != nil {
				return err
			}
			return printAccount(cmd.OutOrStdout(), format, snap)
		},
	}
}
