package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pushchain/typechain-client/ledgerClient/api"
	"github.com/pushchain/typechain-client/ledgerClient/config"
	"github.com/pushchain/typechain-client/ledgerClient/constant"
	"github.com/pushchain/typechain-client/ledgerClient/cron"
	"github.com/pushchain/typechain-client/ledgerClient/db"
	"github.com/pushchain/typechain-client/ledgerClient/signer"
)

// Set at build time with -ldflags "-X main.Version=... -X main.Commit=...".
var (
	Version = "dev"
	Commit  = "unknown"
)

func InitRootCmd(rootCmd *cobra.Command, v *viper.Viper) {
	rootCmd.AddCommand(initCmd(v))
	rootCmd.AddCommand(startCmd(v))
	rootCmd.AddCommand(playerCmd(v))
	rootCmd.AddCommand(contestCmd(v))
	rootCmd.AddCommand(txCmd(v))
	rootCmd.AddCommand(versionCmd())
}

func initCmd(v *viper.Viper) *cobra.Command {
	var newKey bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default config (and optionally a new keypair) to the home directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			home := v.GetString(flagHome)

			cfg, err := config.LoadDefaultConfig()
			if err != nil {
				return err
			}
			cfg.NodeHome = home
			cfg.KeypairPath = ""
			if err := applyOverrides(cfg, v); err != nil {
				return err
			}
			if err := config.Save(cfg, home); err != nil {
				return err
			}
			pterm.Success.Printfln("config written to %s", filepath.Join(home, constant.ConfigSubdir, constant.ConfigFileName))

			if newKey {
				s, err := signer.GenerateKeypairFile(cfg.KeypairPath)
				if err != nil {
					return err
				}
				pterm.Success.Printfln("keypair written to %s (identity %s)", cfg.KeypairPath, s.PublicKey())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&newKey, "new-keypair", false, "Generate a keypair at the configured keypair path")
	return cmd
}

func startCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Run the background contest refresh, journal cleaner and query server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := newSession(ctx, v, false)
			if err != nil {
				return err
			}
			defer rt.Close()
			log := rt.logger

			job := cron.NewContestRefreshJob(rt.client, rt.cfg.ContestRefreshInterval(), rt.cfg.RequestTimeout(), log)
			if err := job.Start(ctx); err != nil {
				return err
			}
			defer job.Stop()

			cleaner := db.NewJournalCleaner(rt.journal, rt.cfg, log)
			if err := cleaner.Start(ctx); err != nil {
				return err
			}
			defer cleaner.Stop()

			var server *api.Server
			if rt.cfg.QueryServerPort > 0 {
				m := rt.metrics
				if !rt.cfg.MetricsEnabled {
					m = nil
				}
				server = api.NewServer(rt.client, rt.journal, m, log, rt.cfg.QueryServerPort).
					WithHealthCheck(rt.endpoint)
				if err := server.Start(); err != nil {
					return err
				}
			}

			// SIGHUP refreshes contests and the player immediately
			hup := make(chan os.Signal, 1)
			signal.Notify(hup, syscall.SIGHUP)
			defer signal.Stop(hup)
			go func() {
				for {
					select {
					case <-hup:
						log.Info().Msg("refresh requested")
						job.ForceSync()
					case <-ctx.Done():
						return
					}
				}
			}()

			log.Info().Str("program_id", rt.client.ProgramID().String()).Msg("typechaind started")
			<-ctx.Done()
			log.Info().Msg("shutting down")

			if server != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Stop(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
					log.Warn().Err(err).Msg("query server shutdown failed")
				}
			}
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print typechaind version info",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "Name:       %s\n", "typechaind")
			fmt.Fprintf(cmd.OutOrStdout(), "Version:    %s\n", Version)
			fmt.Fprintf(cmd.OutOrStdout(), "Commit:     %s\n", Commit)
			fmt.Fprintf(cmd.OutOrStdout(), "Go:         %s\n", runtime.Version())
		},
	}
}
