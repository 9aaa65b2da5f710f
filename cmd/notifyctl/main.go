// Command notifyctl runs one-off operations against the notification engine:
// a sweep, webhook registration and dev token minting.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/qarzdaftar/backend/internal/app"
	"github.com/qarzdaftar/backend/internal/auth"
	"github.com/qarzdaftar/backend/internal/config"
	"github.com/qarzdaftar/backend/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "notifyctl",
		Short:         "Operate the Qarz Daftar notification engine",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newSweepCmd(), newSetWebhookCmd(), newTokenCmd())
	return root
}

func setup(cmd *cobra.Command) (*app.App, error) {
	cfg := config.Load()
	log := logger.NewWithWriter(cmd.ErrOrStderr(), cfg.Env, cfg.LogLevel)
	slog.SetDefault(log)
	return app.New(cmd.Context(), cfg, log)
}

func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run one global due-debt sweep and print the report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			rep, err := a.Sweep.Run(cmd.Context())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(rep)
		},
	}
}

func newSetWebhookCmd() *cobra.Command {
	var url string
	cmd := &cobra.Command{
		Use:   "set-webhook",
		Short: "Register the Telegram webhook URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if url != "" {
				a.Cfg.TelegramWebhookURL = url
			}
			if a.Bot == nil {
				return errors.New("TELEGRAM_BOT_TOKEN is not set")
			}
			if a.Cfg.TelegramWebhookURL == "" {
				return errors.New("no webhook URL: pass --url or set TELEGRAM_WEBHOOK_URL")
			}
			if err := a.RegisterWebhook(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "webhook set to", a.Cfg.TelegramWebhookURL)
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "webhook URL (defaults to TELEGRAM_WEBHOOK_URL)")
	return cmd
}

func newTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token <user-id>",
		Short: "Mint a bearer token for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := uuid.Parse(args[0]); err != nil {
				return fmt.Errorf("user id must be a uuid: %w", err)
			}
			cfg := config.Load()
			tm := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
			tok, exp, err := tm.Issue(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\nexpires %s\n", tok, exp.Format("2006-01-02 15:04:05 MST"))
			return nil
		},
	}
}
