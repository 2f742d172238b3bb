package main

import (
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hamza-younas94/whatsapp-mailbox/internal/bot"
)

func botCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bot",
		Short: "Answer a Telegram chat with quick replies",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			tg := a.cfg.Telegram
			if tg.Token == "" {
				return errors.New("telegram.token (or TELEGRAM_TOKEN) is required")
			}

			b, err := bot.New(tg.Token, tg.TenantID, tg.AdminIDs, a.store, a.service, a.logger)
			if err != nil {
				a.logger.Error("Failed to create bot", zap.Error(err))
				return err
			}

			a.startBackground(ctx)
			return b.Start(ctx)
		},
	}
}
