package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"BubbleSentinel/internal/api"
	"BubbleSentinel/internal/model"
	"BubbleSentinel/internal/notifier"
	"BubbleSentinel/internal/scheduler"
)

var runOnStart bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the refresh scheduler",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&runOnStart, "run-on-start", os.Getenv("RUN_ON_START") == "true",
		"Refresh every market once at startup")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := buildApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	// Context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var tn *notifier.TelegramNotifier
	var n notifier.Notifier
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		n = tn
	} else {
		log.Info().Msg("telegram not configured, alerts disabled")
	}

	keys := make([]string, 0)
	for _, m := range a.service.Markets() {
		keys = append(keys, m.Key)
	}
	period, _ := model.ParsePeriod(cfg.Schedule.Period)
	sched := scheduler.NewScheduler(ctx, a.service, n, keys, period, model.Severity(cfg.Schedule.AlertSeverity))
	if err := sched.Register(cfg.Schedule.RefreshCron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil && cfg.Telegram.Polling {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info().Msg("telegram polling started")
	}
	if runOnStart {
		log.Info().Msg("run-on-start enabled, refreshing all markets now")
		go sched.RefreshNow()
	}

	srv := api.NewServer(a.serverConfig(), a.service, a.metrics, a.guard)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()
	log.Info().Strs("markets", keys).Msg("BubbleSentinel is running. Press Ctrl+C to stop.")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutdown signal received, stopping...")
	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	return srv.Shutdown(shutdownCtx)
}
