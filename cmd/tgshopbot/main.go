package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/kuzven/tgshopbot/internal/bot"
	"github.com/kuzven/tgshopbot/internal/config"
	"github.com/kuzven/tgshopbot/internal/fulfillment"
	"github.com/kuzven/tgshopbot/internal/payment"
	"github.com/kuzven/tgshopbot/internal/session"
	"github.com/kuzven/tgshopbot/internal/storage"
	"github.com/kuzven/tgshopbot/internal/storage/migrations"
	"github.com/kuzven/tgshopbot/pkg/logger"
)

// ENTRY POINT

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	zapLogger, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer zapLogger.Sync()

	ctx, cancel := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer cancel()

	pgStorage, err := storage.NewPostgresStorage(ctx, cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to init PostgreSQL storage", zap.Error(err))
	}
	defer pgStorage.Close()

	if err := migrations.RunMigrations(ctx, pgStorage.DB(), "postgres"); err != nil {
		zapLogger.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Pending flows go to Redis when it is configured, so they survive
	// restarts; otherwise they live in process memory.
	var sessions session.Store
	if cfg.RedisAddr != "" {
		sessions = session.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.SessionTTL)
	} else {
		sessions = session.NewMemoryStore()
	}

	gateway := payment.NewClient(cfg.PaymentBaseURL, cfg.PaymentAPIKey, cfg.HTTPRequestTimeout, zapLogger)
	ledger := fulfillment.NewLedger(cfg.FulfillmentLedgerPath, zapLogger)

	tgBot, err := bot.New(pgStorage, sessions, gateway, ledger, cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to create bot", zap.Error(err))
	}

	if err := tgBot.Start(ctx); err != nil {
		zapLogger.Fatal("Bot stopped with error", zap.Error(err))
	}

	zapLogger.Info("Bot shutdown gracefully")
}
