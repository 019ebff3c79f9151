// Command ultracore runs the Ultra asset exchange: a WAL-backed order book
// with periodic matching, issuer-fallback settlement and a web dashboard.
//
// Usage:
//
//	ultracore --config config.yaml
//	ultracore --setup (interactive configuration wizard)
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vadiminshakov/ultracore/config"
	"github.com/vadiminshakov/ultracore/internal/services/engine"
	"github.com/vadiminshakov/ultracore/internal/services/exchange"
	issuancestrategy "github.com/vadiminshakov/ultracore/internal/services/issuance"
	"github.com/vadiminshakov/ultracore/internal/services/matcher"
	"github.com/vadiminshakov/ultracore/internal/services/settler"
	"github.com/vadiminshakov/ultracore/internal/setup"
	assetstore "github.com/vadiminshakov/ultracore/internal/storage/assets"
	issuancestore "github.com/vadiminshakov/ultracore/internal/storage/issuance"
	orderstore "github.com/vadiminshakov/ultracore/internal/storage/orders"
	settlementstore "github.com/vadiminshakov/ultracore/internal/storage/settlements"
	venstore "github.com/vadiminshakov/ultracore/internal/storage/ven"
	walletstore "github.com/vadiminshakov/ultracore/internal/storage/wallets"
	"github.com/vadiminshakov/ultracore/internal/web"
	"github.com/vadiminshakov/ultracore/pkg/retrier"
)

func main() {
	runSetup := flag.Bool("setup", false, "run the interactive configuration wizard")

	cfg, err := config.Get()
	if err != nil {
		log.Fatal(err)
	}

	if *runSetup {
		if err := setup.RunTUI(); err != nil {
			log.Fatal(err)
		}
		cfg, err = config.FromFile("config.gen.yaml")
		if err != nil {
			log.Fatal(err)
		}
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	orders, err := orderstore.NewStore(filepath.Join(cfg.WalDir, "orders"))
	if err != nil {
		logger.Fatal("failed to open order store", zap.Error(err))
	}
	defer orders.Close()

	settlementLog, err := settlementstore.NewJournal(filepath.Join(cfg.WalDir, "settlements"))
	if err != nil {
		logger.Fatal("failed to open settlement journal", zap.Error(err))
	}
	defer settlementLog.Close()

	wallets, err := walletstore.NewStore(filepath.Join(cfg.WalDir, "wallets"))
	if err != nil {
		logger.Fatal("failed to open wallet store", zap.Error(err))
	}
	defer wallets.Close()

	assets, err := assetstore.NewStore(filepath.Join(cfg.WalDir, "assets"))
	if err != nil {
		logger.Fatal("failed to open asset store", zap.Error(err))
	}
	defer assets.Close()

	issuance, err := issuancestore.NewStore(filepath.Join(cfg.WalDir, "issuance"))
	if err != nil {
		logger.Fatal("failed to open issuance store", zap.Error(err))
	}
	defer issuance.Close()

	ven, err := venstore.NewLedger(filepath.Join(cfg.WalDir, "ven"))
	if err != nil {
		logger.Fatal("failed to open ven ledger", zap.Error(err))
	}
	defer ven.Close()

	rates := exchange.New(exchange.NewStaticRatesProvider(cfg.VenRates))

	var strategy issuancestrategy.SelectionStrategy = issuancestrategy.NewFirstIssuerFirstServed(issuance)
	if cfg.SelectionStrategy == config.StrategyRandom {
		strategy = issuancestrategy.NewRandomWithFallback(issuance, strategy)
	}

	orderMatcher := matcher.NewTradingOrderMatcher(orders, settlementLog, logger)
	fallback := settler.NewIssuerFallbackSettler(
		orders, assets, wallets, ven, issuance, strategy, rates,
		logger, cfg.MatchAttemptThreshold, cfg.SystemUserID,
	)
	matchEngine := engine.NewMatchEngine(
		orderMatcher, fallback, orders, settlementLog, wallets, ven,
		logger, cfg.SystemUserID,
	)
	scheduler := engine.NewScheduler(matchEngine, cfg.SettleInterval, retrier.New(), logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return scheduler.Run(ctx)
	})
	g.Go(func() error {
		server := web.NewServer(cfg.DashboardAddr, settlementLog, wallets)
		logger.Info("dashboard listening", zap.String("addr", cfg.DashboardAddr))
		return server.Start(ctx)
	})

	logger.Info("exchange started",
		zap.Duration("settle_interval", cfg.SettleInterval),
		zap.String("strategy", cfg.SelectionStrategy))
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("exchange stopped", zap.Error(err))
	}
}
