package main

import (
	"context"
	"log/slog"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"github.com/defiguard/flowbreaker/config"
	"github.com/defiguard/flowbreaker/internal/accesscontrol"
	"github.com/defiguard/flowbreaker/internal/asset"
	"github.com/defiguard/flowbreaker/internal/breaker"
	"github.com/defiguard/flowbreaker/internal/events"
	"github.com/defiguard/flowbreaker/internal/gateway"
	"github.com/defiguard/flowbreaker/internal/handler"
	"github.com/defiguard/flowbreaker/internal/healthcheck"
	"github.com/defiguard/flowbreaker/internal/httpserver"
	"github.com/defiguard/flowbreaker/internal/ledger"
	"github.com/defiguard/flowbreaker/internal/policy"
	"github.com/defiguard/flowbreaker/internal/settlement"
	"github.com/defiguard/flowbreaker/internal/vault"
	"github.com/defiguard/flowbreaker/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, true, cfg.Server.Environment, cfg.Logging.File)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	collector := events.NewCollector(cfg.Events.BufferSize, log)
	collector.Start(ctx)

	settler, settlementHealth, err := initializeSettlement(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to initialize settlement backend", slog.Any("err", err))
		os.Exit(1)
	}

	access, err := accesscontrol.New(cfg.Access.Admin, cfg.Access.ProtectedContracts)
	if err != nil {
		log.Error("Failed to initialize access control", slog.Any("err", err))
		os.Exit(1)
	}

	assetLedger := ledger.New(policy.New(log, cfg.Breaker.TriggerPolicy))
	if err := seedAssets(cfg, assetLedger); err != nil {
		log.Error("Failed to pre-register assets", slog.Any("err", err))
		os.Exit(1)
	}

	engine := gateway.New(
		log,
		assetLedger,
		breaker.New(cfg.CooldownDuration()),
		vault.New(),
		access,
		settler,
		collector,
	)

	engineHandler := handler.New(log, engine, settlementHealth)

	srv, err := httpserver.New(cfg.Server.Address, setupRouter(engineHandler, collector))
	if err != nil {
		log.Error("Failed to create server", slog.Any("err", err))
		os.Exit(1)
	}

	log.Info("Circuit breaker engine starting",
		slog.String("address", cfg.Server.Address),
		slog.String("trigger_policy", cfg.Breaker.TriggerPolicy),
		slog.String("cooldown", cfg.Breaker.CooldownPeriod))

	srvErrCh := make(chan error, 1)

	go func() {
		srvErrCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Error("Error during shutdown", slog.Any("err", err))
		}
	case err := <-srvErrCh:
		if err != nil {
			log.Error("Error starting engine", slog.Any("err", err))
			os.Exit(1)
		}
	}
}

func initializeSettlement(ctx context.Context, cfg *config.Config, log *slog.Logger) (settlement.Settler, *healthcheck.Status, error) {
	if cfg.Settlement.Backend == config.SettlementMemory {
		return settlement.NewMemorySettler(), nil, nil
	}

	settler, err := settlement.NewHTTPSettler(cfg.Settlement.URL)
	if err != nil {
		return nil, nil, err
	}

	status := healthcheck.NewStatus()
	go healthcheck.Watch(ctx, settler.URL(), status, cfg.HealthIntervalDuration(), log)
	return settler, status, nil
}

func seedAssets(cfg *config.Config, assetLedger *ledger.Ledger) error {
	for _, seed := range cfg.Assets {
		a, err := asset.Parse(seed.Asset)
		if err != nil {
			return err
		}

		// Validate() already vetted both integers.
		threshold, _ := new(big.Int).SetString(seed.Threshold, 10)
		minAmount, _ := new(big.Int).SetString(seed.MinAmountToLimit, 10)

		if err := assetLedger.Register(a, threshold, minAmount); err != nil {
			return err
		}
	}
	return nil
}
