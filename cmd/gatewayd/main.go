package main

import (
	"context"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wmgateway/gateway/approval"
	"github.com/wmgateway/gateway/codec"
	"github.com/wmgateway/gateway/domain"
	"github.com/wmgateway/gateway/epoch"
	"github.com/wmgateway/gateway/executor"
	"github.com/wmgateway/gateway/gwconfig"
	"github.com/wmgateway/gateway/httpapi"
	"github.com/wmgateway/gateway/internal/eventbus"
	"github.com/wmgateway/gateway/internal/store/memory"
	"github.com/wmgateway/gateway/internal/store/postgres"
	"github.com/wmgateway/gateway/internal/store/redis"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	cfg, err := gwconfig.Load()
	if err != nil {
		logger.Error("config error", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open store", "err", err)
		os.Exit(1)
	}
	defer closeStore()

	audit, closeAudit, err := openAudit(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open audit sink", "err", err)
		os.Exit(1)
	}
	defer closeAudit()

	hub := eventbus.NewHub(logger)
	go hub.Run(ctx)

	reg := epoch.New(store, hub, audit)
	ledger := approval.New(store)

	if cfg.ManifestPath != "" {
		if err := bootstrapManifest(ctx, cfg, reg, logger); err != nil {
			logger.Error("failed to apply deployment manifest", "err", err)
			os.Exit(1)
		}
	}

	exec := executor.New(executor.Config{
		ChainID:  big.NewInt(cfg.ChainID),
		Owner:    cfg.Owner,
		Registry: reg,
		Ledger:   ledger,
		Events:   hub,
		Audit:    audit,
	})

	tokens := httpapi.NewTokenManager(cfg.JWTSecret, cfg.TokenExpiry)
	mux := http.NewServeMux()
	mux.Handle("/", httpapi.New(exec, store, tokens, logger))
	mux.HandleFunc("/events", hub.ServeWS)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: mux}

	go func() {
		logger.Info("gatewayd starting", "addr", cfg.HTTPAddr, "chain_id", cfg.ChainID, "store_backend", cfg.StoreBackend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "err", err)
	}
}

func openStore(ctx context.Context, cfg *gwconfig.Config, logger *slog.Logger) (domain.KVStore, func(), error) {
	switch cfg.StoreBackend {
	case "redis":
		store, err := redis.New(ctx, redis.Config{Addr: cfg.RedisAddr, KeyPrefix: "gw:"})
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	default:
		logger.Info("using in-memory KV store")
		return memory.New(), func() {}, nil
	}
}

func openAudit(ctx context.Context, cfg *gwconfig.Config, logger *slog.Logger) (domain.AuditSink, func(), error) {
	if cfg.PostgresDSN == "" {
		return nil, func() {}, nil
	}

	client, err := postgres.New(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, err
	}
	if err := client.RunMigrations(ctx); err != nil {
		client.Close()
		return nil, nil, err
	}
	logger.Info("postgres audit sink ready")
	return postgres.NewAuditSink(client), client.Close, nil
}

func bootstrapManifest(ctx context.Context, cfg *gwconfig.Config, reg *epoch.Registry, logger *slog.Logger) error {
	manifest, err := gwconfig.LoadManifest(cfg.ManifestPath)
	if err != nil {
		return err
	}
	set, err := manifest.OperatorSet()
	if err != nil {
		return err
	}

	blob, err := codec.EncodeOperatorSet(set)
	if err != nil {
		return err
	}

	existing, err := reg.Lookup(ctx, blob)
	if err != nil {
		return err
	}
	if existing != 0 {
		logger.Info("deployment manifest already registered", "epoch", existing)
		return nil
	}

	e, err := reg.Register(ctx, blob)
	if err != nil {
		return err
	}
	logger.Info("registered genesis operator set from manifest", "epoch", e, "operators", len(set.Operators))
	return nil
}
