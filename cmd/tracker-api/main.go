// README: Entry point; loads config, wires the tracking engine, starts HTTP server and background schedulers.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"tracker/internal/broker"
	"tracker/internal/cache"
	"tracker/internal/config"
	httptransport "tracker/internal/http"
	"tracker/internal/infra"
	"tracker/internal/jobs"
	"tracker/internal/maps"
	"tracker/internal/modules/pricing"
	"tracker/internal/payments"
	"tracker/internal/simulator"
	"tracker/internal/store"
	"tracker/internal/tracking"
	"tracker/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}
	logger := infra.NewLogger(os.Stdout, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("exit", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	var gw store.Gateway
	if cfg.DB.DSN != "" {
		pool, err := infra.NewDB(ctx, cfg.DB.DSN)
		if err != nil {
			return err
		}
		defer pool.Close()
		gw = store.NewPostgres(pool)
	} else {
		logger.Warn("TRACKER_DB_DSN not set, using in-memory store")
		gw = store.NewMemory()
	}

	var c cache.Cache = cache.Nop{}
	if cfg.Redis.Addr != "" {
		client := infra.NewRedis(cfg.Redis.Addr)
		defer client.Close()
		c = cache.NewRedis(client, cfg.Tracking.CacheTimeout)
	}

	var distance tracking.Distance
	if cfg.Maps.APIKey != "" {
		routes, err := maps.NewRouteService(cfg.Maps.APIKey)
		if err != nil {
			return err
		}
		distance = routes
	}

	var pay tracking.Payments
	if cfg.Payments.Provider == "local" {
		pay = payments.NewLocal(logger)
	}

	engine := tracking.New(tracking.Deps{
		Gateway:  gw,
		Cache:    cache.NewLocations(c, logger),
		Broker:   broker.New(logger),
		Distance: distance,
		Payments: pay,
		Pricing: pricing.NewService(pricing.Rate{
			BaseFare: cfg.Pricing.BaseFare,
			PerKm:    cfg.Pricing.PerKm,
			Currency: cfg.Pricing.Currency,
		}),
		Logger: logger,
	}, tracking.Options{StoreTimeout: cfg.Tracking.StoreTimeout})

	sim := simulator.New(engine, simulator.Options{
		Interval: cfg.Simulation.Interval,
		Steps:    cfg.Simulation.Steps,
	}, logger)
	defer sim.Shutdown()

	hub := ws.NewHub(engine, cfg.HTTP.AllowedOrigins, logger)
	defer hub.Close()

	jm := jobs.NewJobManager(engine, cfg.Roster.Schedule, cfg.Tracking.StoreTimeout, logger)
	if err := jm.StartAll(); err != nil {
		return err
	}
	defer jm.StopAll()

	router := httptransport.NewRouter(httptransport.RouterDeps{
		Engine:    engine,
		Simulator: sim,
		Hub:       hub,
		Verifier:  infra.NewJWTVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
	}, logger)

	return httptransport.NewServer(cfg.HTTP.Addr, router, logger).Run(ctx)
}
