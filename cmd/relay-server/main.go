package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"vrrelay/internal/admin"
	"vrrelay/internal/audit"
	"vrrelay/internal/config"
	"vrrelay/internal/relay"
	"vrrelay/internal/stats"
	"vrrelay/internal/wsbridge"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("relay_server_error", "error", err)
		os.Exit(1)
	}
	logger.Info("server_stopped_gracefully")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	var err error

	opts := relay.DefaultOptions()
	opts.Addr = cfg.ListenAddr()
	opts.RelayToSource = cfg.RelayToSource
	opts.IOTimeout = cfg.IOTimeout
	opts.IdleSleep = cfg.IdleSleep
	opts.MaxFrameSize = uint32(cfg.MaxFrameBytes)
	opts.InjectQueueSize = cfg.InjectQueueSize
	opts.Logger = logger

	server := relay.NewServer(opts)
	if err := server.Listen(); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	server.Observe(relay.NewMetrics(reg))

	// Optional sinks. Each one is skipped, not fatal, when its backend is
	// unreachable: relaying never depends on them.
	var statsStore *stats.Store
	if cfg.RedisURL != "" {
		statsStore, err = stats.NewStore(cfg.RedisURL, cfg.StatsPrefix)
		if err != nil {
			logger.Warn("stats_disabled", "error", err)
		} else {
			defer statsStore.Close()
			rec := stats.NewRecorder(statsStore, 2, 1024, logger)
			defer rec.Close()
			server.Observe(rec)
			logger.Info("stats_enabled", "prefix", cfg.StatsPrefix)
		}
	}

	var sessions audit.Store
	if cfg.DatabaseURL != "" {
		db, err := audit.OpenPostgres(cfg.DatabaseURL)
		if err != nil {
			logger.Warn("audit_disabled", "error", err)
		} else {
			sessions = audit.NewGormStore(db)
			rec := audit.NewRecorder(sessions, 1024, logger)
			defer rec.Close()
			server.Observe(rec)
			logger.Info("audit_enabled")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var adminServer *admin.Server
	if cfg.AdminEnabled {
		hub := wsbridge.NewHub(server, logger)
		go hub.Run(ctx)
		server.Observe(hub)

		deps := admin.Deps{
			Relay:    server,
			Bridge:   hub,
			Gatherer: reg,
			Credentials: admin.Credentials{
				Username:     cfg.AdminUsername,
				PasswordHash: cfg.AdminPasswordHash,
				JWTSecret:    cfg.JWTSecret,
				TokenTTL:     cfg.AdminTokenTTL,
			},
			Logger: logger,
		}
		if statsStore != nil {
			deps.Stats = statsStore
		}
		if sessions != nil {
			deps.Sessions = sessions
		}

		gin.SetMode(gin.ReleaseMode)
		adminServer = admin.NewServer(cfg.AdminAddr, admin.NewRouter(deps))
		if err := adminServer.Listen(); err != nil {
			return err
		}
		go func() {
			logger.Info("admin_server_started", "addr", adminServer.Addr().String())
			if err := adminServer.Serve(); err != nil {
				logger.Error("admin_server_error", "error", err)
			}
		}()
	}

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("received_shutdown_signal", "signal", sig.String())
		server.Stop()
	}()

	runErr := server.Start(ctx)

	if adminServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := adminServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("admin_shutdown_failed", "error", err)
		}
		shutdownCancel()
	}

	return runErr
}
