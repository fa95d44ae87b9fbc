package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lxcloud/internal/broadcast"
	"lxcloud/internal/config"
	"lxcloud/internal/domain/registry"
	"lxcloud/internal/domain/telemetry"
	domainUser "lxcloud/internal/domain/user"
	"lxcloud/internal/infrastructure/database/memory"
	"lxcloud/internal/infrastructure/database/postgres"
	"lxcloud/internal/logger"
	"lxcloud/internal/routes"
	"lxcloud/internal/sweeper"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("Failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	env := cfg.Server.Environment
	if env == "" {
		env = "development"
	}
	if err := logger.Init(env); err != nil {
		os.Stderr.WriteString("Failed to initialize logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("environment", env),
	)

	if cfg.JWT.Secret == "" {
		logger.Fatal("JWT secret is missing. Please set JWT_SECRET environment variable.")
	}

	var (
		registryRepo  registry.Repository
		telemetryRepo telemetry.Repository
		userRepo      domainUser.Repository
		healthCheck   func() error
	)

	if cfg.Database.Host != "" && cfg.Database.DBName != "" {
		db, err := postgres.NewDB(cfg)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer func() {
			if err := db.Close(); err != nil {
				logger.Error("Failed to close database connection", zap.Error(err))
			}
		}()

		if err := db.Migrate(); err != nil {
			logger.Fatal("Failed to run migrations", zap.Error(err))
		}

		registryRepo = postgres.NewRegistryRepository(db)
		telemetryRepo = postgres.NewTelemetryRepository(db)
		userRepo = postgres.NewUserRepository(db)
		healthCheck = db.Health
	} else {
		logger.Warn("No database configured, using in-memory storage")
		store := memory.NewStore()
		registryRepo = store.Registry()
		telemetryRepo = store.Telemetry()
		userRepo = memory.NewUserRepository()
	}

	hub := broadcast.NewHub(cfg.Broadcast.BufferSize)

	var publisher broadcast.Publisher = hub
	if cfg.MQTT.Enabled {
		mqttPub, err := broadcast.NewMQTTPublisher(&cfg.MQTT)
		if err != nil {
			logger.Fatal("Failed to connect to MQTT broker", zap.Error(err))
		}
		defer mqttPub.Close()
		publisher = broadcast.Fanout{hub, mqttPub}
	}

	router := routes.SetupRoutes(cfg, &routes.Dependencies{
		RegistryRepo:  registryRepo,
		TelemetryRepo: telemetryRepo,
		UserRepo:      userRepo,
		Hub:           hub,
		Publisher:     publisher,
		HealthCheck:   healthCheck,
	})

	// Background retention sweeps.
	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	defer sweepCancel()
	sw := sweeper.New(registryRepo, telemetryRepo, cfg.Retention.YearsToKeep, cfg.Retention.OfflineAfter)
	go sw.Run(sweepCtx, cfg.Retention.SweepInterval)

	host := cfg.Server.Host
	if host == "" {
		host = "0.0.0.0"
	}
	port := cfg.Server.Port
	if port == "" {
		port = "8080"
	}
	addr := net.JoinHostPort(host, port)

	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Server starting",
			zap.String("address", addr),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutdown Server ...")

	sweepCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("Failed to shutdown server", zap.Error(err))
	}

	log.Println("Server exited properly")
}
