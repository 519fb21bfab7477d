// Package main provides the entry point for the SmartLinks redirect service.
package main

import (
	"SmartLinks-Backend/internal/auth"
	"SmartLinks-Backend/internal/config"
	"SmartLinks-Backend/internal/database"
	"SmartLinks-Backend/internal/engine"
	httpHandler "SmartLinks-Backend/internal/handler/http"
	"SmartLinks-Backend/internal/protection"
	"SmartLinks-Backend/internal/repository/postgres"
	"SmartLinks-Backend/internal/service"
	"SmartLinks-Backend/pkg/logger"
	"SmartLinks-Backend/pkg/useragent"
	"context"
	lg "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg := config.MustLoad()
	log := logger.New(cfg.Env)
	defer func() {
		if err := log.Sync(); err != nil {
			lg.Printf("ERROR: failed to sync zap logger: %v\n", err)
		}
	}()

	log.Info("starting SmartLinks redirect service", zap.String("env", cfg.Env))

	// Initialize database connection
	db, err := database.NewConnection(&cfg.Database, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := database.Close(db, log); err != nil {
			log.Error("failed to close database connection", zap.Error(err))
		}
	}()

	// Run database migrations if enabled
	if cfg.Database.AutoMigrate {
		log.Info("running database migrations (auto_migrate: true)")
		if err := database.AutoMigrate(db, log); err != nil {
			log.Fatal("failed to run database migrations", zap.Error(err))
		}
	} else {
		log.Info("skipping database migrations (auto_migrate: false)")
	}

	// Seed initial data if enabled
	if cfg.Database.SeedData {
		log.Info("seeding database with initial data (seed_data: true)")
		if err := database.SeedData(db, log); err != nil {
			log.Fatal("failed to seed database", zap.Error(err))
		}
	} else {
		log.Info("skipping database seeding (seed_data: false)")
	}

	// Initialize User-Agent parser
	regexesPath := "assets/regexes.yaml"
	if err := useragent.InitGlobalParser(regexesPath, log); err != nil {
		log.Warn("failed to initialize User-Agent parser, using fallback", zap.Error(err))
	}

	// Initialize storage
	storage := postgres.New(db, log)

	// Choose the rate-limit window store: Redis when configured, otherwise
	// an in-process store (single instance deployments only)
	var windowStore protection.WindowStore
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			cancel()
			log.Fatal("failed to connect to redis", zap.Error(err))
		}
		cancel()
		defer func() {
			if err := rdb.Close(); err != nil {
				log.Error("failed to close redis connection", zap.Error(err))
			}
		}()
		windowStore = protection.NewRedisWindowStore(rdb, "smartlinks:rl")
		log.Info("using redis rate-limit window store", zap.String("addr", cfg.Redis.Addr))
	} else {
		windowStore = protection.NewMemoryWindowStore()
		log.Info("using in-memory rate-limit window store")
	}

	// Protection pipeline
	bypass := protection.BypassPolicy{
		Enabled:      cfg.Protection.AllowLoadTestBypass,
		SharedSecret: cfg.Protection.LoadTestSecret,
	}
	limiter := protection.NewRateLimiter(windowStore, storage, bypass, log)
	detector := protection.NewDetector(storage, bypass, log)
	machine := protection.NewMachine(storage, cfg.Protection.EscalationWindow, log)

	// Services
	passwordService := auth.NewPasswordService()
	linksService := service.NewLinksService(storage, machine, passwordService, cfg.Links.CodeLength, log)
	clickEngine := engine.New(storage, limiter, detector, machine, bypass, log)

	// HTTP server
	httpAPIServer := httpHandler.NewServer(storage, clickEngine, linksService, cfg.Protection.OwnerToken, log)
	httpMux := httpAPIServer.SetupRoutes()

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      httpMux,
		ReadTimeout:  cfg.HTTPServer.ReadTimeout,
		WriteTimeout: cfg.HTTPServer.WriteTimeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	log.Info("starting HTTP server", zap.String("address", cfg.HTTPServer.Address))

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server failed", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down SmartLinks service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", zap.Error(err))
	}

	log.Info("SmartLinks service stopped")
}
