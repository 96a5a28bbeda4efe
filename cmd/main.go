package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "testimonial-api/docs"
	"testimonial-api/internal/api"
	"testimonial-api/internal/config"
	"testimonial-api/internal/consumer"
	"testimonial-api/internal/logger"
	"testimonial-api/internal/messaging"
	"testimonial-api/internal/metrics"
	"testimonial-api/internal/storage"
)

// @title Testimonial API
// @version 1.0
// @description Collects feedback submissions and lists recent testimonials
// @host localhost:8080
// @BasePath /
// @schemes http
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logger.Init(cfg.Environment, cfg.Log.Level); err != nil {
		return err
	}
	defer logger.Sync()
	log := logger.GetLogger()
	log.Infow("Configuration loaded", "path", configPath, "environment", cfg.Environment)

	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// A store that cannot be reached at startup is treated as not configured;
	// the health endpoint reports it and writes fail with a storage error.
	db, err := storage.NewStorage(ctx, cfg.Database.URL, cfg.Database.Name, cfg.Database.Timeout)
	if err != nil {
		log.Errorw("Database unavailable, continuing without it", "error", err)
		db, _ = storage.NewStorage(ctx, "", cfg.Database.Name, cfg.Database.Timeout)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.Close(closeCtx); err != nil {
			log.Warnw("Database disconnect failed", "error", err)
		}
	}()
	if db.Configured() {
		log.Infow("MongoDB connected", "database", cfg.Database.Name)
	} else {
		log.Warn("MongoDB not configured")
	}

	var events api.EventPublisher
	if cfg.RabbitMQ.URL != "" {
		rabbitClient, c, err := startEvents(cfg)
		if err != nil {
			log.Errorw("Event publishing disabled", "error", err)
		} else {
			events = rabbitClient
			defer rabbitClient.Close()
			defer c.Stop()
		}
	}

	apiHandler := api.NewAPI(db, events, cfg)
	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           apiHandler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infow("Starting API server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutdown initiated...")
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warnw("HTTP shutdown error", "error", err)
	}

	log.Info("Graceful shutdown complete")
	return nil
}

func startEvents(cfg *config.Config) (*messaging.RabbitClient, *consumer.Consumer, error) {
	rabbitClient, err := messaging.NewRabbitClient(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue)
	if err != nil {
		return nil, nil, err
	}
	if err := rabbitClient.DeclareQueue(); err != nil {
		_ = rabbitClient.Close()
		return nil, nil, err
	}

	c, err := consumer.StartConsumer(rabbitClient.GetConnection(), cfg.RabbitMQ.Queue, cfg.Workers, consumer.LogHandler(logger.GetLogger()))
	if err != nil {
		_ = rabbitClient.Close()
		return nil, nil, err
	}
	logger.GetLogger().Infow("RabbitMQ connected", "queue", cfg.RabbitMQ.Queue)
	return rabbitClient, c, nil
}
