// Package main provides the chathub HTTP server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okidwi/chathub/internal/chat"
	"github.com/okidwi/chathub/internal/collab"
	"github.com/okidwi/chathub/internal/config"
	"github.com/okidwi/chathub/internal/db"
	"github.com/okidwi/chathub/internal/llm"
	"github.com/okidwi/chathub/internal/metrics"
	"github.com/okidwi/chathub/internal/server"
)

func main() {
	cfg := config.Load()
	logger, closeLog := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	defer func() {
		if err := closeLog(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", err)
		}
	}()
	slog.SetDefault(logger)

	logger.Info("starting chathub-server",
		"port", cfg.ServerPort,
		"provider", cfg.Provider,
		"model", cfg.ChatModel,
	)

	completer, err := llm.NewClient(cfg)
	if err != nil {
		logger.Error("failed to create completion client", "error", err)
		os.Exit(1)
	}

	collector := metrics.NewCollector()

	managerOpts := []chat.Option{
		chat.WithTemperature(cfg.Temperature),
		chat.WithWindow(cfg.ContextWindow),
		chat.WithRequestTimeout(cfg.RequestTimeout),
		chat.WithLogger(logger),
		chat.WithUsageRecorder(collector),
	}

	// Optional turn archive backed by SurrealDB.
	var dbClient *db.Client
	if cfg.ArchiveEnabled {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		dbClient, err = db.NewClient(ctx, db.Config{
			URL:       cfg.SurrealDBURL,
			Namespace: cfg.SurrealDBNamespace,
			Database:  cfg.SurrealDBDatabase,
			Username:  cfg.SurrealDBUser,
			Password:  cfg.SurrealDBPass,
			AuthLevel: cfg.SurrealDBAuthLevel,
		}, logger)
		if err != nil {
			cancel()
			logger.Error("failed to connect to archive database", "error", err)
			os.Exit(1)
		}
		if err := dbClient.InitSchema(ctx); err != nil {
			cancel()
			logger.Error("failed to initialize archive schema", "error", err)
			os.Exit(1)
		}
		cancel()

		managerOpts = append(managerOpts, chat.WithArchive(db.NewArchive(dbClient, collector)))
		logger.Info("turn archive enabled", "url", cfg.SurrealDBURL)
	}
	defer func() {
		if dbClient != nil {
			if err := dbClient.Close(context.Background()); err != nil {
				logger.Error("failed to close archive database", "error", err)
			}
		}
	}()

	manager := chat.NewManager(completer, cfg.ChatModel, managerOpts...)
	store := collab.NewStore(collab.WithBaseURL(cfg.BaseURL))

	var catalog server.ModelLister
	if cfg.Provider == config.ProviderOllama {
		catalog = llm.NewCatalog(cfg.OllamaHost)
	}

	srv := server.New(server.Options{
		Chat:    manager,
		Store:   store,
		Catalog: catalog,
		Metrics: collector,
		Logger:  logger,
	})

	httpServer := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      srv.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 180 * time.Second, // Long for LLM responses
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("API available", "url", fmt.Sprintf("http://localhost:%s/api", cfg.ServerPort))

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
