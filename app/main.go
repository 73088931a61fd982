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

	"github.com/zenfeed/zenfeed/app/aggregator"
	"github.com/zenfeed/zenfeed/app/api"
	"github.com/zenfeed/zenfeed/app/cfg"
	"github.com/zenfeed/zenfeed/app/content"
	"github.com/zenfeed/zenfeed/app/database"
	"github.com/zenfeed/zenfeed/app/sources"
	"github.com/zenfeed/zenfeed/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting ZenFeed server", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "schema_version", version, "dirty", dirty)

	sourceRepo := database.NewSourceRepository(db)
	accountRepo := database.NewAccountRepository(db)
	itemRepo := database.NewItemRepository(db)

	registerSeeds(appCfg.SourcesDir, sourceRepo)

	httpClient := &http.Client{Timeout: time.Duration(appCfg.FetchTimeout) * time.Second}
	fetchTimeout := time.Duration(appCfg.FetchTimeout) * time.Second

	registry := sources.NewRegistry(
		sources.NewYouTubeAdapter(httpClient, appCfg.YouTubeAPIKey, appCfg.UserAgent, fetchTimeout),
		sources.NewInstagramAdapter(httpClient, appCfg.UserAgent, fetchTimeout),
		sources.NewTwitterAdapter(httpClient, appCfg.TwitterBearerToken, appCfg.UserAgent, fetchTimeout),
		sources.NewRSSAdapter(httpClient, appCfg.UserAgent, fetchTimeout),
		sources.NewNewsletterAdapter(httpClient, appCfg.UserAgent, fetchTimeout),
		sources.NewCategoryAdapter(httpClient, appCfg.UserAgent, fetchTimeout),
	)

	svc := aggregator.New(registry, appCfg.WorkerCount)

	slog.Info("Starting background scheduler", "workers", appCfg.WorkerCount, "interval_seconds", appCfg.SchedulerInterval)
	scheduler := tasks.NewScheduler(svc, sourceRepo, accountRepo, itemRepo, httpClient, content.NewExtractor())
	scheduler.Start()
	defer scheduler.Stop()

	handler := api.NewHandler(svc, sourceRepo, accountRepo, itemRepo, scheduler)
	engine := api.NewServer(handler)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      engine,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Scheduler is stopped via defer
	slog.Info("Shutdown complete")
}

// registerSeeds loads seed files and upserts them into the sources table.
// Seed errors are logged but never fatal, a bad seed file must not take the
// service down.
func registerSeeds(sourcesDir string, sourceRepo database.SourceRepository) {
	seeds, err := content.NewSeedLoader(sourcesDir).Run()
	if err != nil {
		slog.Warn("Failed to load source seeds", "dir", sourcesDir, "error", err)
		return
	}
	if len(seeds) == 0 {
		return
	}

	registered := 0
	changed := 0
	for _, seed := range seeds {
		id, identifierChanged, err := sourceRepo.UpsertSeedSource(seed)
		if err != nil {
			slog.Warn("Failed to register seed source", "name", seed.Name, "error", err)
			continue
		}

		if identifierChanged {
			slog.Info("Seed source identifier updated", "name", seed.Name, "id", id)
			changed++
		}
		registered++
	}

	slog.Info("Seed sources registered", "registered", registered, "total", len(seeds), "identifier_changes", changed)
}
