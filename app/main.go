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

	"github.com/seorab/blogpace/app/api"
	"github.com/seorab/blogpace/app/cfg"
	"github.com/seorab/blogpace/app/challenge"
	"github.com/seorab/blogpace/app/config"
	"github.com/seorab/blogpace/app/database"
	"github.com/seorab/blogpace/app/feed"
	"github.com/seorab/blogpace/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
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
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting Blogpace server", "version", appCfg.Version)

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

	repo := database.NewParticipantRepository(db)

	definitions, err := config.NewLoader(appCfg.ParticipantsDir).LoadAll()
	if err != nil {
		slog.Error("Failed to load participant definitions", "dir", appCfg.ParticipantsDir, "error", err)
		os.Exit(1)
	}
	slog.Info("Loaded participant definitions", "dir", appCfg.ParticipantsDir, "count", len(definitions))

	registered := 0
	for _, definition := range definitions {
		err := repo.UpsertParticipant(definition.Slug, definition.Name, definition.FeedURL,
			definition.WebsiteURL, definition.ResolvedSkipCount())
		if err != nil {
			slog.Warn("Failed to register participant", "participant", definition.Slug, "error", err)
			continue
		}
		registered++
	}
	slog.Info("Registered participants", "registered", registered, "total", len(definitions))

	schedule, err := challenge.NewSchedule(appCfg.EpochStart, appCfg.FirstPeriodEnd,
		time.Duration(appCfg.PeriodDays)*24*time.Hour)
	if err != nil {
		slog.Error("Invalid challenge schedule", "error", err)
		os.Exit(1)
	}

	var special *challenge.Window
	if appCfg.SpecialMissionEnabled() {
		special = &challenge.Window{Start: appCfg.SpecialMissionStart, End: appCfg.SpecialMissionEnd}
	}

	fetcher := feed.NewFetcher(&http.Client{}, appCfg.UserAgent,
		time.Duration(appCfg.FetchTimeout)*time.Second)
	processor := challenge.NewProcessor(repo, fetcher, feed.NewParser(), feed.NewSnippetExtractor(),
		challenge.NewClassifier(schedule, special), challenge.NewAccruer(schedule, appCfg.EarlyFirstSuccess),
		appCfg.WorkerCount)

	slog.Info("Starting background scheduler", "workers", appCfg.WorkerCount, "interval_seconds", appCfg.SchedulerInterval)
	scheduler := tasks.NewScheduler(processor)
	scheduler.Start()
	defer scheduler.Stop()

	handler := api.NewHandler(repo, processor, scheduler, appCfg.DisplayLanguage)
	server := api.NewServer(handler, appCfg.APIAccessKey, appCfg.BaseUrl)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
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

	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Scheduler is stopped via defer
	slog.Info("Shutdown complete")
}
