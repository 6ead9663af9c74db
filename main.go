package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	config "taskpilot/app/configs"
	"taskpilot/app/core/archive"
	httpchannel "taskpilot/app/core/interaction/http"
	"taskpilot/app/core/language"
	"taskpilot/app/core/planner"
	"taskpilot/app/pkg/logger"
)

func main() {
	if err := logger.Init("output/logs"); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	logger.Info("Taskpilot starting...")

	cfgManager, err := config.NewManager(config.DefaultPath())
	if err != nil {
		logger.Error("Failed to load config: %v", err)
		os.Exit(1)
	}
	cfg := cfgManager.Get()

	database, err := archive.Open(cfg.Archive.Dir)
	if err != nil {
		logger.Error("Failed to initialize archive db: %v", err)
		os.Exit(1)
	}
	defer database.Close()
	archiveStore := archive.NewStore(database)

	languageClient, err := language.NewClient(cfg.Language)
	if err != nil {
		logger.Error("Failed to initialize language client: %v", err)
		os.Exit(1)
	}

	store := planner.NewPlanStore()
	orchestrator := planner.NewOrchestrator(languageClient, store, cfg.Planner.MaxClarifyingQuestions)
	adjuster := planner.NewAdjuster(languageClient, store)
	refiner := planner.NewRefiner(languageClient, store, cfg.Planner.ApologyText)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		err := cfgManager.Watch(ctx, func(updated config.Config) {
			languageClient.SetModel(updated.Language.Model)
		})
		if err != nil && ctx.Err() == nil {
			logger.Error("Config watch stopped: %v", err)
		}
	}()

	server := httpchannel.NewServer(cfg.HTTP.Port, orchestrator, adjuster, refiner, archiveStore)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("Shutdown signal received")
		cancel()
	}()

	if err := server.Start(ctx); err != nil {
		logger.Error("HTTP server error: %v", err)
		os.Exit(1)
	}
	logger.Info("Taskpilot stopped")
}
