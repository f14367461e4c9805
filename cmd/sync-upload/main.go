package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"medialift/internal/catalog"
	"medialift/internal/config"
	"medialift/internal/database"
	"medialift/internal/logging"
	"medialift/internal/media"
	"medialift/internal/metrics"
	"medialift/internal/monitor"
	"medialift/internal/progress"
	"medialift/internal/remote"
	"medialift/internal/scanner"
	"medialift/internal/uploader"
)

func main() {
	// Parse command line flags
	folder := flag.String("folder", "", "Restrict the pass to one subfolder of the source directory")
	dryRun := flag.Bool("dry-run", false, "Catalog and report without uploading or writing outcomes")
	monitorFlag := flag.Bool("monitor", false, "Serve the monitor endpoint during the run (overrides MONITOR_ENABLED)")
	flag.Parse()

	// Load configuration
	configLoader := config.NewConfigLoader()
	appConfig, err := configLoader.Load()
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	if err := appConfig.ValidateSource(); err != nil {
		fmt.Printf("Error: %v\n", err)
		fmt.Println("Usage: sync-upload [-folder <subfolder>] [-dry-run] [-monitor]")
		flag.PrintDefaults()
		os.Exit(1)
	}
	if err := appConfig.ValidateRemote(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	// Check if the source path exists
	if _, err := os.Stat(appConfig.Source.Dir); os.IsNotExist(err) {
		fmt.Printf("Error: Source directory does not exist: %s\n", appConfig.Source.Dir)
		os.Exit(1)
	}

	// Set up logging
	writer, logCloser, err := logging.BuildWriter(appConfig.Logging.File)
	if err != nil {
		fmt.Printf("Error opening log file: %v\n", err)
		os.Exit(1)
	}
	if logCloser != nil {
		defer logCloser.Close()
	}
	logger := logging.NewLogger(logging.LogLevel(appConfig.Logging.Level), writer)

	// Connect the catalog
	fmt.Println("Connecting to the catalog database...")
	manager, err := database.NewDatabaseManager(&appConfig.Database, logger)
	if err != nil {
		fmt.Printf("Error connecting to database: %v\n", err)
		os.Exit(1)
	}
	defer manager.Close()

	if err := database.NewMigrationManager(manager.GetGormDB(), logger).Migrate(); err != nil {
		fmt.Printf("Error migrating catalog schema: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connectivity preflight; an unverified server is reported, not fatal.
	// The same client later serves the monitor's remote health probe.
	pingClient := remote.NewClient(&appConfig.Remote, logger)
	defer pingClient.Close()
	if !pingClient.Ping(ctx) {
		fmt.Println("Warning: could not verify the remote server, proceeding anyway")
	}

	// Assemble the pipeline
	store := catalog.NewStore(manager, logger)
	classifier := media.NewClassifier(appConfig.Source.ImageExtensionList(), appConfig.Source.VideoExtensionList())
	tracker := progress.NewTracker("Scan and upload", nil)

	var appMetrics *metrics.Metrics
	if appConfig.Monitor.Enabled || *monitorFlag {
		appMetrics = metrics.InitializeMetrics()
		server := monitor.NewServer(manager, store, pingClient, appMetrics, logger)
		go func() {
			if err := server.Start(appConfig.Monitor.Listen); err != nil {
				logger.Error().Err(err).Msg("Monitor endpoint stopped")
			}
		}()
		defer func() {
			if err := server.Shutdown(); err != nil {
				logger.Warn().Err(err).Msg("Monitor shutdown failed")
			}
		}()
		fmt.Printf("Monitor endpoint on %s\n", appConfig.Monitor.Listen)
	}

	orch := uploader.NewOrchestrator(uploader.Dependencies{
		Store:     store,
		Scanner:   scanner.NewScanner(classifier, logger),
		Hasher:    media.NewHasher(appConfig.Upload.HashChunkSize),
		Extractor: media.NewExtractor(logger),
		Factory: func() uploader.AssetSender {
			return remote.NewClient(&appConfig.Remote, logger)
		},
		Sink:    tracker,
		Metrics: appMetrics,
		Logger:  logger,
	}, uploader.Options{
		SourceDir:            appConfig.Source.Dir,
		FolderFilter:         *folder,
		MaxConsecutiveErrors: appConfig.Upload.MaxConsecutiveErrors,
		Delay:                appConfig.Upload.Delay(),
		DryRun:               *dryRun,
	})

	fmt.Printf("Scanning and uploading %s...\n", appConfig.Source.Dir)
	summary, runErr := orch.SyncRun(ctx)
	stop()

	switch {
	case errors.Is(runErr, context.Canceled):
		fmt.Println("\n\nRun interrupted, partial results below")
	case errors.Is(runErr, uploader.ErrTooManyFailures):
		fmt.Printf("\n\nToo many consecutive failures (%d), stopping\n", appConfig.Upload.MaxConsecutiveErrors)
	case runErr != nil:
		fmt.Printf("\nError during the combined pass: %v\n", runErr)
		os.Exit(1)
	}

	tracker.PrintSummary()
	logger.Info().Int("cataloged", summary.Cataloged).Int("successful", summary.Successful).
		Int("duplicates", summary.Duplicates).Int("skipped", summary.Skipped).
		Int("errors", summary.Errors).Msg("Combined run finished")

	if runErr != nil {
		os.Exit(1)
	}
}
