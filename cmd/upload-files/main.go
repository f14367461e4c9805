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
	"medialift/internal/progress"
	"medialift/internal/remote"
	"medialift/internal/uploader"
)

func main() {
	// Parse command line flags
	workers := flag.Int("workers", 0, "Number of upload workers (overrides UPLOAD_WORKERS)")
	dryRun := flag.Bool("dry-run", false, "Claim and report without uploading or writing outcomes")
	flag.Parse()

	// Load configuration
	configLoader := config.NewConfigLoader()
	appConfig, err := configLoader.Load()
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	if *workers > 0 {
		appConfig.Upload.Workers = *workers
	}

	if err := appConfig.ValidateRemote(); err != nil {
		fmt.Printf("Error: %v\n", err)
		fmt.Println("Usage: upload-files [-workers <num>] [-dry-run]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if appConfig.Upload.Workers > config.WorkerWarnThreshold {
		fmt.Printf("Warning: %d workers is above the recommended maximum of %d and may overload the remote server\n",
			appConfig.Upload.Workers, config.WorkerWarnThreshold)
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

	// Connectivity preflight; an unverified server is reported, not fatal
	preflight := remote.NewClient(&appConfig.Remote, logger)
	if !preflight.Ping(ctx) {
		fmt.Println("Warning: could not verify the remote server, proceeding anyway")
	}
	preflight.Close()

	// Assemble the pipeline
	store := catalog.NewStore(manager, logger)
	tracker := progress.NewTracker("Upload", nil)

	orch := uploader.NewOrchestrator(uploader.Dependencies{
		Store:  store,
		Hasher: media.NewHasher(appConfig.Upload.HashChunkSize),
		Factory: func() uploader.AssetSender {
			// one client per worker, so connections are never shared
			return remote.NewClient(&appConfig.Remote, logger)
		},
		Sink:   tracker,
		Logger: logger,
	}, uploader.Options{
		MaxConsecutiveErrors: appConfig.Upload.MaxConsecutiveErrors,
		Delay:                appConfig.Upload.Delay(),
		Workers:              appConfig.Upload.Workers,
		DryRun:               *dryRun,
	})

	fmt.Println("Fetching pending files...")
	summary, runErr := orch.UploadRun(ctx)
	stop()

	switch {
	case errors.Is(runErr, context.Canceled):
		fmt.Println("\n\nUpload interrupted, partial results below")
	case errors.Is(runErr, uploader.ErrTooManyFailures):
		fmt.Printf("\n\nToo many consecutive failures (%d), stopping\n", appConfig.Upload.MaxConsecutiveErrors)
	case runErr != nil:
		fmt.Printf("\nError uploading files: %v\n", runErr)
		os.Exit(1)
	}

	tracker.PrintSummary()
	logger.Info().Int("successful", summary.Successful).Int("duplicates", summary.Duplicates).
		Int("skipped", summary.Skipped).Int("errors", summary.Errors).Msg("Upload run finished")

	if runErr != nil {
		os.Exit(1)
	}
}
