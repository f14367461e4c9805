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
	"medialift/internal/scanner"
	"medialift/internal/uploader"
	"medialift/internal/utils"
)

func main() {
	// Parse command line flags
	sourceDir := flag.String("dir", "", "Source directory to scan (overrides SOURCE_DIR)")
	folder := flag.String("folder", "", "Restrict the scan to one subfolder of the source directory")
	flag.Parse()

	// Load configuration
	configLoader := config.NewConfigLoader()
	appConfig, err := configLoader.Load()
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	if *sourceDir != "" {
		appConfig.Source.Dir = *sourceDir
	}

	if err := appConfig.ValidateSource(); err != nil {
		fmt.Printf("Error: %v\n", err)
		fmt.Println("Usage: scan-files [-dir <source-directory>] [-folder <subfolder>]")
		flag.PrintDefaults()
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

	// Assemble the pipeline
	store := catalog.NewStore(manager, logger)
	classifier := media.NewClassifier(appConfig.Source.ImageExtensionList(), appConfig.Source.VideoExtensionList())
	tracker := progress.NewTracker("Scan", nil)

	orch := uploader.NewOrchestrator(uploader.Dependencies{
		Store:     store,
		Scanner:   scanner.NewScanner(classifier, logger),
		Hasher:    media.NewHasher(appConfig.Upload.HashChunkSize),
		Extractor: media.NewExtractor(logger),
		Sink:      tracker,
		Logger:    logger,
	}, uploader.Options{
		SourceDir:            appConfig.Source.Dir,
		FolderFilter:         *folder,
		MaxConsecutiveErrors: appConfig.Upload.MaxConsecutiveErrors,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Scanning %s...\n", appConfig.Source.Dir)
	summary, runErr := orch.ScanRun(ctx)
	stop()

	header := "\n\n=== Scan Complete ==="
	switch {
	case errors.Is(runErr, context.Canceled):
		header = "\n\n=== Scan Interrupted (partial results) ==="
	case errors.Is(runErr, uploader.ErrTooManyFailures):
		fmt.Printf("\n\nToo many consecutive failures (%d), stopping\n", appConfig.Upload.MaxConsecutiveErrors)
		header = "=== Scan Aborted (partial results) ==="
	case runErr != nil:
		fmt.Printf("\nError scanning directory: %v\n", runErr)
		os.Exit(1)
	}

	// Print results
	fmt.Println(header)
	fmt.Printf("Files discovered: %d\n", summary.Total)
	fmt.Printf("Files cataloged:  %d\n", summary.Cataloged)
	fmt.Printf("Errors:           %d\n", summary.Errors)
	fmt.Printf("Duration:         %s\n", utils.FormatDuration(summary.Elapsed))
	if summary.Elapsed > 0 {
		fmt.Printf("Files/sec:        %.2f\n", float64(summary.Cataloged)/summary.Elapsed.Seconds())
	}

	// Catalog status after the scan; the run context may already be canceled
	if stats, err := store.GetStats(context.Background()); err == nil {
		fmt.Println("\n=== Catalog Status ===")
		fmt.Printf("Total files:      %d\n", stats.Total)
		fmt.Printf("Pending upload:   %d\n", stats.PendingUpload)
		fmt.Printf("With metadata:    %d\n", stats.WithMetadata)
	}

	if runErr != nil {
		os.Exit(1)
	}
}
