package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"

	"medialift/internal/catalog"
	"medialift/internal/config"
	"medialift/internal/database"
	"medialift/internal/logging"
	"medialift/internal/models"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed)
)

func main() {
	flag.Parse()

	// Load configuration
	configLoader := config.NewConfigLoader()
	appConfig, err := configLoader.Load()
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// The status query needs no console log chatter
	logger := logging.NewLogger(logging.ErrorLevel, io.Discard)

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

	store := catalog.NewStore(manager, logger)
	stats, err := store.GetStats(context.Background())
	if err != nil {
		fmt.Printf("Error fetching catalog status: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\n=== Catalog Status ===")
	fmt.Printf("Pending:              %d\n", stats.ByStatus[models.StatusPending])
	green.Printf("Successful uploads:   %d\n", stats.ByStatus[models.StatusSuccess])
	yellow.Printf("Duplicates detected:  %d\n", stats.ByStatus[models.StatusDuplicate])
	red.Printf("Errors:               %d\n", stats.ByStatus[models.StatusError])
	fmt.Printf("Total:                %d files\n", stats.Total)
	fmt.Println()
	fmt.Printf("Pending for upload:   %d\n", stats.PendingUpload)
	fmt.Printf("Files with metadata:  %d\n", stats.WithMetadata)
}
