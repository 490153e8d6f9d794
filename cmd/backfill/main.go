// Command backfill geocodes listings stored before geometry was recorded.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Abdurahmanit/GroupProject/wanderlust/internal/adapter/geocoding/mapbox"
	mongoRepo "github.com/Abdurahmanit/GroupProject/wanderlust/internal/adapter/repository/mongodb"
	"github.com/Abdurahmanit/GroupProject/wanderlust/internal/config"
	"github.com/Abdurahmanit/GroupProject/wanderlust/internal/listing/usecase"
	"github.com/Abdurahmanit/GroupProject/wanderlust/internal/platform/logger"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("INFO: .env file not found or error loading: %v. Relying on OS environment variables.\n", err)
	}

	appLogger := logger.New(nil).Named("Backfill")
	defer func() { _ = appLogger.Sync() }()

	cfg, err := config.LoadConfig(appLogger)
	if err != nil {
		appLogger.Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, db, err := mongoRepo.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	repo, err := mongoRepo.NewListingRepository(db, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize ListingRepository", zap.Error(err))
	}
	geocoder := mapbox.NewClient(cfg.MapboxBaseURL, cfg.MapboxToken, cfg.GeocodingTimeout, appLogger)

	// No publisher, cache or mailer: the run only writes geometry.
	uc := usecase.NewListingUsecase(repo, geocoder, nil, nil, nil, appLogger)
	report, err := uc.BackfillGeometry(ctx)
	if err != nil {
		appLogger.Error("Backfill aborted", zap.Error(err))
		return 1
	}
	fmt.Printf("scanned=%d updated=%d skipped=%d failed=%d\n", report.Scanned, report.Updated, report.Skipped, report.Failed)
	if report.Failed > 0 {
		return 2
	}
	return 0
}
