package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Abdurahmanit/GroupProject/wanderlust/internal/adapter/geocoding/mapbox"
	grpcAdapter "github.com/Abdurahmanit/GroupProject/wanderlust/internal/adapter/grpc"
	httpAdapter "github.com/Abdurahmanit/GroupProject/wanderlust/internal/adapter/http"
	"github.com/Abdurahmanit/GroupProject/wanderlust/internal/adapter/mailer"
	natsAdapter "github.com/Abdurahmanit/GroupProject/wanderlust/internal/adapter/messaging/nats"
	"github.com/Abdurahmanit/GroupProject/wanderlust/internal/adapter/repository/cache"
	mongoRepo "github.com/Abdurahmanit/GroupProject/wanderlust/internal/adapter/repository/mongodb"
	"github.com/Abdurahmanit/GroupProject/wanderlust/internal/adapter/storage/s3"
	"github.com/Abdurahmanit/GroupProject/wanderlust/internal/config"
	"github.com/Abdurahmanit/GroupProject/wanderlust/internal/listing/domain"
	"github.com/Abdurahmanit/GroupProject/wanderlust/internal/listing/usecase"
	"github.com/Abdurahmanit/GroupProject/wanderlust/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/wanderlust/internal/platform/metrics"
	"github.com/Abdurahmanit/GroupProject/wanderlust/internal/platform/tracer"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("INFO: .env file not found or error loading: %v. Relying on OS environment variables.\n", err)
	}

	appLogger := logger.New(nil)
	defer func() { _ = appLogger.Sync() }()

	cfg, err := config.LoadConfig(appLogger)
	if err != nil {
		appLogger.Fatal("Failed to load configuration", zap.Error(err))
	}
	appLogger = appLogger.With(zap.String("service", cfg.ServiceName))
	appLogger.Info("Application starting...")

	tp := tracer.InitTracer(cfg.ServiceName, cfg.OTExporterOTLPEndpoint, appLogger)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			appLogger.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}()

	metricsManager := metrics.NewMetricsManager("listing_service")

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStart()

	mongoClient, db, err := mongoRepo.Connect(startCtx, cfg.MongoURI, cfg.MongoDatabase, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer func() {
		appLogger.Info("Disconnecting from MongoDB...")
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			appLogger.Error("Error disconnecting from MongoDB", zap.Error(err))
		}
	}()

	listingRepo, err := mongoRepo.NewListingRepository(db, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize ListingRepository", zap.Error(err))
	}
	userRepo := mongoRepo.NewUserRepository(db, appLogger)

	// Redis is optional: without it every read goes to MongoDB.
	var listingCache domain.ListingCache
	redisClient, err := cache.NewRedisClient(startCtx, cfg.RedisAddress, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		appLogger.Warn("Redis unavailable, listing cache disabled", zap.Error(err), zap.String("address", cfg.RedisAddress))
	} else {
		defer redisClient.Close()
		listingCache = cache.NewListingCache(redisClient, cfg.CacheTTL, appLogger)
	}

	natsConn, err := natsAdapter.Connect(cfg.NATSURL, cfg.ServiceName, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to NATS", zap.Error(err))
	}
	defer natsAdapter.Drain(natsConn, appLogger)
	publisher := natsAdapter.NewPublisher(natsConn, appLogger)

	imageStorage, err := s3.NewS3Storage(startCtx, cfg.MinIOEndpoint, cfg.MinIOAccessKey, cfg.MinIOSecretKey, cfg.MinIOBucket, cfg.MinIOUseSSL, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize image storage", zap.Error(err))
	}

	var (
		notifier      domain.OwnerNotifier
		ownerNotifier *mailer.OwnerNotifier
	)
	if cfg.SMTPHost != "" {
		n, err := mailer.NewOwnerNotifier(mailer.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		}, userRepo, appLogger)
		if err != nil {
			appLogger.Warn("Owner notifications disabled", zap.Error(err))
		} else {
			notifier, ownerNotifier = n, n
		}
	}

	geocoder := mapbox.NewClient(cfg.MapboxBaseURL, cfg.MapboxToken, cfg.GeocodingTimeout, appLogger,
		mapbox.WithFailureCounter(metricsManager.GeocodingFailuresTotal))

	listingUC := usecase.NewListingUsecase(listingRepo, geocoder, publisher, listingCache, notifier, appLogger)
	imageUC := usecase.NewImageUsecase(imageStorage, appLogger)

	reviewSubscriber := natsAdapter.NewReviewSubscriber(natsConn, listingUC, appLogger)
	if err := reviewSubscriber.Start(); err != nil {
		appLogger.Fatal("Failed to subscribe to review events", zap.Error(err))
	}

	handler := httpAdapter.NewListingHandler(listingUC, imageUC, metricsManager, appLogger)
	httpServer := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           httpAdapter.NewRouter(handler, cfg.JWTSecret, metricsManager, appLogger),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		appLogger.Info("Starting HTTP server", zap.String("port", cfg.HTTPPort))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	ops := grpcAdapter.NewOpsServer(cfg.ServiceName, appLogger)
	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		appLogger.Fatal("Failed to listen for gRPC", zap.String("port", cfg.GRPCPort), zap.Error(err))
	}
	go func() {
		appLogger.Info("Starting gRPC ops server", zap.String("port", cfg.GRPCPort))
		if err := ops.Server.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			appLogger.Fatal("gRPC server Serve error", zap.Error(err))
		}
	}()
	ops.SetServing(true)

	var metricsServer *http.Server
	if cfg.PrometheusMetricsPort != "" {
		metricsServer = metrics.NewMetricsServer(cfg.PrometheusMetricsPort, metricsManager.Registry, appLogger)
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				appLogger.Error("Prometheus metrics server failed", zap.Error(err))
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	appLogger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	ops.SetServing(false)
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		appLogger.Error("HTTP server shutdown failed", zap.Error(err))
	}
	reviewSubscriber.Stop()
	if ownerNotifier != nil {
		ownerNotifier.Wait()
	}
	ops.Stop()
	if metricsServer != nil {
		if err := metricsServer.Shutdown(ctx); err != nil {
			appLogger.Error("Metrics server shutdown failed", zap.Error(err))
		}
	}
	appLogger.Info("Application shut down")
}
