package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caresync-health/platform/pkg/common/config"
	"github.com/caresync-health/platform/pkg/common/database"
	"github.com/caresync-health/platform/pkg/common/kafka"
	"github.com/caresync-health/platform/pkg/common/logger"
	"github.com/caresync-health/platform/pkg/device"
	"github.com/caresync-health/platform/pkg/gateway/auth"
	"github.com/caresync-health/platform/pkg/gateway/routes"
	"github.com/caresync-health/platform/pkg/identity"
	"github.com/caresync-health/platform/pkg/ingestion"
	"github.com/caresync-health/platform/pkg/normalizer"
	"github.com/caresync-health/platform/pkg/observability/metrics"
	"github.com/caresync-health/platform/pkg/storage"
)

func main() {
	logger.Init()
	metrics.Init()
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Log.WithError(err).Fatal("invalid configuration")
	}

	tokens, err := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, time.Hour)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to configure session tokens")
	}

	db, err := database.GetPostgres(cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to connect to postgres")
	}
	defer database.ClosePostgres()

	deviceRepo := device.NewRepository(db)
	subjectRepo := identity.NewRepository(db)
	observationRepo := ingestion.NewRepository(db, cfg.AtomicBulkInsert, cfg.BulkInsertBatchSize)
	for name, migrate := range map[string]func() error{
		"devices":      deviceRepo.AutoMigrate,
		"patients":     subjectRepo.AutoMigrate,
		"observations": observationRepo.AutoMigrate,
	} {
		if err := migrate(); err != nil {
			logger.Log.WithError(err).WithField("tables", name).Fatal("failed to migrate tables")
		}
	}

	tables, err := normalizer.LoadTables(cfg.FieldAliasesPath)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to load field aliases")
	}
	norm := normalizer.New(normalizer.Policy{RejectEmptyVitals: cfg.RejectEmptyVitalSync}, tables...)

	readiness := []routes.ReadinessCheck{{Name: "postgres", Check: func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}}}

	var cache ingestion.SnapshotCache
	if cfg.LatestVitalsTTL > 0 {
		client := database.GetRedis(cfg)
		defer database.CloseRedis()
		cache = storage.NewSnapshotCache(client, "caresync:", cfg.LatestVitalsTTL)
		readiness = append(readiness, routes.ReadinessCheck{Name: "redis", Check: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}})
	}

	var deviceEvents, observationEvents device.Publisher
	if cfg.KafkaDeviceTopic != "" {
		producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaDeviceTopic)
		defer producer.Close()
		deviceEvents = producer
	}
	if cfg.KafkaObservationTopic != "" {
		producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaObservationTopic)
		defer producer.Close()
		observationEvents = producer
	}

	registry := device.NewRegistry(deviceRepo, deviceEvents)
	resolver := identity.NewResolver(deviceRepo, subjectRepo)
	svc := ingestion.NewService(resolver, registry, norm, observationRepo, cache, observationEvents, ingestion.Options{
		MetricsListLimit: cfg.MetricsListLimit,
	})

	router := routes.NewRouter(routes.RouterConfig{
		Tokens:         tokens,
		Devices:        &routes.DeviceHandler{Registry: registry, Resolver: resolver, Ingestion: svc},
		Patients:       &routes.PatientHandler{Ingestion: svc},
		Readiness:      readiness,
		Metrics:        metrics.Handler(),
		MaxRequestBody: cfg.MaxRequestBody,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host":          cfg.ServerHost,
			"port":          cfg.ServerPort,
			"atomic_bulk":   cfg.AtomicBulkInsert,
			"reject_empty":  cfg.RejectEmptyVitalSync,
			"latest_cache":  cache != nil,
			"device_events": deviceEvents != nil,
		}).Info("Ingestion Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Ingestion Service...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("server forced to shutdown")
	}

	logger.Log.Info("Ingestion Service stopped")
}
