package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/muelle-planner/platform/pkg/archive"
	"github.com/muelle-planner/platform/pkg/common/auth"
	"github.com/muelle-planner/platform/pkg/common/config"
	"github.com/muelle-planner/platform/pkg/common/kafka"
	"github.com/muelle-planner/platform/pkg/common/logger"
	"github.com/muelle-planner/platform/pkg/common/middleware"
	"github.com/muelle-planner/platform/pkg/observability/metrics"
	"github.com/muelle-planner/platform/pkg/planner"
	"github.com/muelle-planner/platform/pkg/remote"
	"github.com/muelle-planner/platform/pkg/schema"
	"github.com/muelle-planner/platform/pkg/storage"
	"github.com/muelle-planner/platform/pkg/terminology"
)

func main() {
	logger.Init()
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	catalog, err := terminology.Load(cfg.HeaderCatalogPath)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to load header catalog")
	}

	variant, err := schema.ParseVariant(cfg.DefaultVariant)
	if err != nil {
		logger.Log.WithError(err).Warn("invalid DEFAULT_VARIANT, falling back")
		variant = schema.DefaultVariant
	}

	snapshots, closeSnapshots, err := storage.Open(ctx, cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to open snapshot store")
	}
	defer closeSnapshots()

	opts := planner.Options{
		Variant:   variant,
		Catalog:   catalog,
		Snapshots: snapshots,
		Remote: remote.NewLoader(remote.Options{
			Timeout:      cfg.RemoteTimeout,
			Retries:      cfg.RemoteRetries,
			MaxBytes:     cfg.RemoteMaxBytes,
			TokenURL:     cfg.RemoteOAuthTokenURL,
			ClientID:     cfg.RemoteOAuthClientID,
			ClientSecret: cfg.RemoteOAuthClientSecret,
			Scopes:       cfg.RemoteOAuthScopes,
		}),
	}

	if cfg.DockEventsTopic != "" {
		producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.DockEventsTopic)
		defer producer.Close()
		opts.Events = producer
	}

	if cfg.ArchiveS3Bucket != "" {
		archiver, err := archive.New(ctx, archive.Config{
			Bucket:          cfg.ArchiveS3Bucket,
			Region:          cfg.ArchiveS3Region,
			Prefix:          cfg.ArchiveS3Prefix,
			AccessKeyID:     cfg.ArchiveS3AccessKeyID,
			SecretAccessKey: cfg.ArchiveS3SecretAccessKey,
		})
		if err != nil {
			logger.Log.WithError(err).Warn("export archive not configured")
		} else {
			opts.Archive = archiver
		}
	}

	svc := planner.NewService(opts)
	svc.Bootstrap(ctx)

	if cfg.DockDocumentsTopic != "" {
		var dlq planner.EventPublisher
		if cfg.DockDLQTopic != "" {
			dlqProducer := kafka.NewProducer(cfg.KafkaBrokers, cfg.DockDLQTopic)
			defer dlqProducer.Close()
			dlq = dlqProducer
		}
		consumer := planner.NewDocumentConsumer(svc, kafka.NewConsumer(cfg.KafkaBrokers, cfg.DockDocumentsTopic, cfg.KafkaGroupID), dlq)
		defer consumer.Close()
		go func() {
			if err := consumer.Run(ctx); err != nil {
				logger.Log.WithError(err).Error("document consumer stopped")
			}
		}()
	}

	var jwtManager *auth.JWTManager
	if cfg.APIJWTSecret != "" {
		jwtManager, err = auth.NewJWTManager(cfg.APIJWTSecret, cfg.APIJWTIssuer, 12*time.Hour)
		if err != nil {
			logger.Log.WithError(err).Fatal("invalid API_JWT_SECRET")
		}
	} else {
		logger.Log.Warn("API_JWT_SECRET not set, running without auth")
	}

	router := mux.NewRouter()
	router.Use(middleware.Logging)
	router.Use(middleware.Recovery)
	router.Use(middleware.CORS)

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)

	router.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	}).Methods(http.MethodGet)

	router.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w)
	}).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.Authenticate(jwtManager))
	api.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
	api.Use(middleware.BodyLimit(cfg.MaxRequestBody))
	planner.NewHTTPHandler(svc, cfg.MaxRequestBody).Register(api)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host":     cfg.ServerHost,
			"port":     cfg.ServerPort,
			"variant":  svc.Variant(),
			"snapshot": cfg.SnapshotBackend,
		}).Info("Planner Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Planner Service...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("server forced to shutdown")
	}

	logger.Log.Info("Planner Service stopped")
}
