package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/phambaophuc/watermark-tool/internal/config"
	"github.com/phambaophuc/watermark-tool/internal/http/handlers"
	"github.com/phambaophuc/watermark-tool/internal/http/routes"
	"github.com/phambaophuc/watermark-tool/internal/logger"
	"github.com/phambaophuc/watermark-tool/internal/metrics"
	"github.com/phambaophuc/watermark-tool/internal/services/processor"
	"github.com/phambaophuc/watermark-tool/internal/services/queue"
	"github.com/phambaophuc/watermark-tool/internal/services/storage"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}

	// Initialize logger
	zapLogger, syncLogger, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatal("Failed to initialize logger: ", err)
	}
	defer syncLogger()

	asset, err := processor.LoadWatermarkAsset(cfg.Watermark.ImagePath)
	if err != nil {
		zapLogger.Fatal("Failed to load watermark image",
			zap.String("path", cfg.Watermark.ImagePath),
			zap.Error(err))
	}
	zapLogger.Info("Watermark image loaded",
		zap.String("path", cfg.Watermark.ImagePath),
		zap.Int("width", asset.Size().X),
		zap.Int("height", asset.Size().Y))

	compositor := processor.NewCompositor(asset,
		processor.WithDefaultOpacity(cfg.Watermark.Opacity),
		processor.WithScaleRatio(cfg.Watermark.ScaleRatio),
		processor.WithLogger(zapLogger),
	)

	observer, err := metrics.NewPrometheusObserver("", prometheus.DefaultRegisterer)
	if err != nil {
		zapLogger.Fatal("Failed to register metrics", zap.Error(err))
	}

	// Initialize services
	storageService, err := storage.NewStorageService(cfg)
	if err != nil {
		zapLogger.Fatal("Failed to initialize storage service", zap.Error(err))
	}
	defer storageService.Close()

	archive := cfg.Supabase.ArchiveOutputs && storageService.ArchiveEnabled()
	if cfg.Supabase.ArchiveOutputs && !archive {
		zapLogger.Warn("Output archiving requested but Supabase is not configured")
	}

	handlerOpts := []handlers.Option{
		handlers.WithStore(storageService, archive),
		handlers.WithObserver(observer),
	}

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	queueService, err := queue.NewQueueService(cfg.RabbitMQ, compositor, zapLogger,
		queue.WithStore(storageService, archive),
		queue.WithObserver(observer),
	)
	if err != nil {
		zapLogger.Warn("Failed to initialize queue service", zap.Error(err))
		// Continue without queue service for HTTP-only operation
	} else {
		defer queueService.Close()
		handlerOpts = append(handlerOpts, handlers.WithQueue(queueService))

		for i := 1; i <= cfg.RabbitMQ.WorkerCount; i++ {
			if err := queueService.StartWorker(workerCtx, i); err != nil {
				zapLogger.Fatal("Failed to start worker", zap.Int("worker_id", i), zap.Error(err))
			}
		}
	}

	// Initialize handlers
	watermarkHandler := handlers.NewWatermarkHandler(compositor, zapLogger, handlerOpts...)

	router := routes.NewRouter(watermarkHandler, zapLogger, prometheus.DefaultGatherer, cfg.Watermark.MaxInputSize)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		Handler:      router.SetupRoutes(),
	}

	// Start server
	go func() {
		zapLogger.Info("Starting server", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	stopWorkers()
	if queueService != nil {
		if err := queueService.Wait(ctx); err != nil {
			zapLogger.Warn("Workers did not finish in time", zap.Error(err))
		}
	}

	if err := server.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited")
}
