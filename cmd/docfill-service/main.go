package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/docfill/engine/internal/common/config"
	logutil "github.com/docfill/engine/internal/common/logger"
	"github.com/docfill/engine/internal/common/metricsserver"
	"github.com/docfill/engine/internal/docservice"
	"github.com/docfill/engine/internal/docservice/events"
	"github.com/docfill/engine/internal/docservice/metrics"
)

func main() {
	configPath := flag.String("c", "config.yaml",
		"Path to service configuration file")
	validateOnly := flag.Bool("validate-config", false,
		"Load and validate the configuration, then exit")
	flag.Parse()

	// Initialize logger (will be reconfigured from config)
	initialLogger, err := logutil.NewDefaultLogger()
	if err != nil {
		panic(err)
	}

	initialLogger.Info("Loading configuration", zap.String("path", *configPath))

	absPath, err := config.GetConfigPath(*configPath)
	if err != nil {
		initialLogger.Fatal("Invalid config path", zap.Error(err))
	}

	configMgr, err := config.NewDSConfigManager(absPath, initialLogger.Logger)
	if err != nil {
		initialLogger.Fatal("Failed to load configuration", zap.Error(err))
	}

	cfg := configMgr.GetConfig()

	if *validateOnly {
		fmt.Printf("Configuration %s is valid\n", absPath)
		os.Exit(0)
	}

	// Reconfigure logger based on config settings (uses INFO level during startup if configured level is higher)
	dynamicLogger, err := logutil.NewLoggerWithStartupOverride(cfg.Log)
	if err != nil {
		initialLogger.Fatal("Failed to create configured logger", zap.Error(err))
	}

	logger := dynamicLogger.Logger

	concurrency := docservice.CalculateConcurrency(cfg.Server.Concurrency, cfg.Server.MaxUploadSize.Int64())

	logger.Info("Document service starting",
		zap.String("listen", cfg.Server.Listen),
		zap.String("max_upload_size", cfg.Server.MaxUploadSize.String()),
		zap.Int("concurrency", concurrency),
		zap.Strings("accept_filenames", cfg.Server.AcceptFilenames))

	metricsCollector := metrics.NewMetricsCollector(cfg.Metrics.Namespace, logger)

	// Start separate metrics server if needed
	metricsServer, err := metricsserver.StartMetricsServer(
		cfg.Metrics.Enabled,
		cfg.Metrics.Listen,
		cfg.Metrics.Path,
		metricsCollector,
		logger,
	)
	if err != nil {
		logger.Fatal("Failed to start metrics server", zap.Error(err))
	}

	// Audit event emitter: file-backed when configured, noop otherwise
	var emitter events.EventEmitter = &events.NoopEmitter{}
	if cfg.EventLogging != nil && cfg.EventLogging.File.Enabled {
		fileEmitter, err := events.NewFileEmitter(cfg.EventLogging.File, logger)
		if err != nil {
			logger.Fatal("Failed to create event emitter", zap.Error(err))
		}
		emitter = fileEmitter
		logger.Info("Event logging enabled",
			zap.String("path", cfg.EventLogging.File.Path))
	}

	handler := docservice.NewHandler(cfg, metricsCollector, emitter, logger)

	server := &fasthttp.Server{
		Handler:            handler.HandleRequest,
		ReadTimeout:        time.Duration(cfg.Server.ReadTimeout),
		WriteTimeout:       time.Duration(cfg.Server.ReadTimeout),
		MaxRequestBodySize: cfg.Server.MaxUploadSize.Int(),
		Concurrency:        concurrency,
		Name:               "DocFillService",
	}

	// Start server in background goroutine
	serverErrCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server",
			zap.String("listen", cfg.Server.Listen))
		if err := server.ListenAndServe(cfg.Server.Listen); err != nil {
			serverErrCh <- err
		}
	}()

	// Wait briefly for HTTP server to start listening
	time.Sleep(100 * time.Millisecond)

	select {
	case err := <-serverErrCh:
		logger.Fatal("HTTP server failed to start", zap.Error(err))
	default:
	}

	logger.Info("Document service ready",
		zap.String("listen", cfg.Server.Listen))

	// Switch to configured log level after startup is complete
	dynamicLogger.SwitchToConfiguredLevel()

	// Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
	case err := <-serverErrCh:
		logger.Error("Server error", zap.Error(err))
	}

	dynamicLogger.EnsureInfoLevelForShutdown()
	logger.Info("Shutting down gracefully...")

	// Shutdown separate metrics server if exists
	if metricsServer != nil {
		metricsShutdownCtx, metricsShutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.ShutdownWithContext(metricsShutdownCtx); err != nil {
			logger.Error("Metrics server shutdown error", zap.Error(err))
		}
		metricsShutdownCancel()
	}

	// Graceful HTTP server shutdown - complete in-flight requests
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}

	if err := emitter.Close(); err != nil {
		logger.Error("Event emitter close error", zap.Error(err))
	}

	logger.Info("Shutdown complete")
	_ = logger.Sync()
}
