package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"flatprice/config"
	"flatprice/db"
	qhttp "flatprice/http"
	"flatprice/logging"
	"flatprice/metrics"
	"flatprice/ml"
	"flatprice/predict"
)

func main() {
	// 1. Load config
	cfg, err := config.Load(config.Path("config.yaml"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Logger
	logger, err := logging.New(logging.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// 3. Model. A failed load is not fatal: the service keeps answering
	// "Model not found" until it is restarted.
	model, err := ml.LoadModel(cfg.ML.ModelType, cfg.ML.ModelPath)
	if err != nil {
		logger.Error("failed to load model",
			zap.String("type", cfg.ML.ModelType),
			zap.String("path", cfg.ML.ModelPath),
			zap.Error(err),
		)
	} else {
		logger.Info("model loaded",
			zap.String("type", cfg.ML.ModelType),
			zap.String("path", cfg.ML.ModelPath),
			zap.Strings("features", ml.Features(model)),
		)
	}

	handler := predict.NewHandler(model,
		predict.WithLogger(logger.Named("predict")),
		predict.WithCacheSize(cfg.ML.CacheSize),
	)
	api := &qhttp.API{
		Handler: handler,
		Metrics: metrics.NewCollector(),
		Logger:  logger.Named("http"),
	}

	// 4. Optional prediction journal
	if cfg.Journal.Path != "" {
		journal, err := db.Open(cfg.Journal.Path)
		if err != nil {
			logger.Fatal("failed to open journal", zap.String("path", cfg.Journal.Path), zap.Error(err))
		}
		defer journal.Close()
		api.Journal = journal
		logger.Info("journal initialized", zap.String("path", cfg.Journal.Path))
	}

	// 5. Start HTTP server
	server := qhttp.NewServer(qhttp.ServerConfig{
		Port:           cfg.Http.Port,
		Timeout:        cfg.Http.Timeout,
		MaxBodyBytes:   cfg.Http.MaxBodyBytes,
		AllowedOrigins: cfg.Http.AllowedOrigins,
	}, api)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// 6. Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	if err := server.Stop(); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("exiting")
}
