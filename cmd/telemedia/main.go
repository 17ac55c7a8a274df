package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"telemedia/internal/config"
	"telemedia/internal/constants"
	"telemedia/internal/database"
	"telemedia/internal/retry"
	"telemedia/internal/service"
	"telemedia/internal/tracing"
	"telemedia/pkg/storage"
	"telemedia/pkg/telegram"
	"telemedia/pkg/transcode"

	"github.com/sirupsen/logrus"
)

var (
	// Version information (set at build time)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	// CLI flags
	verbose    = flag.Bool("verbose", false, "Enable verbose logging (includes sensitive information)")
	configPath = flag.String("config", "config.json", "Path to configuration file")
	version    = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("telemedia %s\nBuild Time: %s\nGit Commit: %s\n", Version, BuildTime, GitCommit)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logrus.Fatalf("Application error: %v", err)
	}
}

func run(ctx context.Context) error {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	logger.WithFields(logrus.Fields{
		"version": Version,
		"build":   BuildTime,
		"commit":  GitCommit,
	}).Info("Starting telemedia")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
		logger.Info("Verbose logging enabled - sensitive information will be logged")
	} else if cfg.LogLevel != "" {
		level, err := logrus.ParseLevel(cfg.LogLevel)
		if err != nil {
			logger.Warnf("Invalid log level %q, defaulting to info", cfg.LogLevel)
			logger.SetLevel(logrus.InfoLevel)
		} else {
			if level > logrus.InfoLevel {
				level = logrus.InfoLevel
			}
			logger.SetLevel(level)
		}
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	// Initialize OpenTelemetry tracing
	tracingManager := tracing.NewManager(tracing.Config{
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: cfg.Tracing.ServiceVersion,
		Environment:    cfg.Tracing.Environment,
		OTLPEndpoint:   cfg.Tracing.OTLPEndpoint,
		SampleRate:     cfg.Tracing.SampleRate,
		Enabled:        cfg.Tracing.Enabled,
		UseStdout:      cfg.Tracing.UseStdout,
	}, logger)

	if err := tracingManager.Initialize(ctx); err != nil {
		logger.Warnf("Failed to initialize tracing: %v", err)
	}
	defer func() {
		if err := tracingManager.Shutdown(context.Background()); err != nil {
			logger.Warnf("Failed to shutdown tracing: %v", err)
		}
	}()

	// Initialize database with exponential backoff retry
	backoffConfig := retry.BackoffConfig{
		InitialDelay: time.Duration(cfg.Retry.InitialBackoffMs) * time.Millisecond,
		MaxDelay:     time.Duration(cfg.Retry.MaxBackoffMs) * time.Millisecond,
		Multiplier:   2.0,
		MaxAttempts:  constants.DefaultDatabaseRetryAttempts,
		Jitter:       true,
	}
	backoff := retry.NewBackoff(backoffConfig)

	var db *database.Database
	err = backoff.Retry(ctx, func() error {
		var initErr error
		db, initErr = database.New(cfg.Database.Path)
		if initErr != nil {
			logger.Warnf("Failed to initialize database: %v", initErr)
		}
		return initErr
	})
	if err != nil {
		return fmt.Errorf("failed to initialize database after retries: %w", err)
	}
	defer db.Close()

	tgClient := telegram.NewClient(telegram.ClientConfig{
		APIBaseURL: cfg.Telegram.APIBaseURL,
		BotToken:   cfg.Telegram.BotToken,
		TimeoutSec: cfg.Telegram.TimeoutSec,
	})

	storageClient := storage.NewClient(storage.ClientConfig{
		BaseURL:    cfg.Storage.BaseURL,
		APIKey:     cfg.Storage.APIKey,
		TimeoutSec: cfg.Storage.TimeoutSec,
	})
	router := storage.NewRouter(storageClient, storage.Buckets{
		Video:   cfg.Storage.VideoBucket,
		Picture: cfg.Storage.PictureBucket,
		Generic: cfg.Storage.GenericBucket,
	})

	var strategies []transcode.Strategy
	if cfg.Transcode.FFmpegPath != "" {
		strategies = append(strategies, transcode.NewFFmpegStrategy(cfg.Transcode.FFmpegPath))
	}
	if cfg.Transcode.RemoteBaseURL != "" {
		strategies = append(strategies, transcode.NewRemoteStrategy(transcode.RemoteConfig{
			BaseURL:         cfg.Transcode.RemoteBaseURL,
			AuthURL:         cfg.Transcode.RemoteAuthURL,
			APIKey:          cfg.Transcode.RemoteAPIKey,
			JobTimeoutSec:   cfg.Transcode.JobTimeoutSec,
			PollIntervalSec: cfg.Transcode.PollIntervalSec,
		}))
	}
	if len(strategies) == 0 {
		logger.Warn("No transcoding strategies configured, videos will be stored as received")
	}
	converter := transcode.NewCoordinator(logger, strategies...)

	forwarder := service.NewForwarder(cfg.Destinations, db, logger)

	downloadBackoff := retry.NewBackoff(retry.BackoffConfig{
		InitialDelay: time.Duration(cfg.Retry.InitialBackoffMs) * time.Millisecond,
		MaxDelay:     time.Duration(cfg.Retry.MaxBackoffMs) * time.Millisecond,
		Multiplier:   2.0,
		MaxAttempts:  constants.DefaultDownloadRetryAttempts,
		Jitter:       true,
	})

	ingest := service.NewIngestService(db, tgClient, router, converter, forwarder, downloadBackoff, logger)
	resync := service.NewResyncService(db, tgClient, router, logger)
	dedup := service.NewDedupService(db, router, cfg.Dedup.Keep, logger)
	captionSync := service.NewCaptionSyncService(db, tgClient, constants.DefaultCaptionSyncBatchSize, logger)

	ctxWithVerbose := context.WithValue(ctx, service.VerboseContextKey, *verbose)

	scheduler := service.NewScheduler(resync, db, cfg.RetentionDays, cfg.Server.ResyncIntervalHrs, logger)
	go scheduler.Start(ctxWithVerbose)
	defer scheduler.Stop()

	server := NewServer(cfg, ingest, resync, dedup, captionSync, logger)
	serverErrCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			serverErrCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	case err := <-serverErrCh:
		logger.Error(err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(constants.DefaultGracefulShutdownSec)*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server gracefully: %w", err)
	}

	logger.Info("Server shutdown completed")
	return nil
}
