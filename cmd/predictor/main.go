// Package main provides the entry point for the prediction daemon.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/hoopcal/internal/classifier"
	"github.com/yourusername/hoopcal/internal/config"
	"github.com/yourusername/hoopcal/internal/database"
	"github.com/yourusername/hoopcal/internal/health"
	"github.com/yourusername/hoopcal/internal/logger"
	"github.com/yourusername/hoopcal/internal/metrics"
	"github.com/yourusername/hoopcal/internal/models"
	"github.com/yourusername/hoopcal/internal/repository"
	"github.com/yourusername/hoopcal/internal/scheduler"
	"github.com/yourusername/hoopcal/internal/service"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
)

func main() {
	cfg, err := config.Load("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		region := os.Getenv("AWS_REGION")
		secretName := os.Getenv("AWS_SECRET_NAME")
		if region == "" || secretName == "" {
			log.Fatalf("AWS_REGION and AWS_SECRET_NAME environment variables must be set when AWS_SECRETS_ENABLED is true")
		}
		if err := config.LoadSecretsFromAWS(cfg, region, secretName); err != nil {
			log.Fatalf("Failed to load secrets: %v", err)
		}
	}

	if err := config.Validate(cfg); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	appLog := logger.NewLogger(cfg.App.LogLevel)
	appLog.WithFields(logrus.Fields{
		"environment": cfg.App.Environment,
		"log_level":   cfg.App.LogLevel,
		"version":     Version,
	}).Info("Prediction daemon starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.Initialize(ctx, cfg)
	if err != nil {
		appLog.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()
	appLog.Info("Database connection established")

	repos, err := repository.NewRepositories(db)
	if err != nil {
		appLog.WithError(err).Fatal("Failed to initialize repositories")
	}

	client := classifier.NewClient(&cfg.Classifier, appLog)
	defer client.Close()
	appLog.WithField("classifier_url", cfg.Classifier.BaseURL).Info("Classifier client initialized")

	calibrator := service.NewCalibrator(repos, client, &cfg.Calibration, appLog)

	// Restore the persisted model; fit an initial one when none exists yet
	if err := calibrator.LoadActiveModel(ctx); err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			appLog.WithError(err).Fatal("Failed to load active model")
		}
		appLog.Info("No persisted calibration model, fitting initial model")
		if _, err := calibrator.Refit(ctx); err != nil {
			appLog.WithError(err).Warn("Initial refit failed, serving will wait for the next scheduled refit")
		}
	}

	healthServer := health.NewServer(health.Config{
		ServiceName: "predictor",
		Version:     Version,
		Commit:      GitCommit,
		Logger:      appLog,
		DB:          db,
		Classifier:  client,
		Model:       calibrator,
	})
	if err := healthServer.Start(ctx); err != nil {
		appLog.WithError(err).Fatal("Failed to start health server")
	}

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, metrics.Handler())
		metricsServer = &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
			Handler: mux,
		}
		go func() {
			appLog.WithField("port", cfg.Metrics.Port).Info("Metrics server starting")
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				appLog.WithError(err).Error("Metrics server error")
			}
		}()
	}

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched = scheduler.NewScheduler(calibrator, &cfg.Scheduler, appLog)
		if err := sched.ScheduleRefit(cfg.Scheduler.RefitCron); err != nil {
			appLog.WithError(err).Fatal("Failed to schedule refit job")
		}
		if err := sched.ScheduleReport(cfg.Scheduler.ReportCron); err != nil {
			appLog.WithError(err).Fatal("Failed to schedule report job")
		}
		if err := sched.Start(); err != nil {
			appLog.WithError(err).Fatal("Failed to start scheduler")
		}
		appLog.WithField("next_run", sched.NextRun()).Info("Scheduler started")
	} else {
		appLog.Warn("Scheduler disabled; models will not refit automatically")
	}

	healthServer.SetReady(true)
	appLog.Info("Prediction daemon ready")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	appLog.WithField("signal", sig.String()).Info("Shutting down")

	healthServer.SetReady(false)
	if sched != nil {
		if err := sched.Stop(); err != nil {
			appLog.WithError(err).Error("Failed to stop scheduler")
		}
	}
	if metricsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			appLog.WithError(err).Error("Failed to stop metrics server")
		}
	}
	cancel()

	appLog.Info("Prediction daemon stopped")
}
