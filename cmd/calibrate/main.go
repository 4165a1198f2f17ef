// Package main provides the entry point for the one-off calibration CLI.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/hoopcal/internal/classifier"
	"github.com/yourusername/hoopcal/internal/config"
	"github.com/yourusername/hoopcal/internal/database"
	"github.com/yourusername/hoopcal/internal/models"
	"github.com/yourusername/hoopcal/internal/repository"
	"github.com/yourusername/hoopcal/internal/service"
)

func main() {
	var (
		configPath = flag.String("config", "config/config.yaml", "Path to config file")
		mode       = flag.String("mode", "refit", "Mode: refit, report, both")
		output     = flag.String("output", "", "Output path for report JSON (default stdout)")
	)
	flag.Parse()

	logger := newLogger()
	ctx := context.Background()

	cfg := loadConfigWithSecrets(*configPath, logger)

	db, err := database.Initialize(ctx, cfg)
	if err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	repos, err := repository.NewRepositories(db)
	if err != nil {
		logger.Fatalf("Failed to initialize repositories: %v", err)
	}

	client := classifier.NewClient(&cfg.Classifier, logger)
	defer client.Close()

	calibrator := service.NewCalibrator(repos, client, &cfg.Calibration, logger)
	if err := calibrator.LoadActiveModel(ctx); err != nil && !errors.Is(err, models.ErrNotFound) {
		logger.Fatalf("Failed to load active model: %v", err)
	}

	switch *mode {
	case "refit":
		runRefit(ctx, calibrator, logger)
	case "report":
		runReport(ctx, calibrator, *output, logger)
	case "both":
		runRefit(ctx, calibrator, logger)
		runReport(ctx, calibrator, *output, logger)
	default:
		logger.Fatalf("Unknown mode %q: expected refit, report, or both", *mode)
	}
}

func runRefit(ctx context.Context, calibrator *service.Calibrator, logger *logrus.Logger) {
	model, err := calibrator.Refit(ctx)
	if err != nil {
		logger.Fatalf("Refit failed: %v", err)
	}
	logger.WithFields(logrus.Fields{
		"model_version":    model.ID,
		"validation_games": model.ValidationGames,
		"temperature":      model.Temperature,
		"home_logit_shift": model.HomeLogitShift,
	}).Info("Refit completed and model activated")
}

func runReport(ctx context.Context, calibrator *service.Calibrator, output string, logger *logrus.Logger) {
	report, err := calibrator.EvaluateActive(ctx)
	if err != nil {
		logger.Fatalf("Report generation failed: %v", err)
	}

	if output == "" {
		fmt.Println(report.ToJSON())
		return
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		logger.Fatalf("Failed to create output directory: %v", err)
	}
	if err := os.WriteFile(output, []byte(report.ToJSON()), 0o644); err != nil {
		logger.Fatalf("Failed to write report: %v", err)
	}
	logger.WithField("path", output).Info("Report written")
}

func newLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	return logger
}

func loadConfigWithSecrets(path string, logger *logrus.Logger) *config.Config {
	cfg, err := config.Load(path)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		region := os.Getenv("AWS_REGION")
		secretName := os.Getenv("AWS_SECRET_NAME")
		if region == "" || secretName == "" {
			logger.Fatalf("AWS_REGION and AWS_SECRET_NAME environment variables must be set when AWS_SECRETS_ENABLED is true")
		}
		if err := config.LoadSecretsFromAWS(cfg, region, secretName); err != nil {
			logger.Fatalf("Failed to load secrets: %v", err)
		}
	}
	if err := config.Validate(cfg); err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}
	return cfg
}
