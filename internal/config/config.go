// Package config provides configuration management for the hoopcal prediction service.
package config

import (
	"fmt"
	"time"

	"github.com/yourusername/hoopcal/internal/models"
)

// Config represents the complete application configuration
type Config struct {
	App         AppConfig         `mapstructure:"app" validate:"required"`
	Database    DatabaseConfig    `mapstructure:"database" validate:"required"`
	Classifier  ClassifierConfig  `mapstructure:"classifier" validate:"required"`
	Calibration CalibrationConfig `mapstructure:"calibration" validate:"required"`
	Scheduler   SchedulerConfig   `mapstructure:"scheduler" validate:"required"`
	Metrics     MetricsConfig     `mapstructure:"metrics" validate:"required"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Host               string `mapstructure:"host" validate:"required"`
	Port               int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Name               string `mapstructure:"name" validate:"required"`
	User               string `mapstructure:"user" validate:"required"`
	Password           string `mapstructure:"password" validate:"required"`
	SSLMode            string `mapstructure:"ssl_mode" validate:"required,oneof=disable require verify-full"`
	MaxConnections     int    `mapstructure:"max_connections" validate:"required,gt=0"`
	MaxIdleConnections int    `mapstructure:"max_idle_connections" validate:"required,gt=0"`
}

// ClassifierConfig represents the external model-serving endpoint that
// produces raw, uncalibrated win probabilities.
type ClassifierConfig struct {
	BaseURL               string  `mapstructure:"base_url" validate:"required,url"`
	APIKey                string  `mapstructure:"api_key"`
	ModelVersion          string  `mapstructure:"model_version"`
	RequestTimeoutSeconds int     `mapstructure:"request_timeout_seconds" validate:"required,gt=0"`
	MaxRetries            int     `mapstructure:"max_retries" validate:"gte=0"`
	RateLimitPerSecond    float64 `mapstructure:"rate_limit_per_second" validate:"required,gt=0"`
	CacheTTLSeconds       int     `mapstructure:"cache_ttl_seconds" validate:"required,gt=0"`
	CacheMaxSize          int     `mapstructure:"cache_max_size" validate:"required,gt=0"`
}

// CalibrationConfig represents the calibration policy: fit windows, search
// bounds, and the confidence policy applied by the adjustment pipeline. The
// factor table and cap thresholds are hand-tuned policy, not fitted values.
type CalibrationConfig struct {
	ValidationWindowDays      int                        `mapstructure:"validation_window_days" validate:"required,gt=0"`
	TestWindowDays            int                        `mapstructure:"test_window_days" validate:"required,gt=0"`
	HistoryDays               int                        `mapstructure:"history_days" validate:"required,gt=0"`
	TemperatureMin            float64                    `mapstructure:"temperature_min" validate:"required,gt=0"`
	TemperatureMax            float64                    `mapstructure:"temperature_max" validate:"required,gt=0"`
	TargetHomeWinRate         float64                    `mapstructure:"target_home_win_rate" validate:"required,gt=0,lt=1"`
	ConfidenceCap             float64                    `mapstructure:"confidence_cap" validate:"required,gt=0.5,lt=1"`
	EarlySeasonConfidenceCap  float64                    `mapstructure:"early_season_confidence_cap" validate:"required,gt=0.5,lt=1"`
	EarlySeasonGamesThreshold int                        `mapstructure:"early_season_games_threshold" validate:"gte=0"`
	EarlySeasonFactors        []models.EarlySeasonFactor `mapstructure:"early_season_factors" validate:"required,min=1,dive"`
	ConfidenceThreshold       float64                    `mapstructure:"confidence_threshold" validate:"required,gte=0.5,lt=1"`
	ECEBins                   int                        `mapstructure:"ece_bins" validate:"required,gt=1"`
}

// SchedulerConfig represents scheduled refit and report jobs
type SchedulerConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	RefitCron      string `mapstructure:"refit_cron" validate:"required,cronspec"`
	ReportCron     string `mapstructure:"report_cron" validate:"required,cronspec"`
	TimeoutMinutes int    `mapstructure:"timeout_minutes" validate:"required,gt=0"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Path    string `mapstructure:"path" validate:"required"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// Timeout returns the classifier request timeout as a duration.
func (c *ClassifierConfig) Timeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// CacheTTL returns the prediction cache TTL as a duration.
func (c *ClassifierConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// FitWindow returns the configured validation and test window sizes in days.
func (c *CalibrationConfig) FitWindow() (validationDays, testDays int) {
	return c.ValidationWindowDays, c.TestWindowDays
}
