// Package config provides configuration management for the hoopcal prediction service.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Load reads and parses the configuration from file and environment variables
// It expands environment variable placeholders in the YAML file (${VAR_NAME})
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found at %s: %w", configPath, err)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the configuration (${VAR} syntax)
	expanded := os.ExpandEnv(string(data))

	v := viper.New()
	v.SetConfigType("yaml")

	if err := v.ReadConfig(bytes.NewBuffer([]byte(expanded))); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	v.SetEnvPrefix("HOOPCAL")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

// LoadWithDefaults loads configuration with default values for optional fields
// It expands environment variable placeholders in the YAML file (${VAR_NAME})
func LoadWithDefaults(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found at %s: %w", configPath, err)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("HOOPCAL")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadConfig(bytes.NewBuffer([]byte(expanded))); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

// setDefaults applies the shipped calibration policy defaults. The numeric
// thresholds are provisional, iterated-on policy rather than fitted values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.log_level", "info")

	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.max_idle_connections", 2)
	v.SetDefault("database.ssl_mode", "require")

	v.SetDefault("classifier.request_timeout_seconds", 30)
	v.SetDefault("classifier.max_retries", 3)
	v.SetDefault("classifier.rate_limit_per_second", 10.0)
	v.SetDefault("classifier.cache_ttl_seconds", 300)
	v.SetDefault("classifier.cache_max_size", 2000)
	v.SetDefault("classifier.model_version", "latest")

	v.SetDefault("calibration.validation_window_days", 14)
	v.SetDefault("calibration.test_window_days", 7)
	v.SetDefault("calibration.history_days", 180)
	v.SetDefault("calibration.temperature_min", 0.3)
	v.SetDefault("calibration.temperature_max", 1.5)
	v.SetDefault("calibration.target_home_win_rate", 0.58)
	v.SetDefault("calibration.confidence_cap", 0.85)
	v.SetDefault("calibration.early_season_confidence_cap", 0.75)
	v.SetDefault("calibration.early_season_games_threshold", 3)
	v.SetDefault("calibration.confidence_threshold", 0.65)
	v.SetDefault("calibration.ece_bins", 10)

	v.SetDefault("scheduler.refit_cron", "0 6 * * *")
	v.SetDefault("scheduler.report_cron", "30 6 * * *")
	v.SetDefault("scheduler.timeout_minutes", 30)

	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")
}
