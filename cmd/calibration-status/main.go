package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/hoopcal/internal/calibration"
	"github.com/yourusername/hoopcal/internal/classifier"
	"github.com/yourusername/hoopcal/internal/config"
	"github.com/yourusername/hoopcal/internal/database"
	"github.com/yourusername/hoopcal/internal/models"
	"github.com/yourusername/hoopcal/internal/repository"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
)

var (
	configFile string
	logger     *logrus.Logger
	cfg        *config.Config
	db         *database.DB
	repos      *repository.Repositories
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
	rootCmd.AddCommand(historyCmd)
}

var rootCmd = &cobra.Command{
	Use:   "calibration-status",
	Short: "Check calibration pipeline status",
	Long:  `Displays the active calibration model, its fitted parameters, and the current calibration report.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := setup(); err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if db != nil {
			db.Close()
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		displayStatus()
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recently fitted calibration models",
	Run: func(cmd *cobra.Command, args []string) {
		displayHistory()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func setup() error {
	var err error
	cfg, err = config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger = logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err = database.NewDB(ctx, &cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	repos, err = repository.NewRepositories(db)
	if err != nil {
		return fmt.Errorf("failed to initialize repositories: %w", err)
	}
	return nil
}

func displayStatus() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	fmt.Println("\n╔════════════════════════════════════════════════════════════════╗")
	fmt.Println("║                 Calibration Pipeline Status                    ║")
	fmt.Println("╚════════════════════════════════════════════════════════════════╝")

	fmt.Print("\nClassifier Health: ")
	client := classifier.NewClient(&cfg.Classifier, logger)
	defer client.Close()
	if err := client.HealthCheck(ctx); err != nil {
		fmt.Println("UNAVAILABLE")
		fmt.Printf("   Error: %v\n", err)
	} else {
		fmt.Println("ONLINE")
	}

	model, err := repos.CalibrationModel.GetActive(ctx)
	if errors.Is(err, models.ErrNotFound) {
		fmt.Println("\nActive Model: none (run a refit first)")
		return
	}
	if err != nil {
		fmt.Printf("\nActive Model: error: %v\n", err)
		return
	}

	fmt.Println("\nActive Model:")
	fmt.Printf("  Version:           %s\n", model.ID)
	fmt.Printf("  Fitted At:         %s (%s ago)\n", model.FittedAt.Format(time.RFC3339), time.Since(model.FittedAt).Round(time.Minute))
	fmt.Printf("  Validation Games:  %d\n", model.ValidationGames)
	fmt.Printf("  Temperature:       %.4f\n", model.Temperature)
	fmt.Printf("  Home Logit Shift:  %.4f\n", model.HomeLogitShift)
	fmt.Printf("  Isotonic Points:   %d\n", len(model.Isotonic.Breakpoints))
	fmt.Printf("  Confidence Cap:    %.2f (early season %.2f below %d games)\n",
		model.ConfidenceCap, model.EarlySeasonCap, model.EarlySeasonThreshold)

	displayReport(ctx, model)
}

func displayReport(ctx context.Context, model *models.CalibrationModel) {
	now := time.Now()
	from := now.AddDate(0, 0, -model.TestWindowDays)
	outcomes, err := repos.Prediction.ListWithOutcomes(ctx, from, now)
	if err != nil {
		fmt.Printf("\nCalibration Report: error: %v\n", err)
		return
	}

	report, err := calibration.BuildReport(outcomes, cfg.Calibration.ECEBins)
	if err != nil {
		if errors.Is(err, models.ErrEmptyInput) {
			fmt.Println("\nCalibration Report: no settled predictions in the test window")
			return
		}
		fmt.Printf("\nCalibration Report: error: %v\n", err)
		return
	}

	fmt.Println("\nCalibration Report:")
	fmt.Printf("  Window:      last %d days (%d games)\n", model.TestWindowDays, report.Games)
	fmt.Printf("  ECE:         %.4f\n", report.ECE)
	fmt.Printf("  Brier Score: %.4f\n", report.BrierScore)
	fmt.Printf("  Log Loss:    %.4f\n", report.LogLoss)
	fmt.Printf("  Accuracy:    %.2f%%\n", report.Accuracy*100)
}

func displayHistory() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	history, err := repos.CalibrationModel.List(ctx, 10)
	if err != nil {
		fmt.Printf("Failed to list models: %v\n", err)
		return
	}
	if len(history) == 0 {
		fmt.Println("No calibration models fitted yet")
		return
	}

	fmt.Println("\nRecent Calibration Models:")
	for _, m := range history {
		marker := " "
		if m.Active {
			marker = "*"
		}
		fmt.Printf("%s %s  fitted %s  games=%d  temp=%.3f  shift=%+.3f\n",
			marker, m.ID, m.FittedAt.Format("2006-01-02 15:04"), m.ValidationGames,
			m.Temperature, m.HomeLogitShift)
	}
	fmt.Println("\n* active")
}
