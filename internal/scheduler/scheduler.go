// Package scheduler runs the periodic calibration jobs: nightly refits and
// report regeneration.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/hoopcal/internal/config"
	"github.com/yourusername/hoopcal/internal/service"
)

// Scheduler manages scheduled calibration jobs
type Scheduler struct {
	cron       *cron.Cron
	calibrator *service.Calibrator
	logger     *logrus.Logger
	jobTimeout time.Duration
	mu         sync.RWMutex
	isRunning  bool
	jobIDs     []cron.EntryID
}

// NewScheduler creates a new scheduler
func NewScheduler(calibrator *service.Calibrator, cfg *config.SchedulerConfig, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron:       cron.New(cron.WithLocation(time.UTC)),
		calibrator: calibrator,
		logger:     logger,
		jobTimeout: time.Duration(cfg.TimeoutMinutes) * time.Minute,
		jobIDs:     make([]cron.EntryID, 0),
	}
}

// ScheduleRefit schedules the periodic calibration refit
func (s *Scheduler) ScheduleRefit(cronExpression string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot schedule job while scheduler is running")
	}

	jobFunc := func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
		defer cancel()

		s.logger.Info("Starting scheduled calibration refit")
		model, err := s.calibrator.Refit(ctx)
		if err != nil {
			s.logger.WithError(err).Error("Scheduled refit failed, previous model keeps serving")
			return
		}
		s.logger.WithField("model_version", model.ID).Info("Scheduled refit completed")
	}

	entryID, err := s.cron.AddFunc(cronExpression, jobFunc)
	if err != nil {
		return fmt.Errorf("failed to add refit job: %w", err)
	}

	s.jobIDs = append(s.jobIDs, entryID)
	s.logger.WithField("cron", cronExpression).Info("Scheduled calibration refit")
	return nil
}

// ScheduleReport schedules periodic calibration report generation
func (s *Scheduler) ScheduleReport(cronExpression string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot schedule job while scheduler is running")
	}

	jobFunc := func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
		defer cancel()

		report, err := s.calibrator.EvaluateActive(ctx)
		if err != nil {
			s.logger.WithError(err).Error("Scheduled report generation failed")
			return
		}
		s.logger.WithFields(logrus.Fields{
			"model_version": report.CalibrationVersion,
			"games":         report.Games,
			"ece":           report.ECE,
		}).Info("Scheduled calibration report generated")
	}

	entryID, err := s.cron.AddFunc(cronExpression, jobFunc)
	if err != nil {
		return fmt.Errorf("failed to add report job: %w", err)
	}

	s.jobIDs = append(s.jobIDs, entryID)
	s.logger.WithField("cron", cronExpression).Info("Scheduled calibration reports")
	return nil
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}
	if len(s.jobIDs) == 0 {
		return fmt.Errorf("no jobs scheduled")
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.WithField("jobs", len(s.jobIDs)).Info("Scheduler started")
	return nil
}

// Stop gracefully stops the scheduler, waiting for running jobs
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	<-s.cron.Stop().Done()
	s.isRunning = false
	s.logger.Info("Scheduler stopped")
	return nil
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRun returns the time of the next scheduled job run
func (s *Scheduler) NextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning || len(s.jobIDs) == 0 {
		return time.Time{}
	}

	nextRun := time.Time{}
	for _, jobID := range s.jobIDs {
		entry := s.cron.Entry(jobID)
		if entry.Valid() {
			if nextRun.IsZero() || entry.Next.Before(nextRun) {
				nextRun = entry.Next
			}
		}
	}
	return nextRun
}
