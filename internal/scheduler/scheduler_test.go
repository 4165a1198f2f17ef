package scheduler

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/hoopcal/internal/config"
	"github.com/yourusername/hoopcal/internal/repository"
	"github.com/yourusername/hoopcal/internal/service"
)

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	calibrator := service.NewCalibrator(&repository.Repositories{}, nil, &config.CalibrationConfig{}, log)
	return NewScheduler(calibrator, &config.SchedulerConfig{TimeoutMinutes: 30}, log)
}

func TestScheduleRefitInvalidCron(t *testing.T) {
	s := newTestScheduler(t)
	if err := s.ScheduleRefit("not a cron"); err == nil {
		t.Fatal("expected error for invalid cron expression")
	}
}

func TestStartWithoutJobs(t *testing.T) {
	s := newTestScheduler(t)
	if err := s.Start(); err == nil {
		t.Fatal("expected error when starting with no jobs")
	}
}

func TestStartStopLifecycle(t *testing.T) {
	s := newTestScheduler(t)

	if err := s.ScheduleRefit("0 6 * * *"); err != nil {
		t.Fatalf("ScheduleRefit failed: %v", err)
	}
	if err := s.ScheduleReport("30 6 * * *"); err != nil {
		t.Fatalf("ScheduleReport failed: %v", err)
	}

	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !s.IsRunning() {
		t.Error("scheduler should report running")
	}
	if s.NextRun().IsZero() {
		t.Error("expected a next run time while running")
	}

	if err := s.Start(); err == nil {
		t.Error("expected error when starting twice")
	}

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if s.IsRunning() {
		t.Error("scheduler should report stopped")
	}
}

func TestScheduleWhileRunning(t *testing.T) {
	s := newTestScheduler(t)

	if err := s.ScheduleRefit("0 6 * * *"); err != nil {
		t.Fatalf("ScheduleRefit failed: %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer s.Stop()

	if err := s.ScheduleReport("30 6 * * *"); err == nil {
		t.Error("expected error when scheduling while running")
	}
}
