package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/saf-slovakia/accountancy/internal/contextutil"
	"github.com/saf-slovakia/accountancy/logging"
)

type Jobs interface {
	RemindPending(ctx context.Context) (int, error)
	ArchivePaid(ctx context.Context, before time.Time) (int64, error)
}

type Config struct {
	ReminderSchedule string
	ArchiveSchedule  string
}

type Scheduler struct {
	cron *cron.Cron
	jobs Jobs
	now  func() time.Time
}

func New(jobs Jobs, cfg Config) (*Scheduler, error) {
	s := &Scheduler{
		cron: cron.New(cron.WithLocation(time.UTC)),
		jobs: jobs,
		now:  func() time.Time { return time.Now().UTC() },
	}

	if _, err := s.cron.AddFunc(cfg.ReminderSchedule, s.RunReminders); err != nil {
		return nil, fmt.Errorf("failed to schedule reminders: %w", err)
	}
	if _, err := s.cron.AddFunc(cfg.ArchiveSchedule, s.RunArchive); err != nil {
		return nil, fmt.Errorf("failed to schedule archival: %w", err)
	}
	return s, nil
}

func jobContext(name string) (context.Context, context.CancelFunc) {
	ctx := contextutil.WithTraceID(context.Background(), name+"-"+uuid.New().String())
	return context.WithTimeout(ctx, 10*time.Minute)
}

// RunReminders re-sends approval reminders. Failures are logged, the next run tries again.
func (s *Scheduler) RunReminders() {
	ctx, cancel := jobContext("reminders")
	defer cancel()

	sent, err := s.jobs.RemindPending(ctx)
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to send reminders in Scheduler.RunReminders() function | Error: %v",
			contextutil.TraceIDFromContext(ctx), err)
	}
	logging.Logger.Infof("[TraceID=%s] | sent %d approval reminders", contextutil.TraceIDFromContext(ctx), sent)
}

// RunArchive archives everything paid before January 1st of the current year.
func (s *Scheduler) RunArchive() {
	ctx, cancel := jobContext("archive")
	defer cancel()

	now := s.now()
	yearStart := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	if _, err := s.jobs.ArchivePaid(ctx, yearStart); err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to archive paid transactions in Scheduler.RunArchive() function | Error: %v",
			contextutil.TraceIDFromContext(ctx), err)
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
