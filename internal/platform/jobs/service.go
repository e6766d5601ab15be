package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"ptotracker/internal/domain/calendar"
	"ptotracker/internal/domain/leave"
	"ptotracker/internal/platform/config"
)

const (
	JobRequestSweep   = "request_sweep"
	JobBalanceRefresh = "balance_refresh"
)

type Service struct {
	Runs      RunStore
	Cfg       config.Config
	Lifecycle *leave.Service
	Now       func() time.Time
	queue     chan job
	cron      *cron.Cron
}

type job struct {
	Type string
	Run  func(context.Context) (any, error)
}

func New(runs RunStore, lifecycle *leave.Service, cfg config.Config) *Service {
	return &Service{
		Runs:      runs,
		Cfg:       cfg,
		Lifecycle: lifecycle,
		Now:       time.Now,
		queue:     make(chan job, 128),
	}
}

// Start runs the queue worker and registers the cron schedules. Cron times
// are read in the call-out timezone so "midnight" means the clinic's midnight.
func (s *Service) Start(ctx context.Context) error {
	go s.worker(ctx)

	s.cron = cron.New(cron.WithLocation(s.Cfg.Location()))
	if s.Cfg.SweepSchedule != "" {
		if _, err := s.cron.AddFunc(s.Cfg.SweepSchedule, func() {
			s.Enqueue(JobRequestSweep, s.sweepJob(s.today()))
		}); err != nil {
			return err
		}
	}
	if s.Cfg.RefreshSchedule != "" {
		if _, err := s.cron.AddFunc(s.Cfg.RefreshSchedule, func() {
			s.Enqueue(JobBalanceRefresh, s.refreshJob(s.today()))
		}); err != nil {
			return err
		}
	}
	s.cron.Start()
	go func() {
		<-ctx.Done()
		<-s.cron.Stop().Done()
	}()
	return nil
}

func (s *Service) Enqueue(jobType string, run func(context.Context) (any, error)) {
	select {
	case s.queue <- job{Type: jobType, Run: run}:
	default:
		slog.Warn("job queue full", "jobType", jobType)
	}
}

func (s *Service) RunNow(ctx context.Context, jobType string, run func(context.Context) (any, error)) (any, error) {
	return s.runJob(ctx, job{Type: jobType, Run: run})
}

// Sweep completes approved requests that ended before asOf, recording the run.
func (s *Service) Sweep(ctx context.Context, asOf calendar.Date) (int, error) {
	details, err := s.RunNow(ctx, JobRequestSweep, s.sweepJob(asOf))
	if err != nil {
		return 0, err
	}
	return details.(map[string]any)["completed"].(int), nil
}

// Refresh applies the annual balance reset for everyone due on asOf.
func (s *Service) Refresh(ctx context.Context, asOf calendar.Date) (leave.RefreshSummary, error) {
	details, err := s.RunNow(ctx, JobBalanceRefresh, s.refreshJob(asOf))
	if err != nil {
		return leave.RefreshSummary{}, err
	}
	return details.(leave.RefreshSummary), nil
}

func (s *Service) sweepJob(asOf calendar.Date) func(context.Context) (any, error) {
	return func(ctx context.Context) (any, error) {
		completed, err := s.Lifecycle.SweepCompleted(ctx, asOf)
		return map[string]any{"asOf": asOf.String(), "completed": completed}, err
	}
}

func (s *Service) refreshJob(asOf calendar.Date) func(context.Context) (any, error) {
	return func(ctx context.Context) (any, error) {
		return s.Lifecycle.ApplyRefreshes(ctx, s.RefreshPolicy(), asOf)
	}
}

func (s *Service) RefreshPolicy() leave.RefreshPolicy {
	return leave.RefreshPolicy{PTOHours: s.Cfg.DefaultPTOHours, SickHours: s.Cfg.DefaultSickHours}
}

func (s *Service) today() calendar.Date {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return calendar.DateOf(now().In(s.Cfg.Location()))
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if _, err := s.runJob(ctx, j); err != nil {
				slog.Warn("job run failed", "jobType", j.Type, "err", err)
			}
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (any, error) {
	runID := ""
	if s.Runs != nil {
		id, err := s.Runs.Start(ctx, j.Type)
		if err != nil {
			slog.Warn("job run insert failed", "err", err)
		}
		runID = id
	}

	details, err := j.Run(ctx)
	status := "completed"
	if err != nil {
		status = "failed"
	}
	detailsJSON, marshalErr := json.Marshal(details)
	if marshalErr != nil {
		slog.Warn("job details marshal failed", "err", marshalErr)
		detailsJSON = []byte("{}")
	}
	if runID != "" {
		if updErr := s.Runs.Finish(ctx, runID, status, detailsJSON); updErr != nil {
			slog.Warn("job run update failed", "err", updErr)
		}
	}
	return details, err
}
