// Package scheduler runs the periodic overdue sweep on robfig/cron.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/VictoRios99/prestamos-backend-sub000/internal/config"
	"github.com/VictoRios99/prestamos-backend-sub000/internal/domain"
	"github.com/VictoRios99/prestamos-backend-sub000/internal/logger"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// sweepTimeout bounds a single run.
const sweepTimeout = 5 * time.Minute

// Service is what the sweep needs from the billing service.
type Service interface {
	ReconcileOverdue(ctx context.Context) (*domain.ReconcileResult, error)
	Classify(ctx context.Context) (*domain.LoanClassification, error)
}

type Scheduler struct {
	cron    *cron.Cron
	service Service
	logger  zerolog.Logger
}

// New registers the overdue sweep under cfg.Scheduler.OverdueCron, evaluated in
// the scheduler timezone. Overlapping runs are skipped and panics recovered.
func New(cfg *config.Config, service Service, l zerolog.Logger) (*Scheduler, error) {
	cl := cronLogger{logger: l}
	s := &Scheduler{
		cron: cron.New(
			cron.WithParser(config.CronParser),
			cron.WithLocation(cfg.SchedulerLocation()),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		service: service,
		logger:  l,
	}

	if _, err := s.cron.AddFunc(cfg.Scheduler.OverdueCron, s.run); err != nil {
		return nil, fmt.Errorf("error scheduling overdue sweep: %w", err)
	}

	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info().Int("jobs", len(s.cron.Entries())).Msg("scheduler started")
}

// Stop stops scheduling and returns a context that is done once running jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	if err := s.Sweep(ctx); err != nil {
		s.logger.Error().Err(err).Msg("overdue sweep failed")
	}
}

// Sweep persists the OVERDUE flag for ACTIVE loans with an unpaid period past its
// due date, then recomputes the dashboard so the first request of the day hits a
// warm cache.
func (s *Scheduler) Sweep(ctx context.Context) error {
	runLogger := s.logger.With().Str("job", "overdue_sweep").Logger()
	ctx = logger.WithContext(ctx, runLogger)
	start := time.Now()

	result, err := s.service.ReconcileOverdue(ctx)
	if err != nil {
		return fmt.Errorf("reconcile overdue: %w", err)
	}
	runLogger.Info().
		Int("checked", result.Checked).
		Int("flagged", result.Flagged).
		Msg("overdue loans reconciled")

	classification, err := s.service.Classify(ctx)
	if err != nil {
		return fmt.Errorf("warm dashboard: %w", err)
	}
	runLogger.Info().
		Int("current", len(classification.Current)).
		Int("due_soon", len(classification.DueSoon)).
		Int("delinquent", len(classification.Delinquent)).
		Dur("duration", time.Since(start)).
		Msg("dashboard refreshed")

	return nil
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
