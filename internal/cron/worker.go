// Package cron runs the background catalogue revalidation job.
package cron

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/bher20/eratecompare/internal/alerting"
	"github.com/bher20/eratecompare/internal/logger"
	"github.com/bher20/eratecompare/internal/metrics"
	"github.com/bher20/eratecompare/internal/rates"
	"github.com/bher20/eratecompare/internal/storage"
)

// JobName is the scheduled_jobs row the revalidation job writes.
const JobName = "revalidate_plans"

// DefaultInterval is used when the schedule setting cannot be parsed.
const DefaultInterval = 5 * time.Minute

// statser is implemented by storage backends with a SQL connection pool.
type statser interface {
	Stats() (sql.DBStats, error)
}

// NextRun returns the next time a job should run after lastRun. setting is
// either a whole number of seconds or a standard five-field cron expression.
func NextRun(setting string, lastRun time.Time) time.Time {
	if v, err := strconv.Atoi(setting); err == nil && v > 0 {
		return lastRun.Add(time.Duration(v) * time.Second)
	}
	if sched, err := cron.ParseStandard(setting); err == nil {
		return sched.Next(lastRun)
	}
	return lastRun.Add(DefaultInterval)
}

// Worker periodically revalidates every stored plan.
type Worker struct {
	svc      *rates.Service
	store    storage.Storage
	driver   string
	schedule string
	alerter  *alerting.Alerter
	tick     time.Duration
}

// NewWorker builds a Worker for svc. driver labels the pool metrics;
// alerter may be nil.
func NewWorker(svc *rates.Service, driver, schedule string, alerter *alerting.Alerter) *Worker {
	return &Worker{
		svc:      svc,
		store:    svc.Storage(),
		driver:   driver,
		schedule: schedule,
		alerter:  alerter,
		tick:     10 * time.Second,
	}
}

// RunOnce revalidates the catalogue and records the run.
func (w *Worker) RunOnce(ctx context.Context) error {
	started := time.Now()
	report, runErr := w.svc.RevalidateAll(ctx)

	metrics.UpdateJobMetrics(JobName, started, runErr)
	if s, ok := w.store.(statser); ok {
		if stats, err := s.Stats(); err == nil {
			metrics.UpdateDBPoolMetrics(w.driver, stats)
		}
	}

	dur := time.Since(started)
	job := storage.ScheduledJob{
		Name:           JobName,
		LastRunAt:      started,
		LastDurationMs: dur.Milliseconds(),
		LastSuccess:    runErr == nil,
	}
	if runErr != nil {
		job.LastError = runErr.Error()
	}
	if err := w.store.UpdateScheduledJob(ctx, job); err != nil {
		logger.L.Errorw("cron: update scheduled_jobs failed", "job", JobName, "error", err)
	}

	w.alert(ctx, report, runErr, started, dur)

	if runErr != nil {
		logger.L.Errorw("cron: job completed with error", "job", JobName, "error", runErr, "duration", dur)
		return runErr
	}
	logger.L.Infow("cron: job completed", "job", JobName, "results", report.Counts, "duration", dur)
	return nil
}

func (w *Worker) alert(ctx context.Context, report *rates.RevalidationReport, runErr error, started time.Time, dur time.Duration) {
	if !w.alerter.Enabled() {
		return
	}
	alert := alerting.CatalogAlert{JobName: JobName, Duration: dur, Timestamp: started}
	if runErr != nil {
		alert.Error = runErr.Error()
	} else {
		alert.Total = report.Total
		for _, p := range report.Invalid {
			alert.Invalid = append(alert.Invalid, alerting.InvalidPlan{
				ID:     p.ID,
				Plan:   p.Supplier + "/" + p.Plan,
				Result: p.Validation.Name,
				Reason: p.Validation.Reason,
			})
		}
	}
	if err := w.alerter.Send(ctx, alert); err != nil {
		logger.L.Warnw("cron: send alert failed", "job", JobName, "error", err)
	}
}

// Run executes the job immediately and then on the configured schedule
// until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.tick)
	defer ticker.Stop()

	logger.L.Infow("cron: worker starting", "job", JobName, "schedule", w.schedule, "driver", w.driver)

	nextRun := time.Now()
	for {
		if !time.Now().Before(nextRun) {
			_ = w.RunOnce(ctx)
			nextRun = NextRun(w.schedule, time.Now())
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
