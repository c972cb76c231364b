package metrics

import (
	"database/sql"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eratecompare_requests_total",
			Help: "Total number of API requests per path",
		},
		[]string{"path"},
	)

	RequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eratecompare_request_duration_seconds",
			Help:    "Request duration in seconds per path",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)

	RequestErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eratecompare_request_errors_total",
			Help: "Total number of error responses per path and status code",
		},
		[]string{"path", "code"},
	)
)

var (
	ValidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eratecompare_plan_validations_total",
			Help: "Plan validations by result",
		},
		[]string{"result"},
	)

	ComparisonRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eratecompare_comparison_runs_total",
			Help: "Total number of plan comparison runs",
		},
	)

	ComparisonDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "eratecompare_comparison_duration_seconds",
			Help:    "Duration of plan comparison runs",
			Buckets: prometheus.DefBuckets,
		},
	)

	PlansCostedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eratecompare_plans_costed_total",
			Help: "Total number of plans costed across all runs",
		},
	)

	CatalogPlans = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "eratecompare_catalog_plans",
			Help: "Plans in the catalogue by validation result",
		},
		[]string{"result"},
	)
)

// ObserveValidation counts one validation outcome.
func ObserveValidation(result string) {
	ValidationsTotal.WithLabelValues(result).Inc()
}

// ObserveComparison records a completed comparison run.
func ObserveComparison(startedAt time.Time, plansCosted int) {
	ComparisonRunsTotal.Inc()
	ComparisonDurationSeconds.Observe(time.Since(startedAt).Seconds())
	PlansCostedTotal.Add(float64(plansCosted))
}

// SetCatalogPlans replaces the per-result catalogue gauge.
func SetCatalogPlans(counts map[string]int) {
	CatalogPlans.Reset()
	for result, n := range counts {
		CatalogPlans.WithLabelValues(result).Set(float64(n))
	}
}

var (
	DBPoolOpenConns = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "eratecompare_db_pool_open_conns",
			Help: "Open connections in the DB pool per driver",
		},
		[]string{"driver"},
	)

	DBPoolIdleConns = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "eratecompare_db_pool_idle_conns",
			Help: "Idle connections in the DB pool per driver",
		},
		[]string{"driver"},
	)

	DBPoolInUseConns = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "eratecompare_db_pool_in_use_conns",
			Help: "Currently in-use connections per driver",
		},
		[]string{"driver"},
	)

	DBPoolWaitCount = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "eratecompare_db_pool_wait_count",
			Help: "Total number of connections waited for per driver",
		},
		[]string{"driver"},
	)
)

func UpdateDBPoolMetrics(driver string, stats sql.DBStats) {
	DBPoolOpenConns.WithLabelValues(driver).Set(float64(stats.OpenConnections))
	DBPoolIdleConns.WithLabelValues(driver).Set(float64(stats.Idle))
	DBPoolInUseConns.WithLabelValues(driver).Set(float64(stats.InUse))
	DBPoolWaitCount.WithLabelValues(driver).Set(float64(stats.WaitCount))
}

var (
	ScheduledJobLastRun = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "eratecompare_job_last_run_timestamp",
			Help: "Unix timestamp of the last completed run for a job",
		},
		[]string{"job"},
	)

	ScheduledJobLastDurationSeconds = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "eratecompare_job_last_duration_seconds",
			Help: "Duration of the last completed run for a job",
		},
		[]string{"job"},
	)

	ScheduledJobFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eratecompare_job_failures_total",
			Help: "Total number of failed executions per job",
		},
		[]string{"job"},
	)
)

func UpdateJobMetrics(job string, startedAt time.Time, err error) {
	dur := time.Since(startedAt).Seconds()
	ScheduledJobLastDurationSeconds.WithLabelValues(job).Set(dur)
	ScheduledJobLastRun.WithLabelValues(job).Set(float64(time.Now().Unix()))
	if err != nil {
		ScheduledJobFailuresTotal.WithLabelValues(job).Inc()
	}
}
