package storage

import "context"

// Storage abstracts persistence for the plan catalogue and costing results.
type Storage interface {
	// Plans
	ListPlans(ctx context.Context) ([]PlanRecord, error)
	GetPlan(ctx context.Context, id string) (*PlanRecord, error)
	UpsertPlan(ctx context.Context, p PlanRecord) error
	DeletePlan(ctx context.Context, id string) error

	// Costings
	SaveCostings(ctx context.Context, costings []CostingRecord) error
	ListCostings(ctx context.Context, runID string) ([]CostingRecord, error)

	// Scheduled jobs
	UpdateScheduledJob(ctx context.Context, job ScheduledJob) error
	GetScheduledJob(ctx context.Context, name string) (*ScheduledJob, error)

	Ping(ctx context.Context) error

	// Close releases any resources (no-op for in-memory).
	Close() error
}
