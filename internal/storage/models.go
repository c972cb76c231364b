package storage

import "time"

// PlanRecord stores a price plan. Payload holds the plan in its JSON
// exchange format; the other columns are copies for listing and lookups.
type PlanRecord struct {
	ID             string    `json:"id" gorm:"primaryKey;column:id"`
	Supplier       string    `json:"supplier" gorm:"column:supplier;uniqueIndex:idx_plans_identity"`
	Plan           string    `json:"plan" gorm:"column:plan_name;uniqueIndex:idx_plans_identity"`
	Active         bool      `json:"active" gorm:"column:active"`
	LastUpdate     string    `json:"last_update,omitempty" gorm:"column:last_update"`
	ValidationCode int       `json:"validation_code" gorm:"column:validation_code"`
	Payload        []byte    `json:"-" gorm:"column:payload"`
	CreatedAt      time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt      time.Time `json:"updated_at" gorm:"column:updated_at"`
}

func (PlanRecord) TableName() string { return "plans" }

// CostingRecord stores one plan's result from a comparison run. Breakdown
// is the JSON encoded price -> kWh histogram.
type CostingRecord struct {
	ID        string    `json:"id" gorm:"primaryKey;column:id"`
	RunID     string    `json:"run_id" gorm:"column:run_id;index"`
	Scenario  string    `json:"scenario" gorm:"column:scenario"`
	PlanID    string    `json:"plan_id" gorm:"column:plan_id"`
	Supplier  string    `json:"supplier" gorm:"column:supplier"`
	Plan      string    `json:"plan" gorm:"column:plan_name"`
	Days      int       `json:"days" gorm:"column:days"`
	Buy       float64   `json:"buy" gorm:"column:buy"`
	Sell      float64   `json:"sell" gorm:"column:sell"`
	Net       float64   `json:"net" gorm:"column:net"`
	Bonus     float64   `json:"bonus" gorm:"column:bonus"`
	Rank      int       `json:"rank" gorm:"column:position"`
	Breakdown []byte    `json:"-" gorm:"column:breakdown"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
}

func (CostingRecord) TableName() string { return "costings" }

// ScheduledJob records the last run of a background job.
type ScheduledJob struct {
	Name           string    `json:"name" gorm:"primaryKey;column:name"`
	LastRunAt      time.Time `json:"last_run_at" gorm:"column:last_run_at"`
	LastDurationMs int64     `json:"last_duration_ms" gorm:"column:last_duration_ms"`
	LastSuccess    bool      `json:"last_success" gorm:"column:last_success"`
	LastError      string    `json:"last_error" gorm:"column:last_error"`
}

func (ScheduledJob) TableName() string { return "scheduled_jobs" }
