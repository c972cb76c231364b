package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type GormStorage struct {
	db *gorm.DB
}

func NewGormStorage(driver, dsn string) (*GormStorage, error) {
	var gormDialector gorm.Dialector
	switch driver {
	case "postgres":
		gormDialector = postgres.Open(dsn)
	case "sqlite":
		gormDialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := gorm.Open(gormDialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	return &GormStorage{db: db}, nil
}

func (s *GormStorage) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(
		&PlanRecord{},
		&CostingRecord{},
		&ScheduledJob{},
	)
}

func (s *GormStorage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *GormStorage) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Stats exposes the connection pool statistics of the underlying database.
func (s *GormStorage) Stats() (sql.DBStats, error) {
	sqlDB, err := s.db.DB()
	if err != nil {
		return sql.DBStats{}, err
	}
	return sqlDB.Stats(), nil
}

// Plans

func (s *GormStorage) ListPlans(ctx context.Context) ([]PlanRecord, error) {
	var plans []PlanRecord
	result := s.db.WithContext(ctx).Order("supplier, plan_name").Find(&plans)
	return plans, result.Error
}

func (s *GormStorage) GetPlan(ctx context.Context, id string) (*PlanRecord, error) {
	var plan PlanRecord
	result := s.db.WithContext(ctx).First(&plan, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil // Return nil if not found, consistent with other implementations
		}
		return nil, result.Error
	}
	return &plan, nil
}

func (s *GormStorage) UpsertPlan(ctx context.Context, p PlanRecord) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"supplier", "plan_name", "active", "last_update", "validation_code", "payload", "updated_at"}),
	}).Create(&p).Error
}

func (s *GormStorage) DeletePlan(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Delete(&PlanRecord{}, "id = ?", id).Error
}

// Costings

func (s *GormStorage) SaveCostings(ctx context.Context, costings []CostingRecord) error {
	if len(costings) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Create(&costings).Error
}

func (s *GormStorage) ListCostings(ctx context.Context, runID string) ([]CostingRecord, error) {
	var out []CostingRecord
	result := s.db.WithContext(ctx).Order("position").Find(&out, "run_id = ?", runID)
	return out, result.Error
}

// Scheduled jobs

func (s *GormStorage) UpdateScheduledJob(ctx context.Context, job ScheduledJob) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		UpdateAll: true,
	}).Create(&job).Error
}

func (s *GormStorage) GetScheduledJob(ctx context.Context, name string) (*ScheduledJob, error) {
	var job ScheduledJob
	result := s.db.WithContext(ctx).First(&job, "name = ?", name)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &job, nil
}
