package storage

import (
	"context"
	"fmt"

	"github.com/bher20/eratecompare/internal/logger"
)

// Config controls how the storage backend is opened.
type Config struct {
	Driver string
	DSN    string
	Plans  []PlanRecord
}

// Open constructs a Storage based on the given configuration.
func Open(ctx context.Context, cfg Config) (Storage, error) {
	drv := cfg.Driver
	if drv == "" {
		drv = "memory"
	}
	switch drv {
	case "memory":
		logger.L.Infow("storage: using in-memory backend", "plans", len(cfg.Plans))
		return NewMemoryWithPlans(cfg.Plans), nil

	case "sqlite", "postgres":
		logger.L.Infow("storage: using gorm backend", "driver", drv)
		st, err := NewGormStorage(drv, cfg.DSN)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			st.Close()
			return nil, fmt.Errorf("storage migrate: %w", err)
		}
		for _, p := range cfg.Plans {
			if err := st.UpsertPlan(ctx, p); err != nil {
				st.Close()
				return nil, fmt.Errorf("storage seed plan %s: %w", p.ID, err)
			}
		}
		return st, nil

	default:
		return nil, fmt.Errorf("unsupported storage driver %q", drv)
	}
}
