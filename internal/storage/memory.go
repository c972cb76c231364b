package storage

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStorage is an in-memory Storage implementation, useful for tests and
// simple single-process deployments.
type MemoryStorage struct {
	mu       sync.RWMutex
	plans    map[string]PlanRecord
	costings map[string][]CostingRecord
	jobs     map[string]ScheduledJob
}

// NewMemory returns an empty MemoryStorage.
func NewMemory() *MemoryStorage {
	return &MemoryStorage{
		plans:    make(map[string]PlanRecord),
		costings: make(map[string][]CostingRecord),
		jobs:     make(map[string]ScheduledJob),
	}
}

// NewMemoryWithPlans returns a MemoryStorage preloaded with plans.
func NewMemoryWithPlans(list []PlanRecord) *MemoryStorage {
	m := NewMemory()
	for _, p := range list {
		m.plans[p.ID] = p
	}
	return m
}

func (m *MemoryStorage) Close() error { return nil }

func (m *MemoryStorage) Ping(ctx context.Context) error { return nil }

func (m *MemoryStorage) ListPlans(ctx context.Context) ([]PlanRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]PlanRecord, 0, len(m.plans))
	for _, p := range m.plans {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Supplier != out[j].Supplier {
			return out[i].Supplier < out[j].Supplier
		}
		return out[i].Plan < out[j].Plan
	})
	return out, nil
}

func (m *MemoryStorage) GetPlan(ctx context.Context, id string) (*PlanRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.plans[id]
	if !ok {
		return nil, nil
	}
	cp := p
	return &cp, nil
}

func (m *MemoryStorage) UpsertPlan(ctx context.Context, p PlanRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	if old, ok := m.plans[p.ID]; ok {
		p.CreatedAt = old.CreatedAt
	} else if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	m.plans[p.ID] = p
	return nil
}

func (m *MemoryStorage) DeletePlan(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.plans, id)
	return nil
}

func (m *MemoryStorage) SaveCostings(ctx context.Context, costings []CostingRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for _, c := range costings {
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		m.costings[c.RunID] = append(m.costings[c.RunID], c)
	}
	return nil
}

func (m *MemoryStorage) ListCostings(ctx context.Context, runID string) ([]CostingRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := m.costings[runID]
	out := make([]CostingRecord, len(list))
	copy(out, list)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Rank < out[j].Rank })
	return out, nil
}

func (m *MemoryStorage) UpdateScheduledJob(ctx context.Context, job ScheduledJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.Name] = job
	return nil
}

func (m *MemoryStorage) GetScheduledJob(ctx context.Context, name string) (*ScheduledJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.jobs[name]
	if !ok {
		return nil, nil
	}
	return &j, nil
}
