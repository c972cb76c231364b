package tariff

import (
	"context"
	"runtime"
	"sort"

	"github.com/sourcegraph/conc/pool"
)

// PlanCost pairs a costing with its rate breakdown.
type PlanCost struct {
	Costing   Costing
	SubTotals SubTotals
}

// Rejected is a plan that could not be costed.
type Rejected struct {
	Plan   PricePlan
	Result ValidationResult
}

// Comparison is the outcome of costing one usage series against many plans.
type Comparison struct {
	Costs    []PlanCost
	Rejected []Rejected
}

// Cheapest returns the plan cost with the lowest net, if any.
func (c Comparison) Cheapest() (PlanCost, bool) {
	if len(c.Costs) == 0 {
		return PlanCost{}, false
	}
	return c.Costs[0], true
}

// Compare costs readings against every plan whose day rates validate, one
// worker per plan, bounded by workers (GOMAXPROCS when <= 0). Results are
// ordered by net cost, then supplier and plan name. readings is shared
// read-only between workers.
func Compare(ctx context.Context, plans []PricePlan, readings []UsageReading, window Window, scenario Scenario, workers int) (Comparison, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	var out Comparison
	valid := make([]PricePlan, 0, len(plans))
	for _, p := range plans {
		if res := Validate(p.Rates); res != Valid {
			out.Rejected = append(out.Rejected, Rejected{Plan: p, Result: res})
			continue
		}
		valid = append(valid, p)
	}

	p := pool.NewWithResults[PlanCost]().WithContext(ctx).WithMaxGoroutines(workers)
	for _, plan := range valid {
		p.Go(func(ctx context.Context) (PlanCost, error) {
			if err := ctx.Err(); err != nil {
				return PlanCost{}, err
			}
			index := NewLookupIndex(plan.Rates)
			c, s := Cost(plan, index, readings, window, scenario)
			return PlanCost{Costing: c, SubTotals: s}, nil
		})
	}
	costs, err := p.Wait()
	if err != nil {
		return Comparison{}, err
	}

	sort.Slice(costs, func(i, j int) bool {
		a, b := costs[i].Costing, costs[j].Costing
		if a.Net != b.Net {
			return a.Net < b.Net
		}
		if a.Supplier != b.Supplier {
			return a.Supplier < b.Supplier
		}
		return a.Plan < b.Plan
	})
	out.Costs = costs
	return out, nil
}
