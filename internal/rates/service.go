package rates

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/oklog/ulid/v2"
	"github.com/samber/lo"

	"github.com/bher20/eratecompare/internal/importer"
	"github.com/bher20/eratecompare/internal/logger"
	"github.com/bher20/eratecompare/internal/metrics"
	"github.com/bher20/eratecompare/internal/storage"
	"github.com/bher20/eratecompare/internal/tariff"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	ErrPlanNotFound = errors.New("plan not found")
	ErrNoReadings   = errors.New("no usage readings")
)

// Config controls how the rates service behaves.
type Config struct {
	// Workers bounds parallel plan costing; 0 means GOMAXPROCS.
	Workers int
}

// Service coordinates the plan catalogue and comparison runs.
type Service struct {
	cfg   Config
	store storage.Storage
}

// NewService returns a Service backed by in-memory storage.
func NewService(cfg Config) *Service {
	return &Service{cfg: cfg, store: storage.NewMemory()}
}

// NewServiceWithStorage returns a Service that uses the provided storage
// backend for the plan catalogue and costing results.
func NewServiceWithStorage(cfg Config, st storage.Storage) *Service {
	return &Service{cfg: cfg, store: st}
}

// Storage returns the backing store.
func (s *Service) Storage() storage.Storage { return s.store }

// catalogue loads every stored plan, decoded.
func (s *Service) catalogue(ctx context.Context) ([]tariff.PricePlan, []storage.PlanRecord, error) {
	recs, err := s.store.ListPlans(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list plans: %w", err)
	}
	plans := make([]tariff.PricePlan, 0, len(recs))
	for _, rec := range recs {
		p, err := decodePlan(rec)
		if err != nil {
			return nil, nil, err
		}
		plans = append(plans, p)
	}
	return plans, recs, nil
}

func decodePlan(rec storage.PlanRecord) (tariff.PricePlan, error) {
	p, err := importer.UnmarshalPlan(rec.Payload)
	if err != nil {
		return tariff.PricePlan{}, fmt.Errorf("decode stored plan %s: %w", rec.ID, err)
	}
	p.ID = rec.ID
	p.Active = rec.Active
	return p, nil
}

func toRecord(p tariff.PricePlan, res tariff.ValidationResult) (storage.PlanRecord, error) {
	payload, err := importer.MarshalPlan(p)
	if err != nil {
		return storage.PlanRecord{}, fmt.Errorf("encode plan %s: %w", p.IdentityKey(), err)
	}
	return storage.PlanRecord{
		ID:             p.ID,
		Supplier:       p.Supplier,
		Plan:           p.Plan,
		Active:         p.Active,
		LastUpdate:     p.LastUpdate,
		ValidationCode: res.Code(),
		Payload:        payload,
	}, nil
}

func summarize(rec storage.PlanRecord) PlanSummary {
	return PlanSummary{
		ID:         rec.ID,
		Supplier:   rec.Supplier,
		Plan:       rec.Plan,
		Active:     rec.Active,
		LastUpdate: rec.LastUpdate,
		Validation: NewValidation(tariff.ValidationResult(rec.ValidationCode)),
		UpdatedAt:  rec.UpdatedAt,
	}
}

// ImportPlans validates records against the catalogue and stores the valid
// ones. Plans earlier in the same import count as part of the catalogue.
func (s *Service) ImportPlans(ctx context.Context, recs []importer.PlanRecord, opts ImportOptions) (*ImportResult, error) {
	existing, _, err := s.catalogue(ctx)
	if err != nil {
		return nil, err
	}

	out := &ImportResult{Accepted: []PlanSummary{}, Rejected: []ImportRejection{}}
	for _, rec := range recs {
		plan, err := rec.ToPlan()
		if err != nil {
			out.Rejected = append(out.Rejected, ImportRejection{Supplier: rec.Supplier, Plan: rec.Plan, Error: err.Error()})
			continue
		}

		plan.ID = uuid.NewString()
		if opts.Replace {
			if prev, ok := lo.Find(existing, plan.SameIdentity); ok {
				plan.ID = prev.ID
			}
		}

		res := tariff.ValidatePlan(plan, existing)
		metrics.ObserveValidation(res.String())
		if res != tariff.Valid {
			v := NewValidation(res)
			out.Rejected = append(out.Rejected, ImportRejection{Supplier: plan.Supplier, Plan: plan.Plan, Validation: &v})
			logger.L.Infow("rates: plan rejected", "supplier", plan.Supplier, "plan", plan.Plan, "result", res.String())
			continue
		}

		row, err := toRecord(plan, res)
		if err != nil {
			return nil, err
		}
		if err := s.store.UpsertPlan(ctx, row); err != nil {
			return nil, fmt.Errorf("store plan %s: %w", plan.IdentityKey(), err)
		}
		existing = append(lo.Reject(existing, func(p tariff.PricePlan, _ int) bool { return p.ID == plan.ID }), plan)
		out.Accepted = append(out.Accepted, summarize(row))
	}
	logger.L.Infow("rates: import finished", "accepted", len(out.Accepted), "rejected", len(out.Rejected))
	return out, nil
}

// UpdatePlan replaces the stored plan id with rec. The plan is only stored
// when it validates.
func (s *Service) UpdatePlan(ctx context.Context, id string, rec importer.PlanRecord) (PlanSummary, tariff.ValidationResult, error) {
	cur, err := s.store.GetPlan(ctx, id)
	if err != nil {
		return PlanSummary{}, tariff.Valid, fmt.Errorf("get plan %s: %w", id, err)
	}
	if cur == nil {
		return PlanSummary{}, tariff.Valid, ErrPlanNotFound
	}
	plan, err := rec.ToPlan()
	if err != nil {
		return PlanSummary{}, tariff.Valid, err
	}
	plan.ID = id

	existing, _, err := s.catalogue(ctx)
	if err != nil {
		return PlanSummary{}, tariff.Valid, err
	}
	res := tariff.ValidatePlan(plan, existing)
	metrics.ObserveValidation(res.String())
	if res != tariff.Valid {
		return summarize(*cur), res, nil
	}
	row, err := toRecord(plan, res)
	if err != nil {
		return PlanSummary{}, res, err
	}
	if err := s.store.UpsertPlan(ctx, row); err != nil {
		return PlanSummary{}, res, fmt.Errorf("store plan %s: %w", id, err)
	}
	updated, err := s.store.GetPlan(ctx, id)
	if err != nil || updated == nil {
		return summarize(row), res, err
	}
	return summarize(*updated), res, nil
}

// ListPlans returns every catalogue entry.
func (s *Service) ListPlans(ctx context.Context) ([]PlanSummary, error) {
	recs, err := s.store.ListPlans(ctx)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	return lo.Map(recs, func(r storage.PlanRecord, _ int) PlanSummary { return summarize(r) }), nil
}

// GetPlan returns the full plan stored under id.
func (s *Service) GetPlan(ctx context.Context, id string) (tariff.PricePlan, error) {
	rec, err := s.store.GetPlan(ctx, id)
	if err != nil {
		return tariff.PricePlan{}, fmt.Errorf("get plan %s: %w", id, err)
	}
	if rec == nil {
		return tariff.PricePlan{}, ErrPlanNotFound
	}
	return decodePlan(*rec)
}

// DeletePlan removes a plan from the catalogue.
func (s *Service) DeletePlan(ctx context.Context, id string) error {
	rec, err := s.store.GetPlan(ctx, id)
	if err != nil {
		return fmt.Errorf("get plan %s: %w", id, err)
	}
	if rec == nil {
		return ErrPlanNotFound
	}
	return s.store.DeletePlan(ctx, id)
}

// ValidatePlan re-checks a stored plan against the rest of the catalogue.
func (s *Service) ValidatePlan(ctx context.Context, id string) (tariff.ValidationResult, error) {
	plans, _, err := s.catalogue(ctx)
	if err != nil {
		return tariff.Valid, err
	}
	plan, ok := lo.Find(plans, func(p tariff.PricePlan) bool { return p.ID == id })
	if !ok {
		return tariff.Valid, ErrPlanNotFound
	}
	res := tariff.ValidatePlan(plan, plans)
	metrics.ObserveValidation(res.String())
	return res, nil
}

// RevalidateAll re-checks every stored plan and records the result on the
// plan row.
func (s *Service) RevalidateAll(ctx context.Context) (*RevalidationReport, error) {
	plans, recs, err := s.catalogue(ctx)
	if err != nil {
		return nil, err
	}
	out := &RevalidationReport{Total: len(plans), Counts: make(map[string]int), Invalid: []PlanSummary{}}
	for i, plan := range plans {
		res := tariff.ValidatePlan(plan, plans)
		out.Counts[res.String()]++
		if recs[i].ValidationCode != res.Code() {
			logger.L.Warnw("rates: plan validation changed",
				"id", plan.ID, "plan", plan.IdentityKey().String(),
				"was", tariff.ValidationResult(recs[i].ValidationCode).String(), "now", res.String())
			recs[i].ValidationCode = res.Code()
			if err := s.store.UpsertPlan(ctx, recs[i]); err != nil {
				return nil, fmt.Errorf("store plan %s: %w", plan.ID, err)
			}
		}
		if res != tariff.Valid {
			out.Invalid = append(out.Invalid, summarize(recs[i]))
		}
	}
	metrics.SetCatalogPlans(out.Counts)
	return out, nil
}

// RunComparison costs the request's readings against the catalogue and
// stores the results under a new run ID.
func (s *Service) RunComparison(ctx context.Context, req ComparisonRequest) (*ComparisonResult, error) {
	if len(req.Readings) == 0 {
		return nil, ErrNoReadings
	}
	started := time.Now()

	plans, _, err := s.catalogue(ctx)
	if err != nil {
		return nil, err
	}
	if len(req.PlanIDs) > 0 {
		plans = lo.Filter(plans, func(p tariff.PricePlan, _ int) bool { return lo.Contains(req.PlanIDs, p.ID) })
	}
	if !req.IncludeInactive {
		plans = lo.Filter(plans, func(p tariff.PricePlan, _ int) bool { return p.Active })
	}

	window := req.Window
	if window.From.IsZero() || window.To.IsZero() {
		derived := tariff.WindowFor(req.Readings)
		if window.From.IsZero() {
			window.From = derived.From
		}
		if window.To.IsZero() {
			window.To = derived.To
		}
	}

	cmp, err := tariff.Compare(ctx, plans, req.Readings, window, req.Scenario, s.cfg.Workers)
	if err != nil {
		return nil, fmt.Errorf("compare plans: %w", err)
	}

	runID := ulid.Make().String()
	out := &ComparisonResult{
		RunID:    runID,
		Scenario: req.Scenario,
		Window:   window,
		Costings: make([]CostingResult, 0, len(cmp.Costs)),
		Rejected: make([]PlanSummary, 0, len(cmp.Rejected)),
	}
	rows := make([]storage.CostingRecord, 0, len(cmp.Costs))
	for i, pc := range cmp.Costs {
		c := pc.Costing
		c.ID = ulid.Make().String()
		buckets := pc.SubTotals.Buckets()
		breakdown, err := json.Marshal(buckets)
		if err != nil {
			return nil, fmt.Errorf("encode breakdown: %w", err)
		}
		out.Costings = append(out.Costings, CostingResult{Costing: c, Rank: i + 1, Breakdown: buckets})
		rows = append(rows, storage.CostingRecord{
			ID:        c.ID,
			RunID:     runID,
			Scenario:  c.Scenario,
			PlanID:    c.PlanID,
			Supplier:  c.Supplier,
			Plan:      c.Plan,
			Days:      c.Days,
			Buy:       c.Buy,
			Sell:      c.Sell,
			Net:       c.Net,
			Bonus:     c.Bonus,
			Rank:      i + 1,
			Breakdown: breakdown,
		})
	}
	for _, r := range cmp.Rejected {
		metrics.ObserveValidation(r.Result.String())
		out.Rejected = append(out.Rejected, PlanSummary{
			ID:         r.Plan.ID,
			Supplier:   r.Plan.Supplier,
			Plan:       r.Plan.Plan,
			Active:     r.Plan.Active,
			LastUpdate: r.Plan.LastUpdate,
			Validation: NewValidation(r.Result),
		})
	}

	if err := s.store.SaveCostings(ctx, rows); err != nil {
		return nil, fmt.Errorf("store costings: %w", err)
	}
	metrics.ObserveComparison(started, len(rows))
	logger.L.Infow("rates: comparison finished",
		"run_id", runID, "scenario", req.Scenario.ID, "costed", len(rows), "rejected", len(out.Rejected),
		"duration", time.Since(started))
	return out, nil
}

// GetComparison loads a stored comparison run.
func (s *Service) GetComparison(ctx context.Context, runID string) ([]CostingResult, error) {
	rows, err := s.store.ListCostings(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("list costings %s: %w", runID, err)
	}
	out := make([]CostingResult, 0, len(rows))
	for _, r := range rows {
		var buckets []tariff.Bucket
		if len(r.Breakdown) > 0 {
			if err := json.Unmarshal(r.Breakdown, &buckets); err != nil {
				return nil, fmt.Errorf("decode breakdown %s: %w", r.ID, err)
			}
		}
		out = append(out, CostingResult{
			Costing: tariff.Costing{
				ID:       r.ID,
				Scenario: r.Scenario,
				PlanID:   r.PlanID,
				Supplier: r.Supplier,
				Plan:     r.Plan,
				Days:     r.Days,
				Buy:      r.Buy,
				Sell:     r.Sell,
				Net:      r.Net,
				Bonus:    r.Bonus,
			},
			Rank:      r.Rank,
			Breakdown: buckets,
		})
	}
	return out, nil
}
