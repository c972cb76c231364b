package storage

import (
	"context"
	"testing"
	"time"
)

// runStorageContract exercises behaviour every backend must share.
func runStorageContract(t *testing.T, st Storage) {
	t.Helper()
	ctx := context.Background()

	if err := st.Ping(ctx); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}

	got, err := st.GetPlan(ctx, "missing")
	if err != nil || got != nil {
		t.Fatalf("GetPlan(missing) = %v, %v; want nil, nil", got, err)
	}

	plans := []PlanRecord{
		{ID: "b", Supplier: "Bolt Power", Plan: "Seasonal", Active: true, Payload: []byte("{}")},
		{ID: "a2", Supplier: "Acme Energy", Plan: "Night Saver", Active: true, Payload: []byte("{}")},
		{ID: "a1", Supplier: "Acme Energy", Plan: "Flat", Active: false, Payload: []byte("{}")},
	}
	for _, p := range plans {
		if err := st.UpsertPlan(ctx, p); err != nil {
			t.Fatalf("UpsertPlan(%s) failed: %v", p.ID, err)
		}
	}

	list, err := st.ListPlans(ctx)
	if err != nil {
		t.Fatalf("ListPlans failed: %v", err)
	}
	wantOrder := []string{"a1", "a2", "b"}
	if len(list) != len(wantOrder) {
		t.Fatalf("expected %d plans, got %d", len(wantOrder), len(list))
	}
	for i, id := range wantOrder {
		if list[i].ID != id {
			t.Errorf("ListPlans[%d] = %s, want %s", i, list[i].ID, id)
		}
	}

	updated := plans[2]
	updated.Active = true
	updated.ValidationCode = 7
	updated.Payload = []byte(`{"x":1}`)
	if err := st.UpsertPlan(ctx, updated); err != nil {
		t.Fatalf("UpsertPlan(update) failed: %v", err)
	}
	got, err = st.GetPlan(ctx, "a1")
	if err != nil || got == nil {
		t.Fatalf("GetPlan(a1) = %v, %v", got, err)
	}
	if !got.Active || got.ValidationCode != 7 || string(got.Payload) != `{"x":1}` {
		t.Errorf("update not applied: %+v", got)
	}

	if err := st.DeletePlan(ctx, "b"); err != nil {
		t.Fatalf("DeletePlan failed: %v", err)
	}
	if got, _ := st.GetPlan(ctx, "b"); got != nil {
		t.Errorf("expected plan b to be deleted")
	}

	costings := []CostingRecord{
		{ID: "c2", RunID: "run1", PlanID: "a2", Supplier: "Acme Energy", Plan: "Night Saver", Net: 20, Rank: 2},
		{ID: "c1", RunID: "run1", PlanID: "a1", Supplier: "Acme Energy", Plan: "Flat", Net: 10, Rank: 1},
		{ID: "c3", RunID: "run2", PlanID: "a1", Supplier: "Acme Energy", Plan: "Flat", Net: 11, Rank: 1},
	}
	if err := st.SaveCostings(ctx, costings); err != nil {
		t.Fatalf("SaveCostings failed: %v", err)
	}
	run1, err := st.ListCostings(ctx, "run1")
	if err != nil {
		t.Fatalf("ListCostings failed: %v", err)
	}
	if len(run1) != 2 || run1[0].ID != "c1" || run1[1].ID != "c2" {
		t.Fatalf("unexpected run1 costings: %+v", run1)
	}
	if none, _ := st.ListCostings(ctx, "nope"); len(none) != 0 {
		t.Errorf("expected no costings for unknown run, got %d", len(none))
	}

	job := ScheduledJob{Name: "revalidate_plans", LastRunAt: time.Now().UTC().Truncate(time.Second), LastDurationMs: 12, LastSuccess: true}
	if err := st.UpdateScheduledJob(ctx, job); err != nil {
		t.Fatalf("UpdateScheduledJob failed: %v", err)
	}
	job.LastSuccess = false
	job.LastError = "boom"
	if err := st.UpdateScheduledJob(ctx, job); err != nil {
		t.Fatalf("UpdateScheduledJob(second) failed: %v", err)
	}
	gotJob, err := st.GetScheduledJob(ctx, "revalidate_plans")
	if err != nil || gotJob == nil {
		t.Fatalf("GetScheduledJob = %v, %v", gotJob, err)
	}
	if gotJob.LastSuccess || gotJob.LastError != "boom" {
		t.Errorf("unexpected job row: %+v", gotJob)
	}
}
