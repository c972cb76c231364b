package rates

import (
	"time"

	"github.com/bher20/eratecompare/internal/tariff"
)

// Validation is the JSON form of a tariff.ValidationResult.
type Validation struct {
	Code   int    `json:"code"`
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

func NewValidation(r tariff.ValidationResult) Validation {
	return Validation{Code: r.Code(), Name: r.String(), Reason: r.Reason()}
}

// PlanSummary describes a catalogue entry without its rate tables.
type PlanSummary struct {
	ID         string     `json:"id"`
	Supplier   string     `json:"supplier"`
	Plan       string     `json:"plan"`
	Active     bool       `json:"active"`
	LastUpdate string     `json:"last_update,omitempty"`
	Validation Validation `json:"validation"`
	UpdatedAt  time.Time  `json:"updated_at,omitempty"`
}

// ImportRejection is a plan that was not stored.
type ImportRejection struct {
	Supplier   string      `json:"supplier"`
	Plan       string      `json:"plan"`
	Validation *Validation `json:"validation,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// ImportResult reports the outcome of an import.
type ImportResult struct {
	Accepted []PlanSummary     `json:"accepted"`
	Rejected []ImportRejection `json:"rejected"`
}

// ImportOptions controls how imported plans are matched to the catalogue.
type ImportOptions struct {
	// Replace updates an existing plan with the same supplier and plan name
	// instead of rejecting the import with NameInUse.
	Replace bool
}

// ComparisonRequest asks for a usage series to be costed against the
// catalogue. Zero Window bounds are derived from the readings.
type ComparisonRequest struct {
	Scenario        tariff.Scenario       `json:"scenario"`
	Window          tariff.Window         `json:"window"`
	Readings        []tariff.UsageReading `json:"readings"`
	PlanIDs         []string              `json:"plan_ids,omitempty"`
	IncludeInactive bool                  `json:"include_inactive,omitempty"`
}

// CostingResult is one plan's costing in a comparison.
type CostingResult struct {
	tariff.Costing
	Rank      int             `json:"rank"`
	Breakdown []tariff.Bucket `json:"breakdown"`
}

// ComparisonResult is the outcome of a comparison run.
type ComparisonResult struct {
	RunID    string          `json:"run_id"`
	Scenario tariff.Scenario `json:"scenario"`
	Window   tariff.Window   `json:"window"`
	Costings []CostingResult `json:"costings"`
	Rejected []PlanSummary   `json:"rejected"`
}

// RevalidationReport summarises a pass over the whole catalogue.
type RevalidationReport struct {
	Total   int            `json:"total"`
	Counts  map[string]int `json:"counts"`
	Invalid []PlanSummary  `json:"invalid"`
}
