// Package importer converts external tariff and usage records into the
// tariff package's types.
package importer

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"

	"github.com/bher20/eratecompare/internal/tariff"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var validate = validator.New()

var ErrNoPlans = errors.New("no plans in document")

// PlanRecord is the JSON exchange format of a price plan.
type PlanRecord struct {
	Supplier        string              `json:"Supplier" validate:"required"`
	Plan            string              `json:"Plan" validate:"required"`
	Feed            float64             `json:"Feed"`
	StandingCharges float64             `json:"StandingCharges"`
	BonusCash       float64             `json:"BonusCash"`
	Active          bool                `json:"Active"`
	LastUpdate      string              `json:"LastUpdate,omitempty"`
	Reference       string              `json:"Reference,omitempty"`
	DeemedExport    bool                `json:"DeemedExport"`
	Restrictions    []RestrictionRecord `json:"Restrictions,omitempty" validate:"omitempty,dive"`
	Rates           []DayRateRecord     `json:"Rates" validate:"dive"`
}

// DayRateRecord is the JSON exchange format of a day rate. Minutes is an
// optional minute-resolution curve that replaces the one derived from Hours.
type DayRateRecord struct {
	Days      []int            `json:"Days" validate:"dive,min=0,max=6"`
	Hours     []float64        `json:"Hours" validate:"len=25"`
	StartDate string           `json:"startDate,omitempty"`
	EndDate   string           `json:"endDate,omitempty"`
	Minutes   []tariff.Segment `json:"Minutes,omitempty"`
}

// RestrictionRecord is the JSON exchange format of a restriction.
type RestrictionRecord struct {
	Periodicity string                      `json:"periodicity" validate:"required,oneof=annual monthly bimonthly"`
	Entries     map[string]tariff.Threshold `json:"entries" validate:"required"`
}

type planDocument struct {
	Plans []PlanRecord `json:"plans"`
}

// DecodePlans reads a single plan object, a bare array of plans, or an
// object with a "plans" array.
func DecodePlans(r io.Reader) ([]PlanRecord, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read plans: %w", err)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, ErrNoPlans
	}

	var records []PlanRecord
	switch raw[0] {
	case '[':
		if err := json.Unmarshal(raw, &records); err != nil {
			return nil, fmt.Errorf("decode plan array: %w", err)
		}
	case '{':
		var doc planDocument
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("decode plan document: %w", err)
		}
		if len(doc.Plans) > 0 {
			records = doc.Plans
			break
		}
		var rec PlanRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("decode plan: %w", err)
		}
		records = []PlanRecord{rec}
	default:
		return nil, fmt.Errorf("decode plans: unexpected leading %q", raw[0])
	}
	if len(records) == 0 {
		return nil, ErrNoPlans
	}
	return records, nil
}

// EncodePlans writes plans as an indented {"plans": [...]} document.
func EncodePlans(w io.Writer, plans []tariff.PricePlan) error {
	doc := planDocument{Plans: make([]PlanRecord, 0, len(plans))}
	for _, p := range plans {
		doc.Plans = append(doc.Plans, FromPlan(p))
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// MarshalPlan encodes one plan record.
func MarshalPlan(p tariff.PricePlan) ([]byte, error) {
	return json.Marshal(FromPlan(p))
}

// UnmarshalPlan decodes one plan record and converts it.
func UnmarshalPlan(data []byte) (tariff.PricePlan, error) {
	var rec PlanRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return tariff.PricePlan{}, fmt.Errorf("decode plan: %w", err)
	}
	return rec.ToPlan()
}

// ToPlan checks the record's shape and converts it. Coverage is not checked
// here; that is tariff.Validate's job.
func (rec PlanRecord) ToPlan() (tariff.PricePlan, error) {
	if err := validate.Struct(rec); err != nil {
		return tariff.PricePlan{}, fmt.Errorf("plan %s/%s: %w", rec.Supplier, rec.Plan, err)
	}

	plan := tariff.PricePlan{
		Supplier:        rec.Supplier,
		Plan:            rec.Plan,
		Feed:            rec.Feed,
		StandingCharges: rec.StandingCharges,
		BonusCash:       rec.BonusCash,
		DeemedExport:    rec.DeemedExport,
		LastUpdate:      rec.LastUpdate,
		Reference:       rec.Reference,
		Active:          rec.Active,
	}
	for _, r := range rec.Restrictions {
		plan.Restrictions = append(plan.Restrictions, tariff.Restriction{
			Periodicity: tariff.Periodicity(r.Periodicity),
			Entries:     r.Entries,
		})
	}
	for i, dr := range rec.Rates {
		hours, err := tariff.NewHourlyCurve(dr.Hours)
		if err != nil {
			return tariff.PricePlan{}, fmt.Errorf("plan %s/%s rate %d: %w", rec.Supplier, rec.Plan, i, err)
		}
		out := tariff.DayRate{
			StartDate: dr.StartDate,
			EndDate:   dr.EndDate,
			Hours:     hours,
		}
		if out.StartDate == "" {
			out.StartDate = tariff.DefaultStartDate
		}
		if out.EndDate == "" {
			out.EndDate = tariff.DefaultEndDate
		}
		for _, d := range dr.Days {
			out.Days = append(out.Days, time.Weekday(d))
		}
		if len(dr.Minutes) > 0 {
			mc, err := tariff.NewRateCurve(dr.Minutes)
			if err != nil {
				return tariff.PricePlan{}, fmt.Errorf("plan %s/%s rate %d minutes: %w", rec.Supplier, rec.Plan, i, err)
			}
			out.Minutes = &mc
		}
		plan.Rates = append(plan.Rates, out)
	}
	return plan, nil
}

// FromPlan converts a plan back into its exchange record.
func FromPlan(p tariff.PricePlan) PlanRecord {
	rec := PlanRecord{
		Supplier:        p.Supplier,
		Plan:            p.Plan,
		Feed:            p.Feed,
		StandingCharges: p.StandingCharges,
		BonusCash:       p.BonusCash,
		Active:          p.Active,
		LastUpdate:      p.LastUpdate,
		Reference:       p.Reference,
		DeemedExport:    p.DeemedExport,
		Rates:           make([]DayRateRecord, 0, len(p.Rates)),
	}
	for _, r := range p.Restrictions {
		rec.Restrictions = append(rec.Restrictions, RestrictionRecord{
			Periodicity: string(r.Periodicity),
			Entries:     r.Entries,
		})
	}
	for _, dr := range p.Rates {
		out := DayRateRecord{
			Hours:     dr.Hours.Samples(),
			StartDate: dr.StartDate,
			EndDate:   dr.EndDate,
		}
		for _, d := range dr.Days {
			out.Days = append(out.Days, int(d))
		}
		if dr.Minutes != nil {
			out.Minutes = dr.Minutes.Segments()
		}
		rec.Rates = append(rec.Rates, out)
	}
	return rec
}
