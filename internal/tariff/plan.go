package tariff

import (
	"fmt"
	"reflect"
	"strconv"
	"time"
)

// Periodicity is the accumulation period of a Restriction.
type Periodicity string

const (
	PeriodAnnual    Periodicity = "annual"
	PeriodMonthly   Periodicity = "monthly"
	PeriodBimonthly Periodicity = "bimonthly"
)

// Valid reports whether p is a known periodicity.
func (p Periodicity) Valid() bool {
	switch p {
	case PeriodAnnual, PeriodMonthly, PeriodBimonthly:
		return true
	}
	return false
}

// period returns a number identifying the billing period containing t.
func (p Periodicity) period(t time.Time) int {
	switch p {
	case PeriodMonthly:
		return t.Year()*12 + int(t.Month()) - 1
	case PeriodBimonthly:
		return t.Year()*6 + (int(t.Month())-1)/2
	default:
		return t.Year()
	}
}

// Threshold reprices usage of one rate once KWh have been used in a period.
type Threshold struct {
	KWh          float64 `json:"kwh"`
	RevisedPrice float64 `json:"price"`
}

// Restriction maps rate labels to thresholds for one periodicity.
type Restriction struct {
	Periodicity Periodicity          `json:"periodicity"`
	Entries     map[string]Threshold `json:"entries"`
}

// Restrictions is applied in order; the first crossed threshold wins.
type Restrictions []Restriction

// RateLabel is the textual key of a unit price used by restrictions and
// breakdown reports.
func RateLabel(price float64) string {
	return strconv.FormatFloat(price, 'g', -1, 64)
}

// PlanKey identifies a plan by supplier and plan name (case-sensitive).
type PlanKey struct {
	Supplier string
	Plan     string
}

func (k PlanKey) String() string { return fmt.Sprintf("%s/%s", k.Supplier, k.Plan) }

// PricePlan is a supplier tariff.
type PricePlan struct {
	ID              string
	Supplier        string
	Plan            string
	Feed            float64
	StandingCharges float64
	BonusCash       float64
	DeemedExport    bool
	Restrictions    Restrictions
	Rates           []DayRate
	LastUpdate      string
	Reference       string
	Active          bool
}

// IdentityKey is the supplier+plan identity used for duplicate detection.
// Two plans with the same key are the same plan regardless of other fields.
func (p PricePlan) IdentityKey() PlanKey {
	return PlanKey{Supplier: p.Supplier, Plan: p.Plan}
}

// SameIdentity reports whether p and other share an identity key.
func (p PricePlan) SameIdentity(other PricePlan) bool {
	return p.IdentityKey() == other.IdentityKey()
}

// StructuralEqual reports whether every field of p and other is equal.
func (p PricePlan) StructuralEqual(other PricePlan) bool {
	return reflect.DeepEqual(p, other)
}
