package tariff

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// DeemedExportFactor scales the peak observed export into a daily deemed
// export estimate.
const DeemedExportFactor = 0.8148

// Direction says whether a reading was drawn from or sent to the grid.
type Direction string

const (
	Import Direction = "import"
	Export Direction = "export"
)

// ParseDirection accepts "import"/"export" in any case.
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case Import:
		return Import, nil
	case Export:
		return Export, nil
	}
	return "", fmt.Errorf("unknown reading direction %q", s)
}

// UsageReading is the energy measured over one interval starting at Time.
type UsageReading struct {
	Time      time.Time `json:"time"`
	KWh       float64   `json:"kwh"`
	Direction Direction `json:"direction"`
}

// Window is the half-open time range [From, To) being costed.
type Window struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.From) && t.Before(w.To)
}

// Days returns the number of calendar days the window spans, counting a
// partial day as a whole one, at least 1. Days are stepped on From's wall
// clock, so a 23h or 25h daylight saving day still counts once.
func (w Window) Days() int {
	n := 0
	for d := w.From; d.Before(w.To); d = w.From.AddDate(0, 0, n) {
		n++
	}
	return max(n, 1)
}

// WindowFor returns the smallest window containing every reading, with To
// moved forward to the next midnight.
func WindowFor(readings []UsageReading) Window {
	if len(readings) == 0 {
		return Window{}
	}
	from, to := readings[0].Time, readings[0].Time
	for _, r := range readings[1:] {
		if r.Time.Before(from) {
			from = r.Time
		}
		if r.Time.After(to) {
			to = r.Time
		}
	}
	from = time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	to = time.Date(to.Year(), to.Month(), to.Day()+1, 0, 0, 0, 0, to.Location())
	return Window{From: from, To: to}
}

// Scenario describes the installation a usage series comes from.
type Scenario struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	HasInverter bool   `json:"has_inverter"`
}

// Costing is the result of pricing one usage window against one plan.
// Amounts are in minor currency units.
type Costing struct {
	ID       string  `json:"id,omitempty"`
	Scenario string  `json:"scenario"`
	PlanID   string  `json:"plan_id,omitempty"`
	Supplier string  `json:"supplier"`
	Plan     string  `json:"plan"`
	Days     int     `json:"days"`
	Buy      float64 `json:"buy"`
	Sell     float64 `json:"sell"`
	Net      float64 `json:"net"`
	Bonus    float64 `json:"bonus"`
}

// Bucket is the energy priced at one unit price.
type Bucket struct {
	Price float64 `json:"price"`
	KWh   float64 `json:"kwh"`
}

// SubTotals is a histogram of kWh per distinct unit price.
type SubTotals struct {
	kwh map[float64]float64
}

// KWh returns the energy priced at price.
func (s SubTotals) KWh(price float64) float64 { return s.kwh[price] }

// Len is the number of distinct prices.
func (s SubTotals) Len() int { return len(s.kwh) }

// Buckets returns the histogram ordered by price.
func (s SubTotals) Buckets() []Bucket {
	out := make([]Bucket, 0, len(s.kwh))
	for p, k := range s.kwh {
		out = append(out, Bucket{Price: p, KWh: k})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	return out
}

// TotalKWh sums every bucket.
func (s SubTotals) TotalKWh() float64 {
	total := 0.0
	for _, k := range s.kwh {
		total += k
	}
	return total
}

// restrictionUsage tracks accumulated kWh per restriction and rate label
// within the current period.
type restrictionUsage struct {
	period int
	kwh    float64
}

type restrictionTracker struct {
	usage []map[string]*restrictionUsage
}

func newRestrictionTracker(rs Restrictions) *restrictionTracker {
	t := &restrictionTracker{usage: make([]map[string]*restrictionUsage, len(rs))}
	for i := range rs {
		t.usage[i] = make(map[string]*restrictionUsage)
	}
	return t
}

// add records kwh against restriction i and returns the usage already
// accumulated in the period before this reading.
func (t *restrictionTracker) add(i int, label string, period int, kwh float64) float64 {
	u, ok := t.usage[i][label]
	if !ok || u.period != period {
		u = &restrictionUsage{period: period}
		t.usage[i][label] = u
	}
	before := u.kwh
	u.kwh += kwh
	return before
}

// Cost prices readings inside window against plan using index. Imports are
// priced from the index, with restriction thresholds applied in the same
// pass; exports use the plan feed-in rate or the deemed export estimate.
func Cost(plan PricePlan, index *LookupIndex, readings []UsageReading, window Window, scenario Scenario) (Costing, SubTotals) {
	days := window.Days()
	sub := make(map[float64]float64)
	tracker := newRestrictionTracker(plan.Restrictions)
	deemed := plan.DeemedExport && scenario.HasInverter

	var buy, sell, maxExport float64
	for _, r := range readings {
		if !window.Contains(r.Time) {
			continue
		}
		switch r.Direction {
		case Import:
			price := index.Rate(r.Time)
			label := RateLabel(price)
			over, revised := 0.0, price
			applied := false
			for i, rs := range plan.Restrictions {
				th, ok := rs.Entries[label]
				if !ok {
					continue
				}
				before := tracker.add(i, label, rs.Periodicity.period(r.Time), r.KWh)
				excess := math.Min(r.KWh, math.Max(0, before+r.KWh-th.KWh))
				if !applied && excess > 0 {
					over, revised, applied = excess, th.RevisedPrice, true
				}
			}
			base := r.KWh - over
			buy += base*price + over*revised
			if base != 0 || over == 0 {
				sub[price] += base
			}
			if over > 0 {
				sub[revised] += over
			}
		case Export:
			if deemed {
				maxExport = math.Max(maxExport, r.KWh)
				continue
			}
			sell += r.KWh * plan.Feed
		}
	}
	if deemed {
		sell = maxExport * DeemedExportFactor * float64(days) * plan.Feed
	}

	net := (buy - sell) + plan.StandingCharges*100*(float64(days)/DaysPerYear)
	return Costing{
		Scenario: scenario.ID,
		PlanID:   plan.ID,
		Supplier: plan.Supplier,
		Plan:     plan.Plan,
		Days:     days,
		Buy:      buy,
		Sell:     sell,
		Net:      net,
		Bonus:    plan.BonusCash,
	}, SubTotals{kwh: sub}
}
