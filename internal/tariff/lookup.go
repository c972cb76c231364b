package tariff

import (
	"fmt"
	"time"
)

// LookupIndex answers "what is the unit price at this moment" for a plan
// whose day rates passed Validate. It is read-only once built and safe to
// share between goroutines.
type LookupIndex struct {
	days *OrderedMap[int, *OrderedMap[time.Weekday, RateCurve]]
}

// NewLookupIndex compiles rates into a LookupIndex. Building an index from
// day rates that do not validate is a programming error and panics.
func NewLookupIndex(rates []DayRate) *LookupIndex {
	if res := Validate(rates); res != Valid {
		panic(fmt.Sprintf("tariff: lookup index built from invalid day rates: %s", res))
	}
	days := NewOrderedMap[int, *OrderedMap[time.Weekday, RateCurve]]()
	for _, dr := range rates {
		start, _, _ := dr.Span()
		inner, ok := days.Get(start)
		if !ok {
			inner = NewOrderedMap[time.Weekday, RateCurve]()
			days.Put(start, inner)
		}
		curve := dr.MinuteCurve()
		for _, w := range dr.Days {
			inner.Put(w, curve)
		}
	}
	return &LookupIndex{days: days}
}

// Rate returns the unit price in effect at t (wall clock of t's location).
func (x *LookupIndex) Rate(t time.Time) float64 {
	return x.RateAt(DayOfYear(t), t.Hour()*60+t.Minute(), t.Weekday())
}

// RateAt returns the unit price for a day-of-year, minute-of-day and weekday.
func (x *LookupIndex) RateAt(dayOfYear, minute int, weekday time.Weekday) float64 {
	group, ok := x.days.Predecessor(dayOfYear)
	if !ok {
		panic(fmt.Sprintf("tariff: no day rate group at or before day %d", dayOfYear))
	}
	curve, ok := group.Value.Predecessor(weekday)
	if !ok {
		panic(fmt.Sprintf("tariff: no day rate for weekday %s from day %d", weekday, group.Key))
	}
	return curve.Value.Lookup(minute)
}

// Groups returns the start day-of-year of every date-range group.
func (x *LookupIndex) Groups() []int {
	return x.days.Keys()
}
