package tariff

import (
	"fmt"
	"time"

	"github.com/samber/lo"
)

// ValidationResult is the outcome of checking a plan's day rates.
type ValidationResult int

const (
	Valid ValidationResult = iota
	NoDayRates
	BadDateFormat
	EndBeforeStart
	DuplicateDays
	MissingDays
	OverlappingDateRanges
	MissingDates
	MissingMinutes
	NameInUse
)

var validationNames = [...]string{
	Valid:                 "Valid",
	NoDayRates:            "NoDayRates",
	BadDateFormat:         "BadDateFormat",
	EndBeforeStart:        "EndBeforeStart",
	DuplicateDays:         "DuplicateDays",
	MissingDays:           "MissingDays",
	OverlappingDateRanges: "OverlappingDateRanges",
	MissingDates:          "MissingDates",
	MissingMinutes:        "MissingMinutes",
	NameInUse:             "NameInUse",
}

var validationReasons = [...]string{
	Valid:                 "Plan is valid",
	NoDayRates:            "No day rates are defined",
	BadDateFormat:         "A date is not in MM/DD format",
	EndBeforeStart:        "An end date is before its start date",
	DuplicateDays:         "A day of the week appears twice in the same date range",
	MissingDays:           "A date range does not cover every day of the week",
	OverlappingDateRanges: "Date ranges overlap",
	MissingDates:          "The date ranges do not cover the whole year",
	MissingMinutes:        "A day rate does not cover the whole day",
	NameInUse:             "The plan name is already in use for this supplier",
}

// ValidationResults lists every result in code order.
func ValidationResults() []ValidationResult {
	out := make([]ValidationResult, len(validationNames))
	for i := range out {
		out[i] = ValidationResult(i)
	}
	return out
}

// Code returns the stable integer code.
func (r ValidationResult) Code() int { return int(r) }

func (r ValidationResult) String() string {
	if r < 0 || int(r) >= len(validationNames) {
		return fmt.Sprintf("ValidationResult(%d)", int(r))
	}
	return validationNames[r]
}

// Reason returns the fixed human-readable message for r.
func (r ValidationResult) Reason() string {
	if r < 0 || int(r) >= len(validationReasons) {
		return "Unknown validation result"
	}
	return validationReasons[r]
}

// Err returns nil for Valid and a *ValidationError otherwise.
func (r ValidationResult) Err() error {
	if r == Valid {
		return nil
	}
	return &ValidationError{Result: r}
}

// ValidationError carries a failed ValidationResult through error returns.
type ValidationError struct {
	Result ValidationResult
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid plan: %s", e.Result.Reason())
}

type rateSpan struct {
	start, end int
}

// Validate checks that rates partition day-of-year × weekday × minute-of-day
// exactly once. Checks run in a fixed order and the first failure is returned.
func Validate(rates []DayRate) ValidationResult {
	if len(rates) == 0 {
		return NoDayRates
	}

	spans := make(map[dateRange]rateSpan, len(rates))
	for _, dr := range rates {
		s, err := ParseMonthDay(dr.StartDate)
		if err != nil {
			return BadDateFormat
		}
		e, err := ParseMonthDay(dr.EndDate)
		if err != nil {
			return BadDateFormat
		}
		if e.DayOfYear() < s.DayOfYear() {
			return EndBeforeStart
		}
		spans[dr.dateRange()] = rateSpan{start: s.DayOfYear(), end: e.DayOfYear()}
	}

	groups := lo.GroupBy(rates, func(dr DayRate) dateRange { return dr.dateRange() })
	keys := lo.Uniq(lo.Map(rates, func(dr DayRate, _ int) dateRange { return dr.dateRange() }))

	for _, k := range keys {
		seen := make(map[time.Weekday]bool, 7)
		for _, dr := range groups[k] {
			for _, w := range dr.Days {
				if seen[w] {
					return DuplicateDays
				}
				seen[w] = true
			}
		}
	}

	for _, k := range keys {
		days := lo.FlatMap(groups[k], func(dr DayRate, _ int) []time.Weekday { return dr.Days })
		if !lo.Every(days, AllWeekdays) {
			return MissingDays
		}
	}

	var claimed [DaysPerYear + 1]bool
	for _, k := range keys {
		sp := spans[k]
		for d := sp.start; d <= sp.end; d++ {
			if claimed[d] {
				return OverlappingDateRanges
			}
			claimed[d] = true
		}
	}
	for d := 1; d <= DaysPerYear; d++ {
		if !claimed[d] {
			return MissingDates
		}
	}

	for _, dr := range rates {
		if dr.MinuteCurve().MaxEnd() < LastMinute {
			return MissingMinutes
		}
	}
	return Valid
}

// CheckNameUsage reports NameInUse when another plan in existing shares the
// candidate's identity key under a different ID.
func CheckNameUsage(candidate PricePlan, existing []PricePlan) ValidationResult {
	for _, p := range existing {
		if p.SameIdentity(candidate) && p.ID != candidate.ID {
			return NameInUse
		}
	}
	return Valid
}

// ValidatePlan runs Validate on the plan's rates and then CheckNameUsage.
func ValidatePlan(plan PricePlan, existing []PricePlan) ValidationResult {
	if res := Validate(plan.Rates); res != Valid {
		return res
	}
	return CheckNameUsage(plan, existing)
}
