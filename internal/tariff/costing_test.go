package tariff

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func halfHourly(start time.Time, n int, kwh float64, dir Direction) []UsageReading {
	out := make([]UsageReading, n)
	for i := range out {
		out[i] = UsageReading{Time: start.Add(time.Duration(i) * 30 * time.Minute), KWh: kwh, Direction: dir}
	}
	return out
}

var oneDay = Window{From: at(2024, time.January, 1, 0, 0), To: at(2024, time.January, 2, 0, 0)}

func TestCost_FlatRateOneDay(t *testing.T) {
	plan := flatPlan(20)
	require.Equal(t, Valid, Validate(plan.Rates))

	readings := halfHourly(oneDay.From, 48, 1, Import)
	c, sub := Cost(plan, NewLookupIndex(plan.Rates), readings, oneDay, Scenario{ID: "home"})

	assert.Equal(t, 960.0, c.Buy)
	assert.Equal(t, 0.0, c.Sell)
	assert.Equal(t, 960.0, c.Net)
	assert.Equal(t, 1, c.Days)
	assert.Equal(t, "home", c.Scenario)
	assert.Equal(t, "Acme Energy", c.Supplier)
	assert.Equal(t, []Bucket{{Price: 20, KWh: 48}}, sub.Buckets())
	assert.Equal(t, 48.0, sub.TotalKWh())
}

func TestCost_WindowFiltersReadings(t *testing.T) {
	plan := flatPlan(10)
	readings := halfHourly(oneDay.From.Add(-2*time.Hour), 52, 1, Import)

	c, sub := Cost(plan, NewLookupIndex(plan.Rates), readings, oneDay, Scenario{})
	assert.Equal(t, 480.0, c.Buy)
	assert.Equal(t, 48.0, sub.KWh(10))
}

func TestCost_TimeOfUseBreakdown(t *testing.T) {
	peak, err := NewHourlyCurve(touPrices)
	require.NoError(t, err)
	plan := PricePlan{Supplier: "Acme Energy", Plan: "TOU", Rates: []DayRate{{Days: AllWeekdays, StartDate: "01/01", EndDate: "12/31", Hours: peak}}}

	readings := halfHourly(oneDay.From, 48, 0.5, Import)
	c, sub := Cost(plan, NewLookupIndex(plan.Rates), readings, oneDay, Scenario{})

	// hours per price: 10 -> 0,1,6,7,23 ; 8 -> 2..5 ; 20 -> 8..16,19..22 ; 30 -> 17,18
	assert.Equal(t, 5.0, sub.KWh(10))
	assert.Equal(t, 4.0, sub.KWh(8))
	assert.Equal(t, 13.0, sub.KWh(20))
	assert.Equal(t, 2.0, sub.KWh(30))
	assert.Equal(t, 4, sub.Len())
	assert.Equal(t, 5*10.0+4*8+13*20+2*30, c.Buy)
}

func TestCost_ExportAtFeedRate(t *testing.T) {
	plan := flatPlan(20)
	plan.Feed = 4
	readings := append(halfHourly(oneDay.From, 4, 1, Import), halfHourly(oneDay.From.Add(12*time.Hour), 3, 2, Export)...)

	c, sub := Cost(plan, NewLookupIndex(plan.Rates), readings, oneDay, Scenario{HasInverter: true})
	assert.Equal(t, 80.0, c.Buy)
	assert.Equal(t, 24.0, c.Sell)
	assert.Equal(t, 56.0, c.Net)
	assert.Equal(t, 4.0, sub.TotalKWh(), "exports are not part of the breakdown")
}

func TestCost_DeemedExport(t *testing.T) {
	plan := flatPlan(20)
	plan.Feed = 5
	plan.DeemedExport = true
	window := Window{From: oneDay.From, To: oneDay.From.Add(48 * time.Hour)}
	readings := []UsageReading{
		{Time: oneDay.From.Add(10 * time.Hour), KWh: 0.5, Direction: Export},
		{Time: oneDay.From.Add(11 * time.Hour), KWh: 2.0, Direction: Export},
		{Time: oneDay.From.Add(30 * time.Hour), KWh: 1.0, Direction: Export},
		{Time: oneDay.From.Add(99 * time.Hour), KWh: 9.0, Direction: Export},
	}

	c, _ := Cost(plan, NewLookupIndex(plan.Rates), readings, window, Scenario{HasInverter: true})
	assert.Equal(t, 2, c.Days)
	assert.InDelta(t, 2.0*DeemedExportFactor*2*5, c.Sell, 1e-9)

	// without an inverter the readings are priced one by one
	c, _ = Cost(plan, NewLookupIndex(plan.Rates), readings, window, Scenario{HasInverter: false})
	assert.InDelta(t, 3.5*5, c.Sell, 1e-9)
}

func TestCost_StandingCharge(t *testing.T) {
	plan := flatPlan(20)
	plan.StandingCharges = 365
	plan.BonusCash = 50

	c, _ := Cost(plan, NewLookupIndex(plan.Rates), nil, oneDay, Scenario{})
	assert.InDelta(t, 100.0, c.Net, 1e-9)
	assert.Equal(t, 50.0, c.Bonus, "bonus is reported, not netted")

	week := Window{From: oneDay.From, To: oneDay.From.Add(7 * 24 * time.Hour)}
	c, _ = Cost(plan, NewLookupIndex(plan.Rates), nil, week, Scenario{})
	assert.InDelta(t, 700.0, c.Net, 1e-9)
}

func TestCost_RestrictionRepricesAfterThreshold(t *testing.T) {
	plan := flatPlan(20)
	plan.Restrictions = Restrictions{{
		Periodicity: PeriodMonthly,
		Entries:     map[string]Threshold{"20": {KWh: 10, RevisedPrice: 15}},
	}}
	window := Window{From: at(2024, time.January, 1, 0, 0), To: at(2024, time.March, 1, 0, 0)}

	readings := []UsageReading{
		{Time: at(2024, time.January, 1, 1, 0), KWh: 4, Direction: Import},
		{Time: at(2024, time.January, 1, 2, 0), KWh: 4, Direction: Import},
		{Time: at(2024, time.January, 1, 3, 0), KWh: 4, Direction: Import}, // crosses: 2 at 20, 2 at 15
		{Time: at(2024, time.January, 9, 3, 0), KWh: 1, Direction: Import}, // over: 15
		{Time: at(2024, time.February, 1, 3, 0), KWh: 1, Direction: Import}, // new month: 20
	}

	c, sub := Cost(plan, NewLookupIndex(plan.Rates), readings, window, Scenario{})
	assert.Equal(t, 4*20.0+4*20+2*20+2*15+1*15+1*20, c.Buy)
	assert.Equal(t, 11.0, sub.KWh(20))
	assert.Equal(t, 3.0, sub.KWh(15))
}

func TestCost_RestrictionPeriods(t *testing.T) {
	jan := at(2024, time.January, 15, 0, 0)
	feb := at(2024, time.February, 15, 0, 0)
	mar := at(2024, time.March, 15, 0, 0)
	nextJan := at(2025, time.January, 15, 0, 0)

	assert.Equal(t, PeriodBimonthly.period(jan), PeriodBimonthly.period(feb))
	assert.NotEqual(t, PeriodBimonthly.period(feb), PeriodBimonthly.period(mar))
	assert.NotEqual(t, PeriodMonthly.period(jan), PeriodMonthly.period(feb))
	assert.Equal(t, PeriodAnnual.period(jan), PeriodAnnual.period(mar))
	assert.NotEqual(t, PeriodAnnual.period(jan), PeriodAnnual.period(nextJan))
	assert.True(t, PeriodBimonthly.Valid())
	assert.False(t, Periodicity("weekly").Valid())
}

func TestCost_RestrictionIgnoresOtherRates(t *testing.T) {
	plan := flatPlan(20)
	plan.Restrictions = Restrictions{{
		Periodicity: PeriodAnnual,
		Entries:     map[string]Threshold{"30": {KWh: 0, RevisedPrice: 1}},
	}}
	c, _ := Cost(plan, NewLookupIndex(plan.Rates), halfHourly(oneDay.From, 2, 1, Import), oneDay, Scenario{})
	assert.Equal(t, 40.0, c.Buy)
}

func TestWindow(t *testing.T) {
	assert.True(t, oneDay.Contains(oneDay.From))
	assert.False(t, oneDay.Contains(oneDay.To))
	assert.Equal(t, 1, Window{}.Days())
	assert.Equal(t, 2, Window{From: oneDay.From, To: oneDay.From.Add(25 * time.Hour)}.Days())

	w := WindowFor([]UsageReading{
		{Time: at(2024, time.March, 3, 10, 30)},
		{Time: at(2024, time.March, 1, 23, 30)},
	})
	assert.Equal(t, at(2024, time.March, 1, 0, 0), w.From)
	assert.Equal(t, at(2024, time.March, 4, 0, 0), w.To)
	assert.Equal(t, 3, w.Days())
	assert.Equal(t, Window{}, WindowFor(nil))
}

func TestWindow_DaylightSaving(t *testing.T) {
	dublin, err := time.LoadLocation("Europe/Dublin")
	require.NoError(t, err)

	// Clocks go back on 27 October 2024, so the day lasts 25 hours.
	autumn := Window{
		From: time.Date(2024, time.October, 27, 0, 0, 0, 0, dublin),
		To:   time.Date(2024, time.October, 28, 0, 0, 0, 0, dublin),
	}
	require.Equal(t, 25*time.Hour, autumn.To.Sub(autumn.From))
	assert.Equal(t, 1, autumn.Days())

	// Clocks go forward on 31 March 2024, a 23 hour day.
	spring := Window{
		From: time.Date(2024, time.March, 31, 0, 0, 0, 0, dublin),
		To:   time.Date(2024, time.April, 1, 0, 0, 0, 0, dublin),
	}
	assert.Equal(t, 1, spring.Days())

	w := WindowFor([]UsageReading{{Time: time.Date(2024, time.October, 27, 12, 0, 0, 0, dublin)}})
	assert.Equal(t, autumn, w)
	assert.Equal(t, 1, w.Days())

	plan := flatPlan(10)
	plan.StandingCharges = 365
	c, _ := Cost(plan, NewLookupIndex(plan.Rates), nil, autumn, Scenario{})
	assert.Equal(t, 1, c.Days)
	assert.InDelta(t, 100.0, c.Net, 1e-9)
}

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection(" Export ")
	require.NoError(t, err)
	assert.Equal(t, Export, d)
	_, err = ParseDirection("sideways")
	assert.Error(t, err)
}
