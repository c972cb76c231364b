package tariff

import "time"

var (
	weekdays = []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}
	weekend  = []time.Weekday{time.Saturday, time.Sunday}
)

func dayRate(start, end string, days []time.Weekday, price float64) DayRate {
	return DayRate{Days: days, StartDate: start, EndDate: end, Hours: FlatHourlyCurve(price)}
}

func flatPlan(price float64) PricePlan {
	return PricePlan{
		ID:       "flat",
		Supplier: "Acme Energy",
		Plan:     "Flat",
		Rates:    []DayRate{dayRate("01/01", "12/31", AllWeekdays, price)},
	}
}

func at(year int, month time.Month, day, hour, min int) time.Time {
	return time.Date(year, month, day, hour, min, 0, 0, time.UTC)
}
