package tariff

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ReferenceYear is the non-leap year used to turn month/day pairs into a
// day-of-year without depending on a calendar year.
const ReferenceYear = 2001

// DaysPerYear is the number of days in ReferenceYear.
const DaysPerYear = 365

// Default date bounds applied to imported day rates without explicit dates.
const (
	DefaultStartDate = "01/01"
	DefaultEndDate   = "12/31"
)

// ErrBadDate is returned for dates that are not a valid MM/DD.
var ErrBadDate = errors.New("bad month/day")

// AllWeekdays lists Sunday..Saturday.
var AllWeekdays = []time.Weekday{
	time.Sunday, time.Monday, time.Tuesday, time.Wednesday,
	time.Thursday, time.Friday, time.Saturday,
}

// MonthDay is a yearless calendar date.
type MonthDay struct {
	Month time.Month
	Day   int
}

// ParseMonthDay parses "MM/DD". Feb 29 is accepted and clamped to Feb 28.
func ParseMonthDay(s string) (MonthDay, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 2 {
		return MonthDay{}, fmt.Errorf("%w: %q", ErrBadDate, s)
	}
	m, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return MonthDay{}, fmt.Errorf("%w: %q", ErrBadDate, s)
	}
	d, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return MonthDay{}, fmt.Errorf("%w: %q", ErrBadDate, s)
	}
	if m < 1 || m > 12 || d < 1 {
		return MonthDay{}, fmt.Errorf("%w: %q", ErrBadDate, s)
	}
	month := time.Month(m)
	if month == time.February && d == 29 {
		d = 28
	}
	if d > daysIn(month) {
		return MonthDay{}, fmt.Errorf("%w: %q", ErrBadDate, s)
	}
	return MonthDay{Month: month, Day: d}, nil
}

// DayOfYear returns the 1..365 position of md in ReferenceYear.
func (md MonthDay) DayOfYear() int {
	return time.Date(ReferenceYear, md.Month, md.Day, 0, 0, 0, 0, time.UTC).YearDay()
}

func (md MonthDay) String() string {
	return fmt.Sprintf("%02d/%02d", int(md.Month), md.Day)
}

// DayOfYear maps any calendar date onto ReferenceYear, clamping Feb 29.
func DayOfYear(t time.Time) int {
	d := t.Day()
	if t.Month() == time.February && d == 29 {
		d = 28
	}
	return MonthDay{Month: t.Month(), Day: d}.DayOfYear()
}

func daysIn(m time.Month) int {
	return time.Date(ReferenceYear, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DayRate binds an hourly curve to a set of weekdays and a non-wrapping
// date range. Minutes, when set, overrides the curve derived from Hours.
type DayRate struct {
	Days      []time.Weekday
	StartDate string
	EndDate   string
	Hours     HourlyCurve
	Minutes   *RateCurve
}

// MinuteCurve returns the minute-resolution curve for the day rate.
func (d DayRate) MinuteCurve() RateCurve {
	if d.Minutes != nil {
		return *d.Minutes
	}
	return d.Hours.MinuteCurve()
}

// Span returns the start and end day-of-year of the date range.
func (d DayRate) Span() (start, end int, err error) {
	s, err := ParseMonthDay(d.StartDate)
	if err != nil {
		return 0, 0, err
	}
	e, err := ParseMonthDay(d.EndDate)
	if err != nil {
		return 0, 0, err
	}
	return s.DayOfYear(), e.DayOfYear(), nil
}

// Covers reports whether the day rate applies to weekday.
func (d DayRate) Covers(weekday time.Weekday) bool {
	for _, w := range d.Days {
		if w == weekday {
			return true
		}
	}
	return false
}

// dateRange is the literal (start, end) text pair day rates are grouped by.
type dateRange struct {
	start string
	end   string
}

func (d DayRate) dateRange() dateRange {
	return dateRange{start: d.StartDate, end: d.EndDate}
}
