// Package period provides calendar bucketing for timeline aggregation:
// period labels and bounds per time unit, default lookback windows, and
// inclusive date-range enumeration.
package period

import (
	"fmt"
	"time"

	"github.com/rotisserie/eris"
)

// DateLayout is the calendar-date wire format used throughout the app.
const DateLayout = "2006-01-02"

// Time units accepted by the timeline aggregator.
const (
	UnitDay     = "day"
	UnitWeek    = "week"
	UnitMonth   = "month"
	UnitQuarter = "quarter"
	UnitYear    = "year"
)

// ValidUnit reports whether unit is a known time unit.
func ValidUnit(unit string) bool {
	switch unit {
	case UnitDay, UnitWeek, UnitMonth, UnitQuarter, UnitYear:
		return true
	}
	return false
}

// ParseDate parses a calendar date in DateLayout.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "invalid date: %s", s)
	}
	return t, nil
}

// Label returns the display label for the period containing date.
// Week labels use the ISO week ("2026 W05"), quarters "2026 Q1".
func Label(date time.Time, unit string) string {
	switch unit {
	case UnitWeek:
		year, week := date.ISOWeek()
		return fmt.Sprintf("%d W%02d", year, week)
	case UnitMonth:
		return date.Format("2006-01")
	case UnitQuarter:
		quarter := (int(date.Month())-1)/3 + 1
		return fmt.Sprintf("%d Q%d", date.Year(), quarter)
	case UnitYear:
		return date.Format("2006")
	default:
		return date.Format(DateLayout)
	}
}

// Bounds returns the first and last calendar date of the period containing
// date. Weeks run Monday through Sunday.
func Bounds(date time.Time, unit string) (time.Time, time.Time) {
	switch unit {
	case UnitWeek:
		daysFromMonday := (int(date.Weekday()) + 6) % 7
		start := date.AddDate(0, 0, -daysFromMonday)
		return start, start.AddDate(0, 0, 6)
	case UnitMonth:
		start := time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, date.Location())
		return start, start.AddDate(0, 1, -1)
	case UnitQuarter:
		startMonth := time.Month((int(date.Month())-1)/3*3 + 1)
		start := time.Date(date.Year(), startMonth, 1, 0, 0, 0, 0, date.Location())
		return start, start.AddDate(0, 3, -1)
	case UnitYear:
		start := time.Date(date.Year(), 1, 1, 0, 0, 0, 0, date.Location())
		return start, time.Date(date.Year(), 12, 31, 0, 0, 0, 0, date.Location())
	default:
		return date, date
	}
}

// DefaultWindow returns the default lookback window for a time unit,
// anchored at now: 30 days for day granularity, 12 weeks for week, 12
// months for month, 2 years for quarter, 5 years for year.
func DefaultWindow(now time.Time, unit string) (time.Time, time.Time) {
	end := now
	var start time.Time
	switch unit {
	case UnitWeek:
		start = end.AddDate(0, 0, -12*7)
	case UnitMonth:
		start = end.AddDate(0, -12, 0)
	case UnitQuarter:
		start = end.AddDate(-2, 0, 0)
	case UnitYear:
		start = end.AddDate(-5, 0, 0)
	default:
		start = end.AddDate(0, 0, -30)
	}
	return start, end
}

// EnumerateDates lists every calendar date from start through end inclusive,
// in DateLayout. Returns an error when end precedes start.
func EnumerateDates(start, end string) ([]string, error) {
	from, err := ParseDate(start)
	if err != nil {
		return nil, err
	}
	to, err := ParseDate(end)
	if err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, eris.Errorf("end date %s precedes start date %s", end, start)
	}

	var dates []string
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d.Format(DateLayout))
	}
	return dates, nil
}
