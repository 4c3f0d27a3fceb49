// Package treasury projects the fund's cash position over a future window.
//
// A run is three pure steps: the Aggregator collects the flows that land in
// the window, Project walks the balance forward day by day under a scenario,
// and the Evaluator turns the resulting series into risk metrics and alerts.
package treasury

import (
	"time"

	"github.com/Dan9191/gmah-treasury/internal/models"
	"github.com/shopspring/decimal"
)

// Window is the period a forecast covers: days 0..PeriodDays from Start.
type Window struct {
	Start          time.Time
	PeriodDays     int
	OpeningBalance decimal.Decimal
}

// NewWindow builds a window starting at the UTC day of start.
func NewWindow(start time.Time, periodDays int, opening decimal.Decimal) Window {
	return Window{Start: Day(start), PeriodDays: periodDays, OpeningBalance: opening}
}

// Validate rejects period lengths outside [1,365].
func (w Window) Validate() error {
	if w.PeriodDays < models.MinPeriodDays || w.PeriodDays > models.MaxPeriodDays {
		return &models.ValidationError{Field: "periodDays", Reason: "must be between 1 and 365"}
	}
	if w.Start.IsZero() {
		return &models.ValidationError{Field: "forecastDate", Reason: "is required"}
	}
	return nil
}

// End is the last day included in the window.
func (w Window) End() time.Time {
	return w.Start.AddDate(0, 0, w.PeriodDays)
}

// Date returns the calendar date of day d.
func (w Window) Date(d int) time.Time {
	return w.Start.AddDate(0, 0, d)
}

// DayOf returns the day index of t relative to Start. Dates before Start are negative.
func (w Window) DayOf(t time.Time) int {
	return int(Day(t).Sub(w.Start).Hours() / 24)
}

// Points is the number of balances in the series, day 0 included.
func (w Window) Points() int {
	return w.PeriodDays + 1
}

// Day truncates t to midnight UTC.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
