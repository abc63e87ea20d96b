// Package datediff validates entered calendar dates and measures the
// elapsed years, months and days between two of them.
package datediff

import (
	"fmt"
	"time"

	"cloudeng.io/errors"

	"agecalc/internal/model"
)

// Validate checks a year/month/day triple against today and returns it
// as a CalendarDate.
//
// Range problems are reported for every offending field at once, joined
// in an errors.M. Only when each field is in range is the triple checked
// as a whole: a date that does not exist yields an
// InvalidCalendarDateError and one after today a FutureDateError.
func Validate(year, month, day int, today model.CalendarDate) (model.CalendarDate, error) {
	errs := &errors.M{}
	errs.Append(
		CheckField(model.FieldDay, day, today),
		CheckField(model.FieldMonth, month, today),
		CheckField(model.FieldYear, year, today),
	)
	if err := errs.Err(); err != nil {
		return model.CalendarDate{}, err
	}

	// Build the date with normalising arithmetic and read it back; any
	// overflow (31 April -> 1 May) shows up as a mismatch.
	t := time.Date(year, time.Month(month), day, 12, 0, 0, 0, time.UTC)
	entered := model.DateOf(t)
	if entered != (model.CalendarDate{Year: year, Month: month, Day: day}) {
		return model.CalendarDate{}, &InvalidCalendarDateError{Year: year, Month: month, Day: day}
	}
	if entered.After(today) {
		return model.CalendarDate{}, &FutureDateError{Date: entered, Today: today}
	}
	return entered, nil
}

// CheckField checks a single input against the range it accepts: day
// 1-31, month 1-12 and year 1 up to today's year. It returns nil or a
// *FieldRangeError.
func CheckField(f model.Field, v int, today model.CalendarDate) error {
	lo, hi := 1, 0
	switch f {
	case model.FieldDay:
		hi = 31
	case model.FieldMonth:
		hi = 12
	case model.FieldYear:
		hi = today.Year
	default:
		return fmt.Errorf("datediff: %q is not a range-checked field", f)
	}
	if v < lo || v > hi {
		return &FieldRangeError{Field: f, Value: v}
	}
	return nil
}

// Diff returns the calendar time elapsed from entered to now.
//
// Whole months are counted first; if now's day of month is earlier than
// entered's, one month is given back and the remainder counted in days
// from entered advanced by those months (its day clamped to the target
// month's length). Hence 2000-01-31 to 2024-03-01 is 24 years, 1 month
// and 1 day: 2024-02-29 plus one day.
//
// An entered date on or after now yields the zero Duration.
func Diff(entered, now model.CalendarDate) model.Duration {
	if !entered.Before(now) {
		return model.Duration{}
	}
	months := (now.Year-entered.Year)*12 + (now.Month - entered.Month)
	days := now.Day - entered.Day
	if months > 0 && days < 0 {
		months--
		days = DaysBetween(addMonths(entered, months), now)
	}
	return model.Duration{
		Years:  months / 12,
		Months: months % 12,
		Days:   days,
	}
}

// Clock supplies the current date.
type Clock interface {
	Today() model.CalendarDate
}

// Calculator runs Validate and Diff against a clock's notion of today.
type Calculator struct {
	clock Clock
}

// New returns a Calculator reading today from clock.
func New(clock Clock) *Calculator {
	return &Calculator{clock: clock}
}

// Today returns the clock's current date.
func (c *Calculator) Today() model.CalendarDate {
	return c.clock.Today()
}

// Calculate validates the triple and, if it is acceptable, returns the
// duration from it to today. today is returned in all cases so callers
// can report which date the result was measured against.
func (c *Calculator) Calculate(year, month, day int) (entered, today model.CalendarDate, d model.Duration, err error) {
	today = c.clock.Today()
	entered, d, err = c.CalculateAt(today, year, month, day)
	return entered, today, d, err
}

// CalculateAt is Calculate against a today the caller already read, so
// that several checks of one submission agree on the date.
func (c *Calculator) CalculateAt(today model.CalendarDate, year, month, day int) (entered model.CalendarDate, d model.Duration, err error) {
	entered, err = Validate(year, month, day, today)
	if err != nil {
		return model.CalendarDate{}, model.Duration{}, err
	}
	return entered, Diff(entered, today), nil
}
