package ics

import (
	"errors"
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"agecalc/internal/datediff"
	"agecalc/internal/model"
)

// MaxUpcoming caps how many anniversaries Upcoming lists.
const MaxUpcoming = 10

// birthdayRule is the yearly recurrence of birth, anchored at its
// anniversary in the year before today. rrule-go stops iterating long
// before it reaches today from an early birth year, so the birth date
// itself cannot be the anchor. A 29 February birth date recurs on the
// last day of February so that common years still get an anniversary
// (the 28th).
func birthdayRule(birth, today model.CalendarDate) (*rrule.RRule, error) {
	opt := rrule.ROption{
		Freq:       rrule.YEARLY,
		Dtstart:    anniversary(birth, today.Year-1).Time(time.UTC),
		Bymonth:    []int{birth.Month},
		Bymonthday: []int{birthdayMonthDay(birth)},
	}
	r, err := rrule.NewRRule(opt)
	if err != nil {
		return nil, fmt.Errorf("birthday rule for %v: %w", birth, err)
	}
	return r, nil
}

// anniversary is birth moved to year, with the day clamped to the month.
func anniversary(birth model.CalendarDate, year int) model.CalendarDate {
	day := birth.Day
	if n := datediff.DaysInMonth(year, birth.Month); day > n {
		day = n
	}
	return model.CalendarDate{Year: year, Month: birth.Month, Day: day}
}

func birthdayOn(birth, today, d model.CalendarDate) model.Birthday {
	return model.Birthday{
		Date:     d,
		Age:      d.Year - birth.Year,
		DaysLeft: datediff.DaysBetween(today, d),
		Observed: d.Day != birth.Day,
	}
}

func birthdayMonthDay(birth model.CalendarDate) int {
	if birth.Month == 2 && birth.Day == 29 {
		return -1
	}
	return birth.Day
}

// rruleValue is the RRULE property value matching birthdayRule.
func rruleValue(birth model.CalendarDate) string {
	return fmt.Sprintf("FREQ=YEARLY;BYMONTH=%d;BYMONTHDAY=%d", birth.Month, birthdayMonthDay(birth))
}

// NextBirthday returns the first anniversary of birth on or after today,
// the age turned on it and how many days away it is.
func NextBirthday(birth, today model.CalendarDate) (model.Birthday, error) {
	r, err := birthdayRule(birth, today)
	if err != nil {
		return model.Birthday{}, err
	}
	next := r.After(today.Time(time.UTC), true)
	if next.IsZero() {
		return model.Birthday{}, errors.New("birthday rule produced no occurrence")
	}
	return birthdayOn(birth, today, model.DateOf(next)), nil
}

// Upcoming returns the next n anniversaries of birth on or after today.
// n is capped at MaxUpcoming.
func Upcoming(birth, today model.CalendarDate, n int) ([]model.Birthday, error) {
	if n <= 0 {
		return nil, nil
	}
	n = min(n, MaxUpcoming)
	r, err := birthdayRule(birth, today)
	if err != nil {
		return nil, err
	}
	start := today.Time(time.UTC)
	out := make([]model.Birthday, 0, n)
	// One anniversary a year, so n+1 years always holds n of them.
	for _, t := range r.Between(start, start.AddDate(n+1, 0, 0), true) {
		if len(out) == n {
			break
		}
		out = append(out, birthdayOn(birth, today, model.DateOf(t)))
	}
	return out, nil
}
