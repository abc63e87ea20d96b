package model

import (
	"fmt"
	"time"
)

// CalendarDate is a year/month/day triple. Values handed out by
// datediff.Validate always denote a real Gregorian date.
type CalendarDate struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) CalendarDate {
	y, m, d := t.Date()
	return CalendarDate{Year: y, Month: int(m), Day: d}
}

// Time returns midnight of the date in loc. A nil loc means UTC.
func (d CalendarDate) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, loc)
}

// Before reports whether d is strictly earlier than o.
func (d CalendarDate) Before(o CalendarDate) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

// After reports whether d is strictly later than o.
func (d CalendarDate) After(o CalendarDate) bool {
	return o.Before(d)
}

func (d CalendarDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Duration is elapsed calendar time. Months stay within 0..11 and Days
// within the length of the month being borrowed from.
type Duration struct {
	Years  int `json:"years"`
	Months int `json:"months"`
	Days   int `json:"days"`
}

// PaddedDuration is a Duration rendered for display, each unit at least
// two characters wide.
type PaddedDuration struct {
	Years  string `json:"years"`
	Months string `json:"months"`
	Days   string `json:"days"`
}

// Padded renders every unit zero-padded to two digits (5 -> "05").
func (d Duration) Padded() PaddedDuration {
	return PaddedDuration{
		Years:  Pad(d.Years),
		Months: Pad(d.Months),
		Days:   Pad(d.Days),
	}
}

func (d Duration) String() string {
	p := d.Padded()
	return p.Years + " years " + p.Months + " months " + p.Days + " days"
}

// IsZero reports whether all units are zero.
func (d Duration) IsZero() bool {
	return d == Duration{}
}

// Pad renders n as a decimal string with a leading zero below 10.
func Pad(n int) string {
	return fmt.Sprintf("%02d", n)
}

// Field names one of the form inputs. FieldDate tags errors about the
// date as a whole rather than any single input.
type Field string

const (
	FieldDay   Field = "day"
	FieldMonth Field = "month"
	FieldYear  Field = "year"
	FieldDate  Field = "date"
)

// Birthday describes an anniversary of a birth date. Observed is set when
// the birth day does not exist that year (29 February) and the
// anniversary falls on the last day of the month instead.
type Birthday struct {
	Date     CalendarDate `json:"date"`
	Age      int          `json:"age"`
	DaysLeft int          `json:"days_left"`
	Observed bool         `json:"observed,omitempty"`
}

// Status is the visible state of the form.
type Status string

const (
	StatusIdle   Status = "idle"
	StatusError  Status = "error"
	StatusResult Status = "result"
)

// FormState is everything the page shows after a submission. A new value
// is built for every submission; nothing mutates an existing one.
type FormState struct {
	Status Status `json:"status"`

	// Raw inputs echoed back into the form fields.
	Day   string `json:"-"`
	Month string `json:"-"`
	Year  string `json:"-"`

	// FieldErrors holds one message per offending input.
	FieldErrors map[Field]string `json:"field_errors,omitempty"`
	// DateError is set when the fields are fine individually but the date
	// as a whole is not acceptable.
	DateError string `json:"date_error,omitempty"`

	Entered  *CalendarDate   `json:"entered,omitempty"`
	Today    CalendarDate    `json:"today"`
	Duration *PaddedDuration `json:"duration,omitempty"`
	Next     *Birthday       `json:"next_birthday,omitempty"`
	Upcoming []Birthday      `json:"upcoming,omitempty"`
}

// FieldError returns the message for f, if any.
func (s FormState) FieldError(f Field) string {
	return s.FieldErrors[f]
}

// Display returns the padded duration or "--" placeholders when there is
// no result to show.
func (s FormState) Display() PaddedDuration {
	if s.Duration == nil {
		return PaddedDuration{Years: "--", Months: "--", Days: "--"}
	}
	return *s.Duration
}
