// Package ics turns birth dates into yearly iCalendar events and back,
// and works out upcoming anniversaries.
package ics

import (
	"errors"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"agecalc/internal/model"
)

const productID = "-//agecalc//birthday export//EN"

// uidNamespace scopes the name-based UUIDs of exported events.
var uidNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://agecalc.invalid/birthday"))

// EventUID returns the UID used for birth's event. It depends only on
// the date and the summary, so re-exporting replaces rather than
// duplicates the event in a subscribing calendar.
func EventUID(birth model.CalendarDate, summary string) string {
	return uuid.NewSHA1(uidNamespace, []byte(birth.String()+"|"+summary)).String() + "@agecalc"
}

// ExportBirthday renders a VCALENDAR holding one all-day event on birth
// that repeats every year. stamp becomes the DTSTAMP.
func ExportBirthday(birth model.CalendarDate, summary string, stamp time.Time) ([]byte, error) {
	if summary == "" {
		return nil, errors.New("ics: summary is empty")
	}
	start := birth.Time(time.UTC)

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	cal.SetXWRCalName(summary)

	ev := cal.AddEvent(EventUID(birth, summary))
	ev.SetDtStampTime(stamp.UTC())
	ev.SetSummary(summary)
	ev.SetDescription("Born " + birth.String())
	ev.SetAllDayStartAt(start)
	ev.SetAllDayEndAt(start.AddDate(0, 0, 1))
	ev.AddProperty(ical.ComponentPropertyRrule, rruleValue(birth))

	return []byte(cal.Serialize()), nil
}
