package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "agecalc/internal/log"
	"agecalc/internal/model"
)

// ImportedEvent is a date-carrying VEVENT read from an uploaded calendar.
type ImportedEvent struct {
	UID     string
	Summary string
	Date    model.CalendarDate
	Yearly  bool
}

// ParseBirthdays reads every VEVENT of an ICS payload and returns the
// calendar date each starts on. Timed events contribute the date part of
// their DTSTART; events without a usable DTSTART are logged and skipped.
func ParseBirthdays(body []byte) ([]ImportedEvent, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ics: parse: %w", err)
	}

	events := make([]ImportedEvent, 0)
	for _, ve := range cal.Events() {
		ev, perr := parseVEvent(ve)
		if perr != nil {
			appLog.Warn("ics vevent skipped", "err", perr)
			continue
		}
		events = append(events, ev)
	}
	if len(events) == 0 {
		return nil, errors.New("ics: no event with a start date")
	}
	return events, nil
}

func parseVEvent(ve *ical.VEvent) (ImportedEvent, error) {
	var out ImportedEvent

	if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
		out.UID = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil || dtStart.Value == "" {
		return out, fmt.Errorf("event %q has no DTSTART", out.UID)
	}
	t, err := parseICSTime(dtStart.Value)
	if err != nil {
		return out, fmt.Errorf("event %q DTSTART: %w", out.UID, err)
	}
	out.Date = model.DateOf(t)

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		out.Yearly = strings.Contains(strings.ToUpper(p.Value), "FREQ=YEARLY")
	}
	return out, nil
}

// parseICSTime parses the basic DATE and DATE-TIME forms. Only the
// calendar date matters here, so floating and zoned times are both read
// as written.
func parseICSTime(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	switch {
	case v == "":
		return time.Time{}, errors.New("empty time value")
	case strings.HasSuffix(v, "Z"):
		return time.Parse("20060102T150405Z", v)
	case strings.Contains(v, "T"):
		return time.Parse("20060102T150405", v)
	default:
		return time.Parse("20060102", v)
	}
}
