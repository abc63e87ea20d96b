// Package form turns a submission of the three text inputs into the
// state the page renders.
package form

import (
	"strconv"
	"strings"

	"cloudeng.io/errors"

	"agecalc/internal/datediff"
	"agecalc/internal/ics"
	appLog "agecalc/internal/log"
	"agecalc/internal/model"
)

// Messages shown next to the inputs.
const (
	MsgInvalidDay   = "Must be a valid day"
	MsgInvalidMonth = "Must be a valid month"
	MsgInvalidYear  = "Must be a valid year"
	MsgInvalidDate  = "Must be a valid date"
	MsgFutureDate   = "Must be in the past"
)

var fieldMessages = map[model.Field]string{
	model.FieldDay:   MsgInvalidDay,
	model.FieldMonth: MsgInvalidMonth,
	model.FieldYear:  MsgInvalidYear,
}

// Outcome classifies a submission.
type Outcome string

const (
	OutcomeResult       Outcome = "result"
	OutcomeParseError   Outcome = "parse_error"
	OutcomeInvalidField Outcome = "invalid_field"
	OutcomeInvalidDate  Outcome = "invalid_date"
	OutcomeFutureDate   Outcome = "future_date"
)

// Input holds the raw text of the three inputs.
type Input struct {
	Day   string
	Month string
	Year  string
}

// Empty reports whether nothing was entered at all.
func (in Input) Empty() bool {
	return strings.TrimSpace(in.Day) == "" &&
		strings.TrimSpace(in.Month) == "" &&
		strings.TrimSpace(in.Year) == ""
}

// Calculator is the validate-then-diff step.
type Calculator interface {
	Today() model.CalendarDate
	CalculateAt(today model.CalendarDate, year, month, day int) (entered model.CalendarDate, d model.Duration, err error)
}

// Check parses and range-checks each input on its own. Every offending
// input is reported, as a *datediff.FieldTypeError when it is not a
// number and a *datediff.FieldRangeError when it is out of range,
// including numbers too large for an int.
func (in Input) Check(today model.CalendarDate) (year, month, day int, err error) {
	errs := &errors.M{}
	parse := func(f model.Field, raw string) int {
		v, perr := strconv.Atoi(strings.TrimSpace(raw))
		if errors.Is(perr, strconv.ErrRange) {
			errs.Append(&datediff.FieldRangeError{Field: f, Value: v})
			return 0
		}
		if perr != nil {
			errs.Append(&datediff.FieldTypeError{Field: f, Raw: raw})
			return 0
		}
		errs.Append(datediff.CheckField(f, v, today))
		return v
	}
	day = parse(model.FieldDay, in.Day)
	month = parse(model.FieldMonth, in.Month)
	year = parse(model.FieldYear, in.Year)
	return year, month, day, errs.Err()
}

// Idle is the state before anything has been submitted.
func Idle(today model.CalendarDate) model.FormState {
	return model.FormState{Status: model.StatusIdle, Today: today}
}

// Submit validates in and, when it is acceptable, computes the elapsed
// time to today. Any error skips the computation entirely; the returned
// state then carries the messages to show instead.
func Submit(in Input, calc Calculator) (model.FormState, Outcome) {
	today := calc.Today()
	state := model.FormState{
		Day:   in.Day,
		Month: in.Month,
		Year:  in.Year,
		Today: today,
	}

	year, month, day, err := in.Check(today)
	if err != nil {
		return fieldErrorState(state, err)
	}

	entered, d, err := calc.CalculateAt(today, year, month, day)
	if err != nil {
		return fieldErrorState(state, err)
	}

	padded := d.Padded()
	state.Status = model.StatusResult
	state.Entered = &entered
	state.Duration = &padded
	if next, err := ics.NextBirthday(entered, today); err == nil {
		state.Next = &next
	} else {
		appLog.Error("next birthday failed", err, "entered", entered.String())
	}
	return state, OutcomeResult
}

func fieldErrorState(state model.FormState, err error) (model.FormState, Outcome) {
	state.Status = model.StatusError
	state.FieldErrors = map[model.Field]string{}
	outcome := OutcomeInvalidField
	for _, fe := range datediff.FieldErrors(err) {
		switch e := fe.(type) {
		case *datediff.FieldTypeError:
			state.FieldErrors[e.Field] = fieldMessages[e.Field]
			outcome = OutcomeParseError
		case *datediff.FieldRangeError:
			state.FieldErrors[e.Field] = fieldMessages[e.Field]
		case *datediff.InvalidCalendarDateError:
			state.DateError = MsgInvalidDate
			outcome = OutcomeInvalidDate
		case *datediff.FutureDateError:
			state.DateError = MsgFutureDate
			outcome = OutcomeFutureDate
		}
	}
	if len(state.FieldErrors) == 0 {
		state.FieldErrors = nil
	}
	return state, outcome
}
