package datediff

import (
	"fmt"

	"cloudeng.io/errors"

	"agecalc/internal/model"
)

// Sentinels matched by the typed errors below via errors.Is.
var (
	ErrInvalidDay   = errors.New("invalid day")
	ErrInvalidMonth = errors.New("invalid month")
	ErrInvalidYear  = errors.New("invalid year")
	ErrInvalidDate  = errors.New("invalid date")
	ErrFutureDate   = errors.New("date is in the future")
)

// FieldError is implemented by every validation error and names the
// input it should be shown next to.
type FieldError interface {
	error
	InputField() model.Field
}

func sentinelFor(f model.Field) error {
	switch f {
	case model.FieldDay:
		return ErrInvalidDay
	case model.FieldMonth:
		return ErrInvalidMonth
	case model.FieldYear:
		return ErrInvalidYear
	default:
		return ErrInvalidDate
	}
}

// FieldRangeError reports a number outside the range its field accepts.
type FieldRangeError struct {
	Field model.Field
	Value int
}

func (e *FieldRangeError) Error() string {
	return fmt.Sprintf("%v: %d out of range", sentinelFor(e.Field), e.Value)
}

func (e *FieldRangeError) Is(target error) bool { return target == sentinelFor(e.Field) }

func (e *FieldRangeError) InputField() model.Field { return e.Field }

// FieldTypeError reports input that is not a number at all.
type FieldTypeError struct {
	Field model.Field
	Raw   string
}

func (e *FieldTypeError) Error() string {
	return fmt.Sprintf("%v: %q is not a number", sentinelFor(e.Field), e.Raw)
}

func (e *FieldTypeError) Is(target error) bool { return target == sentinelFor(e.Field) }

func (e *FieldTypeError) InputField() model.Field { return e.Field }

// InvalidCalendarDateError reports fields that are individually in range
// but do not name a real day, such as 31 April.
type InvalidCalendarDateError struct {
	Year, Month, Day int
}

func (e *InvalidCalendarDateError) Error() string {
	return fmt.Sprintf("%v: %04d-%02d-%02d does not exist", ErrInvalidDate, e.Year, e.Month, e.Day)
}

func (e *InvalidCalendarDateError) Is(target error) bool { return target == ErrInvalidDate }

func (e *InvalidCalendarDateError) InputField() model.Field { return model.FieldDate }

// FutureDateError reports a real date that lies after today.
type FutureDateError struct {
	Date  model.CalendarDate
	Today model.CalendarDate
}

func (e *FutureDateError) Error() string {
	return fmt.Sprintf("%v: %v is after %v", ErrFutureDate, e.Date, e.Today)
}

func (e *FutureDateError) Is(target error) bool { return target == ErrFutureDate }

func (e *FutureDateError) InputField() model.Field { return model.FieldDate }

// FieldErrors flattens err, which may be a single FieldError or a
// multi-error holding several, into its field errors. Errors that do not
// carry a field are skipped.
func FieldErrors(err error) []FieldError {
	if err == nil {
		return nil
	}
	if multi, ok := err.(interface{ Unwrap() []error }); ok {
		var out []FieldError
		for _, e := range multi.Unwrap() {
			out = append(out, FieldErrors(e)...)
		}
		return out
	}
	var fe FieldError
	if errors.As(err, &fe) {
		return []FieldError{fe}
	}
	return nil
}
