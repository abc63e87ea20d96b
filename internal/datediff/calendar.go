package datediff

import "agecalc/internal/model"

// Month lengths for common and leap years, January first.
var (
	daysInMonth     = [12]int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}
	daysInMonthLeap = [12]int{31, 29, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}
)

// IsLeap reports whether year is a Gregorian leap year.
func IsLeap(year int) bool {
	return year%4 == 0 && year%100 != 0 || year%400 == 0
}

// DaysInMonth returns the length of month (1-12) in year, or 0 for a
// month outside that range.
func DaysInMonth(year, month int) int {
	if month < 1 || month > 12 {
		return 0
	}
	if IsLeap(year) {
		return daysInMonthLeap[month-1]
	}
	return daysInMonth[month-1]
}

// dayNumber maps a date onto a continuous day count (days since
// 1970-01-01) using the proleptic Gregorian calendar.
func dayNumber(d model.CalendarDate) int {
	y, m := d.Year, d.Month
	if m <= 2 {
		y--
	}
	era := y / 400
	if y < 0 && y%400 != 0 {
		era--
	}
	yoe := y - era*400
	mp := (m + 9) % 12
	doy := (153*mp+2)/5 + d.Day - 1
	doe := yoe*365 + yoe/4 - yoe/100 + doy
	return era*146097 + doe - 719468
}

// DaysBetween returns the number of days from a to b. It is negative when
// b is earlier than a.
func DaysBetween(a, b model.CalendarDate) int {
	return dayNumber(b) - dayNumber(a)
}

// addMonths moves d forward by n months, clamping the day to the length
// of the target month (Jan 31 + 1 month = Feb 28/29).
func addMonths(d model.CalendarDate, n int) model.CalendarDate {
	idx := d.Year*12 + (d.Month - 1) + n
	year, month := idx/12, idx%12+1
	day := d.Day
	if last := DaysInMonth(year, month); day > last {
		day = last
	}
	return model.CalendarDate{Year: year, Month: month, Day: day}
}
