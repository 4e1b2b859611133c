package utils

import (
	"time"

	"cloud.google.com/go/civil"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// DateOnly keeps the calendar day of t as seen in t's own location and returns it
// as midnight UTC, so stored dates never shift with the server timezone.
func DateOnly(t time.Time) time.Time {
	return civil.DateOf(t).In(time.UTC)
}

// Today returns the current calendar day in loc.
func Today(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return DateOnly(now.In(loc))
}

// ParseDate parses a YYYY-MM-DD string into a date.
func ParseDate(s string) (time.Time, error) {
	d, err := civil.ParseDate(s)
	if err != nil {
		return time.Time{}, err
	}
	return d.In(time.UTC), nil
}

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return civil.DateOf(t).String()
}

// DaysInMonth returns the number of days of the given month.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// EndOfMonth returns the last calendar day of the month containing t.
func EndOfMonth(t time.Time) time.Time {
	d := civil.DateOf(t)
	d.Day = DaysInMonth(d.Year, d.Month)
	return d.In(time.UTC)
}

// AddMonthsClamped moves t by n calendar months. When the day does not exist in
// the target month the result snaps to that month's last day (Jan 31 + 1 = Feb 28).
func AddMonthsClamped(t time.Time, n int) time.Time {
	d := civil.DateOf(t)
	first := time.Date(d.Year, d.Month+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	day := d.Day
	if last := DaysInMonth(first.Year(), first.Month()); day > last {
		day = last
	}
	return civil.Date{Year: first.Year(), Month: first.Month(), Day: day}.In(time.UTC)
}

// MonthlyDueDate returns the n-th monthly due date: the last day of the n-th month
// after origination.
func MonthlyDueDate(origination time.Time, n int) time.Time {
	d := civil.DateOf(origination)
	first := time.Date(d.Year, d.Month+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	return EndOfMonth(first)
}

// FirstSemiMonthlyDue returns the first 15th/end-of-month boundary on or after the
// origination day.
func FirstSemiMonthlyDue(origination time.Time) time.Time {
	d := civil.DateOf(origination)
	if d.Day <= 15 {
		d.Day = 15
		return d.In(time.UTC)
	}
	return EndOfMonth(origination)
}

// NextSemiMonthlyDue alternates 15th -> end of month -> 15th of the next month.
func NextSemiMonthlyDue(due time.Time) time.Time {
	d := civil.DateOf(due)
	if d.Day == 15 {
		return EndOfMonth(due)
	}
	first := time.Date(d.Year, d.Month+1, 1, 0, 0, 0, 0, time.UTC)
	return civil.Date{Year: first.Year(), Month: first.Month(), Day: 15}.In(time.UTC)
}

// DaysBetween returns the number of calendar days from `from` to `to`.
func DaysBetween(from, to time.Time) int {
	return civil.DateOf(to).DaysSince(civil.DateOf(from))
}

// SameMonth reports whether a and b fall in the same calendar month.
func SameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}

// MonthsBetween counts whole calendar months from `from` to `to`.
func MonthsBetween(from, to time.Time) int {
	months := (to.Year()-from.Year())*12 + int(to.Month()-from.Month())
	if AddMonthsClamped(from, months).After(DateOnly(to)) {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}
