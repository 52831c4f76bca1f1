// Package timeutil provides timezone utilities for the platform's reference
// timezone, IST (UTC+5:30). All streak day-boundaries and daily bonuses are
// computed against IST midnight so web and mobile callers agree on what
// "today" means. India does not observe DST, so a fixed zone is safe
// year-round. No external dependencies - uses only standard library.
package timeutil

import (
	"time"
)

// IST is the Indian Standard Time zone (UTC+5:30, no DST).
var IST = time.FixedZone("Asia/Kolkata", 5*60*60+30*60)

// Now returns the current time in IST.
func Now() time.Time {
	return time.Now().In(IST)
}

// ToIST converts a time to IST.
func ToIST(t time.Time) time.Time {
	return t.In(IST)
}

// ToUTC converts a time to UTC.
func ToUTC(t time.Time) time.Time {
	return t.UTC()
}

// Date creates a time in IST with the given date.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, IST)
}

// StartOfDay returns the start of the day (00:00:00) in IST.
func StartOfDay(t time.Time) time.Time {
	ist := ToIST(t)
	return time.Date(ist.Year(), ist.Month(), ist.Day(), 0, 0, 0, 0, IST)
}

// EndOfDay returns the end of the day (23:59:59.999999999) in IST.
func EndOfDay(t time.Time) time.Time {
	ist := ToIST(t)
	return time.Date(ist.Year(), ist.Month(), ist.Day(), 23, 59, 59, 999999999, IST)
}

// Today returns the start of the current day in IST.
func Today() time.Time {
	return StartOfDay(Now())
}

// SameDay reports whether two times fall on the same IST calendar day.
func SameDay(a, b time.Time) bool {
	ia, ib := ToIST(a), ToIST(b)
	return ia.Year() == ib.Year() && ia.Month() == ib.Month() && ia.Day() == ib.Day()
}

// DaysBetween returns the number of whole IST calendar days from `from` to
// `to`. The result is negative when `to` is on an earlier day than `from`.
func DaysBetween(from, to time.Time) int {
	start := StartOfDay(from)
	end := StartOfDay(to)
	return int(end.Sub(start).Hours() / 24)
}

// IsToday checks if the given time is today in IST.
func IsToday(t time.Time) bool {
	return SameDay(t, Now())
}

// IsYesterday checks if the given time is yesterday in IST.
func IsYesterday(t time.Time) bool {
	return SameDay(t, Now().AddDate(0, 0, -1))
}

// DaysSince calculates the number of whole days since the given time.
func DaysSince(t time.Time) int {
	return DaysBetween(t, Now())
}

// Common date/time formats.
const (
	// FormatDate is the standard date format (YYYY-MM-DD).
	FormatDate = "2006-01-02"
	// FormatDateTime is the standard datetime format.
	FormatDateTime = "2006-01-02 15:04"
	// FormatDateTimeSeconds includes seconds.
	FormatDateTimeSeconds = "2006-01-02 15:04:05"
)

// FormatDateStr formats a time as a date string (YYYY-MM-DD) in IST.
func FormatDateStr(t time.Time) string {
	return ToIST(t).Format(FormatDate)
}

// ParseDateStr parses a YYYY-MM-DD string as an IST date.
func ParseDateStr(s string) (time.Time, error) {
	return time.ParseInLocation(FormatDate, s, IST)
}
