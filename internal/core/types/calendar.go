package types

import (
	"sync/atomic"
	"time"
)

// Business calendar.
//
// Every "day" the ledger reasons about (expiry, daily numbering, today's
// revenue, date range filters) is a calendar day in one configured location.
// The location defaults to UTC and is set once at startup.

var businessLocation atomic.Pointer[time.Location]

// SetBusinessLocation sets the location used for day boundaries. nil resets to UTC.
func SetBusinessLocation(loc *time.Location) {
	if loc == nil {
		loc = time.UTC
	}
	businessLocation.Store(loc)
}

// BusinessLocation returns the configured location.
func BusinessLocation() *time.Location {
	if loc := businessLocation.Load(); loc != nil {
		return loc
	}
	return time.UTC
}

// BusinessDate returns the business calendar date containing instant t,
// as midnight UTC so it compares directly with CalendarDate values.
func BusinessDate(t time.Time) time.Time {
	y, m, d := t.In(BusinessLocation()).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CalendarDate strips the clock from a date value (expiry, prescription date).
// Date values are stored as midnight UTC.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DayStart returns the instant the business day containing t begins.
func DayStart(t time.Time) time.Time {
	loc := BusinessLocation()
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// MonthStart returns the instant the business month containing t begins.
func MonthStart(t time.Time) time.Time {
	loc := BusinessLocation()
	y, m, _ := t.In(loc).Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, loc)
}

// DaysBetween counts calendar days from date a to date b.
func DaysBetween(a, b time.Time) int {
	return int(CalendarDate(b).Sub(CalendarDate(a)).Hours() / 24)
}
