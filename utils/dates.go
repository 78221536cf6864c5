package utils

import (
	"fmt"
	"strings"
	"time"
)

func BeginningOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// DaysBetween counts whole calendar days from start to end. Both ends are
// truncated to midnight in end's location, so daylight-saving shifts do not
// produce off-by-one results.
func DaysBetween(start, end time.Time) int {
	loc := end.Location()
	s := BeginningOfDay(start.In(loc))
	e := BeginningOfDay(end)
	sy, sm, sd := s.Date()
	ey, em, ed := e.Date()
	su := time.Date(sy, sm, sd, 0, 0, 0, 0, time.UTC)
	eu := time.Date(ey, em, ed, 0, 0, 0, 0, time.UTC)
	return int(eu.Sub(su).Hours() / 24)
}

// ParseServiceDate accepts a plain calendar date (2006-01-02) interpreted in
// loc, or a full RFC3339 timestamp.
func ParseServiceDate(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("tarih boş olamaz")
	}
	if t, err := time.ParseInLocation("2006-01-02", value, loc); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.In(loc), nil
	}
	return time.Time{}, fmt.Errorf("geçersiz tarih: %q", value)
}

// FormatDate renders t as dd.mm.yyyy, the way dates are shown to staff.
func FormatDate(t time.Time) string {
	return t.Format("02.01.2006")
}

var turkishWeekdays = [...]string{"Paz", "Pzt", "Sal", "Çar", "Per", "Cum", "Cmt"}

// ShortWeekday returns the abbreviated Turkish day name.
func ShortWeekday(t time.Time) string {
	return turkishWeekdays[t.Weekday()]
}
