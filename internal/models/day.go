package models

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// DayLayout is the provider's timestamp layout for calendar days.
const DayLayout = "2006-01-02T15:04:05"

var dayLayouts = []string{DayLayout, "2006-01-02", time.RFC3339Nano}

// Day is a calendar date without time of day or time zone.
type Day struct {
	civil.Date
}

// NewDay returns the Day for the given year, month and day.
func NewDay(year int, month time.Month, day int) Day {
	return Day{civil.Date{Year: year, Month: month, Day: day}}
}

// DayOf returns the calendar day of t in t's location.
func DayOf(t time.Time) Day {
	return Day{civil.DateOf(t)}
}

// ParseDay parses a date string. Timestamps keep the date of their own
// representation, the offset is never applied.
func ParseDay(s string) (Day, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dayLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return DayOf(t), nil
		}
	}
	return Day{}, fmt.Errorf("parsing day %q: unsupported format", s)
}

// AddDays returns the day n days after d.
func (d Day) AddDays(n int) Day {
	return Day{d.Date.AddDays(n)}
}

// DaysSince returns the signed number of days from s to d.
func (d Day) DaysSince(s Day) int {
	return d.Date.DaysSince(s.Date)
}

// Before reports whether d is before o.
func (d Day) Before(o Day) bool {
	return d.Date.Before(o.Date)
}

// After reports whether d is after o.
func (d Day) After(o Day) bool {
	return d.Date.After(o.Date)
}

// String returns the day as YYYY-MM-DD.
func (d Day) String() string {
	return d.Date.String()
}

// MarshalJSON encodes the day in the provider layout, at midnight.
func (d Day) MarshalJSON() ([]byte, error) {
	if d.Date == (civil.Date{}) {
		return []byte("null"), nil
	}
	return []byte(fmt.Sprintf("%q", d.Date.In(time.UTC).Format(DayLayout))), nil
}

// UnmarshalJSON accepts every layout ParseDay does.
func (d *Day) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), "\"")
	if s == "null" || s == "" {
		*d = Day{}
		return nil
	}
	parsed, err := ParseDay(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
