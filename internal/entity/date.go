package entity

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a calendar date without a time zone.
//
// Date is comparable and implements encoding.TextMarshaler, so it can be used
// as a map key that encodes to JSON as "yyyy-mm-dd".
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar date of t in loc.
func DateOf(t time.Time, loc *time.Location) Date {
	y, m, d := t.In(loc).Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses a date in the yyyy-mm-dd format.
func ParseDate(s string) (Date, error) {
	const op = "entity.ParseDate"

	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%s: %w", op, err)
	}

	return DateOf(t, time.UTC), nil
}

// StartOfDay returns the first instant of d in loc.
func (d Date) StartOfDay(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// AddDays returns d shifted by n days.
func (d Date) AddDays(n int) Date {
	return DateOf(time.Date(d.Year, d.Month, d.Day+n, 0, 0, 0, 0, time.UTC), time.UTC)
}

// Before reports whether d is earlier than other.
func (d Date) Before(other Date) bool {
	return d.StartOfDay(time.UTC).Before(other.StartOfDay(time.UTC))
}

func (d Date) String() string {
	return d.StartOfDay(time.UTC).Format(dateLayout)
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(text []byte) error {
	parsed, err := ParseDate(string(text))
	if err != nil {
		return err
	}

	*d = parsed
	return nil
}
