package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar-date wire format used by the frontend.
const DateLayout = "2006-01-02"

// Date is a calendar date without time of day. It travels as "YYYY-MM-DD"
// in JSON and is stored in DATE columns.
type Date struct {
	time.Time
}

// NewDate returns the given calendar day in UTC.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a "YYYY-MM-DD" string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format(DateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := parseDateOrTimestamp(s, time.RFC3339)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// parseDateOrTimestamp accepts "YYYY-MM-DD" or a complete timestamp in one
// of the given layouts and keeps its calendar day.
func parseDateOrTimestamp(s string, layouts ...string) (Date, error) {
	if parsed, err := ParseDate(s); err == nil {
		return parsed, nil
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return NewDate(t.Year(), t.Month(), t.Day()), nil
		}
	}
	return Date{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD or an RFC 3339 timestamp", s)
}

// Value implements driver.Valuer.
func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.Time, nil
}

// Scan implements sql.Scanner.
func (d *Date) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*d = Date{}
	case time.Time:
		*d = NewDate(v.Year(), v.Month(), v.Day())
	case string:
		return d.scanString(v)
	case []byte:
		return d.scanString(string(v))
	default:
		return fmt.Errorf("Date: cannot scan %T", value)
	}
	return nil
}

// sqliteTimestamp is how the sqlite driver renders stored time values.
const sqliteTimestamp = "2006-01-02 15:04:05.999999999-07:00"

func (d *Date) scanString(s string) error {
	parsed, err := parseDateOrTimestamp(s, time.RFC3339Nano, sqliteTimestamp)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
