package domain

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar-day format used on the wire and in query strings.
const DateLayout = "2006-01-02"

// MaxRangeDays caps how many calendar days one range may span.
const MaxRangeDays = 731

// ParseDate parses a YYYY-MM-DD string into UTC midnight.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, ValidationError{Field: "date", Msg: "expected YYYY-MM-DD", Err: err}
	}
	return t, nil
}

// Day truncates t to its calendar day in UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func FormatDate(t time.Time) string { return Day(t).Format(DateLayout) }

// DateRange is an inclusive span of calendar days.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange parses both ends and rejects ranges that end before they start.
func NewDateRange(start, end string) (DateRange, error) {
	if start == "" || end == "" {
		return DateRange{}, ValidationError{Field: "start,end", Msg: "start and end are required"}
	}
	s, err := ParseDate(start)
	if err != nil {
		return DateRange{}, err
	}
	e, err := ParseDate(end)
	if err != nil {
		return DateRange{}, err
	}
	r := DateRange{Start: s, End: e}
	if err := r.Validate(); err != nil {
		return DateRange{}, err
	}
	return r, nil
}

// Validate rejects reversed ranges and ranges longer than MaxRangeDays.
func (r DateRange) Validate() error {
	start, end := Day(r.Start), Day(r.End)
	if end.Before(start) {
		return ValidationError{Field: "end", Msg: "end must not be before start"}
	}
	if r.Len() > MaxRangeDays {
		return ValidationError{Field: "end", Msg: fmt.Sprintf("range must not exceed %d days", MaxRangeDays)}
	}
	return nil
}

// Len counts the calendar days in the range, both ends included.
func (r DateRange) Len() int {
	start, end := Day(r.Start), Day(r.End)
	if end.Before(start) {
		return 0
	}
	return int(end.Sub(start).Hours()/24) + 1
}

// Days lists every calendar day in the range, both ends included.
func (r DateRange) Days() []time.Time {
	start, end := Day(r.Start), Day(r.End)
	if end.Before(start) {
		return nil
	}
	out := make([]time.Time, 0, r.Len())
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

func (r DateRange) Contains(t time.Time) bool {
	d := Day(t)
	return !d.Before(Day(r.Start)) && !d.After(Day(r.End))
}
