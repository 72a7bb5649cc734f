package parse

import (
	"fmt"
	"time"
)

// DateLayout is the date-only form accepted for range bounds.
const DateLayout = "2006-01-02"

// DateBound reads an RFC 3339 timestamp or a YYYY-MM-DD date in loc. A
// date-only upper bound extends to the last millisecond of that day.
func DateBound(raw string, loc *time.Location, upper bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(DateLayout, raw, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: use YYYY-MM-DD or RFC 3339", raw)
	}
	if upper {
		t = t.AddDate(0, 0, 1).Add(-time.Millisecond)
	}
	return t, nil
}

// DateRange parses both bounds and checks their order.
func DateRange(rawStart, rawEnd string, loc *time.Location) (time.Time, time.Time, error) {
	start, err := DateBound(rawStart, loc, false)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := DateBound(rawEnd, loc, true)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("end %s is before start %s", rawEnd, rawStart)
	}
	return start, end, nil
}
