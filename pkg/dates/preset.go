package dates

import (
	"fmt"
	"time"
)

// Date range presets accepted by search filters.
const (
	RangeToday   = "today"
	RangeWeekend = "weekend"
	RangeMonth   = "month"
	RangeAll     = "all"
)

// Preset translates a named range into concrete search bounds relative to
// now, in now's location. A nil end means "no upper bound".
//
//   - today:   now until the end of the current day
//   - weekend: the coming Saturday 00:00 (or now, during a weekend) until
//     Sunday 23:59:59.999
//   - month:   now until the end of the current calendar month
//   - all, "": now with no upper bound
func Preset(name string, now time.Time) (start time.Time, end *time.Time, err error) {
	switch name {
	case RangeAll, "":
		return now, nil, nil
	case RangeToday:
		e := endOfDay(now)
		return now, &e, nil
	case RangeWeekend:
		s, e := weekend(now)
		return s, &e, nil
	case RangeMonth:
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		e := first.AddDate(0, 1, 0).Add(-time.Millisecond)
		return now, &e, nil
	}
	return time.Time{}, nil, fmt.Errorf("unknown date range %q", name)
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(999*time.Millisecond), t.Location())
}

func weekend(now time.Time) (time.Time, time.Time) {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch now.Weekday() {
	case time.Saturday:
		return now, endOfDay(day.AddDate(0, 0, 1))
	case time.Sunday:
		return now, endOfDay(day)
	}
	saturday := day.AddDate(0, 0, int(time.Saturday-now.Weekday()))
	return saturday, endOfDay(saturday.AddDate(0, 0, 1))
}
