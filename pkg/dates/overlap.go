// Package dates builds the date predicates used by event search.
//
// An event matches a search window when its [startAt, endAt] span overlaps
// the window. Matching on overlap rather than on the start date keeps
// multi-day events that are already running (a four week market, a summer
// festival) in the results until they actually end.
package dates

import (
	"fmt"
	"strings"
	"time"

	"github.com/rubiojr/eventa/pkg/core"
)

// Overlap is a predicate value: an event is included when
// startAt <= StartAtLTE (if set) and endAt >= EndAtGTE (if set).
type Overlap struct {
	StartAtLTE *time.Time
	EndAtGTE   *time.Time
}

// BuildOverlap returns the predicate for events still relevant at now.
// The effective start is the later of now and searchStart, so events that
// have fully ended never match, while events in progress do.
func BuildOverlap(now time.Time, searchStart, searchEnd *time.Time) Overlap {
	effectiveStart := now
	if searchStart != nil && searchStart.After(now) {
		effectiveStart = *searchStart
	}

	o := Overlap{EndAtGTE: &effectiveStart}
	if searchEnd != nil {
		end := *searchEnd
		o.StartAtLTE = &end
	}
	return o
}

// BuildRangeOverlap returns the symmetric two-sided predicate for an explicit
// [start, end] window, independent of the current time.
func BuildRangeOverlap(start, end time.Time) Overlap {
	return Overlap{StartAtLTE: &end, EndAtGTE: &start}
}

// Includes evaluates the predicate for an event span.
func (o Overlap) Includes(startAt, endAt time.Time) bool {
	if o.StartAtLTE != nil && startAt.After(*o.StartAtLTE) {
		return false
	}
	if o.EndAtGTE != nil && endAt.Before(*o.EndAtGTE) {
		return false
	}
	return true
}

// SQL renders the predicate against the given start and end column
// expressions. Timestamps are bound as fixed-width UTC strings so the
// comparison is lexical. An empty clause means no restriction.
func (o Overlap) SQL(startCol, endCol string) (string, []any) {
	var conds []string
	var args []any
	if o.EndAtGTE != nil {
		conds = append(conds, fmt.Sprintf("%s >= ?", endCol))
		args = append(args, core.FormatTimestamp(*o.EndAtGTE))
	}
	if o.StartAtLTE != nil {
		conds = append(conds, fmt.Sprintf("%s <= ?", startCol))
		args = append(args, core.FormatTimestamp(*o.StartAtLTE))
	}
	return strings.Join(conds, " AND "), args
}
