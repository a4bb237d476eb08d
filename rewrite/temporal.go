package rewrite

import "time"

// cycleDays is the length of a THIS_CYCLE / PREVIOUS_CYCLE window. See
// DESIGN.md: the range set names a cycle without defining it, so it is
// fixed here as a 28-day window ending at the reference day.
const cycleDays = 28

// Resolve turns the filter into a concrete [start, end] day range against
// a reference clock. Explicit dates win over named ranges; a filter with
// neither defaults to today, the same default an absent FOR clause gets.
func (t *TemporalFilter) Resolve(now time.Time) (time.Time, time.Time) {
	today := now.Truncate(24 * time.Hour)
	if t == nil {
		return today, today
	}
	if t.Start != nil {
		start := t.Start.Truncate(24 * time.Hour)
		end := start
		if t.End != nil {
			end = t.End.Truncate(24 * time.Hour)
		}
		return start, end
	}
	if !t.HasNamed {
		return today, today
	}
	switch t.Named {
	case Yesterday:
		y := today.AddDate(0, 0, -1)
		return y, y
	case ThisMonth:
		return time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location()), today
	case LastMonth:
		first := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
		return first.AddDate(0, -1, 0), first.AddDate(0, 0, -1)
	case ThisCycle:
		return today.AddDate(0, 0, -(cycleDays - 1)), today
	case PreviousCycle:
		return today.AddDate(0, 0, -(2*cycleDays - 1)), today.AddDate(0, 0, -cycleDays)
	default:
		return today, today
	}
}
