package scheduling

import "time"

const secondsPerDay = 24 * 60 * 60

// AlignToGrid returns the first instant at or after t whose local wall-clock
// time is a whole multiple of step measured from local midnight.
func AlignToGrid(t time.Time, loc *time.Location, step time.Duration) time.Time {
	if step <= 0 {
		return t
	}
	if loc == nil {
		loc = time.UTC
	}
	stepSec := int(step / time.Second)
	if stepSec <= 0 {
		return t
	}

	cur := t
	// A wall time that lands in a DST gap is shifted by time.Date and may
	// fall off the grid again, so re-align a bounded number of times.
	for i := 0; i < 4; i++ {
		local := cur.In(loc)
		_, sec := LocalClock(local, loc)
		if sec%stepSec == 0 && local.Nanosecond() == 0 {
			return cur
		}
		next := (sec/stepSec + 1) * stepSec
		if next >= secondsPerDay {
			// Steps that do not divide a day restart at the next local midnight.
			cur = nextLocalMidnight(local, loc)
			continue
		}
		y, m, d := local.Date()
		aligned := time.Date(y, m, d, 0, 0, next, 0, loc)
		if aligned.Before(cur) {
			// Ambiguous wall time after a fall-back transition resolved to the
			// earlier occurrence; move to the occurrence in cur's offset.
			_, alignedOffset := aligned.Zone()
			_, curOffset := local.Zone()
			aligned = aligned.Add(time.Duration(alignedOffset-curOffset) * time.Second)
		}
		cur = aligned
	}
	return cur
}

func nextLocalMidnight(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, loc)
}

// Generate walks [from, to) on a step grid anchored to local midnight of the
// evaluator's timezone and returns every duration-long slot that is covered
// by a weekly rule and free of all busy intervals, in chronological order.
func Generate(eval *Evaluator, busy []Interval, from, to time.Time, duration, step time.Duration) []Interval {
	slots := make([]Interval, 0)
	if eval == nil || duration <= 0 || step <= 0 {
		return slots
	}
	if to.Sub(from) < step {
		return slots
	}

	for cursor := from; cursor.Before(to); {
		start := AlignToGrid(cursor, eval.Location(), step)
		if !start.Before(to) {
			break
		}
		end := start.Add(duration)
		if end.After(to) {
			break
		}
		candidate := Interval{Start: start, End: end}
		if eval.CoversInterval(candidate) && FreeOf(candidate, busy) {
			slots = append(slots, candidate)
		}
		cursor = start.Add(step)
		if midnight := nextLocalMidnight(start, eval.Location()); cursor.After(midnight) {
			cursor = midnight
		}
	}
	return slots
}

// Available applies the same coverage and busy tests as Generate to a single
// interval, without grid alignment.
func Available(eval *Evaluator, busy []Interval, slot Interval) bool {
	if eval == nil || !slot.Valid() {
		return false
	}
	return eval.CoversInterval(slot) && FreeOf(slot, busy)
}
