package scheduling

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidRule is returned for weekly rules that cannot be evaluated.
var ErrInvalidRule = errors.New("invalid weekly availability rule")

// WeeklyRule is a recurring open window on one weekday, expressed in the
// mentor's local wall-clock minutes since midnight.
type WeeklyRule struct {
	Day         time.Weekday
	StartMinute int
	EndMinute   int
}

// ParseClock converts an "HH:MM" wall-clock string to minutes since midnight.
func ParseClock(value string) (int, error) {
	if len(value) != 5 || value[2] != ':' {
		return 0, fmt.Errorf("%w: %q is not HH:MM", ErrInvalidRule, value)
	}
	hours, ok := twoDigits(value[0:2])
	if !ok || hours > 23 {
		return 0, fmt.Errorf("%w: %q has an invalid hour", ErrInvalidRule, value)
	}
	minutes, ok := twoDigits(value[3:5])
	if !ok || minutes > 59 {
		return 0, fmt.Errorf("%w: %q has an invalid minute", ErrInvalidRule, value)
	}
	return hours*60 + minutes, nil
}

// FormatClock renders minutes since midnight as "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

func twoDigits(s string) (int, bool) {
	if s[0] < '0' || s[0] > '9' || s[1] < '0' || s[1] > '9' {
		return 0, false
	}
	return int(s[0]-'0')*10 + int(s[1]-'0'), true
}

// NewWeeklyRule validates and builds a rule. day uses 0=Sunday..6=Saturday.
func NewWeeklyRule(day int, start, end string) (WeeklyRule, error) {
	if day < 0 || day > 6 {
		return WeeklyRule{}, fmt.Errorf("%w: day_of_week %d out of range", ErrInvalidRule, day)
	}
	startMinute, err := ParseClock(start)
	if err != nil {
		return WeeklyRule{}, err
	}
	endMinute, err := ParseClock(end)
	if err != nil {
		return WeeklyRule{}, err
	}
	if startMinute >= endMinute {
		return WeeklyRule{}, fmt.Errorf("%w: start %s must be before end %s", ErrInvalidRule, start, end)
	}
	return WeeklyRule{Day: time.Weekday(day), StartMinute: startMinute, EndMinute: endMinute}, nil
}

// LocalClock converts an absolute instant to the weekday and wall-clock
// position (seconds since local midnight) in loc.
func LocalClock(t time.Time, loc *time.Location) (time.Weekday, int) {
	local := t.In(loc)
	return local.Weekday(), local.Hour()*3600 + local.Minute()*60 + local.Second()
}

// Evaluator answers coverage questions for one mentor's rule set in the
// mentor's timezone.
type Evaluator struct {
	loc   *time.Location
	byDay map[time.Weekday][]WeeklyRule
}

// NewEvaluator groups rules by weekday. A nil location means UTC.
func NewEvaluator(rules []WeeklyRule, loc *time.Location) *Evaluator {
	if loc == nil {
		loc = time.UTC
	}
	byDay := make(map[time.Weekday][]WeeklyRule, 7)
	for _, r := range rules {
		byDay[r.Day] = append(byDay[r.Day], r)
	}
	return &Evaluator{loc: loc, byDay: byDay}
}

// Location returns the timezone the evaluator works in.
func (e *Evaluator) Location() *time.Location {
	return e.loc
}

// Covers reports whether the instant falls inside any open window.
func (e *Evaluator) Covers(t time.Time) bool {
	day, sec := LocalClock(t, e.loc)
	for _, r := range e.byDay[day] {
		if sec >= r.StartMinute*60 && sec < r.EndMinute*60 {
			return true
		}
	}
	return false
}

// CoversInterval reports whether the whole interval sits inside a single
// rule window on a single local calendar day.
func (e *Evaluator) CoversInterval(iv Interval) bool {
	if !iv.Valid() {
		return false
	}
	start := iv.Start.In(e.loc)
	end := iv.End.In(e.loc)
	sy, sm, sd := start.Date()
	ey, em, ed := end.Date()
	if sy != ey || sm != em || sd != ed {
		return false
	}
	_, startSec := LocalClock(start, e.loc)
	_, endSec := LocalClock(end, e.loc)
	for _, r := range e.byDay[start.Weekday()] {
		if startSec >= r.StartMinute*60 && endSec <= r.EndMinute*60 {
			return true
		}
	}
	return false
}
