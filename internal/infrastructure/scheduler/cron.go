package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CronExpression is a parsed five-field cron spec
// (minute hour day-of-month month day-of-week), used for the daily
// streak reminder. Each field holds its allowed values as a bit set.
//
//	"0 20 * * *"  - every day at 20:00
//	"*/15 * * * *" - every quarter hour
//	"0 8 * * 1"   - Mondays at 08:00
type CronExpression struct {
	raw    string
	minute uint64 // bits 0-59
	hour   uint64 // bits 0-23
	dom    uint64 // bits 1-31
	month  uint64 // bits 1-12
	dow    uint64 // bits 0-6, Sunday = 0
}

// ParseCronExpression parses a five-field cron spec. Fields accept
// wildcards, single values, ranges, comma lists and /step suffixes.
func ParseCronExpression(expr string) (*CronExpression, error) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return nil, fmt.Errorf("cron %q: want 5 fields, got %d", expr, len(fields))
	}

	ce := &CronExpression{raw: expr}
	specs := []struct {
		name   string
		lo, hi int
		dst    *uint64
	}{
		{"minute", 0, 59, &ce.minute},
		{"hour", 0, 23, &ce.hour},
		{"day-of-month", 1, 31, &ce.dom},
		{"month", 1, 12, &ce.month},
		{"day-of-week", 0, 6, &ce.dow},
	}
	for i, spec := range specs {
		set, err := parseCronField(fields[i], spec.lo, spec.hi)
		if err != nil {
			return nil, fmt.Errorf("cron %q: %s field: %w", expr, spec.name, err)
		}
		*spec.dst = set
	}
	return ce, nil
}

// parseCronField turns one field into a bit set of allowed values.
// A field is a comma list of atoms; an atom is "*", "a" or "a-b",
// each optionally followed by "/step". A bare value with a step runs
// from that value to the field's upper bound.
func parseCronField(field string, lo, hi int) (uint64, error) {
	var set uint64

	for _, atom := range strings.Split(field, ",") {
		step := 1
		if slash := strings.IndexByte(atom, '/'); slash >= 0 {
			n, err := strconv.Atoi(atom[slash+1:])
			if err != nil || n < 1 {
				return 0, fmt.Errorf("bad step %q", atom[slash+1:])
			}
			step = n
			atom = atom[:slash]
		}

		start, end := lo, hi
		switch {
		case atom == "*":
			// full range
		case strings.Contains(atom, "-"):
			bounds := strings.SplitN(atom, "-", 2)
			a, errA := strconv.Atoi(bounds[0])
			b, errB := strconv.Atoi(bounds[1])
			if errA != nil || errB != nil {
				return 0, fmt.Errorf("bad range %q", atom)
			}
			start, end = a, b
		default:
			v, err := strconv.Atoi(atom)
			if err != nil {
				return 0, fmt.Errorf("bad value %q", atom)
			}
			start = v
			end = v
			if step > 1 {
				end = hi
			}
		}

		if start < lo || end > hi || start > end {
			return 0, fmt.Errorf("%q out of range %d-%d", atom, lo, hi)
		}
		for v := start; v <= end; v += step {
			set |= 1 << uint(v)
		}
	}

	if set == 0 {
		return 0, fmt.Errorf("empty field %q", field)
	}
	return set, nil
}

// String returns the raw expression.
func (ce *CronExpression) String() string {
	return ce.raw
}

// Next returns the first matching instant strictly after t, walking
// minute by minute. The current minute never matches, so a job firing
// exactly at its scheduled minute reschedules for the next occurrence.
func (ce *CronExpression) Next(t time.Time) time.Time {
	at := t.Truncate(time.Minute).Add(time.Minute)

	// A year of minutes bounds the walk for any valid expression.
	limit := at.AddDate(1, 0, 1)
	for at.Before(limit) {
		if ce.matches(at) {
			return at
		}
		at = at.Add(time.Minute)
	}
	return time.Time{}
}

func (ce *CronExpression) matches(t time.Time) bool {
	return ce.minute&(1<<uint(t.Minute())) != 0 &&
		ce.hour&(1<<uint(t.Hour())) != 0 &&
		ce.dom&(1<<uint(t.Day())) != 0 &&
		ce.month&(1<<uint(t.Month())) != 0 &&
		ce.dow&(1<<uint(t.Weekday())) != 0
}
