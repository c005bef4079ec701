package timesync

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const clockLayout = "15:04:05"

// Converter handles conversion from strace timestamps to wall-clock time.
type Converter struct {
	anchor time.Time
}

// NewConverter creates a converter anchored at the given instant.
// A zero anchor means now.
func NewConverter(anchor time.Time) *Converter {
	if anchor.IsZero() {
		anchor = time.Now()
	}
	return &Converter{anchor: anchor}
}

// Anchor returns the instant clock-only timestamps are resolved against.
func (c *Converter) Anchor() time.Time {
	return c.anchor
}

// ToWallClock converts a timestamp in any of the -t, -tt or -ttt forms.
func (c *Converter) ToWallClock(ts string) (time.Time, error) {
	if ts == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	if !strings.Contains(ts, ":") {
		return parseEpoch(ts)
	}

	// Fractional seconds are accepted after the seconds field even though
	// the layout does not spell them out.
	clock, err := time.Parse(clockLayout, ts)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", ts, err)
	}

	y, m, d := c.anchor.Date()
	wall := time.Date(y, m, d, clock.Hour(), clock.Minute(), clock.Second(), clock.Nanosecond(), c.anchor.Location())
	if wall.After(c.anchor) {
		wall = wall.AddDate(0, 0, -1)
	}
	return wall, nil
}

// Interval converts a first/last pair, keeping end >= start when the
// trace crossed midnight.
func (c *Converter) Interval(first, last string) (start, end time.Time, err error) {
	start, err = c.ToWallClock(first)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err = c.ToWallClock(last)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	for end.Before(start) {
		end = end.AddDate(0, 0, 1)
	}
	return start, end, nil
}

// parseEpoch parses the -ttt form, seconds.microseconds since the epoch.
func parseEpoch(ts string) (time.Time, error) {
	secPart, fracPart, _ := strings.Cut(ts, ".")
	sec, err := strconv.ParseInt(secPart, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", ts, err)
	}

	var nsec int64
	if fracPart != "" {
		if len(fracPart) > 9 {
			fracPart = fracPart[:9]
		}
		nsec, err = strconv.ParseInt(fracPart+strings.Repeat("0", 9-len(fracPart)), 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", ts, err)
		}
	}
	return time.Unix(sec, nsec), nil
}
