// Package schedule expands a batch timeframe into concrete target dates.
//
// Expansion is a pure function of its input: a week is 7 consecutive days,
// a month is a fixed 30-day window (not calendar-month aware) and a year is
// 52 weekly slots. Each slot gets a pillar by round-robin over the caller's
// pillar list, which keeps pillar coverage even for any slot/pillar ratio.
package schedule

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Errors returned by ParseTimeframe and Expand.
var (
	ErrInvalidTimeframe = errors.New("invalid timeframe")
	ErrEmptyPillarSet   = errors.New("empty pillar set")
)

// DateLayout is the day-granular wire and storage format for slot dates.
const DateLayout = "2006-01-02"

// Timeframe is the horizon a batch covers.
type Timeframe string

const (
	Week  Timeframe = "week"
	Month Timeframe = "month"
	Year  Timeframe = "year"
)

// cadence describes how many slots a timeframe produces and the day stride
// between them.
type cadence struct {
	slots  int
	stride int
}

var cadences = map[Timeframe]cadence{
	Week:  {slots: 7, stride: 1},
	Month: {slots: 30, stride: 1},
	Year:  {slots: 52, stride: 7},
}

// ParseTimeframe validates s (case-insensitive, surrounding space ignored).
func ParseTimeframe(s string) (Timeframe, error) {
	tf := Timeframe(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := cadences[tf]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidTimeframe, s)
	}
	return tf, nil
}

// SlotCount returns the number of slots tf expands to, or 0 if tf is unknown.
func (tf Timeframe) SlotCount() int { return cadences[tf].slots }

// Slot is one (date, pillar) pair of a batch.
type Slot struct {
	Index  int
	Date   time.Time // midnight UTC of the target calendar day
	Pillar string
}

// DateString formats the slot date as YYYY-MM-DD.
func (s Slot) DateString() string { return s.Date.Format(DateLayout) }

// Expand returns the ordered slots for tf starting at the calendar day of
// start. Dates are strictly increasing and computed with calendar-day
// arithmetic, so DST transitions in the caller's zone never shift a slot.
func Expand(tf Timeframe, start time.Time, pillars []string) ([]Slot, error) {
	c, ok := cadences[tf]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimeframe, string(tf))
	}
	ps := cleanPillars(pillars)
	if len(ps) == 0 {
		return nil, ErrEmptyPillarSet
	}

	day := Day(start)
	out := make([]Slot, c.slots)
	for i := range out {
		out[i] = Slot{
			Index:  i,
			Date:   day.AddDate(0, 0, i*c.stride),
			Pillar: ps[i%len(ps)],
		}
	}
	return out, nil
}

// Day truncates t to midnight UTC of its calendar date in t's own location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a UTC day.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
}

// cleanPillars trims entries and drops blanks, keeping order.
func cleanPillars(pillars []string) []string {
	out := make([]string, 0, len(pillars))
	for _, p := range pillars {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
