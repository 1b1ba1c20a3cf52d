package models

import (
	"strconv"
	"strings"
	"time"
	"unicode"
)

// TimeWindow is a start/end clock pair parsed from a slot description.
type TimeWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Label string `json:"label"`
}

// ParseWindow parses slot text such as "10:00 - 12:00" or "10:00:00–12:00:00".
// Whitespace is stripped, the text is split on "-" (or an en dash when no
// hyphen is present) and each side is cut to its first five characters.
// Anything other than two five-character clocks yields ok == false.
func ParseWindow(slot string) (TimeWindow, bool) {
	compact := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, slot)

	sep := "-"
	if !strings.Contains(compact, sep) {
		sep = "–"
	}
	parts := strings.Split(compact, sep)
	if len(parts) != 2 {
		return TimeWindow{}, false
	}

	start, end := firstRunes(parts[0], 5), firstRunes(parts[1], 5)
	if len([]rune(start)) != 5 || len([]rune(end)) != 5 {
		return TimeWindow{}, false
	}
	return TimeWindow{Start: start, End: end, Label: start + "-" + end}, true
}

// NormalizeSlot returns the "HH:MM-HH:MM" label of a slot, or "" when the
// slot does not parse.
func NormalizeSlot(slot string) string {
	w, ok := ParseWindow(slot)
	if !ok {
		return ""
	}
	return w.Label
}

// Minutes returns both ends as minutes of the day.
func (w TimeWindow) Minutes() (start, end int, ok bool) {
	start, ok = clockMinutes(w.Start)
	if !ok {
		return 0, 0, false
	}
	end, ok = clockMinutes(w.End)
	if !ok {
		return 0, 0, false
	}
	return start, end, true
}

// Contains reports whether a minute of the day lies in [start, end).
func (w TimeWindow) Contains(minute int) bool {
	start, end, ok := w.Minutes()
	if !ok {
		return false
	}
	return minute >= start && minute < end
}

// Clock is a wall-clock time of day.
type Clock struct {
	Hour   int
	Minute int
}

// ClockOf extracts the wall clock of t in its own location.
func ClockOf(t time.Time) Clock {
	return Clock{Hour: t.Hour(), Minute: t.Minute()}
}

// Minutes returns hour*60+minute.
func (c Clock) Minutes() int { return c.Hour*60 + c.Minute }

// IsActiveNow reports whether an approved booking for today covers the
// given clock. Days are compared as exact strings.
func IsActiveNow(b *Booking, now Clock, today string) bool {
	if b == nil {
		return false
	}
	if b.CanonicalStatus() != StatusApproved {
		return false
	}
	if b.Day() != today {
		return false
	}
	w, ok := ParseWindow(b.TimeSlot.String())
	if !ok {
		return false
	}
	return w.Contains(now.Minutes())
}

func clockMinutes(hhmm string) (int, bool) {
	hh, mm, found := strings.Cut(hhmm, ":")
	if !found {
		return 0, false
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return 0, false
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return 0, false
	}
	return h*60 + m, true
}

func firstRunes(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		r = r[:n]
	}
	return string(r)
}
