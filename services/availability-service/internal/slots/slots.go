// Package slots derives whole-hour slots from a weekly working window and filters them
// against existing bookings and the reference time. Everything here is pure: callers pass
// "now" explicitly.
package slots

import "time"

const minutesPerDay = 24 * 60

// Interval is a half-open range of absolute instants.
type Interval struct {
	Start time.Time
	End   time.Time
}

func (i Interval) Contains(t time.Time) bool {
	return !t.Before(i.Start) && t.Before(i.End)
}

// Generate returns the hours startMinutes/60 .. endMinutes/60-1 in ascending order.
//
// Bounds that are not hour aligned truncate toward the lower hour, so 09:30-17:00 yields the
// same slots as 09:00-17:00. Empty, inverted or out of range windows yield an empty slice.
func Generate(startMinutes, endMinutes int) []int {
	if startMinutes < 0 || endMinutes > minutesPerDay {
		return []int{}
	}
	startHour := startMinutes / 60
	endHour := endMinutes / 60
	if endHour <= startHour {
		return []int{}
	}

	hours := make([]int, 0, endHour-startHour)
	for h := startHour; h < endHour; h++ {
		hours = append(hours, h)
	}
	return hours
}

// Day is a calendar date whose hours are read in a specific frame: the server location for
// server-local queries, or the client's fixed offset zone.
type Day struct {
	year  int
	month time.Month
	day   int
	loc   *time.Location
}

// NewDay anchors the calendar date of date (its Y-M-D as stored) in frame.
func NewDay(date time.Time, frame *time.Location) Day {
	if frame == nil {
		frame = time.UTC
	}
	y, m, d := date.Date()
	return Day{year: y, month: m, day: d, loc: frame}
}

func (d Day) Location() *time.Location { return d.loc }

func (d Day) Weekday() time.Weekday {
	return d.At(12).Weekday()
}

// At is the instant the wall clock of the frame reads hour:00 on this day. Hour 24 is the
// following midnight.
func (d Day) At(hour int) time.Time {
	return time.Date(d.year, d.month, d.day, hour, 0, 0, 0, d.loc)
}

// End is the last representable instant of the day in the frame.
func (d Day) End() time.Time {
	return time.Date(d.year, d.month, d.day+1, 0, 0, 0, 0, d.loc).Add(-time.Nanosecond)
}

// Window is the span of absolute time covered by hours [startHour, endHour) of this day.
// For a client-offset frame this is the server-side query window shifted by the offset.
func (d Day) Window(startHour, endHour int) Interval {
	return Interval{Start: d.At(startHour), End: d.At(endHour)}
}

// Contains reports whether t, read in the day's frame, falls on this calendar date.
func (d Day) Contains(t time.Time) bool {
	y, m, dd := t.In(d.loc).Date()
	return y == d.year && m == d.month && dd == d.day
}

// DayElapsed reports whether the whole calendar day of date, in the server location, lies
// before now.
func DayElapsed(date time.Time, serverLoc *time.Location, now time.Time) bool {
	return NewDay(date, serverLoc).End().Before(now)
}

// Bookable filters nominal hours down to those with no booking in the same hour of the same
// day (both read in the day's frame) and whose start is strictly after now. Order is kept.
func Bookable(nominal []int, day Day, booked []time.Time, now time.Time) []int {
	taken := make(map[int]struct{}, len(booked))
	for _, b := range booked {
		if !day.Contains(b) {
			continue
		}
		taken[b.In(day.loc).Hour()] = struct{}{}
	}

	out := make([]int, 0, len(nominal))
	for _, h := range nominal {
		if _, ok := taken[h]; ok {
			continue
		}
		if !day.At(h).After(now) {
			continue
		}
		out = append(out, h)
	}
	return out
}
