package availability

import (
	"strconv"
	"strings"
	"time"
)

// Offsets beyond +-14h do not exist on any civil clock.
const maxOffsetMinutes = 14 * 60

// ParseQuery validates raw request parameters. An empty offset selects server-local mode
// unless requireOffset is set.
func ParseQuery(username, date, offset string, requireOffset bool) (Query, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return Query{}, paramError(ErrMissingParameter, "username", "username not provided")
	}

	date = strings.TrimSpace(date)
	if date == "" {
		return Query{}, paramError(ErrMissingParameter, "date", "date not provided")
	}
	day, err := parseDate(date)
	if err != nil {
		return Query{}, paramError(ErrInvalidDate, "date", "invalid date")
	}

	q := Query{Username: username, Date: day}

	offset = strings.TrimSpace(offset)
	if offset == "" {
		if requireOffset {
			return Query{}, paramError(ErrMissingParameter, "timezoneOffset", "timezoneOffset not provided")
		}
		return q, nil
	}
	minutes, err := strconv.Atoi(offset)
	if err != nil || minutes < -maxOffsetMinutes || minutes > maxOffsetMinutes {
		return Query{}, paramError(ErrInvalidParameter, "timezoneOffset", "invalid timezoneOffset")
	}
	q.TimezoneOffset = &minutes
	return q, nil
}

// parseDate accepts a full-date, or an RFC 3339 timestamp whose own calendar date is used.
func parseDate(raw string) (time.Time, error) {
	if day, err := time.Parse(DateLayout, raw); err == nil {
		return day, nil
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, err
	}
	y, m, d := ts.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
}
