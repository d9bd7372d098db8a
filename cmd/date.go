package cmd

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var (
	unixPattern      = regexp.MustCompile(`^\d{9,11}$`)
	localTimePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}(:\d{2})?$`)
	clockPattern     = regexp.MustCompile(`^\d{2}:\d{2}$`)
)

// parseTimestamp accepts RFC 3339, unix seconds, a wall-clock date and time
// in loc, or a bare HH:MM taken as today in loc.
func parseTimestamp(ts string, loc *time.Location, now time.Time) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, ts); err == nil {
		return t, nil
	}

	if unixPattern.MatchString(ts) {
		secs, err := strconv.ParseInt(ts, 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("Parsing timestamp as unix seconds: %w", err)
		}
		return time.Unix(secs, 0).In(loc), nil
	}

	if localTimePattern.MatchString(ts) {
		layout := "2006-01-02T15:04"
		if len(ts) > len(layout) {
			layout = "2006-01-02T15:04:05"
		}
		if ts[10] == ' ' {
			layout = layout[:10] + " " + layout[11:]
		}
		t, err := time.ParseInLocation(layout, ts, loc)
		if err != nil {
			return time.Time{}, fmt.Errorf("Parsing timestamp as local time: %w", err)
		}
		return t, nil
	}

	if clockPattern.MatchString(ts) {
		clock, err := time.ParseInLocation("15:04", ts, loc)
		if err != nil {
			return time.Time{}, fmt.Errorf("Parsing timestamp as clock time: %w", err)
		}
		today := now.In(loc)
		return time.Date(today.Year(), today.Month(), today.Day(), clock.Hour(), clock.Minute(), 0, 0, loc), nil
	}

	return time.Time{}, fmt.Errorf("Invalid format: %q", ts)
}
