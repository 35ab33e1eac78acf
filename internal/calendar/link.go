// Package calendar builds "add to calendar" links.
package calendar

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// ErrDateFormat is returned when the start time is not ISO-8601.
var ErrDateFormat = errors.New("start time is not a valid ISO-8601 timestamp")

// startLayouts are the accepted start-time shapes, tried in order.
var startLayouts = []string{
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
}

// googleDateFormat is Google Calendar's UTC timestamp shape.
const googleDateFormat = "20060102T150405Z"

// GoogleLink builds a Google Calendar "render" URL for an event that starts
// at startISO and lasts durationHours.
func GoogleLink(title, startISO string, durationHours int, description, location string) (string, error) {
	start, err := parseStart(startISO)
	if err != nil {
		return "", err
	}
	end := start.Add(time.Duration(durationHours) * time.Hour)

	// The dates pair keeps its literal slash, so the query is assembled by
	// hand instead of through url.Values.
	return "https://www.google.com/calendar/render?action=TEMPLATE" +
		"&text=" + url.QueryEscape(title) +
		"&dates=" + start.Format(googleDateFormat) + "/" + end.Format(googleDateFormat) +
		"&details=" + url.QueryEscape(description) +
		"&location=" + url.QueryEscape(location), nil
}

func parseStart(raw string) (time.Time, error) {
	for _, layout := range startLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrDateFormat, raw)
}
