package concierge

import "strings"

// wellnessBySport maps a sport kind to the recovery treatment suggested
// alongside the booking.
var wellnessBySport = map[string]string{
	"tennis":   "back and shoulder massage",
	"padel":    "back and arm massage",
	"fitness":  "leg or full-body massage",
	"running":  "leg massage",
	"climbing": "forearm and back massage",
}

// wellnessFor returns the recovery suggestion for a sport kind, with a
// generic fallback for sports not in the table.
func wellnessFor(sport string) string {
	if w, ok := wellnessBySport[strings.ToLower(strings.TrimSpace(sport))]; ok {
		return w
	}
	return "general recovery massage"
}
