// Package timecode converts human-readable transcript timestamps into
// playback offsets in seconds.
package timecode

import (
	"strconv"
	"strings"
)

// Placeholders the transcript store uses to mark an absent start time.
// They parse to offset zero rather than an error.
var absentMarkers = map[string]bool{
	"":    true,
	"N/A": true,
	"0":   true,
	"-":   true,
	"—":   true,
}

// Parse converts a display timestamp to seconds. Recognizes "HH:MM:SS",
// "MM:SS", and a bare second count. Parse is total: malformed input yields 0,
// never an error, so a bad timestamp starts playback at the beginning instead
// of blocking it.
func Parse(display string) int {
	display = strings.TrimSpace(display)
	if absentMarkers[display] {
		return 0
	}

	// Some transcripts use "." as the segment separator.
	display = strings.ReplaceAll(display, ".", ":")

	var parts []int
	for _, seg := range strings.Split(display, ":") {
		n, err := strconv.Atoi(seg)
		if err != nil || n < 0 {
			continue
		}
		parts = append(parts, n)
	}

	switch len(parts) {
	case 3:
		return parts[0]*3600 + parts[1]*60 + parts[2]
	case 2:
		return parts[0]*60 + parts[1]
	case 1:
		return parts[0]
	default:
		return 0
	}
}
