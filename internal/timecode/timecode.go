package timecode

import (
	"fmt"
	"regexp"
	"strconv"
)

// pattern accepts HH:MM:SS with an optional millisecond suffix.
var pattern = regexp.MustCompile(`^(\d{2}):(\d{2}):(\d{2})(?:\.(\d{3}))?$`)

// Parse converts a timestamp in HH:MM:SS or HH:MM:SS.mmm form to seconds.
func Parse(ts string) (float64, error) {
	m := pattern.FindStringSubmatch(ts)
	if m == nil {
		return 0, fmt.Errorf("invalid timestamp %q: expected HH:MM:SS or HH:MM:SS.mmm", ts)
	}

	hours, _ := strconv.Atoi(m[1])
	minutes, _ := strconv.Atoi(m[2])
	seconds, _ := strconv.Atoi(m[3])

	total := float64(hours)*3600 + float64(minutes)*60 + float64(seconds)
	if m[4] != "" {
		millis, _ := strconv.Atoi(m[4])
		total += float64(millis) / 1000
	}
	return total, nil
}
