package icon

import (
	"strconv"
	"time"
)

// Label converts remaining time into the short text shown on the icon.
// Remaining time is floored to whole seconds and clamped to zero first.
func Label(remaining time.Duration) string {
	if remaining < 0 {
		remaining = 0
	}
	totalSeconds := int64(remaining / time.Second)
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60

	if hours > 0 {
		return strconv.FormatInt(hours, 10) + "h"
	}
	if minutes > 0 {
		return strconv.FormatInt(minutes, 10) + "m"
	}
	return strconv.FormatInt(seconds, 10)
}
