package timers

import (
	"fmt"
	"time"
)

// FormatDuration renders d as HH:MM:SS, truncated to whole seconds.
// Hours are not wrapped at 24 and grow past two digits when needed.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}
