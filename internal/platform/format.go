package platform

import (
	"fmt"
	"time"
)

// Size units
const (
	sizeUnitStep = 1024.0
)

var sizeUnits = []string{"B", "KB", "MB", "GB"}

// FormatSize converts a byte count to a human readable form ("12.3 MB").
func FormatSize(bytes int64) string {
	size := float64(bytes)
	for _, unit := range sizeUnits {
		if size < sizeUnitStep {
			return fmt.Sprintf("%.1f %s", size, unit)
		}
		size /= sizeUnitStep
	}
	return fmt.Sprintf("%.1f TB", size)
}

// FormatSpeed converts bytes-per-second to a human readable rate.
func FormatSpeed(bytesPerSec float64) string {
	return FormatSize(int64(bytesPerSec)) + "/s"
}

// FormatDuration renders an elapsed or remaining duration compactly:
// "42s", "3m 5s", "1h 12m".
func FormatDuration(d time.Duration) string {
	seconds := int(d.Seconds())
	switch {
	case seconds < 60:
		return fmt.Sprintf("%ds", seconds)
	case seconds < 3600:
		return fmt.Sprintf("%dm %ds", seconds/60, seconds%60)
	default:
		return fmt.Sprintf("%dh %dm", seconds/3600, (seconds%3600)/60)
	}
}
