package shared

import (
	"fmt"
	"time"
)

// DateOnly formats t as YYYY-MM-DD in local time.
func DateOnly(t time.Time) string {
	return t.Format("2006-01-02")
}

// TimeAgo renders t relative to now ("just now", "5m ago", "2d ago"),
// falling back to the date for anything older than a week.
func TimeAgo(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return DateOnly(t)
	}
}
