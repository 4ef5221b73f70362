package render

import (
	"fmt"
	"time"
)

const (
	minute = 60
	hour   = 60 * minute
	day    = 24 * hour
	week   = 7 * day
	month  = 30 * day
	year   = 365 * day
)

// RelativeTime describes how long before now t happened, e.g. "3 hours ago".
// Every unit reports at least 1, so a future t reads "1 second ago".
func RelativeTime(now, t time.Time) string {
	secs := int64(now.Sub(t) / time.Second)
	switch {
	case secs < minute:
		return ago(secs, 1, "second")
	case secs < hour:
		return ago(secs, minute, "minute")
	case secs < day:
		return ago(secs, hour, "hour")
	case secs < week:
		return ago(secs, day, "day")
	case secs < month:
		return ago(secs, week, "week")
	case secs < year:
		return ago(secs, month, "month")
	default:
		return ago(secs, year, "year")
	}
}

func ago(secs, unit int64, name string) string {
	n := secs / unit
	if n < 1 {
		n = 1
	}
	if n == 1 {
		return fmt.Sprintf("1 %s ago", name)
	}
	return fmt.Sprintf("%d %ss ago", n, name)
}
