package dates

import (
	"fmt"
	"time"
)

// IST is the fixed Indian Standard Time zone (UTC+5:30) used as the canonical
// bucketing timezone for every provider. Store owners operate on IST calendar
// days, so all three channels must agree on what "yesterday" means.
var IST = time.FixedZone("IST", 5*3600+30*60)

// Layout is the civil date wire format used as the daily metric key.
const Layout = "2006-01-02"

// CivilDate converts an instant to its IST calendar date as "YYYY-MM-DD".
func CivilDate(t time.Time) string {
	return t.In(IST).Format(Layout)
}

// Parse parses a civil date string, anchored at midnight IST.
func Parse(civil string) (time.Time, error) {
	t, err := time.ParseInLocation(Layout, civil, IST)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid civil date %q: %w", civil, err)
	}
	return t, nil
}

// DayBounds returns the inclusive instant range covering one IST calendar day:
// start at 00:00:00.000 and end at 23:59:59.999.
func DayBounds(civil string) (time.Time, time.Time, error) {
	start, err := Parse(civil)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end := start.Add(24*time.Hour - time.Millisecond)
	return start, end, nil
}

// YesterdayIST returns the civil date of the previous IST calendar day.
func YesterdayIST() string {
	return yesterdayIST(time.Now())
}

func yesterdayIST(now time.Time) string {
	return CivilDate(now.In(IST).AddDate(0, 0, -1))
}

// DaysAgoIST returns the civil date n days ago in IST.
func DaysAgoIST(n int) string {
	return daysAgoIST(time.Now(), n)
}

func daysAgoIST(now time.Time, n int) string {
	return CivilDate(now.In(IST).AddDate(0, 0, -n))
}

// RangeDescription renders a human-readable description of a civil date range
// for sync result messages.
func RangeDescription(from, to string) string {
	if from == to {
		return from
	}
	return fmt.Sprintf("%s to %s", from, to)
}
