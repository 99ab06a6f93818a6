// Package biztime provides the business timezone and calendar helpers used
// for billing dates. Storage and transport are always UTC; the business
// timezone only decides calendar boundaries and scheduler cron times.
package biztime

import (
	"fmt"
	"sync"
	"time"
)

// DefaultTimezone is used when no timezone is configured.
const DefaultTimezone = "UTC"

var (
	bizLocation     *time.Location
	bizLocationOnce sync.Once
	initErr         error
)

// Init sets the business timezone. Only the first call has an effect.
func Init(tz string) error {
	bizLocationOnce.Do(func() {
		if tz == "" {
			tz = DefaultTimezone
		}
		bizLocation, initErr = time.LoadLocation(tz)
	})
	return initErr
}

// Location returns the business timezone, initializing the default on first use.
func Location() *time.Location {
	if err := Init(""); err != nil {
		panic(fmt.Sprintf("biztime: failed to initialize default timezone: %v", err))
	}
	return bizLocation
}

// NowUTC returns current time in UTC.
func NowUTC() time.Time {
	return time.Now().UTC()
}

// AddMonthsClamped adds n calendar months in the business timezone. When the
// day does not exist in the target month it is clamped to the last day, so
// Jan 31 + 1 month is Feb 28 (or 29) rather than early March.
func AddMonthsClamped(t time.Time, n int) time.Time {
	local := t.In(Location())
	year, month, day := local.Date()

	firstOfTarget := time.Date(year, month+time.Month(n), 1, 0, 0, 0, 0, Location())
	lastDay := firstOfTarget.AddDate(0, 1, -1).Day()
	if day > lastDay {
		day = lastDay
	}

	h, m, s := local.Clock()
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day, h, m, s, local.Nanosecond(), Location()).UTC()
}
