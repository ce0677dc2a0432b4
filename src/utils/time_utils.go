package utils

import (
	"time"

	logger "github.com/sirupsen/logrus"
)

// ResetTime truncates t to the given granularity: "minute", "hour" or "day".
// Day truncation is done in UTC so daily candles line up across providers.
func ResetTime(t time.Time, granularity string) time.Time {
	switch granularity {
	case "minute":
		return t.Truncate(time.Minute)
	case "hour":
		return t.Truncate(time.Hour)
	case "day":
		u := t.UTC()
		return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	default:
		logger.WithField("granularity", granularity).Warn("invalid granularity, use minute, hour or day")
		return t
	}
}

// FromMillis converts a Unix millisecond timestamp to UTC time.
func FromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
