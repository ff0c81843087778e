package constants

import "time"

// TimestampFormat is used for every timestamp the API serialises.
const TimestampFormat = time.RFC3339

const (
	DefaultRateLimitRequests = 100
	DefaultRateLimitWindow   = time.Minute
)

// FormatTimestamp renders t in UTC so clients never see server-local offsets.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampFormat)
}
