package core

import (
	"time"
)

// Microseconds is a monotonic sample timestamp or a duration, in µs.
// Measurement providers report time this way, so every window bound
// and phase duration in the aggregation path uses it.
type Microseconds int64

const (
	microsPerSecond = 1_000_000
	secondsPerYear  = 60 * 60 * 24 * 365
)

// Seconds converts to seconds
func (m Microseconds) Seconds() float64 {
	return float64(m) / microsPerSecond
}

// Years converts to 365-day years
func (m Microseconds) Years() float64 {
	return float64(m) / (microsPerSecond * secondsPerYear)
}

// Duration converts to a time.Duration
func (m Microseconds) Duration() time.Duration {
	return time.Duration(m) * time.Microsecond
}

// Time interprets m as µs since the Unix epoch
func (m Microseconds) Time() time.Time {
	return time.UnixMicro(int64(m)).UTC()
}

// MicrosecondsOf converts a wall-clock time to µs since the Unix epoch
func MicrosecondsOf(t time.Time) Microseconds {
	return Microseconds(t.UnixMicro())
}
