package logger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Outcome labels shared by log lines and metrics.
const (
	StatusOK      = "ok"
	StatusFail    = "fail"
	StatusTimeout = "timeout"
)

// Status maps a handler or send error to its outcome label. Context
// expiry is told apart so slow Bot API calls do not read as failures.
func Status(err error) string {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return StatusTimeout
	}
	return StatusFail
}

// Took is the time since start rounded to milliseconds.
func Took(start time.Time) time.Duration {
	return RoundMS(time.Since(start))
}

// RoundMS rounds d to milliseconds; negative durations become 0.
func RoundMS(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d.Round(time.Millisecond)
}

// Millis is RoundMS in whole milliseconds, for *_ms attributes.
func Millis(d time.Duration) int64 {
	return int64(RoundMS(d) / time.Millisecond)
}

// Preview lists at most limit names and counts the rest, e.g.
// "0001_profiles.up.sql,0002_x.up.sql +3 more".
func Preview(names []string, limit int) string {
	if limit < 0 {
		limit = 0
	}
	if len(names) <= limit {
		return strings.Join(names, ",")
	}
	rest := fmt.Sprintf("+%d more", len(names)-limit)
	if limit == 0 {
		return rest
	}
	return strings.Join(names[:limit], ",") + " " + rest
}
