// Package utils holds small helpers shared by the other packages.
package utils

import (
	"context"
	"fmt"
	"time"
)

// SleepContext sleeps for given duration. If the context closes in the
// meantime, it returns immediately with a context.Canceled error.
func SleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return context.Canceled
	case <-t.C:
		return nil
	}
}

// DisplayASCII represents a key or value as ascii if it only contains safe
// ascii characters. Unsafe characters are replaced by '.' and a hex
// representation is added to the output.
func DisplayASCII(b []byte) string {
	return DisplayASCIILimit(b, 0)
}

// DisplayASCIILimit is like DisplayASCII, but shows at most limit bytes.
// A limit of 0 shows everything.
func DisplayASCIILimit(b []byte, limit int) string {
	var suffix string
	if limit > 0 && len(b) > limit {
		suffix = fmt.Sprintf(" ... (%d bytes)", len(b))
		b = b[:limit]
	}
	ret := make([]byte, len(b))
	unsafe := false
	for i, ch := range b {
		if ch < 32 || ch > 126 {
			ret[i] = '.'
			unsafe = true
		} else {
			ret[i] = ch
		}
	}
	if unsafe || len(b) == 0 {
		return fmt.Sprintf("%s [% 0x]%s", ret, b, suffix)
	}
	return string(ret) + suffix
}

// TimeDiff returns the difference between two times, rounded to milliseconds.
func TimeDiff(t1, t0 time.Time) time.Duration {
	return t1.Sub(t0).Round(time.Millisecond)
}
