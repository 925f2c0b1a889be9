// Package simulate holds the artificial network latency shared by the mock
// endpoints.
package simulate

import (
	"context"
	"time"
)

// Latency blocks for d or until ctx is done, whichever comes first.
func Latency(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
