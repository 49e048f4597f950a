package utils

import (
	"context"
	"time"
)

// NewTicker returns a tick channel bound to ctx: when ctx is cancelled
// the underlying ticker is stopped and the channel is closed.
func NewTicker(ctx context.Context, interval time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)

	go func() {
		defer close(ch)

		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case tick := <-t.C:
				select {
				case ch <- tick:
				default:
				}
			}
		}
	}()

	return ch
}
