// SPDX-License-Identifier: EPL-2.0

package stream

import (
	"context"
	"time"
)

// minBackoff is the first sleep of a wait; it doubles up to the poll
// interval.
const minBackoff = 100 * time.Microsecond

// waitFor polls ready with a bounded exponential backoff until it returns
// true, alive returns an error, ctx ends or timeout passes (timeout <= 0
// waits forever).
func waitFor(ctx context.Context, ready func() bool, alive func() error, poll, timeout time.Duration) error {
	if poll <= 0 {
		poll = time.Millisecond
	}
	start := time.Now()
	backoff := min(minBackoff, poll)

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for !ready() {
		if err := alive(); err != nil {
			return err
		}
		if timeout > 0 && time.Since(start) > timeout {
			return ErrTimeout
		}

		if timer == nil {
			timer = time.NewTimer(backoff)
		} else {
			timer.Reset(backoff)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
		backoff = min(backoff*2, poll)
	}
	return nil
}
