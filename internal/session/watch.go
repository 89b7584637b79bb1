// ABOUTME: Cancellable periodic check of the live session token's expiry
// ABOUTME: Runs for the lifetime of the caller's context and never reschedules itself

package session

import (
	"context"
	"time"
)

// Watch checks the live token every interval and calls onExpired once per
// expired token. It returns when ctx is cancelled. A zero interval disables
// the watch and returns immediately.
func (c *Context) Watch(ctx context.Context, interval time.Duration, onExpired func()) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var reported string
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			token := c.Token()
			if token == "" || token == reported {
				continue
			}
			if Expired(token, now) {
				reported = token
				c.logger.Info("session token expired", "interval", interval)
				onExpired()
			}
		}
	}
}
