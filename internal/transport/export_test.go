package transport

import (
	"context"
	"time"
)

// SetSleep replaces the backoff/settle sleeper.
func (t *Transport) SetSleep(f func(ctx context.Context, d time.Duration) error) {
	t.sleep = f
}
