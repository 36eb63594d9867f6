package services

import (
	"context"
	"time"
)

// persistentContext keeps the caller's values but drops its cancellation, so a
// fan-out started inside a request finishes after the client disconnects.
func persistentContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return context.WithoutCancel(ctx)
}

// channelContext bounds a single channel call. A zero timeout means no bound.
func channelContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
