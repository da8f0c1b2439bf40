package httpapi

import (
	"context"
	"time"
)

func newShutdownContext(deadline time.Duration) (context.Context, context.CancelFunc) {
	if deadline <= 0 {
		deadline = 5 * time.Second
	}
	return context.WithTimeout(context.Background(), deadline)
}
