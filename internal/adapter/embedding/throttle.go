package embedding

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"docindex/internal/port"
)

var _ port.Embedder = (*Throttled)(nil)

// Throttled spaces calls to the wrapped embedder at least interval apart.
// The first call goes through immediately.
type Throttled struct {
	inner   port.Embedder
	limiter *rate.Limiter
}

// NewThrottled wraps e. A non-positive interval returns e unchanged.
func NewThrottled(e port.Embedder, interval time.Duration) port.Embedder {
	if interval <= 0 {
		return e
	}
	return &Throttled{
		inner:   e,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
	}
}

func (t *Throttled) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return t.inner.Embed(ctx, text)
}

func (t *Throttled) ModelName() string {
	return t.inner.ModelName()
}
