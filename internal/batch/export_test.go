package batch

import (
	"context"
	"time"
)

// SetWait replaces the inter-record pause.
func (r *Runner) SetWait(fn func(ctx context.Context, d time.Duration) error) {
	r.wait = fn
}
