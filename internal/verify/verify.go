// Package verify defines the boundary to an external verification service.
//
// The core never talks to a concrete service. It consumes a Verifier and
// always wraps it in a Guard, which turns every failure mode of the
// collaborator (errors, panics, hangs, unknown statuses) into exactly one
// ERROR outcome within a bounded time, so a batch loop is never interrupted
// by a single record.
package verify

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/sterlixo/chilli-checker/internal/domain"
)

// DefaultTimeout bounds a single verification call.
const DefaultTimeout = 15 * time.Second

// Status is the verifier's outcome vocabulary.
type Status string

// Outcome statuses.
const (
	StatusLive  Status = "LIVE"
	StatusDead  Status = "DEAD"
	StatusError Status = "ERROR"
)

// Outcome is the settled result of one verification call.
type Outcome struct {
	Status  Status         `json:"status"`
	Message string         `json:"message"`
	Network domain.Network `json:"network"`
	Last4   string         `json:"last4"`
}

// Verifier is implemented by external verification collaborators.
// Implementations may return errors, block, or panic; callers inside this
// module go through Guard.
type Verifier interface {
	Verify(ctx context.Context, rec domain.CardRecord) (Outcome, error)
}

// VerifierFunc adapts a function to the Verifier interface.
type VerifierFunc func(ctx context.Context, rec domain.CardRecord) (Outcome, error)

// Verify calls f.
func (f VerifierFunc) Verify(ctx context.Context, rec domain.CardRecord) (Outcome, error) {
	return f(ctx, rec)
}

// Guard wraps a Verifier with a timeout and failure mapping.
type Guard struct {
	inner   Verifier
	timeout time.Duration
	log     zerolog.Logger
}

// NewGuard wraps v. A non-positive timeout selects DefaultTimeout.
func NewGuard(v Verifier, timeout time.Duration, log zerolog.Logger) *Guard {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Guard{inner: v, timeout: timeout, log: log}
}

// Timeout returns the per-call bound.
func (g *Guard) Timeout() time.Duration { return g.timeout }

// Verify runs the wrapped verifier and always returns a settled outcome.
// It returns no later than the timeout even if the wrapped verifier ignores
// its context; a late result from such a verifier is dropped.
func (g *Guard) Verify(ctx context.Context, rec domain.CardRecord) Outcome {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	type settled struct {
		out Outcome
		err error
	}
	done := make(chan settled, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- settled{err: fmt.Errorf("%w: verifier panicked: %v", domain.ErrAdapter, r)}
			}
		}()
		out, err := g.inner.Verify(ctx, rec)
		done <- settled{out: out, err: err}
	}()

	var s settled
	select {
	case s = <-done:
	case <-ctx.Done():
		s = settled{err: fmt.Errorf("%w: %v", domain.ErrAdapter, ctx.Err())}
	}

	out := g.normalize(rec, s.out, s.err)
	if out.Status == StatusError {
		g.log.Warn().Str("last4", rec.Last4()).Str("message", out.Message).Msg("verification failed")
	}
	return out
}

func (g *Guard) normalize(rec domain.CardRecord, out Outcome, err error) Outcome {
	if out.Last4 == "" {
		out.Last4 = rec.Last4()
	}
	if err != nil {
		return Outcome{Status: StatusError, Message: err.Error(), Network: out.Network, Last4: out.Last4}
	}
	switch out.Status {
	case StatusLive, StatusDead, StatusError:
		return out
	default:
		return Outcome{
			Status:  StatusError,
			Message: fmt.Sprintf("%v: unrecognized status %q", domain.ErrAdapter, out.Status),
			Network: out.Network,
			Last4:   out.Last4,
		}
	}
}

// ToDomain maps a verifier status onto the classification vocabulary.
// ERROR becomes UNKNOWN.
func (s Status) ToDomain() domain.Status {
	switch s {
	case StatusLive:
		return domain.StatusLive
	case StatusDead:
		return domain.StatusDead
	default:
		return domain.StatusUnknown
	}
}
