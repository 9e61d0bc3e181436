// Package batch drives a strategy over an ordered list of input lines.
//
// A Runner executes at most one batch at a time. Records are processed
// strictly in input order on the calling goroutine, callbacks fire in that
// same order, and a stop request is honoured before the next record starts.
// The record in flight when Stop is called still completes and is reported.
package batch

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sterlixo/chilli-checker/internal/domain"
)

// Policy holds the pacing between records.
type Policy struct {
	// LocalDelay separates records when no external service is involved.
	LocalDelay time.Duration `mapstructure:"local_delay"`
	// VerifiedDelay separates records when the strategy calls out, to stay
	// within upstream rate limits.
	VerifiedDelay time.Duration `mapstructure:"verified_delay"`
}

// DefaultPolicy paces verified runs at one record every 4.5s and runs local
// classification back to back.
func DefaultPolicy() Policy {
	return Policy{LocalDelay: 0, VerifiedDelay: 4500 * time.Millisecond}
}

// Hooks receive events from a running batch. Both are optional. They are
// invoked sequentially on the runner's goroutine and must not block for long.
type Hooks struct {
	OnProgress func(domain.BatchState)
	OnResult   func(domain.RecordResult)
}

// Runner owns the lifecycle and counters of one batch at a time.
type Runner struct {
	policy Policy
	log    zerolog.Logger

	mu     sync.Mutex
	state  domain.BatchState
	cancel context.CancelFunc

	// wait is the inter-record pause; replaced in tests.
	wait func(ctx context.Context, d time.Duration) error
}

// New creates an idle Runner.
func New(policy Policy, log zerolog.Logger) *Runner {
	return &Runner{
		policy: policy,
		log:    log,
		state:  domain.BatchState{Status: domain.BatchIdle},
		wait:   sleep,
	}
}

// State returns a snapshot of the current or most recent batch.
func (r *Runner) State() domain.BatchState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Running reports whether a batch is in progress.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.IsRunning
}

// Stop requests that the running batch abort before its next record.
// It returns false when nothing is running.
func (r *Runner) Stop() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.state.IsRunning || r.cancel == nil {
		return false
	}
	r.cancel()
	return true
}

// Start runs lines through strategy and blocks until the batch completes or
// aborts, returning the final state with started == true.
//
// If a batch is already running the call does nothing and returns the
// running batch's snapshot with started == false. Blank lines are skipped
// and not counted. Cancelling ctx aborts the batch like Stop does.
func (r *Runner) Start(ctx context.Context, lines []string, strategy Strategy, hooks Hooks) (final domain.BatchState, started bool) {
	records := nonBlank(lines)

	r.mu.Lock()
	if r.state.IsRunning {
		snap := r.state
		r.mu.Unlock()
		return snap, false
	}
	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.state = domain.BatchState{
		ID:         uuid.NewString(),
		Status:     domain.BatchRunning,
		TotalCount: len(records),
		IsRunning:  true,
		StartedAt:  time.Now().UTC(),
	}
	id := r.state.ID
	r.mu.Unlock()
	defer cancel()

	delay := r.policy.LocalDelay
	if strategy.Verifies() {
		delay = r.policy.VerifiedDelay
	}

	log := r.log.With().Str("batch_id", id).Str("strategy", strategy.Name()).Logger()
	log.Info().Int("total", len(records)).Dur("delay", delay).Msg("batch started")

	aborted := false
	for i, line := range records {
		if runCtx.Err() != nil {
			aborted = true
			break
		}

		// The in-flight record is allowed to finish after a stop request.
		res := strategy.Process(context.WithoutCancel(runCtx), i, line)

		snap := r.record(res.Status)
		if hooks.OnProgress != nil {
			hooks.OnProgress(snap)
		}
		if hooks.OnResult != nil {
			hooks.OnResult(res)
		}

		if i == len(records)-1 {
			break
		}
		if err := r.wait(runCtx, delay); err != nil {
			aborted = true
			break
		}
	}

	final = r.finish(aborted)
	log.Info().
		Str("status", string(final.Status)).
		Int("processed", final.ProcessedCount).
		Int("live", final.LiveCount).
		Int("dead", final.DeadCount).
		Int("unknown", final.UnknownCount).
		Msg("batch finished")
	return final, true
}

// record applies one result to the counters and returns a snapshot.
func (r *Runner) record(status domain.Status) domain.BatchState {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.ProcessedCount++
	switch status {
	case domain.StatusLive:
		r.state.LiveCount++
	case domain.StatusDead:
		r.state.DeadCount++
	default:
		r.state.UnknownCount++
	}
	return r.state
}

func (r *Runner) finish(aborted bool) domain.BatchState {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	r.state.IsRunning = false
	r.state.FinishedAt = &now
	r.state.Status = domain.BatchCompleted
	if aborted {
		r.state.Status = domain.BatchAborted
	}
	r.cancel = nil
	return r.state
}

func nonBlank(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

// SplitLines splits newline-separated input, accepting CRLF.
func SplitLines(input string) []string {
	return strings.Split(strings.ReplaceAll(input, "\r\n", "\n"), "\n")
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
