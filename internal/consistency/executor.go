// Package consistency runs multi-aggregate operations as sagas over a store that only offers
// single-document compare-and-swap.
//
// A saga is an ordered list of steps, each reading one aggregate, mutating it and saving it at
// the version it was read at. A lost race (domain.ErrVersionConflict) undoes the committed steps
// and restarts the saga from freshly built steps, up to MaxAttempts. Any other failure undoes the
// committed steps in reverse order and returns the failure. When an undo itself fails the caller
// gets a *domain.PartialFailureError carrying the step trace, and the repair pass has to reconcile.
package consistency

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"congresy/internal/domain"
)

// Options bounds the retry behavior of an Executor.
type Options struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

// DefaultOptions returns 5 attempts with backoff growing from 10ms to at most 500ms.
func DefaultOptions() Options {
	return Options{MaxAttempts: 5, BaseBackoff: 10 * time.Millisecond, MaxBackoff: 500 * time.Millisecond}
}

// Builder produces the steps of one saga attempt. It runs again, against fresh reads, on every
// restart. An error from Builder aborts the saga before anything is written.
type Builder func(ctx context.Context) ([]Step, error)

// Executor runs sagas.
type Executor struct {
	logger      *slog.Logger
	maxAttempts int
	baseBackoff time.Duration
	maxBackoff  time.Duration
	jitterFrac  float64
	sleep       func(ctx context.Context, d time.Duration) error
}

// NewExecutor returns an Executor. Zero option fields fall back to DefaultOptions.
func NewExecutor(logger *slog.Logger, opts Options) *Executor {
	def := DefaultOptions()
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = def.MaxAttempts
	}
	if opts.BaseBackoff <= 0 {
		opts.BaseBackoff = def.BaseBackoff
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = def.MaxBackoff
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		logger:      logger.With("component", "saga"),
		maxAttempts: opts.MaxAttempts,
		baseBackoff: opts.BaseBackoff,
		maxBackoff:  opts.MaxBackoff,
		jitterFrac:  0.2,
		sleep:       sleepContext,
	}
}

// MaxAttempts is the number of times a saga is tried before it fails with domain.ErrConflict.
func (x *Executor) MaxAttempts() int {
	return x.maxAttempts
}

// Run executes the saga named name. Cancelling ctx aborts the saga only while nothing is
// committed; once a step has been written the saga completes or compensates regardless.
func (x *Executor) Run(ctx context.Context, name string, build Builder) error {
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		steps, err := build(ctx)
		if err != nil {
			return err
		}
		err = x.runOnce(ctx, name, attempt, steps)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrVersionConflict) || errors.Is(err, domain.ErrPartialFailure) {
			return err
		}
		if attempt >= x.maxAttempts {
			x.logger.WarnContext(ctx, "saga gave up after version conflicts", "saga", name, "attempts", attempt)
			return fmt.Errorf("%s: %w", name, domain.ErrConflict)
		}
		// Everything committed in this attempt has been undone, so waiting may still honor ctx.
		if err := x.sleep(ctx, x.backoff(attempt)); err != nil {
			return err
		}
	}
}

type committed struct {
	index int
	undo  compensator
}

func (x *Executor) runOnce(ctx context.Context, name string, attempt int, steps []Step) error {
	trace := make([]domain.StepRecord, 0, len(steps))
	var done []committed
	stepCtx := ctx

	for i, st := range steps {
		undo, err := st.apply(stepCtx, x)
		if err != nil {
			trace = append(trace, record(st, "failed: "+err.Error()))
			if len(done) == 0 {
				return err
			}
			return x.compensate(context.WithoutCancel(ctx), name, attempt, steps, done, trace, err)
		}
		if undo == nil {
			trace = append(trace, record(st, "skipped"))
			continue
		}
		trace = append(trace, record(st, "applied"))
		done = append(done, committed{index: i, undo: undo})
		stepCtx = context.WithoutCancel(ctx)
	}
	x.logger.DebugContext(ctx, "saga committed", "saga", name, "attempt", attempt, "trace", trace)
	return nil
}

func (x *Executor) compensate(ctx context.Context, name string, attempt int, steps []Step, done []committed, trace []domain.StepRecord, cause error) error {
	var failures []error
	for i := len(done) - 1; i >= 0; i-- {
		st := steps[done[i].index]
		if err := done[i].undo(ctx); err != nil {
			trace = append(trace, record(st, "compensation failed: "+err.Error()))
			failures = append(failures, fmt.Errorf("undo %s: %w", st.Name, err))
			continue
		}
		trace = append(trace, record(st, "compensated"))
	}
	if len(failures) > 0 {
		pf := &domain.PartialFailureError{
			Saga:  name,
			Trace: trace,
			Cause: errors.Join(append([]error{cause}, failures...)...),
		}
		x.logger.ErrorContext(ctx, "saga left partial state", "saga", name, "attempt", attempt, "trace", trace, "err", pf.Cause)
		return pf
	}
	x.logger.WarnContext(ctx, "saga compensated", "saga", name, "attempt", attempt, "cause", cause, "trace", trace)
	return cause
}

// backoff grows exponentially from baseBackoff, caps at maxBackoff and spreads by ±jitterFrac.
func (x *Executor) backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := time.Duration(float64(x.baseBackoff) * math.Pow(2, float64(attempt-1)))
	if d > x.maxBackoff {
		d = x.maxBackoff
	}
	delta := float64(d) * x.jitterFrac
	low := float64(d) - delta
	return time.Duration(low + rand.Float64()*2*delta)
}

func record(st Step, outcome string) domain.StepRecord {
	return domain.StepRecord{Step: st.Name, Kind: st.Kind, ID: st.ID, Outcome: outcome}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
