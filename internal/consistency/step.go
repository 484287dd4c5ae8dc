package consistency

import (
	"context"
	"errors"
	"fmt"

	"congresy/internal/domain"
)

// ErrUnchanged is returned by a mutation that finds nothing to do. The step is recorded as
// skipped: nothing is written and nothing needs compensating.
var ErrUnchanged = errors.New("unchanged")

// Mutation changes one aggregate in place. Inverse must undo Apply when run against a fresh read.
type Mutation[T any] struct {
	Apply   func(ctx context.Context, v *T) error
	Inverse func(ctx context.Context, v *T) error
}

// compensator undoes a committed step.
type compensator func(ctx context.Context) error

// Step is one single-aggregate mutation of a saga.
type Step struct {
	Name string
	Kind domain.Kind
	ID   string

	// apply performs read, mutate and compare-and-swap once. A nil compensator with a nil error
	// means the step was a no-op.
	apply func(ctx context.Context, x *Executor) (compensator, error)
}

// Update reads the aggregate, applies m.Apply and saves it at the version it was read at.
func Update[T any](repo domain.Repository[T], id, name string, m Mutation[T]) Step {
	return Step{
		Name: name,
		Kind: repo.Kind(),
		ID:   id,
		apply: func(ctx context.Context, x *Executor) (compensator, error) {
			v, version, err := repo.Get(ctx, id)
			if err != nil {
				return nil, err
			}
			if err := m.Apply(ctx, v); err != nil {
				if errors.Is(err, ErrUnchanged) {
					return nil, nil
				}
				return nil, err
			}
			if _, err := repo.Save(ctx, id, version, v); err != nil {
				return nil, err
			}
			if m.Inverse == nil {
				return func(context.Context) error {
					return fmt.Errorf("%s has no inverse", name)
				}, nil
			}
			return func(ctx context.Context) error {
				return updateWithRetry(ctx, x, repo, id, m.Inverse)
			}, nil
		},
	}
}

// Create saves a new aggregate. Its compensation deletes it again.
func Create[T any](repo domain.Repository[T], id, name string, value *T) Step {
	return Step{
		Name: name,
		Kind: repo.Kind(),
		ID:   id,
		apply: func(ctx context.Context, _ *Executor) (compensator, error) {
			if _, err := repo.Save(ctx, id, 0, value); err != nil {
				return nil, err
			}
			return func(ctx context.Context) error {
				if err := repo.Delete(ctx, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
					return err
				}
				return nil
			}, nil
		},
	}
}

// Delete removes an aggregate after check accepts its current value. Its compensation
// recreates the value that was deleted.
func Delete[T any](repo domain.Repository[T], id, name string, check func(v *T) error) Step {
	return Step{
		Name: name,
		Kind: repo.Kind(),
		ID:   id,
		apply: func(ctx context.Context, _ *Executor) (compensator, error) {
			v, _, err := repo.Get(ctx, id)
			if err != nil {
				return nil, err
			}
			if check != nil {
				if err := check(v); err != nil {
					return nil, err
				}
			}
			if err := repo.Delete(ctx, id); err != nil {
				return nil, err
			}
			return func(ctx context.Context) error {
				_, err := repo.Save(ctx, id, 0, v)
				return err
			}, nil
		},
	}
}

// DeleteIfPresent is Delete for aggregates another saga may already have removed: a missing
// aggregate counts as deleted and the step is skipped.
func DeleteIfPresent[T any](repo domain.Repository[T], id, name string, check func(v *T) error) Step {
	st := Delete(repo, id, name, check)
	apply := st.apply
	st.apply = func(ctx context.Context, x *Executor) (compensator, error) {
		undo, err := apply(ctx, x)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return undo, err
	}
	return st
}

// updateWithRetry applies fn to fresh reads until a save lands or the attempt budget runs out.
func updateWithRetry[T any](ctx context.Context, x *Executor, repo domain.Repository[T], id string, fn func(context.Context, *T) error) error {
	var lastErr error
	for attempt := 1; attempt <= x.maxAttempts; attempt++ {
		v, version, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(ctx, v); err != nil {
			if errors.Is(err, ErrUnchanged) {
				return nil
			}
			return err
		}
		_, err = repo.Save(ctx, id, version, v)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrVersionConflict) {
			return err
		}
		lastErr = err
		_ = x.sleep(ctx, x.backoff(attempt))
	}
	return lastErr
}
