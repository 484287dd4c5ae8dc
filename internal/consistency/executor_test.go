package consistency

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"congresy/internal/domain"
	"congresy/internal/repository"
	"congresy/internal/repository/memory"
)

type counter struct {
	N int `json:"n"`
}

// faultyStore fails chosen saves or deletes before delegating to the memory store.
type faultyStore struct {
	domain.DocumentStore
	mu        sync.Mutex
	saveFails map[string][]error
	saves     []string
}

func newFaultyStore() *faultyStore {
	return &faultyStore{DocumentStore: memory.NewStore(), saveFails: map[string][]error{}}
}

func (f *faultyStore) failSave(id string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saveFails[id] = append(f.saveFails[id], errs...)
}

func (f *faultyStore) Save(ctx context.Context, kind domain.Kind, id string, version int64, body []byte) (int64, error) {
	f.mu.Lock()
	f.saves = append(f.saves, id)
	if q := f.saveFails[id]; len(q) > 0 {
		err := q[0]
		f.saveFails[id] = q[1:]
		f.mu.Unlock()
		if err != nil {
			return 0, err
		}
	} else {
		f.mu.Unlock()
	}
	return f.DocumentStore.Save(ctx, kind, id, version, body)
}

func newTestExecutor(maxAttempts int) *Executor {
	x := NewExecutor(slog.New(slog.NewTextHandler(io.Discard, nil)), Options{MaxAttempts: maxAttempts})
	x.sleep = func(context.Context, time.Duration) error { return nil }
	return x
}

func seed(t *testing.T, repo domain.Repository[counter], ids ...string) {
	t.Helper()
	for _, id := range ids {
		_, err := repo.Save(context.Background(), id, 0, &counter{})
		require.NoError(t, err)
	}
}

func value(t *testing.T, repo domain.Repository[counter], id string) int {
	t.Helper()
	v, _, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	return v.N
}

func inc(trace *[]string, name string) Mutation[counter] {
	return Mutation[counter]{
		Apply: func(_ context.Context, c *counter) error {
			c.N++
			return nil
		},
		Inverse: func(_ context.Context, c *counter) error {
			if trace != nil {
				*trace = append(*trace, name)
			}
			c.N--
			return nil
		},
	}
}

func failing(err error) Mutation[counter] {
	return Mutation[counter]{Apply: func(context.Context, *counter) error { return err }}
}

func TestExecutor_Run_CommitsEveryStep(t *testing.T) {
	store := newFaultyStore()
	repo := repository.NewCollection[counter](store, domain.KindEvent)
	seed(t, repo, "a", "b")
	x := newTestExecutor(3)

	err := x.Run(context.Background(), "inc-both", func(context.Context) ([]Step, error) {
		return []Step{
			Update(repo, "a", "inc a", inc(nil, "a")),
			Update(repo, "b", "inc b", inc(nil, "b")),
		}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, value(t, repo, "a"))
	assert.Equal(t, 1, value(t, repo, "b"))
}

func TestExecutor_Run_RestartsAfterVersionConflict(t *testing.T) {
	store := newFaultyStore()
	repo := repository.NewCollection[counter](store, domain.KindEvent)
	seed(t, repo, "a", "b")
	store.failSave("b", domain.ErrVersionConflict)
	x := newTestExecutor(3)

	builds := 0
	var undone []string
	err := x.Run(context.Background(), "inc-both", func(context.Context) ([]Step, error) {
		builds++
		return []Step{
			Update(repo, "a", "inc a", inc(&undone, "a")),
			Update(repo, "b", "inc b", inc(&undone, "b")),
		}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, builds)
	assert.Equal(t, []string{"a"}, undone, "step a is compensated before the restart")
	assert.Equal(t, 1, value(t, repo, "a"))
	assert.Equal(t, 1, value(t, repo, "b"))
}

func TestExecutor_Run_ExhaustedAttemptsIsConflict(t *testing.T) {
	store := newFaultyStore()
	repo := repository.NewCollection[counter](store, domain.KindEvent)
	seed(t, repo, "a")
	store.failSave("a", domain.ErrVersionConflict, domain.ErrVersionConflict, domain.ErrVersionConflict)
	x := newTestExecutor(3)

	err := x.Run(context.Background(), "inc", func(context.Context) ([]Step, error) {
		return []Step{Update(repo, "a", "inc a", inc(nil, "a"))}, nil
	})
	require.ErrorIs(t, err, domain.ErrConflict)
	assert.NotErrorIs(t, err, domain.ErrPartialFailure)
	assert.Equal(t, 0, value(t, repo, "a"))
}

func TestExecutor_Run_CompensatesInReverseOrder(t *testing.T) {
	store := newFaultyStore()
	repo := repository.NewCollection[counter](store, domain.KindEvent)
	seed(t, repo, "a", "b", "c")
	x := newTestExecutor(3)

	var undone []string
	err := x.Run(context.Background(), "three", func(context.Context) ([]Step, error) {
		return []Step{
			Update(repo, "a", "inc a", inc(&undone, "a")),
			Update(repo, "b", "inc b", inc(&undone, "b")),
			Update(repo, "c", "reject c", failing(domain.ErrSeatsExhausted)),
		}, nil
	})
	require.ErrorIs(t, err, domain.ErrSeatsExhausted)
	assert.Equal(t, []string{"b", "a"}, undone)
	for _, id := range []string{"a", "b", "c"} {
		assert.Equal(t, 0, value(t, repo, id), id)
	}
}

func TestExecutor_Run_FailedCompensationIsPartialFailure(t *testing.T) {
	store := newFaultyStore()
	repo := repository.NewCollection[counter](store, domain.KindEvent)
	seed(t, repo, "a", "b")
	x := newTestExecutor(3)
	boom := errors.New("disk on fire")

	err := x.Run(context.Background(), "broken", func(context.Context) ([]Step, error) {
		return []Step{
			Update(repo, "a", "inc a", Mutation[counter]{
				Apply:   func(_ context.Context, c *counter) error { c.N++; return nil },
				Inverse: func(context.Context, *counter) error { return boom },
			}),
			Update(repo, "b", "reject b", failing(domain.ErrNotFound)),
		}, nil
	})
	require.ErrorIs(t, err, domain.ErrPartialFailure)
	require.ErrorIs(t, err, domain.ErrNotFound)

	var pf *domain.PartialFailureError
	require.True(t, errors.As(err, &pf))
	assert.Equal(t, "broken", pf.Saga)
	require.Len(t, pf.Trace, 3)
	assert.Equal(t, "applied", pf.Trace[0].Outcome)
	assert.Contains(t, pf.Trace[2].Outcome, "compensation failed")
	assert.Equal(t, 1, value(t, repo, "a"), "the failed compensation leaves the increment in place")
}

func TestExecutor_Run_CanceledBeforeCommitWritesNothing(t *testing.T) {
	store := newFaultyStore()
	repo := repository.NewCollection[counter](store, domain.KindEvent)
	seed(t, repo, "a")
	x := newTestExecutor(3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := x.Run(ctx, "inc", func(context.Context) ([]Step, error) {
		return []Step{Update(repo, "a", "inc a", inc(nil, "a"))}, nil
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, value(t, repo, "a"))
}

func TestExecutor_Run_CancelAfterCommitStillCompletes(t *testing.T) {
	store := newFaultyStore()
	repo := repository.NewCollection[counter](store, domain.KindEvent)
	seed(t, repo, "a", "b")
	x := newTestExecutor(3)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	err := x.Run(ctx, "inc-both", func(context.Context) ([]Step, error) {
		return []Step{
			Update(repo, "a", "inc a", Mutation[counter]{
				Apply: func(_ context.Context, c *counter) error {
					c.N++
					cancel()
					return nil
				},
				Inverse: func(_ context.Context, c *counter) error { c.N--; return nil },
			}),
			Update(repo, "b", "inc b", inc(nil, "b")),
		}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, value(t, repo, "a"))
	assert.Equal(t, 1, value(t, repo, "b"))
}

func TestExecutor_Run_UnchangedStepIsSkipped(t *testing.T) {
	store := newFaultyStore()
	repo := repository.NewCollection[counter](store, domain.KindEvent)
	seed(t, repo, "a")
	x := newTestExecutor(3)

	_, before, err := repo.Get(context.Background(), "a")
	require.NoError(t, err)
	err = x.Run(context.Background(), "noop", func(context.Context) ([]Step, error) {
		return []Step{Update(repo, "a", "noop a", failing(ErrUnchanged))}, nil
	})
	require.NoError(t, err)
	_, after, err := repo.Get(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestExecutor_Run_CreateAndDeleteCompensate(t *testing.T) {
	store := newFaultyStore()
	repo := repository.NewCollection[counter](store, domain.KindEvent)
	seed(t, repo, "old")
	x := newTestExecutor(3)

	err := x.Run(context.Background(), "swap", func(context.Context) ([]Step, error) {
		return []Step{
			Create(repo, "new", "create new", &counter{N: 7}),
			Delete(repo, "old", "delete old", nil),
			Update(repo, "missing", "touch missing", inc(nil, "missing")),
		}, nil
	})
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, _, err = repo.Get(context.Background(), "new")
	require.ErrorIs(t, err, domain.ErrNotFound, "created aggregate is removed again")
	_, _, err = repo.Get(context.Background(), "old")
	require.NoError(t, err, "deleted aggregate is restored")
}

func TestExecutor_Run_DeleteIfPresentSkipsMissing(t *testing.T) {
	store := newFaultyStore()
	repo := repository.NewCollection[counter](store, domain.KindEvent)
	seed(t, repo, "kept")
	x := newTestExecutor(3)

	err := x.Run(context.Background(), "tidy", func(context.Context) ([]Step, error) {
		return []Step{
			Update(repo, "kept", "bump kept", inc(nil, "kept")),
			DeleteIfPresent(repo, "gone", "delete gone", nil),
		}, nil
	})
	require.NoError(t, err)

	assert.Equal(t, 1, value(t, repo, "kept"), "a missing aggregate does not undo earlier steps")
}

func TestExecutor_Run_BuildErrorAbortsBeforeWriting(t *testing.T) {
	store := newFaultyStore()
	x := newTestExecutor(3)
	err := x.Run(context.Background(), "invalid", func(context.Context) ([]Step, error) {
		return nil, domain.ErrRoleNotEligible
	})
	require.ErrorIs(t, err, domain.ErrRoleNotEligible)
	assert.Empty(t, store.saves)
}

func TestExecutor_Backoff(t *testing.T) {
	x := NewExecutor(nil, Options{MaxAttempts: 5, BaseBackoff: 10 * time.Millisecond, MaxBackoff: 50 * time.Millisecond})
	tests := []struct {
		attempt int
		nominal time.Duration
	}{
		{1, 10 * time.Millisecond},
		{2, 20 * time.Millisecond},
		{3, 40 * time.Millisecond},
		{4, 50 * time.Millisecond},
		{9, 50 * time.Millisecond},
	}
	for _, tt := range tests {
		for range 20 {
			d := x.backoff(tt.attempt)
			assert.GreaterOrEqual(t, d, tt.nominal*8/10, "attempt %d", tt.attempt)
			assert.LessOrEqual(t, d, tt.nominal*12/10, "attempt %d", tt.attempt)
		}
	}
}
