package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"congresy/internal/domain"
)

func TestStore_SaveCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	v1, err := s.Save(ctx, domain.KindEvent, "ev-1", 0, []byte(`{"a":1}`))
	require.NoError(t, err)
	assert.Equal(t, int64(1), v1)

	_, err = s.Save(ctx, domain.KindEvent, "ev-1", 0, []byte(`{"a":2}`))
	require.ErrorIs(t, err, domain.ErrVersionConflict, "create over an existing id")

	v2, err := s.Save(ctx, domain.KindEvent, "ev-1", v1, []byte(`{"a":2}`))
	require.NoError(t, err)
	assert.Equal(t, int64(2), v2)

	_, err = s.Save(ctx, domain.KindEvent, "ev-1", v1, []byte(`{"a":3}`))
	require.ErrorIs(t, err, domain.ErrVersionConflict, "stale version")

	_, err = s.Save(ctx, domain.KindEvent, "missing", 4, []byte(`{}`))
	require.ErrorIs(t, err, domain.ErrVersionConflict)

	doc, err := s.Get(ctx, domain.KindEvent, "ev-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), doc.Version)
	assert.JSONEq(t, `{"a":2}`, string(doc.Body))
}

func TestStore_KindsAreIsolated(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	_, err := s.Save(ctx, domain.KindEvent, "x", 0, []byte(`{}`))
	require.NoError(t, err)

	_, err = s.Get(ctx, domain.KindActor, "x")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_DeleteAndList(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	for _, id := range []string{"c", "a", "b"} {
		_, err := s.Save(ctx, domain.KindFolder, id, 0, []byte(`{}`))
		require.NoError(t, err)
	}

	require.NoError(t, s.Delete(ctx, domain.KindFolder, "b"))
	require.ErrorIs(t, s.Delete(ctx, domain.KindFolder, "b"), domain.ErrNotFound)

	docs, err := s.List(ctx, domain.KindFolder)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "a", docs[0].ID)
	assert.Equal(t, "c", docs[1].ID)
}

func TestStore_BodiesAreCopied(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	body := []byte(`{"n":1}`)
	_, err := s.Save(ctx, domain.KindMessage, "m", 0, body)
	require.NoError(t, err)
	body[2] = 'x'

	doc, err := s.Get(ctx, domain.KindMessage, "m")
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":1}`, string(doc.Body))
}

func TestStore_ConcurrentWritersOnlyOneWinsPerVersion(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	_, err := s.Save(ctx, domain.KindEvent, "ev", 0, []byte(`{}`))
	require.NoError(t, err)

	const writers = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Save(ctx, domain.KindEvent, "ev", 1, []byte(`{}`)); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewStore()
	_, err := s.Save(ctx, domain.KindEvent, "ev", 0, []byte(`{}`))
	require.ErrorIs(t, err, context.Canceled)
}
