package services

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"congresy/internal/domain"
)

// getOne reads one aggregate, wrapping a miss so that errors.Is(err, domain.ErrNotFound) still holds.
func getOne[T any](ctx context.Context, repo domain.Repository[T], id string) (*T, error) {
	v, _, err := repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%s %s: %w", repo.Kind(), id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get %s: %w", repo.Kind(), err)
	}
	return v, nil
}

// getMany reads every id in order, skipping ids whose aggregate no longer exists.
func getMany[T any](ctx context.Context, repo domain.Repository[T], ids []string) ([]*T, error) {
	out := make([]*T, 0, len(ids))
	for _, id := range ids {
		v, _, err := repo.Get(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get %s: %w", repo.Kind(), err)
		}
		out = append(out, v)
	}
	return out, nil
}

// union returns a followed by the ids of b not already in a.
func union(a, b []string) []string {
	out := slices.Clone(a)
	for _, id := range b {
		out, _ = domain.AddID(out, id)
	}
	return out
}
