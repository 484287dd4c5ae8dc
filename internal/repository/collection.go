// Package repository adapts a domain.DocumentStore into typed per-aggregate collections.
package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"congresy/internal/domain"
)

// Collection is a JSON-encoded view of one aggregate kind.
type Collection[T any] struct {
	store domain.DocumentStore
	kind  domain.Kind
}

// NewCollection returns a collection of kind backed by store.
func NewCollection[T any](store domain.DocumentStore, kind domain.Kind) *Collection[T] {
	return &Collection[T]{store: store, kind: kind}
}

func (c *Collection[T]) Kind() domain.Kind {
	return c.kind
}

func (c *Collection[T]) Get(ctx context.Context, id string) (*T, int64, error) {
	doc, err := c.store.Get(ctx, c.kind, id)
	if err != nil {
		return nil, 0, err
	}
	v := new(T)
	if err := json.Unmarshal(doc.Body, v); err != nil {
		return nil, 0, fmt.Errorf("decode %s %s: %w", c.kind, id, err)
	}
	return v, doc.Version, nil
}

func (c *Collection[T]) Save(ctx context.Context, id string, version int64, value *T) (int64, error) {
	body, err := json.Marshal(value)
	if err != nil {
		return 0, fmt.Errorf("encode %s %s: %w", c.kind, id, err)
	}
	return c.store.Save(ctx, c.kind, id, version, body)
}

func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	return c.store.Delete(ctx, c.kind, id)
}

func (c *Collection[T]) List(ctx context.Context) ([]domain.Versioned[T], error) {
	docs, err := c.store.List(ctx, c.kind)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Versioned[T], 0, len(docs))
	for _, doc := range docs {
		v := new(T)
		if err := json.Unmarshal(doc.Body, v); err != nil {
			return nil, fmt.Errorf("decode %s %s: %w", c.kind, doc.ID, err)
		}
		out = append(out, domain.Versioned[T]{Value: v, Version: doc.Version})
	}
	return out, nil
}

// Collections bundles one collection per aggregate kind.
type Collections struct {
	Actors      domain.Repository[domain.Actor]
	Accounts    domain.Repository[domain.UserAccount]
	Conferences domain.Repository[domain.Conference]
	Events      domain.Repository[domain.Event]
	Folders     domain.Repository[domain.Folder]
	Messages    domain.Repository[domain.Message]
	Posts       domain.Repository[domain.Post]
}

// NewCollections builds every collection over the same store.
func NewCollections(store domain.DocumentStore) *Collections {
	return &Collections{
		Actors:      NewCollection[domain.Actor](store, domain.KindActor),
		Accounts:    NewCollection[domain.UserAccount](store, domain.KindAccount),
		Conferences: NewCollection[domain.Conference](store, domain.KindConference),
		Events:      NewCollection[domain.Event](store, domain.KindEvent),
		Folders:     NewCollection[domain.Folder](store, domain.KindFolder),
		Messages:    NewCollection[domain.Message](store, domain.KindMessage),
		Posts:       NewCollection[domain.Post](store, domain.KindPost),
	}
}
