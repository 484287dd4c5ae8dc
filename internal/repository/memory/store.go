// Package memory provides an in-process, versioned document store.
package memory

import (
	"context"
	"sort"
	"sync"

	"congresy/internal/domain"
)

type entry struct {
	version int64
	body    []byte
}

// Store keeps documents in maps guarded by a single mutex. Bodies are copied on the way in and out.
type Store struct {
	mu   sync.RWMutex
	docs map[domain.Kind]map[string]entry
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{docs: make(map[domain.Kind]map[string]entry)}
}

func (s *Store) Get(ctx context.Context, kind domain.Kind, id string) (*domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.docs[kind][id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &domain.Document{Kind: kind, ID: id, Version: e.version, Body: clone(e.body)}, nil
}

func (s *Store) Save(ctx context.Context, kind domain.Kind, id string, version int64, body []byte) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	byID, ok := s.docs[kind]
	if !ok {
		byID = make(map[string]entry)
		s.docs[kind] = byID
	}
	current, exists := byID[id]
	switch {
	case version == 0 && exists:
		return 0, domain.ErrVersionConflict
	case version != 0 && (!exists || current.version != version):
		return 0, domain.ErrVersionConflict
	}
	next := current.version + 1
	byID[id] = entry{version: next, body: clone(body)}
	return next, nil
}

func (s *Store) Delete(ctx context.Context, kind domain.Kind, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[kind][id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.docs[kind], id)
	return nil
}

func (s *Store) List(ctx context.Context, kind domain.Kind) ([]*domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Document, 0, len(s.docs[kind]))
	for id, e := range s.docs[kind] {
		out = append(out, &domain.Document{Kind: kind, ID: id, Version: e.version, Body: clone(e.body)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func clone(b []byte) []byte {
	return append([]byte(nil), b...)
}
