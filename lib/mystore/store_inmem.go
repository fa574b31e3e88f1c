package mystore

import (
	"context"
	"maps"
	"sync"
)

// inmemTxKey marks the context of a transaction that holds the lock of one specific store
type inmemTxKey struct {
	store any
}

type InMemoryStore[T any] struct {
	sync.Mutex
	Items map[string]T
}

func NewInMemoryStore[T any](c context.Context) (*InMemoryStore[T], func(), error) {
	return &InMemoryStore[T]{
		Items: make(map[string]T),
	}, func() {}, nil
}

func (s *InMemoryStore[T]) holdsLock(c context.Context) bool {
	return c.Value(inmemTxKey{store: s}) != nil
}

func (s *InMemoryStore[T]) RunInTransaction(c context.Context, f func(c context.Context) error) error {
	if s.holdsLock(c) {
		// nested: already inside our own transaction
		return f(c)
	}

	s.Lock()
	defer s.Unlock()

	snapshot := maps.Clone(s.Items)
	err := f(context.WithValue(c, inmemTxKey{store: s}, true))
	if err != nil {
		s.Items = snapshot
		return err
	}
	return nil
}

func (s *InMemoryStore[T]) Put(c context.Context, uid string, value T) error {
	if !s.holdsLock(c) {
		s.Lock()
		defer s.Unlock()
	}

	s.Items[uid] = value

	return nil
}

func (s *InMemoryStore[T]) Get(c context.Context, uid string) (T, bool, error) {
	if !s.holdsLock(c) {
		s.Lock()
		defer s.Unlock()
	}

	result, exists := s.Items[uid]

	return result, exists, nil
}

func (s *InMemoryStore[T]) List(c context.Context) ([]T, error) {
	if !s.holdsLock(c) {
		s.Lock()
		defer s.Unlock()
	}

	result := make([]T, 0, len(s.Items))
	for _, v := range s.Items {
		result = append(result, v)
	}

	return result, nil
}

func (s *InMemoryStore[T]) Query(c context.Context, filters []Filter, orderByField string) ([]T, error) {
	all, err := s.List(c)
	if err != nil {
		return nil, err
	}

	return applyFilters(all, filters, orderByField)
}
