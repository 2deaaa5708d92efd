package kv

import (
	"context"
	"sync"
)

// InmemStore is a linearizable Store kept in memory.
type InmemStore struct {
	sync.Mutex
	values map[string]int64
}

// NewInmemStore ...
func NewInmemStore() *InmemStore {
	return &InmemStore{
		values: make(map[string]int64),
	}
}

// Get implements the Store interface.
func (s *InmemStore) Get(ctx context.Context, key string) (int64, error) {
	s.Lock()
	defer s.Unlock()

	v, ok := s.values[key]
	if !ok {
		return 0, notFound(key)
	}
	return v, nil
}

// Put implements the Store interface.
func (s *InmemStore) Put(ctx context.Context, key string, value int64) error {
	s.Lock()
	defer s.Unlock()

	s.values[key] = value
	return nil
}

// CompareAndSwap implements the Store interface.
func (s *InmemStore) CompareAndSwap(ctx context.Context, key string, from, to int64, create bool) error {
	s.Lock()
	defer s.Unlock()

	v, ok := s.values[key]
	switch {
	case !ok && create:
		s.values[key] = to
		return nil
	case !ok:
		return notFound(key)
	case v != from:
		return conflict(key, from, v)
	}

	s.values[key] = to
	return nil
}

// Len returns the number of keys.
func (s *InmemStore) Len() int {
	s.Lock()
	defer s.Unlock()
	return len(s.values)
}
