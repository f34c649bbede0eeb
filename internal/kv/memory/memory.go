package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/joho/godotenv"

	"dompet/internal/kv"
)

type Store struct {
	mu     sync.Mutex
	values map[string]string
	closed bool
}

func New(seed map[string]string) *Store {
	values := make(map[string]string, len(seed))
	for k, v := range seed {
		values[k] = v
	}
	return &Store{values: values}
}

// NewFromFile seeds the store from a KEY=VALUE file such as
//
//	balance=150000
//	transactions=[]
//
// An empty path yields an empty store.
func NewFromFile(path string) (*Store, error) {
	if path == "" {
		return New(nil), nil
	}
	seed, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file %s: %w", path, err)
	}
	return New(seed), nil
}

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", false, kv.ErrClosed
	}
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return kv.ErrClosed
	}
	s.values[key] = value
	return nil
}

// SetMany applies all entries under one lock.
func (s *Store) SetMany(_ context.Context, entries map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return kv.ErrClosed
	}
	for k, v := range entries {
		s.values[k] = v
	}
	return nil
}

// Update holds the store lock while fn runs.
func (s *Store) Update(_ context.Context, fn kv.UpdateFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return kv.ErrClosed
	}
	entries, err := fn(func(key string) (string, bool, error) {
		v, ok := s.values[key]
		return v, ok, nil
	})
	if err != nil {
		return err
	}
	for k, v := range entries {
		s.values[k] = v
	}
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return kv.ErrClosed
	}
	delete(s.values, key)
	return nil
}

// Ping fails once the store is closed.
func (s *Store) Ping(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return kv.ErrClosed
	}
	return nil
}

// Keys returns the number of stored keys.
func (s *Store) Keys() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.values)
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
