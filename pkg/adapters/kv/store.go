// Package kv is a small document store: each key holds one JSON document that
// is read and replaced as a whole. All access to a key goes through the Store,
// which runs operations on the same key one at a time.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// ErrDocumentNotFound is returned by a Backend when the key has never been written.
var ErrDocumentNotFound = errors.New("document not found")

// Backend persists raw documents. Save must replace the previous document
// atomically: a concurrent Load sees either the old or the new body.
type Backend interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	Close() error
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// Store serializes operations per key on top of a Backend.
type Store struct {
	backend Backend

	mu    sync.Mutex
	locks map[string]*keyLock
}

func NewStore(backend Backend) *Store {
	return &Store{backend: backend, locks: map[string]*keyLock{}}
}

func (s *Store) Close() error {
	return s.backend.Close()
}

// lock blocks until the caller owns key and returns the release func.
// Entries are dropped once nobody holds or waits for them.
func (s *Store) lock(key string) func() {
	s.mu.Lock()
	l, ok := s.locks[key]
	if !ok {
		l = &keyLock{}
		s.locks[key] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, key)
		}
		s.mu.Unlock()
	}
}

// Read returns the document stored under key. When the key is absent the
// seed value is written and returned.
func Read[T any](ctx context.Context, s *Store, key string, seed func() T) (T, error) {
	unlock := s.lock(key)
	defer unlock()

	v, found, err := load(ctx, s, key, seed)
	if err != nil || found {
		return v, err
	}
	if err := save(ctx, s, key, v); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

// Update loads the document under key (or the seed), applies fn and persists
// the result. Nothing is written when fn fails.
func Update[T any](ctx context.Context, s *Store, key string, seed func() T, fn func(T) (T, error)) (T, error) {
	unlock := s.lock(key)
	defer unlock()

	var zero T
	v, _, err := load(ctx, s, key, seed)
	if err != nil {
		return zero, err
	}
	v, err = fn(v)
	if err != nil {
		return zero, err
	}
	if err := save(ctx, s, key, v); err != nil {
		return zero, err
	}
	return v, nil
}

// Write replaces the document under key.
func Write[T any](ctx context.Context, s *Store, key string, v T) error {
	unlock := s.lock(key)
	defer unlock()
	return save(ctx, s, key, v)
}

func load[T any](ctx context.Context, s *Store, key string, seed func() T) (T, bool, error) {
	var v T
	data, err := s.backend.Load(ctx, key)
	if errors.Is(err, ErrDocumentNotFound) {
		return seed(), false, nil
	}
	if err != nil {
		return v, false, fmt.Errorf("load %s: %w", key, err)
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, false, fmt.Errorf("decode %s: %w", key, err)
	}
	return v, true, nil
}

func save[T any](ctx context.Context, s *Store, key string, v T) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	data = append(data, '\n')
	if err := s.backend.Save(ctx, key, data); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}
