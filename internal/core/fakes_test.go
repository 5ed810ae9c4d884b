package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// memStore is an in-memory Store. failChunk makes the n-th UpsertProducts
// call (1-based) fail; missing lists columns the table lacks.
type memStore struct {
	mu        sync.Mutex
	rows      map[string]Product
	calls     int
	failChunk map[int]bool
	missing   map[string]bool
	columnErr error
	priorErr  error
	deleteErr error
	deleted   int
	written   [][]string
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[string]Product), failChunk: map[int]bool{}, missing: map[string]bool{}}
}

func (s *memStore) PriorPrices(ctx context.Context) (map[string]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.priorErr != nil {
		return nil, s.priorErr
	}
	out := make(map[string]float64, len(s.rows))
	for id, p := range s.rows {
		out[id] = p.PriceWithTax
	}
	return out, nil
}

func (s *memStore) HasColumn(ctx context.Context, column string) (bool, error) {
	if s.columnErr != nil {
		return false, s.columnErr
	}
	return !s.missing[column], nil
}

func (s *memStore) UpsertProducts(ctx context.Context, products []Product, columns []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.written = append(s.written, columns)
	if s.failChunk[s.calls] {
		return errors.New(`new row for relation "products" violates check constraint`)
	}
	for _, col := range columns {
		if s.missing[col] {
			return fmt.Errorf("column %q does not exist", col)
		}
	}
	for _, p := range products {
		s.rows[p.Identifier] = p
	}
	return nil
}

func (s *memStore) DeleteAll(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil {
		return 0, s.deleteErr
	}
	n := len(s.rows)
	s.rows = make(map[string]Product)
	s.deleted++
	return int64(n), nil
}

func (s *memStore) ids() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.rows))
	for id := range s.rows {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// mapSource serves partitions from memory. A partition in errs fails with
// that error; one missing from both maps returns ErrEmptySource.
type mapSource struct {
	mu    sync.Mutex
	tabs  map[string]string
	errs  map[string]error
	block chan struct{}
	calls []string
}

func (s *mapSource) Fetch(ctx context.Context, partition string) (string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, partition)
	s.mu.Unlock()

	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err, ok := s.errs[partition]; ok {
		return "", err
	}
	text, ok := s.tabs[partition]
	if !ok {
		return "", fmt.Errorf("fetch %q: %w", partition, ErrEmptySource)
	}
	return text, nil
}
