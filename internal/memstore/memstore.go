// Package memstore is an in-process table backend. It backs tests and the
// "memory" store mode; contents are lost on exit.
package memstore

import (
	"context"
	"sync"

	"athletics-registry/internal/tabular"
)

type Store struct {
	mu     sync.Mutex
	tables map[string]*tabular.Sheet
}

func New() *Store {
	return &Store{tables: map[string]*tabular.Sheet{}}
}

// Seed installs a table as-is, replacing any existing one.
func (s *Store) Seed(table string, sh *tabular.Sheet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[table] = sh.Clone()
}

func (s *Store) Read(ctx context.Context, table string) (*tabular.Sheet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sh, ok := s.tables[table]
	if !ok {
		return nil, tabular.ErrTableNotFound
	}
	return sh.Clone(), nil
}

func (s *Store) Create(ctx context.Context, table string, fields tabular.Fields) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sh, ok := s.tables[table]
	if !ok {
		if len(fields) == 0 {
			return tabular.ErrNoFields
		}
		sh = tabular.NewSheet(fields)
		s.tables[table] = sh
	}
	sh.Append(fields)
	return nil
}

func (s *Store) Update(ctx context.Context, table string, id int, fields tabular.Fields) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sh, ok := s.tables[table]
	if !ok {
		return tabular.ErrTableNotFound
	}
	return sh.Update(id, fields)
}

func (s *Store) Delete(ctx context.Context, table string, id int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sh, ok := s.tables[table]
	if !ok {
		return tabular.ErrTableNotFound
	}
	return sh.Delete(id)
}
