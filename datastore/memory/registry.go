/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package memory

import (
	"sort"
	"sync"

	"github.com/suparena/tablestore/errors"
	"github.com/suparena/tablestore/internal/codec"
)

// Registry holds the emulated tables. Stores built on the same registry and
// table name share data. The owner controls its lifetime; nothing is global.
type Registry struct {
	mu     sync.RWMutex
	tables map[string]*table
}

// table maps canonical keys to stored items. Every store operation holds mu
// for its whole duration.
type table struct {
	mu    sync.RWMutex
	items map[string]codec.Item
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tables: make(map[string]*table)}
}

// CreateTable creates name if it does not exist yet.
func (r *Registry) CreateTable(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tables[name]; !exists {
		r.tables[name] = &table{items: make(map[string]codec.Item)}
	}
}

// DeleteTable drops name and its items. Stores bound to it report
// TableNotFound afterwards.
func (r *Registry) DeleteTable(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tables[name]; !exists {
		return false
	}
	delete(r.tables, name)
	return true
}

// Clear removes every item of name.
func (r *Registry) Clear(name string) error {
	t, err := r.lookup(name)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items = make(map[string]codec.Item)
	return nil
}

// Reset empties every table but keeps the tables themselves.
func (r *Registry) Reset() {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, t := range r.tables {
		t.mu.Lock()
		t.items = make(map[string]codec.Item)
		t.mu.Unlock()
	}
}

// Tables returns the table names in sorted order.
func (r *Registry) Tables() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tables))
	for name := range r.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) lookup(name string) (*table, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, exists := r.tables[name]
	if !exists {
		return nil, errors.NewTableNotFoundError(name)
	}
	return t, nil
}
