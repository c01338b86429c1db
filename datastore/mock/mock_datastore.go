/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package mock provides a DataStore decorator for testing error paths. It
// delegates to a real store (usually the in-memory one) and can be told to
// fail individual operations.
package mock

import (
	"context"
	"sync"

	"github.com/suparena/tablestore/datastore"
	"github.com/suparena/tablestore/storagemodels"
)

// Operation names used for error injection and call counting.
const (
	OpGet      = "get"
	OpPut      = "put"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpBatchGet = "batchGet"
	OpBatch    = "batchWrite"
	OpTransact = "transactWrite"
	OpCount    = "count"
)

// DataStore wraps a datastore.DataStore[T] and injects configured errors
type DataStore[T any] struct {
	inner datastore.DataStore[T]

	mu    sync.RWMutex
	errs  map[string]error
	calls map[string]int
}

var _ datastore.DataStore[struct{}] = (*DataStore[struct{}])(nil)

// New wraps inner
func New[T any](inner datastore.DataStore[T]) *DataStore[T] {
	return &DataStore[T]{
		inner: inner,
		errs:  make(map[string]error),
		calls: make(map[string]int),
	}
}

// WithError makes op return err until cleared with a nil err
func (m *DataStore[T]) WithError(op string, err error) *DataStore[T] {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.errs, op)
	} else {
		m.errs[op] = err
	}
	return m
}

// WithPutError makes PutItem return an error
func (m *DataStore[T]) WithPutError(err error) *DataStore[T] {
	return m.WithError(OpPut, err)
}

// WithUpdateError makes UpdateItem return an error
func (m *DataStore[T]) WithUpdateError(err error) *DataStore[T] {
	return m.WithError(OpUpdate, err)
}

// WithDeleteError makes DeleteItem return an error
func (m *DataStore[T]) WithDeleteError(err error) *DataStore[T] {
	return m.WithError(OpDelete, err)
}

// Calls returns how many times op was invoked, including failed calls
func (m *DataStore[T]) Calls(op string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[op]
}

// Reset clears injected errors and call counts
func (m *DataStore[T]) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs = make(map[string]error)
	m.calls = make(map[string]int)
}

func (m *DataStore[T]) enter(op string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[op]++
	return m.errs[op]
}

func (m *DataStore[T]) GetItem(ctx context.Context, key storagemodels.Key, opts ...storagemodels.ReadOption) (*T, error) {
	if err := m.enter(OpGet); err != nil {
		return nil, err
	}
	return m.inner.GetItem(ctx, key, opts...)
}

func (m *DataStore[T]) PutItem(ctx context.Context, item T, opts ...storagemodels.WriteOption) (*T, error) {
	if err := m.enter(OpPut); err != nil {
		return nil, err
	}
	return m.inner.PutItem(ctx, item, opts...)
}

func (m *DataStore[T]) UpdateItem(ctx context.Context, key storagemodels.Key, update storagemodels.Update, opts ...storagemodels.WriteOption) (*T, error) {
	if err := m.enter(OpUpdate); err != nil {
		return nil, err
	}
	return m.inner.UpdateItem(ctx, key, update, opts...)
}

func (m *DataStore[T]) DeleteItem(ctx context.Context, key storagemodels.Key, opts ...storagemodels.WriteOption) (*T, error) {
	if err := m.enter(OpDelete); err != nil {
		return nil, err
	}
	return m.inner.DeleteItem(ctx, key, opts...)
}

// Query and Scan are not intercepted; their builders execute on the wrapped store.
func (m *DataStore[T]) Query(partitionValue any) *datastore.QueryBuilder[T] {
	return m.inner.Query(partitionValue)
}

func (m *DataStore[T]) Scan() *datastore.ScanBuilder[T] {
	return m.inner.Scan()
}

func (m *DataStore[T]) ScanStream(ctx context.Context, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamBatch[T] {
	return m.inner.ScanStream(ctx, opts...)
}

func (m *DataStore[T]) BatchWrite(ctx context.Context, ops []storagemodels.WriteOperation[T]) error {
	if err := m.enter(OpBatch); err != nil {
		return err
	}
	return m.inner.BatchWrite(ctx, ops)
}

func (m *DataStore[T]) BatchGet(ctx context.Context, keys []storagemodels.Key, opts ...storagemodels.ReadOption) ([]T, error) {
	if err := m.enter(OpBatchGet); err != nil {
		return nil, err
	}
	return m.inner.BatchGet(ctx, keys, opts...)
}

func (m *DataStore[T]) TransactWrite(ctx context.Context, ops []storagemodels.TransactOperation[T]) error {
	if err := m.enter(OpTransact); err != nil {
		return err
	}
	return m.inner.TransactWrite(ctx, ops)
}

func (m *DataStore[T]) GetItemCount(ctx context.Context) (int64, error) {
	if err := m.enter(OpCount); err != nil {
		return 0, err
	}
	return m.inner.GetItemCount(ctx)
}

func (m *DataStore[T]) TableConfig() storagemodels.TableConfig {
	return m.inner.TableConfig()
}
