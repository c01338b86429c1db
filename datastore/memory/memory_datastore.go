/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package memory provides an in-process emulator of the DynamoDB backend.
package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/suparena/tablestore/datastore"
	"github.com/suparena/tablestore/errors"
	"github.com/suparena/tablestore/expression"
	"github.com/suparena/tablestore/internal/codec"
	"github.com/suparena/tablestore/logger"
	"github.com/suparena/tablestore/storagemodels"
)

const (
	batchWriteChunkSize = 25
	batchGetChunkSize   = 100
	maxTransactItems    = 100
)

// DataStore is the in-memory implementation of datastore.DataStore[T].
type DataStore[T any] struct {
	registry *Registry
	table    storagemodels.TableConfig
	codec    *codec.Codec[T]
	log      logrus.FieldLogger
}

var _ datastore.DataStore[struct{}] = (*DataStore[struct{}])(nil)

type options struct {
	log   logrus.FieldLogger
	clock func() time.Time
}

// Option configures a DataStore
type Option func(*options)

// WithLogger sets the logger
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *options) {
		o.log = l
	}
}

// WithClock overrides the clock used for createdAt/updatedAt
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// New creates a store bound to cfg.TableName in registry, creating the table
// when needed.
func New[T any](registry *Registry, cfg storagemodels.TableConfig, opts ...Option) (*DataStore[T], error) {
	if registry == nil {
		return nil, fmt.Errorf("memory: registry is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	registry.CreateTable(cfg.TableName)

	log := logger.OrDiscard(o.log).WithFields(logrus.Fields{
		"backend": "memory",
		"table":   cfg.TableName,
	})
	log.Debug("in-memory store ready")

	return &DataStore[T]{
		registry: registry,
		table:    cfg,
		codec:    codec.New[T](cfg, o.clock),
		log:      log,
	}, nil
}

// TableConfig returns the construction parameters of the store.
func (d *DataStore[T]) TableConfig() storagemodels.TableConfig {
	return d.table
}

// GetItem retrieves an item by key
func (d *DataStore[T]) GetItem(ctx context.Context, key storagemodels.Key, opts ...storagemodels.ReadOption) (*T, error) {
	keyAV, err := d.codec.EncodeKey(key)
	if err != nil {
		return nil, err
	}
	t, err := d.registry.lookup(d.table.TableName)
	if err != nil {
		return nil, err
	}

	t.mu.RLock()
	stored := expression.CloneItem(t.items[codec.CanonicalKey(keyAV)])
	t.mu.RUnlock()

	return d.codec.DecodeItem(stored)
}

// PutItem replaces an item and returns the previous one
func (d *DataStore[T]) PutItem(ctx context.Context, item T, opts ...storagemodels.WriteOption) (*T, error) {
	o := storagemodels.ApplyWriteOptions(opts...)
	av, err := d.codec.EncodeForPut(item)
	if err != nil {
		return nil, err
	}
	cond, err := o.Condition.Resolve()
	if err != nil {
		return nil, err
	}
	t, err := d.registry.lookup(d.table.TableName)
	if err != nil {
		return nil, err
	}
	ck := codec.CanonicalKey(d.codec.KeyOf(av))

	t.mu.Lock()
	previous := t.items[ck]
	if !evaluate(cond, previous) {
		t.mu.Unlock()
		return nil, errors.NewConditionFailedError("put", cond.Expression)
	}
	t.items[ck] = av
	t.mu.Unlock()

	return d.codec.DecodeItem(previous)
}

// UpdateItem applies an update expression to an existing item
func (d *DataStore[T]) UpdateItem(ctx context.Context, key storagemodels.Key, update storagemodels.Update, opts ...storagemodels.WriteOption) (*T, error) {
	o := storagemodels.ApplyWriteOptions(opts...)
	rv, err := codec.ReturnValues(o.ReturnValues, storagemodels.ReturnAllNew)
	if err != nil {
		return nil, err
	}
	keyAV, err := d.codec.EncodeKey(key)
	if err != nil {
		return nil, err
	}
	upd, err := d.codec.ResolveUpdate(update)
	if err != nil {
		return nil, err
	}
	parsed := expression.ParseUpdate(upd.Expression)
	cond, err := o.Condition.Resolve()
	if err != nil {
		return nil, err
	}
	t, err := d.registry.lookup(d.table.TableName)
	if err != nil {
		return nil, err
	}
	ck := codec.CanonicalKey(keyAV)

	t.mu.Lock()
	existing := t.items[ck]
	if existing == nil {
		t.mu.Unlock()
		return nil, errors.NewNotFoundError(d.table.TableName, ck)
	}
	if !evaluate(cond, existing) {
		t.mu.Unlock()
		return nil, errors.NewConditionFailedError("update", cond.Expression)
	}
	updated := applyUpdate(existing, upd, parsed)
	// The result must decode and validate before it is stored.
	decoded, err := d.codec.DecodeItem(updated)
	if err != nil {
		t.mu.Unlock()
		return nil, err
	}
	t.items[ck] = updated
	t.mu.Unlock()

	switch rv {
	case storagemodels.ReturnAllOld:
		return d.codec.DecodeItem(existing)
	case storagemodels.ReturnAllNew:
		return decoded, nil
	}
	return nil, nil
}

// DeleteItem removes an existing item and returns it
func (d *DataStore[T]) DeleteItem(ctx context.Context, key storagemodels.Key, opts ...storagemodels.WriteOption) (*T, error) {
	o := storagemodels.ApplyWriteOptions(opts...)
	keyAV, err := d.codec.EncodeKey(key)
	if err != nil {
		return nil, err
	}
	cond, err := o.Condition.Resolve()
	if err != nil {
		return nil, err
	}
	t, err := d.registry.lookup(d.table.TableName)
	if err != nil {
		return nil, err
	}
	ck := codec.CanonicalKey(keyAV)

	t.mu.Lock()
	existing := t.items[ck]
	if existing == nil {
		t.mu.Unlock()
		return nil, errors.NewNotFoundError(d.table.TableName, ck)
	}
	if !evaluate(cond, existing) {
		t.mu.Unlock()
		return nil, errors.NewConditionFailedError("delete", cond.Expression)
	}
	delete(t.items, ck)
	t.mu.Unlock()

	return d.codec.DecodeItem(existing)
}

// Query starts a query builder on partitionValue
func (d *DataStore[T]) Query(partitionValue any) *datastore.QueryBuilder[T] {
	return datastore.NewQueryBuilder[T](d, d.table, partitionValue)
}

// Scan starts a scan builder
func (d *DataStore[T]) Scan() *datastore.ScanBuilder[T] {
	return datastore.NewScanBuilder[T](d, d.table)
}

// ScanStream streams the table in non-empty batches
func (d *DataStore[T]) ScanStream(ctx context.Context, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamBatch[T] {
	return datastore.StreamScan[T](ctx, d, opts...)
}

// BatchWrite applies puts and deletes in chunks of 25. Each chunk is applied
// atomically; a failing chunk leaves earlier chunks applied.
func (d *DataStore[T]) BatchWrite(ctx context.Context, ops []storagemodels.WriteOperation[T]) error {
	t, err := d.registry.lookup(d.table.TableName)
	if err != nil {
		return err
	}

	for i, chunk := range codec.Chunk(ops, batchWriteChunkSize) {
		type write struct {
			ck   string
			item codec.Item // nil for deletes
		}
		writes := make([]write, 0, len(chunk))
		seen := make(map[string]bool, len(chunk))
		for _, op := range chunk {
			var w write
			if op.Item != nil {
				av, err := d.codec.EncodeForPut(*op.Item)
				if err != nil {
					return err
				}
				w = write{ck: codec.CanonicalKey(d.codec.KeyOf(av)), item: av}
			} else {
				keyAV, err := d.codec.EncodeKey(op.Key)
				if err != nil {
					return err
				}
				w = write{ck: codec.CanonicalKey(keyAV)}
			}
			if seen[w.ck] {
				return errors.NewValidationError("", fmt.Sprintf("batch write contains duplicate key %s", w.ck))
			}
			seen[w.ck] = true
			writes = append(writes, w)
		}

		t.mu.Lock()
		for _, w := range writes {
			if w.item == nil {
				delete(t.items, w.ck)
			} else {
				t.items[w.ck] = w.item
			}
		}
		t.mu.Unlock()

		d.log.WithFields(logrus.Fields{"chunk": i, "size": len(writes)}).Debug("batch write chunk applied")
	}
	return nil
}

// BatchGet returns the items that exist among keys
func (d *DataStore[T]) BatchGet(ctx context.Context, keys []storagemodels.Key, opts ...storagemodels.ReadOption) ([]T, error) {
	cks, err := uniqueKeys(d.codec, keys)
	if err != nil {
		return nil, err
	}
	t, err := d.registry.lookup(d.table.TableName)
	if err != nil {
		return nil, err
	}

	var found []codec.Item
	for _, chunk := range codec.Chunk(cks, batchGetChunkSize) {
		t.mu.RLock()
		for _, ck := range chunk {
			if item, ok := t.items[ck]; ok {
				found = append(found, expression.CloneItem(item))
			}
		}
		t.mu.RUnlock()
	}
	return d.codec.DecodeItems(found)
}

// GetItemCount returns the number of stored items
func (d *DataStore[T]) GetItemCount(ctx context.Context) (int64, error) {
	t, err := d.registry.lookup(d.table.TableName)
	if err != nil {
		return 0, err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return int64(len(t.items)), nil
}

func uniqueKeys[T any](c *codec.Codec[T], keys []storagemodels.Key) ([]string, error) {
	cks := make([]string, 0, len(keys))
	seen := make(map[string]bool, len(keys))
	for _, key := range keys {
		keyAV, err := c.EncodeKey(key)
		if err != nil {
			return nil, err
		}
		ck := codec.CanonicalKey(keyAV)
		if !seen[ck] {
			seen[ck] = true
			cks = append(cks, ck)
		}
	}
	return cks, nil
}

// evaluate checks cond against item; a nil condition passes.
func evaluate(cond *storagemodels.Expression, item codec.Item) bool {
	if cond == nil {
		return true
	}
	return expression.EvaluateCondition(cond.Expression, item, cond.Names, cond.Values)
}

// applyUpdate returns an updated copy of item.
func applyUpdate(item codec.Item, upd *storagemodels.Expression, parsed *expression.UpdateNode) codec.Item {
	working := expression.CloneItem(item)
	e := &expression.Evaluator{Names: upd.Names, Values: upd.Values}
	e.ApplyUpdate(working, parsed)
	return working
}
