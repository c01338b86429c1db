/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datastore

import (
	"context"

	"github.com/suparena/tablestore/storagemodels"
)

// DataStore is the operation contract every backend implements. A store is
// bound to one table, one key schema and one item type.
type DataStore[T any] interface {
	// GetItem returns nil, nil when the item does not exist.
	GetItem(ctx context.Context, key storagemodels.Key, opts ...storagemodels.ReadOption) (*T, error)

	// PutItem fully replaces the item and returns the previous one, if any.
	PutItem(ctx context.Context, item T, opts ...storagemodels.WriteOption) (*T, error)

	// UpdateItem applies an update expression to an existing item.
	UpdateItem(ctx context.Context, key storagemodels.Key, update storagemodels.Update, opts ...storagemodels.WriteOption) (*T, error)

	// DeleteItem removes an existing item and returns it.
	DeleteItem(ctx context.Context, key storagemodels.Key, opts ...storagemodels.WriteOption) (*T, error)

	Query(partitionValue any) *QueryBuilder[T]

	Scan() *ScanBuilder[T]

	// ScanStream delivers the table as non-empty batches.
	ScanStream(ctx context.Context, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamBatch[T]

	BatchWrite(ctx context.Context, ops []storagemodels.WriteOperation[T]) error

	// BatchGet returns the items that exist, in no particular order.
	BatchGet(ctx context.Context, keys []storagemodels.Key, opts ...storagemodels.ReadOption) ([]T, error)

	TransactWrite(ctx context.Context, ops []storagemodels.TransactOperation[T]) error

	GetItemCount(ctx context.Context) (int64, error)

	// TableConfig returns the construction parameters of the store.
	TableConfig() storagemodels.TableConfig
}

// Executor runs resolved query and scan requests. Builders call it on Execute.
type Executor[T any] interface {
	ExecuteQuery(ctx context.Context, req *storagemodels.QueryRequest) (*storagemodels.Page[T], error)
	ExecuteScan(ctx context.Context, req *storagemodels.ScanRequest) (*storagemodels.Page[T], error)
}
