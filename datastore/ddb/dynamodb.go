/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sirupsen/logrus"
	"github.com/suparena/tablestore/datastore"
	"github.com/suparena/tablestore/errors"
	"github.com/suparena/tablestore/internal/codec"
	"github.com/suparena/tablestore/logger"
	"github.com/suparena/tablestore/storagemodels"
)

const (
	defaultMaxRetries          = 5
	defaultBaseDelay           = 50 * time.Millisecond
	defaultMaxDelay            = 2 * time.Second
	defaultBatchGetConcurrency = 4
)

// DataStore implements datastore.DataStore[T] on top of AWS DynamoDB.
type DataStore[T any] struct {
	api   API
	table storagemodels.TableConfig
	codec *codec.Codec[T]
	log   logrus.FieldLogger
	retry retryPolicy

	batchGetConcurrency int
}

var _ datastore.DataStore[struct{}] = (*DataStore[struct{}])(nil)

type retryPolicy struct {
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

type options struct {
	log                 logrus.FieldLogger
	clock               func() time.Time
	retry               retryPolicy
	batchGetConcurrency int
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

// WithBatchRetry configures the retries of unprocessed batch items. The
// delay starts at baseDelay and doubles up to maxDelay.
func WithBatchRetry(maxRetries int, baseDelay, maxDelay time.Duration) Option {
	return func(o *options) {
		o.retry = retryPolicy{maxRetries: maxRetries, baseDelay: baseDelay, maxDelay: maxDelay}
	}
}

// WithBatchGetConcurrency caps the number of BatchGetItem calls in flight
func WithBatchGetConcurrency(n int) Option {
	return func(o *options) {
		o.batchGetConcurrency = n
	}
}

// New creates a store for cfg.TableName using api.
func New[T any](api API, cfg storagemodels.TableConfig, opts ...Option) (*DataStore[T], error) {
	if api == nil {
		return nil, fmt.Errorf("ddb: API client is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &options{
		retry: retryPolicy{
			maxRetries: defaultMaxRetries,
			baseDelay:  defaultBaseDelay,
			maxDelay:   defaultMaxDelay,
		},
		batchGetConcurrency: defaultBatchGetConcurrency,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.retry.maxRetries < 0 {
		o.retry.maxRetries = 0
	}
	if o.batchGetConcurrency < 1 {
		o.batchGetConcurrency = 1
	}

	return &DataStore[T]{
		api:   api,
		table: cfg,
		codec: codec.New[T](cfg, o.clock),
		log: logger.OrDiscard(o.log).WithFields(logrus.Fields{
			"backend": "dynamodb",
			"table":   cfg.TableName,
		}),
		retry:               o.retry,
		batchGetConcurrency: o.batchGetConcurrency,
	}, nil
}

// TableConfig returns the construction parameters of the store.
func (d *DataStore[T]) TableConfig() storagemodels.TableConfig {
	return d.table
}

// GetItem retrieves a single item. It returns nil when no item is found.
func (d *DataStore[T]) GetItem(ctx context.Context, key storagemodels.Key, opts ...storagemodels.ReadOption) (*T, error) {
	o := storagemodels.ApplyReadOptions(opts...)
	keyAV, err := d.codec.EncodeKey(key)
	if err != nil {
		return nil, err
	}

	out, err := d.api.GetItem(ctx, &sdk.GetItemInput{
		TableName:      aws.String(d.table.TableName),
		Key:            keyAV,
		ConsistentRead: aws.Bool(o.ConsistentRead),
	})
	if err != nil {
		return nil, d.translateError("get", "", err)
	}
	return d.decodeOptional(out.Item)
}

// PutItem stores item, replacing any item with the same key, and returns
// the replaced item.
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

	input := &sdk.PutItemInput{
		TableName:    aws.String(d.table.TableName),
		Item:         av,
		ReturnValues: types.ReturnValueAllOld,
	}
	var exprs expressionSet
	if cond != nil {
		input.ConditionExpression = aws.String(cond.Expression)
		exprs.add(cond)
	}
	input.ExpressionAttributeNames = exprs.Names()
	input.ExpressionAttributeValues = exprs.Values()

	out, err := d.api.PutItem(ctx, input)
	if err != nil {
		return nil, d.translateError("put", conditionText(cond), err)
	}
	return d.decodeOptional(out.Attributes)
}

// UpdateItem applies update to an existing item. The item must exist; the
// result is selected by WithReturnValues and defaults to ALL_NEW.
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
	cond, err := o.Condition.Resolve()
	if err != nil {
		return nil, err
	}

	var exprs expressionSet
	exprs.add(upd)
	guard := d.existsGuard(&exprs, cond)

	out, err := d.api.UpdateItem(ctx, &sdk.UpdateItemInput{
		TableName:                           aws.String(d.table.TableName),
		Key:                                 keyAV,
		UpdateExpression:                    aws.String(upd.Expression),
		ConditionExpression:                 aws.String(guard),
		ExpressionAttributeNames:            exprs.Names(),
		ExpressionAttributeValues:           exprs.Values(),
		ReturnValues:                        types.ReturnValue(rv),
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if err != nil {
		if isMissingItem(err) {
			return nil, errors.NewNotFoundError(d.table.TableName, codec.CanonicalKey(keyAV))
		}
		return nil, d.translateError("update", conditionText(cond), err)
	}
	if rv == storagemodels.ReturnNone {
		return nil, nil
	}
	return d.decodeOptional(out.Attributes)
}

// DeleteItem removes an existing item and returns it.
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

	var exprs expressionSet
	guard := d.existsGuard(&exprs, cond)

	out, err := d.api.DeleteItem(ctx, &sdk.DeleteItemInput{
		TableName:                           aws.String(d.table.TableName),
		Key:                                 keyAV,
		ConditionExpression:                 aws.String(guard),
		ExpressionAttributeNames:            exprs.Names(),
		ExpressionAttributeValues:           exprs.Values(),
		ReturnValues:                        types.ReturnValueAllOld,
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if err != nil {
		if isMissingItem(err) {
			return nil, errors.NewNotFoundError(d.table.TableName, codec.CanonicalKey(keyAV))
		}
		return nil, d.translateError("delete", conditionText(cond), err)
	}
	return d.decodeOptional(out.Attributes)
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

// GetItemCount returns the item count reported by DescribeTable. DynamoDB
// refreshes it roughly every six hours.
func (d *DataStore[T]) GetItemCount(ctx context.Context) (int64, error) {
	out, err := d.api.DescribeTable(ctx, &sdk.DescribeTableInput{
		TableName: aws.String(d.table.TableName),
	})
	if err != nil {
		return 0, d.translateError("count", "", err)
	}
	if out.Table == nil {
		return 0, nil
	}
	return aws.ToInt64(out.Table.ItemCount), nil
}

// existsGuard returns a condition requiring the item to exist, conjoined
// with cond when given.
func (d *DataStore[T]) existsGuard(exprs *expressionSet, cond *storagemodels.Expression) string {
	exprs.addName(partitionKeyName, d.table.KeySchema.PartitionKey.Name)
	guard := "attribute_exists(" + partitionKeyName + ")"
	if cond == nil {
		return guard
	}
	exprs.add(cond)
	return guard + " AND (" + cond.Expression + ")"
}

func (d *DataStore[T]) decodeOptional(av map[string]types.AttributeValue) (*T, error) {
	if len(av) == 0 {
		return nil, nil
	}
	return d.codec.DecodeItem(av)
}

func conditionText(cond *storagemodels.Expression) string {
	if cond == nil {
		return ""
	}
	return cond.Expression
}
