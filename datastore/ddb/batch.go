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
	"github.com/suparena/tablestore/errors"
	"github.com/suparena/tablestore/internal/codec"
	"github.com/suparena/tablestore/storagemodels"
	"golang.org/x/sync/errgroup"
)

const (
	batchWriteChunkSize = 25
	batchGetChunkSize   = 100
)

// BatchWrite applies puts and deletes in chunks of 25, retrying unprocessed
// items with exponential backoff. Chunks are not atomic: after a failure the
// earlier chunks stay applied.
func (d *DataStore[T]) BatchWrite(ctx context.Context, ops []storagemodels.WriteOperation[T]) error {
	for i, chunk := range codec.Chunk(ops, batchWriteChunkSize) {
		requests := make([]types.WriteRequest, 0, len(chunk))
		seen := make(map[string]bool, len(chunk))
		for _, op := range chunk {
			var req types.WriteRequest
			var ck string
			if op.Item != nil {
				av, err := d.codec.EncodeForPut(*op.Item)
				if err != nil {
					return err
				}
				ck = codec.CanonicalKey(d.codec.KeyOf(av))
				req.PutRequest = &types.PutRequest{Item: av}
			} else {
				keyAV, err := d.codec.EncodeKey(op.Key)
				if err != nil {
					return err
				}
				ck = codec.CanonicalKey(keyAV)
				req.DeleteRequest = &types.DeleteRequest{Key: keyAV}
			}
			if seen[ck] {
				return errors.NewValidationError("", fmt.Sprintf("batch write contains duplicate key %s", ck))
			}
			seen[ck] = true
			requests = append(requests, req)
		}

		if err := d.writeChunk(ctx, requests); err != nil {
			return err
		}
		d.log.WithFields(logrus.Fields{"chunk": i, "size": len(requests)}).Debug("batch write chunk applied")
	}
	return nil
}

func (d *DataStore[T]) writeChunk(ctx context.Context, requests []types.WriteRequest) error {
	input := &sdk.BatchWriteItemInput{
		RequestItems: map[string][]types.WriteRequest{d.table.TableName: requests},
	}
	backoff := d.retry.baseDelay

	for attempt := 0; ; attempt++ {
		out, err := d.api.BatchWriteItem(ctx, input)
		var pending int
		switch {
		case err != nil && !isRetryableError(err):
			return d.translateError("batchWrite", "", err)
		case err != nil:
			pending = len(input.RequestItems[d.table.TableName])
		default:
			if len(out.UnprocessedItems) == 0 {
				return nil
			}
			pending = len(out.UnprocessedItems[d.table.TableName])
			input.RequestItems = out.UnprocessedItems
		}

		if attempt >= d.retry.maxRetries {
			return errors.NewUnknownError("batchWrite", fmt.Errorf("%d unprocessed items after %d retries", pending, d.retry.maxRetries))
		}
		d.log.WithFields(logrus.Fields{"attempt": attempt + 1, "pending": pending}).Debug("retrying unprocessed batch write items")

		if err := sleep(ctx, backoff); err != nil {
			return errors.NewUnknownError("batchWrite", err)
		}
		backoff = min(backoff*2, d.retry.maxDelay)
	}
}

// BatchGet fetches the items among keys that exist, in no particular order.
// Duplicate keys are fetched once; chunks of 100 keys run concurrently.
func (d *DataStore[T]) BatchGet(ctx context.Context, keys []storagemodels.Key, opts ...storagemodels.ReadOption) ([]T, error) {
	o := storagemodels.ApplyReadOptions(opts...)

	unique := make([]map[string]types.AttributeValue, 0, len(keys))
	seen := make(map[string]bool, len(keys))
	for _, key := range keys {
		keyAV, err := d.codec.EncodeKey(key)
		if err != nil {
			return nil, err
		}
		ck := codec.CanonicalKey(keyAV)
		if seen[ck] {
			continue
		}
		seen[ck] = true
		unique = append(unique, keyAV)
	}

	chunks := codec.Chunk(unique, batchGetChunkSize)
	results := make([][]map[string]types.AttributeValue, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.batchGetConcurrency)
	for i, chunk := range chunks {
		g.Go(func() error {
			items, err := d.getChunk(gctx, chunk, o.ConsistentRead)
			if err != nil {
				return err
			}
			results[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []map[string]types.AttributeValue
	for _, items := range results {
		all = append(all, items...)
	}
	return d.codec.DecodeItems(all)
}

func (d *DataStore[T]) getChunk(ctx context.Context, keys []map[string]types.AttributeValue, consistent bool) ([]map[string]types.AttributeValue, error) {
	input := &sdk.BatchGetItemInput{
		RequestItems: map[string]types.KeysAndAttributes{
			d.table.TableName: {Keys: keys, ConsistentRead: aws.Bool(consistent)},
		},
	}
	backoff := d.retry.baseDelay
	var items []map[string]types.AttributeValue

	for attempt := 0; ; attempt++ {
		out, err := d.api.BatchGetItem(ctx, input)
		var pending int
		switch {
		case err != nil && !isRetryableError(err):
			return nil, d.translateError("batchGet", "", err)
		case err != nil:
			pending = len(input.RequestItems[d.table.TableName].Keys)
		default:
			items = append(items, out.Responses[d.table.TableName]...)
			if len(out.UnprocessedKeys) == 0 {
				return items, nil
			}
			pending = len(out.UnprocessedKeys[d.table.TableName].Keys)
			input.RequestItems = out.UnprocessedKeys
		}

		if attempt >= d.retry.maxRetries {
			return nil, errors.NewUnknownError("batchGet", fmt.Errorf("%d unprocessed keys after %d retries", pending, d.retry.maxRetries))
		}
		d.log.WithFields(logrus.Fields{"attempt": attempt + 1, "pending": pending}).Debug("retrying unprocessed batch get keys")

		if err := sleep(ctx, backoff); err != nil {
			return nil, errors.NewUnknownError("batchGet", err)
		}
		backoff = min(backoff*2, d.retry.maxDelay)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
