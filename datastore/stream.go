/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datastore

import (
	"context"
	"time"

	"github.com/suparena/tablestore/storagemodels"
)

// StreamScan pages through a full table scan in the background and delivers
// every non-empty page. The channel closes when the scan is exhausted, after
// an error batch, or when ctx is cancelled; callers that stop reading early
// must cancel ctx.
func StreamScan[T any](ctx context.Context, exec Executor[T], opts ...storagemodels.StreamOption) <-chan storagemodels.StreamBatch[T] {
	options := storagemodels.DefaultStreamOptions()
	for _, opt := range opts {
		opt(&options)
	}
	if options.BufferSize < 0 {
		options.BufferSize = 0
	}

	resultCh := make(chan storagemodels.StreamBatch[T], options.BufferSize)
	go streamWorker(ctx, exec, options, resultCh)
	return resultCh
}

func streamWorker[T any](
	ctx context.Context,
	exec Executor[T],
	options storagemodels.StreamOptions,
	resultCh chan<- storagemodels.StreamBatch[T],
) {
	defer close(resultCh)

	var itemsProcessed int64
	var pageNumber int
	startTime := time.Now()

	reportProgress := func(lastKey storagemodels.Token) {
		if options.ProgressHandler == nil {
			return
		}
		progress := storagemodels.StreamProgress{
			ItemsProcessed: itemsProcessed,
			PagesProcessed: pageNumber,
			LastKey:        lastKey,
			StartTime:      startTime,
		}
		if elapsed := time.Since(startTime).Seconds(); elapsed > 0 {
			progress.CurrentRate = float64(itemsProcessed) / elapsed
		}
		options.ProgressHandler(progress)
	}

	send := func(batch storagemodels.StreamBatch[T]) bool {
		select {
		case <-ctx.Done():
			return false
		case resultCh <- batch:
			return true
		}
	}

	filter, err := options.Filter.Resolve()
	if err != nil {
		send(storagemodels.StreamBatch[T]{Err: err, Meta: storagemodels.StreamMeta{Timestamp: time.Now()}})
		return
	}

	req := &storagemodels.ScanRequest{
		Filter:         filter,
		Limit:          options.PageSize,
		ConsistentRead: options.ConsistentRead,
	}
	for {
		if ctx.Err() != nil {
			return
		}

		page, err := exec.ExecuteScan(ctx, req)
		if err != nil {
			send(storagemodels.StreamBatch[T]{
				Err:  err,
				Meta: storagemodels.StreamMeta{PageNumber: pageNumber, Timestamp: time.Now()},
			})
			return
		}
		pageNumber++

		if len(page.Items) > 0 {
			batch := storagemodels.StreamBatch[T]{
				Items: page.Items,
				Meta: storagemodels.StreamMeta{
					PageNumber:   pageNumber,
					ScannedCount: page.ScannedCount,
					Timestamp:    time.Now(),
				},
			}
			if !send(batch) {
				return
			}
			itemsProcessed += int64(len(page.Items))
		}
		reportProgress(page.LastEvaluatedKey)

		if !page.HasMore() {
			return
		}
		req.StartKey = page.LastEvaluatedKey
	}
}
