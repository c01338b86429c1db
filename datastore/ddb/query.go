/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sirupsen/logrus"
	"github.com/suparena/tablestore/errors"
	"github.com/suparena/tablestore/storagemodels"
)

// ExecuteQuery runs a query. Without a limit it returns one DynamoDB page.
// With a limit it keeps paging until limit items matched the filter or the
// partition is exhausted.
func (d *DataStore[T]) ExecuteQuery(ctx context.Context, req *storagemodels.QueryRequest) (*storagemodels.Page[T], error) {
	var exprs expressionSet
	keyCond, err := keyCondition(&exprs, req)
	if err != nil {
		return nil, errors.NewValidationError("sortKey", err.Error())
	}

	input := &sdk.QueryInput{
		TableName:              aws.String(d.table.TableName),
		KeyConditionExpression: aws.String(keyCond),
		ScanIndexForward:       aws.Bool(req.ScanForward),
		ConsistentRead:         aws.Bool(req.ConsistentRead),
		ExclusiveStartKey:      req.StartKey,
	}
	if req.IndexName != "" {
		input.IndexName = aws.String(req.IndexName)
	}
	if req.Filter != nil {
		input.FilterExpression = aws.String(req.Filter.Expression)
		exprs.add(req.Filter)
	}
	input.ExpressionAttributeNames = exprs.Names()
	input.ExpressionAttributeValues = exprs.Values()

	page, err := d.paginate(req.Limit, func(limit *int32, startKey storagemodels.Token) ([]map[string]types.AttributeValue, int32, storagemodels.Token, error) {
		input.Limit = limit
		input.ExclusiveStartKey = startKey
		out, err := d.api.Query(ctx, input)
		if err != nil {
			return nil, 0, nil, d.translateError("query", "", err)
		}
		return out.Items, out.ScannedCount, out.LastEvaluatedKey, nil
	}, req.StartKey)
	if err != nil {
		return nil, err
	}

	d.log.WithFields(logrus.Fields{
		"index":   req.IndexName,
		"count":   page.Count,
		"scanned": page.ScannedCount,
	}).Debug("query executed")
	return page, nil
}

// ExecuteScan runs a scan with the same paging rules as ExecuteQuery.
func (d *DataStore[T]) ExecuteScan(ctx context.Context, req *storagemodels.ScanRequest) (*storagemodels.Page[T], error) {
	input := &sdk.ScanInput{
		TableName:      aws.String(d.table.TableName),
		ConsistentRead: aws.Bool(req.ConsistentRead),
	}
	if req.IndexName != "" {
		input.IndexName = aws.String(req.IndexName)
	}
	if req.TotalSegments > 0 {
		input.Segment = aws.Int32(req.Segment)
		input.TotalSegments = aws.Int32(req.TotalSegments)
	}
	var exprs expressionSet
	if req.Filter != nil {
		input.FilterExpression = aws.String(req.Filter.Expression)
		exprs.add(req.Filter)
	}
	input.ExpressionAttributeNames = exprs.Names()
	input.ExpressionAttributeValues = exprs.Values()

	page, err := d.paginate(req.Limit, func(limit *int32, startKey storagemodels.Token) ([]map[string]types.AttributeValue, int32, storagemodels.Token, error) {
		input.Limit = limit
		input.ExclusiveStartKey = startKey
		out, err := d.api.Scan(ctx, input)
		if err != nil {
			return nil, 0, nil, d.translateError("scan", "", err)
		}
		return out.Items, out.ScannedCount, out.LastEvaluatedKey, nil
	}, req.StartKey)
	if err != nil {
		return nil, err
	}

	d.log.WithFields(logrus.Fields{
		"index":   req.IndexName,
		"segment": req.Segment,
		"count":   page.Count,
		"scanned": page.ScannedCount,
	}).Debug("scan executed")
	return page, nil
}

type fetchFunc func(limit *int32, startKey storagemodels.Token) (items []map[string]types.AttributeValue, scanned int32, lastKey storagemodels.Token, err error)

// paginate calls fetch until limit items were collected or no continuation
// key remains. The request limit of each call is the remaining count.
func (d *DataStore[T]) paginate(limit int32, fetch fetchFunc, startKey storagemodels.Token) (*storagemodels.Page[T], error) {
	var collected []map[string]types.AttributeValue
	var scanned int
	lastKey := startKey

	for {
		var reqLimit *int32
		if limit > 0 {
			reqLimit = aws.Int32(limit - int32(len(collected)))
		}
		items, n, next, err := fetch(reqLimit, lastKey)
		if err != nil {
			return nil, err
		}
		collected = append(collected, items...)
		scanned += int(n)
		lastKey = next

		if limit <= 0 || len(collected) >= int(limit) || len(lastKey) == 0 {
			break
		}
	}

	items, err := d.codec.DecodeItems(collected)
	if err != nil {
		return nil, err
	}
	page := &storagemodels.Page[T]{
		Items:        items,
		Count:        len(items),
		ScannedCount: scanned,
	}
	if len(lastKey) > 0 {
		page.LastEvaluatedKey = lastKey
	}
	return page, nil
}
