/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/suparena/tablestore/errors"
	"github.com/suparena/tablestore/internal/codec"
	"github.com/suparena/tablestore/storagemodels"
)

const maxTransactItems = 100

// TransactWrite applies every operation or none. A ClientRequestToken makes
// SDK retries of the same call idempotent.
func (d *DataStore[T]) TransactWrite(ctx context.Context, ops []storagemodels.TransactOperation[T]) error {
	if len(ops) == 0 || len(ops) > maxTransactItems {
		return errors.NewValidationError("operations", fmt.Sprintf("a transaction takes between 1 and %d operations, got %d", maxTransactItems, len(ops)))
	}

	items := make([]types.TransactWriteItem, 0, len(ops))
	seen := make(map[string]bool, len(ops))
	for i, op := range ops {
		item, ck, err := d.transactItem(op)
		if err != nil {
			return fmt.Errorf("operation %d: %w", i, err)
		}
		if seen[ck] {
			return errors.NewValidationError("operations", fmt.Sprintf("transaction touches item %s more than once", ck))
		}
		seen[ck] = true
		items = append(items, item)
	}

	token := uuid.NewString()
	_, err := d.api.TransactWriteItems(ctx, &sdk.TransactWriteItemsInput{
		TransactItems:      items,
		ClientRequestToken: aws.String(token),
	})
	if err != nil {
		return d.translateError("transactWrite", "", err)
	}

	d.log.WithFields(logrus.Fields{"operations": len(items), "token": token}).Debug("transaction committed")
	return nil
}

func (d *DataStore[T]) transactItem(op storagemodels.TransactOperation[T]) (types.TransactWriteItem, string, error) {
	var item types.TransactWriteItem
	table := aws.String(d.table.TableName)

	cond, err := op.Condition.Resolve()
	if err != nil {
		return item, "", err
	}
	var exprs expressionSet
	exprs.add(cond)

	if op.Kind == storagemodels.TransactPutKind {
		if op.Item == nil {
			return item, "", errors.NewValidationError("item", "put requires an item")
		}
		av, err := d.codec.EncodeForPut(*op.Item)
		if err != nil {
			return item, "", err
		}
		put := &types.Put{
			TableName:                 table,
			Item:                      av,
			ExpressionAttributeNames:  exprs.Names(),
			ExpressionAttributeValues: exprs.Values(),
		}
		if cond != nil {
			put.ConditionExpression = aws.String(cond.Expression)
		}
		item.Put = put
		return item, codec.CanonicalKey(d.codec.KeyOf(av)), nil
	}

	keyAV, err := d.codec.EncodeKey(op.Key)
	if err != nil {
		return item, "", err
	}
	ck := codec.CanonicalKey(keyAV)

	switch op.Kind {
	case storagemodels.TransactUpdateKind:
		if op.Update == nil {
			return item, "", errors.NewValidationError("update", "update requires an update expression")
		}
		upd, err := d.codec.ResolveUpdate(*op.Update)
		if err != nil {
			return item, "", err
		}
		exprs.add(upd)
		guard := d.existsGuard(&exprs, cond)
		item.Update = &types.Update{
			TableName:                 table,
			Key:                       keyAV,
			UpdateExpression:          aws.String(upd.Expression),
			ConditionExpression:       aws.String(guard),
			ExpressionAttributeNames:  exprs.Names(),
			ExpressionAttributeValues: exprs.Values(),
		}

	case storagemodels.TransactDeleteKind:
		del := &types.Delete{
			TableName:                 table,
			Key:                       keyAV,
			ExpressionAttributeNames:  exprs.Names(),
			ExpressionAttributeValues: exprs.Values(),
		}
		if cond != nil {
			del.ConditionExpression = aws.String(cond.Expression)
		}
		item.Delete = del

	case storagemodels.TransactConditionCheckKind:
		if cond == nil {
			return item, "", errors.NewValidationError("condition", "condition check requires a condition")
		}
		item.ConditionCheck = &types.ConditionCheck{
			TableName:                 table,
			Key:                       keyAV,
			ConditionExpression:       aws.String(cond.Expression),
			ExpressionAttributeNames:  exprs.Names(),
			ExpressionAttributeValues: exprs.Values(),
		}

	default:
		return item, "", errors.NewValidationError("kind", fmt.Sprintf("unknown transaction operation %q", op.Kind))
	}
	return item, ck, nil
}
