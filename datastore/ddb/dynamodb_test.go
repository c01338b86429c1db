/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suparena/tablestore/errors"
	"github.com/suparena/tablestore/storagemodels"
)

// mockAPI is a mock implementation of API for testing.
type mockAPI struct {
	getItemFunc            func(ctx context.Context, params *sdk.GetItemInput, optFns ...func(*sdk.Options)) (*sdk.GetItemOutput, error)
	putItemFunc            func(ctx context.Context, params *sdk.PutItemInput, optFns ...func(*sdk.Options)) (*sdk.PutItemOutput, error)
	updateItemFunc         func(ctx context.Context, params *sdk.UpdateItemInput, optFns ...func(*sdk.Options)) (*sdk.UpdateItemOutput, error)
	deleteItemFunc         func(ctx context.Context, params *sdk.DeleteItemInput, optFns ...func(*sdk.Options)) (*sdk.DeleteItemOutput, error)
	queryFunc              func(ctx context.Context, params *sdk.QueryInput, optFns ...func(*sdk.Options)) (*sdk.QueryOutput, error)
	scanFunc               func(ctx context.Context, params *sdk.ScanInput, optFns ...func(*sdk.Options)) (*sdk.ScanOutput, error)
	batchWriteItemFunc     func(ctx context.Context, params *sdk.BatchWriteItemInput, optFns ...func(*sdk.Options)) (*sdk.BatchWriteItemOutput, error)
	batchGetItemFunc       func(ctx context.Context, params *sdk.BatchGetItemInput, optFns ...func(*sdk.Options)) (*sdk.BatchGetItemOutput, error)
	transactWriteItemsFunc func(ctx context.Context, params *sdk.TransactWriteItemsInput, optFns ...func(*sdk.Options)) (*sdk.TransactWriteItemsOutput, error)
	describeTableFunc      func(ctx context.Context, params *sdk.DescribeTableInput, optFns ...func(*sdk.Options)) (*sdk.DescribeTableOutput, error)
}

func (m *mockAPI) GetItem(ctx context.Context, params *sdk.GetItemInput, optFns ...func(*sdk.Options)) (*sdk.GetItemOutput, error) {
	if m.getItemFunc != nil {
		return m.getItemFunc(ctx, params, optFns...)
	}
	return &sdk.GetItemOutput{}, nil
}

func (m *mockAPI) PutItem(ctx context.Context, params *sdk.PutItemInput, optFns ...func(*sdk.Options)) (*sdk.PutItemOutput, error) {
	if m.putItemFunc != nil {
		return m.putItemFunc(ctx, params, optFns...)
	}
	return &sdk.PutItemOutput{}, nil
}

func (m *mockAPI) UpdateItem(ctx context.Context, params *sdk.UpdateItemInput, optFns ...func(*sdk.Options)) (*sdk.UpdateItemOutput, error) {
	if m.updateItemFunc != nil {
		return m.updateItemFunc(ctx, params, optFns...)
	}
	return &sdk.UpdateItemOutput{}, nil
}

func (m *mockAPI) DeleteItem(ctx context.Context, params *sdk.DeleteItemInput, optFns ...func(*sdk.Options)) (*sdk.DeleteItemOutput, error) {
	if m.deleteItemFunc != nil {
		return m.deleteItemFunc(ctx, params, optFns...)
	}
	return &sdk.DeleteItemOutput{}, nil
}

func (m *mockAPI) Query(ctx context.Context, params *sdk.QueryInput, optFns ...func(*sdk.Options)) (*sdk.QueryOutput, error) {
	if m.queryFunc != nil {
		return m.queryFunc(ctx, params, optFns...)
	}
	return &sdk.QueryOutput{}, nil
}

func (m *mockAPI) Scan(ctx context.Context, params *sdk.ScanInput, optFns ...func(*sdk.Options)) (*sdk.ScanOutput, error) {
	if m.scanFunc != nil {
		return m.scanFunc(ctx, params, optFns...)
	}
	return &sdk.ScanOutput{}, nil
}

func (m *mockAPI) BatchWriteItem(ctx context.Context, params *sdk.BatchWriteItemInput, optFns ...func(*sdk.Options)) (*sdk.BatchWriteItemOutput, error) {
	if m.batchWriteItemFunc != nil {
		return m.batchWriteItemFunc(ctx, params, optFns...)
	}
	return &sdk.BatchWriteItemOutput{}, nil
}

func (m *mockAPI) BatchGetItem(ctx context.Context, params *sdk.BatchGetItemInput, optFns ...func(*sdk.Options)) (*sdk.BatchGetItemOutput, error) {
	if m.batchGetItemFunc != nil {
		return m.batchGetItemFunc(ctx, params, optFns...)
	}
	return &sdk.BatchGetItemOutput{}, nil
}

func (m *mockAPI) TransactWriteItems(ctx context.Context, params *sdk.TransactWriteItemsInput, optFns ...func(*sdk.Options)) (*sdk.TransactWriteItemsOutput, error) {
	if m.transactWriteItemsFunc != nil {
		return m.transactWriteItemsFunc(ctx, params, optFns...)
	}
	return &sdk.TransactWriteItemsOutput{}, nil
}

func (m *mockAPI) DescribeTable(ctx context.Context, params *sdk.DescribeTableInput, optFns ...func(*sdk.Options)) (*sdk.DescribeTableOutput, error) {
	if m.describeTableFunc != nil {
		return m.describeTableFunc(ctx, params, optFns...)
	}
	return &sdk.DescribeTableOutput{}, nil
}

type Order struct {
	CustomerID string  `dynamodbav:"customerId" validate:"required"`
	OrderID    string  `dynamodbav:"orderId" validate:"required"`
	Status     string  `dynamodbav:"status,omitempty"`
	Total      float64 `dynamodbav:"total"`
	CreatedAt  string  `dynamodbav:"createdAt,omitempty"`
	UpdatedAt  string  `dynamodbav:"updatedAt,omitempty"`
}

var ordersTable = storagemodels.TableConfig{
	TableName: "test-orders",
	KeySchema: storagemodels.NewKeySchema(storagemodels.StringKey("customerId"), storagemodels.StringKey("orderId")),
	Indexes: storagemodels.IndexConfig{
		"status-index": storagemodels.NewKeySchema(storagemodels.StringKey("status"), storagemodels.StringKey("orderId")),
	},
}

var fixedTime = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T, mock *mockAPI) *DataStore[Order] {
	t.Helper()
	store, err := New[Order](mock, ordersTable,
		WithClock(func() time.Time { return fixedTime }),
		WithBatchRetry(2, time.Millisecond, 2*time.Millisecond),
	)
	require.NoError(t, err)
	return store
}

func orderItem(customer, order, status string) map[string]types.AttributeValue {
	item := map[string]types.AttributeValue{
		"customerId": &types.AttributeValueMemberS{Value: customer},
		"orderId":    &types.AttributeValueMemberS{Value: order},
		"total":      &types.AttributeValueMemberN{Value: "10"},
	}
	if status != "" {
		item["status"] = &types.AttributeValueMemberS{Value: status}
	}
	return item
}

func orderKey(customer, order string) storagemodels.Key {
	return ordersTable.KeySchema.Key(customer, order)
}

// ==================== Construction ====================

func TestNew_Validation(t *testing.T) {
	_, err := New[Order](nil, ordersTable)
	assert.Error(t, err)

	_, err = New[Order](&mockAPI{}, storagemodels.TableConfig{TableName: "t"})
	assert.True(t, errors.IsValidationError(err))
}

// ==================== GetItem ====================

func TestGetItem(t *testing.T) {
	var captured *sdk.GetItemInput
	mock := &mockAPI{
		getItemFunc: func(ctx context.Context, params *sdk.GetItemInput, optFns ...func(*sdk.Options)) (*sdk.GetItemOutput, error) {
			captured = params
			return &sdk.GetItemOutput{Item: orderItem("c1", "o1", "paid")}, nil
		},
	}
	store := newTestStore(t, mock)

	got, err := store.GetItem(context.Background(), orderKey("c1", "o1"), storagemodels.WithConsistentRead())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "paid", got.Status)
	assert.Equal(t, "test-orders", aws.ToString(captured.TableName))
	assert.True(t, aws.ToBool(captured.ConsistentRead))
	assert.Len(t, captured.Key, 2)
}

func TestGetItem_Missing(t *testing.T) {
	store := newTestStore(t, &mockAPI{})
	got, err := store.GetItem(context.Background(), orderKey("c1", "o1"))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetItem_InvalidKey(t *testing.T) {
	called := false
	mock := &mockAPI{
		getItemFunc: func(ctx context.Context, params *sdk.GetItemInput, optFns ...func(*sdk.Options)) (*sdk.GetItemOutput, error) {
			called = true
			return &sdk.GetItemOutput{}, nil
		},
	}
	store := newTestStore(t, mock)
	_, err := store.GetItem(context.Background(), storagemodels.Key{"customerId": "c1"})
	assert.True(t, errors.IsValidationError(err))
	assert.False(t, called)
}

// ==================== PutItem ====================

func TestPutItem(t *testing.T) {
	var captured *sdk.PutItemInput
	mock := &mockAPI{
		putItemFunc: func(ctx context.Context, params *sdk.PutItemInput, optFns ...func(*sdk.Options)) (*sdk.PutItemOutput, error) {
			captured = params
			return &sdk.PutItemOutput{Attributes: orderItem("c1", "o1", "old")}, nil
		},
	}
	store := newTestStore(t, mock)

	prev, err := store.PutItem(context.Background(), Order{CustomerID: "c1", OrderID: "o1", Status: "new"},
		storagemodels.WithCondition("attribute_not_exists(#c)", map[string]string{"#c": "customerId"}, nil))
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.Equal(t, "old", prev.Status)

	require.NotNil(t, captured)
	assert.Equal(t, "attribute_not_exists(#c)", aws.ToString(captured.ConditionExpression))
	assert.Equal(t, map[string]string{"#c": "customerId"}, captured.ExpressionAttributeNames)
	assert.Nil(t, captured.ExpressionAttributeValues)
	assert.Equal(t, types.ReturnValueAllOld, captured.ReturnValues)
	assert.Equal(t, &types.AttributeValueMemberS{Value: "2024-01-15T12:00:00.000Z"}, captured.Item["createdAt"])
	assert.Equal(t, &types.AttributeValueMemberS{Value: "2024-01-15T12:00:00.000Z"}, captured.Item["updatedAt"])
}

func TestPutItem_ConditionFailed(t *testing.T) {
	mock := &mockAPI{
		putItemFunc: func(ctx context.Context, params *sdk.PutItemInput, optFns ...func(*sdk.Options)) (*sdk.PutItemOutput, error) {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
		},
	}
	store := newTestStore(t, mock)
	_, err := store.PutItem(context.Background(), Order{CustomerID: "c1", OrderID: "o1"},
		storagemodels.WithCondition("attribute_not_exists(customerId)", nil, nil))
	assert.True(t, errors.IsConditionFailed(err))
}

func TestPutItem_ValidationBeforeCall(t *testing.T) {
	store := newTestStore(t, &mockAPI{
		putItemFunc: func(ctx context.Context, params *sdk.PutItemInput, optFns ...func(*sdk.Options)) (*sdk.PutItemOutput, error) {
			t.Fatal("PutItem must not be called")
			return nil, nil
		},
	})
	_, err := store.PutItem(context.Background(), Order{CustomerID: "c1"})
	assert.True(t, errors.IsValidationError(err))
}

// ==================== UpdateItem ====================

func TestUpdateItem(t *testing.T) {
	var captured *sdk.UpdateItemInput
	mock := &mockAPI{
		updateItemFunc: func(ctx context.Context, params *sdk.UpdateItemInput, optFns ...func(*sdk.Options)) (*sdk.UpdateItemOutput, error) {
			captured = params
			return &sdk.UpdateItemOutput{Attributes: orderItem("c1", "o1", "shipped")}, nil
		},
	}
	store := newTestStore(t, mock)

	got, err := store.UpdateItem(context.Background(), orderKey("c1", "o1"), storagemodels.Update{
		Expression: "SET #s = :s",
		Names:      map[string]string{"#s": "status"},
		Values:     map[string]any{":s": "shipped"},
	}, storagemodels.WithCondition("#s = :paid", nil, map[string]any{":paid": "paid"}))
	require.NoError(t, err)
	assert.Equal(t, "shipped", got.Status)

	require.NotNil(t, captured)
	assert.Equal(t, "SET #s = :s, #_updatedAt = :_updatedAt", aws.ToString(captured.UpdateExpression))
	assert.Equal(t, "attribute_exists(#_pk) AND (#s = :paid)", aws.ToString(captured.ConditionExpression))
	assert.Equal(t, "customerId", captured.ExpressionAttributeNames["#_pk"])
	assert.Equal(t, "updatedAt", captured.ExpressionAttributeNames["#_updatedAt"])
	assert.Contains(t, captured.ExpressionAttributeValues, ":paid")
	assert.Contains(t, captured.ExpressionAttributeValues, ":s")
	assert.Equal(t, types.ReturnValueAllNew, captured.ReturnValues)
	assert.Equal(t, types.ReturnValuesOnConditionCheckFailureAllOld, captured.ReturnValuesOnConditionCheckFailure)
}

func TestUpdateItem_NotFoundVersusConditionFailed(t *testing.T) {
	var existing map[string]types.AttributeValue
	mock := &mockAPI{
		updateItemFunc: func(ctx context.Context, params *sdk.UpdateItemInput, optFns ...func(*sdk.Options)) (*sdk.UpdateItemOutput, error) {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("failed"), Item: existing}
		},
	}
	store := newTestStore(t, mock)
	update := storagemodels.Update{Expression: "SET #s = :s", Names: map[string]string{"#s": "status"}, Values: map[string]any{":s": "x"}}

	_, err := store.UpdateItem(context.Background(), orderKey("c1", "o1"), update)
	assert.True(t, errors.IsNotFound(err))

	existing = orderItem("c1", "o1", "paid")
	_, err = store.UpdateItem(context.Background(), orderKey("c1", "o1"), update)
	assert.True(t, errors.IsConditionFailed(err))
}

func TestUpdateItem_ReturnNone(t *testing.T) {
	mock := &mockAPI{
		updateItemFunc: func(ctx context.Context, params *sdk.UpdateItemInput, optFns ...func(*sdk.Options)) (*sdk.UpdateItemOutput, error) {
			assert.Equal(t, types.ReturnValueNone, params.ReturnValues)
			return &sdk.UpdateItemOutput{}, nil
		},
	}
	store := newTestStore(t, mock)
	got, err := store.UpdateItem(context.Background(), orderKey("c1", "o1"),
		storagemodels.Update{Expression: "SET total = :t", Values: map[string]any{":t": 5}},
		storagemodels.WithReturnValues(storagemodels.ReturnNone))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUpdateItem_RejectsKeyAttributes(t *testing.T) {
	store := newTestStore(t, &mockAPI{})
	_, err := store.UpdateItem(context.Background(), orderKey("c1", "o1"),
		storagemodels.Update{Expression: "SET orderId = :o", Values: map[string]any{":o": "o2"}})
	assert.True(t, errors.IsValidationError(err))
}

// ==================== DeleteItem ====================

func TestDeleteItem(t *testing.T) {
	mock := &mockAPI{
		deleteItemFunc: func(ctx context.Context, params *sdk.DeleteItemInput, optFns ...func(*sdk.Options)) (*sdk.DeleteItemOutput, error) {
			assert.Equal(t, "attribute_exists(#_pk)", aws.ToString(params.ConditionExpression))
			assert.Equal(t, map[string]string{"#_pk": "customerId"}, params.ExpressionAttributeNames)
			assert.Nil(t, params.ExpressionAttributeValues)
			return &sdk.DeleteItemOutput{Attributes: orderItem("c1", "o1", "paid")}, nil
		},
	}
	store := newTestStore(t, mock)
	old, err := store.DeleteItem(context.Background(), orderKey("c1", "o1"))
	require.NoError(t, err)
	assert.Equal(t, "paid", old.Status)
}

func TestDeleteItem_Missing(t *testing.T) {
	mock := &mockAPI{
		deleteItemFunc: func(ctx context.Context, params *sdk.DeleteItemInput, optFns ...func(*sdk.Options)) (*sdk.DeleteItemOutput, error) {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("failed")}
		},
	}
	store := newTestStore(t, mock)
	_, err := store.DeleteItem(context.Background(), orderKey("c1", "o1"))
	assert.True(t, errors.IsNotFound(err))
}

// ==================== Error translation ====================

func TestTranslateError(t *testing.T) {
	store := newTestStore(t, &mockAPI{})

	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"ResourceNotFound", &types.ResourceNotFoundException{Message: aws.String("no table")}, errors.IsTableNotFound},
		{"ValidationException", &smithy.GenericAPIError{Code: "ValidationException", Message: "bad expression"}, errors.IsValidationError},
		{"ConditionalCheckFailed", &types.ConditionalCheckFailedException{}, errors.IsConditionFailed},
		{"Transaction", &types.TransactionCanceledException{}, errors.IsTransactionCancelled},
		{"Other", stderrors.New("connection reset"), errors.IsUnknown},
		{"Wrapped", fmt.Errorf("operation error: %w", &types.ResourceNotFoundException{}), errors.IsTableNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(store.translateError("op", "", tt.err)))
		})
	}
	assert.NoError(t, store.translateError("op", "", nil))

	cause := stderrors.New("boom")
	assert.ErrorIs(t, store.translateError("op", "", cause), cause)
}

// ==================== Query / Scan ====================

func TestExecuteQuery_KeyCondition(t *testing.T) {
	var captured *sdk.QueryInput
	mock := &mockAPI{
		queryFunc: func(ctx context.Context, params *sdk.QueryInput, optFns ...func(*sdk.Options)) (*sdk.QueryOutput, error) {
			captured = params
			return &sdk.QueryOutput{
				Items:        []map[string]types.AttributeValue{orderItem("c1", "o2", "paid")},
				Count:        1,
				ScannedCount: 2,
			}, nil
		},
	}
	store := newTestStore(t, mock)

	page, err := store.Query("c1").
		SortKeyBetween("o1", "o5").
		Filter("#s = :s", map[string]string{"#s": "status"}, map[string]any{":s": "paid"}).
		ScanBackward().
		Execute(context.Background())
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, 2, page.ScannedCount)
	assert.False(t, page.HasMore())

	assert.Equal(t, "#_pk = :_pk AND #_sk BETWEEN :_sk AND :_sk2", aws.ToString(captured.KeyConditionExpression))
	assert.Equal(t, "#s = :s", aws.ToString(captured.FilterExpression))
	assert.Equal(t, map[string]string{"#_pk": "customerId", "#_sk": "orderId", "#s": "status"}, captured.ExpressionAttributeNames)
	assert.Len(t, captured.ExpressionAttributeValues, 4)
	assert.False(t, aws.ToBool(captured.ScanIndexForward))
	assert.Nil(t, captured.Limit)
	assert.Nil(t, captured.IndexName)
}

func TestExecuteQuery_BeginsWithOnIndex(t *testing.T) {
	mock := &mockAPI{
		queryFunc: func(ctx context.Context, params *sdk.QueryInput, optFns ...func(*sdk.Options)) (*sdk.QueryOutput, error) {
			assert.Equal(t, "status-index", aws.ToString(params.IndexName))
			assert.Equal(t, "#_pk = :_pk AND begins_with(#_sk, :_sk)", aws.ToString(params.KeyConditionExpression))
			assert.Equal(t, "status", params.ExpressionAttributeNames["#_pk"])
			return &sdk.QueryOutput{}, nil
		},
	}
	store := newTestStore(t, mock)
	_, err := store.Query("paid").Index("status-index").SortKeyBeginsWith("2024").Execute(context.Background())
	require.NoError(t, err)
}

func TestExecuteQuery_LimitPagesUntilSatisfied(t *testing.T) {
	var calls []*sdk.QueryInput
	mock := &mockAPI{
		queryFunc: func(ctx context.Context, params *sdk.QueryInput, optFns ...func(*sdk.Options)) (*sdk.QueryOutput, error) {
			in := *params
			calls = append(calls, &in)
			if len(calls) == 1 {
				return &sdk.QueryOutput{
					Items:            []map[string]types.AttributeValue{orderItem("c1", "o1", "")},
					ScannedCount:     3,
					LastEvaluatedKey: map[string]types.AttributeValue{"customerId": &types.AttributeValueMemberS{Value: "c1"}, "orderId": &types.AttributeValueMemberS{Value: "o3"}},
				}, nil
			}
			return &sdk.QueryOutput{
				Items:            []map[string]types.AttributeValue{orderItem("c1", "o4", "")},
				ScannedCount:     1,
				LastEvaluatedKey: map[string]types.AttributeValue{"customerId": &types.AttributeValueMemberS{Value: "c1"}, "orderId": &types.AttributeValueMemberS{Value: "o4"}},
			}, nil
		},
	}
	store := newTestStore(t, mock)

	page, err := store.Query("c1").Limit(2).Execute(context.Background())
	require.NoError(t, err)
	require.Len(t, calls, 2)
	assert.Equal(t, int32(2), aws.ToInt32(calls[0].Limit))
	assert.Equal(t, int32(1), aws.ToInt32(calls[1].Limit))
	assert.Equal(t, &types.AttributeValueMemberS{Value: "o3"}, calls[1].ExclusiveStartKey["orderId"])

	assert.Len(t, page.Items, 2)
	assert.Equal(t, 4, page.ScannedCount)
	require.True(t, page.HasMore())
	assert.Equal(t, &types.AttributeValueMemberS{Value: "o4"}, page.LastEvaluatedKey["orderId"])
}

func TestExecuteQuery_NoLimitSinglePage(t *testing.T) {
	calls := 0
	mock := &mockAPI{
		queryFunc: func(ctx context.Context, params *sdk.QueryInput, optFns ...func(*sdk.Options)) (*sdk.QueryOutput, error) {
			calls++
			return &sdk.QueryOutput{
				Items:            []map[string]types.AttributeValue{orderItem("c1", "o1", "")},
				LastEvaluatedKey: map[string]types.AttributeValue{"customerId": &types.AttributeValueMemberS{Value: "c1"}, "orderId": &types.AttributeValueMemberS{Value: "o1"}},
			}, nil
		},
	}
	store := newTestStore(t, mock)
	page, err := store.Query("c1").Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.True(t, page.HasMore())
}

func TestExecuteScan_Parallel(t *testing.T) {
	mock := &mockAPI{
		scanFunc: func(ctx context.Context, params *sdk.ScanInput, optFns ...func(*sdk.Options)) (*sdk.ScanOutput, error) {
			assert.Equal(t, int32(1), aws.ToInt32(params.Segment))
			assert.Equal(t, int32(4), aws.ToInt32(params.TotalSegments))
			assert.Nil(t, params.ExpressionAttributeNames)
			return &sdk.ScanOutput{Items: []map[string]types.AttributeValue{orderItem("c1", "o1", "")}, ScannedCount: 1}, nil
		},
	}
	store := newTestStore(t, mock)
	items, err := store.Scan().Parallel(4, 1).ExecuteAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestExecuteScan_TableNotFound(t *testing.T) {
	mock := &mockAPI{
		scanFunc: func(ctx context.Context, params *sdk.ScanInput, optFns ...func(*sdk.Options)) (*sdk.ScanOutput, error) {
			return nil, &types.ResourceNotFoundException{Message: aws.String("Requested resource not found")}
		},
	}
	store := newTestStore(t, mock)
	_, err := store.Scan().Execute(context.Background())
	assert.True(t, errors.IsTableNotFound(err))
}

func TestScanStream(t *testing.T) {
	calls := 0
	mock := &mockAPI{
		scanFunc: func(ctx context.Context, params *sdk.ScanInput, optFns ...func(*sdk.Options)) (*sdk.ScanOutput, error) {
			calls++
			switch calls {
			case 1:
				return &sdk.ScanOutput{
					Items:            []map[string]types.AttributeValue{orderItem("c1", "o1", ""), orderItem("c1", "o2", "")},
					LastEvaluatedKey: map[string]types.AttributeValue{"customerId": &types.AttributeValueMemberS{Value: "c1"}, "orderId": &types.AttributeValueMemberS{Value: "o2"}},
				}, nil
			case 2:
				// A page filtered down to nothing still carries a key.
				return &sdk.ScanOutput{
					LastEvaluatedKey: map[string]types.AttributeValue{"customerId": &types.AttributeValueMemberS{Value: "c2"}, "orderId": &types.AttributeValueMemberS{Value: "o1"}},
				}, nil
			default:
				return &sdk.ScanOutput{Items: []map[string]types.AttributeValue{orderItem("c3", "o1", "")}}, nil
			}
		},
	}
	store := newTestStore(t, mock)

	var sizes []int
	for batch := range store.ScanStream(context.Background(), storagemodels.WithPageSize(2)) {
		require.NoError(t, batch.Err)
		sizes = append(sizes, len(batch.Items))
	}
	assert.Equal(t, []int{2, 1}, sizes)
}

// ==================== BatchWrite ====================

func TestBatchWrite_Chunks(t *testing.T) {
	var mu sync.Mutex
	var sizes []int
	mock := &mockAPI{
		batchWriteItemFunc: func(ctx context.Context, params *sdk.BatchWriteItemInput, optFns ...func(*sdk.Options)) (*sdk.BatchWriteItemOutput, error) {
			mu.Lock()
			defer mu.Unlock()
			sizes = append(sizes, len(params.RequestItems["test-orders"]))
			return &sdk.BatchWriteItemOutput{}, nil
		},
	}
	store := newTestStore(t, mock)

	var ops []storagemodels.WriteOperation[Order]
	for i := 0; i < 30; i++ {
		ops = append(ops, storagemodels.PutOperation(Order{CustomerID: "c1", OrderID: fmt.Sprintf("o%02d", i)}))
	}
	ops = append(ops, storagemodels.DeleteOperation[Order](orderKey("c2", "o1")))

	require.NoError(t, store.BatchWrite(context.Background(), ops))
	assert.Equal(t, []int{25, 6}, sizes)
}

func TestBatchWrite_RetryUnprocessedItems(t *testing.T) {
	calls := 0
	mock := &mockAPI{
		batchWriteItemFunc: func(ctx context.Context, params *sdk.BatchWriteItemInput, optFns ...func(*sdk.Options)) (*sdk.BatchWriteItemOutput, error) {
			calls++
			if calls == 1 {
				return &sdk.BatchWriteItemOutput{
					UnprocessedItems: map[string][]types.WriteRequest{
						"test-orders": params.RequestItems["test-orders"][:1],
					},
				}, nil
			}
			assert.Len(t, params.RequestItems["test-orders"], 1)
			return &sdk.BatchWriteItemOutput{}, nil
		},
	}
	store := newTestStore(t, mock)

	err := store.BatchWrite(context.Background(), []storagemodels.WriteOperation[Order]{
		storagemodels.PutOperation(Order{CustomerID: "c1", OrderID: "o1"}),
		storagemodels.PutOperation(Order{CustomerID: "c1", OrderID: "o2"}),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestBatchWrite_RetriesExhausted(t *testing.T) {
	calls := 0
	mock := &mockAPI{
		batchWriteItemFunc: func(ctx context.Context, params *sdk.BatchWriteItemInput, optFns ...func(*sdk.Options)) (*sdk.BatchWriteItemOutput, error) {
			calls++
			return &sdk.BatchWriteItemOutput{UnprocessedItems: params.RequestItems}, nil
		},
	}
	store := newTestStore(t, mock)

	err := store.BatchWrite(context.Background(), []storagemodels.WriteOperation[Order]{
		storagemodels.PutOperation(Order{CustomerID: "c1", OrderID: "o1"}),
	})
	assert.True(t, errors.IsUnknown(err))
	assert.Equal(t, 3, calls)
}

func TestBatchWrite_ThrottlingIsRetried(t *testing.T) {
	calls := 0
	mock := &mockAPI{
		batchWriteItemFunc: func(ctx context.Context, params *sdk.BatchWriteItemInput, optFns ...func(*sdk.Options)) (*sdk.BatchWriteItemOutput, error) {
			calls++
			if calls == 1 {
				return nil, &types.ProvisionedThroughputExceededException{Message: aws.String("slow down")}
			}
			return &sdk.BatchWriteItemOutput{}, nil
		},
	}
	store := newTestStore(t, mock)
	err := store.BatchWrite(context.Background(), []storagemodels.WriteOperation[Order]{
		storagemodels.PutOperation(Order{CustomerID: "c1", OrderID: "o1"}),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestBatchWrite_DuplicateKeys(t *testing.T) {
	store := newTestStore(t, &mockAPI{})
	err := store.BatchWrite(context.Background(), []storagemodels.WriteOperation[Order]{
		storagemodels.PutOperation(Order{CustomerID: "c1", OrderID: "o1"}),
		storagemodels.DeleteOperation[Order](orderKey("c1", "o1")),
	})
	assert.True(t, errors.IsValidationError(err))
}

// ==================== BatchGet ====================

func TestBatchGet(t *testing.T) {
	calls := 0
	mock := &mockAPI{
		batchGetItemFunc: func(ctx context.Context, params *sdk.BatchGetItemInput, optFns ...func(*sdk.Options)) (*sdk.BatchGetItemOutput, error) {
			calls++
			req := params.RequestItems["test-orders"]
			if calls == 1 {
				assert.Len(t, req.Keys, 3)
				return &sdk.BatchGetItemOutput{
					Responses: map[string][]map[string]types.AttributeValue{
						"test-orders": {orderItem("c1", "o1", "")},
					},
					UnprocessedKeys: map[string]types.KeysAndAttributes{
						"test-orders": {Keys: req.Keys[1:2]},
					},
				}, nil
			}
			assert.Len(t, req.Keys, 1)
			return &sdk.BatchGetItemOutput{
				Responses: map[string][]map[string]types.AttributeValue{
					"test-orders": {orderItem("c1", "o2", "")},
				},
			}, nil
		},
	}
	store := newTestStore(t, mock)

	items, err := store.BatchGet(context.Background(), []storagemodels.Key{
		orderKey("c1", "o1"),
		orderKey("c1", "o2"),
		orderKey("c1", "missing"),
		orderKey("c1", "o1"),
	})
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, 2, calls)
}

func TestBatchGet_Chunks(t *testing.T) {
	var mu sync.Mutex
	var sizes []int
	mock := &mockAPI{
		batchGetItemFunc: func(ctx context.Context, params *sdk.BatchGetItemInput, optFns ...func(*sdk.Options)) (*sdk.BatchGetItemOutput, error) {
			mu.Lock()
			defer mu.Unlock()
			sizes = append(sizes, len(params.RequestItems["test-orders"].Keys))
			return &sdk.BatchGetItemOutput{}, nil
		},
	}
	store := newTestStore(t, mock)

	var keys []storagemodels.Key
	for i := 0; i < 250; i++ {
		keys = append(keys, orderKey("c1", fmt.Sprintf("o%03d", i)))
	}
	items, err := store.BatchGet(context.Background(), keys)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.ElementsMatch(t, []int{100, 100, 50}, sizes)
}

// ==================== TransactWrite ====================

func TestTransactWrite(t *testing.T) {
	var captured *sdk.TransactWriteItemsInput
	mock := &mockAPI{
		transactWriteItemsFunc: func(ctx context.Context, params *sdk.TransactWriteItemsInput, optFns ...func(*sdk.Options)) (*sdk.TransactWriteItemsOutput, error) {
			captured = params
			return &sdk.TransactWriteItemsOutput{}, nil
		},
	}
	store := newTestStore(t, mock)

	err := store.TransactWrite(context.Background(), []storagemodels.TransactOperation[Order]{
		storagemodels.TransactPut(Order{CustomerID: "c1", OrderID: "o1"}, &storagemodels.Condition{Expression: "attribute_not_exists(customerId)"}),
		storagemodels.TransactUpdate[Order](orderKey("c1", "o2"), storagemodels.Update{
			Expression: "SET #s = :s",
			Names:      map[string]string{"#s": "status"},
			Values:     map[string]any{":s": "paid"},
		}, nil),
		storagemodels.TransactDelete[Order](orderKey("c1", "o3"), nil),
		storagemodels.TransactConditionCheck[Order](orderKey("c9", "o1"), storagemodels.Condition{Expression: "attribute_exists(customerId)"}),
	})
	require.NoError(t, err)

	require.NotNil(t, captured)
	assert.NotEmpty(t, aws.ToString(captured.ClientRequestToken))
	require.Len(t, captured.TransactItems, 4)
	assert.NotNil(t, captured.TransactItems[0].Put)
	assert.Equal(t, "attribute_exists(#_pk)", aws.ToString(captured.TransactItems[1].Update.ConditionExpression))
	assert.Nil(t, captured.TransactItems[2].Delete.ConditionExpression)
	assert.Equal(t, "attribute_exists(customerId)", aws.ToString(captured.TransactItems[3].ConditionCheck.ConditionExpression))
}

func TestTransactWrite_Cancelled(t *testing.T) {
	mock := &mockAPI{
		transactWriteItemsFunc: func(ctx context.Context, params *sdk.TransactWriteItemsInput, optFns ...func(*sdk.Options)) (*sdk.TransactWriteItemsOutput, error) {
			return nil, &types.TransactionCanceledException{
				Message: aws.String("Transaction cancelled"),
				CancellationReasons: []types.CancellationReason{
					{Code: aws.String("None")},
					{Code: aws.String("ConditionalCheckFailed")},
				},
			}
		},
	}
	store := newTestStore(t, mock)
	cond := &storagemodels.Condition{Expression: "attribute_not_exists(customerId)"}

	err := store.TransactWrite(context.Background(), []storagemodels.TransactOperation[Order]{
		storagemodels.TransactPut(Order{CustomerID: "c1", OrderID: "o1"}, cond),
		storagemodels.TransactPut(Order{CustomerID: "c1", OrderID: "o2"}, cond),
	})
	require.True(t, errors.IsTransactionCancelled(err))
	var tce *errors.TransactionCancelledError
	require.ErrorAs(t, err, &tce)
	assert.Equal(t, []string{"None", "ConditionalCheckFailed"}, tce.Reasons)
}

func TestTransactWrite_Validation(t *testing.T) {
	store := newTestStore(t, &mockAPI{})
	ctx := context.Background()

	assert.True(t, errors.IsValidationError(store.TransactWrite(ctx, nil)))

	ops := make([]storagemodels.TransactOperation[Order], 101)
	for i := range ops {
		ops[i] = storagemodels.TransactDelete[Order](orderKey("c1", fmt.Sprintf("o%d", i)), nil)
	}
	assert.True(t, errors.IsValidationError(store.TransactWrite(ctx, ops)))

	err := store.TransactWrite(ctx, []storagemodels.TransactOperation[Order]{
		storagemodels.TransactDelete[Order](orderKey("c1", "o1"), nil),
		storagemodels.TransactDelete[Order](orderKey("c1", "o1"), nil),
	})
	assert.True(t, errors.IsValidationError(err))
}

// ==================== GetItemCount ====================

func TestGetItemCount(t *testing.T) {
	mock := &mockAPI{
		describeTableFunc: func(ctx context.Context, params *sdk.DescribeTableInput, optFns ...func(*sdk.Options)) (*sdk.DescribeTableOutput, error) {
			assert.Equal(t, "test-orders", aws.ToString(params.TableName))
			return &sdk.DescribeTableOutput{Table: &types.TableDescription{ItemCount: aws.Int64(42)}}, nil
		},
	}
	store := newTestStore(t, mock)
	count, err := store.GetItemCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), count)
}
