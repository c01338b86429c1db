/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package mock_test

import (
	"context"
	"testing"

	"github.com/suparena/tablestore/datastore/memory"
	"github.com/suparena/tablestore/datastore/mock"
	"github.com/suparena/tablestore/errors"
	"github.com/suparena/tablestore/storagemodels"
)

type TestEntity struct {
	ID   string `dynamodbav:"id"`
	Name string `dynamodbav:"name"`
}

var testTable = storagemodels.TableConfig{
	TableName: "test-entities",
	KeySchema: storagemodels.NewKeySchema(storagemodels.StringKey("id")),
}

func newMock(t *testing.T) *mock.DataStore[TestEntity] {
	t.Helper()
	inner, err := memory.New[TestEntity](memory.NewRegistry(), testTable)
	if err != nil {
		t.Fatalf("memory.New failed: %v", err)
	}
	return mock.New[TestEntity](inner)
}

func TestMockDataStore(t *testing.T) {
	ctx := context.Background()

	t.Run("Delegates", func(t *testing.T) {
		mockStore := newMock(t)

		if _, err := mockStore.PutItem(ctx, TestEntity{ID: "123", Name: "Test"}); err != nil {
			t.Fatalf("PutItem failed: %v", err)
		}

		retrieved, err := mockStore.GetItem(ctx, storagemodels.Key{"id": "123"})
		if err != nil {
			t.Fatalf("GetItem failed: %v", err)
		}
		if retrieved == nil || retrieved.Name != "Test" {
			t.Fatalf("Retrieved entity mismatch: %+v", retrieved)
		}

		if _, err := mockStore.DeleteItem(ctx, storagemodels.Key{"id": "123"}); err != nil {
			t.Fatalf("DeleteItem failed: %v", err)
		}

		_, err = mockStore.DeleteItem(ctx, storagemodels.Key{"id": "123"})
		if !errors.IsNotFound(err) {
			t.Fatalf("Expected not found error, got: %v", err)
		}

		if mockStore.Calls(mock.OpDelete) != 2 {
			t.Fatalf("Expected 2 delete calls, got %d", mockStore.Calls(mock.OpDelete))
		}
	})

	t.Run("ErrorSimulation", func(t *testing.T) {
		mockStore := newMock(t)

		putErr := errors.NewValidationError("name", "required")
		mockStore.WithPutError(putErr)

		_, err := mockStore.PutItem(ctx, TestEntity{ID: "123", Name: "Test"})
		if err != putErr {
			t.Fatalf("Expected put error, got: %v", err)
		}

		count, err := mockStore.GetItemCount(ctx)
		if err != nil {
			t.Fatalf("GetItemCount failed: %v", err)
		}
		if count != 0 {
			t.Fatalf("Injected failure must not write, count %d", count)
		}

		deleteErr := errors.NewConditionFailedError("delete", "version mismatch")
		mockStore.WithDeleteError(deleteErr)

		_, err = mockStore.DeleteItem(ctx, storagemodels.Key{"id": "123"})
		if err != deleteErr {
			t.Fatalf("Expected delete error, got: %v", err)
		}

		mockStore.WithPutError(nil)
		if _, err := mockStore.PutItem(ctx, TestEntity{ID: "123"}); err != nil {
			t.Fatalf("PutItem after clearing error failed: %v", err)
		}
	})

	t.Run("TransactionFailure", func(t *testing.T) {
		mockStore := newMock(t)
		mockStore.WithError(mock.OpTransact, errors.NewTransactionCancelledError([]string{"ConditionalCheckFailed"}))

		err := mockStore.TransactWrite(ctx, []storagemodels.TransactOperation[TestEntity]{
			storagemodels.TransactPut(TestEntity{ID: "1"}, nil),
		})
		if !errors.IsTransactionCancelled(err) {
			t.Fatalf("Expected transaction cancelled, got: %v", err)
		}
	})

	t.Run("QueryAndScanUseInnerStore", func(t *testing.T) {
		mockStore := newMock(t)
		for _, e := range []TestEntity{{ID: "1", Name: "One"}, {ID: "2", Name: "Two"}, {ID: "3", Name: "Three"}} {
			if _, err := mockStore.PutItem(ctx, e); err != nil {
				t.Fatalf("PutItem failed: %v", err)
			}
		}

		page, err := mockStore.Query("2").Execute(ctx)
		if err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		if len(page.Items) != 1 || page.Items[0].Name != "Two" {
			t.Fatalf("Unexpected query result: %+v", page.Items)
		}

		count := 0
		for batch := range mockStore.ScanStream(ctx) {
			if batch.Err != nil {
				t.Fatalf("Stream error: %v", batch.Err)
			}
			count += len(batch.Items)
		}
		if count != 3 {
			t.Fatalf("Expected 3 streamed items, got %d", count)
		}
	})

	t.Run("Reset", func(t *testing.T) {
		mockStore := newMock(t)
		mockStore.WithUpdateError(errors.NewUnknownError("update", nil))
		_, _ = mockStore.UpdateItem(ctx, storagemodels.Key{"id": "x"}, storagemodels.Update{Expression: "SET #n = :n"})

		mockStore.Reset()
		if mockStore.Calls(mock.OpUpdate) != 0 {
			t.Fatalf("Expected call counts to be cleared")
		}
		_, err := mockStore.UpdateItem(ctx, storagemodels.Key{"id": "x"}, storagemodels.Update{
			Expression: "SET #n = :n",
			Names:      map[string]string{"#n": "name"},
			Values:     map[string]any{":n": "y"},
		})
		if !errors.IsNotFound(err) {
			t.Fatalf("Expected not found from inner store, got: %v", err)
		}
	})
}
