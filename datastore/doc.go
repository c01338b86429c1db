/*
Package datastore defines the operation contract shared by tablestore's backends.

The main interface is DataStore[T], bound to one table, one key schema and one item type T:

	type DataStore[T any] interface {
	    GetItem(ctx context.Context, key storagemodels.Key, opts ...storagemodels.ReadOption) (*T, error)
	    PutItem(ctx context.Context, item T, opts ...storagemodels.WriteOption) (*T, error)
	    UpdateItem(ctx context.Context, key storagemodels.Key, update storagemodels.Update, opts ...storagemodels.WriteOption) (*T, error)
	    DeleteItem(ctx context.Context, key storagemodels.Key, opts ...storagemodels.WriteOption) (*T, error)
	    Query(partitionValue any) *QueryBuilder[T]
	    Scan() *ScanBuilder[T]
	    ...
	}

Queries and scans are built fluently and executed on demand:

	page, err := store.Query("chat-1").
	    SortKeyGreaterThan(1500).
	    Filter("#status = :status", map[string]string{"#status": "status"}, map[string]any{":status": "sent"}).
	    Limit(20).
	    Execute(ctx)

Implementations:
  - ddb: Amazon DynamoDB
  - memory: in-process emulator with the same observable behavior

Builders are backend-neutral: they resolve their state into a QueryRequest or
ScanRequest and hand it to the backend's Executor.
*/
package datastore
