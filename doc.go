/*
Package tablestore provides a type-safe data access layer over a
partition-key/sort-key table store, with a DynamoDB backend and an
in-process emulator that behaves the same for the operations it supports.

Services depend only on datastore.DataStore[T]. Which implementation they
receive is decided once per store from configuration: an explicit backend
override wins, otherwise the deployment stage decides (production-like
stages get DynamoDB, development and test stages get the emulator).

Key Features:
  - Type-safe operations using Go generics
  - Conditional writes and SET/ADD update expressions
  - Fluent query and scan builders with continuation tokens
  - Batch writes and reads with retry of unprocessed items
  - All-or-nothing transactional writes
  - Streaming scans with progress tracking
  - Semantic error types shared by both backends

Basic Usage:

	cfg, _ := config.Load()
	storage, _ := tablestore.NewStorage(cfg)

	users, _ := tablestore.Open[User](ctx, storage, storagemodels.TableConfig{
	    TableName: "users",
	    KeySchema: storagemodels.NewKeySchema(storagemodels.StringKey("id")),
	})

	_, err := users.PutItem(ctx, User{ID: "123", Name: "John"},
	    storagemodels.WithCondition("attribute_not_exists(#id)", map[string]string{"#id": "id"}, nil))
	if errors.IsConditionFailed(err) {
	    // already exists
	}

	page, _ := users.Query("123").Limit(10).Execute(ctx)
*/
package tablestore
