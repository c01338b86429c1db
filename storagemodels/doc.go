/*
Package storagemodels defines the data structures shared by every tablestore backend.

Key Types:

KeySchema:
A required partition key and an optional sort key, each a (name, scalar type) pair:

	schema := NewKeySchema(StringKey("chatId"), NumberKey("sentAt"))
	key := schema.Key("chat-1", 1700000000)

TableConfig:
Construction parameters accepted by both the DynamoDB and in-memory backends:

	cfg := TableConfig{
	    TableName: "dev-chats",
	    KeySchema: schema,
	    Indexes: IndexConfig{
	        "bySender": NewKeySchema(StringKey("senderId"), NumberKey("sentAt")),
	    },
	}

Page:
Results from query and scan execution:

	type Page[T any] struct {
	    Items            []T
	    LastEvaluatedKey Token // nil when the traversal is complete
	    Count            int
	    ScannedCount     int
	}

StreamOptions:
Configuration for scan streams:

	opts := []StreamOption{
	    WithBufferSize(8),
	    WithPageSize(25),
	    WithProgressHandler(progressFunc),
	}

Table definitions can also be loaded from YAML with LoadTableDefinitions.
*/
package storagemodels
