/*
Package registry binds Go item types to table configurations.

A service registers each item type once, usually from an init function:

	registry.MustRegisterTable[User](storagemodels.TableConfig{
	    TableName: "users",
	    KeySchema: storagemodels.NewKeySchema(storagemodels.StringKey("id")),
	})

and opens stores later without repeating the schema:

	users, err := tablestore.OpenRegistered[User](ctx, storage)

Table names registered here are base names; the storage factory applies the
stage prefix. Registrations are also reachable by base name, which is how the
CLI resolves tables described in a YAML schema file.

The registry is safe for concurrent use.
*/
package registry
