/*
Package ddb provides the Amazon DynamoDB implementation of datastore.DataStore.

The store talks to DynamoDB through the API interface, which *dynamodb.Client
satisfies, so tests can substitute a fake:

	client, err := ddb.NewClient(ctx, ddb.ClientConfig{Region: "us-east-1"})
	if err != nil {
	    return err
	}
	store, err := ddb.New[User](client, storagemodels.TableConfig{
	    TableName: "prod-users",
	    KeySchema: storagemodels.NewKeySchema(storagemodels.StringKey("userId")),
	}, ddb.WithLogger(log))

Failures are translated into the errors package taxonomy. BatchWrite and
BatchGet retry unprocessed entries with exponential backoff; every other
operation fails immediately.
*/
package ddb
