// Package mongotest starts throwaway MongoDB containers for integration tests.
package mongotest

import (
	"context"
	"testing"

	tcmongo "github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Setup starts a single-node replica set (transactions need one) and returns
// a client plus a database unique to the test. Cleanup is registered on t.
func Setup(ctx context.Context, t *testing.T) (*mongo.Client, *mongo.Database) {
	t.Helper()

	container, err := tcmongo.Run(ctx,
		"mongo:7",
		tcmongo.WithReplicaSet("rs0"),
	)
	if err != nil {
		t.Fatalf("failed to start mongodb container: %v", err)
	}

	uri, err := container.ConnectionString(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get connection string: %v", err)
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetDirect(true))
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to connect to mongodb: %v", err)
	}

	t.Cleanup(func() {
		_ = client.Disconnect(context.Background())
		_ = container.Terminate(context.Background())
	})

	return client, client.Database("maharani_test")
}
