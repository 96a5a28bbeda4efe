//go:build integration

package storage

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var store *Storage

func TestMain(m *testing.M) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		log.Fatalf("Could not connect to docker: %s", err)
	}

	resource, err := pool.Run("mongo", "7", nil)
	if err != nil {
		log.Fatalf("Could not start mongo: %s", err)
	}

	uri := fmt.Sprintf("mongodb://localhost:%s", resource.GetPort("27017/tcp"))
	err = pool.Retry(func() error {
		store, err = NewStorage(context.Background(), uri, "testimonials_it", 5*time.Second)
		return err
	})
	if err != nil {
		_ = pool.Purge(resource)
		log.Fatalf("Could not connect to mongo: %s", err)
	}

	code := m.Run()

	_ = store.Close(context.Background())
	_ = pool.Purge(resource)
	os.Exit(code)
}

func TestStorageLifecycle(t *testing.T) {
	ctx := context.Background()
	coll := "lifecycle"

	assert.Equal(t, StatusConnected, store.HealthCheck(ctx))

	r := 5
	id, err := store.CreateDocument(ctx, coll, testPayload{Name: "Ada", Message: "Great event", Rating: &r})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	docs, err := store.GetDocuments(ctx, coll, bson.M{"name": "Ada"}, 10)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	oid, err := primitive.ObjectIDFromHex(id)
	require.NoError(t, err)
	assert.Equal(t, oid, docs[0]["_id"])
	assert.Equal(t, int32(5), docs[0]["rating"])
	assert.IsType(t, primitive.DateTime(0), docs[0]["created_at"])
	assert.IsType(t, primitive.DateTime(0), docs[0]["updated_at"])
}

func TestGetDocumentsLimit(t *testing.T) {
	ctx := context.Background()
	coll := "limited"

	for i := 0; i < 4; i++ {
		_, err := store.CreateDocument(ctx, coll, testPayload{Name: fmt.Sprintf("n%d", i), Message: "hello there"})
		require.NoError(t, err)
	}

	docs, err := store.GetDocuments(ctx, coll, nil, 3)
	require.NoError(t, err)
	assert.Len(t, docs, 3)

	docs, err = store.GetDocuments(ctx, coll, nil, 0)
	require.NoError(t, err)
	assert.Len(t, docs, 4)
}
