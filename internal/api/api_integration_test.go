//go:build integration

package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"testimonial-api/internal/config"
	"testimonial-api/internal/storage"
)

var db *storage.Storage

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
		db, err = storage.NewStorage(context.Background(), uri, "testimonials_api_it", 5*time.Second)
		return err
	})
	if err != nil {
		_ = pool.Purge(resource)
		log.Fatalf("Could not connect to mongo: %s", err)
	}

	code := m.Run()

	_ = db.Close(context.Background())
	_ = pool.Purge(resource)
	os.Exit(code)
}

func TestFeedbackLifecycle(t *testing.T) {
	h := NewAPI(db, nil, config.Default()).Router()

	rec := do(t, h, http.MethodGet, "/test", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","db":"connected"}`, rec.Body.String())

	for i, name := range []string{"T1", "T2", "T3"} {
		body := fmt.Sprintf(`{"name":%q,"message":"integration message","rating":%d}`, name, i+1)
		require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/feedback", body).Code)
		// created_at has millisecond resolution in BSON
		time.Sleep(5 * time.Millisecond)
	}

	records := listRecords(t, h, "/testimonials?limit=10")
	require.Len(t, records, 3)
	assert.Equal(t, "T3", records[0].Name)
	assert.Equal(t, "T2", records[1].Name)
	assert.Equal(t, "T1", records[2].Name)
	assert.Equal(t, 3, *records[0].Rating)
	for _, r := range records {
		assert.NotEmpty(t, r.ID)
		assert.NotNil(t, r.CreatedAt)
	}
}
