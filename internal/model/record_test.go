package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestRecordFromDocument(t *testing.T) {
	oid := primitive.NewObjectID()
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("full document", func(t *testing.T) {
		rec := RecordFromDocument(bson.M{
			"_id":        oid,
			"name":       "Ada",
			"message":    "Wonderful",
			"rating":     int32(4),
			"created_at": primitive.NewDateTimeFromTime(ts),
			"email":      "ada@example.com",
		})
		assert.Equal(t, oid.Hex(), rec.ID)
		assert.Equal(t, "Ada", rec.Name)
		assert.Equal(t, "Wonderful", rec.Message)
		require.NotNil(t, rec.Rating)
		assert.Equal(t, 4, *rec.Rating)
		require.NotNil(t, rec.CreatedAt)
		assert.True(t, ts.Equal(*rec.CreatedAt))
	})

	t.Run("sparse document", func(t *testing.T) {
		rec := RecordFromDocument(bson.M{"_id": "custom-id"})
		assert.Equal(t, "custom-id", rec.ID)
		assert.Empty(t, rec.Name)
		assert.Empty(t, rec.Message)
		assert.Nil(t, rec.Rating)
		assert.Nil(t, rec.CreatedAt)
	})

	t.Run("odd types", func(t *testing.T) {
		rec := RecordFromDocument(bson.M{
			"_id":        int64(42),
			"name":       123,
			"rating":     "five",
			"created_at": "2024-05-01T12:00:00Z",
		})
		assert.Equal(t, "42", rec.ID)
		assert.Empty(t, rec.Name)
		assert.Nil(t, rec.Rating)
		require.NotNil(t, rec.CreatedAt)
		assert.True(t, ts.Equal(*rec.CreatedAt))
	})

	t.Run("numeric ratings", func(t *testing.T) {
		assert.Equal(t, 3, *RecordFromDocument(bson.M{"rating": int64(3)}).Rating)
		assert.Equal(t, 2, *RecordFromDocument(bson.M{"rating": float64(2)}).Rating)
		assert.Nil(t, RecordFromDocument(bson.M{"rating": 2.5}).Rating)
		assert.Nil(t, RecordFromDocument(bson.M{"rating": nil}).Rating)
	})
}

func TestSortNewestFirst(t *testing.T) {
	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	t3 := t2.Add(time.Hour)

	records := []Record{
		{ID: "undated-1"},
		{ID: "t1", CreatedAt: &t1},
		{ID: "t3", CreatedAt: &t3},
		{ID: "undated-2"},
		{ID: "t2", CreatedAt: &t2},
	}
	SortNewestFirst(records)

	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	assert.Equal(t, []string{"t3", "t2", "t1", "undated-1", "undated-2"}, ids)
}

func TestRecordsFromDocuments(t *testing.T) {
	assert.Empty(t, RecordsFromDocuments(nil))
	recs := RecordsFromDocuments([]bson.M{{"_id": "a"}, {"_id": "b"}})
	require.Len(t, recs, 2)
	assert.Equal(t, "b", recs[1].ID)
}
