package model

import (
	"fmt"
	"math"
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RecordFromDocument converts a stored document into a Record. It never
// fails: unknown or missing optional fields become nil, missing strings
// become empty.
func RecordFromDocument(doc bson.M) Record {
	return Record{
		ID:        idString(doc["_id"]),
		Name:      stringField(doc, "name"),
		Message:   stringField(doc, "message"),
		Rating:    intField(doc["rating"]),
		CreatedAt: timeField(doc["created_at"]),
	}
}

// RecordsFromDocuments applies RecordFromDocument to every document.
func RecordsFromDocuments(docs []bson.M) []Record {
	out := make([]Record, 0, len(docs))
	for _, d := range docs {
		out = append(out, RecordFromDocument(d))
	}
	return out
}

// SortNewestFirst orders records by CreatedAt descending. Records without a
// timestamp count as oldest and keep their relative order at the end.
func SortNewestFirst(records []Record) {
	slices.SortStableFunc(records, func(a, b Record) int {
		switch {
		case a.CreatedAt == nil && b.CreatedAt == nil:
			return 0
		case a.CreatedAt == nil:
			return 1
		case b.CreatedAt == nil:
			return -1
		}
		return b.CreatedAt.Compare(*a.CreatedAt)
	})
}

func idString(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case primitive.ObjectID:
		return id.Hex()
	case string:
		return id
	default:
		return fmt.Sprint(id)
	}
}

func stringField(doc bson.M, key string) string {
	if s, ok := doc[key].(string); ok {
		return s
	}
	return ""
}

func intField(v any) *int {
	var n int
	switch x := v.(type) {
	case int32:
		n = int(x)
	case int64:
		n = int(x)
	case int:
		n = x
	case float64:
		if x != math.Trunc(x) || math.IsInf(x, 0) {
			return nil
		}
		n = int(x)
	default:
		return nil
	}
	return &n
}

func timeField(v any) *time.Time {
	var t time.Time
	switch x := v.(type) {
	case primitive.DateTime:
		t = x.Time()
	case time.Time:
		t = x
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, x)
		if err != nil {
			return nil
		}
		t = parsed
	default:
		return nil
	}
	t = t.UTC()
	return &t
}
