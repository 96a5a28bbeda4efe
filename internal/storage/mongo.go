// internal/storage/mongo.go
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"testimonial-api/internal/metrics"
)

const (
	StatusConnected     = "connected"
	StatusNotConfigured = "not_configured"

	defaultTimeout = 10 * time.Second
)

// ErrNotConfigured is wrapped by every operation on a Storage created
// without a connection string.
var ErrNotConfigured = errors.New("database not configured")

// StorageError reports a failed store operation.
type StorageError struct {
	Op         string
	Collection string
	Err        error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Collection, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Storage is the document store adapter. A zero DB means the store was not
// configured at startup; reads and writes then fail with ErrNotConfigured.
type Storage struct {
	Client *mongo.Client
	DB     *mongo.Database

	probeTimeout time.Duration
}

// NewStorage connects to MongoDB and pings the primary. An empty uri
// returns an unconfigured Storage.
func NewStorage(ctx context.Context, uri, dbName string, timeout time.Duration) (*Storage, error) {
	s := &Storage{probeTimeout: timeout}
	if uri == "" {
		return s, nil
	}

	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to connect to db: %w", err)
	}

	s.Client = client
	s.DB = client.Database(dbName)
	return s, nil
}

// NewStorageFromDatabase wraps an existing database handle.
func NewStorageFromDatabase(db *mongo.Database, timeout time.Duration) *Storage {
	s := &Storage{DB: db, probeTimeout: timeout}
	if db != nil {
		s.Client = db.Client()
	}
	return s
}

// Configured reports whether a database handle is present.
func (s *Storage) Configured() bool {
	return s != nil && s.DB != nil
}

// CreateDocument inserts payload into collection, stamping created_at and
// updated_at, and returns the new document id.
func (s *Storage) CreateDocument(ctx context.Context, collection string, payload any) (string, error) {
	if !s.Configured() {
		return "", &StorageError{Op: "insert", Collection: collection, Err: ErrNotConfigured}
	}

	doc, err := toDocument(payload)
	if err != nil {
		return "", &StorageError{Op: "insert", Collection: collection, Err: err}
	}
	now := time.Now().UTC()
	doc = setIfAbsent(doc, "created_at", now)
	doc = setIfAbsent(doc, "updated_at", now)

	start := time.Now()
	res, err := s.DB.Collection(collection).InsertOne(ctx, doc)
	metrics.StoreOperationDuration.WithLabelValues("insert").Observe(time.Since(start).Seconds())
	if err != nil {
		return "", &StorageError{Op: "insert", Collection: collection, Err: err}
	}

	switch id := res.InsertedID.(type) {
	case primitive.ObjectID:
		return id.Hex(), nil
	case string:
		return id, nil
	default:
		return fmt.Sprint(id), nil
	}
}

// GetDocuments returns up to limit documents matching filter, in no
// particular order. A nil filter matches all documents; limit <= 0 means no
// limit.
func (s *Storage) GetDocuments(ctx context.Context, collection string, filter any, limit int64) ([]bson.M, error) {
	if !s.Configured() {
		return nil, &StorageError{Op: "find", Collection: collection, Err: ErrNotConfigured}
	}
	if filter == nil {
		filter = bson.D{}
	}

	opts := options.Find()
	if limit > 0 {
		opts.SetLimit(limit)
	}

	start := time.Now()
	defer func() {
		metrics.StoreOperationDuration.WithLabelValues("find").Observe(time.Since(start).Seconds())
	}()

	cursor, err := s.DB.Collection(collection).Find(ctx, filter, opts)
	if err != nil {
		return nil, &StorageError{Op: "find", Collection: collection, Err: err}
	}

	docs := make([]bson.M, 0)
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, &StorageError{Op: "find", Collection: collection, Err: err}
	}
	return docs, nil
}

// HealthCheck probes the store by listing collections. It never fails; the
// outcome is reported as connected, not_configured or "error: <detail>".
func (s *Storage) HealthCheck(ctx context.Context) (status string) {
	if !s.Configured() {
		return StatusNotConfigured
	}
	defer func() {
		if r := recover(); r != nil {
			status = fmt.Sprintf("error: %v", r)
		}
	}()

	if s.probeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.probeTimeout)
		defer cancel()
	}

	if _, err := s.DB.ListCollectionNames(ctx, bson.D{}); err != nil {
		return "error: " + err.Error()
	}
	return StatusConnected
}

// Close disconnects the client, if any.
func (s *Storage) Close(ctx context.Context) error {
	if s == nil || s.Client == nil {
		return nil
	}
	return s.Client.Disconnect(ctx)
}

func toDocument(payload any) (bson.D, error) {
	if payload == nil {
		return nil, errors.New("empty payload")
	}
	raw, err := bson.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	var doc bson.D
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return doc, nil
}

func setIfAbsent(doc bson.D, key string, value any) bson.D {
	for _, e := range doc {
		if e.Key == key {
			return doc
		}
	}
	return append(doc, bson.E{Key: key, Value: value})
}
