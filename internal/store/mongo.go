package store

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore implements Reader against a MongoDB database.
type MongoStore struct {
	db           *mongo.Database
	queryTimeout time.Duration
}

// MongoConfig holds connection settings for the record store.
type MongoConfig struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
	QueryTimeout   time.Duration
}

// NewMongoStore connects to MongoDB and returns a read-only store handle.
func NewMongoStore(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = 15 * time.Second
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return &MongoStore{
		db:           client.Database(cfg.Database),
		queryTimeout: cfg.QueryTimeout,
	}, nil
}

// Close disconnects the underlying client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.db.Client().Disconnect(ctx)
}

// Database exposes the underlying handle for collaborators that share the
// connection, such as the conversation history recorder.
func (s *MongoStore) Database() *mongo.Database {
	return s.db
}

// ListCategories returns all queryable collections, excluding the chat
// history, system collections, and derived embedding collections.
func (s *MongoStore) ListCategories(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	names, err := s.db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}

	categories := make([]string, 0, len(names))
	for _, name := range names {
		if name == "chat_history" || strings.HasPrefix(name, "system.") || strings.HasSuffix(name, "_embeddings") {
			continue
		}
		categories = append(categories, name)
	}
	return categories, nil
}

// Count returns the number of documents in a collection.
func (s *MongoStore) Count(ctx context.Context, category string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	n, err := s.db.Collection(category).CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", category, err)
	}
	return n, nil
}

// Find returns all records matching the filter.
func (s *MongoStore) Find(ctx context.Context, category string, f Filter) ([]Record, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	cursor, err := s.db.Collection(category).Find(ctx, buildQuery(f))
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", category, err)
	}
	defer cursor.Close(ctx)

	var records []Record
	for cursor.Next(ctx) {
		var doc bson.D
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode %s: %w", category, err)
		}
		records = append(records, toRecord(doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor %s: %w", category, err)
	}
	return records, nil
}

// FindOne returns the first matching record or ErrNotFound. Identifier
// lookups try the typed ObjectID form first and fall back to the raw string.
func (s *MongoStore) FindOne(ctx context.Context, category string, f Filter) (*Record, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	coll := s.db.Collection(category)

	if f.ID != "" {
		if oid, err := primitive.ObjectIDFromHex(f.ID); err == nil {
			if rec, err := s.findOneQuery(ctx, coll, bson.D{{Key: "_id", Value: oid}}); err == nil {
				return rec, nil
			} else if err != ErrNotFound {
				return nil, err
			}
		}
		return s.findOneQuery(ctx, coll, bson.D{{Key: "_id", Value: f.ID}})
	}

	return s.findOneQuery(ctx, coll, buildQuery(f))
}

func (s *MongoStore) findOneQuery(ctx context.Context, coll *mongo.Collection, query bson.D) (*Record, error) {
	var doc bson.D
	err := coll.FindOne(ctx, query).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find one %s: %w", coll.Name(), err)
	}
	rec := toRecord(doc)
	return &rec, nil
}

// buildQuery translates a Filter into a MongoDB query document.
func buildQuery(f Filter) bson.D {
	switch {
	case f.NameEquals != "":
		return bson.D{{Key: "name", Value: bson.D{
			{Key: "$regex", Value: "^" + regexp.QuoteMeta(f.NameEquals) + "$"},
			{Key: "$options", Value: "i"},
		}}}
	case f.NameOrEmailContains != "":
		pattern := regexp.QuoteMeta(f.NameOrEmailContains)
		return bson.D{{Key: "$or", Value: bson.A{
			bson.D{{Key: "name", Value: bson.D{{Key: "$regex", Value: pattern}, {Key: "$options", Value: "i"}}}},
			bson.D{{Key: "email", Value: bson.D{{Key: "$regex", Value: pattern}, {Key: "$options", Value: "i"}}}},
		}}}
	case f.Reference != nil:
		value := referenceValue(f.Reference.ID)
		return bson.D{{Key: f.Reference.Field, Value: value}}
	case f.CreatedBetween != nil:
		return bson.D{{Key: "createdAt", Value: bson.D{
			{Key: "$gte", Value: f.CreatedBetween.From},
			{Key: "$lte", Value: f.CreatedBetween.To},
		}}}
	default:
		return bson.D{}
	}
}

func referenceValue(id string) interface{} {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return oid
	}
	return id
}

// toRecord converts a decoded document to the neutral Record shape,
// preserving field order and normalizing Mongo-specific value types.
func toRecord(doc bson.D) Record {
	rec := Record{
		Fields: make(map[string]interface{}, len(doc)),
		Order:  make([]string, 0, len(doc)),
	}
	for _, e := range doc {
		val := normalizeValue(e.Value)
		if e.Key == "_id" {
			rec.ID = fmt.Sprintf("%v", val)
		}
		rec.Fields[e.Key] = val
		rec.Order = append(rec.Order, e.Key)
	}
	return rec
}

func normalizeValue(v interface{}) interface{} {
	switch t := v.(type) {
	case primitive.ObjectID:
		return t.Hex()
	case primitive.DateTime:
		return t.Time().UTC()
	case bson.D:
		nested := make(map[string]interface{}, len(t))
		for _, e := range t {
			nested[e.Key] = normalizeValue(e.Value)
		}
		return nested
	case bson.A:
		items := make([]interface{}, len(t))
		for i, e := range t {
			items[i] = normalizeValue(e)
		}
		return items
	default:
		return v
	}
}
