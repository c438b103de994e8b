// Package history records conversation turns, append-only, keyed by session.
package history

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Turn is one question/answer exchange within a session.
type Turn struct {
	SessionID string    `bson:"sessionId"`
	Question  string    `bson:"question"`
	Answer    string    `bson:"answer"`
	CreatedAt time.Time `bson:"createdAt"`
}

// Recorder appends conversation turns. Nothing in the answering path ever
// reads them back.
type Recorder interface {
	Append(ctx context.Context, turn Turn) error
}

// MongoRecorder stores turns in a MongoDB collection.
type MongoRecorder struct {
	collection *mongo.Collection
}

// NewMongoRecorder creates a recorder over the given database. Turns land in
// the chat_history collection.
func NewMongoRecorder(db *mongo.Database) *MongoRecorder {
	return &MongoRecorder{
		collection: db.Collection("chat_history"),
	}
}

// Append writes one turn.
func (r *MongoRecorder) Append(ctx context.Context, turn Turn) error {
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}
	if _, err := r.collection.InsertOne(ctx, turn); err != nil {
		return fmt.Errorf("append conversation turn: %w", err)
	}
	return nil
}

// Recent returns the most recent turns for a session, newest first. Used by
// the history inspection endpoint, not by the answering path.
func (r *MongoRecorder) Recent(ctx context.Context, sessionID string, limit int64) ([]Turn, error) {
	if limit <= 0 {
		limit = 50
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(limit)
	cursor, err := r.collection.Find(ctx, bson.M{"sessionId": sessionID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find conversation turns: %w", err)
	}
	defer cursor.Close(ctx)

	var turns []Turn
	if err := cursor.All(ctx, &turns); err != nil {
		return nil, fmt.Errorf("decode conversation turns: %w", err)
	}
	return turns, nil
}
