// Package mongo provides the MongoDB read model for the per-user activity feed.
package mongo

import (
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pix-settlement-ledger/internal/domain/activity"
)

const (
	// ActivityCollectionName is the name of the activity feed collection in MongoDB
	ActivityCollectionName = "user_activity"
)

// ActivityRepository implements the activity.Repository interface for MongoDB
type ActivityRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewActivityRepository creates a new MongoDB activity repository
func NewActivityRepository(logger *slog.Logger, db *mongo.Database) *ActivityRepository {
	return &ActivityRepository{
		db:     db,
		logger: logger,
	}
}

var _ activity.Repository = (*ActivityRepository)(nil)

// EnsureIndexes creates the index backing the per-user feed query.
func (r *ActivityRepository) EnsureIndexes(ctx context.Context) error {
	collection := r.db.Collection(ActivityCollectionName)

	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "occurred_at", Value: -1}},
		Options: options.Index().SetName("user_id_occurred_at"),
	})
	if err != nil {
		r.logger.Error("Failed to create activity index", "error", err)
		return fmt.Errorf("failed to create activity index: %w", err)
	}
	return nil
}

// Record upserts the entry keyed by event id. A replayed event matches the existing
// document and leaves it untouched.
func (r *ActivityRepository) Record(ctx context.Context, entry *activity.Entry) (bool, error) {
	collection := r.db.Collection(ActivityCollectionName)

	filter := bson.M{"_id": entry.EventID}
	update := bson.M{"$setOnInsert": entry}

	result, err := collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		r.logger.Error("Failed to record activity entry",
			"event_id", entry.EventID,
			"user_id", entry.UserID,
			"error", err)
		return false, fmt.Errorf("failed to record activity entry: %w", err)
	}

	return result.UpsertedCount > 0, nil
}

// ListByUserID retrieves paginated feed entries for a user, newest first.
func (r *ActivityRepository) ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*activity.Entry, error) {
	collection := r.db.Collection(ActivityCollectionName)

	filter := bson.M{"user_id": userID}
	opts := options.Find().
		SetSort(bson.D{{Key: "occurred_at", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to get activity entries",
			"user_id", userID,
			"error", err)
		return nil, fmt.Errorf("failed to get activity entries: %w", err)
	}
	defer cursor.Close(ctx)

	entries := make([]*activity.Entry, 0)
	if err := cursor.All(ctx, &entries); err != nil {
		r.logger.Error("Failed to decode activity entries",
			"user_id", userID,
			"error", err)
		return nil, fmt.Errorf("failed to decode activity entries: %w", err)
	}

	return entries, nil
}

// CountByUserID counts the feed entries of a user
func (r *ActivityRepository) CountByUserID(ctx context.Context, userID string) (int64, error) {
	collection := r.db.Collection(ActivityCollectionName)

	count, err := collection.CountDocuments(ctx, bson.M{"user_id": userID})
	if err != nil {
		r.logger.Error("Failed to count activity entries",
			"user_id", userID,
			"error", err)
		return 0, fmt.Errorf("failed to count activity entries: %w", err)
	}

	return count, nil
}
