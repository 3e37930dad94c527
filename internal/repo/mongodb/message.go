package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Ahnaf-Tariq/echochat-server/internal/models"
)

// MessageRepository stores direct messages as individually addressable
// documents. Appends are single inserts and every other mutation is a
// field-level update, so concurrent writers in the same channel cannot
// overwrite each other's messages.
type MessageRepository interface {
	Create(ctx context.Context, message *models.Message) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Message, error)
	ListChannel(ctx context.Context, channelID string, limit int64, beforeTS *int64) ([]*models.Message, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	UpdateReactions(ctx context.Context, id primitive.ObjectID, version int64, reactions models.Reactions) error
	MarkSeen(ctx context.Context, channelID, receiverID string) (int64, error)
}

type messageRepo struct {
	collection *mongo.Collection
}

func NewMessageRepository(db *DB) (MessageRepository, error) {
	r := &messageRepo{
		collection: db.Database.Collection("messages"),
	}
	if err := r.ensureIndexes(context.Background()); err != nil {
		return nil, fmt.Errorf("ensure message indexes: %w", err)
	}
	return r, nil
}

func (r *messageRepo) ensureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "channel_id", Value: 1}, {Key: "timestamp", Value: 1}}},
		{Keys: bson.D{{Key: "channel_id", Value: 1}, {Key: "receiver_id", Value: 1}, {Key: "has_user_seen", Value: 1}}},
	})
	return err
}

func (r *messageRepo) Create(ctx context.Context, message *models.Message) error {
	message.ID = primitive.NewObjectID()
	message.Version = 1
	message.CreatedAt = time.Now()

	_, err := r.collection.InsertOne(ctx, message)
	if err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	return nil
}

func (r *messageRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Message, error) {
	var message models.Message
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&message)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}
	return &message, nil
}

func (r *messageRepo) ListChannel(ctx context.Context, channelID string, limit int64, beforeTS *int64) ([]*models.Message, error) {
	filter := bson.M{"channel_id": channelID}
	if beforeTS != nil {
		filter["timestamp"] = bson.M{"$lt": *beforeTS}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list channel messages: %w", err)
	}
	defer cursor.Close(ctx)

	var messages []*models.Message
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}

	// newest-first from the store, oldest-first for the caller
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (r *messageRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	if result.DeletedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

// UpdateReactions writes a reconciled reactions map guarded by the version
// the caller read. A concurrent writer bumps the version first and the write
// reports ErrVersionConflict instead of silently dropping the other update.
func (r *messageRepo) UpdateReactions(ctx context.Context, id primitive.ObjectID, version int64, reactions models.Reactions) error {
	filter := bson.M{"_id": id, "version": version}
	update := bson.M{
		"$inc": bson.M{"version": 1},
	}
	if len(reactions) > 0 {
		update["$set"] = bson.M{"reactions": reactions}
	} else {
		update["$unset"] = bson.M{"reactions": ""}
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("update reactions: %w", err)
	}
	if result.MatchedCount == 0 {
		return models.ErrVersionConflict
	}
	return nil
}

// MarkSeen flips every unseen message addressed to the receiver in one
// field-level update. Re-marking an already seen channel modifies nothing.
func (r *messageRepo) MarkSeen(ctx context.Context, channelID, receiverID string) (int64, error) {
	filter := bson.M{
		"channel_id":    channelID,
		"receiver_id":   receiverID,
		"has_user_seen": false,
	}
	update := bson.M{"$set": bson.M{"has_user_seen": true}}

	result, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("mark seen: %w", err)
	}
	return result.ModifiedCount, nil
}
