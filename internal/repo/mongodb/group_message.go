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

type GroupMessageRepository interface {
	Create(ctx context.Context, message *models.GroupMessage) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.GroupMessage, error)
	ListByGroup(ctx context.Context, groupID primitive.ObjectID, limit int64, beforeTS *int64) ([]*models.GroupMessage, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	DeleteByGroup(ctx context.Context, groupID primitive.ObjectID) (int64, error)
	UpdateReactions(ctx context.Context, id primitive.ObjectID, version int64, reactions models.Reactions) error
}

type groupMessageRepo struct {
	collection *mongo.Collection
}

func NewGroupMessageRepository(db *DB) (GroupMessageRepository, error) {
	r := &groupMessageRepo{
		collection: db.Database.Collection("group_messages"),
	}
	_, err := r.collection.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys: bson.D{{Key: "group_id", Value: 1}, {Key: "timestamp", Value: 1}},
	})
	if err != nil {
		return nil, fmt.Errorf("ensure group message indexes: %w", err)
	}
	return r, nil
}

func (r *groupMessageRepo) Create(ctx context.Context, message *models.GroupMessage) error {
	message.ID = primitive.NewObjectID()
	message.Version = 1
	message.CreatedAt = time.Now()

	_, err := r.collection.InsertOne(ctx, message)
	if err != nil {
		return fmt.Errorf("create group message: %w", err)
	}
	return nil
}

func (r *groupMessageRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.GroupMessage, error) {
	var message models.GroupMessage
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&message)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get group message: %w", err)
	}
	return &message, nil
}

func (r *groupMessageRepo) ListByGroup(ctx context.Context, groupID primitive.ObjectID, limit int64, beforeTS *int64) ([]*models.GroupMessage, error) {
	filter := bson.M{"group_id": groupID}
	if beforeTS != nil {
		filter["timestamp"] = bson.M{"$lt": *beforeTS}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list group messages: %w", err)
	}
	defer cursor.Close(ctx)

	var messages []*models.GroupMessage
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("decode group messages: %w", err)
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (r *groupMessageRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete group message: %w", err)
	}
	if result.DeletedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *groupMessageRepo) DeleteByGroup(ctx context.Context, groupID primitive.ObjectID) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{"group_id": groupID})
	if err != nil {
		return 0, fmt.Errorf("delete group messages: %w", err)
	}
	return result.DeletedCount, nil
}

func (r *groupMessageRepo) UpdateReactions(ctx context.Context, id primitive.ObjectID, version int64, reactions models.Reactions) error {
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
		return fmt.Errorf("update group message reactions: %w", err)
	}
	if result.MatchedCount == 0 {
		return models.ErrVersionConflict
	}
	return nil
}
