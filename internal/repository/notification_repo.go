package repository

import (
	"context"
	"time"

	"cert-dashboard/internal/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type NotificationRepository interface {
	List(ctx context.Context, unreadOnly bool, limit int64) ([]domain.Notification, error)
	UnreadCount(ctx context.Context) (int64, error)
	Create(ctx context.Context, n domain.Notification) error
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context) (int64, error)
	Clear(ctx context.Context) (int64, error)
}

type mongoNotificationRepo struct {
	collection *mongo.Collection
}

func NewMongoNotificationRepo(db *mongo.Database) NotificationRepository {
	return &mongoNotificationRepo{
		collection: db.Collection("notifications"),
	}
}

// List 新的在前；limit <= 0 表示不限筆數
func (r *mongoNotificationRepo) List(ctx context.Context, unreadOnly bool, limit int64) ([]domain.Notification, error) {
	filter := bson.M{}
	if unreadOnly {
		filter["read"] = false
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	results := []domain.Notification{}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *mongoNotificationRepo) UnreadCount(ctx context.Context) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"read": false})
}

func (r *mongoNotificationRepo) Create(ctx context.Context, n domain.Notification) error {
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	_, err := r.collection.InsertOne(ctx, n)
	return err
}

func (r *mongoNotificationRepo) MarkRead(ctx context.Context, id string) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoNotificationRepo) MarkAllRead(ctx context.Context) (int64, error) {
	res, err := r.collection.UpdateMany(ctx, bson.M{"read": false}, bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *mongoNotificationRepo) Clear(ctx context.Context) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
