package repository

import (
	"context"
	"errors"
	"time"

	"cert-dashboard/internal/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type SettingsRepository interface {
	Get(ctx context.Context) (*domain.Settings, error)
	Save(ctx context.Context, settings domain.Settings) error
	Clear(ctx context.Context) error
}

// 全域設定只有一筆
type mongoSettingsRepo struct {
	collection *mongo.Collection
}

func NewMongoSettingsRepo(db *mongo.Database) SettingsRepository {
	return &mongoSettingsRepo{
		collection: db.Collection("settings"),
	}
}

// Get 尚未儲存過時回傳預設值
func (r *mongoSettingsRepo) Get(ctx context.Context) (*domain.Settings, error) {
	var settings domain.Settings
	err := r.collection.FindOne(ctx, bson.M{}).Decode(&settings)
	if errors.Is(err, mongo.ErrNoDocuments) {
		defaults := domain.DefaultSettings()
		return &defaults, nil
	}
	if err != nil {
		return nil, err
	}
	settings.Normalize()
	return &settings, nil
}

func (r *mongoSettingsRepo) Save(ctx context.Context, settings domain.Settings) error {
	settings.Normalize()
	settings.UpdatedAt = time.Now()
	// 使用 Upsert，確保只有一筆設定
	opts := options.Update().SetUpsert(true)
	_, err := r.collection.UpdateOne(ctx, bson.M{}, bson.M{"$set": settings}, opts)
	return err
}

// Clear 刪除設定，之後 Get 會回到預設值
func (r *mongoSettingsRepo) Clear(ctx context.Context) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{})
	return err
}
