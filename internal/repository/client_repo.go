package repository

import (
	"context"
	"regexp"
	"time"

	"cert-dashboard/internal/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ClientQuery struct {
	Search          string // 名稱、聯絡人、Email
	IncludeInactive bool   // 預設只列出啟用中的客戶
}

type ClientRepository interface {
	List(ctx context.Context, q ClientQuery) ([]domain.Client, error)
	GetByID(ctx context.Context, id string) (*domain.Client, error)
	Create(ctx context.Context, client domain.Client) (*domain.Client, error)
	Update(ctx context.Context, id string, patch domain.ClientPatch) (*domain.Client, error)
	SetInfrastructure(ctx context.Context, id string, infra domain.Infrastructure) (*domain.Client, error)
	SoftDelete(ctx context.Context, id string) error
}

type mongoClientRepo struct {
	collection *mongo.Collection
}

func NewMongoClientRepo(db *mongo.Database) ClientRepository {
	return &mongoClientRepo{
		collection: db.Collection("clients"),
	}
}

func (r *mongoClientRepo) List(ctx context.Context, q ClientQuery) ([]domain.Client, error) {
	filter := bson.M{}
	if !q.IncludeInactive {
		filter["is_active"] = true
	}
	if q.Search != "" {
		pattern := regexp.QuoteMeta(q.Search)
		filter["$or"] = []bson.M{
			{"name": primitive.Regex{Pattern: pattern, Options: "i"}},
			{"contact_name": primitive.Regex{Pattern: pattern, Options: "i"}},
			{"contact_email": primitive.Regex{Pattern: pattern, Options: "i"}},
		}
	}

	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	results := []domain.Client{}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *mongoClientRepo) GetByID(ctx context.Context, id string) (*domain.Client, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	var client domain.Client
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&client); err != nil {
		return nil, translate(err)
	}
	return &client, nil
}

func (r *mongoClientRepo) Create(ctx context.Context, client domain.Client) (*domain.Client, error) {
	if client.ID.IsZero() {
		client.ID = primitive.NewObjectID()
	}
	now := time.Now()
	client.IsActive = true
	client.CreatedAt = now
	client.UpdatedAt = now
	if client.Infrastructure != nil {
		client.Infrastructure.UpdatedAt = now
	}

	if _, err := r.collection.InsertOne(ctx, client); err != nil {
		return nil, translate(err)
	}
	return &client, nil
}

func (r *mongoClientRepo) Update(ctx context.Context, id string, patch domain.ClientPatch) (*domain.Client, error) {
	set, err := setDocument(patch)
	if err != nil {
		return nil, err
	}
	return r.set(ctx, id, set)
}

// SetInfrastructure 設備資料整筆覆蓋 (一個客戶只有一份)
func (r *mongoClientRepo) SetInfrastructure(ctx context.Context, id string, infra domain.Infrastructure) (*domain.Client, error) {
	infra.UpdatedAt = time.Now()
	return r.set(ctx, id, bson.M{"infrastructure": infra})
}

// SoftDelete 只把 is_active 設為 false，資料保留
func (r *mongoClientRepo) SoftDelete(ctx context.Context, id string) error {
	_, err := r.set(ctx, id, bson.M{"is_active": false})
	return err
}

func (r *mongoClientRepo) set(ctx context.Context, id string, set bson.M) (*domain.Client, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	set["updated_at"] = time.Now()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var client domain.Client
	err = r.collection.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&client)
	if err != nil {
		return nil, translate(err)
	}
	return &client, nil
}
