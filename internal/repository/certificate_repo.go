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

// CertificateQuery 列表查詢條件，空值代表不限制
type CertificateQuery struct {
	Search string // 域名或說明模糊搜尋
	Type   domain.CertificateType
	Status string
	Sort   string // expiration_asc | expiration_desc | domain | 預設最新建立
}

type CertificateRepository interface {
	List(ctx context.Context, q CertificateQuery) ([]domain.Certificate, error)
	GetByID(ctx context.Context, id string) (*domain.Certificate, error)
	GetByDomain(ctx context.Context, name string) (*domain.Certificate, error)
	Create(ctx context.Context, cert domain.Certificate) (*domain.Certificate, error)
	Update(ctx context.Context, id string, patch domain.CertificatePatch) (*domain.Certificate, error)
	Delete(ctx context.Context, id string) error
	UpdateAlertTime(ctx context.Context, id primitive.ObjectID, at time.Time) error
}

type mongoCertificateRepo struct {
	collection *mongo.Collection
}

func NewMongoCertificateRepo(db *mongo.Database) CertificateRepository {
	return &mongoCertificateRepo{
		collection: db.Collection("certificates"),
	}
}

func (r *mongoCertificateRepo) List(ctx context.Context, q CertificateQuery) ([]domain.Certificate, error) {
	filter := bson.M{}

	// 模糊搜尋 (忽略大小寫，關鍵字先跳脫避免被當成 regex)
	if q.Search != "" {
		pattern := regexp.QuoteMeta(q.Search)
		filter["$or"] = []bson.M{
			{"domain": primitive.Regex{Pattern: pattern, Options: "i"}},
			{"description": primitive.Regex{Pattern: pattern, Options: "i"}},
		}
	}
	if q.Type != "" {
		filter["type"] = q.Type
	}
	if q.Status != "" {
		filter["status"] = primitive.Regex{Pattern: "^" + regexp.QuoteMeta(q.Status) + "$", Options: "i"}
	}

	var sortOpts bson.D
	switch q.Sort {
	case "expiration_asc":
		sortOpts = bson.D{{Key: "expiration_date", Value: 1}} // 過期日由近到遠
	case "expiration_desc":
		sortOpts = bson.D{{Key: "expiration_date", Value: -1}}
	case "domain":
		sortOpts = bson.D{{Key: "domain", Value: 1}}
	default:
		sortOpts = bson.D{{Key: "_id", Value: -1}} // 預設新加入的在前面
	}

	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(sortOpts))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	results := []domain.Certificate{}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *mongoCertificateRepo) GetByID(ctx context.Context, id string) (*domain.Certificate, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	var cert domain.Certificate
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&cert); err != nil {
		return nil, translate(err)
	}
	return &cert, nil
}

func (r *mongoCertificateRepo) GetByDomain(ctx context.Context, name string) (*domain.Certificate, error) {
	var cert domain.Certificate
	if err := r.collection.FindOne(ctx, bson.M{"domain": name}).Decode(&cert); err != nil {
		return nil, translate(err)
	}
	return &cert, nil
}

// Create domain 有唯一索引，重複時回傳 ErrDuplicate
func (r *mongoCertificateRepo) Create(ctx context.Context, cert domain.Certificate) (*domain.Certificate, error) {
	if cert.ID.IsZero() {
		cert.ID = primitive.NewObjectID()
	}
	now := time.Now()
	cert.CreatedAt = now
	cert.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, cert); err != nil {
		return nil, translate(err)
	}
	return &cert, nil
}

// Update 只寫入 patch 中有值的欄位，回傳更新後的資料
func (r *mongoCertificateRepo) Update(ctx context.Context, id string, patch domain.CertificatePatch) (*domain.Certificate, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	set, err := setDocument(patch)
	if err != nil {
		return nil, err
	}
	set["updated_at"] = time.Now()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var cert domain.Certificate
	err = r.collection.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&cert)
	if err != nil {
		return nil, translate(err)
	}
	return &cert, nil
}

// Delete 憑證為實體刪除
func (r *mongoCertificateRepo) Delete(ctx context.Context, id string) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoCertificateRepo) UpdateAlertTime(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"last_alert_at": at}})
	return err
}
