package repository

import (
	"context"
	"testing"
	"time"

	"cert-dashboard/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func newMock(t *testing.T) *mtest.T {
	return mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
}

func duplicateKey() bson.D {
	return mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "E11000 duplicate key error"})
}

func certDoc(id primitive.ObjectID, name string, exp time.Time) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "domain", Value: name},
		{Key: "type", Value: "WEB_PAGE"},
		{Key: "status", Value: "active"},
		{Key: "expiration_date", Value: primitive.NewDateTimeFromTime(exp)},
	}
}

func TestCertificateRepo(t *testing.T) {
	mt := newMock(t)
	ctx := context.Background()
	exp := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)

	mt.Run("list decodes documents", func(mt *mtest.T) {
		repo := NewMongoCertificateRepo(mt.DB)
		a, b := primitive.NewObjectID(), primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "db.certificates", mtest.FirstBatch,
			certDoc(a, "a.com", exp),
			certDoc(b, "b.com", exp),
		))

		certs, err := repo.List(ctx, CertificateQuery{Search: "a.com (", Sort: "expiration_asc"})
		require.NoError(t, err)
		require.Len(t, certs, 2)
		assert.Equal(t, a, certs[0].ID)
		assert.Equal(t, domain.TypeWebPage, certs[0].Type)
		require.NotNil(t, certs[0].ExpirationDate)
		assert.True(t, exp.Equal(*certs[0].ExpirationDate))
	})

	mt.Run("list empty returns empty slice", func(mt *mtest.T) {
		repo := NewMongoCertificateRepo(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "db.certificates", mtest.FirstBatch))

		certs, err := repo.List(ctx, CertificateQuery{})
		require.NoError(t, err)
		assert.NotNil(t, certs)
		assert.Empty(t, certs)
	})

	mt.Run("create sets id and timestamps", func(mt *mtest.T) {
		repo := NewMongoCertificateRepo(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		created, err := repo.Create(ctx, domain.Certificate{Domain: "new.com", Type: domain.TypeWebPage, ExpirationDate: &exp})
		require.NoError(t, err)
		assert.False(t, created.ID.IsZero())
		assert.False(t, created.CreatedAt.IsZero())
		assert.Equal(t, created.CreatedAt, created.UpdatedAt)
	})

	mt.Run("create duplicate domain", func(mt *mtest.T) {
		repo := NewMongoCertificateRepo(mt.DB)
		mt.AddMockResponses(duplicateKey())

		_, err := repo.Create(ctx, domain.Certificate{Domain: "dup.com"})
		assert.ErrorIs(t, err, ErrDuplicate)
	})

	mt.Run("get by id not found", func(mt *mtest.T) {
		repo := NewMongoCertificateRepo(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "db.certificates", mtest.FirstBatch))

		_, err := repo.GetByID(ctx, primitive.NewObjectID().Hex())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	mt.Run("invalid id", func(mt *mtest.T) {
		repo := NewMongoCertificateRepo(mt.DB)

		_, err := repo.GetByID(ctx, "not-an-id")
		assert.ErrorIs(t, err, ErrInvalidID)
		assert.ErrorIs(t, repo.Delete(ctx, "zzz"), ErrInvalidID)
	})

	mt.Run("update returns new document", func(mt *mtest.T) {
		repo := NewMongoCertificateRepo(mt.DB)
		id := primitive.NewObjectID()
		doc := certDoc(id, "a.com", exp)
		doc = append(doc, bson.E{Key: "description", Value: "renewed"})
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: doc}))

		desc := "renewed"
		cert, err := repo.Update(ctx, id.Hex(), domain.CertificatePatch{Description: &desc})
		require.NoError(t, err)
		assert.Equal(t, "renewed", cert.Description)
	})

	mt.Run("update missing document", func(mt *mtest.T) {
		repo := NewMongoCertificateRepo(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}))

		status := "inactive"
		_, err := repo.Update(ctx, primitive.NewObjectID().Hex(), domain.CertificatePatch{Status: &status})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	mt.Run("delete", func(mt *mtest.T) {
		repo := NewMongoCertificateRepo(mt.DB)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}),
		)

		assert.NoError(t, repo.Delete(ctx, primitive.NewObjectID().Hex()))
		assert.ErrorIs(t, repo.Delete(ctx, primitive.NewObjectID().Hex()), ErrNotFound)
	})
}

func TestClientRepo(t *testing.T) {
	mt := newMock(t)
	ctx := context.Background()

	mt.Run("create marks client active", func(mt *mtest.T) {
		repo := NewMongoClientRepo(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		c, err := repo.Create(ctx, domain.Client{Name: "Acme"})
		require.NoError(t, err)
		assert.True(t, c.IsActive)
	})

	mt.Run("set infrastructure", func(mt *mtest.T) {
		repo := NewMongoClientRepo(mt.DB)
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{
			{Key: "_id", Value: id},
			{Key: "name", Value: "Acme"},
			{Key: "is_active", Value: true},
			{Key: "infrastructure", Value: bson.D{
				{Key: "computer_count", Value: 12},
				{Key: "executable_version", Value: "v3 01/02/2025"},
			}},
		}}))

		n := 12
		c, err := repo.SetInfrastructure(ctx, id.Hex(), domain.Infrastructure{ComputerCount: &n})
		require.NoError(t, err)
		require.NotNil(t, c.Infrastructure)
		require.NotNil(t, c.Infrastructure.ComputerCount)
		assert.Equal(t, 12, *c.Infrastructure.ComputerCount)
		assert.Nil(t, c.Infrastructure.ServerCount)
	})

	mt.Run("soft delete of unknown client", func(mt *mtest.T) {
		repo := NewMongoClientRepo(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}))

		assert.ErrorIs(t, repo.SoftDelete(ctx, primitive.NewObjectID().Hex()), ErrNotFound)
	})
}

func TestSettingsRepo(t *testing.T) {
	mt := newMock(t)
	ctx := context.Background()

	mt.Run("defaults when empty", func(mt *mtest.T) {
		repo := NewMongoSettingsRepo(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "db.settings", mtest.FirstBatch))

		s, err := repo.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.DefaultSettings(), *s)
	})

	mt.Run("stored settings are normalized", func(mt *mtest.T) {
		repo := NewMongoSettingsRepo(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "db.settings", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: primitive.NewObjectID()},
			{Key: "telegram_enabled", Value: true},
			{Key: "alert_within_days", Value: 0},
		}))

		s, err := repo.Get(ctx)
		require.NoError(t, err)
		assert.True(t, s.TelegramEnabled)
		assert.Equal(t, domain.DefaultAlertWithinDays, s.AlertWithinDays)
		assert.Equal(t, domain.DefaultCheckSchedule, s.CheckSchedule)
	})

	mt.Run("save", func(mt *mtest.T) {
		repo := NewMongoSettingsRepo(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))

		assert.NoError(t, repo.Save(ctx, domain.DefaultSettings()))
	})
}

func TestNotificationRepo(t *testing.T) {
	mt := newMock(t)
	ctx := context.Background()

	mt.Run("mark all read", func(mt *mtest.T) {
		repo := NewMongoNotificationRepo(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 3},
			bson.E{Key: "nModified", Value: 3},
		))

		n, err := repo.MarkAllRead(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
	})

	mt.Run("mark read unknown", func(mt *mtest.T) {
		repo := NewMongoNotificationRepo(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))

		assert.ErrorIs(t, repo.MarkRead(ctx, primitive.NewObjectID().Hex()), ErrNotFound)
	})
}

func TestUserRepo(t *testing.T) {
	mt := newMock(t)
	ctx := context.Background()

	mt.Run("count", func(mt *mtest.T) {
		repo := NewMongoUserRepo(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "db.users", mtest.FirstBatch, bson.D{{Key: "n", Value: 2}}))

		n, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	})

	mt.Run("duplicate username", func(mt *mtest.T) {
		repo := NewMongoUserRepo(mt.DB)
		mt.AddMockResponses(duplicateKey())

		_, err := repo.Create(ctx, domain.User{Username: "admin"})
		assert.ErrorIs(t, err, ErrDuplicate)
	})

	mt.Run("password hash is decoded", func(mt *mtest.T) {
		repo := NewMongoUserRepo(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "db.users", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: primitive.NewObjectID()},
			{Key: "username", Value: "ann"},
			{Key: "password_hash", Value: "$2a$10$hash"},
			{Key: "role", Value: "viewer"},
			{Key: "is_active", Value: true},
		}))

		u, err := repo.GetByUsername(ctx, "ann")
		require.NoError(t, err)
		assert.Equal(t, "$2a$10$hash", u.PasswordHash)
		assert.Equal(t, domain.RoleViewer, u.Role)
	})
}

func TestSetDocument_SkipsNilFields(t *testing.T) {
	desc := ""
	doc, err := setDocument(domain.CertificatePatch{Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, bson.M{"description": ""}, doc)
}
