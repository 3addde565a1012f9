package database

import (
	"context"
	"fmt"
	"time"

	"cert-dashboard/internal/conf"

	"github.com/cenkalti/backoff/v5"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	appName        = "cert-dashboard"
	connectTimeout = 10 * time.Second
	connectTries   = 5
)

// Connect 建立連線並確認 Primary 可用；容器一起啟動時 MongoDB 可能還沒就緒，失敗會退避重試
func Connect(cfg conf.MongoConfig) (*mongo.Client, error) {
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetAppName(appName).
		SetServerSelectionTimeout(connectTimeout)

	client, err := mongo.Connect(context.Background(), opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	_, err = backoff.Retry(context.Background(), func() (struct{}, error) {
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		if err := client.Ping(ctx, readpref.Primary()); err != nil {
			logrus.Warnf("⏳ [MongoDB] 尚未就緒: %v", err)
			return struct{}{}, err
		}
		return struct{}{}, nil
	}, backoff.WithBackOff(b), backoff.WithMaxTries(connectTries))
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	logrus.Infof("✅ [MongoDB] 成功連線，資料庫: %s", cfg.Database)
	return client, nil
}

// 每個集合需要的索引
var indexes = map[string][]mongo.IndexModel{
	"certificates": {
		{Keys: bson.D{{Key: "domain", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "expiration_date", Value: 1}}},
	},
	"clients": {
		{Keys: bson.D{{Key: "name", Value: 1}}},
	},
	"users": {
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
	},
	"notifications": {
		{Keys: bson.D{{Key: "read", Value: 1}, {Key: "created_at", Value: -1}}},
	},
}

// EnsureIndexes 啟動時建立索引，重複建立不會出錯
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	for coll, models := range indexes {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
		logrus.Debugf("索引已確認: %s (%d)", coll, len(models))
	}
	return nil
}
