package persistence

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/khoahotran/town-notes/internal/config"
	"github.com/khoahotran/town-notes/pkg/logger"
)

const (
	CollectionProfiles     = "profiles"
	CollectionFieldReports = "field_reports"
)

// NewMongoDatabase connects once per process and makes sure the uniqueness
// indexes both collections rely on exist.
func NewMongoDatabase(ctx context.Context, cfg config.Config, log logger.Logger) (*mongo.Client, *mongo.Database, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		return nil, nil, fmt.Errorf("do not create mongo client: %w", err)
	}

	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("ping mongo failed: %w", err)
	}

	db := client.Database(cfg.Mongo.Database)
	if err := EnsureMongoIndexes(connectCtx, db); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, err
	}

	log.Info("Connect MongoDB successfully.")
	return client, db, nil
}

func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(CollectionProfiles).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uniq_email"),
	})
	if err != nil {
		return fmt.Errorf("create profiles email index: %w", err)
	}

	_, err = db.Collection(CollectionFieldReports).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}, {Key: "sessionID", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uniq_username_session"),
	})
	if err != nil {
		return fmt.Errorf("create field_reports key index: %w", err)
	}
	return nil
}
