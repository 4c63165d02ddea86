package database

import (
	"context"
	"time"

	"github.com/muelle-planner/platform/pkg/common/config"
	"github.com/muelle-planner/platform/pkg/common/logger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

func OpenMongo(ctx context.Context, cfg *config.Config) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		logger.Log.WithError(err).Error("Failed to connect to MongoDB")
		return nil, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		logger.Log.WithError(err).Error("Failed to ping MongoDB")
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	logger.Log.WithField("database", cfg.MongoDB).Info("Connected to MongoDB")
	return client, nil
}
