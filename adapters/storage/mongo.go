package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/clawlab/companion/domain/repositories"
)

const mongoOpTimeout = 5 * time.Second

type kvDocument struct {
	Key   string `bson:"_id"`
	Value string `bson:"value"`
}

// MongoStore is a KeyValueStore backed by a MongoDB collection, one
// document per key. Like the other backends it absorbs failures: the
// contract promises silent sets and absent reads on error.
type MongoStore struct {
	collection *mongo.Collection
	logger     *zap.Logger
}

// NewMongoStore connects to MongoDB at uri and uses the given database and
// collection. The connection is verified with a ping before returning.
func NewMongoStore(ctx context.Context, uri, database, collection string, logger *zap.Logger) (*MongoStore, error) {
	clientOptions := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(5 * time.Second).
		SetConnectTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logger.Info("Connected to MongoDB key-value store",
		zap.String("database", database),
		zap.String("collection", collection))

	return &MongoStore{
		collection: client.Database(database).Collection(collection),
		logger:     logger,
	}, nil
}

var _ repositories.KeyValueStore = (*MongoStore)(nil)

func (s *MongoStore) Get(key string) (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), mongoOpTimeout)
	defer cancel()

	var doc kvDocument
	err := s.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			s.logger.Error("Failed to read key from MongoDB",
				zap.String("key", key),
				zap.Error(err))
		}
		return "", false
	}
	return doc.Value, true
}

func (s *MongoStore) Set(key, value string) {
	ctx, cancel := context.WithTimeout(context.Background(), mongoOpTimeout)
	defer cancel()

	_, err := s.collection.ReplaceOne(ctx,
		bson.M{"_id": key},
		kvDocument{Key: key, Value: value},
		options.Replace().SetUpsert(true))
	if err != nil {
		s.logger.Error("Failed to write key to MongoDB",
			zap.String("key", key),
			zap.Error(err))
	}
}

func (s *MongoStore) Remove(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), mongoOpTimeout)
	defer cancel()

	if _, err := s.collection.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		s.logger.Error("Failed to delete key from MongoDB",
			zap.String("key", key),
			zap.Error(err))
	}
}

// Close disconnects the underlying client.
func (s *MongoStore) Close(ctx context.Context) error {
	if err := s.collection.Database().Client().Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from MongoDB: %w", err)
	}
	return nil
}
