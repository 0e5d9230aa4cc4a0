package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/IshaanNene/waywo/internal/forum"
	"github.com/IshaanNene/waywo/internal/types"
)

// threadDocument is the stored shape of one cached thread.
type threadDocument struct {
	ThreadID int            `bson:"_id"`
	Posts    []forum.Record `bson:"posts"`
	SavedAt  time.Time      `bson:"savedAt"`
}

// MongoCache keeps one document per thread in a MongoDB collection.
type MongoCache struct {
	client     *mongo.Client
	collection *mongo.Collection
	logger     *slog.Logger
}

// NewMongoCache connects to uri and verifies the server is reachable.
func NewMongoCache(ctx context.Context, uri, database, collection string, logger *slog.Logger) (*MongoCache, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongodb ping: %w", err)
	}

	return &MongoCache{
		client:     client,
		collection: client.Database(database).Collection(collection),
		logger:     logger.With("component", "mongo_cache", "collection", collection),
	}, nil
}

func (c *MongoCache) Name() string { return "mongodb" }

func (c *MongoCache) Load(ctx context.Context, threadID int) ([]forum.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var doc threadDocument
	err := c.collection.FindOne(ctx, bson.M{"_id": threadID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, &types.CacheError{Backend: c.Name(), ThreadID: threadID, Err: err}
	}

	c.logger.Debug("cache loaded", "thread_id", threadID, "posts", len(doc.Posts), "saved_at", doc.SavedAt)
	return doc.Posts, nil
}

func (c *MongoCache) Save(ctx context.Context, threadID int, records []forum.Record) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	doc := threadDocument{ThreadID: threadID, Posts: records, SavedAt: time.Now().UTC()}
	_, err := c.collection.ReplaceOne(ctx, bson.M{"_id": threadID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return &types.CacheError{Backend: c.Name(), ThreadID: threadID, Err: fmt.Errorf("mongodb upsert: %w", err)}
	}

	c.logger.Info("cache written", "thread_id", threadID, "posts", len(records))
	return nil
}

func (c *MongoCache) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.client.Disconnect(ctx)
}
