package storage

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoConfig contains connection settings for the MongoDB save repository.
type MongoConfig struct {
	URI        string // e.g. mongodb://localhost:27017
	Database   string // e.g. sprite_engine
	Collection string // e.g. level_saves
}

type mongoSaveDoc struct {
	Level     string    `bson:"level"`
	Data      []byte    `bson:"data"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// MongoSaveRepo implements SaveRepo on MongoDB backend.
type MongoSaveRepo struct {
	client     *mongo.Client
	collection *mongo.Collection
	ctxTimeout time.Duration
}

// NewMongoSaveRepo establishes connection and returns repository.
func NewMongoSaveRepo(ctx context.Context, cfg MongoConfig) (*MongoSaveRepo, error) {
	if cfg.URI == "" {
		cfg.URI = "mongodb://localhost:27017"
	}
	if cfg.Database == "" {
		cfg.Database = "sprite_engine"
	}
	if cfg.Collection == "" {
		cfg.Collection = "level_saves"
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}

	repo := &MongoSaveRepo{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
		ctxTimeout: 5 * time.Second,
	}

	levelIdx := mongo.IndexModel{
		Keys:    bson.D{{Key: "level", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("level_unique"),
	}
	if _, err := repo.collection.Indexes().CreateOne(ctx, levelIdx); err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}
	return repo, nil
}

// SaveLevel upserts the level document.
func (m *MongoSaveRepo) SaveLevel(ctx context.Context, save *LevelSave) error {
	blob, err := encodeSave(save)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, m.ctxTimeout)
	defer cancel()

	doc := mongoSaveDoc{Level: save.Level, Data: blob, UpdatedAt: time.Now().UTC()}
	_, err = m.collection.ReplaceOne(ctx, bson.M{"level": save.Level}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save level %s: %w", save.Level, err)
	}
	return nil
}

// LoadLevel reads the level document.
func (m *MongoSaveRepo) LoadLevel(ctx context.Context, level string) (*LevelSave, error) {
	ctx, cancel := context.WithTimeout(ctx, m.ctxTimeout)
	defer cancel()

	var doc mongoSaveDoc
	err := m.collection.FindOne(ctx, bson.M{"level": level}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, level)
	}
	if err != nil {
		return nil, fmt.Errorf("load level %s: %w", level, err)
	}
	return decodeSave(doc.Data)
}

// DeleteLevel removes the level document.
func (m *MongoSaveRepo) DeleteLevel(ctx context.Context, level string) error {
	ctx, cancel := context.WithTimeout(ctx, m.ctxTimeout)
	defer cancel()

	res, err := m.collection.DeleteOne(ctx, bson.M{"level": level})
	if err != nil {
		return fmt.Errorf("delete level %s: %w", level, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, level)
	}
	return nil
}

// ListLevels returns saved level names sorted ascending.
func (m *MongoSaveRepo) ListLevels(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, m.ctxTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "level", Value: 1}}).SetProjection(bson.M{"level": 1})
	cur, err := m.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	levels := make([]string, 0)
	for cur.Next(ctx) {
		var doc mongoSaveDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		levels = append(levels, doc.Level)
	}
	return levels, cur.Err()
}

// Close disconnects the client.
func (m *MongoSaveRepo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), m.ctxTimeout)
	defer cancel()
	return m.client.Disconnect(ctx)
}
