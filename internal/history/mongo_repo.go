package history

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoConfig contains connection settings for the MongoDB history repository.
type MongoConfig struct {
	URI        string // e.g. mongodb://localhost:27017
	Database   string // e.g. lightcheck
	Collection string // e.g. audit_runs
}

// MongoRepo implements Repository on MongoDB backend.
type MongoRepo struct {
	client     *mongo.Client
	collection *mongo.Collection
	ctxTimeout time.Duration
}

// NewMongoRepo establishes connection and returns repository.
func NewMongoRepo(cfg MongoConfig) (*MongoRepo, error) {
	if cfg.URI == "" {
		cfg.URI = "mongodb://localhost:27017"
	}
	if cfg.Database == "" {
		cfg.Database = "lightcheck"
	}
	if cfg.Collection == "" {
		cfg.Collection = "audit_runs"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, err
	}
	// ping
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	repo := &MongoRepo{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
		ctxTimeout: 5 * time.Second,
	}

	if err := repo.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return repo, nil
}

func (m *MongoRepo) ensureIndexes(ctx context.Context) error {
	runIdx := mongo.IndexModel{
		Keys:    bson.D{{Key: "run_id", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("run_id_unique"),
	}
	worldIdx := mongo.IndexModel{
		Keys:    bson.D{{Key: "world", Value: 1}, {Key: "started", Value: -1}},
		Options: options.Index().SetName("world_started"),
	}
	_, err := m.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{runIdx, worldIdx})
	return err
}

// Save upserts the record by run_id.
func (m *MongoRepo) Save(ctx context.Context, rec Record) error {
	if err := rec.validate(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, m.ctxTimeout)
	defer cancel()
	_, err := m.collection.ReplaceOne(ctx,
		bson.M{"run_id": rec.RunID},
		rec,
		options.Replace().SetUpsert(true),
	)
	return err
}

// Recent returns the latest records, newest first.
func (m *MongoRepo) Recent(ctx context.Context, worldName string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	ctx, cancel := context.WithTimeout(ctx, m.ctxTimeout)
	defer cancel()

	filter := bson.M{}
	if worldName != "" {
		filter["world"] = worldName
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "started", Value: -1}, {Key: "run_id", Value: 1}}).
		SetLimit(int64(limit))

	cur, err := m.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []Record
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Close terminates connection.
func (m *MongoRepo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
