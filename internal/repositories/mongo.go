package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/melodysyncer/melodysyncer/internal/models"
	"github.com/melodysyncer/melodysyncer/internal/shared"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoAnalytics increments counters on every document of a collection.
type MongoAnalytics struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoAnalytics connects to cfg.URI and verifies the connection.
func NewMongoAnalytics(ctx context.Context, cfg shared.MongoConfig) (*MongoAnalytics, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("%w: mongo uri is required", shared.ErrInvalidConfig)
	}

	client, err := mongo.Connect(options.Client().
		ApplyURI(cfg.URI).
		SetMaxPoolSize(20).
		SetServerSelectionTimeout(5 * time.Second))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	return &MongoAnalytics{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
	}, nil
}

// incrementUpdate builds the $inc document for one conversion.
func incrementUpdate(songs, playlists int) bson.D {
	d := models.AnalyticsDelta(songs, playlists)
	return bson.D{{Key: "$inc", Value: bson.D{
		{Key: "ISOtotalCalls", Value: d.ISOTotalCalls},
		{Key: "MESOtotalCalls", Value: d.MESOTotalCalls},
		{Key: "MESOsongsConverted", Value: d.SongsConverted},
		{Key: "MESOplaylistsConverted", Value: d.PlaylistsConverted},
	}}}
}

// Increment applies the update to all documents, creating one if the collection is empty.
func (m *MongoAnalytics) Increment(ctx context.Context, songs, playlists int) error {
	_, err := m.collection.UpdateMany(ctx, bson.D{}, incrementUpdate(songs, playlists),
		options.UpdateMany().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to update analytics: %w", err)
	}
	return nil
}

// Snapshot returns every counter document without its _id.
func (m *MongoAnalytics) Snapshot(ctx context.Context) ([]models.Analytics, error) {
	cursor, err := m.collection.Find(ctx, bson.D{},
		options.Find().SetProjection(bson.D{{Key: "_id", Value: 0}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query analytics: %w", err)
	}

	var docs []models.Analytics
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode analytics: %w", err)
	}
	return docs, nil
}

// Close disconnects the client.
func (m *MongoAnalytics) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
