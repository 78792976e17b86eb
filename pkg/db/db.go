package db

import (
	"context"
	"fmt"

	"episode-crawler/pkg/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Client wraps the MongoDB client and the episode collection
type Client struct {
	mongoClient *mongo.Client
	database    *mongo.Database
	collection  *mongo.Collection
}

// NewClient creates a new database client
func NewClient(connectionString, databaseName, collectionName string) *Client {
	clientOptions := options.Client().ApplyURI(connectionString)
	mongoClient, err := mongo.Connect(context.Background(), clientOptions)
	if err != nil {
		// Return client with nil - error will be caught during Connect()
		return &Client{}
	}

	database := mongoClient.Database(databaseName)
	collection := database.Collection(collectionName)

	return &Client{
		mongoClient: mongoClient,
		database:    database,
		collection:  collection,
	}
}

// Connect establishes connection to MongoDB
func (c *Client) Connect(ctx context.Context) error {
	if c.mongoClient == nil {
		return fmt.Errorf("mongo client not initialized")
	}
	return c.mongoClient.Ping(ctx, nil)
}

// Close closes the MongoDB connection
func (c *Client) Close(ctx context.Context) error {
	if c.mongoClient == nil {
		return nil
	}
	return c.mongoClient.Disconnect(ctx)
}

// EnsureIndexes creates the unique index on episode_number.
func (c *Client) EnsureIndexes(ctx context.Context) error {
	if c.collection == nil {
		return fmt.Errorf("collection not initialized")
	}

	_, err := c.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "episode_number", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("episode_number_unique"),
	})
	if err != nil {
		return fmt.Errorf("create episode_number index: %w", err)
	}
	return nil
}

// UpsertEpisode inserts the episode if its number is new. For an existing
// episode only the download link is refreshed, and only when one was found.
func (c *Client) UpsertEpisode(ctx context.Context, ep *domain.Episode) (bool, error) {
	if c.collection == nil {
		return false, fmt.Errorf("collection not initialized")
	}

	filter := bson.M{"episode_number": ep.EpisodeNumber}
	update := episodeUpdate(ep)
	opts := options.Update().SetUpsert(true)

	res, err := c.collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return false, fmt.Errorf("upsert episode %d: %w", ep.EpisodeNumber, err)
	}
	return res.UpsertedCount > 0, nil
}

// episodeUpdate builds the upsert document. download_link never appears in
// both operators.
func episodeUpdate(ep *domain.Episode) bson.M {
	onInsert := bson.M{
		"episode_number": ep.EpisodeNumber,
		"name":           ep.Name,
		"release_date":   ep.ReleaseDate,
		"description":    ep.Description,
		"detail_url":     ep.DetailURL,
		"crawled_at":     ep.CrawledAt,
	}

	update := bson.M{"$setOnInsert": onInsert}
	if ep.HasDownloadLink() {
		update["$set"] = bson.M{"download_link": ep.DownloadLink}
	}
	return update
}

// ListEpisodes returns all stored episodes, newest first.
func (c *Client) ListEpisodes(ctx context.Context) ([]domain.Episode, error) {
	if c.collection == nil {
		return nil, fmt.Errorf("collection not initialized")
	}

	opts := options.Find().SetSort(bson.D{{Key: "episode_number", Value: -1}})
	cursor, err := c.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query episodes: %w", err)
	}
	defer cursor.Close(ctx)

	var episodes []domain.Episode
	for cursor.Next(ctx) {
		var ep domain.Episode
		if err := cursor.Decode(&ep); err != nil {
			continue // Skip invalid documents
		}
		episodes = append(episodes, ep)
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return episodes, nil
}
