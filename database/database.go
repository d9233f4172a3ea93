package database

import (
	"context"
	"time"

	"github.com/jackwatters45/blog-api/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	usersCollection    = "users"
	postsCollection    = "posts"
	commentsCollection = "comments"
	topicsCollection   = "topics"
)

// Store owns the MongoDB client and every collection the API touches.
type Store struct {
	Client   *mongo.Client
	users    *mongo.Collection
	posts    *mongo.Collection
	comments *mongo.Collection
	topics   *mongo.Collection
}

func Connect(ctx context.Context, uri, dbName string) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	// Ping MongoDB
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	db := client.Database(dbName)
	s := &Store{
		Client:   client,
		users:    db.Collection(usersCollection),
		posts:    db.Collection(postsCollection),
		comments: db.Collection(commentsCollection),
		topics:   db.Collection(topicsCollection),
	}

	logger.Info.Printf("Connected to MongoDB database %q", dbName)
	return s, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.Client.Ping(ctx, nil)
}

func (s *Store) Disconnect() error {
	if s == nil || s.Client == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.Client.Disconnect(ctx); err != nil {
		return err
	}

	logger.Info.Println("Disconnected from MongoDB")
	return nil
}

// EnsureIndexes creates the unique identity indexes, the text indexes used
// by search and the secondary indexes behind the list endpoints.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	specs := []struct {
		coll   *mongo.Collection
		models []mongo.IndexModel
	}{
		{s.users, []mongo.IndexModel{
			{Keys: bson.D{{"email", 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{"username", 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{
				{"firstName", "text"},
				{"lastName", "text"},
				{"email", "text"},
				{"username", "text"},
			}},
			{Keys: bson.D{{"followers", 1}}},
			{Keys: bson.D{{"following", 1}}},
		}},
		{s.posts, []mongo.IndexModel{
			{Keys: bson.D{{"title", "text"}, {"content", "text"}}},
			{Keys: bson.D{{"published", 1}, {"createdAt", -1}}},
			{Keys: bson.D{{"author", 1}, {"createdAt", -1}}},
			{Keys: bson.D{{"topic", 1}}},
		}},
		{s.comments, []mongo.IndexModel{
			{Keys: bson.D{{"post", 1}, {"parentComment", 1}}},
			{Keys: bson.D{{"parentComment", 1}, {"updatedAt", -1}}},
			{Keys: bson.D{{"author", 1}}},
		}},
		{s.topics, []mongo.IndexModel{
			{Keys: bson.D{{"name", "text"}}},
		}},
	}

	for _, spec := range specs {
		if _, err := spec.coll.Indexes().CreateMany(ctx, spec.models); err != nil {
			return err
		}
	}
	return nil
}

// DropAll empties every collection. Used by the seed tool only.
func (s *Store) DropAll(ctx context.Context) error {
	for _, coll := range []*mongo.Collection{s.users, s.posts, s.comments, s.topics} {
		if _, err := coll.DeleteMany(ctx, bson.M{}); err != nil {
			return err
		}
	}
	return nil
}
