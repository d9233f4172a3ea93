package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackwatters45/blog-api/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (s *Store) CreateTopic(ctx context.Context, t *models.Topic) error {
	if _, err := s.topics.InsertOne(ctx, t); err != nil {
		return fmt.Errorf("insert topic: %w", translate(err))
	}
	return nil
}

func (s *Store) GetTopic(ctx context.Context, id primitive.ObjectID) (*models.Topic, error) {
	var t models.Topic
	if err := s.topics.FindOne(ctx, bson.M{"_id": id}).Decode(&t); err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (s *Store) ListTopics(ctx context.Context, page Page) ([]models.Topic, int64, error) {
	return s.findTopics(ctx, bson.M{}, bson.D{{"name", 1}}, nil, page)
}

// SearchTopics lists topics by text score, or by name when q is empty.
func (s *Store) SearchTopics(ctx context.Context, q string, page Page) ([]models.Topic, int64, error) {
	if q == "" {
		return s.ListTopics(ctx, page)
	}
	score := bson.M{"score": bson.M{"$meta": "textScore"}}
	return s.findTopics(ctx, bson.M{"$text": bson.M{"$search": q}}, score, score, page)
}

func (s *Store) findTopics(ctx context.Context, filter bson.M, sort, projection any, page Page) ([]models.Topic, int64, error) {
	total, err := s.topics.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	opts := page.findOptions().SetSort(sort)
	if projection != nil {
		opts.SetProjection(projection)
	}
	cursor, err := s.topics.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	topics := []models.Topic{}
	if err := cursor.All(ctx, &topics); err != nil {
		return nil, 0, err
	}
	return topics, total, nil
}

func (s *Store) RenameTopic(ctx context.Context, id primitive.ObjectID, name string) (*models.Topic, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var t models.Topic
	err := s.topics.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"name": name, "updatedAt": time.Now().UTC()}},
		opts,
	).Decode(&t)
	if err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (s *Store) DeleteTopic(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.topics.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) PopularTopics(ctx context.Context, since time.Time, sortBy models.TopicSort, page Page) ([]models.TopicStats, int64, error) {
	return aggregatePage[models.TopicStats](ctx, s.topics, popularTopicsPipeline(since, sortBy, page))
}

