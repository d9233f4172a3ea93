package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackwatters45/blog-api/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (s *Store) CreatePost(ctx context.Context, p *models.Post) error {
	if _, err := s.posts.InsertOne(ctx, p); err != nil {
		return fmt.Errorf("insert post: %w", translate(err))
	}
	return nil
}

func (s *Store) GetPost(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	var p models.Post
	if err := s.posts.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

// GetPostView returns the post with author, topic and every comment joined in.
func (s *Store) GetPostView(ctx context.Context, id primitive.ObjectID) (*models.PostView, error) {
	cursor, err := s.posts.Aggregate(ctx, postDetailPipeline(id))
	if err != nil {
		return nil, err
	}
	var views []models.PostView
	if err := cursor.All(ctx, &views); err != nil {
		return nil, err
	}
	if len(views) == 0 {
		return nil, ErrNotFound
	}
	return &views[0], nil
}

func (s *Store) ListPosts(ctx context.Context, f models.PostFilter, page Page) ([]models.PostView, int64, error) {
	return aggregatePage[models.PostView](ctx, s.posts, listPostsPipeline(f, page))
}

// PopularPosts ranks published posts by likes received since the window start.
func (s *Store) PopularPosts(ctx context.Context, since time.Time, page Page) ([]models.PostView, int64, error) {
	f := models.PostFilter{PublishedOnly: true}
	return aggregatePage[models.PostView](ctx, s.posts, rankedPostsPipeline(f, since, page))
}

func (s *Store) TopicPosts(ctx context.Context, topicID primitive.ObjectID, since time.Time, page Page) ([]models.PostView, int64, error) {
	f := models.PostFilter{PublishedOnly: true, Topic: &topicID}
	return aggregatePage[models.PostView](ctx, s.posts, rankedPostsPipeline(f, since, page))
}

func (s *Store) SearchPosts(ctx context.Context, q string, f models.PostFilter, page Page) ([]models.PostView, int64, error) {
	return aggregatePage[models.PostView](ctx, s.posts, searchPostsPipeline(q, f, page))
}

// PostsByID returns the posts among ids in the order of ids; missing posts
// are skipped.
func (s *Store) PostsByID(ctx context.Context, ids []primitive.ObjectID) ([]models.PostView, error) {
	pipeline := mongo.Pipeline{
		{{"$match", bson.D{{"_id", bson.D{{"$in", ids}}}}}},
		{{"$addFields", bson.D{{"likeCount", sizeOf("likes")}}}},
	}
	pipeline = append(pipeline, postDisplayStages()...)

	cursor, err := s.posts.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	var found []models.PostView
	if err := cursor.All(ctx, &found); err != nil {
		return nil, err
	}

	byID := make(map[primitive.ObjectID]models.PostView, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	out := make([]models.PostView, 0, len(found))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// UpdatePost writes the editable fields of p guarded by its version.
func (s *Store) UpdatePost(ctx context.Context, p *models.Post) error {
	p.UpdatedAt = time.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"title":     p.Title,
			"content":   p.Content,
			"topic":     p.Topic,
			"published": p.Published,
			"updatedAt": p.UpdatedAt,
		},
		"$inc": bson.M{"version": 1},
	}
	if err := s.versionedUpdate(ctx, s.posts, p.ID, p.Version, update); err != nil {
		return err
	}
	p.Version++
	return nil
}

// DeletePost removes the post, its comments and every saved reference to it.
func (s *Store) DeletePost(ctx context.Context, id primitive.ObjectID) error {
	return s.RunInTransaction(ctx,
		func(sc mongo.SessionContext) error {
			res, err := s.posts.DeleteOne(sc, bson.M{"_id": id})
			if err != nil {
				return err
			}
			if res.DeletedCount == 0 {
				return ErrNotFound
			}
			return nil
		},
		func(sc mongo.SessionContext) error {
			_, err := s.comments.DeleteMany(sc, bson.M{"post": id})
			return err
		},
		func(sc mongo.SessionContext) error {
			_, err := s.users.UpdateMany(sc,
				bson.M{"savedPosts": id},
				bson.M{"$pull": bson.M{"savedPosts": id}},
			)
			return err
		},
	)
}

// LikePost appends a like record for userID unless one already exists.
func (s *Store) LikePost(ctx context.Context, postID, userID primitive.ObjectID) (*models.Post, error) {
	filter := bson.M{"_id": postID, "likes.userId": bson.M{"$ne": userID}}
	update := bson.M{"$push": bson.M{"likes": models.Like{UserID: userID, Date: time.Now().UTC()}}}
	return s.changeLikes(ctx, postID, filter, update, ErrAlreadyLiked)
}

func (s *Store) UnlikePost(ctx context.Context, postID, userID primitive.ObjectID) (*models.Post, error) {
	filter := bson.M{"_id": postID, "likes.userId": userID}
	update := bson.M{"$pull": bson.M{"likes": bson.M{"userId": userID}}}
	return s.changeLikes(ctx, postID, filter, update, ErrNotLiked)
}

func (s *Store) changeLikes(ctx context.Context, postID primitive.ObjectID, filter, update bson.M, missed error) (*models.Post, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var p models.Post
	err := s.posts.FindOneAndUpdate(ctx, filter, update, opts).Decode(&p)
	if err == nil {
		return &p, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	n, err := s.posts.CountDocuments(ctx, bson.M{"_id": postID})
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	return nil, missed
}
