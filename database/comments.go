package database

import (
	"context"
	"time"

	"github.com/jackwatters45/blog-api/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CreateComment inserts c and links it from its post and, for replies,
// from its parent comment. The parent must belong to the same post.
func (s *Store) CreateComment(ctx context.Context, c *models.Comment) error {
	mutations := []Mutation{
		func(sc mongo.SessionContext) error {
			_, err := s.comments.InsertOne(sc, c)
			return translate(err)
		},
	}
	if reply, ok := c.Kind().(models.Reply); ok {
		mutations = append(mutations, func(sc mongo.SessionContext) error {
			res, err := s.comments.UpdateOne(sc,
				bson.M{"_id": reply.Parent, "post": c.Post},
				bson.M{"$push": bson.M{"replies": c.ID}},
			)
			if err != nil {
				return err
			}
			if res.MatchedCount == 0 {
				return ErrParentMismatch
			}
			return nil
		})
	}
	mutations = append(mutations, func(sc mongo.SessionContext) error {
		res, err := s.posts.UpdateOne(sc,
			bson.M{"_id": c.Post},
			bson.M{"$push": bson.M{"comments": c.ID}},
		)
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return ErrNotFound
		}
		return nil
	})

	return s.RunInTransaction(ctx, mutations...)
}

func (s *Store) GetComment(ctx context.Context, id primitive.ObjectID) (*models.Comment, error) {
	var c models.Comment
	if err := s.comments.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

// ListComments returns a page of top-level comments with their count, plus
// the post's comment count including replies.
func (s *Store) ListComments(ctx context.Context, postID primitive.ObjectID, sortBy models.CommentSort, page Page) ([]models.CommentView, models.CommentTotals, error) {
	var totals models.CommentTotals
	items, parents, err := aggregatePage[models.CommentView](ctx, s.comments, topLevelCommentsPipeline(postID, sortBy, page))
	if err != nil {
		return nil, totals, err
	}
	all, err := s.comments.CountDocuments(ctx, bson.M{"post": postID})
	if err != nil {
		return nil, totals, err
	}
	totals.Total = parents
	totals.TotalParent = parents
	totals.TotalComments = all
	return items, totals, nil
}

func (s *Store) ListReplies(ctx context.Context, parentID primitive.ObjectID, page Page) ([]models.CommentView, int64, error) {
	return aggregatePage[models.CommentView](ctx, s.comments, repliesPipeline(parentID, page))
}

func (s *Store) CommentsByAuthor(ctx context.Context, authorID primitive.ObjectID, limit int64) ([]models.CommentView, error) {
	cursor, err := s.comments.Aggregate(ctx, commentsByAuthorPipeline(authorID, limit))
	if err != nil {
		return nil, err
	}
	out := []models.CommentView{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateComment saves the content and deletion state of c guarded by its
// version. Reactions are changed only through ToggleCommentReaction.
func (s *Store) UpdateComment(ctx context.Context, c *models.Comment) error {
	c.UpdatedAt = time.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"content":   c.Content,
			"isDeleted": c.IsDeleted,
			"updatedAt": c.UpdatedAt,
		},
		"$inc": bson.M{"version": 1},
	}
	if err := s.versionedUpdate(ctx, s.comments, c.ID, c.Version, update); err != nil {
		return err
	}
	c.Version++
	return nil
}

// ToggleCommentReaction flips userID's membership in the likes or dislikes
// set and pulls it from the other set in a single update, so concurrent
// reactions from different users never conflict.
func (s *Store) ToggleCommentReaction(ctx context.Context, commentID, userID primitive.ObjectID, r models.Reaction) (*models.Comment, error) {
	same, other := "likes", "dislikes"
	if r == models.ReactionDislike {
		same, other = other, same
	}
	set := func(field string) bson.D {
		return bson.D{{Key: "$ifNull", Value: bson.A{"$" + field, bson.A{}}}}
	}
	without := func(field string) bson.D {
		return bson.D{{Key: "$filter", Value: bson.D{
			{Key: "input", Value: set(field)},
			{Key: "cond", Value: bson.D{{Key: "$ne", Value: bson.A{"$$this", userID}}}},
		}}}
	}
	toggled := bson.D{{Key: "$cond", Value: bson.A{
		bson.D{{Key: "$in", Value: bson.A{userID, set(same)}}},
		without(same),
		bson.D{{Key: "$concatArrays", Value: bson.A{set(same), bson.A{userID}}}},
	}}}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: same, Value: toggled},
			{Key: other, Value: without(other)},
			{Key: "updatedAt", Value: time.Now().UTC()},
		}}},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var c models.Comment
	if err := s.comments.FindOneAndUpdate(ctx, bson.M{"_id": commentID}, update, opts).Decode(&c); err != nil {
		return nil, translate(err)
	}
	return &c, nil
}
