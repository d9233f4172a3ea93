package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackwatters45/blog-api/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	if _, err := s.users.InsertOne(ctx, u); err != nil {
		return fmt.Errorf("insert user: %w", translate(err))
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := s.users.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

// FindUserByLogin matches login against the email or the username of a
// user that has not been deleted.
func (s *Store) FindUserByLogin(ctx context.Context, login string) (*models.User, error) {
	filter := bson.M{
		"isDeleted": false,
		"$or": bson.A{
			bson.M{"email": strings.ToLower(login)},
			bson.M{"username": login},
		},
	}
	var u models.User
	if err := s.users.FindOne(ctx, filter).Decode(&u); err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

// IdentityTaken reports which of email or username already belongs to a
// user other than except. It returns "" when both are free.
func (s *Store) IdentityTaken(ctx context.Context, email, username string, except primitive.ObjectID) (string, error) {
	check := []struct{ field, value string }{{"email", email}, {"username", username}}
	for _, c := range check {
		if c.value == "" {
			continue
		}
		n, err := s.users.CountDocuments(ctx, bson.M{c.field: c.value, "_id": bson.M{"$ne": except}})
		if err != nil {
			return "", err
		}
		if n > 0 {
			return c.field, nil
		}
	}
	return "", nil
}

func (s *Store) ListUsers(ctx context.Context, page Page) ([]models.User, int64, error) {
	filter := bson.M{"isDeleted": false}
	total, err := s.users.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := page.findOptions().
		SetSort(bson.D{{"createdAt", -1}, {"_id", -1}}).
		SetProjection(bson.M{"password": 0})
	cursor, err := s.users.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	users := []models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// UsersByID returns the non-deleted users among ids.
func (s *Store) UsersByID(ctx context.Context, ids []primitive.ObjectID) ([]models.AuthorSummary, error) {
	opts := options.Find().SetProjection(authorFields)
	cursor, err := s.users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}, "isDeleted": false}, opts)
	if err != nil {
		return nil, err
	}
	out := []models.AuthorSummary{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateUser writes the mutable profile fields of u if nobody else changed
// the document since u was read, and bumps u.Version on success.
func (s *Store) UpdateUser(ctx context.Context, u *models.User) error {
	u.UpdatedAt = time.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"firstName":   u.FirstName,
			"lastName":    u.LastName,
			"email":       u.Email,
			"username":    u.Username,
			"userType":    u.Role,
			"description": u.Description,
			"avatarUrl":   u.AvatarURL,
			"avatarId":    u.AvatarID,
			"updatedAt":   u.UpdatedAt,
		},
		"$inc": bson.M{"version": 1},
	}
	if err := s.versionedUpdate(ctx, s.users, u.ID, u.Version, update); err != nil {
		return err
	}
	u.Version++
	return nil
}

func (s *Store) SetPassword(ctx context.Context, id primitive.ObjectID, hash string) error {
	res, err := s.users.UpdateOne(ctx,
		bson.M{"_id": id, "isDeleted": false},
		bson.M{
			"$set": bson.M{"password": hash, "updatedAt": time.Now().UTC()},
			"$inc": bson.M{"version": 1},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDeleteUser redacts the user in place and removes it from every
// other user's follower and following sets in one transaction.
func (s *Store) SoftDeleteUser(ctx context.Context, id primitive.ObjectID, deletedBy *primitive.ObjectID) (*models.User, error) {
	var deleted models.User
	err := s.RunInTransaction(ctx,
		func(sc mongo.SessionContext) error {
			if err := s.users.FindOne(sc, bson.M{"_id": id, "isDeleted": false}).Decode(&deleted); err != nil {
				return translate(err)
			}
			deleted.Redact(deletedBy, time.Now().UTC())
			_, err := s.users.UpdateOne(sc, bson.M{"_id": id}, bson.M{
				"$set": bson.M{
					"isDeleted":   true,
					"deletedData": deleted.DeletedData,
					"email":       deleted.Email,
					"username":    deleted.Username,
					"password":    deleted.PasswordHash,
					"updatedAt":   deleted.UpdatedAt,
				},
				"$inc": bson.M{"version": 1},
			})
			return err
		},
		func(sc mongo.SessionContext) error {
			_, err := s.users.UpdateMany(sc,
				bson.M{"$or": bson.A{bson.M{"followers": id}, bson.M{"following": id}}},
				bson.M{"$pull": bson.M{"followers": id, "following": id}},
			)
			return err
		},
	)
	if err != nil {
		return nil, err
	}
	deleted.Version++
	return &deleted, nil
}

// Follow records actor as a follower of target on both documents.
func (s *Store) Follow(ctx context.Context, actor, target primitive.ObjectID) error {
	return s.setFollow(ctx, actor, target, "$addToSet")
}

func (s *Store) Unfollow(ctx context.Context, actor, target primitive.ObjectID) error {
	return s.setFollow(ctx, actor, target, "$pull")
}

func (s *Store) setFollow(ctx context.Context, actor, target primitive.ObjectID, op string) error {
	if actor == target {
		return ErrSelfFollow
	}
	return s.RunInTransaction(ctx,
		func(sc mongo.SessionContext) error {
			res, err := s.users.UpdateOne(sc,
				bson.M{"_id": target, "isDeleted": false},
				bson.M{op: bson.M{"followers": actor}},
			)
			if err != nil {
				return err
			}
			if res.MatchedCount == 0 {
				return ErrNotFound
			}
			return nil
		},
		func(sc mongo.SessionContext) error {
			res, err := s.users.UpdateOne(sc,
				bson.M{"_id": actor, "isDeleted": false},
				bson.M{op: bson.M{"following": target}},
			)
			if err != nil {
				return err
			}
			if res.MatchedCount == 0 {
				return ErrNotFound
			}
			return nil
		},
	)
}

// ToggleSavedPost adds postID to the user's saved posts, or removes it when
// it is already there. It reports whether the post is saved afterwards.
func (s *Store) ToggleSavedPost(ctx context.Context, userID, postID primitive.ObjectID) (bool, error) {
	res, err := s.users.UpdateOne(ctx,
		bson.M{"_id": userID, "savedPosts": bson.M{"$ne": postID}},
		bson.M{"$addToSet": bson.M{"savedPosts": postID}},
	)
	if err != nil {
		return false, err
	}
	if res.MatchedCount == 1 {
		return true, nil
	}

	res, err = s.users.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$pull": bson.M{"savedPosts": postID}},
	)
	if err != nil {
		return false, err
	}
	if res.MatchedCount == 0 {
		return false, ErrNotFound
	}
	return false, nil
}

func (s *Store) PopularAuthors(ctx context.Context, since time.Time, page Page) ([]models.AuthorRank, int64, error) {
	return aggregatePage[models.AuthorRank](ctx, s.posts, popularAuthorsPipeline(since, page))
}

func (s *Store) SearchUsers(ctx context.Context, q string, admin bool, page Page) ([]models.UserPreview, int64, error) {
	return aggregatePage[models.UserPreview](ctx, s.users, searchUsersPipeline(q, admin, page))
}

// versionedUpdate applies update to the document only while its version
// still equals expected.
func (s *Store) versionedUpdate(ctx context.Context, coll *mongo.Collection, id primitive.ObjectID, expected int64, update bson.M) error {
	res, err := coll.UpdateOne(ctx, bson.M{"_id": id, "version": expected}, update)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 1 {
		return nil
	}

	n, err := coll.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrVersionConflict
}
