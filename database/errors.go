package database

import (
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrVersionConflict = errors.New("document was modified concurrently")
	ErrDuplicate       = errors.New("already exists")
	ErrAlreadyLiked    = errors.New("you have already liked this post")
	ErrNotLiked        = errors.New("you have not liked this post yet")
	ErrSelfFollow      = errors.New("you can't follow yourself")
	ErrParentMismatch  = errors.New("parent comment belongs to a different post")
)

// translate maps driver errors onto the package sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return ErrDuplicate
	}
	return err
}
