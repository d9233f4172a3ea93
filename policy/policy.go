// Package policy decides whether an actor may perform an action on a
// resource owned by someone.
package policy

import (
	"errors"

	"github.com/jackwatters45/blog-api/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrUnauthenticated = errors.New("no user logged in")
	ErrForbidden       = errors.New("unauthorized")
)

type Action int

const (
	EditPost Action = iota
	DeletePost
	EditComment
	DeleteComment
	EditUser
	ChangePassword
	DeleteUser
	ViewSavedPosts
	ChangeRole
	CreateUser
	ManageTopic
	ViewAdmin
)

type rule struct {
	owner bool
	admin bool
}

var rules = map[Action]rule{
	EditPost:       {owner: true, admin: true},
	DeletePost:     {owner: true, admin: true},
	EditComment:    {owner: true},
	DeleteComment:  {owner: true},
	EditUser:       {owner: true, admin: true},
	ChangePassword: {owner: true, admin: true},
	DeleteUser:     {owner: true, admin: true},
	ViewSavedPosts: {owner: true, admin: true},
	ChangeRole:     {admin: true},
	CreateUser:     {admin: true},
	ManageTopic:    {admin: true},
	ViewAdmin:      {admin: true},
}

// Authorize returns nil when actor may perform action on a resource owned
// by owner. For user actions the owner is the target user. Pass
// primitive.NilObjectID for actions without an owner.
func Authorize(actor *models.User, action Action, owner primitive.ObjectID) error {
	if actor == nil {
		return ErrUnauthenticated
	}
	r, ok := rules[action]
	if !ok {
		return ErrForbidden
	}
	if r.admin && actor.IsAdmin() {
		return nil
	}
	if r.owner && !owner.IsZero() && actor.ID == owner {
		return nil
	}
	return ErrForbidden
}
