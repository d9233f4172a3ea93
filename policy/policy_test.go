package policy

import (
	"errors"
	"testing"

	"github.com/jackwatters45/blog-api/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestAuthorize(t *testing.T) {
	owner := models.NewUser("O", "W", "o@example.com", "owner", "", models.RoleUser)
	other := models.NewUser("X", "Y", "x@example.com", "other", "", models.RoleUser)
	admin := models.NewUser("A", "D", "a@example.com", "admin", "", models.RoleAdmin)

	tests := []struct {
		name   string
		actor  *models.User
		action Action
		owner  primitive.ObjectID
		want   error
	}{
		{"anonymous", nil, EditPost, owner.ID, ErrUnauthenticated},
		{"author edits post", owner, EditPost, owner.ID, nil},
		{"stranger edits post", other, EditPost, owner.ID, ErrForbidden},
		{"admin edits post", admin, EditPost, owner.ID, nil},
		{"admin deletes post", admin, DeletePost, owner.ID, nil},
		{"author edits comment", owner, EditComment, owner.ID, nil},
		{"admin edits comment", admin, EditComment, owner.ID, ErrForbidden},
		{"admin deletes comment", admin, DeleteComment, owner.ID, ErrForbidden},
		{"self deletes account", owner, DeleteUser, owner.ID, nil},
		{"stranger deletes account", other, DeleteUser, owner.ID, ErrForbidden},
		{"self changes role", owner, ChangeRole, owner.ID, ErrForbidden},
		{"admin changes role", admin, ChangeRole, owner.ID, nil},
		{"user manages topic", owner, ManageTopic, primitive.NilObjectID, ErrForbidden},
		{"admin manages topic", admin, ManageTopic, primitive.NilObjectID, nil},
		{"user views admin data", owner, ViewAdmin, primitive.NilObjectID, ErrForbidden},
		{"zero owner never matches", owner, EditPost, primitive.NilObjectID, ErrForbidden},
		{"unknown action", admin, Action(999), owner.ID, ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Authorize(tt.actor, tt.action, tt.owner)
			if !errors.Is(err, tt.want) {
				t.Errorf("Authorize = %v, want %v", err, tt.want)
			}
		})
	}
}
