package models

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const redactedPrefix = "redacted-"

type User struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	FirstName    string               `bson:"firstName" json:"firstName"`
	LastName     string               `bson:"lastName" json:"lastName"`
	Email        string               `bson:"email" json:"email,omitempty"`
	Username     string               `bson:"username" json:"username"`
	PasswordHash string               `bson:"password" json:"-"`
	Role         Role                 `bson:"userType" json:"userType"`
	Followers    []primitive.ObjectID `bson:"followers" json:"followers"`
	Following    []primitive.ObjectID `bson:"following" json:"following"`
	SavedPosts   []primitive.ObjectID `bson:"savedPosts" json:"savedPosts"`
	Description  string               `bson:"description" json:"description"`
	AvatarURL    string               `bson:"avatarUrl" json:"avatarUrl"`
	AvatarID     string               `bson:"avatarId,omitempty" json:"-"`
	IsDeleted    bool                 `bson:"isDeleted" json:"isDeleted"`
	DeletedData  *DeletedData         `bson:"deletedData,omitempty" json:"deletedData,omitempty"`
	Version      int64                `bson:"version" json:"version"`
	CreatedAt    time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// DeletedData is the snapshot taken when a user is soft-deleted.
// DeletedBy is nil when the user deleted their own account.
type DeletedData struct {
	DeletedBy     *primitive.ObjectID `bson:"deletedBy" json:"deletedBy"`
	DeletedAt     time.Time           `bson:"deletedAt" json:"deletedAt"`
	Email         string              `bson:"email" json:"email"`
	Username      string              `bson:"username" json:"username"`
	FollowerCount int                 `bson:"followerCount" json:"followerCount"`
}

// NewUser fills the defaults the schema expects on insert.
func NewUser(firstName, lastName, email, username, passwordHash string, role Role) *User {
	now := time.Now().UTC()
	return &User{
		ID:           primitive.NewObjectID(),
		FirstName:    firstName,
		LastName:     lastName,
		Email:        email,
		Username:     username,
		PasswordHash: passwordHash,
		Role:         role,
		Followers:    []primitive.ObjectID{},
		Following:    []primitive.ObjectID{},
		SavedPosts:   []primitive.ObjectID{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

func (u *User) Follows(id primitive.ObjectID) bool {
	return slices.Contains(u.Following, id)
}

func (u *User) HasSaved(postID primitive.ObjectID) bool {
	return slices.Contains(u.SavedPosts, postID)
}

// Redact turns u into its soft-deleted form: identity fields are replaced
// by unique placeholders, the password is cleared and the previous values
// are kept in DeletedData.
func (u *User) Redact(deletedBy *primitive.ObjectID, at time.Time) {
	u.DeletedData = &DeletedData{
		DeletedBy:     deletedBy,
		DeletedAt:     at,
		Email:         u.Email,
		Username:      u.Username,
		FollowerCount: len(u.Followers),
	}
	u.Email = redactedPrefix + uuid.NewString()
	u.Username = redactedPrefix + uuid.NewString()
	u.PasswordHash = ""
	u.IsDeleted = true
	u.UpdatedAt = at
}

// VisibleTo returns the copy of u that viewer may see. Email is only shown
// to the user themselves and admins; the deletion snapshot only to admins.
func (u *User) VisibleTo(viewer *User) *User {
	out := *u
	self := viewer != nil && viewer.ID == u.ID
	if !self && !viewer.IsAdmin() {
		out.Email = ""
		out.SavedPosts = nil
	}
	if !viewer.IsAdmin() {
		out.DeletedData = nil
	}
	return &out
}

// AuthorSummary is the display projection of a user joined onto posts and
// comments.
type AuthorSummary struct {
	ID          primitive.ObjectID   `bson:"_id" json:"id"`
	FirstName   string               `bson:"firstName" json:"firstName"`
	LastName    string               `bson:"lastName" json:"lastName"`
	Username    string               `bson:"username,omitempty" json:"username,omitempty"`
	AvatarURL   string               `bson:"avatarUrl,omitempty" json:"avatarUrl,omitempty"`
	Description string               `bson:"description,omitempty" json:"description,omitempty"`
	Followers   []primitive.ObjectID `bson:"followers,omitempty" json:"followers,omitempty"`
	IsDeleted   bool                 `bson:"isDeleted" json:"isDeleted"`
}

func (u *User) Summary() *AuthorSummary {
	return &AuthorSummary{
		ID:          u.ID,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Username:    u.Username,
		AvatarURL:   u.AvatarURL,
		Description: u.Description,
		Followers:   u.Followers,
		IsDeleted:   u.IsDeleted,
	}
}

// UserPreview is the admin table row.
type UserPreview struct {
	ID             primitive.ObjectID `bson:"_id" json:"id"`
	FirstName      string             `bson:"firstName" json:"firstName"`
	LastName       string             `bson:"lastName" json:"lastName"`
	Email          string             `bson:"email,omitempty" json:"email,omitempty"`
	Username       string             `bson:"username" json:"username"`
	Role           Role               `bson:"userType" json:"userType"`
	FollowersCount int                `bson:"followersCount" json:"followersCount"`
	FollowingCount int                `bson:"followingCount" json:"followingCount"`
	IsDeleted      bool               `bson:"isDeleted" json:"isDeleted"`
	DeletedData    *DeletedData       `bson:"deletedData,omitempty" json:"deletedData,omitempty"`
	Score          float64            `bson:"score,omitempty" json:"score,omitempty"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// AuthorRank is one row of the popular-authors ranking.
type AuthorRank struct {
	ID          primitive.ObjectID   `bson:"_id" json:"id"`
	FirstName   string               `bson:"firstName" json:"firstName"`
	LastName    string               `bson:"lastName" json:"lastName"`
	Username    string               `bson:"username" json:"username"`
	Description string               `bson:"description" json:"description"`
	AvatarURL   string               `bson:"avatarUrl" json:"avatarUrl"`
	Followers   []primitive.ObjectID `bson:"followers" json:"followers"`
	LikesCount  int64                `bson:"likesCount" json:"likesCount"`
	CreatedAt   time.Time            `bson:"createdAt" json:"createdAt"`
}
