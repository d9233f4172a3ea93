package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Like struct {
	UserID primitive.ObjectID `bson:"userId" json:"userId"`
	Date   time.Time          `bson:"date" json:"date"`
}

type Post struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Title     string               `bson:"title" json:"title"`
	Content   string               `bson:"content" json:"content"`
	Author    primitive.ObjectID   `bson:"author" json:"author"`
	Topic     primitive.ObjectID   `bson:"topic" json:"topic"`
	Published bool                 `bson:"published" json:"published"`
	Likes     []Like               `bson:"likes" json:"likes"`
	Comments  []primitive.ObjectID `bson:"comments" json:"comments"`
	Version   int64                `bson:"version" json:"version"`
	CreatedAt time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time            `bson:"updatedAt" json:"updatedAt"`
}

func NewPost(author, topic primitive.ObjectID, title, content string, published bool) *Post {
	now := time.Now().UTC()
	return &Post{
		ID:        primitive.NewObjectID(),
		Title:     title,
		Content:   content,
		Author:    author,
		Topic:     topic,
		Published: published,
		Likes:     []Like{},
		Comments:  []primitive.ObjectID{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (p *Post) LikedBy(userID primitive.ObjectID) bool {
	for _, l := range p.Likes {
		if l.UserID == userID {
			return true
		}
	}
	return false
}

// PostView is a post with its author and topic joined in for display.
type PostView struct {
	ID          primitive.ObjectID   `bson:"_id" json:"id"`
	Title       string               `bson:"title" json:"title"`
	Content     string               `bson:"content,omitempty" json:"content,omitempty"`
	Author      *AuthorSummary       `bson:"author,omitempty" json:"author"`
	Topic       *Topic               `bson:"topic,omitempty" json:"topic"`
	Published   bool                 `bson:"published" json:"published"`
	Likes       []Like               `bson:"likes" json:"likes"`
	Comments    []primitive.ObjectID `bson:"comments" json:"comments"`
	LikeCount   int64                `bson:"likeCount" json:"likeCount"`
	CommentList []CommentView        `bson:"commentList,omitempty" json:"commentList,omitempty"`
	Version     int64                `bson:"version" json:"version"`
	CreatedAt   time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// PostFilter narrows post listings. Zero values mean "any".
type PostFilter struct {
	PublishedOnly bool
	Author        *primitive.ObjectID
	Authors       []primitive.ObjectID
	Topic         *primitive.ObjectID
}
