package models

import (
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Tombstone replaces the content of a deleted comment.
const Tombstone = "[deleted]"

type Comment struct {
	ID            primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Content       string               `bson:"content" json:"content"`
	Author        primitive.ObjectID   `bson:"author" json:"author"`
	Post          primitive.ObjectID   `bson:"post" json:"post"`
	Likes         []primitive.ObjectID `bson:"likes" json:"likes"`
	Dislikes      []primitive.ObjectID `bson:"dislikes" json:"dislikes"`
	IsDeleted     bool                 `bson:"isDeleted" json:"isDeleted"`
	ParentComment *primitive.ObjectID  `bson:"parentComment" json:"parentComment"`
	Replies       []primitive.ObjectID `bson:"replies" json:"replies"`
	Version       int64                `bson:"version" json:"version"`
	CreatedAt     time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// CommentKind is either TopLevel or Reply.
type CommentKind interface {
	isCommentKind()
}

type TopLevel struct{}

type Reply struct {
	Parent primitive.ObjectID
}

func (TopLevel) isCommentKind() {}
func (Reply) isCommentKind()    {}

func NewComment(author, post primitive.ObjectID, content string, kind CommentKind) *Comment {
	now := time.Now().UTC()
	c := &Comment{
		ID:        primitive.NewObjectID(),
		Content:   content,
		Author:    author,
		Post:      post,
		Likes:     []primitive.ObjectID{},
		Dislikes:  []primitive.ObjectID{},
		Replies:   []primitive.ObjectID{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if r, ok := kind.(Reply); ok {
		parent := r.Parent
		c.ParentComment = &parent
	}
	return c
}

func (c *Comment) Kind() CommentKind {
	if c.ParentComment == nil {
		return TopLevel{}
	}
	return Reply{Parent: *c.ParentComment}
}

// Tombstoned marks the comment deleted without removing it, so reply
// threads keep their structure.
func (c *Comment) Tombstoned() {
	c.Content = Tombstone
	c.IsDeleted = true
}

type Reaction int

const (
	ReactionLike Reaction = iota
	ReactionDislike
)

// ToggleReaction flips user's membership in the set named by r and always
// removes the user from the opposite set, so a user is never in both.
func (c *Comment) ToggleReaction(r Reaction, user primitive.ObjectID) {
	same, other := &c.Likes, &c.Dislikes
	if r == ReactionDislike {
		same, other = &c.Dislikes, &c.Likes
	}
	if i := slices.Index(*same, user); i >= 0 {
		*same = slices.Delete(*same, i, i+1)
	} else {
		*same = append(*same, user)
	}
	*other = slices.DeleteFunc(*other, func(id primitive.ObjectID) bool { return id == user })
}

type CommentView struct {
	ID            primitive.ObjectID   `bson:"_id" json:"id"`
	Content       string               `bson:"content" json:"content"`
	Author        *AuthorSummary       `bson:"author,omitempty" json:"author"`
	Post          primitive.ObjectID   `bson:"post" json:"post"`
	PostTitle     string               `bson:"postTitle,omitempty" json:"postTitle,omitempty"`
	Likes         []primitive.ObjectID `bson:"likes" json:"likes"`
	Dislikes      []primitive.ObjectID `bson:"dislikes" json:"dislikes"`
	IsDeleted     bool                 `bson:"isDeleted" json:"isDeleted"`
	ParentComment *primitive.ObjectID  `bson:"parentComment" json:"parentComment"`
	Replies       []primitive.ObjectID `bson:"replies" json:"replies"`
	LikeCount     int64                `bson:"likeCount" json:"likeCount"`
	DislikeCount  int64                `bson:"dislikeCount" json:"dislikeCount"`
	ReplyCount    int64                `bson:"replyCount" json:"replyCount"`
	CreatedAt     time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// View builds the display form of c without a database round trip.
func (c *Comment) View(author *AuthorSummary) *CommentView {
	return &CommentView{
		ID:            c.ID,
		Content:       c.Content,
		Author:        author,
		Post:          c.Post,
		Likes:         c.Likes,
		Dislikes:      c.Dislikes,
		IsDeleted:     c.IsDeleted,
		ParentComment: c.ParentComment,
		Replies:       c.Replies,
		LikeCount:     int64(len(c.Likes)),
		DislikeCount:  int64(len(c.Dislikes)),
		ReplyCount:    int64(len(c.Replies)),
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

// CommentTotals accompanies a page of top-level comments. Total and
// TotalParent both count top-level comments; TotalComments includes replies.
type CommentTotals struct {
	Total         int64 `json:"total"`
	TotalParent   int64 `json:"totalParent"`
	TotalComments int64 `json:"totalComments"`
}
