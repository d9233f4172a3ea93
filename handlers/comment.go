package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackwatters45/blog-api/database"
	"github.com/jackwatters45/blog-api/middleware"
	"github.com/jackwatters45/blog-api/models"
	"github.com/jackwatters45/blog-api/policy"
	"github.com/jackwatters45/blog-api/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CommentRequest struct {
	Content string `json:"content" mod:"trim" binding:"required,min=1,max=500"`
}

// loadComment fetches the comment addressed by the route, which must
// belong to the post in the same route.
func (h *Handler) loadComment(c *gin.Context, ctx context.Context) (*models.Comment, bool) {
	postID, ok := pathID(c, "id", "Post")
	if !ok {
		return nil, false
	}
	id, ok := pathID(c, "commentId", "Comment")
	if !ok {
		return nil, false
	}
	comment, err := h.store.GetComment(ctx, id)
	if errors.Is(err, database.ErrNotFound) || (err == nil && comment.Post != postID) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Comment not found"})
		return nil, false
	}
	if err != nil {
		respondError(c, "GetComment", err)
		return nil, false
	}
	return comment, true
}

func (h *Handler) ListComments(c *gin.Context) {
	postID, ok := pathID(c, "id", "Post")
	if !ok {
		return
	}
	sortBy, err := models.ParseCommentSort(c.Query("sortBy"))
	if err != nil {
		validationFailed(c, fieldError{Field: "sortBy", Message: err.Error()})
		return
	}
	page, ok := parsePage(c, 10)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if _, ok := h.loadPost(c, ctx, postID); !ok {
		return
	}
	comments, totals, err := h.store.ListComments(ctx, postID, sortBy, page)
	if err != nil {
		respondError(c, "ListComments", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments, "meta": totals})
}

func (h *Handler) ListReplies(c *gin.Context) {
	page, ok := parsePage(c, 3)
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	parent, ok := h.loadComment(c, ctx)
	if !ok {
		return
	}
	replies, total, err := h.store.ListReplies(ctx, parent.ID, page)
	if err != nil {
		respondError(c, "ListReplies", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"replies": replies, "meta": meta(total)})
}

func (h *Handler) GetComment(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	comment, ok := h.loadComment(c, ctx)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, comment.View(h.authorSummary(ctx, comment.Author)))
}

// authorSummary is best effort: a missing author leaves the field empty.
func (h *Handler) authorSummary(ctx context.Context, id primitive.ObjectID) *models.AuthorSummary {
	user, err := h.store.GetUser(ctx, id)
	if err != nil {
		return nil
	}
	return user.Summary()
}

func (h *Handler) CreateComment(c *gin.Context) {
	actor := middleware.CurrentUser(c)
	if actor == nil {
		respondError(c, "CreateComment", policy.ErrUnauthenticated)
		return
	}
	postID, ok := pathID(c, "id", "Post")
	if !ok {
		return
	}
	var req CommentRequest
	if !bind(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	post, ok := h.loadPost(c, ctx, postID)
	if !ok {
		return
	}
	comment := models.NewComment(actor.ID, post.ID, req.Content, models.TopLevel{})
	if err := h.store.CreateComment(ctx, comment); err != nil {
		respondError(c, "CreateComment", err)
		return
	}

	view := comment.View(actor.Summary())
	h.notify(post.Author, actor.ID, websocket.EventCommentCreated, gin.H{
		"postId":  post.ID,
		"title":   post.Title,
		"comment": view,
	})
	c.JSON(http.StatusCreated, view)
}

// CreateReply answers a comment. Replies to a reply join the thread of the
// top-level comment, keeping threads one level deep.
func (h *Handler) CreateReply(c *gin.Context) {
	actor := middleware.CurrentUser(c)
	if actor == nil {
		respondError(c, "CreateReply", policy.ErrUnauthenticated)
		return
	}
	var req CommentRequest
	if !bind(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	target, ok := h.loadComment(c, ctx)
	if !ok {
		return
	}
	parent := target.ID
	if target.ParentComment != nil {
		parent = *target.ParentComment
	}

	reply := models.NewComment(actor.ID, target.Post, req.Content, models.Reply{Parent: parent})
	if err := h.store.CreateComment(ctx, reply); err != nil {
		respondError(c, "CreateReply", err)
		return
	}

	view := reply.View(actor.Summary())
	h.notify(target.Author, actor.ID, websocket.EventCommentReply, gin.H{
		"postId":  target.Post,
		"replyTo": target.ID,
		"comment": view,
	})
	c.JSON(http.StatusCreated, view)
}

func (h *Handler) UpdateComment(c *gin.Context) {
	var req CommentRequest
	if !bind(c, &req) {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	comment, ok := h.loadComment(c, ctx)
	if !ok {
		return
	}
	if _, ok := authorize(c, "UpdateComment", policy.EditComment, comment.Author); !ok {
		return
	}
	if comment.IsDeleted {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Deleted comments cannot be edited"})
		return
	}

	comment.Content = req.Content
	if err := h.store.UpdateComment(ctx, comment); err != nil {
		respondError(c, "UpdateComment", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Comment updated", "comment": comment})
}

// DeleteComment replaces the content with a tombstone so replies keep
// their parent.
func (h *Handler) DeleteComment(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	comment, ok := h.loadComment(c, ctx)
	if !ok {
		return
	}
	if _, ok := authorize(c, "DeleteComment", policy.DeleteComment, comment.Author); !ok {
		return
	}

	comment.Tombstoned()
	if err := h.store.UpdateComment(ctx, comment); err != nil {
		respondError(c, "DeleteComment", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":        "Comment deleted successfully",
		"updatedComment": gin.H{"content": comment.Content, "isDeleted": comment.IsDeleted},
	})
}

func (h *Handler) LikeComment(c *gin.Context) {
	h.react(c, models.ReactionLike, "Comment liked successfully")
}

func (h *Handler) DislikeComment(c *gin.Context) {
	h.react(c, models.ReactionDislike, "Comment disliked successfully")
}

func (h *Handler) react(c *gin.Context, r models.Reaction, message string) {
	actor := middleware.CurrentUser(c)
	if actor == nil {
		respondError(c, "ReactComment", policy.ErrUnauthenticated)
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	comment, ok := h.loadComment(c, ctx)
	if !ok {
		return
	}

	comment, err := h.store.ToggleCommentReaction(ctx, comment.ID, actor.ID, r)
	if err != nil {
		respondError(c, "ReactComment", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":         message,
		"updatedLikes":    comment.Likes,
		"updatedDislikes": comment.Dislikes,
	})
}
