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

type CreatePostRequest struct {
	Title     string `json:"title" mod:"trim" binding:"required,min=5,max=100"`
	Content   string `json:"content" mod:"trim" binding:"required,min=250,max=10000"`
	Topic     string `json:"topic" mod:"trim" binding:"required,objectid"`
	Published *bool  `json:"published" binding:"required"`
}

// UpdatePostRequest applies only the fields that are present.
type UpdatePostRequest struct {
	Title     *string `json:"title" mod:"trim" binding:"omitempty,min=5,max=100"`
	Content   *string `json:"content" mod:"trim" binding:"omitempty,min=250,max=10000"`
	Topic     *string `json:"topic" mod:"trim" binding:"omitempty,objectid"`
	Published *bool   `json:"published"`
	Version   *int64  `json:"version"`
}

func (h *Handler) loadPost(c *gin.Context, ctx context.Context, id primitive.ObjectID) (*models.Post, bool) {
	post, err := h.store.GetPost(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Post not found"})
		return nil, false
	}
	if err != nil {
		respondError(c, "GetPost", err)
		return nil, false
	}
	return post, true
}

// topicExists answers 400 when a post refers to a topic that does not exist.
func (h *Handler) topicExists(c *gin.Context, ctx context.Context, hex string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		validationFailed(c, fieldError{Field: "topic", Message: "topic must be a valid id"})
		return primitive.NilObjectID, false
	}
	if _, err := h.store.GetTopic(ctx, id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			validationFailed(c, fieldError{Field: "topic", Message: "Topic not found"})
			return primitive.NilObjectID, false
		}
		respondError(c, "GetTopic", err)
		return primitive.NilObjectID, false
	}
	return id, true
}

func (h *Handler) writePostList(c *gin.Context, op string, list func(ctx context.Context, page database.Page) ([]models.PostView, int64, error)) {
	page, ok := parsePage(c, 10)
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	posts, total, err := list(ctx, page)
	if err != nil {
		respondError(c, op, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts, "meta": meta(total)})
}

// ListPosts returns published posts, newest first.
func (h *Handler) ListPosts(c *gin.Context) {
	h.writePostList(c, "ListPosts", func(ctx context.Context, page database.Page) ([]models.PostView, int64, error) {
		return h.store.ListPosts(ctx, models.PostFilter{PublishedOnly: true}, page)
	})
}

func (h *Handler) PopularPosts(c *gin.Context) {
	since := models.ParseTimeRange(c.Query("timeRange")).Start(h.now())
	h.writePostList(c, "PopularPosts", func(ctx context.Context, page database.Page) ([]models.PostView, int64, error) {
		return h.store.PopularPosts(ctx, since, page)
	})
}

// PostsPreview lists every post, drafts included, without bodies.
func (h *Handler) PostsPreview(c *gin.Context) {
	if _, ok := authorize(c, "PostsPreview", policy.ViewAdmin, primitive.NilObjectID); !ok {
		return
	}
	h.writePostList(c, "PostsPreview", func(ctx context.Context, page database.Page) ([]models.PostView, int64, error) {
		posts, total, err := h.store.ListPosts(ctx, models.PostFilter{}, page)
		for i := range posts {
			posts[i].Content = ""
		}
		return posts, total, err
	})
}

// FollowingPosts is the feed of published posts by authors the user follows.
func (h *Handler) FollowingPosts(c *gin.Context) {
	actor := middleware.CurrentUser(c)
	if actor == nil {
		respondError(c, "FollowingPosts", policy.ErrUnauthenticated)
		return
	}
	authors := append([]primitive.ObjectID{}, actor.Following...)
	h.writePostList(c, "FollowingPosts", func(ctx context.Context, page database.Page) ([]models.PostView, int64, error) {
		return h.store.ListPosts(ctx, models.PostFilter{PublishedOnly: true, Authors: authors}, page)
	})
}

func (h *Handler) GetPost(c *gin.Context) {
	id, ok := pathID(c, "id", "Post")
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	post, err := h.store.GetPostView(ctx, id)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		respondError(c, "GetPost", err)
		return
	}
	if post == nil || (!post.Published && !canSeeDrafts(middleware.CurrentUser(c), authorID(post))) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Post not found"})
		return
	}
	c.JSON(http.StatusOK, post)
}

func authorID(p *models.PostView) primitive.ObjectID {
	if p.Author == nil {
		return primitive.NilObjectID
	}
	return p.Author.ID
}

func (h *Handler) CreatePost(c *gin.Context) {
	actor := middleware.CurrentUser(c)
	if actor == nil {
		respondError(c, "CreatePost", policy.ErrUnauthenticated)
		return
	}
	var req CreatePostRequest
	if !bind(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	topic, ok := h.topicExists(c, ctx, req.Topic)
	if !ok {
		return
	}
	post := models.NewPost(actor.ID, topic, req.Title, req.Content, *req.Published)
	if err := h.store.CreatePost(ctx, post); err != nil {
		respondError(c, "CreatePost", err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

func (h *Handler) UpdatePost(c *gin.Context) {
	id, ok := pathID(c, "id", "Post")
	if !ok {
		return
	}
	var req UpdatePostRequest
	if !bind(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	post, ok := h.loadPost(c, ctx, id)
	if !ok {
		return
	}
	if _, ok := authorize(c, "UpdatePost", policy.EditPost, post.Author); !ok {
		return
	}
	if req.Version != nil && *req.Version != post.Version {
		respondError(c, "UpdatePost", database.ErrVersionConflict)
		return
	}

	if req.Topic != nil {
		topic, ok := h.topicExists(c, ctx, *req.Topic)
		if !ok {
			return
		}
		post.Topic = topic
	}
	applyString(&post.Title, req.Title)
	applyString(&post.Content, req.Content)
	if req.Published != nil {
		post.Published = *req.Published
	}

	if err := h.store.UpdatePost(ctx, post); err != nil {
		respondError(c, "UpdatePost", err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// DeletePost removes the post together with its comments.
func (h *Handler) DeletePost(c *gin.Context) {
	id, ok := pathID(c, "id", "Post")
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	post, ok := h.loadPost(c, ctx, id)
	if !ok {
		return
	}
	if _, ok := authorize(c, "DeletePost", policy.DeletePost, post.Author); !ok {
		return
	}
	if err := h.store.DeletePost(ctx, id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Post not found"})
			return
		}
		respondError(c, "DeletePost", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Post deleted", "id": id})
}

func (h *Handler) PostLikes(c *gin.Context) {
	id, ok := pathID(c, "id", "Post")
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	post, ok := h.loadPost(c, ctx, id)
	if !ok {
		return
	}
	if !post.Published && !canSeeDrafts(middleware.CurrentUser(c), post.Author) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Post not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"likes": len(post.Likes)})
}

func (h *Handler) LikePost(c *gin.Context) {
	h.changeLike(c, true)
}

func (h *Handler) UnlikePost(c *gin.Context) {
	h.changeLike(c, false)
}

func (h *Handler) changeLike(c *gin.Context, like bool) {
	actor := middleware.CurrentUser(c)
	if actor == nil {
		respondError(c, "LikePost", policy.ErrUnauthenticated)
		return
	}
	id, ok := pathID(c, "id", "Post")
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	change := h.store.LikePost
	if !like {
		change = h.store.UnlikePost
	}
	post, err := change(ctx, id, actor.ID)
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Post not found"})
		return
	}
	if err != nil {
		respondError(c, "LikePost", err)
		return
	}

	if like {
		h.notify(post.Author, actor.ID, websocket.EventPostLiked, gin.H{
			"postId": post.ID,
			"title":  post.Title,
			"user":   actor.Summary(),
		})
	}
	c.JSON(http.StatusOK, post)
}

// ToggleSavedPost saves the post for the current user, or unsaves it.
func (h *Handler) ToggleSavedPost(c *gin.Context) {
	actor := middleware.CurrentUser(c)
	if actor == nil {
		respondError(c, "ToggleSavedPost", policy.ErrUnauthenticated)
		return
	}
	id, ok := pathID(c, "id", "Post")
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if _, ok := h.loadPost(c, ctx, id); !ok {
		return
	}
	saved, err := h.store.ToggleSavedPost(ctx, actor.ID, id)
	if err != nil {
		respondError(c, "ToggleSavedPost", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"saved": saved, "postId": id})
}
