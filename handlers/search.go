package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackwatters45/blog-api/middleware"
	"github.com/jackwatters45/blog-api/models"
	"github.com/jackwatters45/blog-api/policy"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type SearchQuery struct {
	Q string `form:"q" mod:"trim" binding:"max=50"`
}

type RequiredSearchQuery struct {
	Q string `form:"q" mod:"trim" binding:"required,max=50"`
}

// SearchAll returns the first page of matching posts, users and topics.
func (h *Handler) SearchAll(c *gin.Context) {
	var query RequiredSearchQuery
	if !bind(c, &query) {
		return
	}
	page, ok := parsePage(c, 10)
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	posts, _, err := h.store.SearchPosts(ctx, query.Q, models.PostFilter{PublishedOnly: true}, page)
	if err != nil {
		respondError(c, "SearchAll", err)
		return
	}
	users, _, err := h.store.SearchUsers(ctx, query.Q, false, page)
	if err != nil {
		respondError(c, "SearchAll", err)
		return
	}
	topics, _, err := h.store.SearchTopics(ctx, query.Q, page)
	if err != nil {
		respondError(c, "SearchAll", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts, "users": users, "topics": topics})
}

func (h *Handler) SearchPosts(c *gin.Context) {
	h.searchPosts(c, "SearchPosts", models.PostFilter{PublishedOnly: true})
}

// SearchMyPosts searches the current user's posts, drafts included.
func (h *Handler) SearchMyPosts(c *gin.Context) {
	actor := middleware.CurrentUser(c)
	if actor == nil {
		respondError(c, "SearchMyPosts", policy.ErrUnauthenticated)
		return
	}
	h.searchPosts(c, "SearchMyPosts", models.PostFilter{Author: &actor.ID})
}

func (h *Handler) searchPosts(c *gin.Context, op string, f models.PostFilter) {
	var query SearchQuery
	if !bind(c, &query) {
		return
	}
	page, ok := parsePage(c, 10)
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	posts, total, err := h.store.SearchPosts(ctx, query.Q, f, page)
	if err != nil {
		respondError(c, op, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts, "meta": meta(total)})
}

func (h *Handler) SearchUsers(c *gin.Context) {
	h.searchUsers(c, "SearchUsers", false)
}

// SearchUsersAdmin includes deleted users and their deletion details.
func (h *Handler) SearchUsersAdmin(c *gin.Context) {
	if _, ok := authorize(c, "SearchUsersAdmin", policy.ViewAdmin, primitive.NilObjectID); !ok {
		return
	}
	h.searchUsers(c, "SearchUsersAdmin", true)
}

func (h *Handler) searchUsers(c *gin.Context, op string, admin bool) {
	var query SearchQuery
	if !bind(c, &query) {
		return
	}
	page, ok := parsePage(c, 10)
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	users, total, err := h.store.SearchUsers(ctx, query.Q, admin, page)
	if err != nil {
		respondError(c, op, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users, "meta": meta(total)})
}

func (h *Handler) SearchTopics(c *gin.Context) {
	var query SearchQuery
	if !bind(c, &query) {
		return
	}
	page, ok := parsePage(c, 10)
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	topics, total, err := h.store.SearchTopics(ctx, query.Q, page)
	if err != nil {
		respondError(c, "SearchTopics", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"topics": topics, "meta": meta(total)})
}
