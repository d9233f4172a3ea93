package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackwatters45/blog-api/database"
	"github.com/jackwatters45/blog-api/models"
	"github.com/jackwatters45/blog-api/policy"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TopicRequest struct {
	Name string `json:"name" mod:"trim" binding:"required,min=1,max=50"`
}

func (h *Handler) loadTopic(c *gin.Context, ctx context.Context, id primitive.ObjectID) (*models.Topic, bool) {
	topic, err := h.store.GetTopic(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Topic not found"})
		return nil, false
	}
	if err != nil {
		respondError(c, "GetTopic", err)
		return nil, false
	}
	return topic, true
}

func (h *Handler) ListTopics(c *gin.Context) {
	page, ok := parsePage(c, database.MaxLimit)
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	topics, total, err := h.store.ListTopics(ctx, page)
	if err != nil {
		respondError(c, "ListTopics", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"topics": topics, "meta": meta(total)})
}

// PopularTopics ranks topics by published posts or by likes received in
// the window.
func (h *Handler) PopularTopics(c *gin.Context) {
	sortBy, err := models.ParseTopicSort(c.Query("sortBy"))
	if err != nil {
		validationFailed(c, fieldError{Field: "sortBy", Message: err.Error()})
		return
	}
	page, ok := parsePage(c, 10)
	if !ok {
		return
	}
	since := models.ParseTimeRange(c.Query("timeRange")).Start(h.now())

	ctx, cancel := requestContext(c)
	defer cancel()

	topics, total, err := h.store.PopularTopics(ctx, since, sortBy, page)
	if err != nil {
		respondError(c, "PopularTopics", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"topics": topics, "meta": meta(total)})
}

func (h *Handler) GetTopic(c *gin.Context) {
	id, ok := pathID(c, "id", "Topic")
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	topic, ok := h.loadTopic(c, ctx, id)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, topic)
}

func (h *Handler) TopicPosts(c *gin.Context) {
	id, ok := pathID(c, "id", "Topic")
	if !ok {
		return
	}
	page, ok := parsePage(c, 10)
	if !ok {
		return
	}
	since := models.ParseTimeRange(c.Query("timeRange")).Start(h.now())

	ctx, cancel := requestContext(c)
	defer cancel()

	topic, ok := h.loadTopic(c, ctx, id)
	if !ok {
		return
	}
	posts, total, err := h.store.TopicPosts(ctx, id, since, page)
	if err != nil {
		respondError(c, "TopicPosts", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts, "topic": topic, "meta": meta(total)})
}

func (h *Handler) CreateTopic(c *gin.Context) {
	if _, ok := authorize(c, "CreateTopic", policy.ManageTopic, primitive.NilObjectID); !ok {
		return
	}
	var req TopicRequest
	if !bind(c, &req) {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	topic := models.NewTopic(req.Name)
	if err := h.store.CreateTopic(ctx, topic); err != nil {
		respondError(c, "CreateTopic", err)
		return
	}
	c.JSON(http.StatusCreated, topic)
}

func (h *Handler) UpdateTopic(c *gin.Context) {
	if _, ok := authorize(c, "UpdateTopic", policy.ManageTopic, primitive.NilObjectID); !ok {
		return
	}
	id, ok := pathID(c, "id", "Topic")
	if !ok {
		return
	}
	var req TopicRequest
	if !bind(c, &req) {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	topic, err := h.store.RenameTopic(ctx, id, req.Name)
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Topic not found"})
		return
	}
	if err != nil {
		respondError(c, "UpdateTopic", err)
		return
	}
	c.JSON(http.StatusOK, topic)
}

func (h *Handler) DeleteTopic(c *gin.Context) {
	if _, ok := authorize(c, "DeleteTopic", policy.ManageTopic, primitive.NilObjectID); !ok {
		return
	}
	id, ok := pathID(c, "id", "Topic")
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	topic, ok := h.loadTopic(c, ctx, id)
	if !ok {
		return
	}
	if err := h.store.DeleteTopic(ctx, id); err != nil {
		respondError(c, "DeleteTopic", err)
		return
	}
	c.JSON(http.StatusOK, topic)
}
