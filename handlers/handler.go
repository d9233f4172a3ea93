package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackwatters45/blog-api/database"
	"github.com/jackwatters45/blog-api/logger"
	"github.com/jackwatters45/blog-api/media"
	"github.com/jackwatters45/blog-api/middleware"
	"github.com/jackwatters45/blog-api/models"
	"github.com/jackwatters45/blog-api/policy"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const requestTimeout = 10 * time.Second

type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindUserByLogin(ctx context.Context, login string) (*models.User, error)
	IdentityTaken(ctx context.Context, email, username string, except primitive.ObjectID) (string, error)
	ListUsers(ctx context.Context, page database.Page) ([]models.User, int64, error)
	UsersByID(ctx context.Context, ids []primitive.ObjectID) ([]models.AuthorSummary, error)
	UpdateUser(ctx context.Context, u *models.User) error
	SetPassword(ctx context.Context, id primitive.ObjectID, hash string) error
	SoftDeleteUser(ctx context.Context, id primitive.ObjectID, deletedBy *primitive.ObjectID) (*models.User, error)
	Follow(ctx context.Context, actor, target primitive.ObjectID) error
	Unfollow(ctx context.Context, actor, target primitive.ObjectID) error
	ToggleSavedPost(ctx context.Context, userID, postID primitive.ObjectID) (bool, error)
	PopularAuthors(ctx context.Context, since time.Time, page database.Page) ([]models.AuthorRank, int64, error)
	SearchUsers(ctx context.Context, q string, admin bool, page database.Page) ([]models.UserPreview, int64, error)
}

type PostStore interface {
	CreatePost(ctx context.Context, p *models.Post) error
	GetPost(ctx context.Context, id primitive.ObjectID) (*models.Post, error)
	GetPostView(ctx context.Context, id primitive.ObjectID) (*models.PostView, error)
	ListPosts(ctx context.Context, f models.PostFilter, page database.Page) ([]models.PostView, int64, error)
	PopularPosts(ctx context.Context, since time.Time, page database.Page) ([]models.PostView, int64, error)
	TopicPosts(ctx context.Context, topicID primitive.ObjectID, since time.Time, page database.Page) ([]models.PostView, int64, error)
	SearchPosts(ctx context.Context, q string, f models.PostFilter, page database.Page) ([]models.PostView, int64, error)
	PostsByID(ctx context.Context, ids []primitive.ObjectID) ([]models.PostView, error)
	UpdatePost(ctx context.Context, p *models.Post) error
	DeletePost(ctx context.Context, id primitive.ObjectID) error
	LikePost(ctx context.Context, postID, userID primitive.ObjectID) (*models.Post, error)
	UnlikePost(ctx context.Context, postID, userID primitive.ObjectID) (*models.Post, error)
}

type CommentStore interface {
	CreateComment(ctx context.Context, c *models.Comment) error
	GetComment(ctx context.Context, id primitive.ObjectID) (*models.Comment, error)
	ListComments(ctx context.Context, postID primitive.ObjectID, sortBy models.CommentSort, page database.Page) ([]models.CommentView, models.CommentTotals, error)
	ListReplies(ctx context.Context, parentID primitive.ObjectID, page database.Page) ([]models.CommentView, int64, error)
	CommentsByAuthor(ctx context.Context, authorID primitive.ObjectID, limit int64) ([]models.CommentView, error)
	UpdateComment(ctx context.Context, c *models.Comment) error
	ToggleCommentReaction(ctx context.Context, commentID, userID primitive.ObjectID, r models.Reaction) (*models.Comment, error)
}

type TopicStore interface {
	CreateTopic(ctx context.Context, t *models.Topic) error
	GetTopic(ctx context.Context, id primitive.ObjectID) (*models.Topic, error)
	ListTopics(ctx context.Context, page database.Page) ([]models.Topic, int64, error)
	SearchTopics(ctx context.Context, q string, page database.Page) ([]models.Topic, int64, error)
	RenameTopic(ctx context.Context, id primitive.ObjectID, name string) (*models.Topic, error)
	DeleteTopic(ctx context.Context, id primitive.ObjectID) error
	PopularTopics(ctx context.Context, since time.Time, sortBy models.TopicSort, page database.Page) ([]models.TopicStats, int64, error)
}

// Store is everything the handlers need from persistence. *database.Store
// satisfies it.
type Store interface {
	UserStore
	PostStore
	CommentStore
	TopicStore
	Ping(ctx context.Context) error
}

// MediaStore keeps uploaded avatars.
type MediaStore interface {
	Upload(ctx context.Context, r io.Reader) (media.Asset, error)
	Destroy(ctx context.Context, publicID string) error
}

// Notifier pushes realtime events to signed-in users.
type Notifier interface {
	Notify(recipient, actor, eventType string, payload any)
	Serve(w http.ResponseWriter, r *http.Request, userID string) error
}

type Handler struct {
	store    Store
	media    MediaStore
	notifier Notifier
	auth     *middleware.Authenticator
	now      func() time.Time
}

// New wires the handlers. media and notifier may be nil: avatar uploads are
// then refused and events are dropped.
func New(store Store, auth *middleware.Authenticator, images MediaStore, notifier Notifier) *Handler {
	return &Handler{
		store:    store,
		media:    images,
		notifier: notifier,
		auth:     auth,
		now:      time.Now,
	}
}

func (h *Handler) notify(recipient, actor primitive.ObjectID, eventType string, payload any) {
	if h.notifier == nil {
		return
	}
	h.notifier.Notify(recipient.Hex(), actor.Hex(), eventType, payload)
}

func requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), requestTimeout)
}

// respondError maps store and policy errors onto status codes. Anything
// unrecognised is logged under op and reported as a 500.
func respondError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, policy.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"message": "No user logged in"})
	case errors.Is(err, policy.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"message": "Unauthorized"})
	case errors.Is(err, database.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "Not found"})
	case errors.Is(err, database.ErrVersionConflict):
		c.JSON(http.StatusConflict, gin.H{"message": "This resource was changed by someone else, reload and try again"})
	case errors.Is(err, database.ErrDuplicate),
		errors.Is(err, database.ErrAlreadyLiked),
		errors.Is(err, database.ErrNotLiked),
		errors.Is(err, database.ErrSelfFollow),
		errors.Is(err, database.ErrParentMismatch):
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
	default:
		logger.Error.Printf("[%s] %v", op, err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
	}
}

// pathID parses an id route parameter, answering 404 for malformed ids
// since such a resource cannot exist.
func pathID(c *gin.Context, param, resource string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(param))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": resource + " not found"})
		return primitive.NilObjectID, false
	}
	return id, true
}

// parsePage reads limit and offset. Limits are clamped to
// [1, database.MaxLimit]; non-numeric values are rejected.
func parsePage(c *gin.Context, defaultLimit int64) (database.Page, bool) {
	page := database.Page{Limit: defaultLimit}
	for _, p := range []struct {
		name string
		dst  *int64
	}{{"limit", &page.Limit}, {"offset", &page.Offset}} {
		raw := c.Query(p.name)
		if raw == "" {
			continue
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			validationFailed(c, fieldError{Field: p.name, Message: p.name + " must be an integer"})
			return page, false
		}
		*p.dst = n
	}
	if page.Limit < 1 {
		page.Limit = defaultLimit
	}
	if page.Limit > database.MaxLimit {
		page.Limit = database.MaxLimit
	}
	if page.Offset < 0 {
		page.Offset = 0
	}
	return page, true
}

func meta(total int64) gin.H {
	return gin.H{"total": total}
}

// pageIDs applies page to an id list kept on a document.
func pageIDs(ids []primitive.ObjectID, page database.Page) []primitive.ObjectID {
	start := min(page.Offset, int64(len(ids)))
	end := min(start+page.Limit, int64(len(ids)))
	return ids[start:end]
}

func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		logger.Warn.Printf("[Health] database ping failed: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
