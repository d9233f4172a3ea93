package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackwatters45/blog-api/database"
	"github.com/jackwatters45/blog-api/media"
	"github.com/jackwatters45/blog-api/middleware"
	"github.com/jackwatters45/blog-api/models"
	"github.com/jackwatters45/blog-api/policy"
	"github.com/jackwatters45/blog-api/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const profileCommentLimit = 20

type CreateUserRequest struct {
	FirstName       string `json:"firstName" form:"firstName" mod:"trim" binding:"required,min=2,max=25"`
	LastName        string `json:"lastName" form:"lastName" mod:"trim" binding:"required,min=2,max=25"`
	Email           string `json:"email" form:"email" mod:"trim,lcase" binding:"required,email"`
	Username        string `json:"username" form:"username" mod:"trim" binding:"required,min=2"`
	Password        string `json:"password" form:"password" mod:"trim" binding:"required,min=8"`
	ConfirmPassword string `json:"confirmPassword" form:"confirmPassword" mod:"trim" binding:"required,eqfield=Password"`
	UserType        string `json:"userType" form:"userType" mod:"trim" binding:"required,oneof=user admin"`
}

type UpdateUserRequest struct {
	FirstName   *string `json:"firstName" form:"firstName" mod:"trim" binding:"omitempty,min=2,max=25"`
	LastName    *string `json:"lastName" form:"lastName" mod:"trim" binding:"omitempty,min=2,max=25"`
	Email       *string `json:"email" form:"email" mod:"trim,lcase" binding:"omitempty,email"`
	Username    *string `json:"username" form:"username" mod:"trim" binding:"omitempty,min=2"`
	UserType    *string `json:"userType" form:"userType" mod:"trim" binding:"omitempty,oneof=user admin"`
	Description *string `json:"description" form:"description" mod:"trim" binding:"omitempty,max=500"`
	Version     *int64  `json:"version" form:"version"`
}

type UpdatePasswordRequest struct {
	Password        string `json:"password" mod:"trim" binding:"required,min=8"`
	ConfirmPassword string `json:"confirmPassword" mod:"trim" binding:"required,eqfield=Password"`
}

// authorize checks the current user against policy and writes the 401/403
// itself.
func authorize(c *gin.Context, op string, action policy.Action, owner primitive.ObjectID) (*models.User, bool) {
	actor := middleware.CurrentUser(c)
	if err := policy.Authorize(actor, action, owner); err != nil {
		respondError(c, op, err)
		return nil, false
	}
	return actor, true
}

func (h *Handler) loadUser(c *gin.Context, ctx context.Context, id primitive.ObjectID) (*models.User, bool) {
	user, err := h.store.GetUser(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
		return nil, false
	}
	if err != nil {
		respondError(c, "GetUser", err)
		return nil, false
	}
	return user, true
}

// loadActiveUser is loadUser for endpoints that hide deleted users.
func (h *Handler) loadActiveUser(c *gin.Context, ctx context.Context, id primitive.ObjectID) (*models.User, bool) {
	user, ok := h.loadUser(c, ctx, id)
	if ok && user.IsDeleted {
		c.JSON(http.StatusNotFound, gin.H{"message": "User not found or has been deleted"})
		return nil, false
	}
	return user, ok
}

func (h *Handler) identityAvailable(c *gin.Context, ctx context.Context, email, username string, except primitive.ObjectID) bool {
	taken, err := h.store.IdentityTaken(ctx, email, username, except)
	if err != nil {
		respondError(c, "IdentityTaken", err)
		return false
	}
	switch taken {
	case "email":
		validationFailed(c, fieldError{Field: "email", Message: "Email already exists"})
		return false
	case "username":
		validationFailed(c, fieldError{Field: "username", Message: "Username already exists"})
		return false
	}
	return true
}

func canSeeDrafts(viewer *models.User, author primitive.ObjectID) bool {
	return viewer != nil && (viewer.ID == author || viewer.IsAdmin())
}

func (h *Handler) ListUsers(c *gin.Context) {
	page, ok := parsePage(c, 10)
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	users, total, err := h.store.ListUsers(ctx, page)
	if err != nil {
		respondError(c, "ListUsers", err)
		return
	}

	viewer := middleware.CurrentUser(c)
	visible := make([]*models.User, 0, len(users))
	for i := range users {
		visible = append(visible, users[i].VisibleTo(viewer))
	}
	c.JSON(http.StatusOK, gin.H{"users": visible, "meta": meta(total)})
}

func (h *Handler) PopularAuthors(c *gin.Context) {
	page, ok := parsePage(c, 10)
	if !ok {
		return
	}
	since := models.ParseTimeRange(c.Query("timeRange")).Start(h.now())

	ctx, cancel := requestContext(c)
	defer cancel()

	users, total, err := h.store.PopularAuthors(ctx, since, page)
	if err != nil {
		respondError(c, "PopularAuthors", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users, "meta": meta(total)})
}

func (h *Handler) UsersPreview(c *gin.Context) {
	if _, ok := authorize(c, "UsersPreview", policy.ViewAdmin, primitive.NilObjectID); !ok {
		return
	}
	page, ok := parsePage(c, 10)
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	users, total, err := h.store.SearchUsers(ctx, "", true, page)
	if err != nil {
		respondError(c, "UsersPreview", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users, "meta": meta(total)})
}

// GetUser returns a profile with its posts and recent comments. Deleted
// users are still returned, redacted.
func (h *Handler) GetUser(c *gin.Context) {
	id, ok := pathID(c, "id", "User")
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	user, ok := h.loadUser(c, ctx, id)
	if !ok {
		return
	}
	h.writeProfile(c, ctx, user, middleware.CurrentUser(c))
}

func (h *Handler) GetDeletedUser(c *gin.Context) {
	actor, ok := authorize(c, "GetDeletedUser", policy.ViewAdmin, primitive.NilObjectID)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "User")
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	user, ok := h.loadUser(c, ctx, id)
	if !ok {
		return
	}
	if !user.IsDeleted {
		c.JSON(http.StatusNotFound, gin.H{"message": "User is not deleted"})
		return
	}
	h.writeProfile(c, ctx, user, actor)
}

func (h *Handler) writeProfile(c *gin.Context, ctx context.Context, user, viewer *models.User) {
	filter := models.PostFilter{PublishedOnly: !canSeeDrafts(viewer, user.ID), Author: &user.ID}
	posts, _, err := h.store.ListPosts(ctx, filter, database.Page{Limit: database.MaxLimit})
	if err != nil {
		respondError(c, "GetUser", err)
		return
	}
	comments, err := h.store.CommentsByAuthor(ctx, user.ID, profileCommentLimit)
	if err != nil {
		respondError(c, "GetUser", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user.VisibleTo(viewer), "posts": posts, "comments": comments})
}

func (h *Handler) UserPosts(c *gin.Context) {
	id, ok := pathID(c, "id", "User")
	if !ok {
		return
	}
	page, ok := parsePage(c, 10)
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if _, ok := h.loadActiveUser(c, ctx, id); !ok {
		return
	}

	viewer := middleware.CurrentUser(c)
	filter := models.PostFilter{PublishedOnly: !canSeeDrafts(viewer, id), Author: &id}
	posts, total, err := h.store.ListPosts(ctx, filter, page)
	if err != nil {
		respondError(c, "UserPosts", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts, "meta": meta(total)})
}

func (h *Handler) UserFollowing(c *gin.Context) {
	id, ok := pathID(c, "id", "User")
	if !ok {
		return
	}
	page, ok := parsePage(c, 20)
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	user, ok := h.loadActiveUser(c, ctx, id)
	if !ok {
		return
	}
	following, err := h.store.UsersByID(ctx, pageIDs(user.Following, page))
	if err != nil {
		respondError(c, "UserFollowing", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"following": following, "meta": meta(int64(len(user.Following)))})
}

func (h *Handler) SavedPosts(c *gin.Context) {
	id, ok := pathID(c, "id", "User")
	if !ok {
		return
	}
	if _, ok := authorize(c, "SavedPosts", policy.ViewSavedPosts, id); !ok {
		return
	}
	page, ok := parsePage(c, 20)
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	user, ok := h.loadActiveUser(c, ctx, id)
	if !ok {
		return
	}
	posts, err := h.store.PostsByID(ctx, pageIDs(user.SavedPosts, page))
	if err != nil {
		respondError(c, "SavedPosts", err)
		return
	}
	total := int64(len(user.SavedPosts))
	c.JSON(http.StatusOK, gin.H{"savedPosts": posts, "savedPostsCount": total, "meta": meta(total)})
}

// CreateUser lets an admin create an account with any role.
func (h *Handler) CreateUser(c *gin.Context) {
	if _, ok := authorize(c, "CreateUser", policy.CreateUser, primitive.NilObjectID); !ok {
		return
	}
	var req CreateUserRequest
	if !bind(c, &req) {
		return
	}
	role, err := models.ParseRole(req.UserType)
	if err != nil {
		validationFailed(c, fieldError{Field: "userType", Message: err.Error()})
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if !h.identityAvailable(c, ctx, req.Email, req.Username, primitive.NilObjectID) {
		return
	}
	hashed, err := hashPassword(req.Password)
	if err != nil {
		respondError(c, "CreateUser", err)
		return
	}
	user := models.NewUser(req.FirstName, req.LastName, req.Email, req.Username, hashed, role)
	if err := h.store.CreateUser(ctx, user); err != nil {
		respondError(c, "CreateUser", err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (h *Handler) UpdateUser(c *gin.Context) {
	id, ok := pathID(c, "id", "User")
	if !ok {
		return
	}
	actor, ok := authorize(c, "UpdateUser", policy.EditUser, id)
	if !ok {
		return
	}
	var req UpdateUserRequest
	if !bind(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	user, ok := h.loadActiveUser(c, ctx, id)
	if !ok {
		return
	}
	if req.Version != nil && *req.Version != user.Version {
		respondError(c, "UpdateUser", database.ErrVersionConflict)
		return
	}

	if req.UserType != nil && models.Role(*req.UserType) != user.Role {
		if err := policy.Authorize(actor, policy.ChangeRole, id); err != nil {
			respondError(c, "UpdateUser", err)
			return
		}
		user.Role = models.Role(*req.UserType)
	}

	var email, username string
	if req.Email != nil && *req.Email != user.Email {
		email = *req.Email
	}
	if req.Username != nil && *req.Username != user.Username {
		username = *req.Username
	}
	if !h.identityAvailable(c, ctx, email, username, user.ID) {
		return
	}

	applyString(&user.FirstName, req.FirstName)
	applyString(&user.LastName, req.LastName)
	applyString(&user.Email, req.Email)
	applyString(&user.Username, req.Username)
	applyString(&user.Description, req.Description)

	// The old avatar is removed only once the document points at the new one.
	asset, err := h.uploadAvatar(ctx, c)
	if err != nil {
		respondAvatarError(c, "UpdateUser", err)
		return
	}
	var previous *media.Asset
	if asset != nil {
		if user.AvatarID != "" {
			previous = &media.Asset{URL: user.AvatarURL, PublicID: user.AvatarID}
		}
		user.AvatarURL, user.AvatarID = asset.URL, asset.PublicID
	}

	if err := h.store.UpdateUser(ctx, user); err != nil {
		h.discardAvatar(ctx, asset)
		respondError(c, "UpdateUser", err)
		return
	}
	h.discardAvatar(ctx, previous)
	c.JSON(http.StatusOK, user.VisibleTo(actor))
}

func applyString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func (h *Handler) UpdatePassword(c *gin.Context) {
	id, ok := pathID(c, "id", "User")
	if !ok {
		return
	}
	if _, ok := authorize(c, "UpdatePassword", policy.ChangePassword, id); !ok {
		return
	}
	var req UpdatePasswordRequest
	if !bind(c, &req) {
		return
	}

	hashed, err := hashPassword(req.Password)
	if err != nil {
		respondError(c, "UpdatePassword", err)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.store.SetPassword(ctx, id, hashed); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
			return
		}
		respondError(c, "UpdatePassword", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password updated successfully"})
}

// DeleteUser soft-deletes the account. Users deleting themselves are
// signed out.
func (h *Handler) DeleteUser(c *gin.Context) {
	id, ok := pathID(c, "id", "User")
	if !ok {
		return
	}
	actor, ok := authorize(c, "DeleteUser", policy.DeleteUser, id)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	var deletedBy *primitive.ObjectID
	if actor.ID != id {
		deletedBy = &actor.ID
	}
	deleted, err := h.store.SoftDeleteUser(ctx, id, deletedBy)
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
		return
	}
	if err != nil {
		respondError(c, "DeleteUser", err)
		return
	}

	if deletedBy == nil {
		if err := h.auth.Logout(c); err != nil {
			respondError(c, "DeleteUser", err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"user": deleted.VisibleTo(actor)})
}

func (h *Handler) Follow(c *gin.Context) {
	h.changeFollow(c, true)
}

func (h *Handler) Unfollow(c *gin.Context) {
	h.changeFollow(c, false)
}

func (h *Handler) changeFollow(c *gin.Context, follow bool) {
	actor := middleware.CurrentUser(c)
	if actor == nil {
		respondError(c, "Follow", policy.ErrUnauthenticated)
		return
	}
	target, ok := pathID(c, "id", "User")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	change := h.store.Follow
	if !follow {
		change = h.store.Unfollow
	}
	if err := change(ctx, actor.ID, target); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
			return
		}
		respondError(c, "Follow", err)
		return
	}

	followed, ok := h.loadUser(c, ctx, target)
	if !ok {
		return
	}
	follower, ok := h.loadUser(c, ctx, actor.ID)
	if !ok {
		return
	}

	if follow {
		h.notify(target, actor.ID, websocket.EventUserFollowed, actor.Summary())
	}
	c.JSON(http.StatusOK, gin.H{
		"followed": followed.VisibleTo(actor),
		"follower": follower.VisibleTo(actor),
	})
}
