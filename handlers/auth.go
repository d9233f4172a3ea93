package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackwatters45/blog-api/database"
	"github.com/jackwatters45/blog-api/logger"
	"github.com/jackwatters45/blog-api/middleware"
	"github.com/jackwatters45/blog-api/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

// passwordCost is lowered by tests.
var passwordCost = bcrypt.DefaultCost

type SignupRequest struct {
	FirstName       string `json:"firstName" form:"firstName" mod:"trim" binding:"required,max=25"`
	LastName        string `json:"lastName" form:"lastName" mod:"trim" binding:"required,max=25"`
	Email           string `json:"email" form:"email" mod:"trim,lcase" binding:"required,email"`
	Username        string `json:"username" form:"username" mod:"trim" binding:"required,min=5"`
	Password        string `json:"password" form:"password" mod:"trim" binding:"required,min=8"`
	ConfirmPassword string `json:"confirmPassword" form:"confirmPassword" mod:"trim" binding:"required,eqfield=Password"`
}

type LoginRequest struct {
	Username string `json:"username" form:"username" mod:"trim" binding:"required"`
	Password string `json:"password" form:"password" mod:"trim" binding:"required"`
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), passwordCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func (h *Handler) Signup(c *gin.Context) {
	var req SignupRequest
	if !bind(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if !h.identityAvailable(c, ctx, req.Email, req.Username, primitive.NilObjectID) {
		return
	}

	hashed, err := hashPassword(req.Password)
	if err != nil {
		respondError(c, "Signup", err)
		return
	}
	user := models.NewUser(req.FirstName, req.LastName, req.Email, req.Username, hashed, models.RoleUser)

	asset, err := h.uploadAvatar(ctx, c)
	if err != nil {
		respondAvatarError(c, "Signup", err)
		return
	}
	if asset != nil {
		user.AvatarURL, user.AvatarID = asset.URL, asset.PublicID
	}

	if err := h.store.CreateUser(ctx, user); err != nil {
		h.discardAvatar(ctx, asset)
		if errors.Is(err, database.ErrDuplicate) {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Email or username already exists"})
			return
		}
		respondError(c, "Signup", err)
		return
	}

	h.login(c, user)
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if !bind(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := h.store.FindUserByLogin(ctx, req.Username)
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid username or password"})
		return
	}
	if err != nil {
		respondError(c, "Login", err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid username or password"})
		return
	}

	h.login(c, user)
}

func (h *Handler) login(c *gin.Context, user *models.User) {
	token, err := h.auth.Login(c, user.ID)
	if err != nil {
		respondError(c, "Login", err)
		return
	}

	logger.Info.Printf("[Login] user %s signed in", user.ID.Hex())
	c.JSON(http.StatusOK, gin.H{
		"message": "Logged in successfully.",
		"user":    user.VisibleTo(user),
		"token":   token,
	})
}

func (h *Handler) Logout(c *gin.Context) {
	if err := h.auth.Logout(c); err != nil {
		respondError(c, "Logout", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User logged out successfully"})
}

// Me reports the signed-in user without failing for anonymous callers.
func (h *Handler) Me(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusOK, gin.H{"isAuthenticated": false, "message": "No user logged in"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user.VisibleTo(user), "isAuthenticated": true})
}
