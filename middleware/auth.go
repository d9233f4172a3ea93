package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jackwatters45/blog-api/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	CookieName  = "jwt"
	SessionName = "blog_session"
	sessionKey  = "userId"
	userKey     = "user"
)

var errNoCredentials = errors.New("no credentials")

type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// Tokens issues and verifies HS256 tokens carrying a user id.
type Tokens struct {
	secret []byte
	ttl    time.Duration
}

func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl}
}

func (t *Tokens) TTL() time.Duration { return t.ttl }

func (t *Tokens) Issue(userID primitive.ObjectID) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID.Hex(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

func (t *Tokens) Parse(tokenString string) (primitive.ObjectID, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Validate the alg is what we expect
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil {
		return primitive.NilObjectID, err
	}
	if !token.Valid {
		return primitive.NilObjectID, errors.New("token is not valid")
	}
	return primitive.ObjectIDFromHex(claims.UserID)
}

// UserResolver loads the user a credential refers to.
type UserResolver interface {
	GetUser(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

type Authenticator struct {
	tokens       *Tokens
	users        UserResolver
	secureCookie bool
}

func NewAuthenticator(tokens *Tokens, users UserResolver, secureCookie bool) *Authenticator {
	return &Authenticator{tokens: tokens, users: users, secureCookie: secureCookie}
}

// RequireAuth aborts with 401 unless the request carries a credential for
// an existing user that has not been deleted.
func (a *Authenticator) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Skip middleware for OPTIONS requests (CORS preflight)
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		user, err := a.resolve(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
			return
		}
		setUser(c, user)
		c.Next()
	}
}

// OptionalAuth resolves the user when it can and never aborts.
func (a *Authenticator) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if user, err := a.resolve(c); err == nil {
			setUser(c, user)
		}
		c.Next()
	}
}

func (a *Authenticator) resolve(c *gin.Context) (*models.User, error) {
	id, err := a.credential(c)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	user, err := a.users.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.IsDeleted {
		return nil, errors.New("user is deleted")
	}
	return user, nil
}

// credential reads the user id from the token cookie, the Authorization
// header, the token query parameter used by websocket clients, and finally
// the session cookie.
func (a *Authenticator) credential(c *gin.Context) (primitive.ObjectID, error) {
	if token, err := c.Cookie(CookieName); err == nil && token != "" {
		return a.tokens.Parse(token)
	}

	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.Split(header, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return primitive.NilObjectID, errors.New("format should be: Bearer <token>")
		}
		return a.tokens.Parse(parts[1])
	}

	if token := c.Query("token"); token != "" {
		return a.tokens.Parse(token)
	}

	if session := defaultSession(c); session != nil {
		if hex, ok := session.Get(sessionKey).(string); ok {
			return primitive.ObjectIDFromHex(hex)
		}
	}
	return primitive.NilObjectID, errNoCredentials
}

// Login issues a token cookie for userID and records it in the session.
func (a *Authenticator) Login(c *gin.Context, userID primitive.ObjectID) (string, error) {
	token, err := a.tokens.Issue(userID)
	if err != nil {
		return "", err
	}

	c.SetSameSite(http.SameSiteNoneMode)
	c.SetCookie(CookieName, token, int(a.tokens.TTL().Seconds()), "/", "", a.secureCookie, true)

	if session := defaultSession(c); session != nil {
		session.Set(sessionKey, userID.Hex())
		if err := session.Save(); err != nil {
			return "", err
		}
	}
	return token, nil
}

func (a *Authenticator) Logout(c *gin.Context) error {
	c.SetSameSite(http.SameSiteNoneMode)
	c.SetCookie(CookieName, "", -1, "/", "", a.secureCookie, true)

	if session := defaultSession(c); session != nil {
		session.Clear()
		session.Options(sessions.Options{Path: "/", MaxAge: -1})
		return session.Save()
	}
	return nil
}

// defaultSession returns nil when the sessions middleware is not installed.
func defaultSession(c *gin.Context) sessions.Session {
	if _, ok := c.Get(sessions.DefaultKey); !ok {
		return nil
	}
	return sessions.Default(c)
}

func setUser(c *gin.Context, user *models.User) {
	c.Set(userKey, user)
	c.Set("userId", user.ID.Hex())
}

// CurrentUser returns the user resolved by RequireAuth or OptionalAuth, or nil.
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(userKey); ok {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	return nil
}
