package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/secure"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/jackwatters45/blog-api/config"
	"github.com/jackwatters45/blog-api/handlers"
	"github.com/jackwatters45/blog-api/middleware"
)

const wsPath = "/api/v1/notifications/ws"

func Setup(cfg *config.Config, h *handlers.Handler, auth *middleware.Authenticator, limiter middleware.Limiter) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	router.Use(secure.New(secure.Config{
		IsDevelopment:         !cfg.Release,
		STSSeconds:            31536000,
		STSIncludeSubdomains:  true,
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ContentSecurityPolicy: "default-src 'self'",
	}))

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Compressing the websocket handshake breaks the upgrade.
	router.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{wsPath})))

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.TokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteNoneMode,
	})
	router.Use(sessions.Sessions(middleware.SessionName, store))

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Blog API", "version": "v1"})
	})
	router.GET("/health", h.Health)

	required, optional := auth.RequireAuth(), auth.OptionalAuth()

	api := router.Group("/api/v1")
	api.Use(middleware.RateLimit(limiter))

	authRoutes := api.Group("/auth")
	{
		authRoutes.POST("/signup", h.Signup)
		authRoutes.POST("/login", h.Login)
		authRoutes.POST("/logout", h.Logout)
		authRoutes.GET("/me", optional, h.Me)
	}

	users := api.Group("/users")
	{
		users.GET("", optional, h.ListUsers)
		users.POST("", required, h.CreateUser)
		users.GET("/popular", h.PopularAuthors)
		users.GET("/preview", required, h.UsersPreview)
		users.GET("/:id", optional, h.GetUser)
		users.GET("/:id/deleted", required, h.GetDeletedUser)
		users.GET("/:id/posts", optional, h.UserPosts)
		users.GET("/:id/following", h.UserFollowing)
		users.GET("/:id/saved-posts", required, h.SavedPosts)
		users.PATCH("/:id", required, h.UpdateUser)
		users.PUT("/:id/password", required, h.UpdatePassword)
		users.PATCH("/:id/delete", required, h.DeleteUser)
		users.PUT("/:id/follow", required, h.Follow)
		users.PUT("/:id/unfollow", required, h.Unfollow)
	}

	posts := api.Group("/posts")
	{
		posts.GET("", h.ListPosts)
		posts.POST("", required, h.CreatePost)
		posts.GET("/popular", h.PopularPosts)
		posts.GET("/preview", required, h.PostsPreview)
		posts.GET("/following", required, h.FollowingPosts)
		posts.PUT("/saved-posts/:id", required, h.ToggleSavedPost)
		posts.GET("/:id", optional, h.GetPost)
		posts.PUT("/:id", required, h.UpdatePost)
		posts.PATCH("/:id", required, h.UpdatePost)
		posts.DELETE("/:id", required, h.DeletePost)
		posts.GET("/:id/likes", optional, h.PostLikes)
		posts.PUT("/:id/like", required, h.LikePost)
		posts.PUT("/:id/unlike", required, h.UnlikePost)
	}

	comments := posts.Group("/:id/comments")
	{
		comments.GET("", h.ListComments)
		comments.POST("", required, h.CreateComment)
		comments.GET("/:commentId", h.GetComment)
		comments.PUT("/:commentId", required, h.UpdateComment)
		comments.DELETE("/:commentId", required, h.DeleteComment)
		comments.POST("/:commentId/like", required, h.LikeComment)
		comments.POST("/:commentId/dislike", required, h.DislikeComment)
		comments.POST("/:commentId/reply", required, h.CreateReply)
		comments.GET("/:commentId/replies", h.ListReplies)
	}

	topics := api.Group("/topics")
	{
		topics.GET("", h.ListTopics)
		topics.POST("", required, h.CreateTopic)
		topics.GET("/popular", h.PopularTopics)
		topics.GET("/:id", h.GetTopic)
		topics.GET("/:id/posts", h.TopicPosts)
		topics.PATCH("/:id", required, h.UpdateTopic)
		topics.DELETE("/:id", required, h.DeleteTopic)
	}

	search := api.Group("/search")
	{
		search.GET("/all", h.SearchAll)
		search.GET("/posts", h.SearchPosts)
		search.GET("/users", h.SearchUsers)
		search.GET("/admin/users", required, h.SearchUsersAdmin)
		search.GET("/my-posts", required, h.SearchMyPosts)
		search.GET("/topics", h.SearchTopics)
	}

	api.GET("/notifications/ws", required, h.Notifications)

	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "Endpoint not found",
				"path":    c.Request.URL.Path,
				"message": "Check the API documentation for available endpoints",
			})
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"message": "Not found"})
	})

	return router
}
