package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// NewRouter wires every route with its middleware chain.
func NewRouter(h *Handler) *gin.Engine {
	if h.Cfg.Prod {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), Metrics())

	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	auth := r.Group("/auth")
	{
		auth.POST("/register", h.AuthRateLimit(), h.Register)
		auth.POST("/verify-email", h.AuthRateLimit(), h.VerifyEmail)
		auth.POST("/login", h.AuthRateLimit(), h.Login)
		auth.POST("/logout", h.Logout)
		auth.POST("/forget-password", h.AuthRateLimit(), h.ForgetPassword)
		auth.PUT("/reset-password/:resetToken", h.AuthRateLimit(), h.ResetPassword)

		auth.GET("/google", h.GoogleAuth)
		auth.GET("/google/callback", h.GoogleCallback)
		auth.GET("/google/success", h.Authenticate(), h.GoogleSuccess)
		auth.GET("/google/login-failed", h.LoginFailed)
		auth.GET("/google/logout", h.GoogleLogout)

		auth.GET("/user/:id", h.Authenticate(), h.GetUser)
		auth.PUT("/update-user-role/:id", h.Authenticate(), RequireAdmin(), h.UpdateUserRole)
		auth.DELETE("/delete-user/:id", h.Authenticate(), RequireAdmin(), h.DeleteUser)
	}

	r.POST("/create-profile", h.Authenticate(), h.CreateProfile)
	profile := r.Group("/user-profile")
	{
		profile.GET("", h.Authenticate(), h.GetMyProfile)
		profile.PUT("", h.Authenticate(), h.UpdateProfile)
		profile.DELETE("", h.Authenticate(), h.DeleteProfile)
		profile.GET("/:id", h.MaybeAuthenticate(), h.GetProfileByID)
		profile.GET("/user/:userId", h.MaybeAuthenticate(), h.GetProfileByUserID)
		profile.PATCH("/:id/verification", h.Authenticate(), RequireAdmin(), h.SetVerification)
	}

	posts := r.Group("/posts")
	{
		posts.POST("", h.Authenticate(), h.PostRateLimit(), h.CreatePost)
		posts.POST("/upload", h.Authenticate(), h.UploadMedia)

		// static segments must precede the :id wildcard
		posts.GET("", h.MaybeAuthenticate(), h.ListPosts)
		posts.GET("/search", h.MaybeAuthenticate(), h.SearchPosts)
		posts.GET("/trending", h.MaybeAuthenticate(), h.TrendingPosts)
		posts.GET("/type/:type", h.MaybeAuthenticate(), h.PostsByType)
		posts.GET("/my-posts", h.Authenticate(), h.MyPosts)
		posts.GET("/author/:authorId", h.MaybeAuthenticate(), h.PostsByAuthor)

		posts.GET("/:id", h.MaybeAuthenticate(), h.LoadPost(), FlaggedContentGate(), h.GetPost)
		posts.PUT("/:id", h.Authenticate(), h.LoadPostForEdit(), RequirePostOwner(), h.UpdatePost)
		posts.DELETE("/:id", h.Authenticate(), h.LoadPostForEdit(), RequirePostOwner(), h.DeletePost)
		posts.PATCH("/:id/moderate", h.Authenticate(), RequireAdmin(), h.ModeratePost)
		posts.POST("/:id/engagement", h.Authenticate(), h.LoadPost(), FlaggedContentGate(), h.AdjustEngagement)
	}

	return r
}
