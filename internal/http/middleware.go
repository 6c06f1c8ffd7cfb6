package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ditechted/healthlink/internal/domain"
	"github.com/ditechted/healthlink/internal/metrics"
	"github.com/ditechted/healthlink/internal/security"
)

const (
	requestIDKey = "X-Request-ID"
	userKey      = "authUser"
	postKey      = "post"
)

func contextWithoutCancel(c *gin.Context) context.Context {
	return context.WithoutCancel(c.Request.Context())
}

func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDKey)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDKey, id)
		c.Next()
	}
}

func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		metrics.InFlight.Inc()
		c.Next()
		metrics.InFlight.Dec()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RequestsTotal.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.ReqDuration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}

// Authenticate requires a valid session cookie and loads the user.
func (h *Handler) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		u, code, msg := h.userFromCookie(c)
		if u == nil {
			c.AbortWithStatusJSON(code, gin.H{"success": false, "message": msg})
			return
		}
		c.Set(userKey, u)
		c.Next()
	}
}

// MaybeAuthenticate loads the user when a valid cookie is present but lets
// anonymous requests through (public read paths).
func (h *Handler) MaybeAuthenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if u, _, _ := h.userFromCookie(c); u != nil {
			c.Set(userKey, u)
		}
		c.Next()
	}
}

func (h *Handler) userFromCookie(c *gin.Context) (*domain.User, int, string) {
	token, err := c.Cookie(authCookie)
	if err != nil || token == "" {
		return nil, http.StatusUnauthorized, "Unauthorized: no token provided"
	}
	claims, err := security.ParseToken(h.Cfg.JWTSecret, token)
	if err != nil {
		return nil, http.StatusUnauthorized, "Unauthorized: invalid or expired token"
	}
	uid, err := primitive.ObjectIDFromHex(claims.UID)
	if err != nil {
		return nil, http.StatusUnauthorized, "Unauthorized: invalid token"
	}
	u, err := h.Store.FindUserByID(c.Request.Context(), uid)
	if err != nil || u == nil {
		return nil, http.StatusUnauthorized, "Unauthorized: user not found"
	}
	return u, 0, ""
}

func currentUser(c *gin.Context) *domain.User {
	if v, ok := c.Get(userKey); ok {
		if u, ok := v.(*domain.User); ok {
			return u
		}
	}
	return nil
}

// RequireAdmin gates moderation and administrative routes.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		u := currentUser(c)
		if u == nil || u.Role != domain.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "message": "Admin access required"})
			return
		}
		c.Next()
	}
}

// AuthRateLimit is a fixed-window per-IP limiter for credential endpoints.
func (h *Handler) AuthRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.Redis == nil {
			c.Next()
			return
		}
		key := "rl:auth:" + c.ClientIP()
		if !h.Redis.Allow(c.Request.Context(), key, h.Cfg.AuthRatePerMin, time.Minute) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"success": false, "message": "Too many requests"})
			return
		}
		c.Next()
	}
}

// LoadPost resolves :id and applies the existence, active, not-removed and
// visibility gates. Order matters: anything hidden reads as 404, visibility
// violations as 403/401.
func (h *Handler) LoadPost() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid post ID format"})
			return
		}
		p, err := h.Store.FindPostByID(c.Request.Context(), id)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
			return
		}
		if p == nil {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"success": false, "message": "Post not found"})
			return
		}
		if !p.IsActive {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"success": false, "message": "Post is no longer available"})
			return
		}
		if p.Moderation.Status == domain.ModerationRemoved {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"success": false, "message": "Post has been removed"})
			return
		}

		u := currentUser(c)
		switch p.Visibility {
		case domain.VisibilityPrivate:
			if u == nil || (p.AuthorID != u.ID && u.Role != domain.RoleAdmin) {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "message": "Post is private"})
				return
			}
		case domain.VisibilityCommunity:
			// no membership model yet; any authenticated caller may view
			if u == nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Authentication required to view community posts"})
				return
			}
		}

		c.Set(postKey, p)
		c.Next()
	}
}

// LoadPostForEdit resolves :id for the write paths. Unlike LoadPost it lets
// inactive and removed posts through to the ownership check, so an update of
// a removed post can be rejected with 400 instead of masked as 404.
func (h *Handler) LoadPostForEdit() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid post ID format"})
			return
		}
		p, err := h.Store.FindPostByID(c.Request.Context(), id)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
			return
		}
		if p == nil {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"success": false, "message": "Post not found"})
			return
		}
		c.Set(postKey, p)
		c.Next()
	}
}

func loadedPost(c *gin.Context) *domain.Post {
	if v, ok := c.Get(postKey); ok {
		if p, ok := v.(*domain.Post); ok {
			return p
		}
	}
	return nil
}

// RequirePostOwner allows only the author or an admin through.
func RequirePostOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		p := loadedPost(c)
		u := currentUser(c)
		if p == nil || u == nil {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"success": false, "message": "Post not found"})
			return
		}
		if p.AuthorID != u.ID && u.Role != domain.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "message": "Not authorized to perform this action"})
			return
		}
		c.Next()
	}
}

// FlaggedContentGate hides flagged posts from everyone but author/admin on
// read paths.
func FlaggedContentGate() gin.HandlerFunc {
	return func(c *gin.Context) {
		p := loadedPost(c)
		if p == nil || p.Moderation.Status != domain.ModerationFlagged {
			c.Next()
			return
		}
		u := currentUser(c)
		if u == nil || (p.AuthorID != u.ID && u.Role != domain.RoleAdmin) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "message": "This post is under review and not available for viewing"})
			return
		}
		c.Next()
	}
}

// PostRateLimit caps authenticated callers at PostsPerHour creations in a
// rolling hour, counted from creation timestamps. Admins are exempt.
func (h *Handler) PostRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		u := currentUser(c)
		if u == nil || u.Role == domain.RoleAdmin {
			c.Next()
			return
		}
		since := time.Now().Add(-time.Hour)
		n, err := h.Store.CountRecentPostsByAuthor(c.Request.Context(), u.ID, since)
		if err != nil {
			// rate limiting is best-effort; never block the write path on it
			c.Next()
			return
		}
		if n >= int64(h.Cfg.PostsPerHour) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success":    false,
				"message":    "Too many posts created recently. Please wait before creating another post.",
				"retryAfter": 3600,
			})
			return
		}
		c.Next()
	}
}
