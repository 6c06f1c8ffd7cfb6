package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ditechted/healthlink/internal/config"
	"github.com/ditechted/healthlink/internal/log"
	"github.com/ditechted/healthlink/internal/metrics"
	"github.com/ditechted/healthlink/internal/oauth"
	"github.com/ditechted/healthlink/internal/queue"
	"github.com/ditechted/healthlink/internal/repo"
	"github.com/ditechted/healthlink/internal/storage"
)

const authCookie = "authToken"

type Handler struct {
	Store    *repo.Store
	Redis    *repo.Redis
	Google   *oauth.GoogleOAuth
	Events   queue.Publisher
	Media    storage.Uploader
	Cfg      config.Config
	TokenTTL time.Duration
}

func NewHandler(store *repo.Store, rds *repo.Redis, google *oauth.GoogleOAuth, pub queue.Publisher, media storage.Uploader, cfg config.Config) *Handler {
	if pub == nil {
		pub = queue.NewNoop()
	}
	ttl := time.Duration(cfg.TokenTTLDays) * 24 * time.Hour
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Handler{
		Store:    store,
		Redis:    rds,
		Google:   google,
		Events:   pub,
		Media:    media,
		Cfg:      cfg,
		TokenTTL: ttl,
	}
}

// fail writes the uniform error envelope. Internal error details are logged,
// never echoed to the client.
func fail(c *gin.Context, code int, msg string) {
	c.JSON(code, gin.H{"success": false, "message": msg})
}

func failValidation(c *gin.Context, msgs []string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"message": "Validation failed",
		"errors":  msgs,
	})
}

func serverError(c *gin.Context, err error, what string) {
	log.WithDD(c.Request.Context(), log.L()).Error(what, zap.Error(err))
	fail(c, http.StatusInternalServerError, "Server error")
}

// publish fires a notification event without blocking the response; failures
// are logged and never fail the primary operation.
func (h *Handler) publish(c *gin.Context, key string, event any) {
	reqID := c.GetString(requestIDKey)
	pub := h.Events
	exchange := h.Cfg.Rabbit.Exchange
	// detach from the request context before the handler returns; gin
	// recycles its contexts
	ctx := contextWithoutCancel(c)
	go func() {
		if err := pub.Publish(ctx, exchange, key, event, reqID); err != nil {
			log.L().Warn("publish event failed", zap.String("key", key), zap.Error(err))
			metrics.NotificationsPublished.WithLabelValues(key, "error").Inc()
			return
		}
		metrics.NotificationsPublished.WithLabelValues(key, "ok").Inc()
	}()
}

func (h *Handler) setAuthCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(authCookie, token, int(h.TokenTTL.Seconds()), "/", "", h.Cfg.Prod, true)
}

func (h *Handler) clearAuthCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(authCookie, "", -1, "/", "", h.Cfg.Prod, true)
}

func (h *Handler) Healthz(c *gin.Context) {
	if err := h.Store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
