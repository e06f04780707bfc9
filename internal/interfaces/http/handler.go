package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"supportdesk/internal/infrastructure"
	"supportdesk/internal/repository"
	"supportdesk/internal/usecases"
)

const maxIngressBody = 1 << 20 // 1MB per inbound payload

type Handler struct {
	pipeline *usecases.InboundPipeline
	log      zerolog.Logger
}

func NewHandler(pipeline *usecases.InboundPipeline, log zerolog.Logger) *Handler {
	return &Handler{pipeline: pipeline, log: log}
}

func SetupRoutes(
	r *gin.Engine,
	pipeline *usecases.InboundPipeline,
	auth *usecases.AuthUsecase,
	operator *usecases.OperatorService,
	tenants *repository.TenantManager,
	channels *repository.ChannelRepository,
	conversations *repository.ConversationRepository,
	events *repository.EventRepository,
	cache *infrastructure.ChannelCache,
	middleware *Middleware,
	log zerolog.Logger,
) {
	h := NewHandler(pipeline, log)
	adminHandler := NewAdminHandler(operator, tenants, channels, conversations, events, cache, log)

	r.Use(SecurityHeaders())
	r.Use(RequestSizeLimiter(10 << 20)) // 10MB max request size
	r.Use(middleware.CORSMiddleware())

	// Public Routes
	r.POST("/ingress", h.HandleIngress)
	r.GET("/health", adminHandler.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public Auth Routes
	authGroup := r.Group("/api/auth")
	{
		authGroup.POST("/login", func(c *gin.Context) {
			var loginReq struct {
				Username string `json:"username"`
				Password string `json:"password"`
			}
			if err := c.ShouldBindJSON(&loginReq); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
				return
			}
			token, err := auth.Login(c.Request.Context(), loginReq.Username, loginReq.Password)
			if err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"token": token})
		})
	}

	// Protected Routes
	api := r.Group("/api")
	api.Use(middleware.AuthRequired())
	api.Use(middleware.RateLimitPerUser(5, 10))
	{
		api.GET("/tenants/:id/conversations", adminHandler.ListConversations)
		api.GET("/tenants/:id/conversations/:cid/messages", adminHandler.ListMessages)
		api.POST("/tenants/:id/conversations/:cid/reply", adminHandler.SendReply)
	}

	// Admin-only Routes
	admin := r.Group("/api/admin")
	admin.Use(middleware.AuthRequired())
	admin.Use(middleware.AdminRequired())
	{
		admin.POST("/tenants", adminHandler.CreateTenant)
		admin.GET("/tenants", adminHandler.ListTenants)
		admin.POST("/tenants/:id/channels", adminHandler.CreateChannel)
		admin.GET("/tenants/:id/channels", adminHandler.ListChannels)
		admin.PUT("/channels/:id/status", adminHandler.SetChannelActive)
		admin.GET("/events", adminHandler.ListEvents)
		admin.POST("/events/:id/requeue", adminHandler.RequeueEvent)
	}
}

// HandleIngress accepts one raw channel payload. The channel token comes
// in the X-Channel-Token header; the body is passed to the channel's
// parser untouched.
func (h *Handler) HandleIngress(c *gin.Context) {
	token := c.GetHeader("X-Channel-Token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "X-Channel-Token header required"})
		return
	}

	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxIngressBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read body"})
		return
	}
	if len(raw) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Empty body"})
		return
	}

	eventID, err := h.pipeline.Ingest(c.Request.Context(), token, raw)
	if err != nil {
		if errors.Is(err, repository.ErrChannelNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unknown channel token"})
			return
		}
		if errors.Is(err, usecases.ErrBadPayload) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if errors.Is(err, usecases.ErrNoParser) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		h.log.Error().Err(err).Msg("ingress failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process message"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "accepted", "event_id": eventID})
}
