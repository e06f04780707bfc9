package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"supportdesk/internal/entities"
	"supportdesk/internal/infrastructure"
	"supportdesk/internal/repository"
	"supportdesk/internal/usecases"
)

type AdminHandler struct {
	operator      *usecases.OperatorService
	tenants       *repository.TenantManager
	channels      *repository.ChannelRepository
	conversations *repository.ConversationRepository
	events        *repository.EventRepository
	cache         *infrastructure.ChannelCache
	log           zerolog.Logger
}

func NewAdminHandler(
	operator *usecases.OperatorService,
	tenants *repository.TenantManager,
	channels *repository.ChannelRepository,
	conversations *repository.ConversationRepository,
	events *repository.EventRepository,
	cache *infrastructure.ChannelCache,
	log zerolog.Logger,
) *AdminHandler {
	return &AdminHandler{
		operator:      operator,
		tenants:       tenants,
		channels:      channels,
		conversations: conversations,
		events:        events,
		cache:         cache,
		log:           log,
	}
}

func (h *AdminHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// tenantScope resolves the :id path param to a tenant context, enforcing
// that non-admin callers only reach their own tenant.
func (h *AdminHandler) tenantScope(c *gin.Context) (entities.TenantContext, bool) {
	tenantID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tenant id"})
		return entities.TenantContext{}, false
	}

	if role, _ := c.Get("role"); role != "admin" {
		claim, _ := c.Get("tenant_id")
		if claimID, ok := claim.(float64); !ok || int(claimID) != tenantID {
			c.JSON(http.StatusForbidden, gin.H{"error": "Tenant access denied"})
			return entities.TenantContext{}, false
		}
	}

	tenant, err := h.tenants.GetByID(c.Request.Context(), tenantID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load tenant"})
		return entities.TenantContext{}, false
	}
	if tenant == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Tenant not found"})
		return entities.TenantContext{}, false
	}
	return entities.TenantContext{TenantID: tenant.ID, Schema: tenant.SchemaName}, true
}

func (h *AdminHandler) CreateTenant(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	tenant, err := h.tenants.CreateTenant(c.Request.Context(), req.Name)
	if err != nil {
		h.log.Error().Err(err).Str("name", req.Name).Msg("failed to create tenant")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create tenant"})
		return
	}
	c.JSON(http.StatusCreated, tenant)
}

func (h *AdminHandler) ListTenants(c *gin.Context) {
	tenants, err := h.tenants.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch tenants"})
		return
	}
	c.JSON(http.StatusOK, tenants)
}

func (h *AdminHandler) CreateChannel(c *gin.Context) {
	tc, ok := h.tenantScope(c)
	if !ok {
		return
	}

	var req struct {
		ChannelType string          `json:"channel_type" binding:"required"`
		Settings    json.RawMessage `json:"settings"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	channelType := entities.ChannelType(req.ChannelType)
	switch channelType {
	case entities.ChannelTelegram, entities.ChannelWidget, entities.ChannelWebhook:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown channel type"})
		return
	}

	channel := &entities.Channel{
		TenantID:    tc.TenantID,
		ChannelType: channelType,
		Settings:    req.Settings,
	}
	if err := h.channels.Create(c.Request.Context(), channel); err != nil {
		h.log.Error().Err(err).Int("tenant_id", tc.TenantID).Msg("failed to create channel")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create channel"})
		return
	}
	c.JSON(http.StatusCreated, channel)
}

func (h *AdminHandler) ListChannels(c *gin.Context) {
	tc, ok := h.tenantScope(c)
	if !ok {
		return
	}

	channels, err := h.channels.ListByTenant(c.Request.Context(), tc.TenantID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch channels"})
		return
	}
	c.JSON(http.StatusOK, channels)
}

func (h *AdminHandler) SetChannelActive(c *gin.Context) {
	channelID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid channel id"})
		return
	}

	var req struct {
		Active *bool `json:"active" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	channel, err := h.channels.GetByID(c.Request.Context(), channelID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load channel"})
		return
	}
	if channel == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Channel not found"})
		return
	}

	if err := h.channels.SetActive(c.Request.Context(), channelID, *req.Active); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update channel"})
		return
	}
	if h.cache != nil {
		h.cache.Invalidate(channel.Token)
	}
	c.JSON(http.StatusOK, gin.H{"id": channelID, "is_active": *req.Active})
}

func (h *AdminHandler) ListConversations(c *gin.Context) {
	tc, ok := h.tenantScope(c)
	if !ok {
		return
	}

	limit := queryInt(c, "limit", 50)
	conversations, err := h.conversations.List(c.Request.Context(), tc, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch conversations"})
		return
	}
	c.JSON(http.StatusOK, conversations)
}

func (h *AdminHandler) ListMessages(c *gin.Context) {
	tc, ok := h.tenantScope(c)
	if !ok {
		return
	}
	conversationID, err := strconv.ParseInt(c.Param("cid"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid conversation id"})
		return
	}

	limit := queryInt(c, "limit", 100)
	messages, err := h.conversations.ListMessages(c.Request.Context(), tc, conversationID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch messages"})
		return
	}
	c.JSON(http.StatusOK, messages)
}

func (h *AdminHandler) SendReply(c *gin.Context) {
	tc, ok := h.tenantScope(c)
	if !ok {
		return
	}
	conversationID, err := strconv.ParseInt(c.Param("cid"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid conversation id"})
		return
	}

	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	msg, err := h.operator.SendReply(c.Request.Context(), tc, conversationID, req.Content)
	if err != nil {
		h.log.Error().Err(err).Int64("conversation_id", conversationID).Msg("failed to send operator reply")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send reply"})
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// ListEvents returns events in the given status, newest first. Meant for
// inspecting failed and dead_letter queues.
func (h *AdminHandler) ListEvents(c *gin.Context) {
	status := entities.EventStatus(c.DefaultQuery("status", string(entities.EventFailed)))
	switch status {
	case entities.EventPending, entities.EventProcessing, entities.EventCompleted,
		entities.EventFailed, entities.EventDeadLetter:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown event status"})
		return
	}

	limit := queryInt(c, "limit", 50)
	events, err := h.events.ListByStatus(c.Request.Context(), status, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch events"})
		return
	}
	c.JSON(http.StatusOK, events)
}

// RequeueEvent puts a terminal event back to pending with a fresh retry
// budget; the notify trigger schedules it immediately.
func (h *AdminHandler) RequeueEvent(c *gin.Context) {
	eventID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event id"})
		return
	}

	if err := h.events.Requeue(c.Request.Context(), eventID); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": eventID, "status": "pending"})
}

func queryInt(c *gin.Context, name string, fallback int) int {
	v, err := strconv.Atoi(c.DefaultQuery(name, strconv.Itoa(fallback)))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
