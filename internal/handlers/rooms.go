package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"gym-chat-service/internal/models"
	"gym-chat-service/internal/provider"
	"gym-chat-service/internal/telemetry"
)

// lifecycle is the slice of the room lifecycle service the HTTP layer consumes.
type lifecycle interface {
	GetOrCreateDirectChat(ctx context.Context, userA, userB, requestingTenant int) (models.RoomHandle, error)
	GetOrCreateEventChat(ctx context.Context, eventID, creatorUser int) (models.RoomHandle, error)
	AddMembers(ctx context.Context, roomID, actorUser, tenant int, userIDs []int) (models.RoomHandle, error)
	HideChannelForUser(ctx context.Context, roomID, userID, tenant int) (models.HideResult, error)
	ShowChannelForUser(ctx context.Context, roomID, userID, tenant int) (models.HideResult, error)
	LeaveGroup(ctx context.Context, roomID, userID, tenant int, autoHide bool) (models.LeaveResult, error)
	DeleteGroup(ctx context.Context, roomID, userID, tenant int, hardDelete bool) (models.DeleteGroupResult, error)
	DeleteConversationForUser(ctx context.Context, roomID, userID, tenant int) (models.DeleteConversationResult, error)
	ListRooms(ctx context.Context, userID, tenant int, includeHidden bool) ([]models.RoomSummary, error)
	IssueUserToken(ctx context.Context, userID, tenant int) (provider.Token, error)
}

// RoomHandler manages the room lifecycle endpoints.
type RoomHandler struct {
	service lifecycle
	audit   *telemetry.AuditEmitter
}

// NewRoomHandler builds a RoomHandler.
func NewRoomHandler(service lifecycle, audit *telemetry.AuditEmitter) *RoomHandler {
	return &RoomHandler{service: service, audit: audit}
}

// ListRooms returns the rooms visible to the authenticated user.
func (h *RoomHandler) ListRooms(c *gin.Context) {
	userID := c.GetInt("userID")
	tenantID := c.GetInt("tenantID")
	includeHidden := c.Query("include_hidden") == "true"

	rooms, err := h.service.ListRooms(c.Request.Context(), userID, tenantID, includeHidden)
	if err != nil {
		h.fail(c, err, "failed to load rooms")
		return
	}

	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

// StartDirectChat creates or returns the direct room between the caller and a friend.
func (h *RoomHandler) StartDirectChat(c *gin.Context) {
	var req struct {
		FriendID int `json:"friend_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt("userID")
	tenantID := c.GetInt("tenantID")

	handle, err := h.service.GetOrCreateDirectChat(c.Request.Context(), userID, req.FriendID, tenantID)
	if err != nil {
		h.fail(c, err, "could not start chat")
		return
	}

	status := http.StatusOK
	if handle.Created {
		status = http.StatusCreated
		h.emitAudit(c, "INFO", "direct room created")
	}
	c.JSON(status, handle)
}

// StartEventChat creates or returns the room attached to an event.
func (h *RoomHandler) StartEventChat(c *gin.Context) {
	var req struct {
		EventID int `json:"event_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt("userID")

	handle, err := h.service.GetOrCreateEventChat(c.Request.Context(), req.EventID, userID)
	if err != nil {
		h.fail(c, err, "could not start event chat")
		return
	}

	status := http.StatusOK
	if handle.Created {
		status = http.StatusCreated
		h.emitAudit(c, "INFO", "event room created")
	}
	c.JSON(status, handle)
}

// AddMembers adds users to a group room.
func (h *RoomHandler) AddMembers(c *gin.Context) {
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}

	var req struct {
		UserIDs []int `json:"user_ids" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt("userID")
	tenantID := c.GetInt("tenantID")

	handle, err := h.service.AddMembers(c.Request.Context(), roomID, userID, tenantID, req.UserIDs)
	if err != nil {
		h.fail(c, err, "could not add members")
		return
	}

	c.JSON(http.StatusOK, handle)
}

// HideRoom hides a direct room for the caller.
func (h *RoomHandler) HideRoom(c *gin.Context) {
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	tenantID := c.GetInt("tenantID")

	result, err := h.service.HideChannelForUser(c.Request.Context(), roomID, userID, tenantID)
	if err != nil {
		h.fail(c, err, "could not hide room")
		return
	}

	c.JSON(http.StatusOK, result)
}

// ShowRoom makes a hidden direct room visible again for the caller.
func (h *RoomHandler) ShowRoom(c *gin.Context) {
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	tenantID := c.GetInt("tenantID")

	result, err := h.service.ShowChannelForUser(c.Request.Context(), roomID, userID, tenantID)
	if err != nil {
		h.fail(c, err, "could not show room")
		return
	}

	c.JSON(http.StatusOK, result)
}

// LeaveRoom removes the caller from a group room.
func (h *RoomHandler) LeaveRoom(c *gin.Context) {
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}

	var req struct {
		AutoHide bool `json:"auto_hide"`
	}
	// Body is optional; an empty body means no auto-hide.
	_ = c.ShouldBindJSON(&req)

	userID := c.GetInt("userID")
	tenantID := c.GetInt("tenantID")

	result, err := h.service.LeaveGroup(c.Request.Context(), roomID, userID, tenantID, req.AutoHide)
	if err != nil {
		h.fail(c, err, "could not leave group")
		return
	}

	if result.GroupClosed {
		h.emitAudit(c, "INFO", "group closed after last member left")
	}
	c.JSON(http.StatusOK, result)
}

// DeleteRoom closes an empty group room.
func (h *RoomHandler) DeleteRoom(c *gin.Context) {
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	tenantID := c.GetInt("tenantID")
	hardDelete := c.Query("hard_delete") == "true"

	result, err := h.service.DeleteGroup(c.Request.Context(), roomID, userID, tenantID, hardDelete)
	if err != nil {
		h.fail(c, err, "could not delete group")
		return
	}

	h.emitAudit(c, "INFO", "group deleted")
	c.JSON(http.StatusOK, result)
}

// DeleteRoomForMe removes a direct conversation from the caller's view only.
func (h *RoomHandler) DeleteRoomForMe(c *gin.Context) {
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	tenantID := c.GetInt("tenantID")

	result, err := h.service.DeleteConversationForUser(c.Request.Context(), roomID, userID, tenantID)
	if err != nil {
		h.fail(c, err, "could not delete conversation")
		return
	}

	c.JSON(http.StatusOK, result)
}

// IssueToken returns a messaging provider access token for the caller.
func (h *RoomHandler) IssueToken(c *gin.Context) {
	userID := c.GetInt("userID")
	tenantID := c.GetInt("tenantID")

	token, err := h.service.IssueUserToken(c.Request.Context(), userID, tenantID)
	if err != nil {
		h.fail(c, err, "could not issue token")
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token.Value, "expires_at": token.ExpiresAt})
}

// fail maps a service error to an HTTP response. Validation failures keep their
// specific message; unexpected failures get the generic one to avoid leaking
// internals.
func (h *RoomHandler) fail(c *gin.Context, err error, generic string) {
	var hasMembers *models.HasMembersError
	switch {
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
	case errors.Is(err, models.ErrNotAuthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": "not authorized"})
	case errors.Is(err, models.ErrNoSharedTenant):
		c.JSON(http.StatusForbidden, gin.H{"error": "users do not share a gym"})
	case errors.Is(err, models.ErrInvalidOperation):
		c.JSON(http.StatusBadRequest, gin.H{"error": "operation not valid for this room"})
	case errors.As(err, &hasMembers):
		c.JSON(http.StatusConflict, gin.H{"error": hasMembers.Error(), "member_count": hasMembers.Count})
	case errors.Is(err, models.ErrProviderUnavailable):
		h.emitAudit(c, "ERROR", "messaging provider unavailable")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "messaging provider unavailable"})
	default:
		var provErr *provider.Error
		if errors.As(err, &provErr) {
			c.JSON(http.StatusBadGateway, gin.H{"error": "messaging provider rejected the request"})
			return
		}
		h.emitAudit(c, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": generic})
	}
}

func (h *RoomHandler) emitAudit(c *gin.Context, level, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c))
}

func parseRoomID(c *gin.Context) (int, bool) {
	roomID, err := strconv.Atoi(c.Param("room_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return 0, false
	}
	return roomID, true
}
