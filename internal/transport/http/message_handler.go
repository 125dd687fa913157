package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/rootseed/pos-otp-relay/internal/domain"
	"github.com/rootseed/pos-otp-relay/internal/service"
	"github.com/rootseed/pos-otp-relay/internal/util"
)

// MessageHandler serves the raw message log that pollers read.
type MessageHandler struct {
	relay *service.RelayService
}

type MessageCreateRequest struct {
	Type        domain.MessageType   `json:"type" example:"OTP_REQUEST"`
	SenderID    string               `json:"senderId" example:"CS001"`
	SenderName  *string              `json:"senderName,omitempty" example:"Front Counter"`
	RecipientID *string              `json:"recipientId,omitempty"`
	OTP         *string              `json:"otp,omitempty"`
	Status      domain.MessageStatus `json:"status,omitempty" example:"pending"`
	Timestamp   *time.Time           `json:"timestamp,omitempty"`
	ExpiresAt   *time.Time           `json:"expiresAt,omitempty"`
}

type MessageUpdateRequest struct {
	Status      domain.MessageStatus `json:"status,omitempty" example:"delivered"`
	OTP         *string              `json:"otp,omitempty"`
	RecipientID *string              `json:"recipientId,omitempty"`
	ExpiresAt   *time.Time           `json:"expiresAt,omitempty"`
}

type MessageListResponse struct {
	Messages []domain.Message `json:"messages"`
}

type MessageResponse struct {
	Message domain.Message `json:"message"`
}

func RegisterMessages(e *echo.Echo, auth Authenticator, relay *service.RelayService) {
	h := &MessageHandler{relay: relay}
	g := e.Group("/api/v1/messages", RequireAuth(auth))
	g.GET("", h.list)
	g.POST("", h.create)
	g.PUT("/:id", h.update)
}

// list godoc
// @Summary List the message log
// @Description Newest first. active=true drops expired messages. Cashiers only see messages they sent or received.
// @Tags Messages
// @Security BearerAuth
// @Produce json
// @Param active query bool false "Only unexpired messages"
// @Success 200 {object} MessageListResponse
// @Router /api/v1/messages [get]
func (h *MessageHandler) list(c echo.Context) error {
	activeOnly := false
	if raw := strings.TrimSpace(c.QueryParam("active")); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, util.Error("active must be a boolean"))
		}
		activeOnly = v
	}
	user, _ := CurrentUser(c)
	msgs, err := h.relay.Snapshot(c.Request().Context(), domain.PrincipalFor(user), activeOnly)
	if err != nil {
		return writeError(c, err)
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	return c.JSON(http.StatusOK, MessageListResponse{Messages: msgs})
}

// create godoc
// @Summary Append a message
// @Description Admins may post any message. Cashiers may only post their own pending OTP_REQUEST.
// @Tags Messages
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body MessageCreateRequest true "Message"
// @Success 201 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /api/v1/messages [post]
func (h *MessageHandler) create(c echo.Context) error {
	var req MessageCreateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}
	if !req.Type.Valid() {
		return c.JSON(http.StatusBadRequest, util.Error("type must be OTP_REQUEST or OTP_RESPONSE"))
	}
	if req.Status != "" && !req.Status.Valid() {
		return c.JSON(http.StatusBadRequest, util.Error("unknown status"))
	}
	msg := domain.Message{
		Type:        req.Type,
		SenderID:    strings.TrimSpace(req.SenderID),
		SenderName:  req.SenderName,
		RecipientID: req.RecipientID,
		OTP:         req.OTP,
		Status:      req.Status,
		ExpiresAt:   req.ExpiresAt,
	}
	if req.Timestamp != nil {
		msg.Timestamp = *req.Timestamp
	}
	user, _ := CurrentUser(c)
	created, err := h.relay.Create(c.Request().Context(), domain.PrincipalFor(user), msg)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, MessageResponse{Message: *created})
}

// update godoc
// @Summary Patch a message
// @Description Admin only.
// @Tags Messages
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Message id"
// @Param payload body MessageUpdateRequest true "Fields to change"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/messages/{id} [put]
func (h *MessageHandler) update(c echo.Context) error {
	var req MessageUpdateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}
	if req.Status != "" && !req.Status.Valid() {
		return c.JSON(http.StatusBadRequest, util.Error("unknown status"))
	}
	user, _ := CurrentUser(c)
	updated, err := h.relay.Update(c.Request().Context(), domain.PrincipalFor(user), c.Param("id"), domain.MessagePatch{
		Status:      req.Status,
		OTP:         req.OTP,
		RecipientID: req.RecipientID,
		ExpiresAt:   req.ExpiresAt,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: *updated})
}
