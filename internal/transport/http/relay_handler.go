package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/rootseed/pos-otp-relay/internal/domain"
	"github.com/rootseed/pos-otp-relay/internal/service"
	"github.com/rootseed/pos-otp-relay/internal/util"
)

type RelayHandler struct {
	relay    *service.RelayService
	archive  *service.ArchiveService
	activity *service.ActivityService
}

func RegisterRelay(e *echo.Echo, auth Authenticator, relay *service.RelayService, archive *service.ArchiveService, activity *service.ActivityService) {
	h := &RelayHandler{relay: relay, archive: archive, activity: activity}

	cashier := e.Group("/api/v1/cashier", RequireAuth(auth), RequireRole(domain.RoleCashier))
	cashier.POST("/otp-requests", h.requestOTP)
	cashier.POST("/messages/:id/delivered", h.markDelivered)

	admin := e.Group("/api/v1/admin", RequireAuth(auth), RequireRole(domain.RoleAdmin))
	admin.GET("/otp-requests", h.pendingRequests)
	admin.POST("/otp-requests/:id/generate", h.generate)
	admin.POST("/otp-requests/:id/repair", h.repair)
	admin.POST("/messages/archive", h.exportArchive)
	admin.GET("/relay/activity", h.relayActivity)
}

// requestOTP godoc
// @Summary Ask an administrator for a password reset code
// @Description Returns the open request when one is already pending.
// @Tags Cashier
// @Security BearerAuth
// @Produce json
// @Success 201 {object} MessageResponse
// @Failure 429 {object} ErrorResponse
// @Router /api/v1/cashier/otp-requests [post]
func (h *RelayHandler) requestOTP(c echo.Context) error {
	user, _ := CurrentUser(c)
	msg, err := h.relay.RequestOTP(c.Request().Context(), domain.PrincipalFor(user))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, MessageResponse{Message: *msg})
}

func (h *RelayHandler) markDelivered(c echo.Context) error {
	user, _ := CurrentUser(c)
	msg, err := h.relay.MarkDelivered(c.Request().Context(), domain.PrincipalFor(user), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: *msg})
}

func (h *RelayHandler) pendingRequests(c echo.Context) error {
	msgs, err := h.relay.PendingRequests(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	return c.JSON(http.StatusOK, MessageListResponse{Messages: msgs})
}

// generate godoc
// @Summary Generate a code for a pending request
// @Tags Admin
// @Security BearerAuth
// @Produce json
// @Param id path string true "Request id"
// @Success 201 {object} service.Generation
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 410 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /api/v1/admin/otp-requests/{id}/generate [post]
func (h *RelayHandler) generate(c echo.Context) error {
	user, _ := CurrentUser(c)
	gen, err := h.relay.Generate(c.Request().Context(), domain.PrincipalFor(user), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, gen)
}

func (h *RelayHandler) repair(c echo.Context) error {
	user, _ := CurrentUser(c)
	msg, err := h.relay.Repair(c.Request().Context(), domain.PrincipalFor(user), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: *msg})
}

func (h *RelayHandler) exportArchive(c echo.Context) error {
	if h.archive == nil {
		return writeError(c, service.ErrArchiveUnavailable)
	}
	res, err := h.archive.Export(c.Request().Context(), c.QueryParam("format"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, util.Envelope{"archive": res})
}

func (h *RelayHandler) relayActivity(c echo.Context) error {
	if h.activity == nil {
		return writeError(c, service.ErrActivityUnavailable)
	}
	window := 24 * time.Hour
	if raw := strings.TrimSpace(c.QueryParam("window")); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return c.JSON(http.StatusBadRequest, util.Error("window must be a positive duration such as 24h"))
		}
		window = d
	}
	summary, err := h.activity.Summary(c.Request().Context(), window)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, util.Envelope{"activity": summary})
}
