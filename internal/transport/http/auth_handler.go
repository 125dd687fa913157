package http

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/rootseed/pos-otp-relay/internal/domain"
	"github.com/rootseed/pos-otp-relay/internal/service"
	"github.com/rootseed/pos-otp-relay/internal/util"
)

type AuthHandler struct {
	auth *service.AuthService
}

func RegisterAuth(e *echo.Echo, auth *service.AuthService) {
	h := &AuthHandler{auth: auth}

	public := e.Group("/api/v1/auth")
	public.POST("/login", h.login)
	public.POST("/forgot-password", h.forgotPassword)
	public.POST("/reset-password", h.resetPassword)

	session := e.Group("/api/v1/auth", RequireAuth(auth))
	session.POST("/logout", h.logout)
	session.GET("/me", h.me)

	cashier := e.Group("/api/v1/cashier", RequireAuth(auth), RequireRole(domain.RoleCashier))
	cashier.POST("/change-password", h.cashierChangePassword)

	admin := e.Group("/api/v1/admin", RequireAuth(auth), RequireRole(domain.RoleAdmin))
	admin.POST("/send-otp", h.sendAdminOTP)
	admin.POST("/change-password", h.adminChangePassword)
}

// login godoc
// @Summary Sign in with email and password
// @Tags Auth
// @Accept json
// @Produce json
// @Param payload body LoginRequest true "Credentials"
// @Success 200 {object} AuthTokenResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, util.Error("email and password are required"))
	}
	res, err := h.auth.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, buildTokenResponse(res))
}

func (h *AuthHandler) logout(c echo.Context) error {
	if err := h.auth.Logout(c.Request().Context(), currentToken(c)); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Success: true})
}

func (h *AuthHandler) me(c echo.Context) error {
	user, _ := CurrentUser(c)
	return c.JSON(http.StatusOK, AuthUserResponse{User: buildAuthUser(user)})
}

// forgotPassword godoc
// @Summary Email a password reset code
// @Description Always answers the same way so callers cannot probe for accounts.
// @Tags Auth
// @Accept json
// @Produce json
// @Param payload body PasswordResetRequest true "Email"
// @Success 200 {object} SuccessResponse
// @Router /api/v1/auth/forgot-password [post]
func (h *AuthHandler) forgotPassword(c echo.Context) error {
	var req PasswordResetRequest
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		return c.JSON(http.StatusBadRequest, util.Error("email is required"))
	}
	if err := h.auth.RequestPasswordReset(c.Request().Context(), req.Email); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{
		Success: true,
		Message: "if the account exists, a reset code has been sent",
	})
}

func (h *AuthHandler) resetPassword(c echo.Context) error {
	var req PasswordResetConfirmRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}
	if strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.OTP) == "" || req.NewPassword == "" {
		return c.JSON(http.StatusBadRequest, util.Error("email, otp and newPassword are required"))
	}
	if err := h.auth.ConfirmPasswordReset(c.Request().Context(), req.Email, req.OTP, req.NewPassword); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Success: true})
}

// cashierChangePassword godoc
// @Summary Change a cashier password with a relayed code
// @Tags Cashier
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body OTPPasswordChangeRequest true "Code and new password"
// @Success 200 {object} AuthTokenResponse
// @Failure 400 {object} ErrorResponse
// @Failure 410 {object} ErrorResponse
// @Router /api/v1/cashier/change-password [post]
func (h *AuthHandler) cashierChangePassword(c echo.Context) error {
	user, _ := CurrentUser(c)
	req, ok := bindOTPChange(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, util.Error("otp and newPassword are required"))
	}
	res, err := h.auth.ChangePasswordWithOTP(c.Request().Context(), user, req.OTP, req.NewPassword)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, buildTokenResponse(res))
}

func (h *AuthHandler) sendAdminOTP(c echo.Context) error {
	user, _ := CurrentUser(c)
	if err := h.auth.SendAdminOTP(c.Request().Context(), user); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Success: true, Message: "verification code sent"})
}

func (h *AuthHandler) adminChangePassword(c echo.Context) error {
	user, _ := CurrentUser(c)
	req, ok := bindOTPChange(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, util.Error("otp and newPassword are required"))
	}
	res, err := h.auth.ChangeAdminPassword(c.Request().Context(), user, req.OTP, req.NewPassword)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, buildTokenResponse(res))
}

func bindOTPChange(c echo.Context) (OTPPasswordChangeRequest, bool) {
	var req OTPPasswordChangeRequest
	if err := c.Bind(&req); err != nil {
		return req, false
	}
	req.OTP = strings.TrimSpace(req.OTP)
	return req, req.OTP != "" && req.NewPassword != ""
}
