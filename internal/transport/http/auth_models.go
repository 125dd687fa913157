package http

import (
	"time"

	"github.com/rootseed/pos-otp-relay/internal/domain"
	"github.com/rootseed/pos-otp-relay/internal/service"
)

// ErrorResponse represents a generic error payload.
type ErrorResponse struct {
	Error     string `json:"error" example:"otp already generated for this request"`
	Reason    string `json:"reason,omitempty" example:"already_generated"`
	RequestID string `json:"requestId,omitempty"`
}

// AuthUser is the sanitized user returned by auth endpoints.
type AuthUser struct {
	ID               string    `json:"id" example:"9fd13fd2-63c5-4f29-a210-4a1a8e285f74"`
	Email            string    `json:"email" example:"cashier@pos.local"`
	Name             *string   `json:"name,omitempty" example:"Front Counter"`
	Role             string    `json:"role" example:"cashier"`
	CashierID        *string   `json:"cashierId,omitempty" example:"CS001"`
	IsDefaultAdmin   bool      `json:"isDefaultAdmin"`
	IsDefaultCashier bool      `json:"isDefaultCashier"`
	CreatedAt        time.Time `json:"createdAt"`
}

// AuthTokenResponse is returned by endpoints that issue a session.
type AuthTokenResponse struct {
	Token     string   `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	ExpiresAt string   `json:"expiresAt" example:"2026-01-02T09:30:00Z"`
	User      AuthUser `json:"user"`
}

type AuthUserResponse struct {
	User AuthUser `json:"user"`
}

type SuccessResponse struct {
	Success bool   `json:"success" example:"true"`
	Message string `json:"message,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email" example:"admin@pos.local"`
	Password string `json:"password" example:"StrongPass!23"`
}

// OTPPasswordChangeRequest carries a relayed or emailed code and the new password.
type OTPPasswordChangeRequest struct {
	OTP         string `json:"otp" example:"482913"`
	NewPassword string `json:"newPassword" example:"NewPass!45"`
}

type PasswordResetRequest struct {
	Email string `json:"email" example:"cashier@pos.local"`
}

type PasswordResetConfirmRequest struct {
	Email       string `json:"email" example:"cashier@pos.local"`
	OTP         string `json:"otp" example:"123456"`
	NewPassword string `json:"newPassword" example:"NewPass!45"`
}

func buildAuthUser(user *domain.User) AuthUser {
	return AuthUser{
		ID:               user.ID.String(),
		Email:            user.Email,
		Name:             user.Name,
		Role:             string(user.Role),
		CashierID:        user.CashierID,
		IsDefaultAdmin:   user.IsDefaultAdmin,
		IsDefaultCashier: user.IsDefaultCashier,
		CreatedAt:        user.CreatedAt,
	}
}

func buildTokenResponse(res *service.AuthResult) AuthTokenResponse {
	return AuthTokenResponse{
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt.UTC().Format(time.RFC3339),
		User:      buildAuthUser(res.User),
	}
}
