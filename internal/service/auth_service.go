package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rootseed/pos-otp-relay/internal/domain"
	"github.com/rootseed/pos-otp-relay/internal/repository/ports"
	"github.com/rootseed/pos-otp-relay/internal/util"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrPasswordTooWeak    = errors.New("password does not meet complexity requirements")
	ErrResetOTPInvalid    = errors.New("invalid reset code")
	ErrResetOTPExpired    = errors.New("reset code expired")
	ErrNotDefaultAdmin    = errors.New("only the default admin may use this action")
	ErrNotCashier         = errors.New("only cashiers may use this action")
	ErrMailDelivery       = errors.New("could not deliver verification email")
)

// CodeMailer sends emailed verification codes.
type CodeMailer interface {
	SendPasswordReset(ctx context.Context, email, otp string, ttl time.Duration) error
	SendAdminOTP(ctx context.Context, email, otp string, ttl time.Duration) error
}

// CodeConsumer spends relay codes. RelayService implements it.
type CodeConsumer interface {
	Consume(ctx context.Context, cashierID, code string) (*Claim, error)
	Release(ctx context.Context, claim *Claim) error
}

type AuthResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *domain.User `json:"user"`
}

type SeedAccount struct {
	Email     string
	Password  string
	Name      string
	CashierID string
}

type AuthConfig struct {
	ResetTTL       time.Duration
	ResetOTPLength int
	AdminOTPTTL    time.Duration
}

type AuthService struct {
	users       ports.UserRepository
	sessions    ports.SessionRepository
	resets      ports.PasswordResetRepository
	relay       CodeConsumer
	mailer      CodeMailer
	jwt         *util.JWTManager
	logger      *zap.Logger
	now         func() time.Time
	otpLength   int
	resetTTL    time.Duration
	adminOTPTTL time.Duration
}

func NewAuthService(users ports.UserRepository, sessions ports.SessionRepository, resets ports.PasswordResetRepository, relay CodeConsumer, mailer CodeMailer, jwt *util.JWTManager, logger *zap.Logger, cfg AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResetTTL <= 0 {
		cfg.ResetTTL = 10 * time.Minute
	}
	if cfg.AdminOTPTTL <= 0 {
		cfg.AdminOTPTTL = 5 * time.Minute
	}
	if cfg.ResetOTPLength <= 0 {
		cfg.ResetOTPLength = 6
	}
	return &AuthService{
		users:       users,
		sessions:    sessions,
		resets:      resets,
		relay:       relay,
		mailer:      mailer,
		jwt:         jwt,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
		otpLength:   cfg.ResetOTPLength,
		resetTTL:    cfg.ResetTTL,
		adminOTPTTL: cfg.AdminOTPTTL,
	}
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !util.VerifyPassword(password, user.PasswordSalt, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return s.issueSession(ctx, user)
}

// Authenticate resolves a bearer token to its user. Revoked sessions fail
// even while the token itself is unexpired.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.jwt.Parse(token)
	if err != nil {
		return nil, ErrUnauthorized
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, ErrUnauthorized
	}
	if _, err := s.sessions.FindActiveSession(ctx, token); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	return user, nil
}

func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.sessions.DeactivateSession(ctx, token)
}

// ChangePasswordWithOTP sets a cashier's password using the code an admin
// relayed. An emailed reset code is accepted as a fallback. The relay code is
// released again if the password cannot be stored.
func (s *AuthService) ChangePasswordWithOTP(ctx context.Context, user *domain.User, code, newPassword string) (*AuthResult, error) {
	if !user.IsCashier() || user.CashierID == nil || *user.CashierID == "" {
		return nil, ErrNotCashier
	}
	if err := util.ValidatePassword(newPassword); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPasswordTooWeak, err)
	}
	hash, salt, err := util.DerivePassword(newPassword)
	if err != nil {
		return nil, err
	}

	claim, relayErr := s.relay.Consume(ctx, *user.CashierID, code)
	var reset *domain.PasswordReset
	if relayErr != nil {
		if !errors.Is(relayErr, ErrCodeInvalid) {
			return nil, relayErr
		}
		reset, err = s.verifyEmailedCode(ctx, user.ID, domain.PurposePasswordReset, code)
		if err != nil {
			return nil, relayErr
		}
	}

	if err := s.users.UpdatePassword(ctx, user.ID, hash, salt); err != nil {
		if claim != nil {
			if relErr := s.relay.Release(ctx, claim); relErr != nil {
				s.logger.Error("release relay code after failed password update",
					zap.String("response_id", claim.Response.ID), zap.Error(relErr))
			}
		}
		return nil, err
	}
	if reset != nil {
		if err := s.resets.MarkConsumed(ctx, reset.ID); err != nil {
			s.logger.Warn("mark reset consumed", zap.Int64("reset_id", reset.ID), zap.Error(err))
		}
	}
	return s.afterPasswordChange(ctx, user.ID)
}

// SendAdminOTP emails the default admin a single-use code for their first
// password change.
func (s *AuthService) SendAdminOTP(ctx context.Context, admin *domain.User) error {
	if !admin.IsAdmin() || !admin.IsDefaultAdmin {
		return ErrNotDefaultAdmin
	}
	code, err := s.storeEmailedCode(ctx, admin.ID, domain.PurposeAdminSetup, s.adminOTPTTL)
	if err != nil {
		return err
	}
	if err := s.mailer.SendAdminOTP(ctx, admin.Email, code.otp, s.adminOTPTTL); err != nil {
		s.logger.Error("send admin otp", zap.String("user_id", admin.ID.String()), zap.Error(err))
		_ = s.resets.MarkConsumed(ctx, code.reset.ID)
		return ErrMailDelivery
	}
	return nil
}

func (s *AuthService) ChangeAdminPassword(ctx context.Context, admin *domain.User, code, newPassword string) (*AuthResult, error) {
	if !admin.IsAdmin() || !admin.IsDefaultAdmin {
		return nil, ErrNotDefaultAdmin
	}
	if err := util.ValidatePassword(newPassword); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPasswordTooWeak, err)
	}
	reset, err := s.verifyEmailedCode(ctx, admin.ID, domain.PurposeAdminSetup, code)
	if err != nil {
		return nil, err
	}
	if err := s.setPassword(ctx, admin.ID, newPassword); err != nil {
		return nil, err
	}
	if err := s.resets.MarkConsumed(ctx, reset.ID); err != nil {
		s.logger.Warn("mark reset consumed", zap.Int64("reset_id", reset.ID), zap.Error(err))
	}
	return s.afterPasswordChange(ctx, admin.ID)
}

// RequestPasswordReset emails a reset code when the address belongs to a
// user. The outcome is the same whether or not it does.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return err
	}
	code, err := s.storeEmailedCode(ctx, user.ID, domain.PurposePasswordReset, s.resetTTL)
	if err != nil {
		return err
	}
	if err := s.mailer.SendPasswordReset(ctx, user.Email, code.otp, s.resetTTL); err != nil {
		s.logger.Error("send password reset", zap.String("user_id", user.ID.String()), zap.Error(err))
		if markErr := s.resets.MarkConsumed(ctx, code.reset.ID); markErr != nil {
			s.logger.Warn("mark reset consumed", zap.Int64("reset_id", code.reset.ID), zap.Error(markErr))
		}
	}
	return nil
}

func (s *AuthService) ConfirmPasswordReset(ctx context.Context, email, code, newPassword string) error {
	if err := util.ValidatePassword(newPassword); err != nil {
		return fmt.Errorf("%w: %v", ErrPasswordTooWeak, err)
	}
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrResetOTPInvalid
		}
		return err
	}
	reset, err := s.verifyEmailedCode(ctx, user.ID, domain.PurposePasswordReset, code)
	if err != nil {
		return err
	}
	if err := s.setPassword(ctx, user.ID, newPassword); err != nil {
		return err
	}
	if err := s.resets.MarkConsumed(ctx, reset.ID); err != nil {
		return err
	}
	if err := s.users.ClearDefaultFlags(ctx, user.ID); err != nil {
		return err
	}
	return s.sessions.DeactivateUserSessions(ctx, user.ID)
}

// SeedDefaults creates the default admin and cashier when they do not exist.
// Both are flagged to change their password on first use.
func (s *AuthService) SeedDefaults(ctx context.Context, admin, cashier SeedAccount) error {
	accounts := []struct {
		account SeedAccount
		user    domain.User
	}{
		{admin, domain.User{Role: domain.RoleAdmin, IsDefaultAdmin: true}},
		{cashier, domain.User{Role: domain.RoleCashier, IsDefaultCashier: true}},
	}
	for _, a := range accounts {
		email := normalizeEmail(a.account.Email)
		if email == "" || a.account.Password == "" {
			continue
		}
		if _, err := s.users.FindByEmail(ctx, email); err == nil {
			continue
		} else if !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		hash, salt, err := util.DerivePassword(a.account.Password)
		if err != nil {
			return err
		}
		u := a.user
		u.Email = email
		u.PasswordHash = hash
		u.PasswordSalt = salt
		if name := strings.TrimSpace(a.account.Name); name != "" {
			u.Name = &name
		}
		if u.Role == domain.RoleCashier {
			cashierID := strings.TrimSpace(a.account.CashierID)
			if cashierID == "" {
				cashierID = "CS001"
			}
			u.CashierID = &cashierID
		}
		created, err := s.users.Create(ctx, &u)
		if err != nil && !errors.Is(err, ports.ErrConflict) {
			return err
		}
		if created != nil {
			s.logger.Info("seeded default account", zap.String("email", created.Email), zap.String("role", string(created.Role)))
		}
	}
	return nil
}

type emailedCode struct {
	otp   string
	reset *domain.PasswordReset
}

// storeEmailedCode replaces any outstanding code for the user with a new one.
func (s *AuthService) storeEmailedCode(ctx context.Context, userID uuid.UUID, purpose domain.CodePurpose, ttl time.Duration) (*emailedCode, error) {
	otp, err := util.GenerateNumericOTP(s.otpLength)
	if err != nil {
		return nil, err
	}
	hash, salt, err := util.HashCode(otp)
	if err != nil {
		return nil, err
	}
	if err := s.resets.ConsumeByUser(ctx, userID, purpose); err != nil {
		return nil, err
	}
	reset, err := s.resets.Create(ctx, userID, purpose, hash, salt, s.now().Add(ttl))
	if err != nil {
		return nil, err
	}
	return &emailedCode{otp: otp, reset: reset}, nil
}

func (s *AuthService) verifyEmailedCode(ctx context.Context, userID uuid.UUID, purpose domain.CodePurpose, code string) (*domain.PasswordReset, error) {
	code = strings.TrimSpace(code)
	reset, err := s.resets.FindActiveByUser(ctx, userID, purpose)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrResetOTPInvalid
		}
		return nil, err
	}
	if reset.IsExpired(s.now()) {
		_ = s.resets.MarkConsumed(ctx, reset.ID)
		return nil, ErrResetOTPExpired
	}
	if code == "" || !util.VerifyPassword(code, reset.OTPSalt, reset.OTPHash) {
		return nil, ErrResetOTPInvalid
	}
	return reset, nil
}

func (s *AuthService) setPassword(ctx context.Context, userID uuid.UUID, password string) error {
	hash, salt, err := util.DerivePassword(password)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, userID, hash, salt)
}

// afterPasswordChange drops the force-change flags, revokes every session and
// hands back a fresh one carrying the updated flags.
func (s *AuthService) afterPasswordChange(ctx context.Context, userID uuid.UUID) (*AuthResult, error) {
	if err := s.users.ClearDefaultFlags(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.sessions.DeactivateUserSessions(ctx, userID); err != nil {
		return nil, err
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.issueSession(ctx, user)
}

func (s *AuthService) issueSession(ctx context.Context, user *domain.User) (*AuthResult, error) {
	token, expiresAt, err := s.jwt.Generate(user)
	if err != nil {
		return nil, err
	}
	if _, err := s.sessions.CreateSession(ctx, user.ID, token, expiresAt); err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
