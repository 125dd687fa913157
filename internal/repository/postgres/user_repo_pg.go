package postgres

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/rootseed/pos-otp-relay/internal/domain"
	"github.com/rootseed/pos-otp-relay/internal/repository/ports"
)

const userColumns = `id, email, name, role, cashier_id, is_default_admin, is_default_cashier, password_hash, password_salt, created_at, updated_at`

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepo(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	query := `
        INSERT INTO user_account (email, name, role, cashier_id, is_default_admin, is_default_cashier, password_hash, password_salt)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING ` + userColumns

	row := r.db.QueryRowxContext(ctx, query,
		strings.ToLower(strings.TrimSpace(user.Email)),
		user.Name,
		user.Role,
		user.CashierID,
		user.IsDefaultAdmin,
		user.IsDefaultCashier,
		user.PasswordHash,
		user.PasswordSalt,
	)
	var created domain.User
	if err := row.StructScan(&created); err != nil {
		if isUniqueViolation(err) {
			return nil, ports.ErrConflict
		}
		return nil, err
	}
	return &created, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM user_account WHERE email = $1`
	var user domain.User
	if err := r.db.GetContext(ctx, &user, query, strings.ToLower(strings.TrimSpace(email))); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM user_account WHERE id = $1`
	var user domain.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByCashierID(ctx context.Context, cashierID string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM user_account WHERE cashier_id = $1`
	var user domain.User
	if err := r.db.GetContext(ctx, &user, query, cashierID); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash, passwordSalt []byte) error {
	const query = `
        UPDATE user_account
        SET password_hash = $2,
            password_salt = $3,
            updated_at = NOW()
        WHERE id = $1
    `
	_, err := r.db.ExecContext(ctx, query, id, passwordHash, passwordSalt)
	return err
}

func (r *UserRepository) ClearDefaultFlags(ctx context.Context, id uuid.UUID) error {
	const query = `
        UPDATE user_account
        SET is_default_admin = FALSE,
            is_default_cashier = FALSE,
            updated_at = NOW()
        WHERE id = $1
    `
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

var _ ports.UserRepository = (*UserRepository)(nil)
