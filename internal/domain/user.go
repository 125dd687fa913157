package domain

import (
	"time"

	"github.com/google/uuid"
)

type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleCashier UserRole = "cashier"
)

type User struct {
	ID               uuid.UUID `db:"id" json:"id"`
	Email            string    `db:"email" json:"email"`
	Name             *string   `db:"name" json:"name,omitempty"`
	Role             UserRole  `db:"role" json:"role"`
	CashierID        *string   `db:"cashier_id" json:"cashierId,omitempty"`
	IsDefaultAdmin   bool      `db:"is_default_admin" json:"isDefaultAdmin"`
	IsDefaultCashier bool      `db:"is_default_cashier" json:"isDefaultCashier"`
	PasswordHash     []byte    `db:"password_hash" json:"-"`
	PasswordSalt     []byte    `db:"password_salt" json:"-"`
	CreatedAt        time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time `db:"updated_at" json:"updatedAt"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

func (u *User) IsCashier() bool {
	return u != nil && u.Role == RoleCashier
}

// RelayID is the identifier a user sends and receives relay messages under.
// Cashiers use their cashier id; admins use their user id.
func (u *User) RelayID() string {
	if u.CashierID != nil && *u.CashierID != "" {
		return *u.CashierID
	}
	return u.ID.String()
}

// DisplayName falls back to the email when no name is set.
func (u *User) DisplayName() string {
	if u.Name != nil && *u.Name != "" {
		return *u.Name
	}
	return u.Email
}
