package domain

import "github.com/google/uuid"

// Principal is the authenticated actor behind a request.
type Principal struct {
	UserID           uuid.UUID `json:"id"`
	Email            string    `json:"email"`
	Name             string    `json:"name"`
	Role             UserRole  `json:"role"`
	CashierID        string    `json:"cashierId,omitempty"`
	IsDefaultAdmin   bool      `json:"isDefaultAdmin"`
	IsDefaultCashier bool      `json:"isDefaultCashier"`
}

func PrincipalFor(u *User) Principal {
	p := Principal{
		UserID:           u.ID,
		Email:            u.Email,
		Name:             u.DisplayName(),
		Role:             u.Role,
		IsDefaultAdmin:   u.IsDefaultAdmin,
		IsDefaultCashier: u.IsDefaultCashier,
	}
	if u.CashierID != nil {
		p.CashierID = *u.CashierID
	}
	return p
}

// RelayID matches User.RelayID.
func (p Principal) RelayID() string {
	if p.CashierID != "" {
		return p.CashierID
	}
	return p.UserID.String()
}
