package user

import (
	"fmt"
	"strings"
	"time"
)

type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleAdmin    Role = "ADMIN"
)

// ParseRole accepts a role name in any case.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case RoleCustomer:
		return RoleCustomer, nil
	case RoleAdmin:
		return RoleAdmin, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
}

type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Address   string    `json:"address"`
	Phone     string    `json:"phone"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u User) validate() error {
	if strings.TrimSpace(u.Username) == "" {
		return fmt.Errorf("%w: username is required", ErrInvalidUser)
	}
	if !strings.Contains(u.Email, "@") {
		return fmt.Errorf("%w: email is invalid", ErrInvalidUser)
	}
	return nil
}
