package model

import (
	"time"

	"github.com/google/uuid"
)

// User status constants
const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
	UserStatusLocked   = "locked"
)

// User represents a verified identity handed to the authorization core.
// Permissions holds per-user grants on top of the role defaults; the
// effective set is always the union of the two (see service/rbac).
type User struct {
	Base
	Email            string       `json:"email" db:"email"`
	Name             string       `json:"name" db:"name"`
	Password         string       `json:"password,omitempty" db:"-"`
	PasswordHash     string       `json:"-" db:"password_hash"`
	Role             Role         `json:"role" db:"role"`
	Permissions      []Permission `json:"permissions" db:"-"`
	Status           string       `json:"status" db:"status"`
	Timezone         string       `json:"timezone" db:"timezone"`
	LastLoginAt      *time.Time   `json:"last_login_at" db:"last_login_at"`
	LoginAttempts    int          `json:"login_attempts" db:"login_attempts"`
	LastLoginAttempt time.Time    `json:"last_login_attempt" db:"last_login_attempt"`
}

// NewUser constructs a user, rejecting unknown role or permission values up
// front so decisions never see them.
func NewUser(id uuid.UUID, email, name string, role string, permissions []string) (*User, error) {
	r, err := ParseRole(role)
	if err != nil {
		return nil, err
	}
	perms := make([]Permission, 0, len(permissions))
	for _, raw := range permissions {
		p, err := ParsePermission(raw)
		if err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	now := time.Now()
	return &User{
		Base:        Base{ID: id, CreatedAt: now, UpdatedAt: now},
		Email:       email,
		Name:        name,
		Role:        r,
		Permissions: perms,
		Status:      UserStatusActive,
	}, nil
}

// UserFilter represents user search parameters
type UserFilter struct {
	BaseFilter
	Role Role `json:"role" form:"role"`
}

// CreateUserRequest represents user creation parameters
type CreateUserRequest struct {
	Email    string   `json:"email" binding:"required,email"`
	Name     string   `json:"name" binding:"required"`
	Password string   `json:"password" binding:"required,min=8"`
	Role     string   `json:"role" binding:"required,oneof=patient doctor admin"`
	Perms    []string `json:"permissions"`
}

// UpdateUserRequest represents user update parameters
type UpdateUserRequest struct {
	Name   *string `json:"name"`
	Email  *string `json:"email" binding:"omitempty,email"`
	Status *string `json:"status" binding:"omitempty,oneof=active inactive locked"`
}
