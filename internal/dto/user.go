package dto

import (
	"time"

	"github.com/Additional-Code/procura/internal/entity"
)

// UserResponse never carries the credential hash.
type UserResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Company   string    `json:"company"`
	Approved  bool      `json:"approved"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionResponse is returned by a successful login.
type SessionResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

// FromUser maps a user entity.
func FromUser(u *entity.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      string(u.Role),
		Company:   u.Company,
		Approved:  u.Approved,
		CreatedAt: u.CreatedAt,
	}
}
