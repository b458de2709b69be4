package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// Role is the single role assigned to a user at registration.
type Role string

const (
	RoleBuyer    Role = "buyer"
	RoleVendor   Role = "vendor"
	RoleApprover Role = "approver"
	RoleAdmin    Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleBuyer, RoleVendor, RoleApprover, RoleAdmin:
		return true
	default:
		return false
	}
}

// ApprovedOnRegistration reports whether accounts with this role may
// authenticate without an administrator approving them first.
func (r Role) ApprovedOnRegistration() bool {
	return r == RoleBuyer || r == RoleAdmin
}

// User is a registered principal.
type User struct {
	bun.BaseModel `bun:"table:users"`

	ID           int64     `bun:",pk,autoincrement"`
	Name         string    `bun:"name,notnull"`
	Email        string    `bun:"email,notnull,unique"`
	PasswordHash string    `bun:"password_hash,notnull"`
	Role         Role      `bun:"role,notnull"`
	Company      string    `bun:"company,notnull"`
	Approved     bool      `bun:"approved,notnull"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}
