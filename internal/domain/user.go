package domain

import (
	"time"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether the role is one of the known authorization tiers.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User is one credential record. The username is the case-sensitive primary
// key. PasswordHash holds the encoded argon2id string and is never exposed
// in JSON.
type User struct {
	Username           string    `json:"username"`
	PasswordHash       string    `json:"-"`
	Role               Role      `json:"role"`
	MustChangePassword bool      `json:"must_change_password"`
	CreatedAt          time.Time `json:"created_at"`
}

// Identity is the resolved owner of a valid session, as returned by
// AuthService.Validate and forwarded to backends via X-Auth-* headers.
type Identity struct {
	Username           string
	Role               Role
	MustChangePassword bool
}

// IsAdmin reports whether the identity holds the admin tier.
func (i *Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}
