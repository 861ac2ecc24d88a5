package model

import "time"

// Admin represents an administrative account for the Catwalk dashboard.
// Passwords are stored as bcrypt hashes and never leave the store.
type Admin struct {
	ID             int64      `json:"id" db:"id"`
	Username       string     `json:"username" db:"username"`
	Email          string     `json:"email" db:"email"`
	PasswordHash   string     `json:"-" db:"password_hash"` // bcrypt hash, never expose
	FirstName      string     `json:"first_name" db:"first_name"`
	LastName       string     `json:"last_name" db:"last_name"`
	IsActive       bool       `json:"is_active" db:"is_active"`
	IsSuperAdmin   bool       `json:"is_super_admin" db:"is_super_admin"`
	ProfilePicture string     `json:"profile_picture,omitempty" db:"profile_picture"`
	LastLoginIP    string     `json:"last_login_ip,omitempty" db:"last_login_ip"`
	LastLoginAt    *time.Time `json:"last_login,omitempty" db:"last_login_at"`
	// TokensValidAfter rejects any token issued before this instant. Stamped
	// on password change so credential rotation revokes outstanding tokens.
	TokensValidAfter *time.Time `json:"-" db:"tokens_valid_after"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
}
