package model

import "time"

// AdminSession is the server-side record of one authenticated login. Rows are
// soft-deactivated on logout or termination and kept for audit.
type AdminSession struct {
	ID         int64     `json:"id" db:"id"`
	AdminID    int64     `json:"admin_id" db:"admin_id"`
	SessionKey string    `json:"-" db:"session_key"`
	IPAddress  string    `json:"ip_address" db:"ip_address"`
	UserAgent  string    `json:"user_agent" db:"user_agent"`
	// RefreshJTI ties the session row to the refresh token minted with it so
	// deactivating the session can also blacklist the token.
	RefreshJTI   string    `json:"-" db:"refresh_jti"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	LastActivity time.Time `json:"last_activity" db:"last_activity"`
}
