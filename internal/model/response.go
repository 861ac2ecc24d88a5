package model

import "time"

// Envelope is the standard response wrapper: every endpoint returns a body
// with a "success" boolean so clients never have to infer the outcome from
// the HTTP status alone.
type Envelope map[string]interface{}

// OK builds a success envelope with the given extra fields.
func OK(fields Envelope) Envelope {
	e := Envelope{"success": true}
	for k, v := range fields {
		e[k] = v
	}
	return e
}

// Fail builds a failure envelope with a single error message.
func Fail(msg string) Envelope {
	return Envelope{"success": false, "error": msg}
}

// FailFields builds a failure envelope carrying per-field validation errors.
func FailFields(errs map[string][]string) Envelope {
	return Envelope{"success": false, "errors": errs}
}

// AdminProfile is the public projection of an Admin, used in login and
// profile responses.
type AdminProfile struct {
	ID             int64   `json:"id"`
	Username       string  `json:"username"`
	Email          string  `json:"email"`
	FirstName      string  `json:"first_name"`
	LastName       string  `json:"last_name"`
	IsSuperAdmin   bool    `json:"is_super_admin"`
	ProfilePicture string  `json:"profile_picture,omitempty"`
	CreatedAt      string  `json:"created_at"`
	LastLogin      *string `json:"last_login,omitempty"`
}

// Profile converts an Admin to its public projection.
func Profile(a *Admin) AdminProfile {
	p := AdminProfile{
		ID:             a.ID,
		Username:       a.Username,
		Email:          a.Email,
		FirstName:      a.FirstName,
		LastName:       a.LastName,
		IsSuperAdmin:   a.IsSuperAdmin,
		ProfilePicture: a.ProfilePicture,
		CreatedAt:      a.CreatedAt.UTC().Format(time.RFC3339),
	}
	if a.LastLoginAt != nil {
		s := a.LastLoginAt.UTC().Format(time.RFC3339)
		p.LastLogin = &s
	}
	return p
}
