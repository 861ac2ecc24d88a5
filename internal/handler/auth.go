package handler

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/catwalkhq/catwalk/internal/config"
	"github.com/catwalkhq/catwalk/internal/model"
	"github.com/catwalkhq/catwalk/internal/server/middleware"
	"github.com/catwalkhq/catwalk/internal/service"
)

// AuthHandler is the authentication gateway: login, logout, profile, password
// change, session management, and token refresh.
type AuthHandler struct {
	store    *config.Store
	auth     *service.AuthService
	sessions *service.SessionService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(store *config.Store, auth *service.AuthService, sessions *service.SessionService) *AuthHandler {
	return &AuthHandler{store: store, auth: auth, sessions: sessions}
}

// ---------------------------------------------------------------------------
// Login / logout / refresh
// ---------------------------------------------------------------------------

// loginRequest is the expected payload for the Login endpoint.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login authenticates an admin, opens a session, and returns a token pair.
// Every attempt is recorded in the audit log regardless of outcome.
// POST /api/auth/login/
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	errs := map[string][]string{}
	if req.Username == "" {
		errs["username"] = append(errs["username"], "This field is required.")
	}
	if req.Password == "" {
		errs["password"] = append(errs["password"], "This field is required.")
	}
	if len(errs) > 0 {
		writeFieldErrors(w, errs)
		return
	}

	ip := clientIP(r)
	userAgent := r.UserAgent()

	admin, err := h.auth.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		h.sessions.RecordAttempt(r.Context(), req.Username, ip, userAgent, false)
		// Disabled accounts get the same message as bad credentials so the
		// login form cannot be used to probe account state.
		if errors.Is(err, service.ErrInvalidCredentials) || errors.Is(err, service.ErrAccountDisabled) {
			writeFieldErrors(w, map[string][]string{
				"non_field_errors": {"Invalid username or password"},
			})
			return
		}
		writeError(w, http.StatusInternalServerError, "Authentication error: "+err.Error())
		return
	}

	// The audit row is written as soon as the credentials check out, so a
	// validated login leaves a trail even if opening the session fails.
	h.sessions.RecordAttempt(r.Context(), req.Username, ip, userAgent, true)

	sessionKey := uuid.NewString()
	pair, err := h.auth.IssueTokenPair(r.Context(), admin, sessionKey)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to issue tokens: "+err.Error())
		return
	}
	if _, err := h.sessions.Open(r.Context(), admin.ID, ip, userAgent, sessionKey, pair.RefreshJTI); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to open session: "+err.Error())
		return
	}

	_ = h.store.UpdateAdminLastLogin(r.Context(), admin.ID, ip)

	writeOK(w, http.StatusOK, model.Envelope{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"user":          model.Profile(admin),
	})
}

// logoutRequest optionally carries the refresh token so it can be
// blacklisted even if it was never bound to the session.
type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Logout closes the current session and blacklists its refresh token.
// Logging out twice is not an error.
// POST /api/auth/logout/
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())

	var req logoutRequest
	_ = readJSON(r, &req) // body is optional

	jti, err := h.sessions.Close(r.Context(), principal.AdminID, principal.SessionKey)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to close session: "+err.Error())
		return
	}
	if err := h.auth.RevokeJTI(r.Context(), jti, principal.AdminID); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to revoke token: "+err.Error())
		return
	}
	if req.RefreshToken != "" {
		// Revoke swallows malformed tokens so a garbage body never fails logout.
		if err := h.auth.Revoke(r.Context(), req.RefreshToken); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to revoke token: "+err.Error())
			return
		}
	}

	writeOK(w, http.StatusOK, model.Envelope{"message": "Logged out successfully"})
}

// refreshRequest is the expected payload for the RefreshToken endpoint.
type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RefreshToken exchanges a valid refresh token for a fresh access token.
// The caller must still hold a valid access token; the refresh endpoint is
// not an anonymous surface.
// POST /api/auth/refresh-token/
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.RefreshToken == "" {
		writeFieldErrors(w, map[string][]string{
			"refresh_token": {"This field is required."},
		})
		return
	}

	access, err := h.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, service.ErrInvalidToken) {
			writeError(w, http.StatusBadRequest, "Invalid or expired refresh token")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to refresh token: "+err.Error())
		return
	}

	writeOK(w, http.StatusOK, model.Envelope{"access_token": access})
}

// ---------------------------------------------------------------------------
// Profile
// ---------------------------------------------------------------------------

// Profile returns the authenticated admin's own profile.
// GET /api/auth/profile/
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())

	admin, err := h.store.GetAdmin(r.Context(), principal.AdminID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load profile: "+err.Error())
		return
	}

	writeOK(w, http.StatusOK, model.Envelope{"user": model.Profile(admin)})
}

// updateProfileRequest carries the mutable profile fields. Pointers
// distinguish an absent field from an explicit empty value, so updates can
// be partial.
type updateProfileRequest struct {
	Email          *string `json:"email"`
	FirstName      *string `json:"first_name"`
	LastName       *string `json:"last_name"`
	ProfilePicture *string `json:"profile_picture"`
}

// UpdateProfile applies a partial update to the admin's own profile.
// PUT /api/auth/profile/update/
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())

	var req updateProfileRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	admin, err := h.store.GetAdmin(r.Context(), principal.AdminID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load profile: "+err.Error())
		return
	}

	if req.Email != nil {
		admin.Email = *req.Email
	}
	if req.FirstName != nil {
		admin.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		admin.LastName = *req.LastName
	}
	if req.ProfilePicture != nil {
		admin.ProfilePicture = *req.ProfilePicture
	}

	if err := h.store.UpdateAdminProfile(r.Context(), admin); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update profile: "+err.Error())
		return
	}

	writeOK(w, http.StatusOK, model.Envelope{
		"message": "Profile updated successfully",
		"user":    model.Profile(admin),
	})
}

// changePasswordRequest is the expected payload for the ChangePassword
// endpoint.
type changePasswordRequest struct {
	OldPassword     string `json:"old_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

// ChangePassword rotates the admin's password. All outstanding tokens issued
// before the change stop validating, so the client must log in again.
// POST /api/auth/change-password/
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())

	var req changePasswordRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	errs := map[string][]string{}
	if req.OldPassword == "" {
		errs["old_password"] = append(errs["old_password"], "This field is required.")
	}
	if req.NewPassword == "" {
		errs["new_password"] = append(errs["new_password"], "This field is required.")
	} else if len(req.NewPassword) < 8 {
		errs["new_password"] = append(errs["new_password"], "Password must be at least 8 characters.")
	}
	if req.ConfirmPassword != req.NewPassword {
		errs["confirm_password"] = append(errs["confirm_password"], "Passwords do not match.")
	}
	if len(errs) > 0 {
		writeFieldErrors(w, errs)
		return
	}

	admin, err := h.store.GetAdmin(r.Context(), principal.AdminID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load account: "+err.Error())
		return
	}
	if err := h.auth.CheckPassword(admin, req.OldPassword); err != nil {
		writeError(w, http.StatusBadRequest, "Current password is incorrect")
		return
	}

	hash, err := service.HashPassword(req.NewPassword)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to hash password: "+err.Error())
		return
	}
	if err := h.store.UpdateAdminPassword(r.Context(), admin.ID, hash); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to change password: "+err.Error())
		return
	}

	writeOK(w, http.StatusOK, model.Envelope{
		"message": "Password changed successfully. Please log in again.",
	})
}

// ---------------------------------------------------------------------------
// Sessions and audit log
// ---------------------------------------------------------------------------

// ListSessions returns the admin's own active sessions.
// GET /api/auth/sessions/
func (h *AuthHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())

	sessions, err := h.sessions.ListActive(r.Context(), principal.AdminID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sessions: "+err.Error())
		return
	}

	out := make([]model.Envelope, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, model.Envelope{
			"id":            s.ID,
			"ip_address":    s.IPAddress,
			"user_agent":    s.UserAgent,
			"created_at":    s.CreatedAt,
			"last_activity": s.LastActivity,
			"current":       s.SessionKey == principal.SessionKey,
		})
	}

	writeOK(w, http.StatusOK, model.Envelope{"sessions": out, "count": len(out)})
}

// TerminateSession deactivates one of the admin's own sessions by ID and
// blacklists the refresh token bound to it. Another admin's session ID gets
// the same 404 as a nonexistent one.
// POST /api/auth/sessions/{id}/terminate/
func (h *AuthHandler) TerminateSession(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())

	sessionID, err := urlID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid session id")
		return
	}

	jti, err := h.sessions.Terminate(r.Context(), principal.AdminID, sessionID)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to terminate session: "+err.Error())
		return
	}
	if err := h.auth.RevokeJTI(r.Context(), jti, principal.AdminID); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to revoke token: "+err.Error())
		return
	}

	writeOK(w, http.StatusOK, model.Envelope{"message": "Session terminated"})
}

// ListLoginAttempts returns the most recent login attempts, newest first.
// Gated to super admins by the router.
// GET /api/auth/login-attempts/
func (h *AuthHandler) ListLoginAttempts(w http.ResponseWriter, r *http.Request) {
	attempts, err := h.sessions.RecentAttempts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list login attempts: "+err.Error())
		return
	}

	writeOK(w, http.StatusOK, model.Envelope{"attempts": attempts, "count": len(attempts)})
}
