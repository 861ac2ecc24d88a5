package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/catwalkhq/catwalk/internal/config"
	"github.com/catwalkhq/catwalk/internal/model"
)

// ErrSessionNotFound is returned when a session does not exist or does not
// belong to the requesting admin. The two cases are indistinguishable on
// purpose.
var ErrSessionNotFound = errors.New("session not found")

// maxAttemptPage bounds the login-attempt listing. There is no further
// pagination.
const maxAttemptPage = 100

// SessionService is the session registry and login-attempt audit log.
type SessionService struct {
	store  *config.Store
	logger *slog.Logger
}

// NewSessionService creates a SessionService.
func NewSessionService(store *config.Store, logger *slog.Logger) *SessionService {
	return &SessionService{store: store, logger: logger}
}

// Open creates a new active session row. A caller-supplied session key is
// reused when present; otherwise a fresh one is minted. Concurrent logins
// from the same admin produce independent rows (multi-device is supported).
func (s *SessionService) Open(ctx context.Context, adminID int64, ip, userAgent, sessionKey, refreshJTI string) (*model.AdminSession, error) {
	if sessionKey == "" {
		sessionKey = uuid.NewString()
	}

	sess := &model.AdminSession{
		AdminID:    adminID,
		SessionKey: sessionKey,
		IPAddress:  ip,
		UserAgent:  userAgent,
		RefreshJTI: refreshJTI,
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Close deactivates the session with the given key and returns the refresh
// JTI that was bound to it so the caller can blacklist the token. Closing an
// unknown or already-closed session is not an error; the returned JTI is
// empty in that case.
func (s *SessionService) Close(ctx context.Context, adminID int64, sessionKey string) (string, error) {
	sess, err := s.store.GetSessionByKey(ctx, adminID, sessionKey)
	if err != nil {
		if errors.Is(err, config.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	if !sess.IsActive {
		return "", nil
	}
	if err := s.store.DeactivateSession(ctx, sess.ID); err != nil {
		return "", err
	}
	return sess.RefreshJTI, nil
}

// Terminate deactivates a session by row ID, scoped to the requesting admin.
// Returns the bound refresh JTI, or ErrSessionNotFound when no active row
// with that ID belongs to the caller.
func (s *SessionService) Terminate(ctx context.Context, adminID, sessionID int64) (string, error) {
	sess, err := s.store.GetActiveSession(ctx, adminID, sessionID)
	if err != nil {
		if errors.Is(err, config.ErrNotFound) {
			return "", ErrSessionNotFound
		}
		return "", err
	}
	if err := s.store.DeactivateSession(ctx, sess.ID); err != nil {
		return "", err
	}
	return sess.RefreshJTI, nil
}

// ListActive returns the caller's active sessions, most recent activity first.
func (s *SessionService) ListActive(ctx context.Context, adminID int64) ([]model.AdminSession, error) {
	return s.store.ListActiveSessions(ctx, adminID)
}

// Touch refreshes a session's last-activity timestamp. Failures are logged
// and swallowed; activity tracking must never fail a request.
func (s *SessionService) Touch(ctx context.Context, adminID int64, sessionKey string) {
	if sessionKey == "" {
		return
	}
	if err := s.store.TouchSession(ctx, adminID, sessionKey); err != nil {
		s.logger.Warn("failed to touch session", "admin_id", adminID, "error", err)
	}
}

// RecordAttempt appends one audit row for a login call. Append failures are
// logged and swallowed; the login flow must not be blocked by audit-log
// unavailability.
func (s *SessionService) RecordAttempt(ctx context.Context, username, ip, userAgent string, success bool) {
	attempt := &model.LoginAttempt{
		Username:  username,
		IPAddress: ip,
		UserAgent: userAgent,
		Success:   success,
	}
	if err := s.store.CreateLoginAttempt(ctx, attempt); err != nil {
		s.logger.Error("failed to record login attempt", "username", username, "error", err)
	}
}

// RecentAttempts returns the most recent login attempts, newest first,
// capped at 100. Authorization (super-admin gate) is enforced at the
// handler, not here.
func (s *SessionService) RecentAttempts(ctx context.Context) ([]model.LoginAttempt, error) {
	return s.store.ListLoginAttempts(ctx, maxAttemptPage)
}
