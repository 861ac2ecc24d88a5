package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/catwalkhq/catwalk/internal/config"
	"github.com/catwalkhq/catwalk/internal/model"
	"github.com/catwalkhq/catwalk/internal/service"
)

func TestLoginSuccess(t *testing.T) {
	env := newTestEnv(t, nil)
	seeded := env.seedAdmin(t, "alice", false)

	rr := env.do(t, "POST", "/api/auth/login/", "", toJSON(t, map[string]string{
		"username": "alice",
		"password": testPassword,
	}))
	assertStatus(t, rr, http.StatusOK)

	e := envelope(t, rr)
	if e["success"] != true {
		t.Error("expected success=true")
	}
	if e["access_token"] == "" || e["refresh_token"] == "" {
		t.Error("expected both tokens in response")
	}
	user, ok := e["user"].(map[string]interface{})
	if !ok {
		t.Fatal("expected user profile in response")
	}
	if user["username"] != "alice" {
		t.Errorf("username: got %v", user["username"])
	}
	if _, leaked := user["password_hash"]; leaked {
		t.Error("password hash leaked in response")
	}

	// The successful attempt was recorded.
	attempts, err := env.sessions.RecentAttempts(context.Background())
	if err != nil {
		t.Fatalf("RecentAttempts: %v", err)
	}
	if len(attempts) != 1 || !attempts[0].Success {
		t.Errorf("expected one successful attempt, got %+v", attempts)
	}

	// A session row was opened.
	sessions, _ := env.store.ListActiveSessions(context.Background(), seeded.ID)
	if len(sessions) != 1 {
		t.Errorf("expected one active session, got %d", len(sessions))
	}
}

func TestLoginWrongPassword(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seedAdmin(t, "alice", false)

	rr := env.do(t, "POST", "/api/auth/login/", "", toJSON(t, map[string]string{
		"username": "alice",
		"password": "wrong",
	}))
	assertStatus(t, rr, http.StatusBadRequest)

	var resp struct {
		Success bool                `json:"success"`
		Errors  map[string][]string `json:"errors"`
	}
	decodeJSON(t, rr, &resp)
	if resp.Success {
		t.Error("expected success=false")
	}
	if got := resp.Errors["non_field_errors"]; len(got) != 1 || got[0] != "Invalid username or password" {
		t.Errorf("non_field_errors: got %v", resp.Errors)
	}

	attempts, _ := env.sessions.RecentAttempts(context.Background())
	if len(attempts) != 1 || attempts[0].Success {
		t.Errorf("expected one failed attempt, got %+v", attempts)
	}
}

func TestLoginDisabledAccountSameMessage(t *testing.T) {
	env := newTestEnv(t, nil)
	admin := env.seedAdmin(t, "alice", false)
	if err := env.store.SetAdminActive(context.Background(), admin.ID, false); err != nil {
		t.Fatalf("disable admin: %v", err)
	}

	rr := env.do(t, "POST", "/api/auth/login/", "", toJSON(t, map[string]string{
		"username": "alice",
		"password": testPassword,
	}))
	assertStatus(t, rr, http.StatusBadRequest)

	var resp struct {
		Errors map[string][]string `json:"errors"`
	}
	decodeJSON(t, rr, &resp)
	if got := resp.Errors["non_field_errors"]; len(got) != 1 || got[0] != "Invalid username or password" {
		t.Errorf("disabled account must not be distinguishable: got %v", resp.Errors)
	}
}

func TestLoginMissingFields(t *testing.T) {
	env := newTestEnv(t, nil)

	rr := env.do(t, "POST", "/api/auth/login/", "", toJSON(t, map[string]string{}))
	assertStatus(t, rr, http.StatusBadRequest)

	var resp struct {
		Success bool                `json:"success"`
		Errors  map[string][]string `json:"errors"`
	}
	decodeJSON(t, rr, &resp)
	if resp.Success {
		t.Error("expected success=false")
	}
	if len(resp.Errors["username"]) == 0 || len(resp.Errors["password"]) == 0 {
		t.Errorf("expected field errors for username and password, got %v", resp.Errors)
	}
}

func TestLoginAuditSurvivesSessionFailure(t *testing.T) {
	dataDir := t.TempDir()
	store, err := config.NewStore(dataDir)
	if err != nil {
		t.Fatalf("config.NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	auth := service.NewAuthService(store, testJWTSecret, 15*time.Minute, 7*24*time.Hour)
	sessions := service.NewSessionService(store, logger)
	h := NewAuthHandler(store, auth, sessions)

	hash, err := service.HashPassword(testPassword)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if err := store.CreateAdmin(context.Background(), &model.Admin{
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: hash,
		IsActive:     true,
	}); err != nil {
		t.Fatalf("CreateAdmin: %v", err)
	}

	// Break session writes without touching the audit table.
	raw, err := sqlx.Connect("sqlite", filepath.Join(dataDir, "catwalk.db"))
	if err != nil {
		t.Fatalf("open raw connection: %v", err)
	}
	if _, err := raw.Exec("DROP TABLE admin_sessions"); err != nil {
		t.Fatalf("drop admin_sessions: %v", err)
	}
	raw.Close()

	req := httptest.NewRequest("POST", "/api/auth/login/", toJSON(t, map[string]string{
		"username": "alice",
		"password": testPassword,
	}))
	rr := httptest.NewRecorder()
	h.Login(rr, req)
	assertStatus(t, rr, http.StatusInternalServerError)

	// The validated login is audited even though no session was opened.
	attempts, err := sessions.RecentAttempts(context.Background())
	if err != nil {
		t.Fatalf("RecentAttempts: %v", err)
	}
	if len(attempts) != 1 || !attempts[0].Success {
		t.Errorf("expected one successful attempt on record, got %+v", attempts)
	}
}

func TestProfileRequiresAuth(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seedAdmin(t, "alice", false)

	rr := env.do(t, "GET", "/api/auth/profile/", "", nil)
	assertStatus(t, rr, http.StatusUnauthorized)

	access, _ := env.login(t, "alice")
	rr = env.do(t, "GET", "/api/auth/profile/", access, nil)
	assertStatus(t, rr, http.StatusOK)

	e := envelope(t, rr)
	user := e["user"].(map[string]interface{})
	if user["username"] != "alice" {
		t.Errorf("username: got %v", user["username"])
	}
}

func TestUpdateProfilePartial(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seedAdmin(t, "alice", false)
	access, _ := env.login(t, "alice")

	rr := env.do(t, "PUT", "/api/auth/profile/update/", access, toJSON(t, map[string]string{
		"first_name": "Alicia",
	}))
	assertStatus(t, rr, http.StatusOK)

	e := envelope(t, rr)
	user := e["user"].(map[string]interface{})
	if user["first_name"] != "Alicia" {
		t.Errorf("first_name: got %v", user["first_name"])
	}
	// Untouched fields survive.
	if user["email"] != "alice@example.com" {
		t.Errorf("email should be unchanged: got %v", user["email"])
	}
}

func TestChangePasswordMismatchKeepsHash(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seedAdmin(t, "alice", false)
	access, _ := env.login(t, "alice")

	rr := env.do(t, "POST", "/api/auth/change-password/", access, toJSON(t, map[string]string{
		"old_password":     testPassword,
		"new_password":     "brand-new-pass",
		"confirm_password": "different-pass",
	}))
	assertStatus(t, rr, http.StatusBadRequest)

	var resp struct {
		Errors map[string][]string `json:"errors"`
	}
	decodeJSON(t, rr, &resp)
	if len(resp.Errors["confirm_password"]) == 0 {
		t.Errorf("expected confirm_password error, got %v", resp.Errors)
	}

	// The old password still works.
	env.login(t, "alice")
}

func TestChangePasswordWrongCurrent(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seedAdmin(t, "alice", false)
	access, _ := env.login(t, "alice")

	rr := env.do(t, "POST", "/api/auth/change-password/", access, toJSON(t, map[string]string{
		"old_password":     "not-the-password",
		"new_password":     "brand-new-pass",
		"confirm_password": "brand-new-pass",
	}))
	assertStatus(t, rr, http.StatusBadRequest)

	e := envelope(t, rr)
	if e["error"] != "Current password is incorrect" {
		t.Errorf("error: got %v", e["error"])
	}
}

func TestChangePasswordRevokesOutstandingTokens(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seedAdmin(t, "alice", false)
	access, refresh := env.login(t, "alice")

	rr := env.do(t, "POST", "/api/auth/change-password/", access, toJSON(t, map[string]string{
		"old_password":     testPassword,
		"new_password":     "brand-new-pass",
		"confirm_password": "brand-new-pass",
	}))
	assertStatus(t, rr, http.StatusOK)

	// The old access token stops validating.
	rr = env.do(t, "GET", "/api/auth/profile/", access, nil)
	assertStatus(t, rr, http.StatusUnauthorized)

	// Even from a fresh session, the old refresh token stops refreshing.
	rr = env.do(t, "POST", "/api/auth/login/", "", toJSON(t, map[string]string{
		"username": "alice",
		"password": "brand-new-pass",
	}))
	assertStatus(t, rr, http.StatusOK)
	var relogin struct {
		AccessToken string `json:"access_token"`
	}
	decodeJSON(t, rr, &relogin)

	rr = env.do(t, "POST", "/api/auth/refresh-token/", relogin.AccessToken, toJSON(t, map[string]string{
		"refresh_token": refresh,
	}))
	assertStatus(t, rr, http.StatusBadRequest)
}

func TestRefreshToken(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seedAdmin(t, "alice", false)
	firstAccess, refresh := env.login(t, "alice")

	rr := env.do(t, "POST", "/api/auth/refresh-token/", firstAccess, toJSON(t, map[string]string{
		"refresh_token": refresh,
	}))
	assertStatus(t, rr, http.StatusOK)

	e := envelope(t, rr)
	access, _ := e["access_token"].(string)
	if access == "" {
		t.Fatal("expected access token")
	}

	// The fresh access token works.
	rr = env.do(t, "GET", "/api/auth/profile/", access, nil)
	assertStatus(t, rr, http.StatusOK)

	// Missing body field.
	rr = env.do(t, "POST", "/api/auth/refresh-token/", access, toJSON(t, map[string]string{}))
	assertStatus(t, rr, http.StatusBadRequest)

	// Garbage token.
	rr = env.do(t, "POST", "/api/auth/refresh-token/", access, toJSON(t, map[string]string{
		"refresh_token": "garbage.token.here",
	}))
	assertStatus(t, rr, http.StatusBadRequest)
}

func TestRefreshTokenRequiresAuth(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seedAdmin(t, "alice", false)
	_, refresh := env.login(t, "alice")

	// A valid refresh token alone does not get past the auth middleware.
	rr := env.do(t, "POST", "/api/auth/refresh-token/", "", toJSON(t, map[string]string{
		"refresh_token": refresh,
	}))
	assertStatus(t, rr, http.StatusUnauthorized)
}

func TestLogoutBlacklistsRefreshToken(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seedAdmin(t, "alice", false)
	access, refresh := env.login(t, "alice")

	rr := env.do(t, "POST", "/api/auth/logout/", access, nil)
	assertStatus(t, rr, http.StatusOK)

	// The session's refresh token no longer refreshes.
	rr = env.do(t, "POST", "/api/auth/refresh-token/", access, toJSON(t, map[string]string{
		"refresh_token": refresh,
	}))
	assertStatus(t, rr, http.StatusBadRequest)

	// Logging out again with the still-valid access token is not an error.
	rr = env.do(t, "POST", "/api/auth/logout/", access, nil)
	assertStatus(t, rr, http.StatusOK)
}

func TestSessionsListAndTerminate(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seedAdmin(t, "alice", false)
	env.seedAdmin(t, "bob", false)

	accessA1, _ := env.login(t, "alice")
	env.login(t, "alice") // second device
	accessB, _ := env.login(t, "bob")

	rr := env.do(t, "GET", "/api/auth/sessions/", accessA1, nil)
	assertStatus(t, rr, http.StatusOK)

	var resp struct {
		Sessions []struct {
			ID      int64 `json:"id"`
			Current bool  `json:"current"`
		} `json:"sessions"`
		Count int `json:"count"`
	}
	decodeJSON(t, rr, &resp)
	if resp.Count != 2 {
		t.Fatalf("count: got %d, want 2", resp.Count)
	}
	currents := 0
	for _, s := range resp.Sessions {
		if s.Current {
			currents++
		}
	}
	if currents != 1 {
		t.Errorf("expected exactly one current session, got %d", currents)
	}

	// Bob cannot terminate Alice's session; the response must not reveal
	// that it exists.
	target := resp.Sessions[0].ID
	rr = env.do(t, "POST", "/api/auth/sessions/"+itoa(target)+"/terminate/", accessB, nil)
	assertStatus(t, rr, http.StatusNotFound)

	// Alice can.
	rr = env.do(t, "POST", "/api/auth/sessions/"+itoa(target)+"/terminate/", accessA1, nil)
	assertStatus(t, rr, http.StatusOK)

	// Terminating again is a 404.
	rr = env.do(t, "POST", "/api/auth/sessions/"+itoa(target)+"/terminate/", accessA1, nil)
	assertStatus(t, rr, http.StatusNotFound)
}

func TestLoginAttemptsSuperAdminOnly(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seedAdmin(t, "alice", false)
	env.seedAdmin(t, "root", true)

	access, _ := env.login(t, "alice")
	rr := env.do(t, "GET", "/api/auth/login-attempts/", access, nil)
	assertStatus(t, rr, http.StatusForbidden)

	superAccess, _ := env.login(t, "root")
	rr = env.do(t, "GET", "/api/auth/login-attempts/", superAccess, nil)
	assertStatus(t, rr, http.StatusOK)

	var resp struct {
		Attempts []struct {
			Username string `json:"username"`
			Success  bool   `json:"success"`
		} `json:"attempts"`
	}
	decodeJSON(t, rr, &resp)
	if len(resp.Attempts) != 2 {
		t.Errorf("attempts: got %d, want 2", len(resp.Attempts))
	}
}
